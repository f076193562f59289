package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

const identityKey = "identity"

type identityCtxKey struct{}

// AuthConfig wires the authentication pipeline.
type AuthConfig struct {
	Codec ports.TokenCodec
	// Roles, when set, replaces the token's roles with the live ones. Nil
	// trusts the token.
	Roles  ports.RoleResolver
	Public *PublicRoutes
	Log    zerolog.Logger
}

// Authenticate attaches a domain.Identity to the request when it carries a
// valid bearer token. It never rejects a request: route level guards such as
// RequireAuth decide what anonymous callers may reach.
func Authenticate(cfg AuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method == http.MethodOptions || cfg.Public.Match(req.URL.Path) {
				return next(c)
			}

			raw, ok := bearerToken(req.Header.Get(echo.HeaderAuthorization))
			if !ok {
				return next(c)
			}

			claims, err := cfg.Codec.Decode(raw)
			if err != nil {
				reason := domain.TokenFailureReason(err)
				metrics.TokenVerificationsTotal.WithLabelValues(reason).Inc()
				cfg.Log.Debug().
					Str("reason", reason).
					Str("path", req.URL.Path).
					Msg("token rejected")
				return next(c)
			}
			metrics.TokenVerificationsTotal.WithLabelValues("ok").Inc()

			identity, ok := resolveIdentity(req.Context(), cfg, claims)
			if !ok {
				return next(c)
			}

			SetIdentity(c, identity)
			return next(c)
		}
	}
}

func resolveIdentity(ctx context.Context, cfg AuthConfig, claims domain.TokenClaims) (domain.Identity, bool) {
	if cfg.Roles == nil {
		return domain.Identity{Username: claims.Subject, Roles: domain.NormalizeRoles(claims.Roles)}, true
	}

	roles, err := cfg.Roles.ResolveRoles(ctx, claims.Subject)
	switch {
	case err == nil:
		return domain.Identity{Username: claims.Subject, Roles: roles}, true
	case errors.Is(err, domain.ErrAccountNotFound):
		cfg.Log.Debug().Str("username", claims.Subject).Msg("token subject no longer exists")
	default:
		cfg.Log.Warn().Err(err).Str("username", claims.Subject).Msg("role lookup failed, treating request as anonymous")
	}
	return domain.Identity{}, false
}

// bearerToken extracts the token from "Bearer <token>". The scheme is case
// insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// SetIdentity attaches id to both the echo context and the request context.
func SetIdentity(c echo.Context, id domain.Identity) {
	c.Set(identityKey, id)
	req := c.Request()
	c.SetRequest(req.WithContext(context.WithValue(req.Context(), identityCtxKey{}, id)))
}

// IdentityFrom returns the identity attached by Authenticate.
func IdentityFrom(c echo.Context) (domain.Identity, bool) {
	id, ok := c.Get(identityKey).(domain.Identity)
	return id, ok
}

// IdentityFromContext is IdentityFrom for code that only sees the request
// context.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(domain.Identity)
	return id, ok
}
