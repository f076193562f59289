package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

const (
	// DefaultTTL is the lifetime of an issued token.
	DefaultTTL = 4 * time.Hour
	// MinKeyLength is the shortest accepted HS256 secret, in bytes.
	MinKeyLength = 32
)

var _ ports.TokenCodec = (*Codec)(nil)

// Claims is the JWT payload: sub, roles, iat, exp.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Codec issues and verifies HS256 tokens with a single immutable key. It is
// safe for concurrent use.
type Codec struct {
	key    []byte
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// Option customises a Codec.
type Option func(*Codec)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Codec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLeeway tolerates clock skew when checking exp.
func WithLeeway(d time.Duration) Option {
	return func(c *Codec) {
		if d > 0 {
			c.leeway = d
		}
	}
}

// WithClock replaces time.Now for both issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec returns a Codec signing with key, which must be at least
// MinKeyLength bytes.
func NewCodec(key []byte, opts ...Option) (*Codec, error) {
	if len(key) < MinKeyLength {
		return nil, fmt.Errorf("token: signing key must be at least %d bytes (got %d)", MinKeyLength, len(key))
	}
	c := &Codec{
		key: append([]byte(nil), key...),
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	// jwt rejects at now >= exp. The extra second keeps a token alive at the
	// exp second itself; Decode applies the exact now > exp cut.
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
		jwt.WithLeeway(c.leeway+time.Second),
	)
	return c, nil
}

// TTL returns the lifetime given to issued tokens.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Encode signs a token for subject carrying roles.
func (c *Codec) Encode(subject string, roles []string) (string, error) {
	now := c.now()
	claims := Claims{
		Roles: domain.NormalizeRoles(roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry of tokenString and returns its
// claims. The returned error is one of the domain token errors; callers that
// face clients must collapse it to domain.ErrUnauthenticated.
func (c *Codec) Decode(tokenString string) (domain.TokenClaims, error) {
	claims := &Claims{}
	tkn, err := c.parser.ParseWithClaims(tokenString, claims, c.keyFunc)
	if err != nil {
		return domain.TokenClaims{}, classify(tkn, err)
	}
	if !tkn.Valid || claims.Subject == "" || claims.IssuedAt == nil {
		return domain.TokenClaims{}, domain.ErrTokenMalformed
	}
	if c.now().After(claims.ExpiresAt.Time.Add(c.leeway)) {
		return domain.TokenClaims{}, domain.ErrTokenExpired
	}

	return domain.TokenClaims{
		Subject:   claims.Subject,
		Roles:     domain.NormalizeRoles(claims.Roles),
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return c.key, nil
}

// classify maps golang-jwt failures onto the three rejection reasons. A header
// declaring any algorithm but HS256 counts as malformed, not as a bad signature.
func classify(tkn *jwt.Token, err error) error {
	switch {
	case tkn != nil && tkn.Method != nil && tkn.Method.Alg() != jwt.SigningMethodHS256.Alg():
		return domain.ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domain.ErrTokenSignatureMismatch
	default:
		return domain.ErrTokenMalformed
	}
}
