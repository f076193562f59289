package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/auth-service/docs"
	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// Deps is everything the router needs. Built once in main.
type Deps struct {
	Auth  ports.AuthService
	Codec ports.TokenCodec
	// Roles is nil when token roles are trusted.
	Roles        ports.RoleResolver
	TokenTTL     time.Duration
	PublicRoutes []string
	Health       map[string]handler.Pinger
	// Metrics overrides the default Prometheus registry.
	Metrics *prometheus.Registry
	Log     zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if d.Metrics != nil {
		registerer, gatherer = d.Metrics, d.Metrics
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echomiddleware.CORS())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: registerer,
	}))
	e.Use(middleware.Authenticate(middleware.AuthConfig{
		Codec:  d.Codec,
		Roles:  d.Roles,
		Public: middleware.NewPublicRoutes(d.PublicRoutes...),
		Log:    d.Log.With().Str("component", "authn").Logger(),
	}))

	authHandler := handler.NewAuthHandler(d.Auth, d.TokenTTL)
	accountHandler := handler.NewAccountHandler()
	healthHandler := handler.NewHealthHandler(d.Health, d.Log.With().Str("component", "health").Logger())

	// --- Public ---
	v1 := e.Group("/api/v1")
	v1.POST("/users/register", authHandler.Register)
	v1.POST("/auth/login", authHandler.Login)

	// --- Protected ---
	v1.GET("/users/me", accountHandler.Me, middleware.RequireAuth())

	admin := v1.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
	admin.GET("/ping", accountHandler.AdminPing)

	// --- Operational ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Status >= 500 {
				evt = log.Error()
			}
			if v.Error != nil {
				evt = evt.Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
