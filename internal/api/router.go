package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/talentflow/recruiting/internal/api/handler"
	"github.com/talentflow/recruiting/internal/api/middleware"
	"github.com/talentflow/recruiting/internal/core/domain"
	"github.com/talentflow/recruiting/internal/core/ports"
	"github.com/talentflow/recruiting/internal/core/service"
)

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	Sessions ports.SessionService
	Accounts ports.AccountService
	Routes   service.Routes
	Health   map[string]handler.Pinger
	Log      zerolog.Logger
	// Registry receives the HTTP metrics. Nil selects the default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:                 "recruiting",
		Subsystem:                 "http",
		Registerer:                registerer,
		DoNotUseRequestPathFor404: true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.Accounts, deps.Sessions)
	sessionHandler := handler.NewSessionHandler(deps.Sessions)
	healthHandler := handler.NewHealthHandler(deps.Health)

	requireSession := middleware.RequireSession(deps.Sessions, deps.Routes)
	requireRole := func(roles ...domain.Role) echo.MiddlewareFunc {
		return middleware.RequireRole(deps.Sessions, deps.Routes, roles...)
	}

	// --- Auth routes ---
	e.POST("/auth/signup", authHandler.SignUp)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/federated", authHandler.Federated)
	e.POST("/auth/logout", authHandler.Logout)

	// --- Session routes ---
	e.GET("/session", sessionHandler.Get)
	e.GET("/session/permissions", sessionHandler.Permissions)
	e.PATCH("/profile", sessionHandler.UpdateProfile, requireSession)
	e.POST("/profile/refresh", sessionHandler.RefreshProfile, requireSession)

	// --- Guarded areas ---
	e.GET("/dashboard", handler.Page("dashboard"), requireSession)
	e.GET("/admin", handler.Page("admin"), requireRole(domain.RoleAdmin))
	e.GET("/recruiting", handler.Page("recruiting"), requireRole(domain.RoleAdmin, domain.RoleRecruiter))
	e.GET("/portal", handler.Page("portal"), requireRole(domain.RoleClient))
	e.GET("/applications", handler.Page("applications"), requireRole(domain.RoleCandidate))

	// --- Health probes and metrics (no session required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Status >= 500 {
				evt = log.Error().Err(v.Error)
			}
			evt.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
