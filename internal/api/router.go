package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/aurora-advisory/advisory-api/docs"
	"github.com/aurora-advisory/advisory-api/internal/api/handler"
	"github.com/aurora-advisory/advisory-api/internal/api/middleware"
	"github.com/aurora-advisory/advisory-api/internal/core/domain"
	"github.com/aurora-advisory/advisory-api/internal/core/ports"
)

const maxBodySize = "1M"

// Dependencies carries everything the router wires into handlers.
type Dependencies struct {
	Auth     ports.AuthService
	Profiles ports.ProfileService
	Requests ports.RequestService

	// HealthChecks are probed by GET /health/ready, keyed by dependency name.
	HealthChecks map[string]handler.Check

	Logger           zerolog.Logger
	CORSAllowOrigins []string
}

// NewRouter builds and returns the Echo instance with all routes registered.
//
// HTTP metrics are registered on a registry owned by the returned instance,
// and /metrics serves it together with the default registry.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	httpMetrics := prometheus.NewRegistry()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:  corsOrigins(deps.CORSAllowOrigins),
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, "Idempotency-Key"},
		ExposeHeaders: []string{echo.HeaderXRequestID, echo.HeaderWWWAuthenticate, "Idempotent-Replayed"},
	}))
	e.Use(echomiddleware.BodyLimit(maxBodySize))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "advisory",
		Registerer: httpMetrics,
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	profileHandler := handler.NewProfileHandler(deps.Profiles)
	requestHandler := handler.NewRequestHandler(deps.Requests)
	healthHandler := handler.NewHealthHandler(deps.HealthChecks)

	authenticated := middleware.Auth(deps.Auth)
	clientsOnly := middleware.RBAC(domain.RoleClient)
	staffOnly := middleware.RBAC(domain.RoleAdvisor, domain.RoleAdmin)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Profile routes ---
	me := e.Group("/me", authenticated)
	me.GET("/profile", profileHandler.Get)
	me.POST("/profile", profileHandler.Upsert)

	// --- Request routes ---
	requests := e.Group("/requests", authenticated)
	requests.POST("", requestHandler.Create, clientsOnly)
	requests.GET("/me", requestHandler.ListMine, clientsOnly)
	requests.GET("/me/:id", requestHandler.GetMine, clientsOnly)
	requests.PATCH("/me/:id", requestHandler.CancelMine, clientsOnly)
	requests.GET("", requestHandler.List, staffOnly)
	requests.GET("/stats", requestHandler.Stats, staffOnly)
	requests.PATCH("/:id", requestHandler.UpdateStatus, staffOnly)
	requests.GET("/:id/history", requestHandler.History)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{prometheus.DefaultGatherer, httpMetrics},
	}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
