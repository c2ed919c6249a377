package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/familycircle/circle-api/docs"
	"github.com/familycircle/circle-api/internal/api/handler"
	"github.com/familycircle/circle-api/internal/api/middleware"
	"github.com/familycircle/circle-api/internal/core/ports"
	"github.com/familycircle/circle-api/internal/infrastructure/http/handlers"
	"github.com/familycircle/circle-api/internal/pkg/metrics"
)

// RouterConfig carries what the router needs besides the handlers.
type RouterConfig struct {
	JWTSecret string
	Revoker   ports.TokenRevoker
	Logger    zerolog.Logger
	// BodyLimit caps request bodies, e.g. "6M". Empty disables the limit.
	BodyLimit string
}

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Auth      *handler.AuthHandler
	Session   *handler.SessionHandler
	User      *handler.UserHandler
	Family    *handler.FamilyHandler
	Media     *handler.MediaHandler
	Health    *handlers.HealthHandler
	Readiness *handlers.HealthDependenciesHandler
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(cfg RouterConfig, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(cfg.Logger))
	e.Use(echoprometheus.NewMiddleware(metrics.Namespace))
	if cfg.BodyLimit != "" {
		e.Use(echomiddleware.BodyLimit(cfg.BodyLimit))
	}

	auth := middleware.Auth(cfg.JWTSecret, cfg.Revoker)

	// --- Auth routes ---
	e.POST("/auth/register", h.Auth.Register)
	e.POST("/auth/login", h.Auth.Login)
	e.POST("/auth/logout", h.Auth.Logout, auth)

	// --- Public routes ---
	e.GET("/v1/families/invite/:code", h.Family.InvitePreview)
	e.GET("/v1/media/*", h.Media.Download)

	// --- Authenticated routes ---
	v1 := e.Group("/v1", auth)

	v1.GET("/session", h.Session.Snapshot)
	v1.GET("/session/stream", h.Session.Stream)

	v1.GET("/users/me", h.User.Me)
	v1.PATCH("/users/me", h.User.UpdateMe)
	v1.PUT("/users/me/profile-image", h.User.UploadProfileImage)

	v1.POST("/families/join", h.Family.Join)
	v1.GET("/families/:id", h.Family.Get)
	v1.PATCH("/families/:id", h.Family.Update, middleware.AdminOnly())
	v1.GET("/families/:id/members", h.Family.Members)
	v1.POST("/families/:id/photos", h.Family.UploadPhoto)
	v1.GET("/families/:id/photos", h.Family.ListPhotos)

	// --- Operational routes (no auth required) ---
	e.GET("/health", h.Health.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", h.Readiness.Readiness)  // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler()) // prometheus scrape
	e.GET("/swagger/*", echoSwagger.WrapHandler)   // API docs

	return e
}
