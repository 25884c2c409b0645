package api

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medconnecthq/medconnect/internal/app"
	iauth "github.com/medconnecthq/medconnect/internal/auth"
	"github.com/medconnecthq/medconnect/internal/handlers"
	"github.com/medconnecthq/medconnect/internal/middleware"
	"github.com/medconnecthq/medconnect/internal/models"
	"github.com/medconnecthq/medconnect/internal/services"
	"github.com/medconnecthq/medconnect/internal/storage"
)

// Dependencies carries the constructed services the router wires into handlers.
type Dependencies struct {
	Identity *services.IdentityService
	Profiles *services.ProfileService
	Resets   *services.PasswordResetService
	Store    storage.FileStore
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(jwt *iauth.JWTService, cfg *app.Config, deps Dependencies) (*gin.Engine, error) {
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.Identity == nil || deps.Profiles == nil || deps.Resets == nil || deps.Store == nil {
		return nil, fmt.Errorf("all services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))

	limit := cfg.Server.RateLimit
	if limit.Requests > 0 && limit.Window > 0 {
		r.Use(middleware.RateLimit(limit.Requests, limit.Window))
	} else {
		r.Use(middleware.RateLimit(100, time.Minute))
	}

	r.NoRoute(middleware.NotFoundHandler)

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// Uploaded avatars and documents
	r.Static("/uploads", cfg.Storage.Dir)

	authHandler := handlers.NewAuthHandler(deps.Identity)
	doctorHandler := handlers.NewDoctorHandler(deps.Identity, deps.Profiles, deps.Resets, deps.Store)
	userHandler := handlers.NewUserHandler(deps.Identity, deps.Profiles, deps.Store)
	passwordHandler := handlers.NewPasswordHandler(deps.Resets)
	adminHandler := handlers.NewAdminHandler(deps.Identity, deps.Profiles)

	requireAuth := middleware.Auth(jwt)
	requireAdmin := middleware.RequireRole(models.RoleAdmin)

	// Patient credential flows (public)
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/verify", authHandler.Verify)
	}

	// Patient password recovery (public)
	password := r.Group("/api/password")
	{
		password.POST("/forgot-password", passwordHandler.Forgot)
		password.POST("/verify-otp", passwordHandler.VerifyToken)
		password.POST("/reset-password", passwordHandler.Reset)
	}

	// Doctor flows
	doctor := r.Group("/api/doctor")
	{
		doctor.POST("/register", doctorHandler.Register)
		doctor.POST("/login", doctorHandler.Login)
		doctor.POST("/verify-account", doctorHandler.VerifyAccount)
		doctor.POST("/forgot-password", doctorHandler.ForgotPassword)
		doctor.POST("/reset-password", doctorHandler.ResetPassword)

		doctor.GET("/profile", requireAuth, middleware.RequireRole(models.RoleDoctor), doctorHandler.GetProfile)
		doctor.PUT("/profile", requireAuth, middleware.RequireRole(models.RoleDoctor), doctorHandler.UpdateProfile)
		doctor.POST("/documents", requireAuth, middleware.RequireRole(models.RoleDoctor), doctorHandler.UploadDocuments)

		doctor.POST("/verify", requireAuth, requireAdmin, doctorHandler.Approve)
	}

	// Authenticated account routes (patient or doctor)
	user := r.Group("/api/user")
	user.Use(requireAuth)
	{
		user.GET("", userHandler.Get)
		user.PUT("", userHandler.Update)
		user.POST("/request-change-contact", userHandler.RequestChangeContact)
		user.POST("/confirm-change-contact", userHandler.ConfirmChangeContact)
	}

	// Admin
	admin := r.Group("/api/admin")
	{
		admin.POST("/login", adminHandler.Login)
		admin.GET("/doctors/pending", requireAuth, requireAdmin, adminHandler.ListPendingDoctors)
	}

	return r, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	cfg.MaxAge = 12 * time.Hour

	allowAll := len(origins) == 0
	for _, origin := range origins {
		if origin == "*" {
			allowAll = true
			break
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
		return cfg
	}

	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
