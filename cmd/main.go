package main

import (
	"membership-service/internal/handler"
	"membership-service/internal/middleware"
	"membership-service/pkg/config"
	"membership-service/pkg/database"
	"membership-service/pkg/jwtutil"
	"membership-service/pkg/logger"
	"membership-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting membership service...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize session tokens and OTP lifetime
	jwtutil.Initialize(&cfg.JWT)
	handler.SetOTPExpiry(cfg.OTP.Expiry)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/staff/login", handler.StaffLogin)
	auth.POST("/member/login", handler.MemberLogin)
	auth.POST("/member/set-password", handler.SetMemberPassword)
	auth.POST("/otp/generate", handler.GenerateOTP)
	auth.POST("/otp/verify", handler.VerifyOTP)

	// Member-facing routes - the registration form and the profile page
	e.POST("/api/register", handler.RegisterMember)
	e.GET("/api/member/profile", handler.MemberProfile)

	// Staff routes - require a branch session token
	api := e.Group("/api")
	api.Use(middleware.StaffAuthMiddleware)
	api.GET("/members", handler.ListMembers)
	api.POST("/members/approve", handler.ApproveMember)
	api.DELETE("/members", handler.RemoveMember)
	api.GET("/members/stats", handler.MemberStats)
	api.GET("/notifications", handler.ListNotifications)
	api.PATCH("/notifications/read", handler.MarkNotificationRead)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
