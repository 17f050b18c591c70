package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/campustransit/vehicle-booking-backend/internal/config"
	"github.com/campustransit/vehicle-booking-backend/internal/database"
	"github.com/campustransit/vehicle-booking-backend/internal/handlers"
	"github.com/campustransit/vehicle-booking-backend/internal/middleware"
	"github.com/campustransit/vehicle-booking-backend/internal/models"
	"github.com/campustransit/vehicle-booking-backend/internal/services"
	"github.com/campustransit/vehicle-booking-backend/pkg/jwt"
	"github.com/campustransit/vehicle-booking-backend/pkg/mailer"
	"github.com/campustransit/vehicle-booking-backend/pkg/validator"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Campus Vehicle Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize repositories
	userRepo := database.NewUserRepository(db)
	bookingRepo := database.NewBookingRepository(db)
	locationRepo := database.NewLocationRepository(db)
	otpRepo := database.NewOTPRepository(db)
	auditRepo := database.NewAuditLogRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.ResetTokenExpiry,
	)
	bookingValidator := validator.NewBookingValidator(cfg.Security.EmailDomain)
	auditService := services.NewAuditService(auditRepo, logger, cfg.Security.EnableAuditLog)
	otpService := services.NewOTPService(
		otpRepo,
		time.Duration(cfg.OTP.ExpiryMinutes)*time.Minute,
		cfg.OTP.MaxAttempts,
	)

	// Initialize mail gateway
	var mailGateway mailer.Gateway
	if cfg.SMTP.Mode == "production" {
		logger.Info("Initializing SMTP mail gateway...")
		mailGateway = mailer.NewSMTPGateway(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	} else {
		logger.Info("Mail gateway in development mode (no email will be sent)")
		mailGateway = mailer.NewDevGateway(logger)
	}

	bookingLocation := cfg.BookingLocation()
	authService := services.NewAuthService(
		userRepo, otpService, jwtService, mailGateway,
		bookingValidator, auditService, logger, cfg.Security.BcryptCost,
	)
	userService := services.NewUserService(
		userRepo, bookingValidator, auditService, mailGateway, logger, cfg.Security.BcryptCost,
	)
	locationService := services.NewLocationService(locationRepo, logger)
	bookingService := services.NewBookingService(
		bookingRepo, userRepo, bookingValidator, auditService, mailGateway, logger, bookingLocation,
	)

	// Initialize and start the timeout sweeper
	sweeper := services.NewTimeoutSweeper(
		bookingRepo, auditService, logger, cfg.Sweeper.Interval, bookingLocation,
	)
	sweeper.Start()

	logger.Info("Services initialized")

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	bookingHandler := handlers.NewBookingHandler(bookingService, locationService)
	adminHandler := handlers.NewAdminHandler(userService, bookingService, locationService, auditService)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	authRequired := middleware.AuthMiddleware(jwtService, userRepo)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Authentication routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/google", authHandler.GoogleRegister)
			auth.POST("/login", authHandler.Login)
			auth.POST("/forgot-password", authHandler.ForgotPassword)
			auth.POST("/verify-otp", authHandler.VerifyOTP)
			auth.POST("/reset-password", authHandler.ResetPassword)
			auth.GET("/me", authRequired, authHandler.Me)
		}

		// Booking routes (any authenticated user)
		bookings := v1.Group("/bookings")
		bookings.Use(authRequired)
		{
			bookings.POST("", bookingHandler.Create)
			bookings.GET("/mine", bookingHandler.Mine)
			bookings.GET("/:id", bookingHandler.Get)
			bookings.PATCH("/:id/status",
				middleware.RequireRole(models.RoleWatchman, models.RoleAdmin),
				bookingHandler.UpdateStatus)
		}

		// Public location listing for the booking form
		v1.GET("/locations", authRequired, bookingHandler.Locations)

		// Watchman routes
		watchman := v1.Group("/watchman")
		watchman.Use(authRequired, middleware.RequireRole(models.RoleWatchman, models.RoleAdmin))
		{
			watchman.GET("/bookings", bookingHandler.ForWatchman)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(authRequired, middleware.RequireRole(models.RoleAdmin))
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.POST("/users", adminHandler.CreateUser)
			admin.PUT("/users/:id", adminHandler.UpdateUser)
			admin.PATCH("/users/:id/status", adminHandler.SetUserStatus)
			admin.DELETE("/users/:id", adminHandler.DeleteUser)

			admin.GET("/bookings", adminHandler.ListBookings)
			admin.PUT("/bookings/:id", adminHandler.EditBooking)
			admin.DELETE("/bookings/:id", adminHandler.DeleteBooking)

			admin.POST("/locations", adminHandler.CreateLocation)
			admin.PUT("/locations/:id", adminHandler.UpdateLocation)
			admin.DELETE("/locations/:id", adminHandler.DeleteLocation)

			admin.GET("/audit-logs", adminHandler.AuditLogs)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop the timeout sweeper before closing the database
	sweeper.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if user, exists := middleware.GetUser(c); exists {
			fields["user_id"] = user.ID
			fields["role"] = user.Role
		}

		entry := logger.WithFields(fields)

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
