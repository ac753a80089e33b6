package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"crm-copy/portal-backend/internal/auth"
	"crm-copy/portal-backend/internal/config"
	"crm-copy/portal-backend/internal/crm"
	"crm-copy/portal-backend/internal/housekeeping"
	"crm-copy/portal-backend/internal/notifications"
	"crm-copy/portal-backend/internal/notifications/websocket"
	"crm-copy/portal-backend/internal/onboarding"
	"crm-copy/portal-backend/internal/settings"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		bootLogger, _ := zap.NewProduction()
		bootLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize logger
	logger := newLogger(cfg.Logging)
	defer logger.Sync()

	// Connect to database
	logger.Info("Connecting to database",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("db_name", cfg.Database.DBName),
	)
	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	// The notification log shares the pool through gorm
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.Fatal("Failed to open gorm session", zap.Error(err))
	}

	ctx := context.Background()

	// Settings
	settingsRepo := settings.NewPostgresRepository(db)
	if err := settingsRepo.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to prepare settings schema", zap.Error(err))
	}
	settingsService := settings.NewService(settingsRepo, logger)
	settingsHandler := settings.NewHandler(settingsService, logger)

	// Notifications
	notificationStore, err := notifications.NewGormStore(gormDB)
	if err != nil {
		logger.Fatal("Failed to prepare notification store", zap.Error(err))
	}
	wsManager := websocket.NewManager(cfg.Server.AllowedOrigin, logger)
	defer wsManager.Close()
	notificationService := notifications.NewService(notificationStore, wsManager, cfg.Notifications.HistoryLimit, logger)
	notificationHandler := notifications.NewHandler(notificationService, wsManager, logger)

	// Onboarding
	onboardingCfg := onboarding.Config{
		DashboardPath:       cfg.Onboarding.DashboardPath,
		OnboardingPath:      cfg.Onboarding.OnboardingPath,
		FallbackCompanyName: cfg.Onboarding.FallbackCompanyName,
	}
	sessions := onboarding.NewSessionStore(onboardingCfg, cfg.Onboarding.SessionTTL, settingsService, notificationService)
	onboardingHandler := onboarding.NewHandler(sessions, settingsService, cfg.Onboarding.DemoAccountEmail, logger)

	// Auth
	authService := auth.NewService(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, cfg.Security.TokenTTL)
	authHandler := auth.NewHandler(authService, cfg.Security.DemoLogin, logger)

	// Housekeeping
	janitor := housekeeping.NewJanitor(cfg.Housekeeping.SweepSpec, logger)
	janitor.Register("onboarding_sessions", sessions)

	// Setup Router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger), cors(cfg.Server.AllowedOrigin))

	api := router.Group("/api/v1")
	authenticated := api.Group("", auth.RequireAuth(authService))
	{
		auth.RegisterRoutes(api, authHandler)
		settingsHandler.RegisterRoutes(authenticated)
		notificationHandler.RegisterRoutes(authenticated)
		onboardingHandler.RegisterRoutes(authenticated)
	}

	// CRM handshake, only when a provider is configured
	if cfg.CRM.CRMEnabled() {
		exchanger := crm.NewHTTPExchanger(
			&http.Client{Timeout: cfg.CRM.HTTPTimeout},
			cfg.CRM.TokenURL,
			cfg.CRM.ClientID,
			cfg.CRM.ClientSecret,
			cfg.CRM.RedirectURI,
		)
		crmService := crm.NewService(crm.ProviderConfig{
			ClientID:    cfg.CRM.ClientID,
			AuthURL:     cfg.CRM.AuthURL,
			RedirectURI: cfg.CRM.RedirectURI,
			Scopes:      cfg.CRM.Scopes,
			PendingTTL:  cfg.CRM.PendingTTL,
		}, exchanger, settingsService, logger)
		crm.NewHandler(crmService, cfg.Onboarding.OnboardingPath, logger).RegisterRoutes(authenticated, api)
		janitor.Register("crm_pending", crmService)
		logger.Info("CRM authorization enabled", zap.String("auth_url", cfg.CRM.AuthURL))
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":              "healthy",
			"timestamp":           time.Now(),
			"onboarding_sessions": sessions.Len(),
			"ws_connections":      wsManager.GetConnectionCount(),
		})
	})

	if err := janitor.Start(); err != nil {
		logger.Fatal("Failed to start janitor", zap.Error(err))
	}
	defer janitor.Stop()

	// Start Server
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", srv.Addr))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

func newLogger(cfg config.LoggingConfig) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.Level); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func cors(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
