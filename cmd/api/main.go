package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"creatorx/internal/config"
	"creatorx/internal/database"
	"creatorx/internal/events"
	"creatorx/internal/handlers"
	"creatorx/internal/logger"
	"creatorx/internal/scheduler"
	"creatorx/internal/server"
	"creatorx/internal/validator"
	"creatorx/internal/worker"

	"github.com/gin-gonic/gin"
)

// @title           CreatorX API
// @version         1.0
// @description     CreatorX is a virtual stock market where every creator issues shares that followers trade with in-app coins.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description Pipeline API key.

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if appConfig.PipelineAPIKey == "" {
		log.Warn("PIPELINE_API_KEY is not set; pipeline endpoints will reject every request")
	}

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("failed to close database: %v", err)
		}
	}()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	db := dbManager.DB()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying DB: %w", err)
	}

	// Background plumbing
	queue := worker.NewQueue(worker.Config{
		Workers:     appConfig.WorkerCount,
		QueueSize:   appConfig.TaskQueueSize,
		MaxAttempts: appConfig.TaskMaxAttempts,
		BaseBackoff: appConfig.TaskBaseBackoff,
	})
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := events.NewHub(256)
	go hub.Run(hubCtx)

	svc := server.NewServices(db, appConfig.Market, hub, queue)

	validator.Register()
	if appConfig.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := server.NewRouter(svc, server.RouterConfig{
		Market:         appConfig.Market,
		PipelineAPIKey: appConfig.PipelineAPIKey,
		Health:         handlers.NewHealthHandler(sqlDB, hub.Stats, queue.Stats),
		Events:         hub.ServeWS,
	})

	repricer := scheduler.New(svc.Pricing, appConfig.RepriceInterval)
	repricer.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Starting CreatorX backend server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP shutdown error: %v", err)
	}
	repricer.Stop()
	if err := queue.Close(shutdownCtx); err != nil {
		log.Warnf("Worker queue did not drain: %v", err)
	}
	stopHub()

	log.Info("Server stopped")
	return nil
}
