package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"healthwatch-server/config"
	"healthwatch-server/database"
	"healthwatch-server/jobs"
	"healthwatch-server/middleware"
	"healthwatch-server/routes"
	"healthwatch-server/services"
	"healthwatch-server/utils"
	ws "healthwatch-server/websocket"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := utils.InitializeLogger(cfg.IsProduction(), cfg.Log.Level)
	defer logger.Sync()
	gin.SetMode(cfg.Server.GinMode)

	db, err := database.Initialize(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc := cfg.Scheduler.Location()
	users := services.NewUserStore(db)
	reminders := services.NewReminderStore(db, logger)
	notifications := services.NewNotificationStore(db, logger)
	measurements := services.NewMeasurementStore(db, loc, logger)
	auth := services.NewAuthService(users, services.NewJWTService(cfg.JWT), logger)
	push := services.NewFCMDispatcher(ctx, cfg.Push, logger)

	if cfg.Server.SeedDemo {
		if err := seedDemoData(ctx, users, reminders, logger); err != nil {
			logger.Error("❌ Demo seed failed", zap.Error(err))
		}
	}

	hub := ws.NewHub(logger)
	ws.NewMeasurementRelay(hub, measurements, logger)
	gateway := ws.NewGateway(hub, auth, cfg.Socket.AllowedOrigins, logger)

	reminderJob, err := jobs.NewReminderJob(jobs.ReminderDeps{
		Reminders:     reminders,
		Notifications: notifications,
		Push:          push,
	}, cfg.Scheduler, logger)
	if err != nil {
		logger.Fatal("Failed to create reminder job", zap.Error(err))
	}

	rateLimiter := middleware.NewRateLimiter(cfg.Server.RateLimitPerMinute)
	rateLimiter.StartCleanup(ctx, 10*time.Minute)

	router := routes.SetupRouter(routes.Dependencies{
		Auth:          auth,
		Users:         users,
		Notifications: notifications,
		Measurements:  measurements,
		Reminders:     reminders,
		Hub:           hub,
		Gateway:       gateway,
		Scheduler:     reminderJob,
		RateLimiter:   rateLimiter,
		CORSOrigins:   cfg.Socket.AllowedOrigins,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	reminderJob.Start()

	go func() {
		logger.Info("🚀 Server starting", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("🛑 Shutting down")

	reminderJob.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("❌ HTTP shutdown failed", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
