package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"broiler-backend/internal/auth"
	"broiler-backend/internal/backup"
	"broiler-backend/internal/cache"
	"broiler-backend/internal/config"
	"broiler-backend/internal/handlers"
	"broiler-backend/internal/health"
	h "broiler-backend/internal/http"
	"broiler-backend/internal/locks"
	"broiler-backend/internal/middleware"
	"broiler-backend/internal/notify"
	"broiler-backend/internal/realtime"
	"broiler-backend/internal/repositories"
	"broiler-backend/internal/scheduler"
	"broiler-backend/internal/services"
	"broiler-backend/internal/store"
	"broiler-backend/internal/timeutil"
)

// backupInterval is how often the document snapshot is pushed to the bucket.
const backupInterval = 6 * time.Hour

func main() {
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	// Load configuration
	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}

	// Connect to PostgreSQL
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	docStore, err := store.Connect(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer docStore.Close()
	log.Println("[Postgres] Connected successfully")

	// Initialize Redis cache (optional - graceful fallback if unavailable)
	if err := cache.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Printf("[Redis] Cache unavailable: %v (login will use bcrypt only)", err)
	} else {
		log.Println("[Redis] Cache connected successfully")
	}

	// Initialize health checker
	healthChecker := health.NewHealthChecker(docStore.Pool())

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg)

	// Initialize repositories
	batchRepo := repositories.NewBatchRepository(docStore)
	historyRepo := repositories.NewHistoryRepository(docStore)
	dailyRepo := repositories.NewDailyRepository(docStore)
	sensorRepo := repositories.NewSensorRepository(docStore)
	userRepo := repositories.NewUserRepository(docStore)

	// Batch and daily writers share one lock table so a manual update and a
	// backfill can never interleave on the same batch.
	batchLocks := locks.NewKeyedMutex()

	// Initialize services
	dailyService := services.NewDailyService(batchRepo, dailyRepo, historyRepo, batchLocks)
	batchService := services.NewBatchService(batchRepo, historyRepo, dailyRepo, dailyService, batchLocks)
	sensorService := services.NewSensorService(sensorRepo)
	reportService := services.NewReportService(batchService, dailyService, sensorService)
	authService := services.NewAuthService(userRepo, jwtManager)

	// Live readings hub. Alerts are banded on the youngest hatched batch so
	// a brooder-age batch tightens the thresholds for the whole shed.
	hub := realtime.NewHub(func() int {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		batches, err := batchService.List(ctx)
		if err != nil {
			return 22
		}
		age := -1
		for _, b := range batches {
			hatch, err := timeutil.ParseDate(b.HatchDate)
			if err != nil {
				continue
			}
			if a := timeutil.AgeInDays(hatch, timeutil.Now()); a >= 0 && (age == -1 || a < age) {
				age = a
			}
		}
		if age == -1 {
			return 22
		}
		return age
	})
	if cfg.Notify.Phone != "" {
		var provider notify.Provider
		if cfg.Notify.APIKey != "" {
			provider = notify.NewWhatsAppService(cfg.Notify.APIKey, cfg.Notify.CampaignName)
		} else {
			log.Println("WARNING: WHATSAPP_API_KEY not set, alerts will only print to logs")
			provider = notify.NewMockService()
		}
		hub.SetNotifier(notify.NewNotifier(provider, cfg.Notify.Phone))
	}
	go hub.Run()

	// Initialize middleware and handlers
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, userRepo, cfg.Ingest.APIKey)
	corsMiddleware := middleware.NewCORS(cfg)

	authHandler := handlers.NewAuthHandler(authService)
	batchHandler := handlers.NewBatchHandler(batchService)
	dailyHandler := handlers.NewDailyHandler(dailyService)
	sensorHandler := handlers.NewSensorHandler(sensorService, batchService, hub)
	reportHandler := handlers.NewReportHandler(reportService)
	healthHandler := handlers.NewHealthHandler(healthChecker)

	var backupper *backup.Backupper
	if cfg.Backup.Enabled {
		backupper = backup.NewBackupper(cfg, docStore)
	}
	backupHandler := handlers.NewBackupHandler(backupper)

	router := h.NewRouter(authHandler, batchHandler, dailyHandler, sensorHandler, reportHandler, backupHandler, healthHandler, hub, authMiddleware)

	handler := middleware.PanicRecovery(middleware.MetricsMiddleware(middleware.RequestLogging(corsMiddleware(router))))

	// Nightly rollover and catch-up sweep
	sched := scheduler.NewScheduler(batchService, dailyService, cfg.Scheduler.DailySpec, cfg.Scheduler.SweepMaxDays)
	sched.Start()
	defer sched.Stop()

	// Periodic snapshot backups to the configured bucket
	backupCtx, stopBackup := context.WithCancel(context.Background())
	defer stopBackup()
	if backupper != nil {
		go backupper.Start(backupCtx, backupInterval)
	}

	// Start server with graceful shutdown
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server running on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("Server failed to start: %v", err)
	case sig := <-quit:
		log.Printf("Received %s, shutting down...", sig)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
