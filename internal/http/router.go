package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"broiler-backend/internal/handlers"
	"broiler-backend/internal/middleware"
	"broiler-backend/internal/realtime"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	batchHandler *handlers.BatchHandler,
	dailyHandler *handlers.DailyHandler,
	sensorHandler *handlers.SensorHandler,
	reportHandler *handlers.ReportHandler,
	backupHandler *handlers.BackupHandler,
	healthHandler *handlers.HealthHandler,
	hub *realtime.Hub,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	// Public API routes - Authentication
	r.HandleFunc("/auth/setup-status", authHandler.SetupStatus).Methods("GET")
	r.HandleFunc("/auth/setup", authHandler.Setup).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/auth/verify-2fa", authHandler.Verify2FA).Methods("POST")

	// Sensor hub push endpoint - authenticated by API key, not JWT
	r.Handle("/api/sensor/ingest",
		authMiddleware.RequireIngestKey(http.HandlerFunc(sensorHandler.IngestReading))).Methods("POST")

	// Protected API routes - Account
	accountAPI := r.PathPrefix("/api/auth").Subrouter()
	accountAPI.Use(authMiddleware.Authenticate)
	accountAPI.HandleFunc("/me", authHandler.Me).Methods("GET")
	accountAPI.HandleFunc("/2fa/setup", authHandler.SetupTOTP).Methods("POST")
	accountAPI.HandleFunc("/2fa/enable", authHandler.EnableTOTP).Methods("POST")
	accountAPI.HandleFunc("/2fa/disable", authHandler.DisableTOTP).Methods("POST")
	accountAPI.HandleFunc("/change-password", authHandler.ChangePassword).Methods("POST")

	// Protected API routes - Batches (admin only for mutation)
	batchesAPI := r.PathPrefix("/api/batches").Subrouter()
	batchesAPI.Use(authMiddleware.Authenticate)
	batchesAPI.HandleFunc("", batchHandler.ListBatches).Methods("GET")
	batchesAPI.HandleFunc("", authMiddleware.RequireRole("admin")(http.HandlerFunc(batchHandler.CreateBatch)).ServeHTTP).Methods("POST")
	batchesAPI.HandleFunc("/{id}", batchHandler.GetBatch).Methods("GET")
	batchesAPI.HandleFunc("/{id}", authMiddleware.RequireRole("admin")(http.HandlerFunc(batchHandler.UpdateBatch)).ServeHTTP).Methods("PUT")
	batchesAPI.HandleFunc("/{id}", authMiddleware.RequireRole("admin")(http.HandlerFunc(batchHandler.DeleteBatch)).ServeHTTP).Methods("DELETE")
	batchesAPI.HandleFunc("/{id}/history", batchHandler.GetHistory).Methods("GET")
	batchesAPI.HandleFunc("/{id}/daily", dailyHandler.ListDaily).Methods("GET")
	batchesAPI.HandleFunc("/{id}/daily/today", dailyHandler.EnsureToday).Methods("POST")
	batchesAPI.HandleFunc("/{id}/backfill", dailyHandler.Backfill).Methods("POST")

	// Protected API routes - Farm-wide backfill sweep
	backfillAPI := r.PathPrefix("/api/backfill").Subrouter()
	backfillAPI.Use(authMiddleware.Authenticate)
	backfillAPI.HandleFunc("", dailyHandler.BackfillAll).Methods("POST")

	// Protected API routes - Sensor readings
	sensorAPI := r.PathPrefix("/api/sensor").Subrouter()
	sensorAPI.Use(authMiddleware.Authenticate)
	sensorAPI.HandleFunc("/readings", sensorHandler.ListReadings).Methods("GET")
	sensorAPI.HandleFunc("/latest", sensorHandler.LatestReading).Methods("GET")

	// Protected API routes - Reports and exports
	reportsAPI := r.PathPrefix("/api/reports").Subrouter()
	reportsAPI.Use(authMiddleware.Authenticate)
	reportsAPI.HandleFunc("/farm", reportHandler.GetFarmReport).Methods("GET")
	reportsAPI.HandleFunc("/farm.pdf", reportHandler.GetFarmReportPDF).Methods("GET")
	reportsAPI.HandleFunc("/summary", reportHandler.GetAlertSummary).Methods("GET")

	exportAPI := r.PathPrefix("/api/export").Subrouter()
	exportAPI.Use(authMiddleware.Authenticate)
	exportAPI.HandleFunc("/batches/{id}/daily/{format}", reportHandler.ExportDaily).Methods("GET")
	exportAPI.HandleFunc("/sensors", reportHandler.ExportSensors).Methods("GET")

	// Admin-only operational endpoints
	adminAPI := r.PathPrefix("/api/admin").Subrouter()
	adminAPI.Use(authMiddleware.Authenticate)
	adminAPI.HandleFunc("/backup", authMiddleware.RequireRole("admin")(http.HandlerFunc(backupHandler.TriggerBackup)).ServeHTTP).Methods("POST")

	// WebSocket stream of live readings and alerts
	r.HandleFunc("/ws", hub.HandleWebSocket)

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
