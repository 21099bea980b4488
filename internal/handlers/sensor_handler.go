package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"broiler-backend/internal/cache"
	"broiler-backend/internal/metrics"
	"broiler-backend/internal/models"
	"broiler-backend/internal/realtime"
	"broiler-backend/internal/services"
	"broiler-backend/internal/timeutil"
)

const sensorCacheTTL = 30 * time.Second

type SensorHandler struct {
	Service *services.SensorService
	Batches *services.BatchService
	Hub     *realtime.Hub
}

func NewSensorHandler(s *services.SensorService, batches *services.BatchService, hub *realtime.Hub) *SensorHandler {
	return &SensorHandler{Service: s, Batches: batches, Hub: hub}
}

func (h *SensorHandler) ListReadings(w http.ResponseWriter, r *http.Request) {
	readings, err := h.Service.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if readings == nil {
		readings = []models.SensorReading{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(readings)
}

// LatestReading returns the newest reading, classified against a batch's
// current age (?batch=) or an explicit ?age=. Defaults to grown-bird
// thresholds.
func (h *SensorHandler) LatestReading(w http.ResponseWriter, r *http.Request) {
	age := 22
	if v := r.URL.Query().Get("batch"); v != "" {
		batch, err := h.Batches.Get(r.Context(), v)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		hatch, err := timeutil.ParseDate(batch.HatchDate)
		if err != nil {
			http.Error(w, "batch has an invalid hatch date", http.StatusInternalServerError)
			return
		}
		age = timeutil.AgeInDays(hatch, timeutil.Now())
	} else if v := r.URL.Query().Get("age"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "age must be a non-negative integer", http.StatusBadRequest)
			return
		}
		age = n
	}

	if data, ok := cache.GetCached(r.Context(), cache.SensorLatestKey+":"+strconv.Itoa(age)); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}

	reading, err := h.Service.Latest(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if reading == nil {
		http.Error(w, "No readings recorded", http.StatusNotFound)
		return
	}

	payload := map[string]any{
		"reading":        reading,
		"ageInDays":      age,
		"classification": h.Service.Classify(reading, age),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	cache.SetCached(r.Context(), cache.SensorLatestKey+":"+strconv.Itoa(age), data, sensorCacheTTL)

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// IngestReading accepts a push from the sensor hub and fans it out to
// connected dashboard clients.
func (h *SensorHandler) IngestReading(w http.ResponseWriter, r *http.Request) {
	var req services.IngestReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	key, err := h.Service.Ingest(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	cache.InvalidateSensorCaches(r.Context())
	cache.InvalidatePattern(r.Context(), cache.SensorLatestKey+":*")
	metrics.SensorReadingsIngested.Inc()

	if h.Hub != nil {
		if reading, err := h.Service.Latest(r.Context()); err == nil && reading != nil {
			h.Hub.BroadcastReading(reading)
		}
	}

	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}
