package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"broiler-backend/internal/cache"
	"broiler-backend/internal/metrics"
	"broiler-backend/internal/models"
	"broiler-backend/internal/services"
)

type DailyHandler struct {
	Service *services.DailyService
}

func NewDailyHandler(s *services.DailyService) *DailyHandler {
	return &DailyHandler{Service: s}
}

// ListDaily returns a batch's per-day series, oldest first.
func (h *DailyHandler) ListDaily(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["id"]
	key := fmt.Sprintf(cache.DailyKeyFmt, batchID)

	if data, ok := cache.GetCached(r.Context(), key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}

	entries, err := h.Service.List(r.Context(), batchID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []*models.DailyEntry{}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	cache.SetCached(r.Context(), key, data, batchCacheTTL)

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// EnsureToday writes today's entry if absent; ?force=true overwrites it and
// marks it manual.
func (h *DailyHandler) EnsureToday(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["id"]

	var entry *models.DailyEntry
	var err error
	if r.URL.Query().Get("force") == "true" {
		entry, err = h.Service.ForceTodayEntry(r.Context(), batchID)
	} else {
		entry, err = h.Service.EnsureTodayEntry(r.Context(), batchID)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	cache.InvalidateBatchCaches(r.Context(), batchID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// Backfill reconciles one batch's series. ?maxDays bounds the window; absent
// or zero means the whole range from hatch.
func (h *DailyHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["id"]

	maxDays := 0
	if v := r.URL.Query().Get("maxDays"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "maxDays must be a non-negative integer", http.StatusBadRequest)
			return
		}
		maxDays = n
	}

	result, err := h.Service.BackfillRange(r.Context(), batchID, maxDays)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if result.DaysWritten > 0 || result.PreHatchRemoved > 0 {
		cache.InvalidateBatchCaches(r.Context(), batchID)
	}
	metrics.BackfillDaysWritten.Add(float64(result.DaysWritten))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// BackfillAll sweeps every batch, the same pass the nightly job runs.
func (h *DailyHandler) BackfillAll(w http.ResponseWriter, r *http.Request) {
	maxDays := 0
	if v := r.URL.Query().Get("maxDays"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "maxDays must be a non-negative integer", http.StatusBadRequest)
			return
		}
		maxDays = n
	}

	results, err := h.Service.BackfillAll(r.Context(), maxDays)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	written := 0
	for _, res := range results {
		written += res.DaysWritten
		if res.DaysWritten > 0 || res.PreHatchRemoved > 0 {
			cache.InvalidateBatchCaches(r.Context(), res.BatchID)
		}
	}
	metrics.BackfillDaysWritten.Add(float64(written))

	if results == nil {
		results = []*services.BackfillResult{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}
