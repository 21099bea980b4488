package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"broiler-backend/internal/cache"
	"broiler-backend/internal/metrics"
	"broiler-backend/internal/models"
	"broiler-backend/internal/services"
)

const batchCacheTTL = 5 * time.Minute

type BatchHandler struct {
	Service *services.BatchService
}

func NewBatchHandler(s *services.BatchService) *BatchHandler {
	return &BatchHandler{Service: s}
}

func (h *BatchHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	if data, ok := cache.GetCached(r.Context(), cache.BatchListKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}

	batches, err := h.Service.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	// Ensure we return empty array instead of null
	if batches == nil {
		batches = []*models.Batch{}
	}

	data, err := json.Marshal(batches)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	cache.SetCached(r.Context(), cache.BatchListKey, data, batchCacheTTL)

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (h *BatchHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["id"]
	key := fmt.Sprintf(cache.BatchKeyFmt, batchID)

	if data, ok := cache.GetCached(r.Context(), key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}

	batch, err := h.Service.Get(r.Context(), batchID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	data, err := json.Marshal(batch)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	cache.SetCached(r.Context(), key, data, batchCacheTTL)

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (h *BatchHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	batch, err := h.Service.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	cache.InvalidateBatchCaches(r.Context(), batch.ID)
	metrics.BatchMutationsTotal.WithLabelValues("create").Inc()

	writeJSON(w, http.StatusCreated, batch)
}

func (h *BatchHandler) UpdateBatch(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["id"]

	var req models.UpdateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	batch, err := h.Service.Update(r.Context(), batchID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	cache.InvalidateBatchCaches(r.Context(), batchID)
	metrics.BatchMutationsTotal.WithLabelValues("update").Inc()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(batch)
}

func (h *BatchHandler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["id"]

	if err := h.Service.Delete(r.Context(), batchID); err != nil {
		writeServiceError(w, err)
		return
	}

	cache.InvalidateBatchCaches(r.Context(), batchID)
	metrics.BatchMutationsTotal.WithLabelValues("delete").Inc()

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": batchID})
}

func (h *BatchHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["id"]
	key := fmt.Sprintf(cache.HistoryKeyFmt, batchID)

	if data, ok := cache.GetCached(r.Context(), key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}

	entries, err := h.Service.History(r.Context(), batchID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []*models.HistoryEntry{}
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
