package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"broiler-backend/internal/cache"
	"broiler-backend/internal/services"
)

const reportCacheTTL = 10 * time.Minute

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(s *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: s}
}

// GetFarmReport serves the aggregate report as JSON.
func (h *ReportHandler) GetFarmReport(w http.ResponseWriter, r *http.Request) {
	key := fmt.Sprintf(cache.ReportKeyFmt, "farm")
	if data, ok := cache.GetCached(r.Context(), key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}

	report, err := h.Service.BuildFarmReport(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	data, err := json.Marshal(report)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	cache.SetCached(r.Context(), key, data, reportCacheTTL)

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// GetAlertSummary serves per-day alert tallies for one batch over a date
// range. Defaults to the last seven days when from/to are omitted.
func (h *ReportHandler) GetAlertSummary(w http.ResponseWriter, r *http.Request) {
	batchID := r.URL.Query().Get("batch")
	if batchID == "" {
		http.Error(w, "batch query parameter is required", http.StatusBadRequest)
		return
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -6)
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			http.Error(w, "from must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			http.Error(w, "to must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		to = parsed
	}

	history, err := h.Service.AlertHistory(r.Context(), batchID, from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"batchId": batchID,
		"days":    history,
	})
}

// GetFarmReportPDF serves the aggregate report as a PDF download.
func (h *ReportHandler) GetFarmReportPDF(w http.ResponseWriter, r *http.Request) {
	data, err := h.Service.FarmReportPDF(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="farm_report.pdf"`)
	w.Write(data)
}

// ExportDaily serves a batch's daily series in the format given by the
// {format} path variable: csv, json or pdf.
func (h *ReportHandler) ExportDaily(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	batchID := vars["id"]
	format := vars["format"]

	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case "csv":
		data, err = h.Service.DailySeriesCSV(r.Context(), batchID)
		contentType = "text/csv"
	case "json":
		data, err = h.Service.DailySeriesJSON(r.Context(), batchID)
		contentType = "application/json"
	case "pdf":
		data, err = h.Service.DailySeriesPDF(r.Context(), batchID)
		contentType = "application/pdf"
	default:
		http.Error(w, "format must be csv, json or pdf", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("daily_%s.%s", batchID, format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(data)
}

// ExportSensors serves all normalized readings as a CSV or JSON download,
// selected by the format query parameter (csv by default).
func (h *ReportHandler) ExportSensors(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case "csv":
		data, err = h.Service.SensorCSV(r.Context())
		contentType = "text/csv"
	case "json":
		data, err = h.Service.SensorJSON(r.Context())
		contentType = "application/json"
	default:
		http.Error(w, "format must be csv or json", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "sensor_data."+format))
	w.Write(data)
}
