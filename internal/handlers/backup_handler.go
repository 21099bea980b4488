package handlers

import (
	"net/http"

	"broiler-backend/internal/backup"
)

// BackupHandler triggers on-demand snapshots. Backupper is nil when backup
// credentials are not configured.
type BackupHandler struct {
	Backupper *backup.Backupper
}

func NewBackupHandler(b *backup.Backupper) *BackupHandler {
	return &BackupHandler{Backupper: b}
}

// TriggerBackup runs a snapshot upload immediately, outside the schedule.
func (h *BackupHandler) TriggerBackup(w http.ResponseWriter, r *http.Request) {
	if h.Backupper == nil {
		http.Error(w, "backup is not configured", http.StatusServiceUnavailable)
		return
	}

	key, err := h.Backupper.RunOnce(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"key":    key,
	})
}
