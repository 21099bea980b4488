package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"broiler-backend/internal/models"
	"broiler-backend/internal/store"
)

const historyNode = "batch_history"

// HistoryRepository stores the append-only edit log of each batch, one
// document per mutation keyed by its epoch-millis timestamp.
type HistoryRepository struct {
	Store store.DocumentStore
}

func NewHistoryRepository(s store.DocumentStore) *HistoryRepository {
	return &HistoryRepository{Store: s}
}

func historyPath(batchID string, timestamp int64) string {
	return fmt.Sprintf("%s/%s/%d", historyNode, batchID, timestamp)
}

// Append writes one history entry. Entries are never mutated afterwards.
func (r *HistoryRepository) Append(ctx context.Context, batchID string, entry *models.HistoryEntry) error {
	return r.Store.Set(ctx, historyPath(batchID, entry.Timestamp), entry)
}

// List returns a batch's history, newest first. A batch with no history
// yields an empty slice.
func (r *HistoryRepository) List(ctx context.Context, batchID string) ([]*models.HistoryEntry, error) {
	children, err := r.Store.List(ctx, historyNode+"/"+batchID)
	if err != nil {
		return nil, fmt.Errorf("list history for %s: %w", batchID, err)
	}

	entries := make([]*models.HistoryEntry, 0, len(children))
	for key, raw := range children {
		var entry models.HistoryEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("decode history entry %s/%s: %w", batchID, key, err)
		}
		entries = append(entries, &entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
	return entries, nil
}

// DeleteAll removes every history entry of a batch (cascade on batch delete).
func (r *HistoryRepository) DeleteAll(ctx context.Context, batchID string) error {
	children, err := r.Store.List(ctx, historyNode+"/"+batchID)
	if err != nil {
		return fmt.Errorf("list history for %s: %w", batchID, err)
	}
	for key := range children {
		if err := r.Store.Delete(ctx, historyNode+"/"+batchID+"/"+key); err != nil {
			return err
		}
	}
	return nil
}
