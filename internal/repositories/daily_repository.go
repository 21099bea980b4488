package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"broiler-backend/internal/models"
	"broiler-backend/internal/store"
)

const dailyNode = "batch_daily"

// DailyRepository stores per-day progress entries keyed by batch id and
// calendar date (YYYY-MM-DD).
type DailyRepository struct {
	Store store.DocumentStore
}

func NewDailyRepository(s store.DocumentStore) *DailyRepository {
	return &DailyRepository{Store: s}
}

func dailyPath(batchID, dateString string) string {
	return fmt.Sprintf("%s/%s/%s", dailyNode, batchID, dateString)
}

// Get returns the entry for one day, or store.ErrNotFound.
func (r *DailyRepository) Get(ctx context.Context, batchID, dateString string) (*models.DailyEntry, error) {
	var entry models.DailyEntry
	if err := r.Store.Get(ctx, dailyPath(batchID, dateString), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Exists reports whether an entry is already recorded for the given day.
func (r *DailyRepository) Exists(ctx context.Context, batchID, dateString string) (bool, error) {
	_, err := r.Get(ctx, batchID, dateString)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (r *DailyRepository) Put(ctx context.Context, batchID string, entry *models.DailyEntry) error {
	return r.Store.Set(ctx, dailyPath(batchID, entry.DateString), entry)
}

func (r *DailyRepository) Delete(ctx context.Context, batchID, dateString string) error {
	return r.Store.Delete(ctx, dailyPath(batchID, dateString))
}

// List returns every recorded entry of a batch keyed by date string.
func (r *DailyRepository) List(ctx context.Context, batchID string) (map[string]*models.DailyEntry, error) {
	children, err := r.Store.List(ctx, dailyNode+"/"+batchID)
	if err != nil {
		return nil, fmt.Errorf("list daily entries for %s: %w", batchID, err)
	}

	entries := make(map[string]*models.DailyEntry, len(children))
	for date, raw := range children {
		var entry models.DailyEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("decode daily entry %s/%s: %w", batchID, date, err)
		}
		entries[date] = &entry
	}
	return entries, nil
}

// ListAscending returns a batch's entries ordered oldest to newest.
// Date strings are zero-padded so lexical order is chronological order.
func (r *DailyRepository) ListAscending(ctx context.Context, batchID string) ([]*models.DailyEntry, error) {
	byDate, err := r.List(ctx, batchID)
	if err != nil {
		return nil, err
	}
	entries := make([]*models.DailyEntry, 0, len(byDate))
	for _, entry := range byDate {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].DateString < entries[j].DateString
	})
	return entries, nil
}

// DeleteAll removes every daily entry of a batch (cascade on batch delete).
func (r *DailyRepository) DeleteAll(ctx context.Context, batchID string) error {
	byDate, err := r.List(ctx, batchID)
	if err != nil {
		return err
	}
	for date := range byDate {
		if err := r.Delete(ctx, batchID, date); err != nil {
			return err
		}
	}
	return nil
}
