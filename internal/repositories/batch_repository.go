package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"broiler-backend/internal/models"
	"broiler-backend/internal/store"
	"broiler-backend/internal/timeutil"
)

const batchesNode = "batches"

type BatchRepository struct {
	Store store.DocumentStore
}

func NewBatchRepository(s store.DocumentStore) *BatchRepository {
	return &BatchRepository{Store: s}
}

func batchPath(id string) string {
	return batchesNode + "/" + id
}

// NextBatchID produces the next id for today: BTH-YYYYMMDD-NNN where NNN is a
// 1-based sequence over the ids already carrying today's date prefix. The
// count-then-write is not atomic against the store; callers must hold the
// creation lock.
func (r *BatchRepository) NextBatchID(ctx context.Context) (string, error) {
	dateStr := timeutil.Now().Format("20060102")
	prefix := fmt.Sprintf("BTH-%s-", dateStr)

	children, err := r.Store.List(ctx, batchesNode)
	if err != nil {
		return "", fmt.Errorf("list batches: %w", err)
	}

	count := 0
	for id := range children {
		if strings.HasPrefix(id, prefix) {
			count++
		}
	}
	return fmt.Sprintf("%s%03d", prefix, count+1), nil
}

func (r *BatchRepository) Get(ctx context.Context, id string) (*models.Batch, error) {
	var batch models.Batch
	if err := r.Store.Get(ctx, batchPath(id), &batch); err != nil {
		return nil, err
	}
	batch.ID = id
	return &batch, nil
}

func (r *BatchRepository) Put(ctx context.Context, batch *models.Batch) error {
	return r.Store.Set(ctx, batchPath(batch.ID), batch)
}

func (r *BatchRepository) Delete(ctx context.Context, id string) error {
	return r.Store.Delete(ctx, batchPath(id))
}

// List returns every batch, newest hatch date first.
func (r *BatchRepository) List(ctx context.Context) ([]*models.Batch, error) {
	children, err := r.Store.List(ctx, batchesNode)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	batches := make([]*models.Batch, 0, len(children))
	for id, raw := range children {
		var batch models.Batch
		if err := json.Unmarshal(raw, &batch); err != nil {
			return nil, fmt.Errorf("decode batch %s: %w", id, err)
		}
		batch.ID = id
		batches = append(batches, &batch)
	}

	sort.Slice(batches, func(i, j int) bool {
		if batches[i].HatchDate != batches[j].HatchDate {
			return batches[i].HatchDate > batches[j].HatchDate
		}
		return batches[i].ID > batches[j].ID
	})
	return batches, nil
}
