package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"broiler-backend/internal/models"
)

func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestCreateValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cases := []struct {
		name string
		req  *models.CreateBatchRequest
	}{
		{"missing hatch date", &models.CreateBatchRequest{Quantity: 100}},
		{"malformed hatch date", &models.CreateBatchRequest{HatchDate: "05/03/2026", Quantity: 100}},
		{"zero quantity", &models.CreateBatchRequest{HatchDate: "2026-03-05"}},
		{"negative deaths", &models.CreateBatchRequest{HatchDate: "2026-03-05", Quantity: 100, Deaths: -1}},
		{"bad water status", &models.CreateBatchRequest{HatchDate: "2026-03-05", Quantity: 100, WaterStatus: "MAYBE"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.batches.Create(ctx, tc.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Id generation stamps the real current date.
	prefix := fmt.Sprintf("BTH-%s-", time.Now().UTC().Format("20060102"))

	first, err := f.batches.Create(ctx, &models.CreateBatchRequest{HatchDate: "2026-03-12", Quantity: 250})
	require.NoError(t, err)
	assert.Equal(t, prefix+"001", first.ID)
	assert.Equal(t, models.WaterOK, first.WaterStatus)

	second, err := f.batches.Create(ctx, &models.CreateBatchRequest{HatchDate: "2026-03-13", Quantity: 300})
	require.NoError(t, err)
	assert.Equal(t, prefix+"002", second.ID)
}

func TestCreateSeedsDailySeries(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	batch, err := f.batches.Create(ctx, &models.CreateBatchRequest{HatchDate: "2026-03-12", Quantity: 250})
	require.NoError(t, err)

	entries, err := f.daily.List(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "2026-03-12", entries[0].DateString)
	assert.Equal(t, "2026-03-15", entries[3].DateString)
}

func TestUpdateAlwaysAppendsHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedBatch(t, "BTH-20260305-001", "2026-03-05", 100, 0)

	// An edit with no effective change still lands in the log.
	_, err := f.batches.Update(ctx, "BTH-20260305-001", &models.UpdateBatchRequest{})
	require.NoError(t, err)

	_, err = f.batches.Update(ctx, "BTH-20260305-001", &models.UpdateBatchRequest{
		FeedAmount: floatPtr(12.5),
		Notes:      strPtr("switched to grower feed"),
	})
	require.NoError(t, err)

	history, err := f.batches.History(ctx, "BTH-20260305-001")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "switched to grower feed", history[0].ChangeNote)
	assert.Equal(t, "Update rutin", history[1].ChangeNote)
	assert.Equal(t, 12.5, history[0].Current.FeedAmount)
	assert.Equal(t, 0.0, history[0].Previous.FeedAmount)
}

func TestUpdateDeathsAdoptsComputedQuantity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedBatch(t, "BTH-20260305-001", "2026-03-05", 95, 5)

	updated, err := f.batches.Update(ctx, "BTH-20260305-001", &models.UpdateBatchRequest{
		Deaths: intPtr(8),
	})
	require.NoError(t, err)
	assert.Equal(t, 8, updated.Deaths)
	assert.Equal(t, 92, updated.Quantity)
}

func TestUpdateQuantityConflict(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedBatch(t, "BTH-20260305-001", "2026-03-05", 95, 5)

	_, err := f.batches.Update(ctx, "BTH-20260305-001", &models.UpdateBatchRequest{
		Deaths:   intPtr(8),
		Quantity: intPtr(90),
	})
	var conflict *QuantityConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 90, conflict.Given)
	assert.Equal(t, 92, conflict.Expected)

	// Rejected edits leave the batch untouched.
	batch, err := f.batches.Get(ctx, "BTH-20260305-001")
	require.NoError(t, err)
	assert.Equal(t, 95, batch.Quantity)
	assert.Equal(t, 5, batch.Deaths)

	updated, err := f.batches.Update(ctx, "BTH-20260305-001", &models.UpdateBatchRequest{
		Deaths:             intPtr(8),
		Quantity:           intPtr(90),
		QuantityResolution: models.ResolutionUseComputed,
	})
	require.NoError(t, err)
	assert.Equal(t, 92, updated.Quantity)
}

func TestUpdateKeepSubmittedResolution(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedBatch(t, "BTH-20260305-001", "2026-03-05", 95, 5)

	updated, err := f.batches.Update(ctx, "BTH-20260305-001", &models.UpdateBatchRequest{
		Deaths:             intPtr(8),
		Quantity:           intPtr(90),
		QuantityResolution: models.ResolutionKeepSubmitted,
	})
	require.NoError(t, err)
	assert.Equal(t, 90, updated.Quantity)
	assert.Equal(t, 8, updated.Deaths)
}

func TestUpdateRewritesTodayEntry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedBatch(t, "BTH-20260305-001", "2026-03-05", 95, 5)

	_, err := f.batches.Update(ctx, "BTH-20260305-001", &models.UpdateBatchRequest{
		Deaths: intPtr(8),
	})
	require.NoError(t, err)

	entry, err := f.daily.DailyRepo.Get(ctx, "BTH-20260305-001", "2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, 92, entry.Quantity)
	assert.Equal(t, 8, entry.Deaths)
	assert.True(t, entry.ManualUpdate)
}

func TestDeleteCascades(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedBatch(t, "BTH-20260305-001", "2026-03-05", 95, 5)

	_, err := f.daily.BackfillRange(ctx, "BTH-20260305-001", 0)
	require.NoError(t, err)
	_, err = f.batches.Update(ctx, "BTH-20260305-001", &models.UpdateBatchRequest{Deaths: intPtr(6)})
	require.NoError(t, err)
	require.Greater(t, f.store.Len(), 1)

	require.NoError(t, f.batches.Delete(ctx, "BTH-20260305-001"))
	assert.Equal(t, 0, f.store.Len())
}
