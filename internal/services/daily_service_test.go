package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"broiler-backend/internal/locks"
	"broiler-backend/internal/models"
	"broiler-backend/internal/repositories"
	"broiler-backend/internal/store"
	"broiler-backend/internal/timeutil"
)

// testNow pins the calendar for the backfill walk.
var testNow = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

type fixture struct {
	store   *store.MemoryStore
	batches *BatchService
	daily   *DailyService
}

func newFixture() *fixture {
	ms := store.NewMemoryStore()
	km := locks.NewKeyedMutex()
	batchRepo := repositories.NewBatchRepository(ms)
	dailyRepo := repositories.NewDailyRepository(ms)
	historyRepo := repositories.NewHistoryRepository(ms)

	// The clock starts at testNow and advances one millisecond per read so
	// consecutive history entries never share a timestamp key.
	var mu sync.Mutex
	tick := int64(0)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := testNow.Add(time.Duration(tick) * time.Millisecond)
		tick++
		return t
	}

	daily := NewDailyService(batchRepo, dailyRepo, historyRepo, km)
	daily.now = clock
	batches := NewBatchService(batchRepo, historyRepo, dailyRepo, daily, km)
	batches.now = clock

	return &fixture{store: ms, batches: batches, daily: daily}
}

// seedBatch writes a batch directly, bypassing Create so tests control the
// daily series from a blank slate.
func (f *fixture) seedBatch(t *testing.T, id, hatchDate string, quantity, deaths int) *models.Batch {
	t.Helper()
	batch := &models.Batch{
		ID:          id,
		HatchDate:   hatchDate,
		Quantity:    quantity,
		Deaths:      deaths,
		FeedType:    "starter mash",
		WaterStatus: models.WaterOK,
		CreatedAt:   testNow.UnixMilli(),
		LastUpdated: testNow.UnixMilli(),
	}
	require.NoError(t, f.batches.BatchRepo.Put(context.Background(), batch))
	return batch
}

func TestBackfillFillsWholeRange(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedBatch(t, "BTH-20260305-001", "2026-03-05", 95, 5)

	result, err := f.daily.BackfillRange(ctx, "BTH-20260305-001", 0)
	require.NoError(t, err)
	assert.Equal(t, 11, result.DaysMissing)
	assert.Equal(t, 11, result.DaysWritten)
	assert.Equal(t, 0, result.PreHatchRemoved)

	entries, err := f.daily.List(ctx, "BTH-20260305-001")
	require.NoError(t, err)
	require.Len(t, entries, 11)

	assert.Equal(t, "2026-03-05", entries[0].DateString)
	assert.Equal(t, "2026-03-15", entries[10].DateString)
	hatch, _ := timeutil.ParseDate("2026-03-05")
	assert.Equal(t, hatch.UnixMilli(), entries[0].Timestamp)
	for i, entry := range entries {
		assert.Equal(t, i, entry.AgeInDays)
		assert.True(t, entry.AutoBackfilled)
		assert.False(t, entry.ManualUpdate)
		assert.Equal(t, 95, entry.Quantity)
	}
}

func TestBackfillIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedBatch(t, "BTH-20260310-001", "2026-03-10", 200, 0)

	first, err := f.daily.BackfillRange(ctx, "BTH-20260310-001", 0)
	require.NoError(t, err)
	assert.Equal(t, 6, first.DaysWritten)

	second, err := f.daily.BackfillRange(ctx, "BTH-20260310-001", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, second.DaysMissing)
	assert.Equal(t, 0, second.DaysWritten)

	entries, err := f.daily.List(ctx, "BTH-20260310-001")
	require.NoError(t, err)
	assert.Len(t, entries, 6)
}

func TestBackfillFutureHatchIsNoOp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedBatch(t, "BTH-20260401-001", "2026-04-01", 500, 0)

	result, err := f.daily.BackfillRange(ctx, "BTH-20260401-001", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, result.DaysWritten)

	entries, err := f.daily.List(ctx, "BTH-20260401-001")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBackfillNeverTouchesExistingEntries(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedBatch(t, "BTH-20260305-001", "2026-03-05", 95, 5)

	manual := &models.DailyEntry{
		DateString:   "2026-03-10",
		Timestamp:    time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC).UnixMilli(),
		AgeInDays:    5,
		Quantity:     80,
		Deaths:       20,
		ManualUpdate: true,
	}
	require.NoError(t, f.daily.DailyRepo.Put(ctx, "BTH-20260305-001", manual))

	// A same-day history edit must not leak into later days either: the
	// recorded entry wins outright and the walk keeps its running state.
	edit := &models.HistoryEntry{
		Timestamp: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC).UnixMilli(),
		Current:   models.BatchSnapshot{Quantity: 70, Deaths: 30, WaterStatus: models.WaterOK},
	}
	require.NoError(t, f.daily.HistoryRepo.Append(ctx, "BTH-20260305-001", edit))

	result, err := f.daily.BackfillRange(ctx, "BTH-20260305-001", 0)
	require.NoError(t, err)
	assert.Equal(t, 10, result.DaysWritten)

	entries, err := f.daily.List(ctx, "BTH-20260305-001")
	require.NoError(t, err)
	require.Len(t, entries, 11)

	byDate := make(map[string]*models.DailyEntry, len(entries))
	for _, e := range entries {
		byDate[e.DateString] = e
	}
	assert.Equal(t, 80, byDate["2026-03-10"].Quantity)
	assert.True(t, byDate["2026-03-10"].ManualUpdate)
	assert.Equal(t, 95, byDate["2026-03-11"].Quantity)
	assert.Equal(t, 95, byDate["2026-03-15"].Quantity)
}

func TestBackfillReplaysLatestHistoryPerDay(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedBatch(t, "BTH-20260305-001", "2026-03-05", 95, 5)

	morning := &models.HistoryEntry{
		Timestamp: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC).UnixMilli(),
		Current:   models.BatchSnapshot{Quantity: 90, Deaths: 10, WaterStatus: models.WaterOK},
	}
	evening := &models.HistoryEntry{
		Timestamp: time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC).UnixMilli(),
		Current:   models.BatchSnapshot{Quantity: 88, Deaths: 12, WaterStatus: models.WaterOK},
	}
	require.NoError(t, f.daily.HistoryRepo.Append(ctx, "BTH-20260305-001", morning))
	require.NoError(t, f.daily.HistoryRepo.Append(ctx, "BTH-20260305-001", evening))

	_, err := f.daily.BackfillRange(ctx, "BTH-20260305-001", 0)
	require.NoError(t, err)

	entries, err := f.daily.List(ctx, "BTH-20260305-001")
	require.NoError(t, err)

	byDate := make(map[string]*models.DailyEntry, len(entries))
	for _, e := range entries {
		byDate[e.DateString] = e
	}
	// Before the edit day the walk carries the live batch state; from the
	// edit day on it carries the day's last recorded state.
	assert.Equal(t, 95, byDate["2026-03-09"].Quantity)
	assert.Equal(t, 88, byDate["2026-03-10"].Quantity)
	assert.Equal(t, 12, byDate["2026-03-10"].Deaths)
	assert.Equal(t, 88, byDate["2026-03-15"].Quantity)
}

func TestBackfillRemovesPreHatchEntries(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedBatch(t, "BTH-20260312-001", "2026-03-12", 300, 0)

	for _, date := range []string{"2026-03-08", "2026-03-09"} {
		stale := &models.DailyEntry{DateString: date, Quantity: 300}
		require.NoError(t, f.daily.DailyRepo.Put(ctx, "BTH-20260312-001", stale))
	}

	result, err := f.daily.BackfillRange(ctx, "BTH-20260312-001", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.PreHatchRemoved)
	assert.Equal(t, 4, result.DaysWritten)

	entries, err := f.daily.List(ctx, "BTH-20260312-001")
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "2026-03-12", entries[0].DateString)
}

func TestBackfillWindowBoundsByMaxDays(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedBatch(t, "BTH-20260201-001", "2026-02-01", 1000, 40)

	result, err := f.daily.BackfillRange(ctx, "BTH-20260201-001", 3)
	require.NoError(t, err)
	assert.Equal(t, 4, result.DaysWritten)

	entries, err := f.daily.List(ctx, "BTH-20260201-001")
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "2026-03-12", entries[0].DateString)
	assert.Equal(t, 39, entries[0].AgeInDays)
	assert.Equal(t, "2026-03-15", entries[3].DateString)
	assert.Equal(t, 42, entries[3].AgeInDays)
}

func TestEnsureTodayEntry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedBatch(t, "BTH-20260314-001", "2026-03-14", 150, 2)

	entry, err := f.daily.EnsureTodayEntry(ctx, "BTH-20260314-001")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-15", entry.DateString)
	assert.Equal(t, 1, entry.AgeInDays)
	assert.Equal(t, 150, entry.Quantity)
	assert.False(t, entry.ManualUpdate)
	assert.Equal(t, testNow.UnixMilli(), entry.Timestamp)

	// The batch changes, but today already has an entry: ensure keeps it.
	batch, err := f.batches.Get(ctx, "BTH-20260314-001")
	require.NoError(t, err)
	batch.Quantity = 140
	require.NoError(t, f.batches.BatchRepo.Put(ctx, batch))

	again, err := f.daily.EnsureTodayEntry(ctx, "BTH-20260314-001")
	require.NoError(t, err)
	assert.Equal(t, 150, again.Quantity)

	// Force overwrites and marks the entry manual.
	forced, err := f.daily.ForceTodayEntry(ctx, "BTH-20260314-001")
	require.NoError(t, err)
	assert.Equal(t, 140, forced.Quantity)
	assert.True(t, forced.ManualUpdate)
}

func TestBackfillAllSkipsBadBatches(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedBatch(t, "BTH-20260310-001", "2026-03-10", 100, 0)
	f.seedBatch(t, "BTH-20260311-001", "not-a-date", 100, 0)

	results, err := f.daily.BackfillAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "BTH-20260310-001", results[0].BatchID)
	assert.Equal(t, 6, results[0].DaysWritten)
}
