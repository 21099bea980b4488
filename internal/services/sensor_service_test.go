package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"broiler-backend/internal/repositories"
	"broiler-backend/internal/store"
)

func newSensorFixture() (*SensorService, *store.MemoryStore) {
	ms := store.NewMemoryStore()
	svc := NewSensorService(repositories.NewSensorRepository(ms))
	svc.now = func() time.Time { return testNow }
	return svc, ms
}

func seedRaw(t *testing.T, ms *store.MemoryStore, seq int, row map[string]any) {
	t.Helper()
	path := fmt.Sprintf("sensor_data/data_ke_%d", seq)
	require.NoError(t, ms.Set(context.Background(), path, row))
}

func TestListCoercesQuotedNumbers(t *testing.T) {
	svc, ms := newSensorFixture()
	seedRaw(t, ms, 1, map[string]any{
		"temperature": "31.5",
		"humidity":    62,
		"ammonia":     "8",
		"ch4":         "2.1",
		"h2s":         "not a number",
		"intensity":   nil,
		"timestamp":   1757500000,
	})

	readings, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, readings, 1)

	r := readings[0]
	assert.Equal(t, 31.5, r.Temperature)
	assert.Equal(t, 62.0, r.Humidity)
	assert.Equal(t, 8.0, r.Ammonia)
	assert.Equal(t, 2.1, r.Methane)
	assert.Equal(t, 0.0, r.H2S)
	assert.Equal(t, 0.0, r.Intensity)
}

func TestListTimestampShapes(t *testing.T) {
	svc, ms := newSensorFixture()

	// Epoch seconds get promoted to millis.
	seedRaw(t, ms, 1, map[string]any{"temperature": 30, "timestamp": 1757500000})
	// Epoch millis pass through.
	seedRaw(t, ms, 2, map[string]any{"temperature": 30, "timestamp": 1757500000123})
	// Wall-clock strings from older firmware, including single-digit fields.
	seedRaw(t, ms, 3, map[string]any{"temperature": 30, "timestamp": "2026-3-5 7:4:5"})
	seedRaw(t, ms, 4, map[string]any{"temperature": 30, "timestamp": "2026-03-05 07:04:05"})
	// Unparseable dash strings fall back to now.
	seedRaw(t, ms, 5, map[string]any{"temperature": 30, "timestamp": "not-a-date"})

	readings, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, readings, 5)

	// Newest first means data_ke_5 leads.
	assert.Equal(t, testNow.UnixMilli(), readings[0].Timestamp.UnixMilli())
	wall := time.Date(2026, 3, 5, 7, 4, 5, 0, time.UTC)
	assert.Equal(t, wall.UnixMilli(), readings[1].Timestamp.UnixMilli())
	assert.Equal(t, wall.UnixMilli(), readings[2].Timestamp.UnixMilli())
	assert.Equal(t, int64(1757500000123), readings[3].Timestamp.UnixMilli())
	assert.Equal(t, int64(1757500000000), readings[4].Timestamp.UnixMilli())
}

func TestListDropsRowsWithoutUsableTimestamp(t *testing.T) {
	svc, ms := newSensorFixture()
	seedRaw(t, ms, 1, map[string]any{"temperature": 30, "timestamp": 0})
	seedRaw(t, ms, 2, map[string]any{"temperature": 30, "timestamp": -5})
	seedRaw(t, ms, 3, map[string]any{"temperature": 30})
	seedRaw(t, ms, 4, map[string]any{"temperature": 31, "timestamp": 1757500000})

	readings, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 31.0, readings[0].Temperature)
}

func TestLatestReturnsNewestOrNil(t *testing.T) {
	svc, ms := newSensorFixture()

	latest, err := svc.Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)

	seedRaw(t, ms, 1, map[string]any{"temperature": 29, "timestamp": 1757500000})
	seedRaw(t, ms, 2, map[string]any{"temperature": 33, "timestamp": 1757500060})

	latest, err = svc.Latest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 33.0, latest.Temperature)
}

func TestIngestAssignsSequenceKeys(t *testing.T) {
	svc, _ := newSensorFixture()
	ctx := context.Background()

	key, err := svc.Ingest(ctx, &IngestReadingRequest{Temperature: 30.5, Methane: 1.2})
	require.NoError(t, err)
	assert.Equal(t, "data_ke_1", key)

	key, err = svc.Ingest(ctx, &IngestReadingRequest{Temperature: 30.6})
	require.NoError(t, err)
	assert.Equal(t, "data_ke_2", key)

	readings, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, 30.6, readings[0].Temperature)
	assert.Equal(t, 1.2, readings[1].Methane)
	assert.Equal(t, testNow.UnixMilli(), readings[1].Timestamp.UnixMilli())
}

func TestIngestNormalizesPushedEpochSeconds(t *testing.T) {
	svc, _ := newSensorFixture()
	ctx := context.Background()

	ts := 1757500000.0
	_, err := svc.Ingest(ctx, &IngestReadingRequest{Temperature: 30, Timestamp: &ts})
	require.NoError(t, err)

	readings, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, int64(1757500000000), readings[0].Timestamp.UnixMilli())
}
