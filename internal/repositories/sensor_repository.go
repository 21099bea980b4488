package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"broiler-backend/internal/store"
)

const sensorNode = "sensor_data"

// SensorRepository reads the raw readings pushed by the coop hardware.
// Keys follow the device convention data_ke_1, data_ke_2, ... and values
// arrive with inconsistent field names and timestamp shapes, so rows are
// surfaced as raw JSON for the sensor service to normalize.
type SensorRepository struct {
	Store store.DocumentStore
}

func NewSensorRepository(s store.DocumentStore) *SensorRepository {
	return &SensorRepository{Store: s}
}

// RawReading is one unparsed device row together with its sequence number.
type RawReading struct {
	Key      string
	Sequence int
	Value    json.RawMessage
}

// ListRaw returns every stored reading ordered by sequence number.
// Keys that don't match the device convention are skipped.
func (r *SensorRepository) ListRaw(ctx context.Context) ([]RawReading, error) {
	children, err := r.Store.List(ctx, sensorNode)
	if err != nil {
		return nil, fmt.Errorf("list sensor data: %w", err)
	}

	readings := make([]RawReading, 0, len(children))
	for key, raw := range children {
		seq, ok := sensorSequence(key)
		if !ok {
			continue
		}
		readings = append(readings, RawReading{Key: key, Sequence: seq, Value: raw})
	}
	sort.Slice(readings, func(i, j int) bool {
		return readings[i].Sequence < readings[j].Sequence
	})
	return readings, nil
}

// Put stores a reading under the next sequence key and returns the key.
func (r *SensorRepository) Put(ctx context.Context, value any) (string, error) {
	existing, err := r.ListRaw(ctx)
	if err != nil {
		return "", err
	}
	next := 1
	if n := len(existing); n > 0 {
		next = existing[n-1].Sequence + 1
	}
	key := fmt.Sprintf("data_ke_%d", next)
	if err := r.Store.Set(ctx, sensorNode+"/"+key, value); err != nil {
		return "", err
	}
	return key, nil
}

func sensorSequence(key string) (int, bool) {
	const prefix = "data_ke_"
	if !strings.HasPrefix(key, prefix) {
		return 0, false
	}
	seq, err := strconv.Atoi(key[len(prefix):])
	if err != nil || seq < 1 {
		return 0, false
	}
	return seq, true
}
