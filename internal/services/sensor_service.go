package services

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"time"

	"broiler-backend/internal/models"
	"broiler-backend/internal/repositories"
	"broiler-backend/internal/thresholds"
	"broiler-backend/internal/timeutil"
)

// SensorService normalizes the rows the coop hardware pushes. The devices
// are not consistent: methane arrives under "ch4", numbers are sometimes
// quoted, and timestamps show up as epoch seconds, epoch millis, or a
// "YYYY-M-D H:M:S" wall-clock string.
type SensorService struct {
	SensorRepo *repositories.SensorRepository

	now func() time.Time
}

func NewSensorService(sensorRepo *repositories.SensorRepository) *SensorService {
	return &SensorService{SensorRepo: sensorRepo, now: timeutil.Now}
}

// IngestReadingRequest is the payload pushed by the sensor hub.
type IngestReadingRequest struct {
	Temperature float64  `json:"temperature"`
	Humidity    float64  `json:"humidity"`
	Ammonia     float64  `json:"ammonia"`
	Methane     float64  `json:"ch4"`
	H2S         float64  `json:"h2s"`
	Intensity   float64  `json:"intensity"`
	Timestamp   *float64 `json:"timestamp,omitempty"` // epoch seconds or millis; defaults to now
}

// rawSensorRow mirrors the stored device shape.
type rawSensorRow struct {
	Temperature flexNumber      `json:"temperature"`
	Humidity    flexNumber      `json:"humidity"`
	Ammonia     flexNumber      `json:"ammonia"`
	CH4         flexNumber      `json:"ch4"`
	H2S         flexNumber      `json:"h2s"`
	Intensity   flexNumber      `json:"intensity"`
	Timestamp   json.RawMessage `json:"timestamp"`
}

// Ingest stores a pushed reading under the next data_ke_N key.
func (s *SensorService) Ingest(ctx context.Context, req *IngestReadingRequest) (string, error) {
	ts := s.now().UnixMilli()
	if req.Timestamp != nil && *req.Timestamp > 0 {
		ts = normalizeEpoch(*req.Timestamp)
	}
	row := map[string]any{
		"temperature": req.Temperature,
		"humidity":    req.Humidity,
		"ammonia":     req.Ammonia,
		"ch4":         req.Methane,
		"h2s":         req.H2S,
		"intensity":   req.Intensity,
		"timestamp":   ts,
	}
	key, err := s.SensorRepo.Put(ctx, row)
	if err != nil {
		return "", err
	}
	log.Printf("[SensorService] Stored reading %s", key)
	return key, nil
}

// List returns all readings normalized and sorted newest first. Rows whose
// timestamp cannot be made sense of are dropped.
func (s *SensorService) List(ctx context.Context) ([]models.SensorReading, error) {
	rows, err := s.SensorRepo.ListRaw(ctx)
	if err != nil {
		return nil, err
	}

	readings := make([]models.SensorReading, 0, len(rows))
	for _, row := range rows {
		reading, ok := s.normalize(row.Key, row.Value)
		if !ok {
			continue
		}
		readings = append(readings, reading)
	}
	for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
		readings[i], readings[j] = readings[j], readings[i]
	}
	return readings, nil
}

// Latest returns the most recent reading, or nil when none are stored.
func (s *SensorService) Latest(ctx context.Context) (*models.SensorReading, error) {
	readings, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, nil
	}
	return &readings[0], nil
}

// Classify runs every parameter of a reading through the age-banded
// classifier, keyed by parameter name.
func (s *SensorService) Classify(reading *models.SensorReading, ageInDays int) map[string]thresholds.Classification {
	return map[string]thresholds.Classification{
		thresholds.ParamTemperature: thresholds.Classify(thresholds.ParamTemperature, reading.Temperature, ageInDays),
		thresholds.ParamHumidity:    thresholds.Classify(thresholds.ParamHumidity, reading.Humidity, ageInDays),
		thresholds.ParamAmmonia:     thresholds.Classify(thresholds.ParamAmmonia, reading.Ammonia, ageInDays),
		thresholds.ParamMethane:     thresholds.Classify(thresholds.ParamMethane, reading.Methane, ageInDays),
		thresholds.ParamH2S:         thresholds.Classify(thresholds.ParamH2S, reading.H2S, ageInDays),
		thresholds.ParamIntensity:   thresholds.Classify(thresholds.ParamIntensity, reading.Intensity, ageInDays),
	}
}

func (s *SensorService) normalize(key string, raw json.RawMessage) (models.SensorReading, bool) {
	var row rawSensorRow
	if err := json.Unmarshal(raw, &row); err != nil {
		log.Printf("[SensorService] Dropping unreadable row %s: %v", key, err)
		return models.SensorReading{}, false
	}

	ts, ok := parseDeviceTimestamp(row.Timestamp, s.now())
	if !ok {
		log.Printf("[SensorService] Dropping row %s with invalid timestamp", key)
		return models.SensorReading{}, false
	}

	return models.SensorReading{
		Temperature: float64(row.Temperature),
		Humidity:    float64(row.Humidity),
		Ammonia:     float64(row.Ammonia),
		Methane:     float64(row.CH4),
		H2S:         float64(row.H2S),
		Intensity:   float64(row.Intensity),
		Timestamp:   time.UnixMilli(ts).UTC(),
	}, true
}

// flexNumber decodes a JSON number or a quoted numeric string; anything else
// reads as zero, matching how the dashboard coerced device values.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexNumber(v)
	return nil
}

// epochMillisFloor separates epoch-seconds from epoch-millis values: any
// numeric timestamp below it is taken to be in seconds.
const epochMillisFloor = 1e10

func normalizeEpoch(v float64) int64 {
	if v < epochMillisFloor {
		return int64(v * 1000)
	}
	return int64(v)
}

// deviceTimeLayouts covers the wall-clock strings older firmware sent.
var deviceTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-1-2 15:4:5",
	time.RFC3339,
	"2006-01-02",
}

// parseDeviceTimestamp turns a raw timestamp value into epoch millis. String
// values containing a dash are wall-clock dates; unparseable strings fall
// back to now (the dashboard did the same), but missing or non-positive
// numeric values drop the row.
func parseDeviceTimestamp(raw json.RawMessage, now time.Time) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if strings.Contains(str, "-") {
			for _, layout := range deviceTimeLayouts {
				if t, err := time.ParseInLocation(layout, str, time.UTC); err == nil {
					return t.UnixMilli(), true
				}
			}
			return now.UnixMilli(), true
		}
		v, err := strconv.ParseFloat(str, 64)
		if err != nil || v <= 0 {
			return 0, false
		}
		return normalizeEpoch(v), true
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err != nil || num <= 0 {
		return 0, false
	}
	return normalizeEpoch(num), true
}
