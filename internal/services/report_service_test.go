package services

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"broiler-backend/internal/repositories"
	"broiler-backend/internal/thresholds"
)

func newReportFixture() (*ReportService, *fixture) {
	f := newFixture()
	sensors := NewSensorService(repositories.NewSensorRepository(f.store))
	sensors.now = func() time.Time { return testNow }
	reports := NewReportService(f.batches, f.daily, sensors)
	reports.now = sensors.now
	return reports, f
}

func TestFarmReportAggregation(t *testing.T) {
	reports, f := newReportFixture()
	ctx := context.Background()

	// Grower-age and brooder-age batches; the younger one sets the
	// threshold band for the whole house.
	f.seedBatch(t, "BTH-20260220-001", "2026-02-20", 950, 50)
	f.seedBatch(t, "BTH-20260312-001", "2026-03-12", 500, 0)

	seedRaw(t, f.store, 1, map[string]any{
		"temperature": 33, "humidity": 60, "ammonia": 5,
		"ch4": 0.5, "h2s": 0.05, "intensity": 25,
		"timestamp": testNow.Unix(),
	})

	report, err := reports.BuildFarmReport(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1450, report.TotalBirds)
	assert.Equal(t, 50, report.TotalDeaths)
	assert.InDelta(t, 100*50.0/1500.0, report.MortalityRate, 0.001)
	assert.Equal(t, 3, report.ReferenceAge)
	require.NotNil(t, report.Latest)
	assert.Equal(t, 33.0, report.Latest.Temperature)

	require.Len(t, report.Batches, 2)
	byID := map[string]BatchSummary{}
	for _, b := range report.Batches {
		byID[b.ID] = b
	}
	assert.Equal(t, 23, byID["BTH-20260220-001"].AgeInDays)
	assert.Equal(t, thresholds.PhaseFinisher, byID["BTH-20260220-001"].Phase)
	assert.Equal(t, thresholds.PhaseStarter, byID["BTH-20260312-001"].Phase)
	assert.InDelta(t, 5.0, byID["BTH-20260220-001"].MortalityRate, 0.001)

	// Day-3 bands: 33C is safe for brooding birds.
	require.Len(t, report.Alerts, len(thresholds.Parameters))
	for _, alerts := range report.Alerts {
		if alerts.Parameter == thresholds.ParamTemperature {
			assert.Equal(t, 1, alerts.Safe)
			assert.Equal(t, 0, alerts.Dangerous)
		}
	}
}

func TestFarmReportDefaultsReferenceAge(t *testing.T) {
	reports, _ := newReportFixture()

	report, err := reports.BuildFarmReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 22, report.ReferenceAge)
	assert.Empty(t, report.Batches)
	assert.Nil(t, report.Latest)
}

func TestAlertHistoryBandsPerDay(t *testing.T) {
	reports, f := newReportFixture()
	ctx := context.Background()

	f.seedBatch(t, "BTH-20260306-001", "2026-03-06", 200, 0)

	// 33C during the brooding week, then the same 33C at day nine when the
	// band has dropped to 28-30C.
	seedRaw(t, f.store, 1, map[string]any{
		"temperature": 33, "humidity": 60,
		"timestamp": time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC).Unix(),
	})
	seedRaw(t, f.store, 2, map[string]any{
		"temperature": 33, "humidity": 60,
		"timestamp": testNow.Unix(),
	})

	from := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	history, err := reports.AlertHistory(ctx, "BTH-20260306-001", from, testNow)
	require.NoError(t, err)
	require.Len(t, history, 4)

	byDate := map[string]DayAlerts{}
	for _, d := range history {
		byDate[d.Date] = d
	}

	day6 := byDate["2026-03-12"]
	assert.Equal(t, 6, day6.AgeInDays)
	assert.Equal(t, 1, day6.Readings)
	require.Len(t, day6.Parameters, len(thresholds.Parameters))
	temp := day6.Parameters[0]
	assert.Equal(t, thresholds.ParamTemperature, temp.Parameter)
	assert.Equal(t, 1, temp.Safe)
	assert.Equal(t, "32°C - 35°C", temp.IdealRange)

	// Gap days still show up, with zero readings but that day's band.
	assert.Equal(t, 0, byDate["2026-03-13"].Readings)
	assert.Equal(t, 0, byDate["2026-03-14"].Readings)

	day9 := byDate["2026-03-15"]
	assert.Equal(t, 9, day9.AgeInDays)
	temp = day9.Parameters[0]
	assert.Equal(t, 1, temp.Dangerous)
	assert.Equal(t, "28°C - 30°C", temp.IdealRange)
}

func TestAlertHistoryRejectsBadRanges(t *testing.T) {
	reports, f := newReportFixture()
	ctx := context.Background()

	f.seedBatch(t, "BTH-20260306-001", "2026-03-06", 200, 0)

	_, err := reports.AlertHistory(ctx, "BTH-20260306-001", testNow, testNow.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = reports.AlertHistory(ctx, "BTH-20260306-001", testNow.AddDate(0, 0, -40), testNow)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDailySeriesCSV(t *testing.T) {
	reports, f := newReportFixture()
	ctx := context.Background()

	f.seedBatch(t, "BTH-20260313-001", "2026-03-13", 120, 3)
	_, err := f.daily.BackfillRange(ctx, "BTH-20260313-001", 0)
	require.NoError(t, err)

	data, err := reports.DailySeriesCSV(ctx, "BTH-20260313-001")
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4) // header + 3 days

	assert.Equal(t, dailyCSVHeader, records[0])
	assert.Equal(t, "2026-03-13", records[1][0])
	assert.Equal(t, "0", records[1][1])
	assert.Equal(t, "120", records[1][2])
	assert.Equal(t, "backfilled", records[1][9])
	assert.Equal(t, "2026-03-15", records[3][0])
	assert.Equal(t, "2", records[3][1])
}
