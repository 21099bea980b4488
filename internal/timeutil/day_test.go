package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-09")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("09/03/2025")
	assert.Error(t, err)
}

func TestStartOfDayNormalizesToUTC(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	// 02:30 on the 10th in WIB is still the 9th in UTC.
	local := time.Date(2025, 3, 10, 2, 30, 0, 0, jakarta)
	assert.Equal(t, "2025-03-09", DateString(StartOfDay(local)))
}

func TestDaysBetween(t *testing.T) {
	hatch := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysBetween(hatch, hatch))
	assert.Equal(t, 10, DaysBetween(hatch, hatch.AddDate(0, 0, 10)))
	assert.Equal(t, -3, DaysBetween(hatch, hatch.AddDate(0, 0, -3)))

	// Intra-day times do not change the whole-day count.
	assert.Equal(t, 1, DaysBetween(hatch.Add(23*time.Hour), hatch.AddDate(0, 0, 1).Add(5*time.Minute)))
}

func TestAgeInDaysClampsToZero(t *testing.T) {
	hatch := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, AgeInDays(hatch, hatch.AddDate(0, 0, -5)))
	assert.Equal(t, 7, AgeInDays(hatch, hatch.AddDate(0, 0, 7)))
}
