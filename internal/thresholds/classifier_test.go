package thresholds

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmmoniaBoundaries(t *testing.T) {
	assert.Equal(t, StatusSafe, Classify(ParamAmmonia, 9.999, 10).Status)
	assert.Equal(t, StatusAtRisk, Classify(ParamAmmonia, 10.0, 10).Status)
	assert.Equal(t, StatusAtRisk, Classify(ParamAmmonia, 25.0, 10).Status)
	assert.Equal(t, StatusDangerous, Classify(ParamAmmonia, 25.001, 10).Status)
}

func TestGasThresholds(t *testing.T) {
	cases := []struct {
		param  string
		value  float64
		status Status
	}{
		{ParamMethane, 1.64, StatusSafe},
		{ParamMethane, 1.65, StatusAtRisk},
		{ParamMethane, 2.5, StatusAtRisk},
		{ParamMethane, 2.51, StatusDangerous},
		{ParamH2S, 0.099, StatusSafe},
		{ParamH2S, 0.1, StatusAtRisk},
		{ParamH2S, 2.0, StatusAtRisk},
		{ParamH2S, 2.1, StatusDangerous},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_%g", tc.param, tc.value), func(t *testing.T) {
			assert.Equal(t, tc.status, Classify(tc.param, tc.value, 5).Status)
		})
	}
}

func TestHumidityBands(t *testing.T) {
	assert.Equal(t, StatusSafe, Classify(ParamHumidity, 50, 0).Status)
	assert.Equal(t, StatusSafe, Classify(ParamHumidity, 70, 0).Status)
	assert.Equal(t, StatusAtRisk, Classify(ParamHumidity, 45, 0).Status)
	assert.Equal(t, StatusAtRisk, Classify(ParamHumidity, 75, 0).Status)
	assert.Equal(t, StatusDangerous, Classify(ParamHumidity, 39.9, 0).Status)
	assert.Equal(t, StatusDangerous, Classify(ParamHumidity, 80.1, 0).Status)
}

func TestTemperatureAgeBands(t *testing.T) {
	cases := []struct {
		age    int
		value  float64
		status Status
	}{
		// Brooding week: safe 32-35, risk margin ±2.
		{0, 33, StatusSafe},
		{7, 32, StatusSafe},
		{7, 30, StatusAtRisk},
		{7, 37, StatusAtRisk},
		{7, 29.9, StatusDangerous},
		{7, 37.1, StatusDangerous},
		// Second week shifts down to 28-30.
		{8, 33, StatusDangerous},
		{8, 29, StatusSafe},
		{14, 26.5, StatusAtRisk},
		// Third week 24-26.
		{15, 25, StatusSafe},
		{21, 22, StatusAtRisk},
		// From day 22 on the band is 18-24 and never shifts again.
		{22, 20, StatusSafe},
		{42, 25, StatusAtRisk},
		{100, 17, StatusAtRisk},
		{100, 15.9, StatusDangerous},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("age%d_%g", tc.age, tc.value), func(t *testing.T) {
			assert.Equal(t, tc.status, Classify(ParamTemperature, tc.value, tc.age).Status)
		})
	}
}

func TestIntensityHasNoUpperRiskBand(t *testing.T) {
	// Below the safe minimum is at risk; above the safe maximum is
	// dangerous immediately.
	assert.Equal(t, StatusSafe, Classify(ParamIntensity, 30, 3).Status)
	assert.Equal(t, StatusAtRisk, Classify(ParamIntensity, 19, 3).Status)
	assert.Equal(t, StatusDangerous, Classify(ParamIntensity, 41, 3).Status)

	assert.Equal(t, StatusSafe, Classify(ParamIntensity, 15, 10).Status)
	assert.Equal(t, StatusSafe, Classify(ParamIntensity, 15, 21).Status)
	assert.Equal(t, StatusSafe, Classify(ParamIntensity, 7, 30).Status)
	assert.Equal(t, StatusDangerous, Classify(ParamIntensity, 11, 30).Status)
}

func TestNegativeAgeClampsToDayZero(t *testing.T) {
	assert.Equal(t, StatusSafe, Classify(ParamTemperature, 33, -2).Status)
	assert.Equal(t, "32°C - 35°C", Classify(ParamTemperature, 33, -2).IdealRange)
}

func TestIdealRangeLabels(t *testing.T) {
	assert.Equal(t, "32°C - 35°C", IdealRange(ParamTemperature, 0))
	assert.Equal(t, "28°C - 30°C", IdealRange(ParamTemperature, 10))
	assert.Equal(t, "24°C - 26°C", IdealRange(ParamTemperature, 18))
	assert.Equal(t, "18°C - 24°C", IdealRange(ParamTemperature, 30))
	assert.Equal(t, "20 - 40 lux", IdealRange(ParamIntensity, 5))
	assert.Equal(t, "10 - 20 lux", IdealRange(ParamIntensity, 14))
	assert.Equal(t, "5 - 10 lux", IdealRange(ParamIntensity, 25))
	assert.Equal(t, "< 10 ppm", IdealRange(ParamAmmonia, 1))
}

func TestGrowthPhase(t *testing.T) {
	assert.Equal(t, PhasePending, GrowthPhase(-1))
	assert.Equal(t, PhaseStarter, GrowthPhase(0))
	assert.Equal(t, PhaseStarter, GrowthPhase(6))
	assert.Equal(t, PhaseGrower, GrowthPhase(7))
	assert.Equal(t, PhaseGrower, GrowthPhase(20))
	assert.Equal(t, PhaseFinisher, GrowthPhase(21))
	assert.Equal(t, PhaseFinisher, GrowthPhase(34))
	assert.Equal(t, PhaseReady, GrowthPhase(35))
}
