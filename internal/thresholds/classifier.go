package thresholds

import "fmt"

// Status is the three-level classification of a sensor value.
type Status string

const (
	StatusSafe      Status = "safe"
	StatusAtRisk    Status = "at_risk"
	StatusDangerous Status = "dangerous"
)

// Parameter names accepted by Classify.
const (
	ParamTemperature = "temperature"
	ParamHumidity    = "humidity"
	ParamAmmonia     = "ammonia"
	ParamMethane     = "methane"
	ParamH2S         = "h2s"
	ParamIntensity   = "intensity"
)

// Parameters lists every classifiable parameter in display order.
var Parameters = []string{
	ParamTemperature,
	ParamHumidity,
	ParamAmmonia,
	ParamMethane,
	ParamH2S,
	ParamIntensity,
}

// Classification is the result of classifying one measured value.
type Classification struct {
	Status     Status `json:"status"`
	IdealRange string `json:"idealRange"`
}

// Classify maps a measured value plus chicken age (whole days since hatch,
// negative ages treated as day zero) to a status and the ideal range label
// for that age. The numeric bands are broiler husbandry constants; do not
// tune them.
func Classify(parameter string, value float64, ageInDays int) Classification {
	if ageInDays < 0 {
		ageInDays = 0
	}
	return Classification{
		Status:     classify(parameter, value, ageInDays),
		IdealRange: IdealRange(parameter, ageInDays),
	}
}

func classify(parameter string, value float64, age int) Status {
	switch parameter {
	case ParamTemperature:
		lo, hi := temperatureBand(age)
		return bandStatus(value, lo, hi, 2)

	case ParamHumidity:
		return bandStatus(value, 50, 70, 10)

	case ParamIntensity:
		lo, hi := intensityBand(age)
		switch {
		case value >= lo && value <= hi:
			return StatusSafe
		case value < lo:
			// No upper risk band exists for light: anything above the
			// safe maximum is dangerous outright.
			return StatusAtRisk
		default:
			return StatusDangerous
		}

	case ParamAmmonia:
		return ceilingStatus(value, 10, 25)

	case ParamMethane:
		return ceilingStatus(value, 1.65, 2.5)

	case ParamH2S:
		return ceilingStatus(value, 0.1, 2)

	default:
		return StatusSafe
	}
}

// bandStatus classifies against a safe [lo, hi] range with a symmetric
// at-risk margin on both sides.
func bandStatus(value, lo, hi, margin float64) Status {
	switch {
	case value >= lo && value <= hi:
		return StatusSafe
	case value >= lo-margin && value < lo:
		return StatusAtRisk
	case value > hi && value <= hi+margin:
		return StatusAtRisk
	default:
		return StatusDangerous
	}
}

// ceilingStatus classifies a gas concentration: safe strictly below the
// warning level, at risk up to and including the danger level, dangerous
// beyond it.
func ceilingStatus(value, warn, danger float64) Status {
	switch {
	case value < warn:
		return StatusSafe
	case value <= danger:
		return StatusAtRisk
	default:
		return StatusDangerous
	}
}

func temperatureBand(age int) (lo, hi float64) {
	switch {
	case age <= 7:
		return 32, 35
	case age <= 14:
		return 28, 30
	case age <= 21:
		return 24, 26
	default:
		return 18, 24
	}
}

func intensityBand(age int) (lo, hi float64) {
	switch {
	case age <= 7:
		return 20, 40
	case age <= 21:
		return 10, 20
	default:
		return 5, 10
	}
}

// IdealRange returns the human-readable ideal range for a parameter at the
// given age.
func IdealRange(parameter string, ageInDays int) string {
	if ageInDays < 0 {
		ageInDays = 0
	}
	switch parameter {
	case ParamTemperature:
		lo, hi := temperatureBand(ageInDays)
		return fmt.Sprintf("%g°C - %g°C", lo, hi)
	case ParamHumidity:
		return "50% - 70%"
	case ParamAmmonia:
		return "< 10 ppm"
	case ParamMethane:
		return "< 1.65 ppm"
	case ParamH2S:
		return "< 0.1 ppm"
	case ParamIntensity:
		lo, hi := intensityBand(ageInDays)
		return fmt.Sprintf("%g - %g lux", lo, hi)
	default:
		return ""
	}
}
