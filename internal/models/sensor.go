package models

import "time"

// SensorReading is one environmental measurement of the whole house; readings
// are global to the farm, not owned by any batch.
type SensorReading struct {
	Temperature float64   `json:"temperature"` // °C
	Humidity    float64   `json:"humidity"`    // %
	Ammonia     float64   `json:"ammonia"`     // ppm
	Methane     float64   `json:"methane"`     // ppm, stored as "ch4" by the sensor hub
	H2S         float64   `json:"h2s"`         // ppm
	Intensity   float64   `json:"intensity"`   // lux
	Timestamp   time.Time `json:"timestamp"`
}
