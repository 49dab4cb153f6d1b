package telemetry

import "time"

// Reading is a single solar-panel sensor sample.
type Reading struct {
	Voltage     float64 `json:"voltage"`      // volts
	Temperature float64 `json:"temperature"`  // °C
	PowerOutput float64 `json:"power_output"` // watts
}

// TimedReading is a Reading with a capture timestamp, produced by the
// time-series simulator.
type TimedReading struct {
	Timestamp time.Time `json:"timestamp"`
	Reading
}

// Features returns the reading as a feature vector in the fixed column
// order [voltage, temperature, power_output] expected by the detector.
func (r Reading) Features() []float64 {
	return []float64{r.Voltage, r.Temperature, r.PowerOutput}
}

// Expected physical ranges for incoming readings. Values outside these
// ranges are logged but not rejected.
const (
	MinVoltage     = 8.0
	MaxVoltage     = 14.0
	MinTemperature = 15.0
	MaxTemperature = 50.0
	MinPower       = 0.0
	MaxPower       = 300.0
)

// InRange reports whether each field of the reading falls inside its
// expected physical range.
func (r Reading) InRange() (voltageOK, temperatureOK, powerOK bool) {
	voltageOK = r.Voltage >= MinVoltage && r.Voltage <= MaxVoltage
	temperatureOK = r.Temperature >= MinTemperature && r.Temperature <= MaxTemperature
	powerOK = r.PowerOutput >= MinPower && r.PowerOutput <= MaxPower
	return
}
