package telemetry

import (
	"math"
	"math/rand"
	"time"
)

// Synthetic dataset generation for model training.
//
// Four regimes with fixed value ranges and a fixed population mix:
//
//  1. Normal operation (90%)
//     voltage 11.5-12.5V, temperature 25-35°C, power 180-220W
//  2. Dust accumulation (5%)
//     voltage 10.5-11.5V, temperature 30-38°C, power 120-170W
//  3. Overheating (3%)
//     voltage 10.0-11.0V, temperature 40-48°C, power 100-150W
//  4. Voltage drop / connection issues (2%)
//     voltage 9.0-10.5V, temperature 25-35°C, power 80-130W
//
// This is simulated data. Real-world sensors may exhibit failure
// patterns not captured here.

// Regime identifies one of the synthetic data-generation profiles.
type Regime string

const (
	RegimeNormal      Regime = "normal"
	RegimeDust        Regime = "dust"
	RegimeOverheat    Regime = "overheat"
	RegimeVoltageDrop Regime = "voltage_drop"
)

// regimeRange holds the closed sampling intervals for one regime.
type regimeRange struct {
	voltageLo, voltageHi         float64
	temperatureLo, temperatureHi float64
	powerLo, powerHi             float64
}

var regimeRanges = map[Regime]regimeRange{
	RegimeNormal:      {11.5, 12.5, 25, 35, 180, 220},
	RegimeDust:        {10.5, 11.5, 30, 38, 120, 170},
	RegimeOverheat:    {10.0, 11.0, 40, 48, 100, 150},
	RegimeVoltageDrop: {9.0, 10.5, 25, 35, 80, 130},
}

// RegimeBounds returns the sampling intervals for a regime as
// [voltage, temperature, power] (lo, hi) pairs. Used by tests and the
// datagen tool to document per-regime ranges.
func RegimeBounds(r Regime) (lo, hi Reading) {
	rr := regimeRanges[r]
	lo = Reading{Voltage: rr.voltageLo, Temperature: rr.temperatureLo, PowerOutput: rr.powerLo}
	hi = Reading{Voltage: rr.voltageHi, Temperature: rr.temperatureHi, PowerOutput: rr.powerHi}
	return
}

// RegimeCounts returns the per-regime sample counts for a dataset of n
// readings: floor(0.90n) normal, floor(0.05n) dust, floor(0.03n)
// overheat, and the remainder voltage-drop to absorb rounding.
func RegimeCounts(n int) (normal, dust, overheat, voltageDrop int) {
	normal = int(float64(n) * 0.90)
	dust = int(float64(n) * 0.05)
	overheat = int(float64(n) * 0.03)
	voltageDrop = n - normal - dust - overheat
	return
}

// Generate produces n synthetic readings across the four regimes,
// shuffled into a single unordered collection. Deterministic for a
// given seed.
func Generate(n int, seed int64) []Reading {
	rng := rand.New(rand.NewSource(seed))

	normal, dust, overheat, voltageDrop := RegimeCounts(n)

	readings := make([]Reading, 0, n)
	readings = appendRegime(readings, rng, RegimeNormal, normal)
	readings = appendRegime(readings, rng, RegimeDust, dust)
	readings = appendRegime(readings, rng, RegimeOverheat, overheat)
	readings = appendRegime(readings, rng, RegimeVoltageDrop, voltageDrop)

	rng.Shuffle(len(readings), func(i, j int) {
		readings[i], readings[j] = readings[j], readings[i]
	})

	return readings
}

// GenerateLabeled is Generate with the originating regime retained per
// reading, in generation order (not shuffled). Used by the datagen tool
// and by tests that verify per-regime ranges.
func GenerateLabeled(n int, seed int64) ([]Reading, []Regime) {
	rng := rand.New(rand.NewSource(seed))

	normal, dust, overheat, voltageDrop := RegimeCounts(n)

	readings := make([]Reading, 0, n)
	labels := make([]Regime, 0, n)
	for _, part := range []struct {
		regime Regime
		count  int
	}{
		{RegimeNormal, normal},
		{RegimeDust, dust},
		{RegimeOverheat, overheat},
		{RegimeVoltageDrop, voltageDrop},
	} {
		readings = appendRegime(readings, rng, part.regime, part.count)
		for i := 0; i < part.count; i++ {
			labels = append(labels, part.regime)
		}
	}
	return readings, labels
}

func appendRegime(dst []Reading, rng *rand.Rand, regime Regime, count int) []Reading {
	rr := regimeRanges[regime]
	for i := 0; i < count; i++ {
		dst = append(dst, Reading{
			Voltage:     uniform(rng, rr.voltageLo, rr.voltageHi),
			Temperature: uniform(rng, rr.temperatureLo, rr.temperatureHi),
			PowerOutput: uniform(rng, rr.powerLo, rr.powerHi),
		})
	}
	return dst
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// ReadingsPerDay is one reading every 5 minutes.
const ReadingsPerDay = 288

// GenerateTimeSeries simulates continuous monitoring over days of
// operation: one reading per 5-minute tick, power modulated by a
// daylight sine factor (zero outside 06:00-18:00) and a linear
// degradation factor that reduces amplitude by up to 5% across the
// simulated span. Deterministic for a given seed; the series starts
// days before start.
func GenerateTimeSeries(days int, seed int64, start time.Time) []TimedReading {
	rng := rand.New(rand.NewSource(seed))

	first := start.AddDate(0, 0, -days)
	series := make([]TimedReading, 0, days*ReadingsPerDay)

	for day := 0; day < days; day++ {
		degradation := 1 - (float64(day)/float64(days))*0.05

		for tick := 0; tick < ReadingsPerDay; tick++ {
			ts := first.Add(time.Duration(day)*24*time.Hour + time.Duration(tick)*5*time.Minute)
			hour := ts.Hour()

			daylight := 0.0
			if hour >= 6 && hour <= 18 {
				daylight = math.Max(0, math.Sin(float64(hour-6)*math.Pi/12))
			}

			basePower := 200 * daylight * degradation

			series = append(series, TimedReading{
				Timestamp: ts,
				Reading: Reading{
					Voltage:     uniform(rng, 11.5, 12.5) * degradation,
					Temperature: uniform(rng, 25, 35) + float64(hour-12)*0.5,
					PowerOutput: basePower + uniform(rng, -10, 10),
				},
			})
		}
	}

	return series
}
