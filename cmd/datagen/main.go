package main

// Package main generates a synthetic telemetry dataset and writes it
// to CSV for inspection, documentation, and offline analysis.
//
// Usage:
//
//	datagen -n 10000 -seed 42 -out training_data.csv
//	datagen -timeseries -days 7 -out week.csv

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/solarsentinel/sentinel-ai/internal/telemetry"
)

func main() {
	var (
		n          = flag.Int("n", 10000, "number of samples")
		seed       = flag.Int64("seed", 42, "random seed")
		out        = flag.String("out", "training_data.csv", "output CSV path")
		labeled    = flag.Bool("labeled", false, "include the generating regime as a column")
		timeseries = flag.Bool("timeseries", false, "generate a day-cycle time series instead of i.i.d. samples")
		days       = flag.Int("days", 1, "days of time series (with -timeseries)")
	)
	flag.Parse()

	if err := run(*n, *seed, *out, *labeled, *timeseries, *days); err != nil {
		fmt.Fprintf(os.Stderr, "datagen: %v\n", err)
		os.Exit(1)
	}
}

func run(n int, seed int64, out string, labeled, timeseries bool, days int) error {
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	var rows int
	switch {
	case timeseries:
		rows, err = writeTimeSeries(w, days, seed)
	case labeled:
		rows, err = writeLabeled(w, n, seed)
	default:
		rows, err = writeReadings(w, n, seed)
	}
	if err != nil {
		return err
	}
	if err := flush(w); err != nil {
		return err
	}

	fmt.Printf("wrote %d rows to %s\n", rows, out)
	return nil
}

func writeReadings(w *csv.Writer, n int, seed int64) (int, error) {
	if err := w.Write([]string{"voltage", "temperature", "power_output"}); err != nil {
		return 0, err
	}
	readings := telemetry.Generate(n, seed)
	for _, r := range readings {
		if err := w.Write(readingRow(r)); err != nil {
			return 0, err
		}
	}
	return len(readings), nil
}

func writeLabeled(w *csv.Writer, n int, seed int64) (int, error) {
	if err := w.Write([]string{"voltage", "temperature", "power_output", "regime"}); err != nil {
		return 0, err
	}
	readings, regimes := telemetry.GenerateLabeled(n, seed)
	for i, r := range readings {
		row := append(readingRow(r), string(regimes[i]))
		if err := w.Write(row); err != nil {
			return 0, err
		}
	}
	return len(readings), nil
}

func writeTimeSeries(w *csv.Writer, days int, seed int64) (int, error) {
	if err := w.Write([]string{"timestamp", "voltage", "temperature", "power_output"}); err != nil {
		return 0, err
	}
	series := telemetry.GenerateTimeSeries(days, seed, time.Now().UTC().Truncate(24*time.Hour))
	for _, tr := range series {
		row := append([]string{tr.Timestamp.Format(time.RFC3339)}, readingRow(tr.Reading)...)
		if err := w.Write(row); err != nil {
			return 0, err
		}
	}
	return len(series), nil
}

func readingRow(r telemetry.Reading) []string {
	return []string{
		strconv.FormatFloat(r.Voltage, 'f', -1, 64),
		strconv.FormatFloat(r.Temperature, 'f', -1, 64),
		strconv.FormatFloat(r.PowerOutput, 'f', -1, 64),
	}
}

func flush(w *csv.Writer) error {
	w.Flush()
	return w.Error()
}
