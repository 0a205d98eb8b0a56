// Package telemetry reduces raw power logs to (average power, duration,
// energy). The logs come from an external capture tool whose column set
// varies between versions, so columns are discovered heuristically and rows
// are parsed defensively.
package telemetry

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/grxam/Joules-per-Bit/internal/opt"
	"github.com/grxam/Joules-per-Bit/internal/protocol"
)

// Summary is the reduction of one telemetry file. Any metric whose inputs
// could not be recovered stays absent. The chosen column names are kept for
// auditability.
type Summary struct {
	AvgPower opt.Float
	Duration opt.Float
	Energy   opt.Float
	TimeCol  string
	PowerCol string
	Path     string
}

// Filename is the telemetry counterpart of a summary file's identity.
func Filename(runID string, mode protocol.Mode) string {
	return fmt.Sprintf("run_%s_%s.csv", runID, mode)
}

// IdleFilename designates the idle-condition log inside the power dir.
const IdleFilename = "idle.csv"

// Reduce parses one power log. A cell that fails numeric conversion drops
// only that row's value on that axis; a column that cannot be identified
// leaves its whole axis absent. Neither aborts the reduction. Only an
// unreadable file is an error.
func Reduce(path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening power log: %w", err)
	}
	defer f.Close()

	out := &Summary{Path: path}

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing power log %s: %w", path, err)
	}
	if len(rows) == 0 {
		return out, nil
	}

	headers := rows[0]
	timeIdx := -1
	if col, ok := TimeRules.Pick(headers); ok {
		out.TimeCol = col
		timeIdx = headerIndex(headers, col)
	}
	powerIdx := -1
	if col, ok := PowerRules.Pick(headers); ok {
		out.PowerCol = col
		powerIdx = headerIndex(headers, col)
	}

	var times, powers []float64
	for _, row := range rows[1:] {
		if v, ok := parseCell(row, timeIdx); ok {
			times = append(times, v)
		}
		if v, ok := parseCell(row, powerIdx); ok {
			powers = append(powers, v)
		}
	}

	if len(powers) > 0 {
		out.AvgPower = opt.Some(mean(powers))
	}
	if len(times) >= 2 {
		out.Duration = opt.Some(times[len(times)-1] - times[0])
	}
	if len(times) >= 2 && len(powers) >= 2 {
		out.Energy = opt.Some(integrate(times, powers))
	}

	// Without paired samples, fall back to avg power times duration.
	if !out.Energy.Present() {
		out.Energy = opt.Mul(out.AvgPower, out.Duration)
	}
	return out, nil
}

// integrate accumulates power[i]·dt over adjacent paired samples, a
// rectangle estimate using each interval's later sample. Downstream
// comparisons depend on this exact estimator; do not swap in trapezoids.
// Non-monotonic or duplicate timestamps contribute zero, never negative
// energy.
func integrate(times, powers []float64) float64 {
	n := len(times)
	if len(powers) < n {
		n = len(powers)
	}
	var energy float64
	for i := 1; i < n; i++ {
		dt := times[i] - times[i-1]
		if dt > 0 {
			energy += powers[i] * dt
		}
	}
	return energy
}

func parseCell(row []string, idx int) (float64, bool) {
	if idx < 0 || idx >= len(row) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func headerIndex(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
