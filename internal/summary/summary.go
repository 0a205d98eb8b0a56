// Package summary reads and writes per-run summary records. The filename
// carries the run identity: summary_<run_id>_<mode>.csv.
package summary

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/grxam/Joules-per-Bit/internal/opt"
	"github.com/grxam/Joules-per-Bit/internal/protocol"
)

// Direction holds one direction's fields. Anything optional stays absent
// when that direction did not run.
type Direction struct {
	HBefore        opt.Float
	HAfter         opt.Float
	Delta          opt.Float
	ForcedToken    string
	TopTokenAfter  string
	TopTokenPAfter opt.Float
}

type Record struct {
	RunID       string
	Mode        protocol.Mode
	A2B         Direction
	B2A         Direction
	OrderEffect opt.Float
	// Path is the source file, set by Read.
	Path string
}

var filenameRE = regexp.MustCompile(`^summary_(.+?)_(A2B|B2A|BOTH)\.csv$`)

func Filename(runID string, mode protocol.Mode) string {
	return fmt.Sprintf("summary_%s_%s.csv", runID, mode)
}

// ParseFilename recovers the run identity from a summary filename.
func ParseFilename(name string) (runID string, mode protocol.Mode, err error) {
	m := filenameRE.FindStringSubmatch(name)
	if m == nil {
		return "", "", fmt.Errorf("unexpected summary filename: %s", name)
	}
	return m[1], protocol.Mode(m[2]), nil
}

var columns = []string{
	"run_id", "mode",

	"H_before_A2B_bits", "H_after_A2B_bits", "delta_H_A2B_bits", "forced_token_A2B",
	"top_token_after_A2B", "top_token_p_after_A2B",

	"H_before_B2A_bits", "H_after_B2A_bits", "delta_H_B2A_bits", "forced_token_B2A",
	"top_token_after_B2A", "top_token_p_after_B2A",

	"order_effect_bits",
}

// FromRun converts a protocol result into a summary record.
func FromRun(res *protocol.RunResult) *Record {
	rec := &Record{
		RunID:       res.RunID,
		Mode:        res.Mode,
		A2B:         fromDirection(res.A2B),
		B2A:         fromDirection(res.B2A),
		OrderEffect: res.OrderEffect,
	}
	rec.Normalize()
	return rec
}

func fromDirection(d *protocol.DirectionResult) Direction {
	if d == nil {
		return Direction{}
	}
	out := Direction{
		HBefore:     opt.Some(d.Before.EntropyBits),
		HAfter:      opt.Some(d.After.EntropyBits),
		Delta:       opt.Some(d.Delta),
		ForcedToken: d.ForcedToken,
	}
	// Top candidate after forcing, kept as a quick sanity signal.
	if len(d.After.Ranked) > 0 {
		out.TopTokenAfter = d.After.Ranked[0].Token
		out.TopTokenPAfter = opt.Some(d.After.Ranked[0].Prob)
	}
	return out
}

// Normalize fills order_effect_bits from the stored deltas when it is absent
// and both deltas are present. Idempotent: a present value is left alone.
func (r *Record) Normalize() {
	if r.OrderEffect.Present() {
		return
	}
	r.OrderEffect = opt.Sub(r.A2B.Delta, r.B2A.Delta)
}

// Write stores the record as a header row plus exactly one data row and
// returns the file path.
func Write(dir string, r *Record) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating summary dir: %w", err)
	}
	path := filepath.Join(dir, Filename(r.RunID, r.Mode))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating summary file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	row := []string{
		r.RunID, string(r.Mode),

		r.A2B.HBefore.String(), r.A2B.HAfter.String(), r.A2B.Delta.String(), r.A2B.ForcedToken,
		r.A2B.TopTokenAfter, r.A2B.TopTokenPAfter.String(),

		r.B2A.HBefore.String(), r.B2A.HAfter.String(), r.B2A.Delta.String(), r.B2A.ForcedToken,
		r.B2A.TopTokenAfter, r.B2A.TopTokenPAfter.String(),

		r.OrderEffect.String(),
	}
	if err := w.WriteAll([][]string{columns, row}); err != nil {
		return "", fmt.Errorf("writing summary: %w", err)
	}
	return path, nil
}

// Read parses a summary file. The identity comes from the filename, the
// metrics from the single data row. An empty file or an unparseable numeric
// cell is an error: a corrupted summary is fatal, never skipped.
func Read(path string) (*Record, error) {
	runID, mode, err := ParseFilename(filepath.Base(path))
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening summary: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing summary %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("empty summary file: %s", path)
	}

	cell := cellLookup(rows[0], rows[1])

	rec := &Record{RunID: runID, Mode: mode, Path: path}
	rec.A2B.ForcedToken = cell("forced_token_A2B")
	rec.A2B.TopTokenAfter = cell("top_token_after_A2B")
	rec.B2A.ForcedToken = cell("forced_token_B2A")
	rec.B2A.TopTokenAfter = cell("top_token_after_B2A")

	for _, field := range []struct {
		name string
		dst  *opt.Float
	}{
		{"H_before_A2B_bits", &rec.A2B.HBefore},
		{"H_after_A2B_bits", &rec.A2B.HAfter},
		{"delta_H_A2B_bits", &rec.A2B.Delta},
		{"top_token_p_after_A2B", &rec.A2B.TopTokenPAfter},
		{"H_before_B2A_bits", &rec.B2A.HBefore},
		{"H_after_B2A_bits", &rec.B2A.HAfter},
		{"delta_H_B2A_bits", &rec.B2A.Delta},
		{"top_token_p_after_B2A", &rec.B2A.TopTokenPAfter},
		{"order_effect_bits", &rec.OrderEffect},
	} {
		v, err := opt.Parse(cell(field.name))
		if err != nil {
			return nil, fmt.Errorf("summary %s, column %s: %w", path, field.name, err)
		}
		*field.dst = v
	}

	rec.Normalize()
	return rec, nil
}

// cellLookup gives by-name access to one data row, tolerating missing and
// extra columns.
func cellLookup(header, row []string) func(string) string {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	return func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
}
