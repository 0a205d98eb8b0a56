// Package aggregate joins per-run summary records with their power telemetry
// and writes one consolidated table. The join key is the (run_id, mode)
// identity both filename patterns encode.
package aggregate

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grxam/Joules-per-Bit/internal/opt"
	"github.com/grxam/Joules-per-Bit/internal/summary"
	"github.com/grxam/Joules-per-Bit/internal/telemetry"
)

// Row is one run's consolidated record: the summary, its power reduction,
// and the idle-adjusted net metrics.
type Row struct {
	Summary     *summary.Record
	Power       *telemetry.Summary
	Idle        opt.Float
	NetAvgPower opt.Float
	NetEnergy   opt.Float
}

var columns = []string{
	"run_id", "mode",
	"idle_avg_power_w",
	"energy_j", "avg_power_w", "duration_s",
	"net_energy_j", "net_avg_power_w",
	"H_before_A2B_bits", "H_after_A2B_bits", "delta_H_A2B_bits",
	"H_before_B2A_bits", "H_after_B2A_bits", "delta_H_B2A_bits",
	"order_effect_bits",
	"summary_file", "powerlog_file", "power_col_used", "time_col_used",
}

// Run discovers all summaries and power logs, joins them and writes the
// consolidated CSV to outPath. It returns the number of rows written.
// A malformed summary filename or an empty summary file aborts the whole
// aggregation; a missing telemetry counterpart only blanks that row's power
// fields.
func Run(summariesDir, powerDir, outPath string) (int, error) {
	summaryPaths, err := discoverSummaries(summariesDir)
	if err != nil {
		return 0, err
	}
	powerFiles, err := discoverPowerLogs(powerDir)
	if err != nil {
		return 0, err
	}

	idlePath := filepath.Join(powerDir, telemetry.IdleFilename)
	idle, err := telemetry.LoadIdle(idlePath)
	if err != nil {
		return 0, err
	}
	if !idle.Present() {
		log.Printf("warning: %s not found; net power/energy will be blank", idlePath)
	}

	rows := make([]*Row, 0, len(summaryPaths))
	for _, spath := range summaryPaths {
		rec, err := summary.Read(spath)
		if err != nil {
			return 0, err
		}

		pow := &telemetry.Summary{}
		if ppath, ok := powerFiles[telemetry.Filename(rec.RunID, rec.Mode)]; ok {
			pow, err = telemetry.Reduce(ppath)
			if err != nil {
				return 0, err
			}
		}
		rows = append(rows, join(rec, pow, idle))
	}

	if err := write(outPath, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// join builds one output row. Net metrics exist only when every operand
// does: absence propagates, it is never treated as zero.
func join(rec *summary.Record, pow *telemetry.Summary, idle opt.Float) *Row {
	return &Row{
		Summary:     rec,
		Power:       pow,
		Idle:        idle,
		NetAvgPower: opt.Sub(pow.AvgPower, idle),
		NetEnergy:   opt.Sub(pow.Energy, opt.Mul(idle, pow.Duration)),
	}
}

// discoverSummaries returns all summary files in sorted filename order. Any
// file matching the summary_*.csv shape but failing the strict identity
// pattern is a corrupted artifact and fails the aggregation.
func discoverSummaries(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading summaries dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "summary_") || !strings.HasSuffix(name, ".csv") {
			continue
		}
		if _, _, err := summary.ParseFilename(name); err != nil {
			return nil, err
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// discoverPowerLogs indexes telemetry files by exact filename. The join
// later looks up the one expected name; there is no fuzzy matching.
func discoverPowerLogs(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading power dir: %w", err)
	}
	files := make(map[string]string)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "run_") || !strings.HasSuffix(name, ".csv") {
			continue
		}
		files[name] = filepath.Join(dir, name)
	}
	return files, nil
}

func write(outPath string, rows []*Row) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("creating aggregate dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating aggregate file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	records := [][]string{columns}
	for _, r := range rows {
		s, p := r.Summary, r.Power
		records = append(records, []string{
			s.RunID, string(s.Mode),
			r.Idle.String(),
			p.Energy.String(), p.AvgPower.String(), p.Duration.String(),
			r.NetEnergy.String(), r.NetAvgPower.String(),
			s.A2B.HBefore.String(), s.A2B.HAfter.String(), s.A2B.Delta.String(),
			s.B2A.HBefore.String(), s.B2A.HAfter.String(), s.B2A.Delta.String(),
			s.OrderEffect.String(),
			s.Path, p.Path, p.PowerCol, p.TimeCol,
		})
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("writing aggregate: %w", err)
	}
	return nil
}
