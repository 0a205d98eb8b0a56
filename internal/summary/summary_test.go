package summary_test

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grxam/Joules-per-Bit/internal/opt"
	"github.com/grxam/Joules-per-Bit/internal/protocol"
	"github.com/grxam/Joules-per-Bit/internal/summary"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name    string
		runID   string
		mode    protocol.Mode
		wantErr bool
	}{
		{"summary_run1_A2B.csv", "run1", protocol.ModeA2B, false},
		{"summary_run1_B2A.csv", "run1", protocol.ModeB2A, false},
		{"summary_exp-07_BOTH.csv", "exp-07", protocol.ModeBoth, false},
		// Underscores in the run id bind to the id, not the mode.
		{"summary_my_long_id_BOTH.csv", "my_long_id", protocol.ModeBoth, false},
		{"summary_r1_ABC.csv", "", "", true},
		{"run_r1_BOTH.csv", "", "", true},
		{"summary_r1_BOTH.txt", "", "", true},
		{"summary__BOTH.csv", "", "", true},
	}
	for _, tt := range tests {
		runID, mode, err := summary.ParseFilename(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseFilename(%q): expected error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFilename(%q): %v", tt.name, err)
			continue
		}
		if runID != tt.runID || mode != tt.mode {
			t.Errorf("ParseFilename(%q) = (%q, %q), want (%q, %q)", tt.name, runID, mode, tt.runID, tt.mode)
		}
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rec := &summary.Record{
		RunID: "r42",
		Mode:  protocol.ModeBoth,
		A2B: summary.Direction{
			HBefore:        opt.Some(2.0),
			HAfter:         opt.Some(1.18),
			Delta:          opt.Some(-0.82),
			ForcedToken:    " Yes",
			TopTokenAfter:  ".",
			TopTokenPAfter: opt.Some(0.61),
		},
		B2A: summary.Direction{
			HBefore:     opt.Some(2.0),
			HAfter:      opt.Some(1.85),
			Delta:       opt.Some(-0.15),
			ForcedToken: " No",
		},
		OrderEffect: opt.Some(-0.67),
	}

	path, err := summary.Write(dir, rec)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Base(path) != "summary_r42_BOTH.csv" {
		t.Errorf("filename: got %q", filepath.Base(path))
	}

	got, err := summary.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.RunID != "r42" || got.Mode != protocol.ModeBoth {
		t.Errorf("identity: got %q/%q", got.RunID, got.Mode)
	}
	if v, ok := got.A2B.Delta.Get(); !ok || math.Abs(v-(-0.82)) > 1e-12 {
		t.Errorf("A2B delta: got (%v, %v)", v, ok)
	}
	if got.A2B.ForcedToken != " Yes" {
		t.Errorf("forced token: got %q", got.A2B.ForcedToken)
	}
	if v, ok := got.A2B.TopTokenPAfter.Get(); !ok || v != 0.61 {
		t.Errorf("top token p: got (%v, %v)", v, ok)
	}
	if v, ok := got.OrderEffect.Get(); !ok || math.Abs(v-(-0.67)) > 1e-12 {
		t.Errorf("order effect: got (%v, %v)", v, ok)
	}
	if got.Path != path {
		t.Errorf("path: got %q, want %q", got.Path, path)
	}
}

func TestWriteSingleDirectionAbsent(t *testing.T) {
	dir := t.TempDir()
	rec := &summary.Record{
		RunID: "r1",
		Mode:  protocol.ModeA2B,
		A2B: summary.Direction{
			HBefore: opt.Some(1.5),
			HAfter:  opt.Some(1.0),
			Delta:   opt.Some(-0.5),
		},
	}
	path, err := summary.Write(dir, rec)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := summary.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.B2A.HBefore.Present() || got.B2A.Delta.Present() {
		t.Error("B2A fields should be absent")
	}
	if got.OrderEffect.Present() {
		t.Error("order effect should be absent with one direction")
	}
}

func TestNormalizeFillsOrderEffect(t *testing.T) {
	rec := &summary.Record{
		A2B: summary.Direction{Delta: opt.Some(0.82)},
		B2A: summary.Direction{Delta: opt.Some(0.15)},
	}
	rec.Normalize()
	v, ok := rec.OrderEffect.Get()
	if !ok {
		t.Fatal("order effect should be filled")
	}
	if math.Abs(v-0.67) > 1e-12 {
		t.Errorf("order effect: got %v, want 0.67", v)
	}

	// Idempotent: normalizing again changes nothing, and a supplied value
	// is never overwritten.
	rec.Normalize()
	if v2, _ := rec.OrderEffect.Get(); v2 != v {
		t.Errorf("second Normalize changed value: %v -> %v", v, v2)
	}

	supplied := &summary.Record{
		A2B:         summary.Direction{Delta: opt.Some(0.82)},
		B2A:         summary.Direction{Delta: opt.Some(0.15)},
		OrderEffect: opt.Some(0.67),
	}
	supplied.Normalize()
	if v3, _ := supplied.OrderEffect.Get(); math.Abs(v3-0.67) > 1e-12 {
		t.Errorf("supplied order effect changed: %v", v3)
	}
}

func TestNormalizeMissingDelta(t *testing.T) {
	rec := &summary.Record{A2B: summary.Direction{Delta: opt.Some(0.82)}}
	rec.Normalize()
	if rec.OrderEffect.Present() {
		t.Error("order effect should stay absent with one delta")
	}
}

func TestReadEmptyFileFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary_r1_BOTH.csv")
	os.WriteFile(path, []byte(""), 0o644)
	if _, err := summary.Read(path); err == nil {
		t.Error("expected error for empty summary file")
	}

	// Header only, no data row, is just as fatal.
	header := "run_id,mode,delta_H_A2B_bits\n"
	os.WriteFile(path, []byte(header), 0o644)
	if _, err := summary.Read(path); err == nil {
		t.Error("expected error for header-only summary file")
	}
}

func TestReadMalformedFilenameFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary_r1_SIDEWAYS.csv")
	os.WriteFile(path, []byte("run_id\nr1\n"), 0o644)
	if _, err := summary.Read(path); err == nil {
		t.Error("expected error for malformed filename")
	}
}

func TestReadMissingOrderEffectColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary_r9_BOTH.csv")
	content := strings.Join([]string{
		"run_id,mode,delta_H_A2B_bits,delta_H_B2A_bits",
		"r9,BOTH,0.8200,0.1500",
		"",
	}, "\n")
	os.WriteFile(path, []byte(content), 0o644)

	rec, err := summary.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	v, ok := rec.OrderEffect.Get()
	if !ok {
		t.Fatal("order effect should be recomputed from the deltas")
	}
	if math.Abs(v-0.67) > 1e-12 {
		t.Errorf("order effect: got %v, want 0.67", v)
	}
}

func TestReadNoneCellsAreAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary_r2_A2B.csv")
	content := strings.Join([]string{
		"run_id,mode,H_before_A2B_bits,delta_H_B2A_bits,order_effect_bits",
		"r2,A2B,1.5,None,None",
		"",
	}, "\n")
	os.WriteFile(path, []byte(content), 0o644)

	rec, err := summary.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if v, ok := rec.A2B.HBefore.Get(); !ok || v != 1.5 {
		t.Errorf("H_before: got (%v, %v)", v, ok)
	}
	if rec.B2A.Delta.Present() || rec.OrderEffect.Present() {
		t.Error("None cells should read as absent")
	}
}

func TestFromRun(t *testing.T) {
	res := &protocol.RunResult{
		RunID: "r7",
		Mode:  protocol.ModeBoth,
		A2B: &protocol.DirectionResult{
			Before:      protocol.ProbeResult{EntropyBits: 2.0},
			After:       protocol.ProbeResult{EntropyBits: 1.2, Ranked: []protocol.Candidate{{Token: ".", Prob: 0.7}}},
			ForcedToken: " Yes",
			Delta:       -0.8,
		},
		B2A: &protocol.DirectionResult{
			Before:      protocol.ProbeResult{EntropyBits: 2.0},
			After:       protocol.ProbeResult{EntropyBits: 1.9},
			ForcedToken: " No",
			Delta:       -0.1,
		},
		OrderEffect: opt.Some(-0.7),
	}
	rec := summary.FromRun(res)
	if rec.RunID != "r7" || rec.Mode != protocol.ModeBoth {
		t.Errorf("identity: got %q/%q", rec.RunID, rec.Mode)
	}
	if v, _ := rec.A2B.Delta.Get(); v != -0.8 {
		t.Errorf("A2B delta: got %v", v)
	}
	if rec.A2B.TopTokenAfter != "." {
		t.Errorf("top token after: got %q", rec.A2B.TopTokenAfter)
	}
	if v, ok := rec.A2B.TopTokenPAfter.Get(); !ok || v != 0.7 {
		t.Errorf("top token p after: got (%v, %v)", v, ok)
	}
	if rec.B2A.TopTokenAfter != "" || rec.B2A.TopTokenPAfter.Present() {
		t.Error("empty ranked distribution should leave top-token fields absent")
	}
}
