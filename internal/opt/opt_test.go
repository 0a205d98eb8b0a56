package opt_test

import (
	"testing"

	"github.com/grxam/Joules-per-Bit/internal/opt"
)

func TestZeroValueIsAbsent(t *testing.T) {
	var f opt.Float
	if f.Present() {
		t.Error("zero value should be absent")
	}
	if f.String() != "" {
		t.Errorf("absent String: got %q, want empty", f.String())
	}
}

func TestSomeRoundTrip(t *testing.T) {
	f := opt.Some(26.0)
	v, ok := f.Get()
	if !ok || v != 26.0 {
		t.Errorf("Get: got (%v, %v), want (26, true)", v, ok)
	}
	if f.String() != "26" {
		t.Errorf("String: got %q, want %q", f.String(), "26")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		present bool
		wantErr bool
	}{
		{"", 0, false, false},
		{"   ", 0, false, false},
		{"none", 0, false, false},
		{"None", 0, false, false},
		{"0.67", 0.67, true, false},
		{" 12.5 ", 12.5, true, false},
		{"-3", -3, true, false},
		{"watts", 0, false, true},
	}
	for _, tt := range tests {
		got, err := opt.Parse(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.in, err)
			continue
		}
		v, ok := got.Get()
		if ok != tt.present || (ok && v != tt.want) {
			t.Errorf("Parse(%q) = (%v, %v), want (%v, %v)", tt.in, v, ok, tt.want, tt.present)
		}
	}
}

func TestSub(t *testing.T) {
	if v, ok := opt.Sub(opt.Some(12), opt.Some(8)).Get(); !ok || v != 4 {
		t.Errorf("Sub(12, 8) = (%v, %v), want (4, true)", v, ok)
	}
	if opt.Sub(opt.Some(12), opt.None()).Present() {
		t.Error("Sub with absent operand should be absent")
	}
	if opt.Sub(opt.None(), opt.Some(8)).Present() {
		t.Error("Sub with absent operand should be absent")
	}
}

func TestMul(t *testing.T) {
	if v, ok := opt.Mul(opt.Some(8), opt.Some(2)).Get(); !ok || v != 16 {
		t.Errorf("Mul(8, 2) = (%v, %v), want (16, true)", v, ok)
	}
	if opt.Mul(opt.None(), opt.Some(2)).Present() {
		t.Error("Mul with absent operand should be absent")
	}
}
