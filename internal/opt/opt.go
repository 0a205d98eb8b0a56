// Package opt provides an explicit optional float64 used for metric fields
// that may be absent. Absence is a real state across the summary, telemetry
// and aggregate records, not a zero.
package opt

import (
	"fmt"
	"strconv"
	"strings"
)

// Float is an optional float64. The zero value is absent.
type Float struct {
	val float64
	ok  bool
}

func Some(v float64) Float {
	return Float{val: v, ok: true}
}

func None() Float {
	return Float{}
}

func (f Float) Present() bool {
	return f.ok
}

func (f Float) Get() (float64, bool) {
	return f.val, f.ok
}

// String formats the value for CSV cells. Absent values render as the
// empty string.
func (f Float) String() string {
	if !f.ok {
		return ""
	}
	return strconv.FormatFloat(f.val, 'g', -1, 64)
}

// Parse converts a CSV cell to a Float. Empty cells and the literal "none"
// (any case) are absent; anything else must parse as a number.
func Parse(s string) (Float, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return None(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return None(), fmt.Errorf("parsing %q as number: %w", s, err)
	}
	return Some(v), nil
}

// Sub returns a−b when both are present, else absent.
func Sub(a, b Float) Float {
	if !a.ok || !b.ok {
		return None()
	}
	return Some(a.val - b.val)
}

// Mul returns a×b when both are present, else absent.
func Mul(a, b Float) Float {
	if !a.ok || !b.ok {
		return None()
	}
	return Some(a.val * b.val)
}
