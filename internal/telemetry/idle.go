package telemetry

import (
	"fmt"
	"os"

	"github.com/grxam/Joules-per-Bit/internal/opt"
)

// LoadIdle reduces the designated idle log and keeps only its average power,
// the baseline subtracted from every run's metrics. A missing file is not an
// error: it returns absent and the caller degrades net metrics everywhere.
func LoadIdle(path string) (opt.Float, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return opt.None(), nil
	}
	s, err := Reduce(path)
	if err != nil {
		return opt.None(), fmt.Errorf("reducing idle log: %w", err)
	}
	return s.AvgPower, nil
}
