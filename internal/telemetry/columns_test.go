package telemetry_test

import (
	"testing"

	"github.com/grxam/Joules-per-Bit/internal/telemetry"
)

func TestTimeColumnTiers(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    string
		found   bool
	}{
		{
			"elapsed time beats plain elapsed",
			[]string{"Ticks", "Elapsed (sec)", "Elapsed Time (sec)"},
			"Elapsed Time (sec)", true,
		},
		{
			"elapsed beats plain time",
			[]string{"System Time", "Elapsed (sec)"},
			"Elapsed (sec)", true,
		},
		{
			"time matches as last resort",
			[]string{"RDTSC", "System Time"},
			"System Time", true,
		},
		{
			"case insensitive",
			[]string{"ELAPSED TIME (SEC)"},
			"ELAPSED TIME (SEC)", true,
		},
		{
			"file order within a tier",
			[]string{"Elapsed A", "Elapsed B"},
			"Elapsed A", true,
		},
		{
			"no match",
			[]string{"RDTSC", "Frequency (MHz)"},
			"", false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := telemetry.TimeRules.Pick(tt.headers)
			if ok != tt.found || got != tt.want {
				t.Errorf("Pick(%v) = (%q, %v), want (%q, %v)", tt.headers, got, ok, tt.want, tt.found)
			}
		})
	}
}

func TestPowerColumnTiers(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    string
		found   bool
	}{
		{
			"processor preferred over other power rails",
			[]string{"DRAM Power_0(Watt)", "Processor Power_0(Watt)"},
			"Processor Power_0(Watt)", true,
		},
		{
			"package preferred too",
			[]string{"IA Power_0(Watt)", "Package Power_0(Watt)"},
			"Package Power_0(Watt)", true,
		},
		{
			"cpu counts as preferred",
			[]string{"GT Power_0(Watt)", "CPU Power (Watt)"},
			"CPU Power (Watt)", true,
		},
		{
			"plain watt column as fallback",
			[]string{"Elapsed Time (sec)", "Watts"},
			"Watts", true,
		},
		{
			"preference set alone is not enough without power/watt",
			[]string{"CPU Utilization (%)", "Package Temperature"},
			"", false,
		},
		{
			"no match",
			[]string{"Elapsed Time (sec)", "Frequency (MHz)"},
			"", false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := telemetry.PowerRules.Pick(tt.headers)
			if ok != tt.found || got != tt.want {
				t.Errorf("Pick(%v) = (%q, %v), want (%q, %v)", tt.headers, got, ok, tt.want, tt.found)
			}
		})
	}
}
