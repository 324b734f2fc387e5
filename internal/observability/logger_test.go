package observability

import (
	"testing"

	"go.uber.org/zap"
)

// TestParseLogLevel verifies level parsing including casing, whitespace, and
// the info fallback for unknown values.
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want zap.AtomicLevel
	}{
		{name: "debug", in: "debug", want: zap.NewAtomicLevelAt(zap.DebugLevel)},
		{name: "upper warn", in: "WARN", want: zap.NewAtomicLevelAt(zap.WarnLevel)},
		{name: "padded error", in: "  error ", want: zap.NewAtomicLevelAt(zap.ErrorLevel)},
		{name: "empty falls back to info", in: "", want: zap.NewAtomicLevelAt(zap.InfoLevel)},
		{name: "unknown falls back to info", in: "verbose", want: zap.NewAtomicLevelAt(zap.InfoLevel)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := parseLogLevel(tc.in)
			if got.Level() != tc.want.Level() {
				t.Fatalf("parseLogLevel(%q) = %v, want %v", tc.in, got.Level(), tc.want.Level())
			}
		})
	}
}

// TestNewLogger verifies that the logger builds for each supported level.
func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", ""} {
		logger, err := NewLogger(level)
		if err != nil {
			t.Fatalf("NewLogger(%q) error = %v", level, err)
		}
		if logger == nil {
			t.Fatalf("NewLogger(%q) returned nil logger", level)
		}
	}
}
