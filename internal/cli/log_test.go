package cli

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    log.Level
		wantErr bool
	}{
		{"DEBUG", log.DebugLevel, false},
		{"INFO", log.InfoLevel, false},
		{"WARN", log.WarnLevel, false},
		{"ERROR", log.ErrorLevel, false},
		{"debug", log.DebugLevel, false},
		{"Info", log.InfoLevel, false},
		{"TRACE", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseLevel(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseLevel(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerFromContextDefault(t *testing.T) {
	if loggerFromContext(context.Background()) == nil {
		t.Error("expected the default logger for a bare context")
	}
}

func TestWithLoggerRoundTrip(t *testing.T) {
	l := log.New(io.Discard)
	ctx := withLogger(context.Background(), l)
	if loggerFromContext(ctx) != l {
		t.Error("logger not carried through context")
	}
}
