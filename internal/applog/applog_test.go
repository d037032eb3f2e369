package applog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewRespectsDebugLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		debug     bool
		wantDebug bool
	}{
		{debug: false, wantDebug: false},
		{debug: true, wantDebug: true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		logger := New(&buf, tt.debug)
		logger.Debug("state transition", "to", "PREFLOP_BETTING")
		logger.Info("hand complete")

		out := buf.String()
		if got := strings.Contains(out, "state transition"); got != tt.wantDebug {
			t.Fatalf("debug=%v: debug line present = %v, want %v", tt.debug, got, tt.wantDebug)
		}
		if !strings.Contains(out, "hand complete") {
			t.Fatalf("debug=%v: info line missing from %q", tt.debug, out)
		}
	}
}

func TestDiscardDropsErrors(t *testing.T) {
	t.Parallel()

	if Discard().Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("discard logger should be disabled")
	}
}
