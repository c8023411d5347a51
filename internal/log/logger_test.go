package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerComponentAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf}).WithComponent(ComponentLedger)

	logger.InfoContext(context.Background(), "wallet updated",
		NewFields().WithWallet("w1", 700).WithError(errors.New("boom")).ToSlice()...)
	logger.Debug("hidden")

	out := buf.String()
	for _, want := range []string{`"component":"ledger"`, `"wallet_id":"w1"`, `"balance_cents":700`, `"error":"boom"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug record should be filtered at info level")
	}
	if strings.Count(out, `"component"`) != 1 {
		t.Errorf("component should appear once per record: %s", out)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil || l.Component() != "unknown" {
		t.Fatalf("unexpected fallback logger: %+v", l)
	}
}

func TestLogAccessLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, `"level":"INFO"`},
		{404, `"level":"WARN"`},
		{503, `"level":"ERROR"`},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		logger := New(Config{Format: "json", Output: &buf})
		ctx := NewContext(context.Background(), logger)

		FromContext(ctx).LogAccess(ctx, Access{
			Method:  "POST",
			Path:    "/api/transactions",
			OwnerID: "owner-1",
			Status:  tt.status,
		})

		out := buf.String()
		if !strings.Contains(out, tt.level) {
			t.Errorf("status %d: want %s in %s", tt.status, tt.level, out)
		}
		if !strings.Contains(out, `"owner_id":"owner-1"`) || !strings.Contains(out, `"component":"http"`) {
			t.Errorf("status %d: missing owner or component: %s", tt.status, out)
		}
	}
}
