package log

import (
	"context"
	"log/slog"
	"time"
)

type ctxKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request-scoped logger, or the slog default tagged
// "unknown" outside a request.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// Access describes one finished API request.
type Access struct {
	Method    string
	Path      string
	Query     string
	UserAgent string
	ClientIP  string
	OwnerID   string
	Status    int
	Duration  time.Duration
}

// LogAccess writes the access record for a, at Warn for client errors and
// Error for server errors.
func (l *Logger) LogAccess(ctx context.Context, a Access) {
	level := slog.LevelInfo
	switch {
	case a.Status >= 500:
		level = slog.LevelError
	case a.Status >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(a.Method, a.Path, a.Query, a.UserAgent).
		WithHTTPResponse(a.Status, a.Duration.Milliseconds(), a.Status < 400).
		WithClientIP(a.ClientIP).
		WithComponent(ComponentHTTP)
	if a.OwnerID != "" {
		fields[FieldOwnerID] = a.OwnerID
	}

	l.Logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}
