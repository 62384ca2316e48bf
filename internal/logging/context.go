package logging

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	loggerKey contextKey = "logger"
	runIDKey  contextKey = "run_id"
)

// GenerateRunID generates a new preflight run identifier
func GenerateRunID() string {
	return uuid.New().String()
}

// FromContext retrieves the logger from context
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return Default()
}

// NewContext creates a new context with the logger
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithRunContext tags base with a fresh run ID and stores both in the context.
func WithRunContext(ctx context.Context, base *Logger) (context.Context, *Logger, string) {
	runID := GenerateRunID()
	l := base.WithRunID(runID)
	ctx = context.WithValue(ctx, runIDKey, runID)
	return NewContext(ctx, l), l, runID
}

// RunIDFromContext returns the run ID stored by WithRunContext, or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// StageContext creates a logger for one preflight stage
func StageContext(ctx context.Context, stage string) *Logger {
	return FromContext(ctx).WithComponent("preflight").WithField("stage", stage)
}

// ExchangeContext creates a logger for exchange API calls
func ExchangeContext(ctx context.Context, exchangeID string) *Logger {
	return FromContext(ctx).WithComponent("exchange").WithField("exchange", exchangeID)
}

// DatabaseContext creates a logger for database operations
func DatabaseContext(ctx context.Context, operation string) *Logger {
	return FromContext(ctx).WithComponent("database").WithField("operation", operation)
}

// NotificationContext creates a logger for notifications
func NotificationContext(ctx context.Context, provider string) *Logger {
	return FromContext(ctx).WithComponent("notification").WithField("provider", provider)
}
