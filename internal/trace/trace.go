// Package trace tags units of work with an operation id and logs their start,
// completion and duration.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

type ctxKey struct{}

// Tracer runs operations and keeps running totals.
type Tracer struct {
	logger  *slog.Logger
	metrics Metrics
}

// Metrics are the counters a Tracer accumulates.
type Metrics struct {
	TotalOperations  int64
	FailedOperations int64
	// LastDuration is in microseconds.
	LastDuration int64
}

func New(logger *slog.Logger) *Tracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracer{logger: logger}
}

// Run calls fn with a context carrying a fresh operation id. Failures are
// logged at error level and returned unchanged.
func (t *Tracer) Run(ctx context.Context, op string, fn func(context.Context) error, attrs ...any) error {
	start := time.Now()
	id := GenerateOperationID()
	ctx = context.WithValue(ctx, ctxKey{}, id)

	t.logger.DebugContext(ctx, "Operation started",
		append([]any{"operation_id", id, "operation", op}, attrs...)...)

	err := fn(ctx)

	duration := time.Since(start)
	atomic.AddInt64(&t.metrics.TotalOperations, 1)
	atomic.StoreInt64(&t.metrics.LastDuration, duration.Microseconds())

	level := slog.LevelInfo
	done := []any{
		"operation_id", id,
		"operation", op,
		"duration_ms", duration.Milliseconds(),
		"success", err == nil,
	}
	if err != nil {
		atomic.AddInt64(&t.metrics.FailedOperations, 1)
		level = slog.LevelError
		done = append(done, "error", err)
	}
	t.logger.Log(ctx, level, "Operation completed", append(done, attrs...)...)
	return err
}

// Metrics returns a copy of the current counters.
func (t *Tracer) Metrics() Metrics {
	return Metrics{
		TotalOperations:  atomic.LoadInt64(&t.metrics.TotalOperations),
		FailedOperations: atomic.LoadInt64(&t.metrics.FailedOperations),
		LastDuration:     atomic.LoadInt64(&t.metrics.LastDuration),
	}
}

// GenerateOperationID returns a short random id.
func GenerateOperationID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("op_%d", time.Now().UnixNano())
	}
	return "op_" + hex.EncodeToString(b)
}

// OperationID extracts the id set by Run, or "".
func OperationID(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return ""
}
