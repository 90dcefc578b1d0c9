package middb

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with middb-specific context, giving structured
// logging consistent field names across the engine.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler. If handler is
// nil, uses a text handler to stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(handler)}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(1000)})
	return &Logger{Logger: slog.New(handler)}
}

// WithTable adds a table field to the logger.
func (l *Logger) WithTable(table string) *Logger {
	return &Logger{Logger: l.Logger.With("table", table)}
}

// WithID adds a record ID field to the logger.
func (l *Logger) WithID(id string) *Logger {
	return &Logger{Logger: l.Logger.With("id", id)}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, table, id string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed", "table", table, "id", id, "error", err)
		return
	}
	l.DebugContext(ctx, "insert completed", "table", table, "id", id)
}

// LogUpdate logs an update operation.
func (l *Logger) LogUpdate(ctx context.Context, table, id string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "update failed", "table", table, "id", id, "error", err)
		return
	}
	l.DebugContext(ctx, "update completed", "table", table, "id", id)
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, table, id string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed", "table", table, "id", id, "error", err)
		return
	}
	l.DebugContext(ctx, "delete completed", "table", table, "id", id)
}

// LogQueryField logs a field-equality query.
func (l *Logger) LogQueryField(ctx context.Context, table, field string, hits int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "field query failed", "table", table, "field", field, "error", err)
		return
	}
	l.DebugContext(ctx, "field query completed", "table", table, "field", field, "hits", hits)
}

// LogQueryEmbedding logs a k-NN embedding query.
func (l *Logger) LogQueryEmbedding(ctx context.Context, table string, k, hits int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "embedding query failed", "table", table, "k", k, "error", err)
		return
	}
	l.DebugContext(ctx, "embedding query completed", "table", table, "k", k, "hits", hits)
}

// LogQueryHybrid logs a hybrid field+embedding query.
func (l *Logger) LogQueryHybrid(ctx context.Context, table string, k, hits int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "hybrid query failed", "table", table, "k", k, "error", err)
		return
	}
	l.DebugContext(ctx, "hybrid query completed", "table", table, "k", k, "hits", hits)
}

// LogSnapshot logs a snapshot operation.
func (l *Logger) LogSnapshot(ctx context.Context, table, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed", "table", table, "path", path, "error", err)
		return
	}
	l.InfoContext(ctx, "snapshot saved", "table", table, "path", path)
}

// LogRecovery logs table recovery at startup.
func (l *Logger) LogRecovery(ctx context.Context, table string, recordsLoaded int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "recovery failed", "table", table, "error", err)
		return
	}
	l.InfoContext(ctx, "recovery completed", "table", table, "records", recordsLoaded)
}
