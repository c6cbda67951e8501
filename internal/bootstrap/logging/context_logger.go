package logging

import (
	"context"
	"log/slog"
)

type loggerKey struct{}
type attrsKey struct{}

// WithLogger stores logger in ctx. A nil logger leaves ctx unchanged.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// WithAttrs adds attrs to every record logged through ctx. A later attr replaces an earlier one with the same key.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(attrs) == 0 {
		return ctx
	}
	return context.WithValue(ctx, attrsKey{}, mergeAttrs(Attrs(ctx), attrs))
}

// WithRequestID tags ctx with the id of the inbound request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return WithAttrs(ctx)
	}
	return WithAttrs(ctx, slog.String("request_id", requestID))
}

// Logger returns the logger stored in ctx, or slog.Default.
func Logger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return logger
		}
	}
	return slog.Default()
}

// HasLogger reports whether ctx carries its own logger.
func HasLogger(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	_, ok := ctx.Value(loggerKey{}).(*slog.Logger)
	return ok
}

func Attrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(attrsKey{}).([]slog.Attr)
	if len(attrs) == 0 {
		return nil
	}
	return append([]slog.Attr(nil), attrs...)
}

func Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAt(ctx, slog.LevelDebug, msg, attrs)
}

func Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAt(ctx, slog.LevelInfo, msg, attrs)
}

func Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAt(ctx, slog.LevelWarn, msg, attrs)
}

func Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAt(ctx, slog.LevelError, msg, attrs)
}

func logAt(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := Logger(ctx)
	if !logger.Enabled(ctx, level) {
		return
	}
	logger.LogAttrs(ctx, level, msg, mergeAttrs(Attrs(ctx), attrs)...)
}

// mergeAttrs returns a new slice; keys in extra overwrite keys in base in place.
func mergeAttrs(base []slog.Attr, extra []slog.Attr) []slog.Attr {
	merged := make([]slog.Attr, 0, len(base)+len(extra))
	position := make(map[string]int, len(base)+len(extra))
	for _, attr := range append(append([]slog.Attr(nil), base...), extra...) {
		if idx, ok := position[attr.Key]; ok && attr.Key != "" {
			merged[idx] = attr
			continue
		}
		if attr.Key != "" {
			position[attr.Key] = len(merged)
		}
		merged = append(merged, attr)
	}
	return merged
}
