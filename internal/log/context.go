package log

import "context"

type contextKey struct{}

// RequestIDField is the field key that the *Ctx helpers prepend.
const RequestIDField = "request_id"

// WithRequestID stores id in ctx. An empty id returns ctx unchanged.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, id)
}

// RequestID returns the request ID stored in ctx, or "".
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// DebugCtx logs at debug level, tagged with the request ID in ctx.
func DebugCtx(ctx context.Context, cat Category, msg string, fields ...any) {
	emit(LevelDebug, cat, msg, withRequestID(ctx, fields))
}

// InfoCtx logs at info level, tagged with the request ID in ctx.
func InfoCtx(ctx context.Context, cat Category, msg string, fields ...any) {
	emit(LevelInfo, cat, msg, withRequestID(ctx, fields))
}

// WarnCtx logs at warning level, tagged with the request ID in ctx.
func WarnCtx(ctx context.Context, cat Category, msg string, fields ...any) {
	emit(LevelWarn, cat, msg, withRequestID(ctx, fields))
}

// ErrorCtx logs err at error level, tagged with the request ID in ctx.
func ErrorCtx(ctx context.Context, cat Category, msg string, err error, fields ...any) {
	emit(LevelError, cat, msg, withRequestID(ctx, append(fields, "error", errString(err))))
}

func withRequestID(ctx context.Context, fields []any) []any {
	id := RequestID(ctx)
	if id == "" {
		return fields
	}
	return append([]any{RequestIDField, id}, fields...)
}
