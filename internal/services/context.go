package services

import "context"

type contextKey string

const (
	scanIDKey    contextKey = "scan_id"
	requestIDKey contextKey = "request_id"
)

// WithScanID annotates context with the scan identifier being processed.
func WithScanID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, scanIDKey, id)
}

// ScanIDFromContext extracts the scan identifier if present.
func ScanIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(scanIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
