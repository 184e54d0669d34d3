package services

import "context"

type contextKey string

const (
	requestIDKey   contextKey = "request_id"
	sourceKey      contextKey = "source"
	canonicalIDKey contextKey = "canonical_id"
)

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

// WithSource annotates context with the content source name.
func WithSource(ctx context.Context, source string) context.Context {
	if source == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceKey, source)
}

// SourceFromContext returns the content source name if present.
func SourceFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sourceKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithCanonicalID annotates context with the metadata provider identifier being resolved.
func WithCanonicalID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, canonicalIDKey, id)
}

// CanonicalIDFromContext returns the canonical identifier if present.
func CanonicalIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(canonicalIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
