package tenant

import (
	"context"
	"strings"
)

type contextKey string

const studioContextKey contextKey = "tenant.studio"

// WithStudio stores the studio identifier inside the context.
func WithStudio(ctx context.Context, studioID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, studioContextKey, studioID)
}

// StudioID extracts the studio identifier from the context if available.
func StudioID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(studioContextKey).(string)
	if !ok {
		return "", false
	}
	id = strings.TrimSpace(id)
	return id, id != ""
}

// Key namespaces a cache or lock key per studio.
func Key(studioID, key string) string {
	if studioID == "" {
		return key
	}
	return "studio:" + studioID + ":" + key
}
