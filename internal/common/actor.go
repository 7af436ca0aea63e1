package common

import "context"

type ctxKey string

const actorKey ctxKey = "auth/actor"

// WithActor stores the authenticated admin subject on the context.
func WithActor(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, actorKey, subject)
}

// Actor returns the authenticated admin subject if present.
func Actor(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(actorKey).(string)
	return id, ok && id != ""
}
