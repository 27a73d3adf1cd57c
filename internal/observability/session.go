package observability

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const SessionIDKey contextKey = "session_id"

func NewSessionID() string {
	return uuid.New().String()
}

func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

func SessionIDFromContext(ctx context.Context) string {
	id, ok := ctx.Value(SessionIDKey).(string)
	if !ok {
		return ""
	}
	return id
}
