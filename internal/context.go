package internal

import (
	"context"
	"time"
)

type ctxKey string

// ContextUserKey carries the authenticated user's id. The auth
// middleware stamps it so any layer can correlate log output with the
// acting account without importing the auth package.
const ContextUserKey ctxKey = "userID"

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if userID, ok := ctx.Value(ContextUserKey).(string); ok {
		return userID
	}
	return ""
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextUserKey, userID)
}

// WithTimeout bounds ctx by duration, falling back to 5 seconds when
// the caller passes zero or a negative value.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
