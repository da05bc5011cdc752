package orderpipe

import (
	"context"
	"time"

	"cloud.google.com/go/functions/metadata"
	"github.com/google/uuid"
)

type contextKey string

const startedTimeKey contextKey = "startedTime"

func withStartedTime(ctx context.Context) context.Context {
	return context.WithValue(ctx, startedTimeKey, time.Now())
}

func startedTimeFrom(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(startedTimeKey).(time.Time)
	return t, ok
}

// invocationID returns the host event ID when running under Cloud Functions,
// or a fresh UUID so replays remain traceable in logs either way.
func invocationID(ctx context.Context) string {
	if md, err := metadata.FromContext(ctx); err == nil && md.EventID != "" {
		return md.EventID
	}

	return uuid.NewString()
}
