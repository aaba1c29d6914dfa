package contract

import (
	"context"

	memoryx "github.com/tanpawarit/transcript-notes/agent/memory"
)

// Memory is the session memory surface stages are allowed to touch.
type Memory interface {
	Put(ctx context.Context, sessionID, key string, value any) memoryx.Outcome
	Get(ctx context.Context, sessionID, key string, def any) any
	Decode(ctx context.Context, sessionID, key string, dst any) (bool, error)
	AddEvent(ctx context.Context, sessionID, eventType string, payload map[string]any) memoryx.Outcome
	Events(ctx context.Context, sessionID string) []memoryx.Event
	Snapshot(ctx context.Context, sessionID string) memoryx.Snapshot
	Status(sessionID string) memoryx.Outcome
}

type Stage interface {
	Name() StageName
	Run(ctx context.Context, req StageRequest) (StageResult, error)
}

type Registry interface {
	Stage(name StageName) (Stage, bool)
}
