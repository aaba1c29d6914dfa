package memory

import (
	"time"

	"github.com/mohae/deepcopy"
)

// Event is one immutable entry of a session's audit log.
type Event struct {
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// SnapshotEvent is the serialized form of an Event.
type SnapshotEvent struct {
	Type      string         `json:"type" yaml:"type"`
	Payload   map[string]any `json:"payload" yaml:"payload"`
	CreatedAt string         `json:"created_at" yaml:"created_at"`
}

// Snapshot is a point-in-time copy of a session's memory.
type Snapshot struct {
	KV     map[string]any  `json:"kv" yaml:"kv"`
	Events []SnapshotEvent `json:"events" yaml:"events"`
}

func (e Event) serialize() SnapshotEvent {
	return SnapshotEvent{
		Type:      e.Type,
		Payload:   clonePayload(e.Payload),
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (e Event) clone() Event {
	e.Payload = clonePayload(e.Payload)
	return e
}

// clonePayload deep-copies a payload so readers and writers never share
// nested maps or slices with the cache. Go types are preserved.
func clonePayload(p map[string]any) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return deepcopy.Copy(p).(map[string]any)
}

// Outcome reports how a memory operation fared against the durable store.
// The in-process cache is always updated; Degraded means the store was not.
// Faults is only set by Status and counts every fault seen so far.
type Outcome struct {
	Degraded bool
	Err      error
	Faults   int
}

func degraded(err error) Outcome {
	if err == nil {
		return Outcome{}
	}
	return Outcome{Degraded: true, Err: err}
}
