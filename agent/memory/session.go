package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/mohae/deepcopy"
	"github.com/rs/zerolog/log"
)

// SessionMemory is the in-process source of truth for session kv entries and
// audit events. Each session is hydrated from the Store once, on first touch;
// every write after that updates the cache and is mirrored to the Store on a
// best-effort basis.
type SessionMemory struct {
	store Store
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionCache
}

type sessionCache struct {
	mu      sync.Mutex
	loaded  bool
	kv      map[string]any
	events  []Event
	faults  int
	lastErr error
}

type Option func(*SessionMemory)

func WithClock(now func() time.Time) Option {
	return func(m *SessionMemory) {
		if now != nil {
			m.now = now
		}
	}
}

func NewSessionMemory(store Store, opts ...Option) *SessionMemory {
	if store == nil {
		store = NopStore{}
	}
	m := &SessionMemory{
		store:    store,
		now:      time.Now,
		sessions: make(map[string]*sessionCache),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m *SessionMemory) session(sessionID string) *sessionCache {
	m.mu.Lock()
	defer m.mu.Unlock()

	sc, ok := m.sessions[sessionID]
	if !ok {
		sc = &sessionCache{kv: make(map[string]any)}
		m.sessions[sessionID] = sc
	}
	return sc
}

// acquire returns the session cache locked and hydrated. Callers must unlock.
func (m *SessionMemory) acquire(ctx context.Context, sessionID string) *sessionCache {
	sc := m.session(sessionID)
	sc.mu.Lock()
	if !sc.loaded {
		sc.loaded = true
		m.hydrate(ctx, sessionID, sc)
	}
	return sc
}

func (m *SessionMemory) hydrate(ctx context.Context, sessionID string, sc *sessionCache) {
	kv, err := m.store.LoadKV(ctx, sessionID)
	if err != nil {
		sc.fault(err)
		log.Warn().Err(err).Str("session_id", sessionID).Msg("memory: kv hydration failed")
	} else {
		maps.Copy(sc.kv, kv)
	}

	events, err := m.store.LoadEvents(ctx, sessionID)
	if err != nil {
		sc.fault(err)
		log.Warn().Err(err).Str("session_id", sessionID).Msg("memory: event hydration failed")
		return
	}
	sc.events = append(sc.events, events...)

	log.Debug().
		Str("session_id", sessionID).
		Int("kv", len(sc.kv)).
		Int("events", len(sc.events)).
		Msg("memory: session hydrated")
}

func (sc *sessionCache) fault(err error) Outcome {
	sc.faults++
	sc.lastErr = err
	return degraded(err)
}

func (m *SessionMemory) Put(ctx context.Context, sessionID, key string, value any) Outcome {
	sc := m.acquire(ctx, sessionID)
	defer sc.mu.Unlock()

	sc.kv[key] = value
	if err := m.store.PutKV(ctx, sessionID, key, value); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Str("key", key).Msg("memory: mirror kv write failed")
		return sc.fault(err)
	}
	return Outcome{}
}

func (m *SessionMemory) Get(ctx context.Context, sessionID, key string, def any) any {
	if v, ok := m.Lookup(ctx, sessionID, key); ok {
		return v
	}
	return def
}

func (m *SessionMemory) Lookup(ctx context.Context, sessionID, key string) (any, bool) {
	sc := m.acquire(ctx, sessionID)
	defer sc.mu.Unlock()

	v, ok := sc.kv[key]
	return v, ok
}

// Decode copies the value stored under key into dst. Values written in this
// process keep their Go type while hydrated values are generic JSON, so the
// copy goes through JSON either way.
func (m *SessionMemory) Decode(ctx context.Context, sessionID, key string, dst any) (bool, error) {
	v, ok := m.Lookup(ctx, sessionID, key)
	if !ok {
		return false, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return true, fmt.Errorf("encode %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (m *SessionMemory) AddEvent(ctx context.Context, sessionID, eventType string, payload map[string]any) Outcome {
	sc := m.acquire(ctx, sessionID)
	defer sc.mu.Unlock()

	ev := Event{
		Type:      eventType,
		Payload:   clonePayload(payload),
		CreatedAt: m.now().UTC(),
	}
	sc.events = append(sc.events, ev)

	if err := m.store.AddEvent(ctx, sessionID, eventType, ev.Payload, ev.CreatedAt); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Str("event", eventType).Msg("memory: mirror event write failed")
		return sc.fault(err)
	}
	return Outcome{}
}

func (m *SessionMemory) Events(ctx context.Context, sessionID string) []Event {
	sc := m.acquire(ctx, sessionID)
	defer sc.mu.Unlock()

	out := make([]Event, len(sc.events))
	for i, ev := range sc.events {
		out[i] = ev.clone()
	}
	return out
}

func (m *SessionMemory) Snapshot(ctx context.Context, sessionID string) Snapshot {
	sc := m.acquire(ctx, sessionID)
	defer sc.mu.Unlock()

	events := make([]SnapshotEvent, 0, len(sc.events))
	for _, ev := range sc.events {
		events = append(events, ev.serialize())
	}
	return Snapshot{
		KV:     deepcopy.Copy(sc.kv).(map[string]any),
		Events: events,
	}
}

// Status reports whether any persistence fault has been seen for the session,
// including hydration, and how many so far. It does not trigger hydration
// itself.
func (m *SessionMemory) Status(sessionID string) Outcome {
	m.mu.Lock()
	sc, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return Outcome{}
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.faults == 0 {
		return Outcome{}
	}
	out := degraded(sc.lastErr)
	out.Faults = sc.faults
	return out
}
