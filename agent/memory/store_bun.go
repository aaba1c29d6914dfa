package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"
)

type kvRow struct {
	bun.BaseModel `bun:"table:agent_kv,alias:kv"`

	SessionID string    `bun:"session_id,pk"`
	Key       string    `bun:"key,pk"`
	ValueJSON string    `bun:"value_json,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type eventRow struct {
	bun.BaseModel `bun:"table:agent_events,alias:ev"`

	ID          int64     `bun:"id,pk,autoincrement"`
	SessionID   string    `bun:"session_id,notnull"`
	Type        string    `bun:"type,notnull"`
	PayloadJSON string    `bun:"payload_json,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

// StoreOption customizes BunStore.
type StoreOption func(*BunStore)

func WithTimeout(timeout time.Duration) StoreOption {
	return func(s *BunStore) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *BunStore) {
		if now != nil {
			s.now = now
		}
	}
}

// BunStore persists session memory in SQL through bun. The same schema is used
// for the SQLite and Postgres dialects.
type BunStore struct {
	db      *bun.DB
	timeout time.Duration
	now     func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dsn.
func NewSQLiteStore(ctx context.Context, dsn string, opts ...StoreOption) (*BunStore, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection avoids writer lock contention between goroutines.
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)

	return newBunStore(ctx, bun.NewDB(sqldb, sqlitedialect.New()), opts...)
}

// NewPostgresStore connects to Postgres with the given DSN.
func NewPostgresStore(ctx context.Context, dsn string, opts ...StoreOption) (*BunStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return newBunStore(ctx, bun.NewDB(sqldb, pgdialect.New()), opts...)
}

func newBunStore(ctx context.Context, db *bun.DB, opts ...StoreOption) (*BunStore, error) {
	store := &BunStore{
		db:      db,
		timeout: defaultStoreTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *BunStore) initSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.NewCreateTable().Model((*kvRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create agent_kv: %w", err)
	}
	if _, err := s.db.NewCreateTable().Model((*eventRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create agent_events: %w", err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*eventRow)(nil)).
		Index("agent_events_session_idx").
		Column("session_id", "id").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create agent_events index: %w", err)
	}
	return nil
}

func (s *BunStore) PutKV(ctx context.Context, sessionID, key string, value any) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal kv value: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := &kvRow{
		SessionID: sessionID,
		Key:       key,
		ValueJSON: string(raw),
		UpdatedAt: s.now().UTC(),
	}
	_, err = s.db.NewInsert().
		Model(row).
		On(`CONFLICT ("session_id", "key") DO UPDATE`).
		Set("value_json = EXCLUDED.value_json").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert kv %s/%s: %w", sessionID, key, err)
	}
	return nil
}

func (s *BunStore) GetKV(ctx context.Context, sessionID, key string) (any, error) {
	if err := checkSession(sessionID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := new(kvRow)
	err := s.db.NewSelect().
		Model(row).
		Where("session_id = ?", sessionID).
		Where("? = ?", bun.Ident("key"), key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select kv %s/%s: %w", sessionID, key, err)
	}

	var value any
	if err := json.Unmarshal([]byte(row.ValueJSON), &value); err != nil {
		return nil, fmt.Errorf("decode kv %s/%s: %w", sessionID, key, err)
	}
	return value, nil
}

func (s *BunStore) AddEvent(ctx context.Context, sessionID, eventType string, payload map[string]any, createdAt time.Time) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := &eventRow{
		SessionID:   sessionID,
		Type:        eventType,
		PayloadJSON: string(raw),
		CreatedAt:   createdAt.UTC(),
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert event %s/%s: %w", sessionID, eventType, err)
	}
	return nil
}

func (s *BunStore) LoadKV(ctx context.Context, sessionID string) (map[string]any, error) {
	if err := checkSession(sessionID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []kvRow
	if err := s.db.NewSelect().Model(&rows).Where("session_id = ?", sessionID).Scan(ctx); err != nil {
		return nil, fmt.Errorf("select kv for %s: %w", sessionID, err)
	}

	out := make(map[string]any, len(rows))
	for _, row := range rows {
		var value any
		if err := json.Unmarshal([]byte(row.ValueJSON), &value); err != nil {
			return nil, fmt.Errorf("decode kv %s/%s: %w", sessionID, row.Key, err)
		}
		out[row.Key] = value
	}
	return out, nil
}

func (s *BunStore) LoadEvents(ctx context.Context, sessionID string) ([]Event, error) {
	if err := checkSession(sessionID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []eventRow
	if err := s.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("select events for %s: %w", sessionID, err)
	}

	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		payload := map[string]any{}
		if err := json.Unmarshal([]byte(row.PayloadJSON), &payload); err != nil {
			return nil, fmt.Errorf("decode event %d payload: %w", row.ID, err)
		}
		eventType := row.Type
		if eventType == "" {
			eventType = "event"
		}
		events = append(events, Event{
			Type:      eventType,
			Payload:   payload,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return events, nil
}

func (s *BunStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func checkSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	return nil
}
