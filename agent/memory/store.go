package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidSession    = errors.New("session id is empty")
	ErrKeyNotFound       = errors.New("memory key not found")
	ErrUnsupportedDriver = errors.New("unsupported memory driver")
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"

	defaultStoreTimeout = 5 * time.Second
	defaultSQLiteDSN    = "file:agent_memory.db"
)

var supportedDrivers = []string{DriverSQLite, DriverPostgres, DriverUpstash, DriverNone}

// Store is the durable side of session memory: a kv table keyed by
// (session_id, key) and an append-only event log read back in insertion order.
type Store interface {
	PutKV(ctx context.Context, sessionID, key string, value any) error
	GetKV(ctx context.Context, sessionID, key string) (any, error)
	AddEvent(ctx context.Context, sessionID, eventType string, payload map[string]any, createdAt time.Time) error
	LoadKV(ctx context.Context, sessionID string) (map[string]any, error)
	LoadEvents(ctx context.Context, sessionID string) ([]Event, error)
	Close() error
}

// Config selects the backend. For the upstash driver DSN is the REST URL and
// Token its bearer token.
type Config struct {
	Driver  string        `split_words:"true" default:"sqlite"`
	DSN     string        `envconfig:"DSN" default:"file:agent_memory.db"`
	Token   string        `split_words:"true"`
	TTL     time.Duration `envconfig:"TTL" default:"0s"`
	Timeout time.Duration `split_words:"true" default:"5s"`
}

// Open builds the store selected by cfg.Driver and ensures its schema exists.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverSQLite
	}

	dsn := strings.TrimSpace(cfg.DSN)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}

	switch driver {
	case DriverNone:
		return NopStore{}, nil
	case DriverSQLite:
		if dsn == "" {
			dsn = defaultSQLiteDSN
		}
		return NewSQLiteStore(ctx, dsn, WithTimeout(timeout))
	case DriverPostgres:
		if dsn == "" {
			return nil, errors.New("postgres dsn is required")
		}
		return NewPostgresStore(ctx, dsn, WithTimeout(timeout))
	case DriverUpstash:
		return NewUpstashStore(dsn, cfg.Token, timeout, WithTTL(cfg.TTL))
	default:
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnsupportedDriver, driver, strings.Join(supportedDrivers, ", "))
	}
}

// NopStore persists nothing; session memory backed by it is cache-only.
type NopStore struct{}

func (NopStore) PutKV(context.Context, string, string, any) error { return nil }

func (NopStore) GetKV(context.Context, string, string) (any, error) {
	return nil, ErrKeyNotFound
}

func (NopStore) AddEvent(context.Context, string, string, map[string]any, time.Time) error {
	return nil
}

func (NopStore) LoadKV(context.Context, string) (map[string]any, error) {
	return map[string]any{}, nil
}

func (NopStore) LoadEvents(context.Context, string) ([]Event, error) { return nil, nil }

func (NopStore) Close() error { return nil }
