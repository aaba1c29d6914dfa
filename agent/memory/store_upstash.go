package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DriverUpstash = "upstash"

	defaultUpstashKeyPrefix = "notes:session:"
	defaultEventPageSize    = 256
	maxResponseSizeBytes    = 2 << 20
)

// UpstashOption customizes UpstashStore.
type UpstashOption func(*UpstashStore)

func WithKeyPrefix(prefix string) UpstashOption {
	return func(s *UpstashStore) {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

// WithTTL expires a session's keys after ttl of inactivity. Zero keeps them.
func WithTTL(ttl time.Duration) UpstashOption {
	return func(s *UpstashStore) {
		s.ttl = ttl
	}
}

// WithEventPageSize sets how many events one LRANGE call fetches during
// hydration.
func WithEventPageSize(n int) UpstashOption {
	return func(s *UpstashStore) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func WithHTTPClient(client *http.Client) UpstashOption {
	return func(s *UpstashStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashStore keeps session memory in Upstash Redis over its REST API: kv
// entries in a hash and events in a list, both per session.
type UpstashStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
	pageSize   int
}

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type upstashEvent struct {
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

func NewUpstashStore(restURL, token string, timeout time.Duration, opts ...UpstashOption) (*UpstashStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(restURL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}

	store := &UpstashStore{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		keyPrefix:  defaultUpstashKeyPrefix,
		pageSize:   defaultEventPageSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	return store, nil
}

func (s *UpstashStore) PutKV(ctx context.Context, sessionID, key string, value any) error {
	hash, err := s.redisKey(sessionID, "kv")
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal kv %s: %w", key, err)
	}
	if _, err := s.exec(ctx, []any{"HSET", hash, key, string(raw)}); err != nil {
		return err
	}
	return s.touch(ctx, hash)
}

func (s *UpstashStore) GetKV(ctx context.Context, sessionID, key string) (any, error) {
	hash, err := s.redisKey(sessionID, "kv")
	if err != nil {
		return nil, err
	}
	resp, err := s.exec(ctx, []any{"HGET", hash, key})
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrKeyNotFound
	}
	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, fmt.Errorf("decode kv payload: %w", err)
	}
	var value any
	if err := json.Unmarshal([]byte(encoded), &value); err != nil {
		return nil, fmt.Errorf("decode kv %s/%s: %w", sessionID, key, err)
	}
	return value, nil
}

func (s *UpstashStore) AddEvent(ctx context.Context, sessionID, eventType string, payload map[string]any, createdAt time.Time) error {
	list, err := s.redisKey(sessionID, "events")
	if err != nil {
		return err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(upstashEvent{Type: eventType, Payload: payload, CreatedAt: createdAt.UTC()})
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	if _, err := s.exec(ctx, []any{"RPUSH", list, string(raw)}); err != nil {
		return err
	}
	return s.touch(ctx, list)
}

func (s *UpstashStore) LoadKV(ctx context.Context, sessionID string) (map[string]any, error) {
	hash, err := s.redisKey(sessionID, "kv")
	if err != nil {
		return nil, err
	}
	flat, err := s.stringList(ctx, []any{"HGETALL", hash})
	if err != nil {
		return nil, err
	}
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("decode kv for %s: odd HGETALL reply", sessionID)
	}

	out := make(map[string]any, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		var value any
		if err := json.Unmarshal([]byte(flat[i+1]), &value); err != nil {
			return nil, fmt.Errorf("decode kv %s/%s: %w", sessionID, flat[i], err)
		}
		out[flat[i]] = value
	}
	return out, nil
}

func (s *UpstashStore) LoadEvents(ctx context.Context, sessionID string) ([]Event, error) {
	list, err := s.redisKey(sessionID, "events")
	if err != nil {
		return nil, err
	}
	// Paged so a long session never needs one oversized reply.
	events := []Event{}
	for start := 0; ; start += s.pageSize {
		items, err := s.stringList(ctx, []any{"LRANGE", list, start, start + s.pageSize - 1})
		if err != nil {
			return nil, err
		}
		for i, item := range items {
			var ev upstashEvent
			if err := json.Unmarshal([]byte(item), &ev); err != nil {
				return nil, fmt.Errorf("decode event %d: %w", start+i, err)
			}
			if ev.Payload == nil {
				ev.Payload = map[string]any{}
			}
			if ev.Type == "" {
				ev.Type = "event"
			}
			events = append(events, Event{Type: ev.Type, Payload: ev.Payload, CreatedAt: ev.CreatedAt.UTC()})
		}
		if len(items) < s.pageSize {
			return events, nil
		}
	}
}

func (s *UpstashStore) Close() error {
	if s != nil && s.httpClient != nil {
		s.httpClient.CloseIdleConnections()
	}
	return nil
}

func (s *UpstashStore) touch(ctx context.Context, key string) error {
	if s.ttl <= 0 {
		return nil
	}
	_, err := s.exec(ctx, []any{"EXPIRE", key, ttlSeconds(s.ttl)})
	return err
}

func (s *UpstashStore) redisKey(sessionID, part string) (string, error) {
	if err := checkSession(sessionID); err != nil {
		return "", err
	}
	return s.keyPrefix + sessionID + ":" + part, nil
}

func (s *UpstashStore) stringList(ctx context.Context, command []any) ([]string, error) {
	resp, err := s.exec(ctx, command)
	if err != nil {
		return nil, err
	}
	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, fmt.Errorf("decode %v reply: %w", command[0], err)
	}
	return out, nil
}

func (s *UpstashStore) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if s == nil {
		return nil, errors.New("nil store")
	}
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}
	if len(raw) > maxResponseSizeBytes {
		return nil, fmt.Errorf("redis response for %v exceeds %d bytes", command[0], maxResponseSizeBytes)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
