package fortune

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	core "github.com/park285/Cheese-Fortune-bot/internal/fortune"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const sessionKeyPrefix = "fortune:sessions:"

// SessionRecord is the persisted form of one live session.
type SessionRecord struct {
	ReadingUUID string        `json:"reading_uuid"`
	Room        string        `json:"room"`
	PlayerHash  string        `json:"player_hash"`
	RoomHash    string        `json:"room_hash"`
	PlayerName  string        `json:"player_name,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	State       core.Snapshot `json:"state"`
}

// SessionStore keeps the current snapshot of each session. Load returns
// (nil, nil) when nothing is stored.
type SessionStore interface {
	Load(ctx context.Context, key string) (*SessionRecord, error)
	Save(ctx context.Context, key string, rec *SessionRecord, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore dials redisURL (redis:// or rediss://) and pings it.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func NewRedisStoreFromClient(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func (s *RedisStore) Load(ctx context.Context, key string) (*SessionRecord, error) {
	raw, err := s.rdb.Get(ctx, sessionKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	var rec SessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, rec *SessionRecord, ttl time.Duration) error {
	if rec == nil {
		return errors.New("cannot save nil fortune session")
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.rdb.Set(ctx, sessionKeyPrefix+key, raw, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, sessionKeyPrefix+key).Err()
}

func (s *RedisStore) Close() error { return s.rdb.Close() }

// MemoryStore is the in-process store used when REDIS_URL is empty.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

type memoryItem struct {
	raw     []byte
	expires time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, key string) (*SessionRecord, error) {
	m.mu.Lock()
	it, ok := m.items[key]
	if ok && !it.expires.IsZero() && !m.now().Before(it.expires) {
		delete(m.items, key)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var rec SessionRecord
	if err := json.Unmarshal(it.raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (m *MemoryStore) Save(_ context.Context, key string, rec *SessionRecord, ttl time.Duration) error {
	if rec == nil {
		return errors.New("cannot save nil fortune session")
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	it := memoryItem{raw: raw}
	if ttl > 0 {
		it.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.items[key] = it
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}
