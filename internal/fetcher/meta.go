package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HendryAvila/craftgraph/internal/catalog"
)

// MetaStore keeps cache validators (ETags, file mtimes) between fetches.
type MetaStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// ─── File ────────────────────────────────────────────────────────────────────

// FileMetaStore stores validators in a flat JSON object on disk.
type FileMetaStore struct {
	path string
	mu   sync.Mutex
}

// NewFileMetaStore creates a FileMetaStore writing to path.
func NewFileMetaStore(path string) *FileMetaStore {
	return &FileMetaStore{path: path}
}

// Get returns the stored value for key, or "" when absent. An unreadable or
// corrupt file is treated as empty.
func (s *FileMetaStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()[key], nil
}

// Set stores value under key.
func (s *FileMetaStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := s.read()
	meta[key] = value
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("fetcher: marshal meta: %w", err)
	}
	if err := catalog.WriteFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("fetcher: write meta: %w", err)
	}
	return nil
}

func (s *FileMetaStore) read() map[string]string {
	meta := make(map[string]string)
	data, err := os.ReadFile(s.path)
	if err != nil {
		return meta
	}
	if err := json.Unmarshal(data, &meta); err != nil || meta == nil {
		return make(map[string]string)
	}
	return meta
}

// ─── Redis ───────────────────────────────────────────────────────────────────

// DefaultRedisKey is the hash holding fetch validators.
const DefaultRedisKey = "craftgraph:fetch:meta"

// RedisMetaStore stores validators as fields of one Redis hash, so several
// instances sharing a data source also share their validators.
type RedisMetaStore struct {
	client *redis.Client
	key    string
}

// NewRedisMetaStore wraps an existing client. An empty key uses
// DefaultRedisKey.
func NewRedisMetaStore(client *redis.Client, key string) *RedisMetaStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisMetaStore{client: client, key: key}
}

// DialRedisMetaStore connects to addr and checks the connection.
func DialRedisMetaStore(ctx context.Context, addr string) (*RedisMetaStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("fetcher: redis ping %s: %w", addr, err)
	}
	return NewRedisMetaStore(client, ""), nil
}

// Get returns the stored value for key, or "" when absent.
func (s *RedisMetaStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.HGet(ctx, s.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("fetcher: redis get %q: %w", key, err)
	}
	return v, nil
}

// Set stores value under key.
func (s *RedisMetaStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.HSet(ctx, s.key, key, value).Err(); err != nil {
		return fmt.Errorf("fetcher: redis set %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisMetaStore) Close() error {
	return s.client.Close()
}
