package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"payrelay/internal/constants"
)

// Store is the durable backing for the dedup ledger. Load runs once at
// startup; Save flushes the full identity set after a tick. Round-trip must
// be lossless, everything else is an implementation detail.
type Store interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, ids []string) error
}

const redisSaveChunkSize = 512

type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		key:    constants.LedgerRedisKey,
	}
}

func (s *RedisStore) Load(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis SMEMBERS failed: %w", err)
	}
	return ids, nil
}

func (s *RedisStore) Save(ctx context.Context, ids []string) error {
	// SADD is idempotent, so re-saving the full set is safe.
	for start := 0; start < len(ids); start += redisSaveChunkSize {
		end := start + redisSaveChunkSize
		if end > len(ids) {
			end = len(ids)
		}

		members := make([]interface{}, 0, end-start)
		for _, id := range ids[start:end] {
			members = append(members, id)
		}

		if err := s.client.SAdd(ctx, s.key, members...).Err(); err != nil {
			return fmt.Errorf("redis SADD failed: %w", err)
		}
	}
	return nil
}

// FileStore keeps the ledger as a JSON array on disk, the standalone
// deployment mode.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to parse ledger file: %w", err)
	}

	return ids, nil
}

func (s *FileStore) Save(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}

	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ledger file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}

	return nil
}
