package highscore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// saveIfHigherScript KEYS[1]=key ARGV[1]=score; returns 1 when stored
var saveIfHigherScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1])
return 1
`)

// RedisStore high scores as plain string keys
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client; the caller owns it
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "memmatch:highscore:"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(player string) string {
	return s.prefix + normalize(player)
}

// Get implements Store
func (s *RedisStore) Get(ctx context.Context, player string) (int, error) {
	v, err := s.rdb.Get(ctx, s.key(player)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get high score: %w", err)
	}
	return v, nil
}

// SaveIfHigher implements Store with a compare-and-set script
func (s *RedisStore) SaveIfHigher(ctx context.Context, player string, score int) (bool, error) {
	if score < 0 {
		return false, fmt.Errorf("negative score %d", score)
	}
	n, err := saveIfHigherScript.Run(ctx, s.rdb, []string{s.key(player)}, score).Int()
	if err != nil {
		return false, fmt.Errorf("redis save high score: %w", err)
	}
	return n == 1, nil
}

// Close implements Store; the client is closed by its owner
func (s *RedisStore) Close() error {
	return nil
}
