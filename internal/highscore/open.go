package highscore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Open builds the configured store. rdb and db may be nil when their backend is not selected.
func Open(ctx context.Context, cfg Config, rdb redis.UniversalClient, db *pgxpool.Pool) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("highscore backend %q needs redis", cfg.Backend)
		}
		return NewRedisStore(rdb, cfg.KeyPrefix), nil
	case BackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("highscore backend %q needs a database", cfg.Backend)
		}
		s, err := NewPostgresStore(ctx, db)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		s, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown highscore backend %q", cfg.Backend)
	}
}
