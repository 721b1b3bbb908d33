package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"sudooom.memmatch/internal/config"
	"sudooom.memmatch/internal/game"
	"sudooom.memmatch/internal/game/pool"
	"sudooom.memmatch/internal/game/tile"
	"sudooom.memmatch/internal/health"
	"sudooom.memmatch/internal/highscore"
	"sudooom.memmatch/internal/jwt"
	"sudooom.memmatch/internal/metrics"
	mmNats "sudooom.memmatch/internal/nats"
	"sudooom.memmatch/internal/router"
	"sudooom.memmatch/internal/task"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("memmatch exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis
	var rdb redis.UniversalClient
	if cfg.Redis.Enabled() {
		client := connectRedis(cfg.Redis)
		defer client.Close()
		rdb = client
		logger.Info("Connected to Redis", "addr", cfg.Redis.Addr())
	}

	// PostgreSQL
	var db *pgxpool.Pool
	if cfg.Database.Enabled() {
		db, err = connectDatabase(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		logger.Info("Connected to PostgreSQL", "host", cfg.Database.Host)
	}

	// NATS
	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		natsClient, err := mmNats.NewClient(cfg.NATS)
		if err != nil {
			return err
		}
		defer natsClient.Close()
		nc = natsClient.Conn()
		logger.Info("Connected to NATS", "url", cfg.NATS.URL)
	}

	scheduler := task.NewScheduler(cfg.Scheduler)
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	pools := pool.NewManager[*tile.Tile]()
	for _, spec := range cfg.Pools {
		pools.Register(spec, tile.NewFactory())
	}

	scores, err := highscore.Open(ctx, cfg.HighScore, rdb, db)
	if err != nil {
		return err
	}
	defer scores.Close()

	manager := game.NewManager(cfg.Sessions, cfg.Game, scheduler, pools, scores)
	svc := game.NewService(manager)

	recorder := metrics.NewRecorder()
	recorder.TrackSessions(manager.Count)
	recorder.TrackPools(pools.Stats)
	recorder.TrackScheduler(scheduler)
	manager.Observe(recorder.Observe)

	if nc != nil {
		publisher := mmNats.NewEventPublisher(nc, cfg.NATS.SubjectPrefix)
		manager.Observe(publisher.Publish)

		subscriber := mmNats.NewCommandSubscriber(nc, svc, mmNats.SubscriberConfig{
			Prefix:      cfg.NATS.SubjectPrefix,
			Queue:       cfg.NATS.CommandQueue,
			WorkerCount: cfg.NATS.Workers,
			BufferSize:  cfg.NATS.BufferSize,
		})
		if err := subscriber.Start(ctx); err != nil {
			return err
		}
		defer subscriber.Stop()
	}

	var jwtService *jwt.Service
	if cfg.JWT.Enabled() {
		jwtService = jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessExpire, cfg.JWT.RefreshExpire)
	}

	engine := router.SetupRouter(cfg, router.Deps{
		Service: svc,
		JWT:     jwtService,
		Health:  health.NewChecker(scheduler, nc, rdb, db, manager.Count),
		Metrics: recorder,
	})

	server := &http.Server{
		Addr:              cfg.App.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("memmatch started", "name", cfg.App.Name, "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		if serr := manager.Shutdown(shutdownCtx); serr != nil && err == nil {
			err = serr
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("memmatch stopped")
	return nil
}

func connectRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = 10 * time.Minute

	return pgxpool.NewWithConfig(ctx, poolConfig)
}
