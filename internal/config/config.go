package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"sudooom.memmatch/internal/game"
	"sudooom.memmatch/internal/game/pool"
	"sudooom.memmatch/internal/game/session"
	"sudooom.memmatch/internal/highscore"
	"sudooom.memmatch/internal/task"
)

// EnvPrefix prefix of environment overrides, e.g. MEMMATCH_GAME_ROWS
const EnvPrefix = "MEMMATCH"

type Config struct {
	App       AppConfig          `mapstructure:"app"`
	Game      session.Config     `mapstructure:"game"`
	Pools     []pool.Spec        `mapstructure:"pools"`
	Scheduler task.Config        `mapstructure:"scheduler"`
	Sessions  game.ManagerConfig `mapstructure:"sessions"`
	HighScore highscore.Config   `mapstructure:"highscore"`
	NATS      NATSConfig         `mapstructure:"nats"`
	Database  DatabaseConfig     `mapstructure:"database"`
	Redis     RedisConfig        `mapstructure:"redis"`
	JWT       JWTConfig          `mapstructure:"jwt"`
	CORS      CORSConfig         `mapstructure:"cors"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	Addr     string `mapstructure:"addr"`
	Mode     string `mapstructure:"mode"`
}

// NATSConfig an empty URL disables event fan-out
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	SubjectPrefix string        `mapstructure:"subject_prefix"`
	CommandQueue  string        `mapstructure:"command_queue"`
	Workers       int           `mapstructure:"workers"`
	BufferSize    int           `mapstructure:"buffer_size"`
}

// DatabaseConfig an empty host disables PostgreSQL
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// Enabled reports whether a database is configured
func (c DatabaseConfig) Enabled() bool { return c.Host != "" }

// DSN postgres connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
	)
}

// RedisConfig an empty host disables Redis
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Enabled reports whether redis is configured
func (c RedisConfig) Enabled() bool { return c.Host != "" }

// Addr host:port
func (c RedisConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// JWTConfig an empty secret disables authentication; players are then named by request
type JWTConfig struct {
	Secret        string        `mapstructure:"secret"`
	Issuer        string        `mapstructure:"issuer"`
	AccessExpire  time.Duration `mapstructure:"access_expire"`
	RefreshExpire time.Duration `mapstructure:"refresh_expire"`
}

// Enabled reports whether bearer tokens are required
func (c JWTConfig) Enabled() bool { return c.Secret != "" }

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

// Load reads configPath, applies defaults and MEMMATCH_* environment overrides
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	g := session.DefaultConfig()
	defaults := map[string]any{
		"app.name":      "memmatch",
		"app.log_level": "info",
		"app.addr":      ":8080",
		"app.mode":      "release",

		"game.rows":             g.Rows,
		"game.cols":             g.Cols,
		"game.flip_duration":    g.FlipDuration,
		"game.compare_delay":    g.CompareDelay,
		"game.flip_back_delay":  g.FlipBackDelay,
		"game.retire_duration":  g.RetireDuration,
		"game.match_score":      g.MatchScore,
		"game.mismatch_penalty": g.MismatchPenalty,
		"game.seed":             0,
		"game.symbol_count":     0,
		"game.pool_key":         g.PoolKey,
		"game.random.min_rows":  g.Random.MinRows,
		"game.random.max_rows":  g.Random.MaxRows,
		"game.random.min_cols":  g.Random.MinCols,
		"game.random.max_cols":  g.Random.MaxCols,

		"pools": []map[string]any{
			{"key": session.DefaultPoolKey, "initial_size": 16, "expandable": true},
		},

		"scheduler.tick":    task.DefaultTick,
		"scheduler.slots":   task.DefaultSlotCount,
		"scheduler.workers": 4,

		"sessions.max":            1000,
		"sessions.evict_timeout":  30 * time.Minute,
		"sessions.evict_interval": time.Minute,

		"highscore.backend":     highscore.BackendMemory,
		"highscore.key_prefix":  "",
		"highscore.sqlite_path": "memmatch.db",

		"nats.url":            "",
		"nats.max_reconnects": 10,
		"nats.reconnect_wait": 2 * time.Second,
		"nats.subject_prefix": "memmatch",
		"nats.command_queue":  "memmatch-workers",
		"nats.workers":        8,
		"nats.buffer_size":    1024,

		"database.host":              "",
		"database.port":              5432,
		"database.name":              "memmatch",
		"database.user":              "postgres",
		"database.password":          "",
		"database.max_open_conns":    10,
		"database.max_idle_conns":    2,
		"database.conn_max_lifetime": time.Hour,

		"redis.host":      "",
		"redis.port":      6379,
		"redis.password":  "",
		"redis.db":        0,
		"redis.pool_size": 10,

		"jwt.secret":         "",
		"jwt.issuer":         "memmatch",
		"jwt.access_expire":  2 * time.Hour,
		"jwt.refresh_expire": 7 * 24 * time.Hour,

		"cors.allowed_origins":   []string{"*"},
		"cors.allowed_methods":   []string{"GET", "POST", "DELETE", "OPTIONS"},
		"cors.allow_credentials": false,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	return v
}

// Validate checks cross-section consistency
func (c *Config) Validate() error {
	if err := c.Game.Validate(); err != nil {
		return err
	}

	found := false
	for _, p := range c.Pools {
		if p.Key == "" {
			return errors.New("pool key must not be empty")
		}
		if p.InitialSize < 0 {
			return fmt.Errorf("pool %q: negative initial_size", p.Key)
		}
		if p.Key == c.Game.PoolKey {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("no pool registered for game.pool_key %q", c.Game.PoolKey)
	}

	switch c.HighScore.Backend {
	case highscore.BackendRedis:
		if !c.Redis.Enabled() {
			return errors.New("highscore backend redis needs redis.host")
		}
	case highscore.BackendPostgres:
		if !c.Database.Enabled() {
			return errors.New("highscore backend postgres needs database.host")
		}
	}
	return nil
}

// LogLevel maps app.log_level onto slog
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
