package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Network  NetworkConfig  `toml:"network"`
	Session  SessionConfig  `toml:"session"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
	Env            string   `toml:"env"` // development, production, test
}

type DatabaseConfig struct {
	URL             string        `toml:"url"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `toml:"connect_timeout"`
}

type NetworkConfig struct {
	// Intent throttles per connection; faster arrivals are dropped.
	MoveInterval   time.Duration `toml:"move_interval"`
	AttackInterval time.Duration `toml:"attack_interval"`
	// Inbound messages allowed to wait per connection.
	PendingLimit int `toml:"pending_limit"`
	// Outbound update messages allowed in flight without an ack.
	MaxUnacked   int           `toml:"max_unacked"`
	WriteTimeout time.Duration `toml:"write_timeout"`
	PongTimeout  time.Duration `toml:"pong_timeout"`
}

type SessionConfig struct {
	IdleTimeout   time.Duration `toml:"idle_timeout"`
	SweepInterval time.Duration `toml:"sweep_interval"`
	GameTTL       time.Duration `toml:"game_ttl"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Load reads the TOML file over defaults, then applies environment
// overrides (PORT, DATABASE_URL, ALLOWED_ORIGINS, APP_ENV). A missing file
// is fine as long as the environment supplies a database URL.
func Load(path string) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(cfg)

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database url is required (set DATABASE_URL or database.url)")
	}
	switch cfg.Server.Env {
	case "development", "production", "test":
	default:
		return nil, fmt.Errorf("invalid env %q", cfg.Server.Env)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.AllowedOrigins = origins
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Server.Env = v
	}
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 3000,
			Env:  "development",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  10 * time.Second,
		},
		Network: NetworkConfig{
			MoveInterval:   80 * time.Millisecond,
			AttackInterval: 400 * time.Millisecond,
			PendingLimit:   5,
			MaxUnacked:     3,
			WriteTimeout:   10 * time.Second,
			PongTimeout:    60 * time.Second,
		},
		Session: SessionConfig{
			IdleTimeout:   5 * time.Minute,
			SweepInterval: time.Minute,
			GameTTL:       7 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
