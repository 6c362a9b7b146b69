package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Game     GameConfig     `yaml:"game"`
	NATS     NATSConfig     `yaml:"nats"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// AuthConfig controls token verification on the WebSocket endpoint
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	JWTSecret string `yaml:"jwt_secret"`
}

// GameConfig holds the duel parameters
type GameConfig struct {
	TimeLimit            time.Duration `yaml:"time_limit"`
	Target               int           `yaml:"target"`
	DigitCount           int           `yaml:"digit_count"`
	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`
	ChallengeTimeout     time.Duration `yaml:"challenge_timeout"`
	GeneratorMaxAttempts int           `yaml:"generator_max_attempts"`
}

// NATSConfig holds JetStream result publishing configuration
type NATSConfig struct {
	URL           string `yaml:"url"`
	Stream        string `yaml:"stream"`
	SubjectPrefix string `yaml:"subject_prefix"`
	Enabled       bool   `yaml:"enabled"`
}

// RedisConfig holds leaderboard backend configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// PostgresConfig holds profile store configuration
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	Enabled  bool   `yaml:"enabled"`
}

// DSN returns the PostgreSQL connection string
func (c *PostgresConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode,
	)
}

// LoadConfig reads configuration from a YAML file, expanding ${VAR}
// references against the environment before parsing.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// DefaultConfig returns a configuration with all defaults and every optional
// backend disabled, suitable for running the server standalone.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}

	if c.Game.TimeLimit == 0 {
		c.Game.TimeLimit = 60 * time.Second
	}
	if c.Game.Target == 0 {
		c.Game.Target = 100
	}
	if c.Game.DigitCount == 0 {
		c.Game.DigitCount = 6
	}
	if c.Game.HeartbeatInterval == 0 {
		c.Game.HeartbeatInterval = 30 * time.Second
	}
	if c.Game.ChallengeTimeout == 0 {
		c.Game.ChallengeTimeout = 30 * time.Second
	}
	if c.Game.GeneratorMaxAttempts == 0 {
		c.Game.GeneratorMaxAttempts = 200
	}

	if c.NATS.URL == "" {
		c.NATS.URL = "nats://localhost:4222"
	}
	if c.NATS.Stream == "" {
		c.NATS.Stream = "GAME_RESULTS"
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "game.results"
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}

	if c.Postgres.Host == "" {
		c.Postgres.Host = "localhost"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
}
