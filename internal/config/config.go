package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tweetarchive/internal/tweet"
)

// Config is the application's configuration model.
// It is loaded once at startup and passed explicitly to every component.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Time     TimeConfig     `yaml:"time"`
	Database DatabaseConfig `yaml:"database"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	API      APIConfig      `yaml:"api"`
}

type TimeConfig struct {
	// UseTZ stores timezone-aware timestamps anchored to TimeZone.
	UseTZ    bool   `yaml:"useTZ"`
	TimeZone string `yaml:"timeZone"`
}

type DatabaseConfig struct {
	// Engine identifies the backend: "sqlite", "postgres", "mysql".
	// Dotted identifiers such as "django.db.backends.mysql" are accepted.
	Engine string `yaml:"engine"`
	// DSN is a file path for sqlite, a connection string otherwise.
	// If empty, read from env TWEETARCHIVE_DSN
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`

	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

type IngestConfig struct {
	// Source is one of "file", "amqp", "nats".
	Source string     `yaml:"source"`
	Path   string     `yaml:"path"` // "-" reads stdin
	AMQP   AMQPConfig `yaml:"amqp"`
	NATS   NATSConfig `yaml:"nats"`

	// Write throttle; zero disables it.
	WritesPerSecond float64 `yaml:"writesPerSecond"`
	Burst           int     `yaml:"burst"`

	// Dedup drops messages whose tweet id was probably seen already.
	Dedup         bool    `yaml:"dedup"`
	DedupCapacity uint    `yaml:"dedupCapacity"`
	DedupFalsePos float64 `yaml:"dedupFalsePositive"`
}

type AMQPConfig struct {
	// If empty, read from env AMQP_URL
	URL      string `yaml:"url"`
	Queue    string `yaml:"queue"`
	Prefetch int    `yaml:"prefetch"`
}

type NATSConfig struct {
	// If empty, read from env NATS_URL
	URL        string `yaml:"url"`
	Subject    string `yaml:"subject"`
	QueueGroup string `yaml:"queueGroup"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type APIConfig struct {
	Addr string `yaml:"addr"`
}

// Dialect is the database family a deployment runs on.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Time:     TimeConfig{UseTZ: true, TimeZone: "UTC"},
		Database: DatabaseConfig{Engine: "sqlite", DSN: "./tweetarchive.db", Table: "tweets", MaxOpenConns: 100, MaxIdleConns: 10, ConnMaxLifetime: time.Hour},
		Ingest: IngestConfig{
			Source:        "file",
			Path:          "-",
			AMQP:          AMQPConfig{Queue: "tweets", Prefetch: 50},
			NATS:          NATSConfig{Subject: "tweets.raw"},
			Burst:         100,
			DedupCapacity: 1_000_000,
			DedupFalsePos: 0.001,
		},
		API: APIConfig{Addr: ":8080"},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if v := os.Getenv("TWEETARCHIVE_ENGINE"); v != "" {
		c.Database.Engine = v
	}
	if c.Database.DSN == "" {
		c.Database.DSN = os.Getenv("TWEETARCHIVE_DSN")
	}
	if c.Ingest.AMQP.URL == "" {
		c.Ingest.AMQP.URL = os.Getenv("AMQP_URL")
	}
	if c.Ingest.NATS.URL == "" {
		c.Ingest.NATS.URL = os.Getenv("NATS_URL")
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = os.Getenv("METRICS_ADDR")
	}
}

// Dialect maps the engine identifier to a dialect.
func (d DatabaseConfig) Dialect() (Dialect, error) {
	e := strings.ToLower(strings.TrimSpace(d.Engine))
	if i := strings.LastIndex(e, "."); i >= 0 {
		e = e[i+1:]
	}
	switch {
	case strings.HasPrefix(e, "mysql"), e == "mariadb":
		return DialectMySQL, nil
	case e == "postgres", e == "postgresql", e == "postgresql_psycopg2", e == "pgx":
		return DialectPostgres, nil
	case e == "sqlite", e == "sqlite3", e == "":
		return DialectSQLite, nil
	}
	return "", fmt.Errorf("unknown database engine %q", d.Engine)
}

// TimeSettings resolves the configured zone for the tweet builder.
func (t TimeConfig) TimeSettings() (tweet.TimeSettings, error) {
	name := t.TimeZone
	if name == "" {
		name = "UTC"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return tweet.TimeSettings{}, fmt.Errorf("time zone %q: %w", name, err)
	}
	return tweet.TimeSettings{UseTZ: t.UseTZ, Location: loc}, nil
}

// Validate checks the fields every command relies on.
func (c Config) Validate() error {
	if _, err := c.Database.Dialect(); err != nil {
		return err
	}
	if _, err := c.Time.TimeSettings(); err != nil {
		return err
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is empty")
	}
	switch c.Ingest.Source {
	case "", "file", "amqp", "nats":
	default:
		return fmt.Errorf("unknown ingest source %q", c.Ingest.Source)
	}
	return nil
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, cfg.Validate()
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
