package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the connection settings of the Postgres vector/text store.
type DatabaseConfiguration struct {
	Host     string `env:"GRAPHRAG_DB_HOST" envDefault:"localhost"`
	Port     string `env:"GRAPHRAG_DB_PORT" envDefault:"5432"`
	Database string `env:"GRAPHRAG_DB_DATABASE" envDefault:"graphrag"`
	Username string `env:"GRAPHRAG_DB_USERNAME" envDefault:"postgres"`
	Password string `env:"GRAPHRAG_DB_PASSWORD"`
	Schema   string `env:"GRAPHRAG_DB_SCHEMA" envDefault:"public"`
	SSLMode  string `env:"GRAPHRAG_DB_SSLMODE" envDefault:"disable"`

	MaxOpenConns int           `env:"GRAPHRAG_DB_MAX_OPEN_CONNS" envDefault:"20"`
	PingTimeout  time.Duration `env:"GRAPHRAG_DB_PING_TIMEOUT" envDefault:"5s"`
}

// NewDatabaseConfiguration reads the configuration from the environment.
// A .env file in the working directory is loaded first if present.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	_ = godotenv.Load()

	config := &DatabaseConfiguration{}
	if err := env.Parse(config); err != nil {
		return nil, NewError("parse database configuration", err)
	}
	if config.Host == "" || config.Port == "" || config.Database == "" {
		return nil, NewValidationError("database configuration", "requires host, port and database")
	}

	return config, nil
}

// DSN returns the lib/pq connection string.
func (c *DatabaseConfiguration) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   fmt.Sprintf("%s:%s", c.Host, c.Port),
		Path:   c.Database,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	if c.Schema != "" {
		q.Set("search_path", c.Schema)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Database wraps a Postgres connection pool together with its logger.
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens a connection pool. The pool is returned even if the first
// ping fails so the vector store can come up later; use Ping to check.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		logger.Error("Error opening database", slog.String("name", name), slog.String("error", err.Error()))
		return &Database{Name: name, Logger: logger}
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}

	database := &Database{
		Name:     name,
		Instance: db,
		Logger:   logger,
	}

	timeout := config.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := database.Ping(ctx); err != nil {
		logger.Warn("Database not reachable", slog.String("name", name), slog.String("error", err.Error()))
	} else {
		logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host))
	}

	return database
}

// Ping checks the pool with a single round trip.
func (d *Database) Ping(ctx context.Context) error {
	if d == nil || d.Instance == nil {
		return NewError("ping", fmt.Errorf("database connection is nil"))
	}
	return d.Instance.PingContext(ctx)
}

// Close closes the pool.
func (d *Database) Close() error {
	if d == nil || d.Instance == nil {
		return nil
	}
	return d.Instance.Close()
}
