package helper

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the connection parameters for the Postgres +
// pgvector instance backing the service. Every field has a documented
// default so a bare environment still boots against a local dev database.
type DatabaseConfiguration struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
}

// NewDatabaseConfiguration loads a .env file if present (absence is not an
// error, dev convenience only) and reads ARCHIVIST_DB_* environment
// variables, falling back to documented defaults.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	_ = godotenv.Load()

	port := 5432
	if raw := os.Getenv("ARCHIVIST_DB_PORT"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return nil, NewError("parsing ARCHIVIST_DB_PORT", err)
		}
		port = parsed
	}

	cfg := &DatabaseConfiguration{
		Host:     envOrDefault("ARCHIVIST_DB_HOST", "localhost"),
		Port:     port,
		Database: envOrDefault("ARCHIVIST_DB_NAME", "archivist"),
		Username: envOrDefault("ARCHIVIST_DB_USER", "archivist"),
		Password: envOrDefault("ARCHIVIST_DB_PASSWORD", ""),
		SSLMode:  envOrDefault("ARCHIVIST_DB_SSLMODE", "disable"),
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (c *DatabaseConfiguration) connectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode,
	)
}

// Database wraps the shared *sql.DB connection pool and the logger every
// handler built on top of it logs through. It is the only handle shared
// across requests; the pool itself manages concurrent access.
type Database struct {
	Instance *sql.DB
	Logger   *slog.Logger
	name     string
}

// NewDatabase opens (and pings) a connection pool against the configured
// Postgres instance. name identifies the caller in log lines (mirrors the
// teacher's per-component "grapher"-style tag).
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) (*Database, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("postgres", config.connectionString())
	if err != nil {
		return nil, NewError("opening database connection", err)
	}
	if err := db.Ping(); err != nil {
		return nil, NewError("pinging database", err)
	}

	logger.Info(fmt.Sprintf("%s: connected to database", name))

	return &Database{Instance: db, Logger: logger, name: name}, nil
}

func (d *Database) Close() error {
	if d == nil || d.Instance == nil {
		return nil
	}
	return d.Instance.Close()
}
