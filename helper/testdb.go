package helper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// MustStartPostgresContainer starts a disposable Postgres+pgvector container
// for integration tests and returns its teardown func and bound host port.
func MustStartPostgresContainer() (func(ctx context.Context) error, string, error) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(
		ctx,
		"pgvector/pgvector:pg17",
		postgres.WithDatabase("archivist"),
		postgres.WithUsername("archivist"),
		postgres.WithPassword("archivist"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("error starting postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", fmt.Errorf("error getting connection string: %w", err)
	}

	u, err := url.Parse(connStr)
	if err != nil {
		return nil, "", fmt.Errorf("error parsing connection string: %w", err)
	}

	return pgContainer.Terminate, u.Port(), nil
}

// SetTestDatabaseConfigEnvs points ARCHIVIST_DB_* at the container started by
// MustStartPostgresContainer for the duration of t.
func SetTestDatabaseConfigEnvs(t *testing.T, dbPort string) {
	t.Helper()
	t.Setenv("ARCHIVIST_DB_HOST", "localhost")
	t.Setenv("ARCHIVIST_DB_PORT", dbPort)
	t.Setenv("ARCHIVIST_DB_NAME", "archivist")
	t.Setenv("ARCHIVIST_DB_USER", "archivist")
	t.Setenv("ARCHIVIST_DB_PASSWORD", "archivist")
	t.Setenv("ARCHIVIST_DB_SSLMODE", "disable")
}

// NewTestDatabase opens a connection pool against the test container,
// failing the test immediately on error rather than returning one.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	db, err := NewDatabase("archivist-test", config, slog.Default())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open test database: %v\n", err)
		panic(err)
	}
	return db
}
