package helper

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testDatabase = "graphrag_test"
	testUsername = "graphrag"
	testPassword = "graphrag"
)

// MustStartPostgresContainer starts a pgvector enabled Postgres container
// and returns its teardown function and mapped port.
func MustStartPostgresContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx := context.Background()

	container, err := postgres.Run(
		ctx,
		"pgvector/pgvector:pg17",
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testUsername),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, "", err
	}

	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return container.Terminate, "", err
	}

	return container.Terminate, port.Port(), nil
}

// MustStartNeo4jContainer starts a neo4j:5 container without authentication
// and returns its teardown function and bolt URI.
func MustStartNeo4jContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx := context.Background()

	request := testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "neo4j:5",
			ExposedPorts: []string{"7687/tcp"},
			Env: map[string]string{
				"NEO4J_AUTH": "none",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("7687/tcp"),
				wait.ForLog("Started."),
			).WithDeadline(120 * time.Second),
		},
		Started: true,
	}

	container, err := testcontainers.GenericContainer(ctx, request)
	if err != nil {
		return nil, "", err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return container.Terminate, "", err
	}
	port, err := container.MappedPort(ctx, "7687/tcp")
	if err != nil {
		return container.Terminate, "", err
	}

	return container.Terminate, fmt.Sprintf("bolt://%s:%s", host, port.Port()), nil
}

// SetTestDatabaseConfigEnvs points the database configuration at the test container.
func SetTestDatabaseConfigEnvs(t *testing.T, dbPort string) {
	t.Setenv("GRAPHRAG_DB_HOST", "localhost")
	t.Setenv("GRAPHRAG_DB_PORT", dbPort)
	t.Setenv("GRAPHRAG_DB_DATABASE", testDatabase)
	t.Setenv("GRAPHRAG_DB_USERNAME", testUsername)
	t.Setenv("GRAPHRAG_DB_PASSWORD", testPassword)
	t.Setenv("GRAPHRAG_DB_SCHEMA", "public")
	t.Setenv("GRAPHRAG_DB_SSLMODE", "disable")
}

// SetTestNeo4jConfigEnvs points the neo4j configuration at the test container.
func SetTestNeo4jConfigEnvs(t *testing.T, uri string) {
	t.Setenv("GRAPHRAG_NEO4J_URI", uri)
	t.Setenv("GRAPHRAG_NEO4J_USERNAME", "")
	t.Setenv("GRAPHRAG_NEO4J_PASSWORD", "")
	t.Setenv("GRAPHRAG_NEO4J_DATABASE", "neo4j")
}

// NewTestDatabase opens the test database and fails hard if it is unreachable.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	logger := NewLogger(os.Stdout, slog.LevelDebug)
	db := NewDatabase("graphrag_test", config, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		log.Fatalf("error connecting to test database: %v", err)
	}

	return db
}
