package integration

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/openballot/api/internal/adapters/dispatcher/outbox"
	"github.com/openballot/api/internal/adapters/handler/http"
	"github.com/openballot/api/internal/adapters/repository/postgres"
	"github.com/openballot/api/internal/core/services"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testFlushSecret = "test-flush-secret"

type testApp struct {
	Server    *httptest.Server
	Client    *stdhttp.Client
	DB        *sql.DB
	container testcontainers.Container
}

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	pgContainer, err := pgcontainer.Run(ctx, "postgres:15-alpine",
		pgcontainer.WithDatabase("testdb"),
		pgcontainer.WithUsername("user"),
		pgcontainer.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

func applyMigrations(db *sql.DB) error {
	dirPath := "../../internal/adapters/repository/postgres/migrations"

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if !strings.HasSuffix(entry.Name(), "up.sql") {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dirPath, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()

	container, connStr, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	require.NoError(t, db.Ping())
	require.NoError(t, applyMigrations(db))

	voteRepo := postgres.NewVoteRepository(db)
	dispatcher := outbox.NewDispatcher(db)
	cache := services.NewCache()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	voteService := services.NewVoteService(voteRepo, dispatcher, cache, logger)
	require.NoError(t, voteService.RefreshAll(ctx))

	handler := http.NewHandler(
		http.NewVoteHandler(voteService),
		http.NewAdminHandler(voteService, testFlushSecret),
	)

	server := httptest.NewServer(handler)

	return &testApp{
		Server:    server,
		Client:    server.Client(),
		DB:        db,
		container: container,
	}
}

func (a *testApp) Teardown(t *testing.T) {
	t.Helper()
	a.Server.Close()
	require.NoError(t, a.DB.Close())
	require.NoError(t, a.container.Terminate(context.Background()))
}
