package test_utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sitetrack/sitetrack/internal/config"
	"github.com/sitetrack/sitetrack/internal/database"
	log "github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const (
	dbName       = "sitetrack"
	dbUser       = "test_sitetrack"
	dbPassword   = "test_sitetrack"
	snapshotName = "sitetrack-migrated"
)

// TestDB is a migrated Postgres container shared by the tests of one package.
type TestDB struct {
	container *postgres.PostgresContainer
	cfg       config.Database
}

func preparePostgresContainer(ctx context.Context) (*postgres.PostgresContainer, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %v", err)
	}

	pgContainer, err := postgres.Run(
		ctx, "postgres:18.1-alpine",
		postgres.WithInitScripts(filepath.Join(projectRoot, "dev", "init.sql")),
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}
	return pgContainer, nil
}

// StartPostgres starts a container, applies all migrations and snapshots the
// result. It returns an error when no container runtime is available, so a
// TestMain can keep going and let database tests skip.
func StartPostgres() (db *TestDB, err error) {
	ctx := context.Background()
	defer func() {
		// testcontainers panics when it cannot find a docker host
		if r := recover(); r != nil {
			db, err = nil, fmt.Errorf("container runtime unavailable: %v", r)
		}
	}()

	container, err := preparePostgresContainer(ctx)
	if err != nil {
		return nil, err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, err
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return nil, err
	}
	log.Infof("Postgres container started at %s:%d", host, port.Int())

	cfg := config.Database{
		Host:     host,
		Port:     port.Int(),
		User:     dbUser,
		Pass:     dbPassword,
		Name:     dbName,
		Schema:   dbName,
		MaxConns: 4,
		MinConns: 1,
	}

	if err := database.Migrate(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	if err := container.Snapshot(ctx, postgres.WithSnapshotName(snapshotName)); err != nil {
		return nil, fmt.Errorf("failed to snapshot postgres container: %w", err)
	}

	return &TestDB{container: container, cfg: cfg}, nil
}

// Pool restores the migrated snapshot and opens a fresh pool for one test.
// The test is skipped when db is nil.
func (db *TestDB) Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if db == nil {
		t.Skip("postgres container not available")
	}
	ctx := context.Background()

	if err := db.container.Restore(ctx, postgres.WithSnapshotName(snapshotName)); err != nil {
		t.Fatalf("failed to restore snapshot: %v", err)
	}
	pool, err := database.Open(ctx, db.cfg)
	if err != nil {
		t.Fatalf("failed to open database pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// Terminate stops the container; nil receivers are ignored.
func (db *TestDB) Terminate() {
	if db == nil {
		return
	}
	if err := db.container.Terminate(context.Background()); err != nil {
		log.Warnf("failed to terminate postgres container: %v", err)
	}
}

// findProjectRoot walks up to the directory holding go.mod or .git.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if fileExists(filepath.Join(dir, ".git")) || fileExists(filepath.Join(dir, "go.mod")) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root")
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
