// Package dbtest opens migrated databases for tests.
package dbtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/yawiki/internal/config"
	"github.com/xxxsen/yawiki/internal/db"
)

var tables = []string{"users", "dev_items", "dev_item_votes", "dev_item_comments", "user_reviews"}

// Open returns a fresh sqlite database under t.TempDir().
func Open(t testing.TB) *sqlx.DB {
	t.Helper()
	return migrate(t, config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "wiki.db")})
}

// OpenPostgres connects to the database at TEST_DB_HOST and empties every
// table. The test is skipped when TEST_DB_HOST is not set.
func OpenPostgres(t testing.TB) *sqlx.DB {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn := migrate(t, config.DatabaseConfig{
		Driver:   "postgres",
		Host:     host,
		Port:     5432,
		User:     envOr("TEST_DB_USER", "yawiki"),
		Password: envOr("TEST_DB_PASSWORD", "yawiki_pass"),
		DBName:   envOr("TEST_DB_NAME", "yawiki_test"),
		SSLMode:  "disable",
	})
	for _, table := range tables {
		_, err := conn.Exec("DELETE FROM " + table)
		require.NoError(t, err)
	}
	return conn
}

func migrate(t testing.TB, cfg config.DatabaseConfig) *sqlx.DB {
	conn, err := db.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.ApplyMigrations(conn))
	return conn
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
