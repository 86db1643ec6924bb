package dbutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestFinalizePostgres(t *testing.T) {
	query, args := Finalize("postgres", "SELECT id FROM users WHERE (role=?) LIMIT ?,?", []interface{}{"Admin", uint(10), uint(5)})
	require.Equal(t, "SELECT id FROM users WHERE (role=$1) LIMIT $2 OFFSET $3", query)
	require.Equal(t, []interface{}{"Admin", uint(5), uint(10)}, args)
}

func TestFinalizeSqliteUntouched(t *testing.T) {
	query, args := Finalize("sqlite", "SELECT id FROM users WHERE (role=?) LIMIT ?,?", []interface{}{"Admin", uint(10), uint(5)})
	require.Equal(t, "SELECT id FROM users WHERE (role=?) LIMIT ?,?", query)
	require.Equal(t, []interface{}{"Admin", uint(10), uint(5)}, args)
}

func TestIsConflict(t *testing.T) {
	require.False(t, IsConflict(nil))
	require.True(t, IsConflict(&pq.Error{Code: "23505"}))
	require.False(t, IsConflict(&pq.Error{Code: "23503"}))
	require.False(t, IsConflict(errors.New("boom")))
}

func TestIsConflictSqlite(t *testing.T) {
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec("CREATE TABLE users (id TEXT PRIMARY KEY, email TEXT NOT NULL UNIQUE)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO users (id, email) VALUES ('a', 'ann@example.com')")
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO users (id, email) VALUES ('b', 'ann@example.com')")
	require.True(t, IsConflict(fmt.Errorf("create user: %w", err)))
	_, err = db.Exec("INSERT INTO users (id, email) VALUES ('a', 'bob@example.com')")
	require.True(t, IsConflict(err))
	_, err = db.Exec("INSERT INTO users (id) VALUES ('c')")
	require.Error(t, err)
	require.False(t, IsConflict(err))
}
