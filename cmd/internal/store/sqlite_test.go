package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *SQLite {
	t.Helper()
	ctx := context.Background()

	s, err := OpenSQLite(ctx, MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, Migrate(ctx, s))
	return s
}

func insertUser(t *testing.T, q Querier, id, email string) error {
	t.Helper()
	_, err := q.Exec(context.Background(),
		`INSERT INTO users (id, email, display_name, created_at) VALUES (?, ?, ?, ?)`,
		id, email, "Name", int64(1000))
	return err
}

func TestSQLite_MigrateCreatesSchema(t *testing.T) {
	s := openMemory(t)

	for _, table := range []string{"users", "auth_users", "auth_sessions", "auth_password_reset_tokens", "auth_recovery_codes", "auth_audit_log"} {
		var name string
		err := s.QueryRow(context.Background(),
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		require.Equal(t, table, name)
	}

	// idempotent
	require.NoError(t, Migrate(context.Background(), s))
}

func TestSQLite_ExecQueryAndNoRows(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	require.NoError(t, insertUser(t, s, "u1", "a@example.com"))
	require.NoError(t, insertUser(t, s, "u2", "b@example.com"))

	n, err := s.Exec(ctx, `UPDATE users SET display_name = ? WHERE id = ?`, "Alice", "u1")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	rows, err := s.Query(ctx, `SELECT id FROM users ORDER BY id`)
	require.NoError(t, err)
	var ids []string
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())
	require.Equal(t, []string{"u1", "u2"}, ids)

	var name string
	err = s.QueryRow(ctx, `SELECT display_name FROM users WHERE id = ?`, "missing").Scan(&name)
	require.ErrorIs(t, err, ErrNoRows)
}

func TestSQLite_UniqueViolation(t *testing.T) {
	s := openMemory(t)

	require.NoError(t, insertUser(t, s, "u1", "dup@example.com"))
	err := insertUser(t, s, "u2", "dup@example.com")
	require.Error(t, err)
	require.True(t, IsUniqueViolation(err), "got %v", err)

	require.False(t, IsUniqueViolation(errors.New("other")))
}

func TestSQLite_InTx(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	err := s.InTx(ctx, func(ctx context.Context, q Querier) error {
		return insertUser(t, q, "ok", "ok@example.com")
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.InTx(ctx, func(ctx context.Context, q Querier) error {
		require.NoError(t, insertUser(t, q, "rolled", "rolled@example.com"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, s.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n))
	require.Equal(t, 1, n, "failed transaction must roll back")
}

func TestSQLite_InTxRollsBackOnPanic(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	func() {
		defer func() {
			require.NotNil(t, recover(), "panic must propagate")
		}()
		_ = s.InTx(ctx, func(ctx context.Context, q Querier) error {
			require.NoError(t, insertUser(t, q, "p", "p@example.com"))
			panic("kaput")
		})
	}()

	var n int
	require.NoError(t, s.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n))
	require.Equal(t, 0, n)
}

func TestSQLite_FileDatabaseCreatesDirectory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "moviescore.db")

	eng, err := Open(ctx, Config{Client: "sqlite", SQLitePath: path})
	require.NoError(t, err)
	defer func() { _ = eng.Close() }()

	require.Equal(t, DialectSQLite, eng.Dialect())
	require.NoError(t, eng.Ping(ctx))
	require.FileExists(t, path)
}

func TestOpen_UnknownClient(t *testing.T) {
	_, err := Open(context.Background(), Config{Client: "oracle"})
	require.Error(t, err)
}
