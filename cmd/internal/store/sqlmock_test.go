package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func newMockEngine(t *testing.T) (*SQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLite(db), mock
}

func TestInTx_CommitsOnSuccess(t *testing.T) {
	eng, mock := newMockEngine(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE auth_sessions").
		WithArgs(int64(5), "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := eng.InTx(context.Background(), func(ctx context.Context, q Querier) error {
		n, err := q.Exec(ctx, `UPDATE auth_sessions SET revoked_at = ? WHERE id = ?`, int64(5), "s1")
		require.EqualValues(t, 1, n)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_RollsBackOnError(t *testing.T) {
	eng, mock := newMockEngine(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM auth_recovery_codes").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := eng.InTx(context.Background(), func(ctx context.Context, q Querier) error {
		_, err := q.Exec(ctx, `DELETE FROM auth_recovery_codes WHERE user_id = ?`, "u1")
		return err
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_BeginError(t *testing.T) {
	eng, mock := newMockEngine(t)

	mock.ExpectBegin().WillReturnError(errors.New("busy"))

	called := false
	err := eng.InTx(context.Background(), func(ctx context.Context, q Querier) error {
		called = true
		return nil
	})
	require.Error(t, err)
	require.False(t, called)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryRow_MapsNoRows(t *testing.T) {
	eng, mock := newMockEngine(t)

	mock.ExpectQuery("SELECT id FROM users").
		WithArgs("x@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	var id string
	err := eng.QueryRow(context.Background(), `SELECT id FROM users WHERE email = ?`, "x@example.com").Scan(&id)
	require.ErrorIs(t, err, ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
