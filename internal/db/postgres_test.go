package db

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/workmarket-backend/internal/logger"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return sqlx.NewDb(raw, "postgres"), mock
}

func expectLock(mock sqlmock.Sqlmock, name string, applied bool) {
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(migrationLockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE name = $1)`)).
		WithArgs(name).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(applied))
}

func TestApplyMigrations_AppliesPendingInOrder(t *testing.T) {
	logger.Discard()
	conn, mock := newMock(t)
	migrations := fstest.MapFS{
		"0002_indexes.sql": {Data: []byte("CREATE INDEX idx_b ON b (id)")},
		"0001_init.sql":    {Data: []byte("CREATE TABLE a (id INT)")},
		"README.md":        {Data: []byte("не миграция")},
	}

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))

	expectLock(mock, "0001_init.sql", true)
	mock.ExpectRollback()

	expectLock(mock, "0002_indexes.sql", false)
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX idx_b ON b (id)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO schema_migrations (name) VALUES ($1)`)).
		WithArgs("0002_indexes.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, ApplyMigrations(context.Background(), conn, migrations))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMigrations_FailedMigrationIsNotRecorded(t *testing.T) {
	logger.Discard()
	conn, mock := newMock(t)
	migrations := fstest.MapFS{"0001_init.sql": {Data: []byte("CREATE TABLE broken")}}

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	expectLock(mock, "0001_init.sql", false)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE broken")).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	err := ApplyMigrations(context.Background(), conn, migrations)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0001_init.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}
