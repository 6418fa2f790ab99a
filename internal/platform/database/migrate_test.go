package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"000001_a.up.sql":   {Data: []byte("CREATE TABLE a (id INT)")},
		"000001_a.down.sql": {Data: []byte("DROP TABLE a")},
		"000002_b.up.sql":   {Data: []byte("CREATE TABLE b (id INT)")},
		"README":            {Data: []byte("ignored")},
	}
}

func TestMigrateAppliesPendingInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("000001_a"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b (id INT)")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations")).
		WithArgs("000002_b").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := migrateFS(context.Background(), db, testFS())
	require.NoError(t, err)
	assert.Equal(t, []string{"000002_b"}, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateRollsBackFailedFile(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE a (id INT)")).
		WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	applied, err := migrateFS(context.Background(), db, testFS())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000001_a")
	assert.Empty(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithEmptyURLReturnsNil(t *testing.T) {
	pool, err := New(context.Background(), DefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, pool)
	assert.Error(t, pool.Health(context.Background()))
	assert.NoError(t, pool.Close())
}
