package database_test

import (
	"context"
	"errors"
	"testing"

	"funnel/internal/platform/config"
	"funnel/internal/platform/database"
	"funnel/internal/platform/database/dbtest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialect_Rebind(t *testing.T) {
	q := "UPDATE jobs SET status = ? WHERE id = ? AND status = ?"

	assert.Equal(t, q, database.DialectSQLite.Rebind(q))
	assert.Equal(t,
		"UPDATE jobs SET status = $1 WHERE id = $2 AND status = $3",
		database.DialectPostgres.Rebind(q),
	)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := dbtest.Open(t)

	applied, err := database.Migrate(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, applied, "second run should apply nothing")

	var count int
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 3, count)
}

func TestInTx_RollsBackOnError(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	dbtest.SeedSequence(t, db, "s1", "co_1")

	boom := errors.New("boom")
	err := db.InTx(ctx, func(tx database.Executor) error {
		if _, err := tx.ExecContext(ctx, "UPDATE sequences SET name = ? WHERE id = ?", "renamed", "s1"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var name string
	require.NoError(t, db.QueryRowContext(ctx, "SELECT name FROM sequences WHERE id = ?", "s1").Scan(&name))
	assert.Equal(t, "seq s1", name)
}

func TestInTx_PostgresPlaceholders(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	db := database.New(conn, database.DialectPostgres)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE jobs SET status = \$1 WHERE id = \$2`).
		WithArgs("canceled", "job_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = db.InTx(context.Background(), func(tx database.Executor) error {
		_, err := tx.ExecContext(context.Background(), "UPDATE jobs SET status = ? WHERE id = ?", "canceled", "job_1")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := database.Open(config.DatabaseConfig{Driver: "oracle", URL: "x"})
	assert.Error(t, err)
}
