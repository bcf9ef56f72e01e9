// Package dbtest provides migrated in-memory databases for tests.
package dbtest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"funnel/internal/platform/database"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Open returns an in-memory SQLite database with every migration applied.
// The pool is pinned to a single connection because each SQLite memory
// connection is its own database.
func Open(t testing.TB) *database.DB {
	t.Helper()

	conn, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	conn.SetMaxOpenConns(1)

	db := database.New(conn, database.DialectSQLite)
	if _, err := database.Migrate(context.Background(), db); err != nil {
		conn.Close()
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// SeedSequence inserts an active sequence owned by companyID and returns its id.
func SeedSequence(t testing.TB, db *database.DB, id, companyID string) string {
	t.Helper()

	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().Unix()
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO sequences (id, company_id, name, category, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, companyID, "seq "+id, "welcome", "active", now, now)
	if err != nil {
		t.Fatalf("seed sequence: %v", err)
	}
	return id
}
