// Package database owns the connection pool shared by every process in the
// group. All coordination between concurrent webhook requests and job runner
// invocations happens through conditional row updates issued here, never
// through in-process locks.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"funnel/internal/platform/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// Rebind rewrites ? placeholders into the dialect's native form.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Executor runs statements written with ? placeholders, either against the
// pool or inside a transaction.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type DB struct {
	conn    *sql.DB
	dialect Dialect
}

// New wraps an already opened pool.
func New(conn *sql.DB, dialect Dialect) *DB {
	return &DB{conn: conn, dialect: dialect}
}

// Open connects using the configured driver and verifies the connection.
func Open(cfg config.DatabaseConfig) (*DB, error) {
	driver, dsn, dialect, err := resolveDriver(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 10
	}
	conn.SetMaxOpenConns(maxConns)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	return New(conn, dialect), nil
}

func resolveDriver(cfg config.DatabaseConfig) (driver, dsn string, dialect Dialect, err error) {
	dsn = cfg.URL
	switch cfg.Driver {
	case "", "sqlite3":
		return "sqlite3", withParams(dsn, "_foreign_keys=on", "_busy_timeout=5000"), DialectSQLite, nil
	case "sqlite":
		return "sqlite", withParams(dsn, "_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)"), DialectSQLite, nil
	case "pgx", "postgres":
		return "pgx", dsn, DialectPostgres, nil
	default:
		return "", "", 0, fmt.Errorf("database: unsupported driver %q", cfg.Driver)
	}
}

func withParams(dsn string, params ...string) string {
	missing := make([]string, 0, len(params))
	for _, p := range params {
		key := p[:strings.IndexAny(p, "=(")]
		if !strings.Contains(dsn, key) {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(missing, "&")
}

func (db *DB) Dialect() Dialect { return db.dialect }

func (db *DB) Close() error { return db.conn.Close() }

func (db *DB) PingContext(ctx context.Context) error { return db.conn.PingContext(ctx) }

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, db.dialect.Rebind(query), args...)
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, db.dialect.Rebind(query), args...)
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, db.dialect.Rebind(query), args...)
}

// InTx runs fn inside a transaction. Any error returned by fn rolls back every
// statement fn issued.
func (db *DB) InTx(ctx context.Context, fn func(Executor) error) (err error) {
	sqlTx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{tx: sqlTx, dialect: db.dialect}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}
		return err
	}

	return sqlTx.Commit()
}

type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.Rebind(query), args...)
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.dialect.Rebind(query), args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.Rebind(query), args...)
}
