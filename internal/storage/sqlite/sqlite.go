// Package sqlite implements storage.Conn for SQLite via database/sql and the
// modernc.org/sqlite driver (pure Go, no cgo). Insert-ignore semantics use
// INSERT OR IGNORE.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"logship/internal/storage"
)

func init() {
	storage.Register("sqlite", New)
}

// Conn wraps a database/sql handle over a SQLite file.
type Conn struct {
	db *sql.DB
}

// New opens the database file named by the DSN, for example:
//
//	"logs.db"
//	"file:logs.db?cache=shared&_fk=1"
func New(ctx context.Context, cfg storage.Config) (storage.Conn, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	// A single writer at a time; avoid SQLITE_BUSY churn from pool growth.
	db.SetMaxOpenConns(1)

	return &Conn{db: db}, nil
}

// Close closes the database handle.
func (c *Conn) Close() {
	c.db.Close()
}

// InsertIgnore builds the single-row INSERT OR IGNORE statement with ?
// placeholders.
func (c *Conn) InsertIgnore(table string, columns []string) string {
	return buildInsertIgnoreSQL(table, columns)
}

// Exec runs one parameterized statement.
func (c *Conn) Exec(ctx context.Context, sqlText string, args []any) error {
	_, err := c.db.ExecContext(ctx, sqlText, args...)
	return err
}

func buildInsertIgnoreSQL(table string, columns []string) string {
	var b strings.Builder
	b.WriteString("INSERT OR IGNORE INTO ")
	b.WriteString(table)
	b.WriteString(" (")

	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqIdent(col))
	}
	b.WriteString(") VALUES (")

	for i := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("?")
	}
	b.WriteString(")")

	return b.String()
}

// sqIdent quotes a column name as a SQLite identifier.
func sqIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
