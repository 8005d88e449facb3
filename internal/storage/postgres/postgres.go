// Package postgres implements storage.Conn for PostgreSQL on top of
// pgxpool. Insert-ignore semantics use ON CONFLICT DO NOTHING, which skips
// any row that collides with a unique or primary-key constraint without
// failing the statement.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"logship/internal/storage"
)

func init() {
	storage.Register("postgres", New)
}

// Conn wraps a pgx connection pool.
type Conn struct {
	pool *pgxpool.Pool
}

// New opens a pool for the given DSN. pgxpool connects lazily; a bad DSN
// fails here, an unreachable server fails on first Exec.
func New(ctx context.Context, cfg storage.Config) (storage.Conn, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	return &Conn{pool: pool}, nil
}

// Close closes the connection pool.
func (c *Conn) Close() {
	c.pool.Close()
}

// InsertIgnore builds the single-row insert statement with $n placeholders.
func (c *Conn) InsertIgnore(table string, columns []string) string {
	return buildInsertIgnoreSQL(table, columns)
}

// Exec runs one parameterized statement against the pool.
func (c *Conn) Exec(ctx context.Context, sqlText string, args []any) error {
	_, err := c.pool.Exec(ctx, sqlText, args...)
	return err
}

// buildInsertIgnoreSQL is pure so placeholder numbering and the conflict
// clause can be unit tested without a database.
func buildInsertIgnoreSQL(table string, columns []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")

	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(col))
	}
	b.WriteString(") VALUES (")

	for i := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", i+1)
	}
	b.WriteString(") ON CONFLICT DO NOTHING")

	return b.String()
}

// pgIdent quotes a column name as a Postgres identifier. Embedded quotes are
// doubled, so even hostile config cannot break out of the identifier.
func pgIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
