// Package mssql implements storage.Conn for SQL Server via database/sql.
//
// SQL Server has no INSERT-level ignore clause, and MERGE brings its own
// locking and concurrency caveats, so duplicate-key semantics are handled on
// the error path instead: a plain INSERT is issued and the driver errors for
// unique-index and unique-constraint violations (2601, 2627) are swallowed.
// The row is skipped, the stream continues, and no caller sees an error.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mssqldb "github.com/microsoft/go-mssqldb"

	"logship/internal/storage"
)

func init() {
	storage.Register("mssql", New)
}

// Duplicate-key error numbers from SQL Server.
const (
	errDuplicateIndexRow = 2601 // cannot insert duplicate key row in unique index
	errDuplicateKey      = 2627 // violation of unique/primary key constraint
)

// Conn wraps a database/sql pool using the sqlserver driver.
type Conn struct {
	db *sql.DB
}

// New opens a pool for the given DSN and pings it so connection problems
// surface at startup.
func New(ctx context.Context, cfg storage.Config) (storage.Conn, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("mssql: DSN must not be empty")
	}

	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}

	return &Conn{db: db}, nil
}

// Close closes the connection pool.
func (c *Conn) Close() {
	c.db.Close()
}

// InsertIgnore builds the single-row insert statement with @pN placeholders.
// The ignore half of the contract lives in Exec.
func (c *Conn) InsertIgnore(table string, columns []string) string {
	return buildInsertSQL(table, columns)
}

// Exec runs one parameterized statement, treating duplicate-key violations
// as a silent skip.
func (c *Conn) Exec(ctx context.Context, sqlText string, args []any) error {
	_, err := c.db.ExecContext(ctx, sqlText, args...)
	if err != nil && isDuplicateKey(err) {
		return nil
	}
	return err
}

func isDuplicateKey(err error) bool {
	var se mssqldb.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Number == errDuplicateIndexRow || se.Number == errDuplicateKey
}

func buildInsertSQL(table string, columns []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")

	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(msIdent(col))
	}
	b.WriteString(") VALUES (")

	for i := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "@p%d", i+1)
	}
	b.WriteString(")")

	return b.String()
}

// msIdent quotes a column name with brackets, doubling any closing bracket.
func msIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}
