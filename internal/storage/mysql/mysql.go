// Package mysql implements storage.Conn for MySQL/MariaDB via database/sql.
// Insert-ignore semantics use INSERT IGNORE, which downgrades duplicate-key
// violations to warnings instead of errors.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"logship/internal/storage"
)

func init() {
	storage.Register("mysql", New)
}

// Conn wraps a database/sql pool using the mysql driver.
type Conn struct {
	db *sql.DB
}

// New opens a pool for the given DSN and pings it so a bad DSN or
// unreachable server is reported at startup rather than on the first record.
func New(ctx context.Context, cfg storage.Config) (storage.Conn, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("mysql: DSN must not be empty")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}

	return &Conn{db: db}, nil
}

// Close closes the connection pool.
func (c *Conn) Close() {
	c.db.Close()
}

// InsertIgnore builds the single-row INSERT IGNORE statement with ?
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
	b.WriteString("INSERT IGNORE INTO ")
	b.WriteString(table)
	b.WriteString(" (")

	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(myIdent(col))
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

// myIdent quotes a column name with backticks, doubling embedded backticks.
func myIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
