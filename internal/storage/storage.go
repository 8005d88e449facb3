// Package storage defines the backend-agnostic database surface used by the
// shipper, plus a factory registry so concrete backends can be compiled in
// via blank imports (see storage/all).
//
// The interface is intentionally narrow: the engine builds one insert
// statement at startup and executes it once per record. Everything
// dialect-specific (placeholder style, the insert-ignore clause, duplicate-key
// error handling) lives behind Conn.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Config is the minimal configuration needed to open a connection.
//
// Kind must match a registered backend kind ("postgres", "mysql", "sqlite",
// "mssql"). DSN is passed through to the backend factory unchanged;
// validation is backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Conn is a live database handle.
//
// Implementations are connection pools under the hood and are safe for
// concurrent use, though the shipper itself issues one Exec at a time.
type Conn interface {
	// Close releases the underlying pool. Call once at process shutdown.
	Close()

	// InsertIgnore returns the parameterized single-row INSERT statement for
	// table/columns in this backend's dialect, with duplicate-key conflicts
	// silently skipped rather than surfaced as errors.
	//
	// The statement text is deterministic for a given (table, columns) pair;
	// callers build it once and reuse it for every record.
	InsertIgnore(table string, columns []string) string

	// Exec runs a parameterized statement. Values are always bound, never
	// interpolated into the SQL text.
	Exec(ctx context.Context, sqlText string, args []any) error
}

type factory func(ctx context.Context, cfg Config) (Conn, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend factory under a kind. It is intended to be
// called from init() in backend packages.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered. Failing fast beats ambiguous backend
//     selection at runtime.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New opens a Conn using the registered backend factory for cfg.Kind.
//
// Errors:
//   - If cfg.Kind is empty or not registered.
//   - Whatever error the backend factory returns.
func New(ctx context.Context, cfg Config) (Conn, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("storage: unsupported kind=%q", cfg.Kind)
	}
	return f(ctx, cfg)
}

// Kinds returns the registered backend kinds, for diagnostics.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	return out
}
