// Package engine builds the per-record insert machinery of the shipper.
//
// Given a table name and an ordered column mapping, Build classifies the
// mapping once, picks one of three engine variants, and produces the
// parameterized insert statement plus a per-record Handle function:
//
//   - Passthrough: every column receives the raw record; never parses.
//   - Structured: every column is extracted from the parsed record; a record
//     that fails to parse is dropped from the database (but still echoed by
//     the pipeline).
//   - Hybrid: raw columns plus extracted columns; a record that fails to
//     parse falls back to a passthrough-only insert built eagerly at
//     construction time.
//
// Nothing about the statement changes after Build: the column set, their
// order, and the SQL text are fixed for the process lifetime.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"logship/internal/fieldpath"
	"logship/internal/metrics"
)

// RawMarker is the mapping source meaning "bind the entire raw record".
const RawMarker = "*"

// Config errors returned by Build.
var (
	ErrNoTable         = errors.New("engine: table name required")
	ErrNoColumns       = errors.New("engine: column mapping required")
	ErrNoUsableColumns = errors.New("engine: mapping has no usable columns")
)

// Column is one (database column, source) pair from configuration. Source is
// either RawMarker or a delimiter-separated field path.
type Column struct {
	Name   string
	Source string
}

// Kind identifies the engine variant selected at Build time.
type Kind int

const (
	Passthrough Kind = iota
	Structured
	Hybrid
)

func (k Kind) String() string {
	switch k {
	case Passthrough:
		return "passthrough"
	case Structured:
		return "structured"
	case Hybrid:
		return "hybrid"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Logger is the minimal logging interface used by the engine.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// SQLBuilder supplies the dialect-specific insert-ignore statement text.
// storage.Conn satisfies this interface.
type SQLBuilder interface {
	InsertIgnore(table string, columns []string) string
}

// Executor runs one parameterized statement. storage.Conn satisfies this
// interface; tests use fakes.
type Executor interface {
	Exec(ctx context.Context, sqlText string, args []any) error
}

// Engine holds the immutable prepared statement for one variant plus, for
// Hybrid, an owned passthrough fallback engine.
type Engine struct {
	// Logger receives per-record parse diagnostics. Nil discards them.
	Logger Logger

	// Job tags metrics emitted per record. Set via SetJob so the Hybrid
	// fallback engine is tagged consistently.
	Job string

	kind     Kind
	table    string
	columns  []string
	sqlText  string
	rawCount int
	fields   []fieldColumn
	fallback *Engine
}

type fieldColumn struct {
	name     string
	segments []string
}

// Build classifies mapping, selects the engine variant, and renders the
// insert statement once via b.
//
// Classification preserves the mapping's enumeration order: passthrough
// columns first, then field columns, each group in the order listed. Entries
// with an empty source are neither raw markers nor paths and are skipped;
// a mapping that ends up with zero usable entries is rejected.
//
// Duplicate column names are rejected outright rather than left to whatever
// the database does with "INSERT (a, a) VALUES".
func Build(table string, mapping []Column, delim string, b SQLBuilder) (*Engine, error) {
	if table == "" {
		return nil, ErrNoTable
	}
	if len(mapping) == 0 {
		return nil, ErrNoColumns
	}
	if delim == "" {
		delim = "."
	}

	seen := make(map[string]struct{}, len(mapping))
	var rawCols []string
	var fieldCols []fieldColumn

	for _, m := range mapping {
		if _, dup := seen[m.Name]; dup {
			return nil, fmt.Errorf("engine: duplicate column %q in mapping", m.Name)
		}
		seen[m.Name] = struct{}{}

		switch m.Source {
		case RawMarker:
			rawCols = append(rawCols, m.Name)
		case "":
			// Not a raw marker, not a path. Skip; guarded below.
		default:
			fieldCols = append(fieldCols, fieldColumn{
				name:     m.Name,
				segments: fieldpath.Split(m.Source, delim),
			})
		}
	}

	if len(rawCols) == 0 && len(fieldCols) == 0 {
		return nil, ErrNoUsableColumns
	}

	columns := make([]string, 0, len(rawCols)+len(fieldCols))
	columns = append(columns, rawCols...)
	for _, fc := range fieldCols {
		columns = append(columns, fc.name)
	}

	e := &Engine{
		table:    table,
		columns:  columns,
		sqlText:  b.InsertIgnore(table, columns),
		rawCount: len(rawCols),
		fields:   fieldCols,
	}

	switch {
	case len(fieldCols) == 0:
		e.kind = Passthrough
	case len(rawCols) == 0:
		e.kind = Structured
	default:
		e.kind = Hybrid
		// Built eagerly so a mid-stream parse failure never pays a
		// construction cost or a construction failure.
		e.fallback = &Engine{
			kind:     Passthrough,
			table:    table,
			columns:  append([]string(nil), rawCols...),
			sqlText:  b.InsertIgnore(table, rawCols),
			rawCount: len(rawCols),
		}
	}

	return e, nil
}

// Kind reports the selected variant.
func (e *Engine) Kind() Kind { return e.kind }

// SQL returns the prepared statement text.
func (e *Engine) SQL() string { return e.sqlText }

// Columns returns the statement's column list in insert order.
func (e *Engine) Columns() []string {
	return append([]string(nil), e.columns...)
}

// Fallback returns the eagerly built passthrough engine (Hybrid only).
func (e *Engine) Fallback() *Engine { return e.fallback }

// SetJob tags per-record metrics with job, propagating to the fallback.
func (e *Engine) SetJob(job string) {
	e.Job = job
	if e.fallback != nil {
		e.fallback.Job = job
	}
}

// Handle processes one record against db.
//
// It issues at most one insert. The returned error is a database error only;
// parse failures are handled internally (logged and dropped, or delegated to
// the fallback) and never propagate.
func (e *Engine) Handle(ctx context.Context, db Executor, line []byte) error {
	if e.kind == Passthrough {
		return e.exec(ctx, db, e.rawArgs(line))
	}

	v, err := parseRecord(line)
	if err != nil {
		e.logf("parse: dropping structured fields for record: %v", err)
		metrics.RecordRecord(e.Job, "parse_errors", 1)
		if e.kind == Hybrid {
			return e.fallback.Handle(ctx, db, line)
		}
		// Structured-only: no insert for this record.
		metrics.RecordRecord(e.Job, "dropped", 1)
		return nil
	}

	args := make([]any, 0, len(e.columns))
	raw := string(line)
	for i := 0; i < e.rawCount; i++ {
		args = append(args, raw)
	}
	for _, fc := range e.fields {
		val, ok := fieldpath.Lookup(v, fc.segments)
		if !ok {
			// Missing field: bind NULL, never an error.
			args = append(args, nil)
			continue
		}
		args = append(args, bindValue(val))
	}

	return e.exec(ctx, db, args)
}

// exec issues the single insert and records its outcome and latency.
func (e *Engine) exec(ctx context.Context, db Executor, args []any) error {
	start := time.Now()
	err := db.Exec(ctx, e.sqlText, args)
	metrics.RecordInsert(e.Job, err, time.Since(start))
	return err
}

func (e *Engine) rawArgs(line []byte) []any {
	args := make([]any, e.rawCount)
	raw := string(line)
	for i := range args {
		args[i] = raw
	}
	return args
}

func (e *Engine) logf(format string, v ...any) {
	if e.Logger == nil {
		return
	}
	e.Logger.Printf(format, v...)
}

// parseRecord decodes one line as JSON. Numbers stay json.Number so integer
// values bind as integers instead of floats. Trailing non-whitespace after
// the first value makes the record malformed.
func parseRecord(line []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return v, nil
}

// bindValue converts an extracted JSON value into a driver-friendly bind
// parameter. Objects and arrays are re-serialized as JSON text; everything
// else passes through.
func bindValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case string, bool, nil:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			// Unreachable for values produced by encoding/json.
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

var _ Logger = (*log.Logger)(nil)
