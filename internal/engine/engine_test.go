package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// fakeDB records every Exec call and can be told to fail.
type fakeDB struct {
	calls []execCall
	err   error
}

type execCall struct {
	sql  string
	args []any
}

func (f *fakeDB) Exec(ctx context.Context, sqlText string, args []any) error {
	f.calls = append(f.calls, execCall{sql: sqlText, args: args})
	return f.err
}

// fakeBuilder renders a recognizable statement so tests can assert on both
// the text and the column order without a real dialect.
type fakeBuilder struct {
	built []string
}

func (f *fakeBuilder) InsertIgnore(table string, columns []string) string {
	s := fmt.Sprintf("INSERT(%s|%s)", table, strings.Join(columns, ","))
	f.built = append(f.built, s)
	return s
}

// captureLog collects Printf output for assertions.
type captureLog struct {
	lines []string
}

func (c *captureLog) Printf(format string, v ...any) {
	c.lines = append(c.lines, fmt.Sprintf(format, v...))
}

func TestBuild_ConfigErrors(t *testing.T) {
	b := &fakeBuilder{}

	if _, err := Build("", []Column{{Name: "log", Source: "*"}}, ".", b); !errors.Is(err, ErrNoTable) {
		t.Fatalf("missing table: got %v, want ErrNoTable", err)
	}
	if _, err := Build("logs", nil, ".", b); !errors.Is(err, ErrNoColumns) {
		t.Fatalf("nil mapping: got %v, want ErrNoColumns", err)
	}
	if _, err := Build("logs", []Column{}, ".", b); !errors.Is(err, ErrNoColumns) {
		t.Fatalf("empty mapping: got %v, want ErrNoColumns", err)
	}
	if _, err := Build("logs", []Column{{Name: "a", Source: ""}}, ".", b); !errors.Is(err, ErrNoUsableColumns) {
		t.Fatalf("unusable mapping: got %v, want ErrNoUsableColumns", err)
	}
	if len(b.built) != 0 {
		t.Fatalf("no statement should be built on config error")
	}
}

func TestBuild_RejectsDuplicateColumns(t *testing.T) {
	_, err := Build("logs", []Column{
		{Name: "name", Source: "a"},
		{Name: "name", Source: "b"},
	}, ".", &fakeBuilder{})
	if err == nil || !strings.Contains(err.Error(), "duplicate column") {
		t.Fatalf("expected duplicate column error, got %v", err)
	}
}

func TestBuild_VariantSelection(t *testing.T) {
	b := &fakeBuilder{}

	e, err := Build("logs", []Column{{Name: "log", Source: "*"}}, ".", b)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if e.Kind() != Passthrough {
		t.Fatalf("kind = %v, want passthrough", e.Kind())
	}
	if e.Fallback() != nil {
		t.Fatalf("passthrough engine must not own a fallback")
	}

	e, err = Build("logs", []Column{{Name: "name", Source: "name"}}, ".", b)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if e.Kind() != Structured {
		t.Fatalf("kind = %v, want structured", e.Kind())
	}

	e, err = Build("logs", []Column{
		{Name: "name", Source: "name"},
		{Name: "log", Source: "*"},
	}, ".", b)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if e.Kind() != Hybrid {
		t.Fatalf("kind = %v, want hybrid", e.Kind())
	}
	// Fallback exists before any record is seen.
	fb := e.Fallback()
	if fb == nil || fb.Kind() != Passthrough {
		t.Fatalf("hybrid must eagerly build a passthrough fallback, got %+v", fb)
	}
	if fb.SQL() != "INSERT(logs|log)" {
		t.Fatalf("fallback sql = %s", fb.SQL())
	}
}

func TestBuild_ColumnOrderPassthroughFirst(t *testing.T) {
	e, err := Build("logs", []Column{
		{Name: "name", Source: "name"},
		{Name: "log", Source: "*"},
		{Name: "unix", Source: "time"},
	}, ".", &fakeBuilder{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	got := strings.Join(e.Columns(), ",")
	if got != "log,name,unix" {
		t.Fatalf("columns = %s, want log,name,unix", got)
	}
	if e.SQL() != "INSERT(logs|log,name,unix)" {
		t.Fatalf("sql = %s", e.SQL())
	}
}

func TestHandle_PassthroughDuplicatesRawBytes(t *testing.T) {
	e, err := Build("logs", []Column{
		{Name: "a", Source: "*"},
		{Name: "b", Source: "*"},
	}, ".", &fakeBuilder{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	db := &fakeDB{}
	line := []byte("not json at all {{{")
	if err := e.Handle(context.Background(), db, line); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(db.calls) != 1 {
		t.Fatalf("expected exactly one insert, got %d", len(db.calls))
	}
	args := db.calls[0].args
	if len(args) != 2 || args[0] != string(line) || args[1] != string(line) {
		t.Fatalf("args = %v, want raw line twice", args)
	}
}

func TestHandle_StructuredExtractsInMappingOrder(t *testing.T) {
	e, err := Build("logs", []Column{
		{Name: "log", Source: "*"},
		{Name: "name", Source: "name"},
		{Name: "unix", Source: "time"},
	}, ".", &fakeBuilder{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	db := &fakeDB{}
	line := []byte(`{"name":"svc","time":123}`)
	if err := e.Handle(context.Background(), db, line); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(db.calls) != 1 {
		t.Fatalf("expected one insert, got %d", len(db.calls))
	}
	c := db.calls[0]
	if c.sql != "INSERT(logs|log,name,unix)" {
		t.Fatalf("sql = %s", c.sql)
	}
	if len(c.args) != 3 {
		t.Fatalf("args = %v", c.args)
	}
	if c.args[0] != string(line) {
		t.Fatalf("raw column = %v, want original line", c.args[0])
	}
	if c.args[1] != "svc" {
		t.Fatalf("name = %v, want svc", c.args[1])
	}
	if c.args[2] != int64(123) {
		t.Fatalf("unix = %v (%T), want int64 123", c.args[2], c.args[2])
	}
}

func TestHandle_MissingFieldBindsNull(t *testing.T) {
	e, err := Build("logs", []Column{
		{Name: "name", Source: "name"},
		{Name: "host", Source: "meta.host"},
	}, ".", &fakeBuilder{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	db := &fakeDB{}
	if err := e.Handle(context.Background(), db, []byte(`{"name":"svc"}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	args := db.calls[0].args
	if args[0] != "svc" || args[1] != nil {
		t.Fatalf("args = %v, want [svc <nil>]", args)
	}
}

func TestHandle_StructuredParseFailureDropsInsert(t *testing.T) {
	e, err := Build("logs", []Column{{Name: "name", Source: "name"}}, ".", &fakeBuilder{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	logs := &captureLog{}
	e.Logger = logs

	db := &fakeDB{}
	if err := e.Handle(context.Background(), db, []byte("garbage")); err != nil {
		t.Fatalf("Handle must not fail on a parse error: %v", err)
	}

	if len(db.calls) != 0 {
		t.Fatalf("parse failure must produce zero inserts, got %d", len(db.calls))
	}
	if len(logs.lines) != 1 {
		t.Fatalf("expected one logged parse failure, got %v", logs.lines)
	}
}

func TestHandle_TrailingDataIsAParseFailure(t *testing.T) {
	e, err := Build("logs", []Column{{Name: "name", Source: "name"}}, ".", &fakeBuilder{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	db := &fakeDB{}
	if err := e.Handle(context.Background(), db, []byte(`{"name":"a"} extra`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(db.calls) != 0 {
		t.Fatalf("trailing data should drop the insert, got %d calls", len(db.calls))
	}
}

func TestHandle_HybridFallsBackToPassthroughColumns(t *testing.T) {
	e, err := Build("logs", []Column{
		{Name: "log", Source: "*"},
		{Name: "name", Source: "name"},
	}, ".", &fakeBuilder{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	db := &fakeDB{}
	line := []byte("plain text line")
	if err := e.Handle(context.Background(), db, line); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(db.calls) != 1 {
		t.Fatalf("expected exactly one fallback insert, got %d", len(db.calls))
	}
	c := db.calls[0]
	// Only the passthrough column, not a null-filled full row.
	if c.sql != "INSERT(logs|log)" {
		t.Fatalf("fallback sql = %s", c.sql)
	}
	if len(c.args) != 1 || c.args[0] != string(line) {
		t.Fatalf("fallback args = %v", c.args)
	}
}

func TestHandle_HybridParseSuccessInsertsFullRow(t *testing.T) {
	e, err := Build("logs", []Column{
		{Name: "log", Source: "*"},
		{Name: "name", Source: "name"},
	}, ".", &fakeBuilder{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	db := &fakeDB{}
	line := []byte(`{"name":"svc"}`)
	if err := e.Handle(context.Background(), db, line); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	c := db.calls[0]
	if c.sql != "INSERT(logs|log,name)" {
		t.Fatalf("sql = %s", c.sql)
	}
	if len(c.args) != 2 || c.args[0] != string(line) || c.args[1] != "svc" {
		t.Fatalf("args = %v", c.args)
	}
}

func TestHandle_DatabaseErrorPropagates(t *testing.T) {
	e, err := Build("logs", []Column{{Name: "log", Source: "*"}}, ".", &fakeBuilder{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	dbErr := errors.New("connection reset")
	db := &fakeDB{err: dbErr}
	if got := e.Handle(context.Background(), db, []byte("x")); !errors.Is(got, dbErr) {
		t.Fatalf("Handle = %v, want db error", got)
	}
}

func TestHandle_ArrayIndexPaths(t *testing.T) {
	e, err := Build("logs", []Column{
		{Name: "first", Source: "tags.0"},
		{Name: "oob", Source: "tags.9"},
	}, ".", &fakeBuilder{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	db := &fakeDB{}
	if err := e.Handle(context.Background(), db, []byte(`{"tags":["a","b"]}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	args := db.calls[0].args
	if args[0] != "a" || args[1] != nil {
		t.Fatalf("args = %v, want [a <nil>]", args)
	}
}

func TestBindValue_Shapes(t *testing.T) {
	e, err := Build("logs", []Column{{Name: "meta", Source: "meta"}}, ".", &fakeBuilder{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	db := &fakeDB{}
	if err := e.Handle(context.Background(), db, []byte(`{"meta":{"k":1}}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	// Nested objects bind as JSON text.
	if got := db.calls[0].args[0]; got != `{"k":1}` {
		t.Fatalf("nested object bound as %v", got)
	}
}
