package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		Job:     "applogs",
		Storage: Storage{Kind: "postgres", DSN: "postgres://localhost/logs"},
		Mapping: Mapping{
			Table: "logs",
			Columns: Columns{
				{Name: "log", Source: "*"},
				{Name: "name", Source: "name"},
			},
			Delimiter: ".",
		},
	}
}

func errorPaths(issues []Issue) []string {
	var out []string
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			out = append(out, iss.Path)
		}
	}
	return out
}

func TestValidate_CleanConfig(t *testing.T) {
	issues := Validate(validConfig())
	if HasErrors(issues) {
		t.Fatalf("unexpected errors: %v", issues)
	}
}

func TestValidate_MissingTable(t *testing.T) {
	c := validConfig()
	c.Mapping.Table = ""
	issues := Validate(c)
	if !HasErrors(issues) {
		t.Fatalf("missing table must be an error")
	}
	if p := errorPaths(issues); len(p) != 1 || p[0] != "mapping.table" {
		t.Fatalf("paths = %v", p)
	}
}

func TestValidate_EmptyColumns(t *testing.T) {
	c := validConfig()
	c.Mapping.Columns = nil
	if !HasErrors(Validate(c)) {
		t.Fatalf("empty columns must be an error")
	}
}

func TestValidate_DuplicateColumn(t *testing.T) {
	c := validConfig()
	c.Mapping.Columns = append(c.Mapping.Columns, Column{Name: "name", Source: "other"})
	issues := Validate(c)
	if !HasErrors(issues) {
		t.Fatalf("duplicate column must be an error")
	}
	found := false
	for _, iss := range issues {
		if strings.Contains(iss.Message, "duplicate column") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected duplicate column message, got %v", issues)
	}
}

func TestValidate_MultiRuneDelimiter(t *testing.T) {
	c := validConfig()
	c.Mapping.Delimiter = "::"
	if !HasErrors(Validate(c)) {
		t.Fatalf("multi-character delimiter must be an error")
	}

	// A single multibyte rune is fine.
	c.Mapping.Delimiter = "→"
	if HasErrors(Validate(c)) {
		t.Fatalf("single-rune delimiter should pass")
	}
}

func TestValidate_StorageIssues(t *testing.T) {
	c := validConfig()
	c.Storage = Storage{}
	issues := Validate(c)
	paths := errorPaths(issues)
	if len(paths) != 2 {
		t.Fatalf("expected kind+dsn errors, got %v", issues)
	}

	c = validConfig()
	c.Storage.Kind = "oracle"
	issues = Validate(c)
	if HasErrors(issues) {
		t.Fatalf("unknown kind should only warn, got %v", issues)
	}
	warned := false
	for _, iss := range issues {
		if iss.Path == "storage.kind" && iss.Severity == SeverityWarning {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected warning for unknown kind, got %v", issues)
	}
}

func TestValidate_EmptySourceWarns(t *testing.T) {
	c := validConfig()
	c.Mapping.Columns = Columns{{Name: "log", Source: "*"}, {Name: "x", Source: ""}}
	issues := Validate(c)
	if HasErrors(issues) {
		t.Fatalf("empty source should only warn, got %v", issues)
	}
	if len(issues) == 0 {
		t.Fatalf("expected a warning for empty source")
	}
}
