package config

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates an issue that blocks the database path.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates an issue worth surfacing but not blocking.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into
// the config (e.g. "mapping.columns"); Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a
// single error where convenient.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue in the list is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static validation of a Config. It does not mutate the
// config; callers decide how to surface the returned issues.
func Validate(c Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; metrics will be tagged with the default job name",
		})
	}

	issues = append(issues, validateStorage(c.Storage)...)
	issues = append(issues, validateMapping(c.Mapping)...)

	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
	} else {
		// Unknown kinds are warnings for forward compatibility; the factory
		// is the authority and will reject them at open time.
		known := map[string]struct{}{
			"postgres": {},
			"mysql":    {},
			"sqlite":   {},
			"mssql":    {},
		}
		if _, ok := known[s.Kind]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "storage.kind",
				Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
			})
		}
	}

	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.dsn",
			Message:  "storage.dsn must not be empty",
		})
	}

	return issues
}

func validateMapping(m Mapping) []Issue {
	var issues []Issue

	if strings.TrimSpace(m.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "mapping.table",
			Message:  "mapping.table must not be empty",
		})
	}

	if len(m.Columns) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "mapping.columns",
			Message:  "mapping.columns must list at least one column",
		})
	}

	seen := make(map[string]struct{}, len(m.Columns))
	for i, col := range m.Columns {
		path := fmt.Sprintf("mapping.columns[%d]", i)

		if col.Name == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  "column name must not be empty",
			})
			continue
		}
		if _, dup := seen[col.Name]; dup {
			// A column listed twice would silently shadow itself in SQL;
			// reject instead of leaving it to the driver.
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("duplicate column %q", col.Name),
			})
		}
		seen[col.Name] = struct{}{}

		if col.Source == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path,
				Message:  fmt.Sprintf("column %q has an empty source; it is neither the raw marker nor a field path and will be skipped", col.Name),
			})
		}
	}

	if m.Delimiter != "" && utf8.RuneCountInString(m.Delimiter) != 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "mapping.delimiter",
			Message:  fmt.Sprintf("delimiter must be a single character, got %q", m.Delimiter),
		})
	}

	return issues
}
