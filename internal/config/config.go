// Package config defines the JSON configuration model for the shipper and a
// small static validator over it.
//
// A config file looks like:
//
//	{
//	  "job": "applogs",
//	  "storage": { "kind": "postgres", "dsn": "postgres://..." },
//	  "mapping": {
//	    "table": "logs",
//	    "columns": { "log": "*", "name": "name", "unix": "time" },
//	    "delimiter": "."
//	  }
//	}
//
// Column sources are either the raw-record marker "*" or a delimiter-
// separated field path into the parsed record. The order of the columns
// object is significant (it drives classification order downstream), so
// Columns decodes with a token walker instead of a Go map.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Config is the top-level object decoded from a config file.
type Config struct {
	// Job names the run for metrics tagging. Optional; defaults downstream.
	Job string `json:"job"`

	// Storage selects the database backend and its DSN.
	Storage Storage `json:"storage"`

	// Mapping describes the destination table and column sources.
	Mapping Mapping `json:"mapping"`
}

// Storage selects the sink used to persist records.
type Storage struct {
	// Kind selects the backend implementation: "postgres", "mysql",
	// "sqlite", or "mssql".
	Kind string `json:"kind"`

	// DSN is the backend connection string. Environment variables in the
	// form $VAR or ${VAR} are expanded before the pool is opened.
	DSN string `json:"dsn"`
}

// Mapping describes the destination table and its column sources.
type Mapping struct {
	// Table is the destination table name (may be schema-qualified).
	Table string `json:"table"`

	// Columns is the ordered column -> source mapping.
	Columns Columns `json:"columns"`

	// Delimiter separates field path segments. Single character;
	// default ".".
	Delimiter string `json:"delimiter"`
}

// Column is one (column name, source) pair.
type Column struct {
	Name   string
	Source string
}

// Columns preserves the file order of the columns object, which encoding/json
// maps would lose.
type Columns []Column

// UnmarshalJSON decodes a JSON object into an ordered column list by walking
// decoder tokens. null decodes to an empty list; any other non-object shape
// is an error, as is a non-string source value.
func (c *Columns) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("config: columns: %w", err)
	}
	if tok == nil {
		*c = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("config: columns must be a JSON object")
	}

	var out Columns
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("config: columns: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("config: columns: unexpected key token %v", keyTok)
		}

		var src string
		if err := dec.Decode(&src); err != nil {
			return fmt.Errorf("config: column %q: source must be a string", key)
		}
		out = append(out, Column{Name: key, Source: src})
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("config: columns: %w", err)
	}

	*c = out
	return nil
}

// MarshalJSON renders the columns back as an object in list order.
func (c Columns) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, col := range c {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(col.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(col.Source)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// Load reads and decodes a config file.
func Load(path string) (Config, error) {
	var cfg Config

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("config: open: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}
