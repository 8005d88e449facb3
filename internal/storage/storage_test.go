package storage

import (
	"context"
	"strings"
	"testing"
)

type nopConn struct{}

func (nopConn) Close()                                  {}
func (nopConn) InsertIgnore(string, []string) string    { return "" }
func (nopConn) Exec(context.Context, string, []any) error { return nil }

func TestNew_UnknownKind(t *testing.T) {
	if _, err := New(context.Background(), Config{Kind: "nope"}); err == nil {
		t.Fatalf("expected error for unregistered kind")
	} else if !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_EmptyKind(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for empty kind")
	}
}

func TestRegisterAndNew(t *testing.T) {
	Register("fake", func(ctx context.Context, cfg Config) (Conn, error) {
		return nopConn{}, nil
	})

	c, err := New(context.Background(), Config{Kind: "fake", DSN: "x"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c == nil {
		t.Fatalf("expected a conn")
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate registration")
		}
	}()
	Register("dup", func(ctx context.Context, cfg Config) (Conn, error) { return nopConn{}, nil })
	Register("dup", func(ctx context.Context, cfg Config) (Conn, error) { return nopConn{}, nil })
}
