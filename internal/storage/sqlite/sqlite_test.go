package sqlite

import "testing"

func TestBuildInsertIgnoreSQL(t *testing.T) {
	got := buildInsertIgnoreSQL("logs", []string{"log", "name", "unix"})
	want := `INSERT OR IGNORE INTO logs ("log", "name", "unix") VALUES (?, ?, ?)`
	if got != want {
		t.Fatalf("sql mismatch:\n got: %s\nwant: %s", got, want)
	}
}
