package mysql

import "testing"

func TestBuildInsertIgnoreSQL(t *testing.T) {
	got := buildInsertIgnoreSQL("logs", []string{"log", "name", "unix"})
	want := "INSERT IGNORE INTO logs (`log`, `name`, `unix`) VALUES (?, ?, ?)"
	if got != want {
		t.Fatalf("sql mismatch:\n got: %s\nwant: %s", got, want)
	}
}

func TestMyIdent_EscapesBackticks(t *testing.T) {
	if got := myIdent("we`ird"); got != "`we``ird`" {
		t.Fatalf("myIdent = %s", got)
	}
}
