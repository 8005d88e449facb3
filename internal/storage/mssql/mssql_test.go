package mssql

import (
	"errors"
	"fmt"
	"testing"

	mssqldb "github.com/microsoft/go-mssqldb"
)

func TestBuildInsertSQL(t *testing.T) {
	got := buildInsertSQL("dbo.logs", []string{"log", "name", "unix"})
	want := "INSERT INTO dbo.logs ([log], [name], [unix]) VALUES (@p1, @p2, @p3)"
	if got != want {
		t.Fatalf("sql mismatch:\n got: %s\nwant: %s", got, want)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	if !isDuplicateKey(mssqldb.Error{Number: 2627}) {
		t.Fatalf("2627 should be treated as duplicate key")
	}
	if !isDuplicateKey(fmt.Errorf("exec: %w", mssqldb.Error{Number: 2601})) {
		t.Fatalf("wrapped 2601 should be treated as duplicate key")
	}
	if isDuplicateKey(mssqldb.Error{Number: 208}) {
		t.Fatalf("invalid object name is not a duplicate key")
	}
	if isDuplicateKey(errors.New("plain")) {
		t.Fatalf("non-driver error is not a duplicate key")
	}
}

func TestMsIdent_EscapesClosingBracket(t *testing.T) {
	if got := msIdent("we]ird"); got != "[we]]ird]" {
		t.Fatalf("msIdent = %s", got)
	}
}
