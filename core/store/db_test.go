package store

import "testing"

func TestRebindPostgres(t *testing.T) {
	got := rebind(true, "UPDATE incidents SET title=? WHERE id=? AND version=?")
	want := "UPDATE incidents SET title=$1 WHERE id=$2 AND version=$3"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestRebindSQLiteUntouched(t *testing.T) {
	q := "SELECT id FROM incidents WHERE id=?"
	if got := rebind(false, q); got != q {
		t.Fatalf("sqlite query rewritten: %q", got)
	}
}

func TestSQLiteDSNAddsPragmas(t *testing.T) {
	if got := sqliteDSN("file:a.db"); got != "file:a.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)" {
		t.Fatalf("unexpected dsn %q", got)
	}
	if got := sqliteDSN("file:a.db?mode=rwc"); got != "file:a.db?mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)" {
		t.Fatalf("unexpected dsn %q", got)
	}
}
