package sqlstore

import "testing"

func TestRebind(t *testing.T) {
	q := "SELECT a FROM t WHERE x = ? AND y >= ?"
	if got := SQLite.Rebind(q); got != q {
		t.Fatalf("sqlite should keep placeholders: %s", got)
	}
	want := "SELECT a FROM t WHERE x = $1 AND y >= $2"
	if got := Postgres.Rebind(q); got != want {
		t.Fatalf("unexpected rebind %s", got)
	}
}

func TestDialectFor(t *testing.T) {
	if d, err := DialectFor("Postgres"); err != nil || d.Driver != "pgx" {
		t.Fatalf("postgres dialect: %v %v", d, err)
	}
	if d, err := DialectFor("sqlite"); err != nil || d.Driver != "sqlite" {
		t.Fatalf("sqlite dialect: %v %v", d, err)
	}
	if _, err := DialectFor("mysql"); err == nil {
		t.Fatalf("expected error")
	}
}
