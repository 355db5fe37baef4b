package db

import (
	"testing"
)

func TestOpen_AppliesMigrations(t *testing.T) {
	d, err := Open("file:dbtest_apply?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	versions, err := AppliedVersions(d)
	if err != nil {
		t.Fatalf("applied versions: %v", err)
	}
	if len(versions) != 2 || versions[0] != 1 || versions[1] != 2 {
		t.Fatalf("unexpected applied versions: %v", versions)
	}

	if _, err := d.Exec(`INSERT INTO users (name, email, age) VALUES ('a', 'a@x', NULL)`); err != nil {
		t.Fatalf("insert into migrated table: %v", err)
	}
	if _, err := d.Exec(`INSERT INTO users (name, email) VALUES ('', 'b@x')`); err == nil {
		t.Fatalf("expected check constraint to reject blank name")
	}
}

func TestRollbackLast(t *testing.T) {
	d, err := Open("file:dbtest_rollback?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	if err := RollbackLast(d); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	versions, err := AppliedVersions(d)
	if err != nil {
		t.Fatalf("applied versions: %v", err)
	}
	if len(versions) != 1 || versions[0] != 1 {
		t.Fatalf("expected only version 1 after rollback, got %v", versions)
	}

	var n int
	if err := d.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_users_email'`).Scan(&n); err != nil {
		t.Fatalf("query index: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected email index dropped")
	}

	// Roll back the table too, then a further rollback is a no-op.
	if err := RollbackLast(d); err != nil {
		t.Fatalf("rollback 2: %v", err)
	}
	if err := RollbackLast(d); err != nil {
		t.Fatalf("rollback on empty history: %v", err)
	}
}

func TestIsMemory(t *testing.T) {
	cases := map[string]bool{
		":memory:":                        true,
		"file:x?mode=memory&cache=shared": true,
		"users.db":                        false,
	}
	for path, want := range cases {
		if got := IsMemory(path); got != want {
			t.Errorf("IsMemory(%q) = %v, want %v", path, got, want)
		}
	}
}
