package testutil

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"userStoreService/internal/db"
)

// OpenInMemoryDB opens a named shared-cache in-memory SQLite database with
// migrations applied. The name must be unique per test so data does not leak.
func OpenInMemoryDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	d, err := db.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
