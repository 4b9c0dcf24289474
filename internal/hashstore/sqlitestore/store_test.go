package sqlitestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/hashview/internal/hashstore"
	"github.com/roach88/hashview/internal/hashstore/storetest"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T, clock hashstore.Clock) hashstore.Store {
		return createTestStore(t, WithClock(clock))
	})
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	if err := s1.Hash("rec").Set(ctx, "f", []byte("v")); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	v, err := s2.Hash("rec").Get(ctx, "f")
	if err != nil {
		t.Fatalf("Get() after reopen failed: %v", err)
	}
	if string(v) != "v" {
		t.Errorf("Get() = %q, want %q", v, "v")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"clock", "records", "fields"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}

	var rows int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM clock").Scan(&rows); err != nil {
		t.Fatalf("count clock rows: %v", err)
	}
	if rows != 1 {
		t.Errorf("clock has %d rows, want 1", rows)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.verifyPragma(tt.name, tt.expected); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestMigration_SchemaVersion(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_records_expires_at'",
	).Scan(&name)
	if err != nil {
		t.Errorf("v1 index missing: %v", err)
	}
}

func TestMigration_UpgradeFromV0(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := s.db.Exec("DROP INDEX idx_records_expires_at"); err != nil {
		t.Fatalf("drop index: %v", err)
	}
	if _, err := s.db.Exec("PRAGMA user_version = 0"); err != nil {
		t.Fatalf("reset user_version: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

func TestDeleteFields_CascadesRecordRow(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	h := s.Hash("rec")
	require.NoError(t, h.SetAll(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}))
	_, err := h.Delete(ctx, "a", "b")
	require.NoError(t, err)

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM records WHERE key = 'rec'").Scan(&n))
	require.Zero(t, n)
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM fields WHERE key = 'rec'").Scan(&n))
	require.Zero(t, n)
}

func TestRename_MovesFieldRows(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Hash("a").SetAll(ctx, map[string][]byte{"x": []byte("1"), "y": []byte("2")}))
	require.NoError(t, s.Rename(ctx, "a", "b"))

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM fields WHERE key = 'b'").Scan(&n))
	require.Equal(t, 2, n)
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM fields WHERE key = 'a'").Scan(&n))
	require.Zero(t, n)
}

func TestVersions_AreMonotonic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	read := func(key string) hashstore.Version {
		t.Helper()
		var v hashstore.Version
		err := s.read(func(q querier, now int64) error {
			var err error
			v, err = version(ctx, q, key, now)
			return err
		})
		require.NoError(t, err)
		return v
	}

	require.NoError(t, s.Hash("a").Set(ctx, "f", []byte("1")))
	first := read("a")
	require.True(t, first.Exists)

	require.NoError(t, s.Hash("b").Set(ctx, "f", []byte("1")))
	require.NoError(t, s.Hash("a").Set(ctx, "f", []byte("2")))
	second := read("a")
	require.Greater(t, second.Seq, first.Seq)

	_, err := s.Delete(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, hashstore.Version{}, read("a"))
}
