package store

import (
	"context"
	"testing"

	"github.com/roach88/fieldkv/internal/schema"
	"github.com/roach88/fieldkv/internal/value"
)

// createTestStore creates a store in a fresh temp directory using the
// default claims catalog.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithKinds(schema.Default())}, opts...)
	s, err := New(t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return s
}

// mustPut writes a value or fails the test.
func mustPut(t *testing.T, s *Store, field string, uid int64, v value.Value) {
	t.Helper()
	if err := s.Put(context.Background(), field, uid, v); err != nil {
		t.Fatalf("Put(%s, %d) failed: %v", field, uid, err)
	}
}

// rawExec runs a statement against a shard, bypassing value encoding.
func rawExec(t *testing.T, s *Store, field, stmt string, args ...any) {
	t.Helper()
	ctx := context.Background()
	sh, err := s.Open(ctx, field, ReadWriteCreate)
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", field, err)
	}
	defer sh.Close()
	if _, err := sh.db.ExecContext(ctx, stmt, args...); err != nil {
		t.Fatalf("exec %q failed: %v", stmt, err)
	}
}
