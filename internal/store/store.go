package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/fieldkv/internal/value"
)

// Mode is the access mode of a shard handle.
type Mode string

const (
	// ReadOnly handles never write and are never blocked by a writer.
	ReadOnly Mode = "ro"
	// ReadWriteCreate handles may write; only one can hold the write lock.
	ReadWriteCreate Mode = "rwc"
)

// DefaultBusyTimeout is how long a connection waits on a locked shard.
const DefaultBusyTimeout = 5 * time.Second

const schemaSQL = `CREATE TABLE IF NOT EXISTS items(uid INTEGER PRIMARY KEY, value)`

// Kinds tells the store which value kind a field holds.
// Fields it does not know are decoded by the column's storage class.
type Kinds interface {
	KindOf(field string) (value.Kind, bool)
}

// Store is a directory of field shards.
// Safe for concurrent use; it holds no open connections itself.
type Store struct {
	root        string
	kinds       Kinds
	logger      *slog.Logger
	busyTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithKinds sets the field kind catalog used to encode and decode values.
func WithKinds(k Kinds) Option {
	return func(s *Store) {
		s.kinds = k
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithBusyTimeout overrides DefaultBusyTimeout.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.busyTimeout = d
	}
}

// New returns a store rooted at root, creating the directory if needed.
func New(root string, opts ...Option) (*Store, error) {
	if root == "" {
		return nil, storageErr("open store", "", fmt.Errorf("empty root"))
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, storageErr("open store", "", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, storageErr("open store", "", err)
	}

	s := &Store{
		root:        abs,
		logger:      slog.Default(),
		busyTimeout: DefaultBusyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the absolute store directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the shard file backing field.
func (s *Store) Path(field string) (string, error) {
	name, err := NormalizeField(field)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, name+shardExt), nil
}

// KindOf returns the kind the catalog declares for field.
func (s *Store) KindOf(field string) (value.Kind, bool) {
	if s.kinds == nil {
		return "", false
	}
	return s.kinds.KindOf(field)
}

// dsn builds a go-sqlite3 URI for path in the given mode.
func (s *Store) dsn(path string, mode Mode) string {
	q := url.Values{}
	q.Set("mode", string(mode))
	q.Set("_busy_timeout", strconv.FormatInt(s.busyTimeout.Milliseconds(), 10))
	if mode == ReadWriteCreate {
		q.Set("_journal_mode", "WAL")
		q.Set("_synchronous", "NORMAL")
		q.Set("_txlock", "immediate")
	}
	return "file:" + (&url.URL{Path: path}).EscapedPath() + "?" + q.Encode()
}

// ensureSchema creates the shard file and table if missing.
// Safe to race: CREATE TABLE IF NOT EXISTS under the busy timeout.
func (s *Store) ensureSchema(ctx context.Context, field, path string) error {
	db, err := sql.Open("sqlite3", s.dsn(path, ReadWriteCreate))
	if err != nil {
		return storageErr("create shard", field, err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return storageErr("create shard", field, err)
	}
	return nil
}

// Open returns a handle on field's shard. The shard is created first
// regardless of mode. The caller must Close the handle.
func (s *Store) Open(ctx context.Context, field string, mode Mode) (*Shard, error) {
	if mode != ReadOnly && mode != ReadWriteCreate {
		return nil, storageErr("open", field, fmt.Errorf("unknown mode %q", mode))
	}

	name, err := NormalizeField(field)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(s.root, name+shardExt)

	if err := s.ensureSchema(ctx, name, path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", s.dsn(path, mode))
	if err != nil {
		return nil, storageErr("open", name, err)
	}

	// One connection per handle: a write handle is the shard's single writer
	// and Tx work never competes with itself for the lock.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storageErr("open", name, err)
	}

	kind, known := s.KindOf(name)
	return &Shard{
		field: name,
		path:  path,
		mode:  mode,
		db:    db,
		kind:  kind,
		known: known,
	}, nil
}

// Get reads field for uid through a short-lived read-only handle.
// Returns ErrNotFound if the shard has no value for uid.
func (s *Store) Get(ctx context.Context, field string, uid int64) (value.Value, error) {
	sh, err := s.Open(ctx, field, ReadOnly)
	if err != nil {
		return nil, err
	}
	defer sh.Close()
	return sh.Get(ctx, uid)
}

// Put writes v for uid and commits before returning.
func (s *Store) Put(ctx context.Context, field string, uid int64, v value.Value) error {
	sh, err := s.Open(ctx, field, ReadWriteCreate)
	if err != nil {
		return err
	}
	defer sh.Close()
	return sh.Put(ctx, uid, v)
}

// Delete removes uid from field and commits before returning.
// Deleting an absent uid is not an error.
func (s *Store) Delete(ctx context.Context, field string, uid int64) error {
	sh, err := s.Open(ctx, field, ReadWriteCreate)
	if err != nil {
		return err
	}
	defer sh.Close()
	return sh.Delete(ctx, uid)
}

// Fields lists the fields that have a shard file, sorted by name.
func (s *Store) Fields() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, storageErr("list fields", "", err)
	}

	fields := []string{}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if field, ok := fieldFromFile(e.Name()); ok {
			fields = append(fields, field)
		}
	}
	slices.Sort(fields)
	return fields, nil
}
