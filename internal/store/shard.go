package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/roach88/fieldkv/internal/value"
)

// Shard is an open handle on one field's table.
// A handle wraps a single connection; close it when done.
type Shard struct {
	field string
	path  string
	mode  Mode
	db    *sql.DB
	kind  value.Kind // zero unless known
	known bool
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Field returns the normalized field name.
func (sh *Shard) Field() string { return sh.field }

// Path returns the shard file path.
func (sh *Shard) Path() string { return sh.path }

// Mode returns the access mode the handle was opened with.
func (sh *Shard) Mode() Mode { return sh.mode }

// Close releases the handle's connection.
func (sh *Shard) Close() error {
	if sh.db == nil {
		return nil
	}
	return sh.db.Close()
}

// Get returns the value stored for uid, decoded by the field's kind.
// A missing row or a NULL value is ErrNotFound.
func (sh *Shard) Get(ctx context.Context, uid int64) (value.Value, error) {
	var raw any
	err := sh.db.QueryRowContext(ctx, `SELECT value FROM items WHERE uid = ?`, uid).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get", sh.field, err)
	}
	if raw == nil {
		return nil, ErrNotFound
	}

	kind := sh.kind
	if !sh.known {
		kind = value.Infer(raw)
	}
	return value.Decode(kind, raw)
}

// Put writes v for uid on the handle's connection (autocommit).
func (sh *Shard) Put(ctx context.Context, uid int64, v value.Value) error {
	return sh.put(ctx, sh.db, uid, v)
}

// Delete removes uid on the handle's connection (autocommit).
func (sh *Shard) Delete(ctx context.Context, uid int64) error {
	return sh.delete(ctx, sh.db, uid)
}

// Coerce converts loose input to a value of the field's kind. Fields the
// catalog does not describe take the kind the input suggests.
func (sh *Shard) Coerce(in any) (value.Value, error) {
	kind := sh.kind
	if !sh.known {
		kind = value.InferInput(in)
	}
	return value.From(kind, in)
}

func (sh *Shard) put(ctx context.Context, ex execer, uid int64, v value.Value) error {
	if sh.known && v != nil && v.Kind() != sh.kind {
		return &value.MalformedError{Kind: sh.kind, Raw: v.String(), Err: errors.New("got " + string(v.Kind()) + " value")}
	}
	raw, err := value.Encode(v)
	if err != nil {
		return storageErr("put", sh.field, err)
	}
	if _, err := ex.ExecContext(ctx, `REPLACE INTO items(uid, value) VALUES(?, ?)`, uid, raw); err != nil {
		return storageErr("put", sh.field, err)
	}
	return nil
}

func (sh *Shard) delete(ctx context.Context, ex execer, uid int64) error {
	if _, err := ex.ExecContext(ctx, `DELETE FROM items WHERE uid = ?`, uid); err != nil {
		return storageErr("delete", sh.field, err)
	}
	return nil
}

// Count returns the number of rows in the shard.
func (sh *Shard) Count(ctx context.Context) (int, error) {
	var n int
	if err := sh.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, storageErr("count", sh.field, err)
	}
	return n, nil
}

// UIDs returns every uid in the shard in ascending order.
func (sh *Shard) UIDs(ctx context.Context) ([]int64, error) {
	rows, err := sh.db.QueryContext(ctx, `SELECT uid FROM items ORDER BY uid ASC`)
	if err != nil {
		return nil, storageErr("list uids", sh.field, err)
	}
	defer rows.Close()

	uids := []int64{}
	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			return nil, storageErr("list uids", sh.field, err)
		}
		uids = append(uids, uid)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list uids", sh.field, err)
	}
	return uids, nil
}

// Tx is a write transaction on one shard. Puts and deletes become visible
// to readers only on Commit.
type Tx struct {
	shard *Shard
	tx    *sql.Tx
}

// Begin starts a transaction. On a ReadWriteCreate handle it takes the
// shard's write lock immediately, waiting up to the busy timeout.
func (sh *Shard) Begin(ctx context.Context) (*Tx, error) {
	tx, err := sh.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin", sh.field, err)
	}
	return &Tx{shard: sh, tx: tx}, nil
}

// Put writes v for uid inside the transaction.
func (t *Tx) Put(ctx context.Context, uid int64, v value.Value) error {
	return t.shard.put(ctx, t.tx, uid, v)
}

// Delete removes uid inside the transaction.
func (t *Tx) Delete(ctx context.Context, uid int64) error {
	return t.shard.delete(ctx, t.tx, uid)
}

// Commit makes the transaction's writes durable.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return storageErr("commit", t.shard.field, err)
	}
	return nil
}

// Rollback discards the transaction. Safe to call after Commit.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return storageErr("rollback", t.shard.field, err)
	}
	return nil
}
