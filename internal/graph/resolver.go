package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/fieldkv/internal/pool"
	"github.com/roach88/fieldkv/internal/schema"
	"github.com/roach88/fieldkv/internal/store"
	"github.com/roach88/fieldkv/internal/value"
)

// Lookup is the point-read contract the resolver needs. *store.Store
// satisfies it; a missing value must be reported as store.ErrNotFound.
type Lookup interface {
	Get(ctx context.Context, field string, uid int64) (value.Value, error)
}

// Resolver dispatches field lookups onto a pool.
// Safe for concurrent use by any number of requests.
type Resolver struct {
	lookup  Lookup
	pool    *pool.Pool
	catalog *schema.Catalog
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver returns a resolver reading through lookup. A nil pool gets a
// pool of pool.DefaultSize; a nil catalog means schema.Default().
func NewResolver(lookup Lookup, p *pool.Pool, catalog *schema.Catalog, opts ...Option) *Resolver {
	if p == nil {
		p = pool.New(pool.DefaultSize)
	}
	if catalog == nil {
		catalog = schema.Default()
	}
	r := &Resolver{
		lookup:  lookup,
		pool:    p,
		catalog: catalog,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Catalog returns the catalog fields are resolved against.
func (r *Resolver) Catalog() *schema.Catalog {
	return r.catalog
}

// FieldError is a failure scoped to one field of one node.
type FieldError struct {
	Path  []any // response path, e.g. ["transactions", 0, "amount"]
	Node  string
	ID    int64
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s(%d).%s: %v", e.Node, e.ID, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// MarshalJSON renders the error as a GraphQL error entry.
func (e *FieldError) MarshalJSON() ([]byte, error) {
	path := e.Path
	if path == nil {
		path = []any{e.Field}
	}
	return json.Marshal(struct {
		Message string `json:"message"`
		Path    []any  `json:"path"`
	}{
		Message: e.Err.Error(),
		Path:    path,
	})
}

// IsFieldError reports whether err is or wraps a *FieldError.
func IsFieldError(err error) bool {
	var fe *FieldError
	return errors.As(err, &fe)
}

// errUnknownField reports a field the variant does not declare.
func errUnknownField(variant, field string) error {
	return fmt.Errorf("graph: %s has no field %q", variant, field)
}

// field looks up a declared field of a variant.
func (r *Resolver) field(variant, name string) (schema.Field, error) {
	v, ok := r.catalog.Variant(variant)
	if !ok {
		return schema.Field{}, fmt.Errorf("graph: unknown node type %q", variant)
	}
	f, ok := v.Field(name)
	if !ok {
		return schema.Field{}, errUnknownField(v.Name, name)
	}
	return f, nil
}

// fetch dispatches one point lookup. The future carries the raw result;
// store.ErrNotFound is passed through unwrapped so callers can decide.
func (r *Resolver) fetch(ctx context.Context, f schema.Field, id int64) *pool.Future[value.Value] {
	return pool.Go(ctx, r.pool, func(ctx context.Context) (value.Value, error) {
		return r.lookup.Get(ctx, f.Shard, id)
	})
}

// resolve dispatches a lookup of variant.name for id and converts the
// result with conv. Absent values are handed to absent, which decides
// whether they are an error.
func resolve[T any](
	ctx context.Context,
	r *Resolver,
	variant, name string,
	id int64,
	conv func(f schema.Field, v value.Value) (T, error),
	absent func(f schema.Field) (T, error),
) *pool.Future[T] {
	f, err := r.field(variant, name)
	if err != nil {
		var zero T
		return pool.Resolved(zero, &FieldError{Node: variant, ID: id, Field: name, Err: err})
	}

	return pool.Go(ctx, r.pool, func(ctx context.Context) (T, error) {
		var out T
		v, err := r.lookup.Get(ctx, f.Shard, id)
		switch {
		case store.IsNotFound(err):
			out, err = absent(f)
		case err == nil:
			out, err = conv(f, v)
		}
		if err != nil {
			r.logger.Debug("field resolution failed",
				"node", variant, "id", id, "field", name, "error", err)
			var zero T
			return zero, &FieldError{Node: variant, ID: id, Field: name, Err: err}
		}
		return out, nil
	})
}

// required treats an absent value as an error unless the field is
// optional, in which case the zero value is returned.
func required[T any](f schema.Field) (T, error) {
	var zero T
	if f.Optional {
		return zero, nil
	}
	return zero, store.ErrNotFound
}

func wrongKind(f schema.Field, v value.Value) error {
	return fmt.Errorf("graph: %s holds %s value, want %s", f.Shard, v.Kind(), f.Kind.ValueKind())
}

func asString(f schema.Field, v value.Value) (string, error) {
	s, ok := v.(value.String)
	if !ok {
		return "", wrongKind(f, v)
	}
	return string(s), nil
}

func asOptionalString(f schema.Field, v value.Value) (*string, error) {
	s, err := asString(f, v)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func asInt(f schema.Field, v value.Value) (int64, error) {
	i, ok := v.(value.Integer)
	if !ok {
		return 0, wrongKind(f, v)
	}
	return int64(i), nil
}

func asDecimal(f schema.Field, v value.Value) (value.Decimal, error) {
	d, ok := v.(value.Decimal)
	if !ok {
		return value.Decimal{}, wrongKind(f, v)
	}
	return d, nil
}

func asTimestamp(f schema.Field, v value.Value) (value.Timestamp, error) {
	ts, ok := v.(value.Timestamp)
	if !ok {
		return value.Timestamp{}, wrongKind(f, v)
	}
	return ts, nil
}

func asIDs(f schema.Field, v value.Value) (value.IdentifierList, error) {
	ids, ok := v.(value.IdentifierList)
	if !ok {
		return nil, wrongKind(f, v)
	}
	return ids, nil
}
