package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/fieldkv/internal/store"
)

// Loader applies batches of items to a store.
// Safe for concurrent use; concurrent batches touching the same field
// serialize on that shard's write lock.
type Loader struct {
	store  *store.Store
	ids    BatchIDGenerator
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithBatchIDGenerator overrides the UUIDv7 batch id source.
func WithBatchIDGenerator(g BatchIDGenerator) Option {
	return func(l *Loader) {
		l.ids = g
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// New returns a loader writing to s.
func New(s *store.Store, opts ...Option) *Loader {
	l := &Loader{
		store:  s,
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Outcome reports what happened to one input item.
type Outcome struct {
	Index int    // position in the input batch
	Field string // normalized when the name was valid
	UID   int64
	Err   error
}

// OK reports whether the item was committed.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// MarshalJSON renders the error as its message.
func (o Outcome) MarshalJSON() ([]byte, error) {
	out := struct {
		Index int    `json:"index"`
		Field string `json:"field"`
		UID   int64  `json:"uid"`
		OK    bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}{
		Index: o.Index,
		Field: o.Field,
		UID:   o.UID,
		OK:    o.OK(),
	}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	return json.Marshal(out)
}

// Result is the report of one batch.
type Result struct {
	BatchID  string    `json:"batch_id"`
	Outcomes []Outcome `json:"outcomes"`
	Fields   []string  `json:"fields"` // fields committed, sorted
}

// Failed returns the outcomes that did not commit, in input order.
func (r *Result) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Applied returns the number of items committed.
func (r *Result) Applied() int {
	return len(r.Outcomes) - len(r.Failed())
}

type job struct {
	index int
	uid   int64
	value any
}

type failure struct {
	index int
	err   error
}

// fieldWriter owns one field's shard for the duration of a batch.
// Only its worker goroutine touches applied and failed until the barrier.
type fieldWriter struct {
	field   string
	shard   *store.Shard
	tx      *store.Tx
	queue   *queue[job]
	openErr error

	applied []int
	failed  []failure
	stopErr error
}

// Load applies items and reports one Outcome per item, in input order.
//
// The returned error is non-nil only when the batch could not be attempted
// at all; individual failures are reported in the Result.
func (l *Loader) Load(ctx context.Context, items []Item) (*Result, error) {
	if l.store == nil {
		return nil, fmt.Errorf("loader: nil store")
	}

	start := time.Now()
	res := &Result{
		BatchID:  l.ids.Generate(),
		Outcomes: make([]Outcome, len(items)),
		Fields:   []string{},
	}
	logger := l.logger.With("batch_id", res.BatchID)
	logger.Info("batch starting", "items", len(items))

	writers := make(map[string]*fieldWriter)
	var order []string
	var wg sync.WaitGroup

	for i, it := range items {
		res.Outcomes[i] = Outcome{Index: i, Field: it.Field, UID: it.UID}

		name, err := store.NormalizeField(it.Field)
		if err != nil {
			res.Outcomes[i].Err = err
			logger.Error("item rejected", "field", it.Field, "uid", it.UID, "error", err)
			continue
		}
		res.Outcomes[i].Field = name

		w, ok := writers[name]
		if !ok {
			w = l.openWriter(ctx, name)
			writers[name] = w
			order = append(order, name)
			if w.openErr == nil {
				wg.Add(1)
				go func() {
					defer wg.Done()
					w.run(ctx, logger)
				}()
			} else {
				logger.Error("shard open failed", "field", name, "error", w.openErr)
			}
		}

		if w.openErr != nil {
			res.Outcomes[i].Err = w.openErr
			continue
		}
		w.queue.Enqueue(job{index: i, uid: it.UID, value: it.Value})
	}

	// Every item is queued: tell each worker to finish once drained.
	for _, name := range order {
		if w := writers[name]; w.queue != nil {
			w.queue.Close()
		}
	}
	wg.Wait()

	for _, name := range order {
		w := writers[name]
		if w.openErr != nil {
			continue
		}
		for _, f := range w.failed {
			res.Outcomes[f.index].Err = f.err
		}
		if err := w.finish(); err != nil {
			logger.Error("shard commit failed", "field", name, "error", err)
			for _, idx := range w.applied {
				res.Outcomes[idx].Err = err
			}
			continue
		}
		res.Fields = append(res.Fields, name)
	}
	slices.Sort(res.Fields)

	logger.Info("batch finished",
		"items", len(items),
		"applied", res.Applied(),
		"failed", len(items)-res.Applied(),
		"fields", len(res.Fields),
		"duration", time.Since(start),
	)
	return res, nil
}

// openWriter opens field's shard for writing and takes its write lock.
func (l *Loader) openWriter(ctx context.Context, field string) *fieldWriter {
	w := &fieldWriter{field: field}

	sh, err := l.store.Open(ctx, field, store.ReadWriteCreate)
	if err != nil {
		w.openErr = err
		return w
	}
	tx, err := sh.Begin(ctx)
	if err != nil {
		sh.Close()
		w.openErr = err
		return w
	}

	w.shard = sh
	w.tx = tx
	w.queue = newQueue[job]()
	return w
}

// run drains the queue in enqueue order. It returns when the queue is
// closed and empty, or when ctx ends.
func (w *fieldWriter) run(ctx context.Context, logger *slog.Logger) {
	for {
		j, ok, err := w.queue.Next(ctx)
		if err != nil {
			w.stopErr = err
			return
		}
		if !ok {
			return
		}

		v, err := w.shard.Coerce(j.value)
		if err == nil {
			err = w.tx.Put(ctx, j.uid, v)
		}
		if err != nil {
			logger.Error("item failed", "field", w.field, "uid", j.uid, "error", err)
			w.failed = append(w.failed, failure{index: j.index, err: err})
			continue
		}
		w.applied = append(w.applied, j.index)
	}
}

// finish commits the writer's transaction, or rolls it back if the worker
// stopped early, and closes the shard. Items left in the queue are failed.
func (w *fieldWriter) finish() error {
	defer w.shard.Close()

	if w.stopErr != nil {
		for {
			j, ok := w.queue.TryDequeue()
			if !ok {
				break
			}
			w.applied = append(w.applied, j.index)
		}
		if err := w.tx.Rollback(); err != nil {
			return fmt.Errorf("%w (rollback: %v)", w.stopErr, err)
		}
		return w.stopErr
	}

	return w.tx.Commit()
}
