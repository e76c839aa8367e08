// Package lambdafn exposes the store as function handlers: load a batch,
// run a diagnostic query against one shard, and clear the store.
package lambdafn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/roach88/fieldkv/internal/config"
	"github.com/roach88/fieldkv/internal/loader"
	"github.com/roach88/fieldkv/internal/schema"
	"github.com/roach88/fieldkv/internal/store"
)

// EnvHandler selects the handler a function binary serves.
const EnvHandler = "FIELDKV_HANDLER"

// Handler names accepted by ByName.
const (
	NameLoad  = "load"
	NameQuery = "query"
	NameClear = "clear"
)

// LoadEvent carries the items of one batch.
type LoadEvent struct {
	Items []loader.Item `json:"items"`
}

// LoadResponse summarizes a batch. Failed items are reported here rather
// than as an invocation error so the batch is not retried.
type LoadResponse struct {
	BatchID  string           `json:"batch_id"`
	Items    int              `json:"items"`
	Applied  int              `json:"applied"`
	Fields   []string         `json:"fields"`
	Failures []loader.Outcome `json:"failures,omitempty"`
}

// ClearResponse lists the fields whose shards were removed.
type ClearResponse struct {
	Removed []string `json:"removed"`
}

// Handler serves function invocations against one store.
type Handler struct {
	store  *store.Store
	loader *loader.Loader
	logger *slog.Logger
}

// NewHandler creates a handler. A nil logger uses slog.Default.
func NewHandler(s *store.Store, l *loader.Loader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if l == nil {
		l = loader.New(s, loader.WithLogger(logger))
	}
	return &Handler{
		store:  s,
		loader: l,
		logger: logger,
	}
}

// FromEnv builds a handler from FIELDKV_* variables. Logs are JSON on
// stdout unless FIELDKV_LOG_FORMAT says otherwise.
func FromEnv(lookup func(string) (string, bool)) (*Handler, error) {
	cfg := config.Default()
	cfg.LogFormat = config.FormatJSON
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.NewLogger(os.Stdout)

	catalog := schema.Default()
	if cfg.Schema != "" {
		c, err := schema.Load(cfg.Schema)
		if err != nil {
			return nil, err
		}
		catalog = c
	}

	s, err := store.New(cfg.Root, store.WithKinds(catalog), store.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return NewHandler(s, loader.New(s, loader.WithLogger(logger)), logger), nil
}

// ByName returns the handler function registered under name, in a form
// lambda.Start accepts.
func (h *Handler) ByName(name string) (any, error) {
	switch name {
	case NameLoad:
		return h.HandleLoad, nil
	case NameQuery:
		return h.HandleQuery, nil
	case NameClear:
		return h.HandleClear, nil
	default:
		return nil, fmt.Errorf("unknown handler %q: must be one of load, query, clear", name)
	}
}

// HandleLoad writes a batch. It fails only when the batch could not run
// at all; per-item failures are in the response.
func (h *Handler) HandleLoad(ctx context.Context, event LoadEvent) (LoadResponse, error) {
	logger := h.requestLogger(ctx)

	res, err := h.loader.Load(ctx, event.Items)
	if err != nil {
		logger.Error("load failed", "error", err)
		return LoadResponse{}, err
	}

	resp := LoadResponse{
		BatchID:  res.BatchID,
		Items:    len(res.Outcomes),
		Applied:  res.Applied(),
		Fields:   res.Fields,
		Failures: res.Failed(),
	}
	if len(resp.Failures) > 0 {
		logger.Warn("batch loaded with failures",
			"batch_id", resp.BatchID,
			"failed", len(resp.Failures),
			"items", resp.Items,
		)
	}
	return resp, nil
}

// HandleQuery runs a diagnostic statement against one shard.
func (h *Handler) HandleQuery(ctx context.Context, event store.DiagnosticQuery) ([]store.Row, error) {
	rows, err := h.store.Query(ctx, event)
	if err != nil {
		h.requestLogger(ctx).Error("query failed", "field", event.Field, "error", err)
		return nil, err
	}
	return rows, nil
}

// HandleClear deletes every shard. The event is ignored.
func (h *Handler) HandleClear(ctx context.Context, _ map[string]any) (ClearResponse, error) {
	logger := h.requestLogger(ctx)

	before, err := h.store.Fields()
	if err != nil {
		return ClearResponse{}, err
	}
	if err := h.store.Reset(ctx); err != nil {
		logger.Error("clear failed", "error", err)
		return ClearResponse{}, err
	}
	logger.Info("store cleared", "removed", len(before))
	return ClearResponse{Removed: before}, nil
}

// requestLogger tags log lines with the invocation's request id when
// running under the function runtime.
func (h *Handler) requestLogger(ctx context.Context) *slog.Logger {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return h.logger.With("request_id", lc.AwsRequestID)
	}
	return h.logger
}

// ErrNoHandler is returned by Select when EnvHandler is unset.
var ErrNoHandler = errors.New(EnvHandler + " is not set")

// Select builds a handler from the environment and returns the function
// named by EnvHandler.
func Select(lookup func(string) (string, bool)) (any, error) {
	name, ok := lookup(EnvHandler)
	if !ok || name == "" {
		return nil, ErrNoHandler
	}
	h, err := FromEnv(lookup)
	if err != nil {
		return nil, err
	}
	return h.ByName(name)
}
