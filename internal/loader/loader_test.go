package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldkv/internal/store"
	"github.com/roach88/fieldkv/internal/testutil"
	"github.com/roach88/fieldkv/internal/value"
)

func newTestLoader(t *testing.T, s *store.Store) *Loader {
	t.Helper()
	return New(s,
		WithBatchIDGenerator(testutil.NewFixedBatchID("batch-test")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func countRows(t *testing.T, s *store.Store, field string) int {
	t.Helper()
	sh, err := s.Open(context.Background(), field, store.ReadOnly)
	require.NoError(t, err)
	defer sh.Close()
	n, err := sh.Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestLoad_EndToEnd(t *testing.T) {
	s := testutil.NewStore(t)
	l := newTestLoader(t, s)
	ctx := context.Background()

	res, err := l.Load(ctx, []Item{{"claim_type_code", 1, "AUTO"}})
	require.NoError(t, err)
	require.Empty(t, res.Failed())

	v, err := s.Get(ctx, "claim_type_code", 1)
	require.NoError(t, err)
	assert.Equal(t, value.String("AUTO"), v)

	res, err = l.Load(ctx, []Item{{"transaction_amount", 5, "10.5"}})
	require.NoError(t, err)
	require.Empty(t, res.Failed())

	v, err = s.Get(ctx, "transaction_amount", 5)
	require.NoError(t, err)
	assert.Equal(t, "10.50", v.String())
}

func TestLoad_RowsAndShardsPerField(t *testing.T) {
	s := testutil.NewStore(t)
	l := newTestLoader(t, s)

	fields := []string{"claim_type_code", "transaction_identifier", "transaction_source_system_code", "ad_hoc_field"}
	var items []Item
	for uid := int64(1); uid <= 25; uid++ {
		for _, f := range fields {
			items = append(items, Item{Field: f, UID: uid, Value: fmt.Sprintf("%s-%d", f, uid)})
		}
	}

	res, err := l.Load(context.Background(), items)
	require.NoError(t, err)
	require.Empty(t, res.Failed())
	assert.Equal(t, len(items), res.Applied())
	assert.Equal(t, "batch-test", res.BatchID)
	assert.ElementsMatch(t, fields, res.Fields)

	total := 0
	for _, f := range fields {
		n := countRows(t, s, f)
		assert.Equal(t, 25, n, "rows in %s", f)
		total += n
	}
	assert.Equal(t, len(items), total)

	got, err := s.Fields()
	require.NoError(t, err)
	assert.ElementsMatch(t, fields, got)
}

func TestLoad_LaterItemWins(t *testing.T) {
	s := testutil.NewStore(t)
	l := newTestLoader(t, s)
	ctx := context.Background()

	var items []Item
	for i := 0; i < 100; i++ {
		items = append(items, Item{"claim_type_code", 1, fmt.Sprintf("v%d", i)})
	}
	items = append(items, Item{"claim_identifier", 1, 1})

	res, err := l.Load(ctx, items)
	require.NoError(t, err)
	require.Empty(t, res.Failed())

	v, err := s.Get(ctx, "claim_type_code", 1)
	require.NoError(t, err)
	assert.Equal(t, value.String("v99"), v)
	assert.Equal(t, 1, countRows(t, s, "claim_type_code"))
}

func TestLoad_ItemFailureDoesNotAbortBatch(t *testing.T) {
	s := testutil.NewStore(t)
	l := newTestLoader(t, s)
	ctx := context.Background()

	items := []Item{
		{"claim_identifier", 1, 1},
		{"claim_identifier", 2, "not-a-number"},
		{"claim_identifier", 3, 3},
		{"claim_parties", 1, "[1, oops]"},
		{"claim_parties", 2, "[4,5]"},
	}

	res, err := l.Load(ctx, items)
	require.NoError(t, err)
	require.Len(t, res.Outcomes, len(items))

	failed := res.Failed()
	require.Len(t, failed, 2)
	assert.Equal(t, 1, failed[0].Index)
	assert.True(t, value.IsMalformed(failed[0].Err))
	assert.Equal(t, 3, failed[1].Index)
	assert.True(t, value.IsMalformed(failed[1].Err))

	for _, i := range []int{0, 2, 4} {
		assert.True(t, res.Outcomes[i].OK(), "item %d", i)
	}

	assert.Equal(t, 2, countRows(t, s, "claim_identifier"))
	v, err := s.Get(ctx, "claim_parties", 2)
	require.NoError(t, err)
	assert.Equal(t, value.IdentifierList{4, 5}, v)

	_, err = s.Get(ctx, "claim_identifier", 2)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLoad_InvalidField(t *testing.T) {
	s := testutil.NewStore(t)
	l := newTestLoader(t, s)

	res, err := l.Load(context.Background(), []Item{
		{"../escape", 1, "x"},
		{"", 2, "x"},
		{"claim_type_code", 3, "OK"},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, res.Outcomes[0].Err, store.ErrInvalidField)
	assert.ErrorIs(t, res.Outcomes[1].Err, store.ErrInvalidField)
	assert.True(t, res.Outcomes[2].OK())
	assert.Equal(t, []string{"claim_type_code"}, res.Fields)

	fields, err := s.Fields()
	require.NoError(t, err)
	assert.Equal(t, []string{"claim_type_code"}, fields)
}

func TestLoad_TypedValuesPassThrough(t *testing.T) {
	s := testutil.NewStore(t)
	l := newTestLoader(t, s)
	ctx := context.Background()

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	res, err := l.Load(ctx, []Item{
		{"claim_timestamp", 1, value.Timestamp(ts)},
		{"claim_transactions", 1, value.IdentifierList{10, 11}},
		{"transaction_amount", 10, json.Number("99.995")},
		{"transaction_claim", 10, json.Number("1")},
		{"claim_type_code", 1, value.Integer(5)},
	})
	require.NoError(t, err)

	failed := res.Failed()
	require.Len(t, failed, 1, "integer into a string field must fail")
	assert.Equal(t, 4, failed[0].Index)

	v, err := s.Get(ctx, "claim_timestamp", 1)
	require.NoError(t, err)
	assert.True(t, ts.Equal(v.(value.Timestamp).Time()))

	v, err = s.Get(ctx, "claim_transactions", 1)
	require.NoError(t, err)
	assert.Equal(t, value.IdentifierList{10, 11}, v)

	v, err = s.Get(ctx, "transaction_amount", 10)
	require.NoError(t, err)
	assert.Equal(t, "100.00", v.String())

	v, err = s.Get(ctx, "transaction_claim", 10)
	require.NoError(t, err)
	assert.Equal(t, value.Integer(1), v)
}

func TestLoad_UnixSecondsTimestamps(t *testing.T) {
	s := testutil.NewStore(t)
	l := newTestLoader(t, s)
	ctx := context.Background()

	items, err := DecodeItems(strings.NewReader(`[
		["claim_timestamp", 1, 1700000000],
		["claim_timestamp", 2, "1700000060"],
		["party_timestamp", 100, "2023-11-14 22:13:20"]
	]`))
	require.NoError(t, err)

	res, err := l.Load(ctx, items)
	require.NoError(t, err)
	require.Empty(t, res.Failed())

	want := time.Unix(1700000000, 0)
	for _, tc := range []struct {
		field string
		uid   int64
		want  time.Time
	}{
		{"claim_timestamp", 1, want},
		{"claim_timestamp", 2, want.Add(time.Minute)},
		{"party_timestamp", 100, want},
	} {
		v, err := s.Get(ctx, tc.field, tc.uid)
		require.NoError(t, err, tc.field)
		assert.True(t, tc.want.Equal(v.(value.Timestamp).Time()), "%s[%d] = %v", tc.field, tc.uid, v)
	}
}

func TestLoad_ShardLockedByAnotherWriter(t *testing.T) {
	s := testutil.NewStore(t, store.WithBusyTimeout(50*time.Millisecond))
	l := newTestLoader(t, s)
	ctx := context.Background()

	holder, err := s.Open(ctx, "claim_type_code", store.ReadWriteCreate)
	require.NoError(t, err)
	defer holder.Close()
	tx, err := holder.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	res, err := l.Load(ctx, []Item{
		{"claim_type_code", 1, "AUTO"},
		{"claim_identifier", 1, 1},
		{"claim_type_code", 2, "HOME"},
	})
	require.NoError(t, err)

	assert.True(t, store.IsStorageError(res.Outcomes[0].Err))
	assert.True(t, res.Outcomes[1].OK())
	assert.True(t, store.IsStorageError(res.Outcomes[2].Err))
	assert.Equal(t, []string{"claim_identifier"}, res.Fields)
}

func TestLoad_CancelledContext(t *testing.T) {
	s := testutil.NewStore(t)
	l := newTestLoader(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := l.Load(ctx, []Item{
		{"claim_type_code", 1, "AUTO"},
		{"claim_identifier", 1, 1},
	})
	require.NoError(t, err)
	require.Len(t, res.Failed(), 2)
	for _, o := range res.Outcomes {
		assert.True(t, errors.Is(o.Err, context.Canceled), "outcome %d: %v", o.Index, o.Err)
	}
	assert.Empty(t, res.Fields)

	_, err = s.Get(context.Background(), "claim_type_code", 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLoad_EmptyBatch(t *testing.T) {
	s := testutil.NewStore(t)
	l := newTestLoader(t, s)

	res, err := l.Load(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Outcomes)
	assert.Empty(t, res.Fields)
	assert.Equal(t, 0, res.Applied())
}

func TestLoad_NilStore(t *testing.T) {
	_, err := New(nil).Load(context.Background(), nil)
	assert.Error(t, err)
}

func TestLoad_UUIDv7BatchID(t *testing.T) {
	s := testutil.NewStore(t)
	l := New(s, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	res, err := l.Load(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, res.BatchID, 36)
	assert.Equal(t, byte('7'), res.BatchID[14], "version nibble")
}

func TestOutcome_MarshalJSON(t *testing.T) {
	ok, err := json.Marshal(Outcome{Index: 0, Field: "claim_type_code", UID: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"index":0,"field":"claim_type_code","uid":1,"ok":true}`, string(ok))

	bad, err := json.Marshal(Outcome{Index: 1, Field: "x", UID: 2, Err: errors.New("boom")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"index":1,"field":"x","uid":2,"ok":false,"error":"boom"}`, string(bad))
}
