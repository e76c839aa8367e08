// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/roach88/fieldkv/internal/schema"
	"github.com/roach88/fieldkv/internal/store"
	"github.com/roach88/fieldkv/internal/value"
)

// NewStore returns a store in a fresh temp directory using the default
// catalog. Extra options are applied after the catalog.
func NewStore(t testing.TB, opts ...store.Option) *store.Store {
	t.Helper()
	opts = append([]store.Option{store.WithKinds(schema.Default())}, opts...)
	s, err := store.New(t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("store.New() failed: %v", err)
	}
	return s
}

// Row is one seeded value.
type Row struct {
	Field string
	UID   int64
	Value value.Value
}

// Seed writes rows directly, bypassing the loader.
func Seed(t testing.TB, s *store.Store, rows ...Row) {
	t.Helper()
	ctx := context.Background()
	for _, r := range rows {
		if err := s.Put(ctx, r.Field, r.UID, r.Value); err != nil {
			t.Fatalf("Seed %s[%d] failed: %v", r.Field, r.UID, err)
		}
	}
}

// ClaimGraph seeds a small linked graph:
//
//	Claim 1 (AUTO) -> Transactions 10, 11 ; Parties 100
//	Transaction 10 -> Claim 1, amount 10.5
//	Transaction 11 -> Claim 1, amount 99.999, source system "LEGACY"
//	Party 100 -> Claims 1
//	Claim 2 (HOME) with empty transactions "[]" and no parties
func ClaimGraph(t testing.TB, s *store.Store) {
	t.Helper()
	ts := value.Timestamp(mustTime(t, "2024-03-01T12:00:00Z"))
	Seed(t, s,
		Row{"claim_identifier", 1, value.Integer(1)},
		Row{"claim_type_code", 1, value.String("AUTO")},
		Row{"claim_timestamp", 1, ts},
		Row{"claim_transactions", 1, value.IdentifierList{10, 11}},
		Row{"claim_parties", 1, value.IdentifierList{100}},

		Row{"transaction_identifier", 10, value.String("TX-10")},
		Row{"transaction_timestamp", 10, ts},
		Row{"transaction_claim", 10, value.Integer(1)},
		Row{"transaction_amount", 10, value.MustDecimal("10.5")},

		Row{"transaction_identifier", 11, value.String("TX-11")},
		Row{"transaction_timestamp", 11, ts},
		Row{"transaction_claim", 11, value.Integer(1)},
		Row{"transaction_amount", 11, value.MustDecimal("99.999")},
		Row{"transaction_source_system_code", 11, value.String("LEGACY")},

		Row{"party_identifier", 100, value.Integer(100)},
		Row{"party_timestamp", 100, ts},
		Row{"party_claims", 100, value.IdentifierList{1}},

		Row{"claim_identifier", 2, value.Integer(2)},
		Row{"claim_type_code", 2, value.String("HOME")},
		Row{"claim_timestamp", 2, ts},
		Row{"claim_transactions", 2, value.IdentifierList{}},
	)
}
