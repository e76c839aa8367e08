package graph

import (
	"context"
	"fmt"

	"github.com/roach88/fieldkv/internal/pool"
	"github.com/roach88/fieldkv/internal/schema"
	"github.com/roach88/fieldkv/internal/value"
)

// Node is a graph entity: a variant name and an id.
type Node interface {
	Typename() string
	NodeID() int64
}

// Refs is the result of a list-reference field.
//
// An absent value and a stored empty list both resolve to Valid == false;
// there is no present-but-empty result.
type Refs[T Node] struct {
	Nodes []T
	Valid bool
}

func refsOf[T Node](ids value.IdentifierList, stub func(int64) T) Refs[T] {
	if len(ids) == 0 {
		return Refs[T]{}
	}
	nodes := make([]T, len(ids))
	for i, id := range ids {
		nodes[i] = stub(id)
	}
	return Refs[T]{Nodes: nodes, Valid: true}
}

func absentRefs[T Node](schema.Field) (Refs[T], error) {
	return Refs[T]{}, nil
}

// Transaction is a financial transaction belonging to a claim.
type Transaction struct {
	ID int64
	r  *Resolver
}

// Claim groups transactions and the parties involved.
type Claim struct {
	ID int64
	r  *Resolver
}

// Party is a person or organisation linked to claims.
type Party struct {
	ID int64
	r  *Resolver
}

// genericNode is a node of a catalog variant with no typed API.
type genericNode struct {
	typename string
	id       int64
}

func (t Transaction) Typename() string { return "Transaction" }
func (t Transaction) NodeID() int64    { return t.ID }
func (c Claim) Typename() string       { return "Claim" }
func (c Claim) NodeID() int64          { return c.ID }
func (p Party) Typename() string       { return "Party" }
func (p Party) NodeID() int64          { return p.ID }
func (n genericNode) Typename() string { return n.typename }
func (n genericNode) NodeID() int64    { return n.id }

// Transaction returns a stub Transaction; nothing is read until a field is.
func (r *Resolver) Transaction(id int64) Transaction { return Transaction{ID: id, r: r} }

// Claim returns a stub Claim.
func (r *Resolver) Claim(id int64) Claim { return Claim{ID: id, r: r} }

// Party returns a stub Party.
func (r *Resolver) Party(id int64) Party { return Party{ID: id, r: r} }

// Node returns a stub node of the named variant. Names match the catalog
// case-insensitively.
func (r *Resolver) Node(typename string, id int64) (Node, error) {
	v, ok := r.catalog.Variant(typename)
	if !ok {
		return nil, fmt.Errorf("graph: unknown node type %q", typename)
	}
	switch v.Name {
	case "Transaction":
		return r.Transaction(id), nil
	case "Claim":
		return r.Claim(id), nil
	case "Party":
		return r.Party(id), nil
	default:
		return genericNode{typename: v.Name, id: id}, nil
	}
}

// FinancialTransactionIdentifier resolves the external transaction id.
func (t Transaction) FinancialTransactionIdentifier(ctx context.Context) *pool.Future[string] {
	return resolve(ctx, t.r, "Transaction", "financial_transaction_identifier", t.ID, asString, required[string])
}

func (t Transaction) Timestamp(ctx context.Context) *pool.Future[value.Timestamp] {
	return resolve(ctx, t.r, "Transaction", "timestamp", t.ID, asTimestamp, required[value.Timestamp])
}

// Claim resolves the owning claim as a stub.
func (t Transaction) Claim(ctx context.Context) *pool.Future[Claim] {
	return resolve(ctx, t.r, "Transaction", "claim", t.ID,
		func(f schema.Field, v value.Value) (Claim, error) {
			id, err := asInt(f, v)
			if err != nil {
				return Claim{}, err
			}
			return t.r.Claim(id), nil
		},
		required[Claim])
}

// Amount resolves the transaction amount, quantized to cents.
func (t Transaction) Amount(ctx context.Context) *pool.Future[value.Decimal] {
	return resolve(ctx, t.r, "Transaction", "amount", t.ID, asDecimal, required[value.Decimal])
}

// SourceSystemCode resolves to nil when no code is stored.
func (t Transaction) SourceSystemCode(ctx context.Context) *pool.Future[*string] {
	return resolve(ctx, t.r, "Transaction", "source_system_code", t.ID, asOptionalString, required[*string])
}

// ServiceTypeCode resolves to nil when no code is stored.
func (t Transaction) ServiceTypeCode(ctx context.Context) *pool.Future[*string] {
	return resolve(ctx, t.r, "Transaction", "service_type_code", t.ID, asOptionalString, required[*string])
}

func (c Claim) ClaimIdentifier(ctx context.Context) *pool.Future[int64] {
	return resolve(ctx, c.r, "Claim", "claim_identifier", c.ID, asInt, required[int64])
}

func (c Claim) ClaimTypeCode(ctx context.Context) *pool.Future[string] {
	return resolve(ctx, c.r, "Claim", "claim_type_code", c.ID, asString, required[string])
}

func (c Claim) Timestamp(ctx context.Context) *pool.Future[value.Timestamp] {
	return resolve(ctx, c.r, "Claim", "timestamp", c.ID, asTimestamp, required[value.Timestamp])
}

// Transactions resolves the claim's transactions as stubs.
func (c Claim) Transactions(ctx context.Context) *pool.Future[Refs[Transaction]] {
	return resolve(ctx, c.r, "Claim", "transactions", c.ID,
		func(f schema.Field, v value.Value) (Refs[Transaction], error) {
			ids, err := asIDs(f, v)
			if err != nil {
				return Refs[Transaction]{}, err
			}
			return refsOf(ids, c.r.Transaction), nil
		},
		absentRefs[Transaction])
}

// Parties resolves the parties on the claim as stubs.
func (c Claim) Parties(ctx context.Context) *pool.Future[Refs[Party]] {
	return resolve(ctx, c.r, "Claim", "parties", c.ID,
		func(f schema.Field, v value.Value) (Refs[Party], error) {
			ids, err := asIDs(f, v)
			if err != nil {
				return Refs[Party]{}, err
			}
			return refsOf(ids, c.r.Party), nil
		},
		absentRefs[Party])
}

func (p Party) PartyIdentifier(ctx context.Context) *pool.Future[int64] {
	return resolve(ctx, p.r, "Party", "party_identifier", p.ID, asInt, required[int64])
}

func (p Party) Timestamp(ctx context.Context) *pool.Future[value.Timestamp] {
	return resolve(ctx, p.r, "Party", "timestamp", p.ID, asTimestamp, required[value.Timestamp])
}

// Claims resolves the claims the party is linked to as stubs.
func (p Party) Claims(ctx context.Context) *pool.Future[Refs[Claim]] {
	return resolve(ctx, p.r, "Party", "claims", p.ID,
		func(f schema.Field, v value.Value) (Refs[Claim], error) {
			ids, err := asIDs(f, v)
			if err != nil {
				return Refs[Claim]{}, err
			}
			return refsOf(ids, p.r.Claim), nil
		},
		absentRefs[Claim])
}
