// Package value defines the tagged values stored in field shards.
//
// Every stored value is one of a closed set of variants:
//   - String: free text
//   - Integer: int64, also used for single references
//   - Decimal: arbitrary precision decimal text, quantized to two
//     fractional digits when read back
//   - Timestamp: instant in time, stored as RFC 3339 text in UTC
//   - IdentifierList: ordered list of node identifiers, stored as JSON text
//
// The storage column is untyped, so the kind is never inferred from what the
// caller expects. Decode is told the kind at the storage boundary and either
// produces the matching variant or a *MalformedError.
package value
