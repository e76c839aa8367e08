package value

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Kind identifies a value variant.
type Kind string

const (
	KindString         Kind = "string"
	KindInteger        Kind = "integer"
	KindDecimal        Kind = "decimal"
	KindTimestamp      Kind = "timestamp"
	KindIdentifierList Kind = "identifier_list"
)

// Kinds lists every variant kind in declaration order.
var Kinds = []Kind{KindString, KindInteger, KindDecimal, KindTimestamp, KindIdentifierList}

// Valid reports whether k names a known variant.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Value is a sealed interface. Only String, Integer, Decimal, Timestamp and
// IdentifierList implement it.
type Value interface {
	Kind() Kind
	String() string
	value()
}

// String is a text value.
type String string

func (String) value()           {}
func (String) Kind() Kind       { return KindString }
func (s String) String() string { return string(s) }

// Integer is a 64-bit integer value.
type Integer int64

func (Integer) value()           {}
func (Integer) Kind() Kind       { return KindInteger }
func (i Integer) String() string { return strconv.FormatInt(int64(i), 10) }

// Decimal is an exact decimal number.
// The zero Decimal is 0.
type Decimal struct {
	d *apd.Decimal
}

func (Decimal) value()     {}
func (Decimal) Kind() Kind { return KindDecimal }

// String renders the decimal in plain notation, never with an exponent.
func (d Decimal) String() string { return d.apd().Text('f') }

func (d Decimal) apd() *apd.Decimal {
	if d.d == nil {
		return apd.New(0, 0)
	}
	return d.d
}

// Apd returns a copy of the underlying decimal.
func (d Decimal) Apd() *apd.Decimal {
	return new(apd.Decimal).Set(d.apd())
}

// MarshalJSON encodes the decimal as a JSON string to keep every digit.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// ParseDecimal parses decimal text such as "10.5" without quantizing it.
func ParseDecimal(s string) (Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Decimal{}, malformed(KindDecimal, s, err)
	}
	if d.Form != apd.Finite {
		return Decimal{}, malformed(KindDecimal, s, fmt.Errorf("non-finite decimal"))
	}
	return Decimal{d: d}, nil
}

// MustDecimal is ParseDecimal for literals known to be valid.
func MustDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// moneyContext quantizes like a ledger: half-even rounding, generous precision.
var moneyContext = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(34)
	c.Rounding = apd.RoundHalfEven
	return c
}()

// quantizeContext widens moneyContext when d has more digits than it holds
// once scaled to MoneyExponent.
func quantizeContext(d *apd.Decimal) *apd.Context {
	digits := d.NumDigits() + 3
	if scale := int64(d.Exponent) - MoneyExponent; scale > 0 {
		digits += scale
	}
	if digits <= int64(moneyContext.Precision) {
		return moneyContext
	}
	return moneyContext.WithPrecision(uint32(digits))
}

// MoneyExponent is the exponent decimals are quantized to on read.
const MoneyExponent = -2

// Quantize rounds d to two fractional digits.
func (d Decimal) Quantize() (Decimal, error) {
	in := d.apd()
	out := new(apd.Decimal)
	if _, err := quantizeContext(in).Quantize(out, in, MoneyExponent); err != nil {
		return Decimal{}, malformed(KindDecimal, d.String(), err)
	}
	return Decimal{d: out}, nil
}

// Timestamp is an instant in time.
type Timestamp time.Time

func (Timestamp) value()     {}
func (Timestamp) Kind() Kind { return KindTimestamp }

// Time returns the timestamp as a time.Time.
func (t Timestamp) Time() time.Time { return time.Time(t) }

func (t Timestamp) String() string { return time.Time(t).UTC().Format(time.RFC3339Nano) }

// MarshalJSON encodes the timestamp as RFC 3339 text in UTC.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// IdentifierList is an ordered list of node identifiers.
// A nil list and an empty list encode identically as "[]".
type IdentifierList []int64

func (IdentifierList) value()     {}
func (IdentifierList) Kind() Kind { return KindIdentifierList }

func (l IdentifierList) String() string {
	text, _ := encodeList(l)
	return text
}

// MarshalJSON encodes the list as a JSON array, never null.
func (l IdentifierList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]int64(l))
}
