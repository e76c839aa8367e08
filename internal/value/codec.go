package value

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order when decoding timestamp text.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

var errNilValue = errors.New("nil value")

// Encode converts v to the representation written to the value column.
func Encode(v Value) (any, error) {
	switch t := v.(type) {
	case String:
		return string(t), nil
	case Integer:
		return int64(t), nil
	case Decimal:
		return t.String(), nil
	case Timestamp:
		return t.String(), nil
	case IdentifierList:
		return encodeList(t)
	case nil:
		return nil, errNilValue
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func encodeList(l IdentifierList) (string, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]int64(l))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode reads a raw column value as the given kind. Decimals come back
// quantized to two fractional digits.
//
// raw is what database/sql scans into an any: int64, float64, string, []byte.
// NULL is the caller's concern and is rejected here.
func Decode(kind Kind, raw any) (Value, error) {
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}
	if raw == nil {
		return nil, malformed(kind, raw, errNilValue)
	}

	switch kind {
	case KindString:
		switch t := raw.(type) {
		case string:
			return String(t), nil
		case int64:
			return String(strconv.FormatInt(t, 10)), nil
		case float64:
			return String(strconv.FormatFloat(t, 'f', -1, 64)), nil
		}
	case KindInteger:
		switch t := raw.(type) {
		case int64:
			return Integer(t), nil
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
			if err != nil {
				return nil, malformed(kind, raw, err)
			}
			return Integer(n), nil
		case float64:
			n, err := wholeInt(t)
			if err != nil {
				return nil, malformed(kind, raw, err)
			}
			return Integer(n), nil
		}
	case KindDecimal:
		var text string
		switch t := raw.(type) {
		case string:
			text = strings.TrimSpace(t)
		case int64:
			text = strconv.FormatInt(t, 10)
		case float64:
			text = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			return nil, malformed(kind, raw, fmt.Errorf("unexpected column type %T", raw))
		}
		d, err := ParseDecimal(text)
		if err != nil {
			return nil, err
		}
		return d.Quantize()
	case KindTimestamp:
		switch t := raw.(type) {
		case string:
			ts, err := parseTimestamp(t)
			if err != nil {
				return nil, malformed(kind, raw, err)
			}
			return ts, nil
		case int64:
			return Timestamp(time.Unix(t, 0).UTC()), nil
		case float64:
			n, err := wholeInt(t)
			if err != nil {
				return nil, malformed(kind, raw, err)
			}
			return Timestamp(time.Unix(n, 0).UTC()), nil
		}
	case KindIdentifierList:
		if t, ok := raw.(string); ok {
			return decodeList(t)
		}
	default:
		return nil, fmt.Errorf("unknown value kind %q", kind)
	}
	return nil, malformed(kind, raw, fmt.Errorf("unexpected column type %T", raw))
}

// parseTimestamp reads timestamp text. All-digit text is unix seconds.
func parseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if isUnixSeconds(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Timestamp{}, err
		}
		return Timestamp(time.Unix(n, 0).UTC()), nil
	}
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return Timestamp(t.UTC()), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return Timestamp{}, firstErr
}

func isUnixSeconds(s string) bool {
	digits := strings.TrimPrefix(s, "-")
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// wholeInt converts f to an int64, rejecting fractions and values outside
// the int64 range.
func wholeInt(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, errors.New("not an integer")
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, errors.New("out of int64 range")
	}
	return int64(f), nil
}

func decodeList(s string) (IdentifierList, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var items []json.Number
	if err := dec.Decode(&items); err != nil {
		return nil, malformed(KindIdentifierList, s, err)
	}
	if dec.More() {
		return nil, malformed(KindIdentifierList, s, errors.New("trailing data"))
	}
	list := make(IdentifierList, 0, len(items))
	for _, n := range items {
		id, err := n.Int64()
		if err != nil {
			return nil, malformed(KindIdentifierList, s, err)
		}
		list = append(list, id)
	}
	return list, nil
}

// Infer picks a kind for a raw column value of a field the catalog does not
// describe.
func Infer(raw any) Kind {
	switch raw.(type) {
	case int64:
		return KindInteger
	case float64:
		return KindDecimal
	default:
		return KindString
	}
}

// From converts loosely typed input, typically decoded JSON, into a Value of
// the given kind. Values that already are a Value are checked for kind and
// passed through.
func From(kind Kind, in any) (Value, error) {
	if v, ok := in.(Value); ok {
		if v.Kind() != kind {
			return nil, malformed(kind, in, fmt.Errorf("got %s value", v.Kind()))
		}
		return v, nil
	}

	switch t := in.(type) {
	case nil:
		return nil, malformed(kind, in, errNilValue)
	case json.Number:
		in = string(t)
	case int:
		in = int64(t)
	case int32:
		in = int64(t)
	case float32:
		in = float64(t)
	case time.Time:
		if kind == KindTimestamp {
			return Timestamp(t.UTC()), nil
		}
		in = t.UTC().Format(time.RFC3339Nano)
	}

	if kind == KindIdentifierList {
		if items, ok := in.([]any); ok {
			return listFromSlice(items)
		}
		if ids, ok := in.([]int64); ok {
			return IdentifierList(ids), nil
		}
	}

	switch kind {
	case KindDecimal:
		// Keep what the caller wrote; quantization happens on read.
		switch t := in.(type) {
		case string:
			return ParseDecimal(strings.TrimSpace(t))
		case int64:
			return ParseDecimal(strconv.FormatInt(t, 10))
		case float64:
			return ParseDecimal(strconv.FormatFloat(t, 'f', -1, 64))
		}
		return nil, malformed(kind, in, fmt.Errorf("unexpected type %T", in))
	case KindInteger, KindString, KindTimestamp, KindIdentifierList:
		return Decode(kind, in)
	default:
		return nil, fmt.Errorf("unknown value kind %q", kind)
	}
}

// InferInput picks a kind for loose input when no catalog entry applies.
func InferInput(in any) Kind {
	switch t := in.(type) {
	case Value:
		return t.Kind()
	case []any, []int64:
		return KindIdentifierList
	case int, int32, int64:
		return KindInteger
	case float32, float64:
		return KindDecimal
	case json.Number:
		if _, err := t.Int64(); err == nil {
			return KindInteger
		}
		return KindDecimal
	case time.Time:
		return KindTimestamp
	default:
		return KindString
	}
}

func listFromSlice(items []any) (IdentifierList, error) {
	list := make(IdentifierList, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case json.Number:
			id, err := t.Int64()
			if err != nil {
				return nil, malformed(KindIdentifierList, items, err)
			}
			list = append(list, id)
		case float64:
			id, err := wholeInt(t)
			if err != nil {
				return nil, malformed(KindIdentifierList, items, err)
			}
			list = append(list, id)
		case int64:
			list = append(list, t)
		case int:
			list = append(list, int64(t))
		case string:
			id, err := strconv.ParseInt(t, 10, 64)
			if err != nil {
				return nil, malformed(KindIdentifierList, items, err)
			}
			list = append(list, id)
		default:
			return nil, malformed(KindIdentifierList, items, fmt.Errorf("unexpected identifier type %T", item))
		}
	}
	return list, nil
}

// Equal reports whether a and b hold the same variant and content.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch at := a.(type) {
	case Decimal:
		return at.apd().Cmp(b.(Decimal).apd()) == 0
	case Timestamp:
		return at.Time().Equal(b.(Timestamp).Time())
	case IdentifierList:
		return slices.Equal(at, b.(IdentifierList))
	default:
		return a == b
	}
}
