package value

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = String("x")
	var _ Value = Integer(1)
	var _ Value = MustDecimal("1.5")
	var _ Value = Timestamp(time.Unix(0, 0))
	var _ Value = IdentifierList{1, 2}
}

func TestKindValid(t *testing.T) {
	for _, k := range Kinds {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, Kind("float").Valid())
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want any
	}{
		{"string", String("AUTO"), "AUTO"},
		{"integer", Integer(42), int64(42)},
		{"decimal keeps scale", MustDecimal("10.5"), "10.5"},
		{"timestamp in utc", Timestamp(time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))), "2024-03-01T11:00:00Z"},
		{"list", IdentifierList{3, 1, 2}, "[3,1,2]"},
		{"nil list", IdentifierList(nil), "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode_Nil(t *testing.T) {
	_, err := Encode(nil)
	assert.Error(t, err)
}

func TestDecode_DecimalQuantized(t *testing.T) {
	tests := []struct {
		raw  any
		want string
	}{
		{"10.5", "10.50"},
		{"10", "10.00"},
		{int64(7), "7.00"},
		{"2.675", "2.68"},
		{"2.665", "2.66"},
		{"0.125", "0.12"},
		{"-0.5", "-0.50"},
		{[]byte("3.14159"), "3.14"},
	}

	for _, tt := range tests {
		v, err := Decode(KindDecimal, tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, KindDecimal, v.Kind())
		assert.Equal(t, tt.want, v.String(), tt.raw)
	}
}

func TestDecode_DecimalRejectsGarbage(t *testing.T) {
	for _, raw := range []any{"ten", "NaN", "Infinity", ""} {
		_, err := Decode(KindDecimal, raw)
		assert.True(t, IsMalformed(err), raw)
	}
}

func TestDecode_Scalars(t *testing.T) {
	v, err := Decode(KindString, "AUTO")
	require.NoError(t, err)
	assert.Equal(t, String("AUTO"), v)

	v, err = Decode(KindInteger, int64(9))
	require.NoError(t, err)
	assert.Equal(t, Integer(9), v)

	v, err = Decode(KindInteger, "12")
	require.NoError(t, err)
	assert.Equal(t, Integer(12), v)

	_, err = Decode(KindInteger, "12.5")
	assert.True(t, IsMalformed(err))

	_, err = Decode(KindInteger, 12.5)
	assert.True(t, IsMalformed(err))
}

func TestDecode_Timestamp(t *testing.T) {
	want := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, raw := range []any{"2023-01-02T03:04:05Z", "2023-01-02 03:04:05", "2023-01-02T04:04:05+01:00", want.Unix()} {
		v, err := Decode(KindTimestamp, raw)
		require.NoError(t, err, raw)
		assert.True(t, want.Equal(v.(Timestamp).Time()), raw)
	}

	_, err := Decode(KindTimestamp, "yesterday")
	assert.True(t, IsMalformed(err))
}

func TestDecode_IdentifierList(t *testing.T) {
	v, err := Decode(KindIdentifierList, "[1, 2, 3]")
	require.NoError(t, err)
	assert.Equal(t, IdentifierList{1, 2, 3}, v)

	v, err = Decode(KindIdentifierList, "[]")
	require.NoError(t, err)
	assert.NotNil(t, v)
	assert.Len(t, v, 0)
}

func TestDecode_IdentifierListMalformed(t *testing.T) {
	for _, raw := range []any{"['a']", "[1, 2", "[1.5]", "{}", "[1] [2]", int64(4)} {
		_, err := Decode(KindIdentifierList, raw)
		require.Error(t, err, raw)
		assert.True(t, IsMalformed(err), raw)
	}
}

func TestDecode_Nil(t *testing.T) {
	_, err := Decode(KindString, nil)
	assert.True(t, IsMalformed(err))
}

func TestDecode_UnknownKind(t *testing.T) {
	_, err := Decode(Kind("blob"), "x")
	require.Error(t, err)
	assert.False(t, IsMalformed(err))
}

func TestFrom(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		in   any
		want Value
	}{
		{"string", KindString, "AUTO", String("AUTO")},
		{"integer from number", KindInteger, json.Number("5"), Integer(5)},
		{"integer from string", KindInteger, "5", Integer(5)},
		{"integer from int", KindInteger, 5, Integer(5)},
		{"decimal keeps scale", KindDecimal, "10.5", MustDecimal("10.5")},
		{"decimal from number", KindDecimal, json.Number("1.25"), MustDecimal("1.25")},
		{"list from text", KindIdentifierList, "[3, 4]", IdentifierList{3, 4}},
		{"list from slice", KindIdentifierList, []any{json.Number("1"), "2", float64(3)}, IdentifierList{1, 2, 3}},
		{"passthrough", KindString, String("x"), String("x")},
		{"timestamp from number", KindTimestamp, json.Number("1700000000"), Timestamp(time.Unix(1700000000, 0).UTC())},
		{"timestamp from digit string", KindTimestamp, "1700000000", Timestamp(time.Unix(1700000000, 0).UTC())},
		{"timestamp from int", KindTimestamp, 1700000000, Timestamp(time.Unix(1700000000, 0).UTC())},
		{"timestamp from whole float", KindTimestamp, float64(1700000000), Timestamp(time.Unix(1700000000, 0).UTC())},
		{"timestamp before epoch", KindTimestamp, json.Number("-86400"), Timestamp(time.Date(1969, 12, 31, 0, 0, 0, 0, time.UTC))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := From(tt.kind, tt.in)
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, got), "got %v", got)
		})
	}
}

func TestFrom_Errors(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		in   any
	}{
		{"nil", KindString, nil},
		{"kind mismatch", KindInteger, String("x")},
		{"bool as string", KindString, true},
		{"bad list item", KindIdentifierList, []any{"x"}},
		{"decimal from bool", KindDecimal, false},
		{"list item out of range", KindIdentifierList, []any{1e300}},
		{"timestamp from fraction", KindTimestamp, json.Number("1700000000.5")},
		{"timestamp digits overflow", KindTimestamp, "99999999999999999999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := From(tt.kind, tt.in)
			assert.True(t, IsMalformed(err))
		})
	}
}

func TestInferInput(t *testing.T) {
	assert.Equal(t, KindString, InferInput("x"))
	assert.Equal(t, KindInteger, InferInput(json.Number("3")))
	assert.Equal(t, KindDecimal, InferInput(json.Number("3.5")))
	assert.Equal(t, KindIdentifierList, InferInput([]any{}))
	assert.Equal(t, KindDecimal, InferInput(MustDecimal("1")))
}

func TestInfer(t *testing.T) {
	assert.Equal(t, KindInteger, Infer(int64(1)))
	assert.Equal(t, KindDecimal, Infer(1.5))
	assert.Equal(t, KindString, Infer("x"))
}

func TestMarshalJSON(t *testing.T) {
	d, err := MustDecimal("10.5").Quantize()
	require.NoError(t, err)

	b, err := json.Marshal(map[string]any{
		"amount": d,
		"ids":    IdentifierList(nil),
		"at":     Timestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"10.50","ids":[],"at":"2024-01-01T00:00:00Z"}`, string(b))
}

func TestDecimalZeroValue(t *testing.T) {
	var d Decimal
	assert.Equal(t, "0", d.String())
	q, err := d.Quantize()
	require.NoError(t, err)
	assert.Equal(t, "0.00", q.String())
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(MustDecimal("1.5"), MustDecimal("1.50")))
	assert.False(t, Equal(String("1"), Integer(1)))
	assert.True(t, Equal(IdentifierList(nil), IdentifierList{}))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, String("")))
}

func TestDecode_IntegerOutOfRange(t *testing.T) {
	for _, raw := range []any{1e300, -1e300, float64(math.MaxInt64), math.Inf(1), math.NaN(), 1.5} {
		_, err := Decode(KindInteger, raw)
		assert.True(t, IsMalformed(err), "%v", raw)
	}

	v, err := Decode(KindInteger, float64(-1<<53))
	require.NoError(t, err)
	assert.Equal(t, Integer(-1<<53), v)
}

func TestDecode_DecimalBeyondDefaultPrecision(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"1e40", "1" + strings.Repeat("0", 40) + ".00"},
		{"123456789012345678901234567890123456.785", "123456789012345678901234567890123456.78"},
		{"-9" + strings.Repeat("9", 49), "-9" + strings.Repeat("9", 49) + ".00"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, err := Decode(KindDecimal, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}
