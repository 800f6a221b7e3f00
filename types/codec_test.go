// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeCanonicalForms(t *testing.T) {
	dec, err := NewDecimal("1.5")
	require.NoError(t, err)

	tests := []struct {
		name string
		in   Value
		want string
	}{
		{"nil", nil, `null`},
		{"int", int64(42), `42`},
		{"negative int", int64(-7), `-7`},
		{"string", "hello", `"hello"`},
		{"bool", true, `true`},
		{"decimal", dec, `{"__fixed__":"1.5"}`},
		{"datetime", NewDatetime(2024, 6, 1, 12, 30, 0), `{"__time__":[2024,6,1,12,30,0]}`},
		{"timedelta", NewTimedelta(2, 30), `{"__delta__":[2,30]}`},
		{"list", List{int64(1), "a"}, `[1,"a"]`},
		{"dict sorts keys", Dict{"b": int64(2), "a": int64(1)}, `{"a":1,"b":2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Encode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(raw))
		})
	}
}

func TestDecodeRestoresKinds(t *testing.T) {
	dec, err := NewDecimal("0.1")
	require.NoError(t, err)

	original := Dict{
		"amount":  int64(100),
		"rate":    dec,
		"when":    NewDatetime(2024, 1, 2, 3, 4, 5),
		"holders": List{"alice", "bob"},
		"window":  NewTimedelta(1, 0),
		"open":    true,
		"memo":    nil,
	}
	raw, err := Encode(original)
	require.NoError(t, err)

	back, err := Decode(raw)
	require.NoError(t, err)
	assert.True(t, Equal(original, back), "decoded value differs: %#v", back)

	// Kinds must be exact, not merely equal.
	d := back.(Dict)
	assert.IsType(t, int64(0), d["amount"])
	assert.IsType(t, Decimal{}, d["rate"])
	assert.IsType(t, Datetime{}, d["when"])
	assert.IsType(t, Timedelta{}, d["window"])
	assert.IsType(t, List{}, d["holders"])
}

func TestDecodeFractionalNumberBecomesDecimal(t *testing.T) {
	v, err := Decode([]byte(`1.25`))
	require.NoError(t, err)
	d, ok := v.(Decimal)
	require.True(t, ok, "expected decimal, got %s", KindOf(v))
	assert.Equal(t, "1.25", d.String())
}

func TestDecimalDivisionTruncates(t *testing.T) {
	one := DecimalFromInt(1)
	three := DecimalFromInt(3)
	q, err := one.Div(three)
	require.NoError(t, err)
	assert.Equal(t, "0.333333333333333333333333333333", q.String())

	_, err = one.Div(DecimalFromInt(0))
	assert.Error(t, err)
}

func TestEqualMixedNumerics(t *testing.T) {
	five, err := NewDecimal("5")
	require.NoError(t, err)
	assert.True(t, Equal(int64(5), five))
	assert.True(t, Equal(five, int64(5)))
	assert.False(t, Equal(int64(5), "5"))
}

func TestTokenMatches(t *testing.T) {
	dec := DecimalFromInt(3)
	assert.True(t, TokenInt.Matches(int64(1)))
	assert.False(t, TokenInt.Matches(dec))
	assert.True(t, TokenDecimal.Matches(dec))
	assert.True(t, TokenAny.Matches(nil))
	assert.False(t, TokenString.Matches(nil))

	tok, ok := TokenByName("decimal")
	assert.True(t, ok)
	assert.Equal(t, TokenDecimal, tok)
	_, ok = TokenByName("float")
	assert.False(t, ok)
}
