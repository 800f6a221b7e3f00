// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"go/token"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convm/contractingvm/types"
)

func dec(t *testing.T, s string) types.Decimal {
	t.Helper()
	d, err := types.NewDecimal(s)
	require.NoError(t, err)
	return d
}

func TestBinaryArithmetic(t *testing.T) {
	tests := []struct {
		name string
		op   token.Token
		a, b types.Value
		want types.Value
	}{
		{"int add", token.ADD, int64(2), int64(3), int64(5)},
		{"int sub", token.SUB, int64(2), int64(3), int64(-1)},
		{"int mul", token.MUL, int64(-4), int64(5), int64(-20)},
		{"int mod", token.REM, int64(7), int64(3), int64(1)},
		{"string concat", token.ADD, "foo", "bar", "foobar"},
		{"list concat", token.ADD, types.List{int64(1)}, types.List{int64(2)}, types.List{int64(1), int64(2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := binaryOp(tt.op, tt.a, tt.b)
			require.NoError(t, err)
			assert.True(t, types.Equal(tt.want, got), "got %v", got)
		})
	}
}

func TestDecimalPromotion(t *testing.T) {
	got, err := binaryOp(token.ADD, int64(1), dec(t, "0.5"))
	require.NoError(t, err)
	assert.True(t, types.Equal(dec(t, "1.5"), got))

	got, err = binaryOp(token.MUL, dec(t, "2.5"), int64(4))
	require.NoError(t, err)
	assert.True(t, types.Equal(int64(10), got))

	// Division is decimal no matter the operand kinds.
	got, err = binaryOp(token.QUO, int64(1), int64(2))
	require.NoError(t, err)
	assert.True(t, types.Equal(dec(t, "0.5"), got))
}

func TestArithmeticAborts(t *testing.T) {
	tests := []struct {
		name string
		op   token.Token
		a, b types.Value
	}{
		{"add overflow", token.ADD, int64(math.MaxInt64), int64(1)},
		{"sub overflow", token.SUB, int64(math.MinInt64), int64(1)},
		{"mul overflow", token.MUL, int64(math.MaxInt64), int64(2)},
		{"div by zero", token.QUO, int64(1), int64(0)},
		{"mod by zero", token.REM, int64(1), int64(0)},
		{"mod of decimals", token.REM, dec(t, "1.5"), int64(2)},
		{"string minus int", token.SUB, "x", int64(1)},
		{"order across kinds", token.LSS, int64(1), "2"},
		{"add bool", token.ADD, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := binaryOp(tt.op, tt.a, tt.b)
			requireAbort(t, err, AbortType)
		})
	}
}

func TestComparisons(t *testing.T) {
	tests := []struct {
		name string
		op   token.Token
		a, b types.Value
		want bool
	}{
		{"int lt", token.LSS, int64(2), int64(3), true},
		{"int geq", token.GEQ, int64(3), int64(3), true},
		{"mixed numeric", token.GTR, dec(t, "2.5"), int64(2), true},
		{"string order", token.LSS, "apple", "banana", true},
		{"eq across kinds", token.EQL, int64(1), "1", false},
		{"int eq decimal", token.EQL, int64(1), dec(t, "1.0"), true},
		{"neq nil", token.NEQ, nil, int64(0), true},
		{"nil eq nil", token.EQL, nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := binaryOp(tt.op, tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDatetimeArithmetic(t *testing.T) {
	noon := types.NewDatetime(2024, 6, 1, 12, 0, 0)
	day := types.NewTimedelta(1, 0)

	got, err := binaryOp(token.ADD, noon, day)
	require.NoError(t, err)
	assert.True(t, types.Equal(types.NewDatetime(2024, 6, 2, 12, 0, 0), got))

	got, err = binaryOp(token.ADD, day, noon)
	require.NoError(t, err)
	assert.True(t, types.Equal(types.NewDatetime(2024, 6, 2, 12, 0, 0), got))

	got, err = binaryOp(token.SUB, noon, day)
	require.NoError(t, err)
	assert.True(t, types.Equal(types.NewDatetime(2024, 5, 31, 12, 0, 0), got))

	later := types.NewDatetime(2024, 6, 3, 12, 0, 0)
	got, err = binaryOp(token.SUB, later, noon)
	require.NoError(t, err)
	assert.True(t, types.Equal(types.NewTimedelta(2, 0), got))

	got, err = binaryOp(token.MUL, day, int64(3))
	require.NoError(t, err)
	assert.True(t, types.Equal(types.NewTimedelta(3, 0), got))

	got, err = binaryOp(token.LSS, noon, later)
	require.NoError(t, err)
	assert.Equal(t, true, got)

	_, err = binaryOp(token.ADD, noon, noon)
	requireAbort(t, err, AbortType)
}

func TestNegation(t *testing.T) {
	got, err := negValue(int64(5))
	require.NoError(t, err)
	assert.Equal(t, int64(-5), got)

	got, err = negValue(dec(t, "1.5"))
	require.NoError(t, err)
	assert.True(t, types.Equal(dec(t, "-1.5"), got))

	got, err = negValue(types.NewTimedelta(1, 0))
	require.NoError(t, err)
	assert.True(t, types.Equal(types.NewTimedelta(-1, 0), got))

	_, err = negValue(int64(math.MinInt64))
	requireAbort(t, err, AbortType)

	_, err = negValue("x")
	requireAbort(t, err, AbortType)
}
