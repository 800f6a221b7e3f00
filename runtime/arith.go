// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"go/token"
	"math"

	"github.com/convm/contractingvm/types"
)

// Integer arithmetic is 64-bit and checked: overflow aborts the
// transaction instead of wrapping.

func addInt(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, Abortf(AbortType, "integer overflow: %d + %d", a, b)
	}
	return a + b, nil
}

func subInt(a, b int64) (int64, error) {
	if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
		return 0, Abortf(AbortType, "integer overflow: %d - %d", a, b)
	}
	return a - b, nil
}

func mulInt(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a == math.MinInt64 || b == math.MinInt64 {
		if a == 1 {
			return b, nil
		}
		if b == 1 {
			return a, nil
		}
		return 0, Abortf(AbortType, "integer overflow: %d * %d", a, b)
	}
	prod := a * b
	if prod/b != a {
		return 0, Abortf(AbortType, "integer overflow: %d * %d", a, b)
	}
	return prod, nil
}

func negValue(v types.Value) (types.Value, error) {
	switch n := v.(type) {
	case int64:
		if n == math.MinInt64 {
			return nil, Abortf(AbortType, "integer overflow: -(%d)", n)
		}
		return -n, nil
	case types.Decimal:
		return n.Neg(), nil
	case types.Timedelta:
		return n.MulInt(-1), nil
	default:
		return nil, Abortf(AbortType, "cannot negate a %s", types.KindOf(v))
	}
}

// asDecimal promotes ints into decimal arithmetic.
func asDecimal(v types.Value) (types.Decimal, bool) {
	switch n := v.(type) {
	case int64:
		return types.DecimalFromInt(n), true
	case types.Decimal:
		return n, true
	default:
		return types.Decimal{}, false
	}
}

func isNumeric(v types.Value) bool {
	_, ok := asDecimal(v)
	return ok
}

func bothInt(a, b types.Value) (int64, int64, bool) {
	x, okA := a.(int64)
	y, okB := b.(int64)
	return x, y, okA && okB
}

// binaryOp evaluates one arithmetic or comparison operator over two
// contract values.
func binaryOp(op token.Token, a, b types.Value) (types.Value, error) {
	switch op {
	case token.ADD:
		return addValues(a, b)
	case token.SUB:
		return subValues(a, b)
	case token.MUL:
		return mulValues(a, b)
	case token.QUO:
		return divValues(a, b)
	case token.REM:
		return modValues(a, b)
	case token.EQL:
		return types.Equal(a, b), nil
	case token.NEQ:
		return !types.Equal(a, b), nil
	case token.LSS, token.LEQ, token.GTR, token.GEQ:
		cmp, err := compareValues(a, b)
		if err != nil {
			return nil, err
		}
		switch op {
		case token.LSS:
			return cmp < 0, nil
		case token.LEQ:
			return cmp <= 0, nil
		case token.GTR:
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	default:
		return nil, Abortf(AbortType, "unsupported operator %s", op)
	}
}

func addValues(a, b types.Value) (types.Value, error) {
	if x, y, ok := bothInt(a, b); ok {
		return addInt(x, y)
	}
	if isNumeric(a) && isNumeric(b) {
		x, _ := asDecimal(a)
		y, _ := asDecimal(b)
		return x.Add(y), nil
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return x + y, nil
		}
	case types.List:
		if y, ok := b.(types.List); ok {
			out := make(types.List, 0, len(x)+len(y))
			out = append(out, x...)
			out = append(out, y...)
			return out, nil
		}
	case types.Datetime:
		if y, ok := b.(types.Timedelta); ok {
			return x.Add(y), nil
		}
	case types.Timedelta:
		switch y := b.(type) {
		case types.Timedelta:
			return x.Add(y), nil
		case types.Datetime:
			return y.Add(x), nil
		}
	}
	return nil, Abortf(AbortType, "cannot add %s and %s", types.KindOf(a), types.KindOf(b))
}

func subValues(a, b types.Value) (types.Value, error) {
	if x, y, ok := bothInt(a, b); ok {
		return subInt(x, y)
	}
	if isNumeric(a) && isNumeric(b) {
		x, _ := asDecimal(a)
		y, _ := asDecimal(b)
		return x.Sub(y), nil
	}
	switch x := a.(type) {
	case types.Datetime:
		switch y := b.(type) {
		case types.Datetime:
			return x.SubDatetime(y), nil
		case types.Timedelta:
			return x.Add(y.MulInt(-1)), nil
		}
	case types.Timedelta:
		if y, ok := b.(types.Timedelta); ok {
			return x.Sub(y), nil
		}
	}
	return nil, Abortf(AbortType, "cannot subtract %s from %s", types.KindOf(b), types.KindOf(a))
}

func mulValues(a, b types.Value) (types.Value, error) {
	if x, y, ok := bothInt(a, b); ok {
		return mulInt(x, y)
	}
	if isNumeric(a) && isNumeric(b) {
		x, _ := asDecimal(a)
		y, _ := asDecimal(b)
		return x.Mul(y), nil
	}
	switch x := a.(type) {
	case types.Timedelta:
		if y, ok := b.(int64); ok {
			return x.MulInt(y), nil
		}
	case int64:
		if y, ok := b.(types.Timedelta); ok {
			return y.MulInt(x), nil
		}
	}
	return nil, Abortf(AbortType, "cannot multiply %s and %s", types.KindOf(a), types.KindOf(b))
}

// divValues divides numerics. Division is always decimal, whatever the
// operand kinds: 1 / 3 is 0.333..., not 0.
func divValues(a, b types.Value) (types.Value, error) {
	x, okA := asDecimal(a)
	y, okB := asDecimal(b)
	if !okA || !okB {
		return nil, Abortf(AbortType, "cannot divide %s by %s", types.KindOf(a), types.KindOf(b))
	}
	out, err := x.Div(y)
	if err != nil {
		return nil, Abortf(AbortType, "division by zero")
	}
	return out, nil
}

func modValues(a, b types.Value) (types.Value, error) {
	x, y, ok := bothInt(a, b)
	if !ok {
		return nil, Abortf(AbortType, "%% takes integers, got %s and %s", types.KindOf(a), types.KindOf(b))
	}
	if y == 0 {
		return nil, Abortf(AbortType, "division by zero")
	}
	return x % y, nil
}

// compareValues orders two values, aborting for unordered kinds.
func compareValues(a, b types.Value) (int, error) {
	if isNumeric(a) && isNumeric(b) {
		x, _ := asDecimal(a)
		y, _ := asDecimal(b)
		return x.Cmp(y), nil
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			switch {
			case x < y:
				return -1, nil
			case x > y:
				return 1, nil
			default:
				return 0, nil
			}
		}
	case types.Datetime:
		if y, ok := b.(types.Datetime); ok {
			return x.Cmp(y), nil
		}
	case types.Timedelta:
		if y, ok := b.(types.Timedelta); ok {
			return x.Cmp(y), nil
		}
	}
	return 0, Abortf(AbortType, "cannot order %s and %s", types.KindOf(a), types.KindOf(b))
}
