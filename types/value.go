// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package types defines the runtime value model shared by the storage, event
// and execution layers: the primitive scalars contracts may hold, the
// container forms, and the canonical byte encoding used for state values.
package types

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Value is any contract-visible runtime value. The concrete types are:
//
//	nil            the no-value sentinel
//	int64          integers
//	string         strings
//	bool           booleans
//	Decimal        fixed-precision decimals
//	Datetime       block-time derived calendar values
//	Timedelta      datetime differences
//	List           ordered containers
//	Dict           string-keyed containers
//
// Anything else is a bug in the layer that produced it.
type Value = any

// List is an ordered container of values.
type List []Value

// Dict is a string-keyed container of values. Iteration order is never
// exposed directly; consumers that enumerate a Dict must use SortedKeys so
// that execution stays deterministic.
type Dict map[string]Value

// SortedKeys returns d's keys in ascending order.
func (d Dict) SortedKeys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Decimal is a fixed-precision decimal number. Arithmetic beyond
// [DecimalPrecision] fractional digits is truncated, never rounded up, so
// results do not depend on accumulated representation error.
type Decimal struct {
	d decimal.Decimal
}

// DecimalPrecision is the number of fractional digits carried by contract
// decimals.
const DecimalPrecision = 30

// NewDecimal parses s as a decimal literal.
func NewDecimal(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal literal %q: %w", s, err)
	}
	return Decimal{d: d.Truncate(DecimalPrecision)}, nil
}

// DecimalFromInt converts an integer to a decimal.
func DecimalFromInt(i int64) Decimal {
	return Decimal{d: decimal.NewFromInt(i)}
}

func (d Decimal) Add(o Decimal) Decimal { return Decimal{d: d.d.Add(o.d).Truncate(DecimalPrecision)} }
func (d Decimal) Sub(o Decimal) Decimal { return Decimal{d: d.d.Sub(o.d).Truncate(DecimalPrecision)} }
func (d Decimal) Mul(o Decimal) Decimal { return Decimal{d: d.d.Mul(o.d).Truncate(DecimalPrecision)} }

// Div divides d by o. Division by zero is the caller's error to surface.
// QuoRem gives the quotient already truncated toward zero, so no
// rounding ever reaches the kept digits.
func (d Decimal) Div(o Decimal) (Decimal, error) {
	if o.d.IsZero() {
		return Decimal{}, fmt.Errorf("decimal division by zero")
	}
	q, _ := d.d.QuoRem(o.d, DecimalPrecision)
	return Decimal{d: q}, nil
}

// Neg returns -d.
func (d Decimal) Neg() Decimal { return Decimal{d: d.d.Neg()} }

// Abs returns |d|.
func (d Decimal) Abs() Decimal { return Decimal{d: d.d.Abs()} }

// Cmp returns -1, 0 or 1.
func (d Decimal) Cmp(o Decimal) int { return d.d.Cmp(o.d) }

// IsInteger reports whether d has no fractional part.
func (d Decimal) IsInteger() bool { return d.d.IsInteger() }

// IntPart returns the integer part of d, truncated toward zero.
func (d Decimal) IntPart() int64 { return d.d.IntPart() }

// Round rounds d to places fractional digits, halves away from zero.
func (d Decimal) Round(places int32) Decimal {
	return Decimal{d: d.d.Round(places)}
}

// String renders the canonical form: no exponent, no trailing zeros beyond
// the significant digits, "-" prefix for negatives.
func (d Decimal) String() string { return d.d.String() }

// KindOf names the value's runtime kind for error messages.
func KindOf(v Value) string {
	switch v.(type) {
	case nil:
		return "nil"
	case int64:
		return "int"
	case string:
		return "string"
	case bool:
		return "bool"
	case Decimal:
		return "decimal"
	case Datetime:
		return "datetime"
	case Timedelta:
		return "timedelta"
	case List:
		return "list"
	case Dict:
		return "dict"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Equal reports deep equality between two values. Values of different kinds
// are never equal, except that ints and decimals compare numerically.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case int64:
		switch bv := b.(type) {
		case int64:
			return av == bv
		case Decimal:
			return DecimalFromInt(av).Cmp(bv) == 0
		}
		return false
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case Decimal:
		switch bv := b.(type) {
		case Decimal:
			return av.Cmp(bv) == 0
		case int64:
			return av.Cmp(DecimalFromInt(bv)) == 0
		}
		return false
	case Datetime:
		bv, ok := b.(Datetime)
		return ok && av.Equal(bv)
	case Timedelta:
		bv, ok := b.(Timedelta)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Dict:
		bv, ok := b.(Dict)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			ov, present := bv[k]
			if !present || !Equal(v, ov) {
				return false
			}
		}
		return true
	}
	return false
}
