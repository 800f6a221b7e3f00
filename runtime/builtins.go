// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/convm/contractingvm/types"
)

// callBuiltin dispatches the always-available functions. Arity is
// checked at validation time; value kinds are checked here.
func callBuiltin(name string, args []types.Value) (types.Value, error) {
	switch name {
	case "assert":
		return builtinAssert(args)
	case "len":
		return builtinLen(args[0])
	case "abs":
		return builtinAbs(args[0])
	case "min":
		return builtinExtreme(args, -1)
	case "max":
		return builtinExtreme(args, 1)
	case "append":
		return builtinAppend(args)
	case "delete":
		return builtinDelete(args)
	case "round":
		return builtinRound(args)
	default:
		return nil, Abortf(AbortName, "unknown builtin %q", name)
	}
}

func builtinAssert(args []types.Value) (types.Value, error) {
	cond, ok := args[0].(bool)
	if !ok {
		return nil, Abortf(AbortType, "assert takes a bool condition, got %s", types.KindOf(args[0]))
	}
	if cond {
		return nil, nil
	}
	msg := "assertion failed"
	if len(args) == 2 {
		text, ok := args[1].(string)
		if !ok {
			return nil, Abortf(AbortType, "assert messages are strings, got %s", types.KindOf(args[1]))
		}
		msg = text
	}
	return nil, Abortf(AbortAssertion, "%s", msg)
}

func builtinLen(v types.Value) (types.Value, error) {
	switch x := v.(type) {
	case string:
		return int64(utf8.RuneCountInString(x)), nil
	case types.List:
		return int64(len(x)), nil
	case types.Dict:
		return int64(len(x)), nil
	default:
		return nil, Abortf(AbortType, "len takes a string, list, or dict, got %s", types.KindOf(v))
	}
}

func builtinAbs(v types.Value) (types.Value, error) {
	switch x := v.(type) {
	case int64:
		if x >= 0 {
			return x, nil
		}
		return negValue(x)
	case types.Decimal:
		return x.Abs(), nil
	default:
		return nil, Abortf(AbortType, "abs takes a number, got %s", types.KindOf(v))
	}
}

// builtinExtreme picks the minimum (dir < 0) or maximum (dir > 0) of
// its arguments under the dialect ordering.
func builtinExtreme(args []types.Value, dir int) (types.Value, error) {
	best := args[0]
	for _, v := range args[1:] {
		cmp, err := compareValues(v, best)
		if err != nil {
			return nil, err
		}
		if (dir < 0 && cmp < 0) || (dir > 0 && cmp > 0) {
			best = v
		}
	}
	return best, nil
}

func builtinAppend(args []types.Value) (types.Value, error) {
	base, ok := args[0].(types.List)
	if !ok {
		return nil, Abortf(AbortType, "append takes a list first, got %s", types.KindOf(args[0]))
	}
	out := make(types.List, 0, len(base)+len(args)-1)
	out = append(out, base...)
	out = append(out, args[1:]...)
	return out, nil
}

func builtinDelete(args []types.Value) (types.Value, error) {
	d, ok := args[0].(types.Dict)
	if !ok {
		return nil, Abortf(AbortType, "delete takes a dict first, got %s", types.KindOf(args[0]))
	}
	key, ok := args[1].(string)
	if !ok {
		return nil, Abortf(AbortType, "dict keys are strings, got %s", types.KindOf(args[1]))
	}
	delete(d, key)
	return nil, nil
}

func builtinRound(args []types.Value) (types.Value, error) {
	val, ok := asDecimal(args[0])
	if !ok {
		return nil, Abortf(AbortType, "round takes a number, got %s", types.KindOf(args[0]))
	}
	if len(args) == 1 {
		return val.Round(0).IntPart(), nil
	}
	places, ok := args[1].(int64)
	if !ok || places < 0 || places > types.DecimalPrecision {
		return nil, Abortf(AbortType, "round places must be an int between 0 and %d", types.DecimalPrecision)
	}
	return val.Round(int32(places)), nil
}

// convert implements the callable type tokens: int(x), string(x),
// bool(x), decimal(x).
func convert(target string, v types.Value) (types.Value, error) {
	switch target {
	case "int":
		return convertInt(v)
	case "string":
		return convertString(v)
	case "bool":
		return convertBool(v)
	case "decimal":
		return convertDecimal(v)
	default:
		return nil, Abortf(AbortType, "%q is not a conversion", target)
	}
}

func convertInt(v types.Value) (types.Value, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case types.Decimal:
		return x.IntPart(), nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return nil, Abortf(AbortType, "cannot parse %q as int", x)
		}
		return n, nil
	default:
		return nil, Abortf(AbortType, "cannot convert %s to int", types.KindOf(v))
	}
}

func convertString(v types.Value) (types.Value, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case bool:
		return strconv.FormatBool(x), nil
	case types.Decimal:
		return x.String(), nil
	case types.Datetime:
		return x.String(), nil
	case types.Timedelta:
		return x.String(), nil
	case types.Dict, types.List:
		raw, err := types.Encode(x)
		if err != nil {
			return nil, Abortf(AbortType, "cannot render %s", types.KindOf(v))
		}
		return string(raw), nil
	case nil:
		return "nil", nil
	default:
		return nil, Abortf(AbortType, "cannot convert %s to string", types.KindOf(v))
	}
}

func convertBool(v types.Value) (types.Value, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case nil:
		return false, nil
	default:
		return nil, Abortf(AbortType, "cannot convert %s to bool", types.KindOf(v))
	}
}

func convertDecimal(v types.Value) (types.Value, error) {
	switch x := v.(type) {
	case types.Decimal:
		return x, nil
	case int64:
		return types.DecimalFromInt(x), nil
	case string:
		d, err := types.NewDecimal(strings.TrimSpace(x))
		if err != nil {
			return nil, Abortf(AbortType, "cannot parse %q as decimal", x)
		}
		return d, nil
	default:
		return nil, Abortf(AbortType, "cannot convert %s to decimal", types.KindOf(v))
	}
}
