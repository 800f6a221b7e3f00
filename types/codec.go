// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// State values are stored as canonical JSON. Non-JSON kinds ride in
// single-key wrapper objects so that every value round-trips with its exact
// runtime kind. Canonical means: compact output, object keys in ascending
// order (encoding/json guarantees this for maps), and no floating point —
// fractional numbers are always tagged decimals.
const (
	fixedTag = "__fixed__"
	timeTag  = "__time__"
	deltaTag = "__delta__"
)

// Encode renders v to its canonical byte form. The byte length of this form
// is the quantity the metering engine charges for.
func Encode(v Value) ([]byte, error) {
	tree, err := toEncodable(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

// MustEncode is Encode for values already validated by the runtime; it
// panics on internal kind errors, which indicate an engine bug rather than a
// contract failure.
func MustEncode(v Value) []byte {
	b, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return b
}

// EncodedLen returns the canonical encoded length of v in bytes.
func EncodedLen(v Value) (uint64, error) {
	b, err := Encode(v)
	if err != nil {
		return 0, err
	}
	return uint64(len(b)), nil
}

func toEncodable(v Value) (any, error) {
	switch tv := v.(type) {
	case nil:
		return nil, nil
	case int64:
		return tv, nil
	case string:
		return tv, nil
	case bool:
		return tv, nil
	case Decimal:
		return map[string]string{fixedTag: tv.String()}, nil
	case Datetime:
		y, mo, d, h, mi, s := tv.Components()
		return map[string][]int{timeTag: {y, mo, d, h, mi, s}}, nil
	case Timedelta:
		total := tv.Seconds()
		return map[string][]int64{deltaTag: {total / 86400, total % 86400}}, nil
	case List:
		out := make([]any, len(tv))
		for i, elem := range tv {
			enc, err := toEncodable(elem)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	case Dict:
		out := make(map[string]any, len(tv))
		for k, elem := range tv {
			enc, err := toEncodable(elem)
			if err != nil {
				return nil, err
			}
			out[k] = enc
		}
		return out, nil
	default:
		return nil, fmt.Errorf("value of kind %s cannot be stored", KindOf(v))
	}
}

// Decode parses canonical bytes back into a runtime value.
func Decode(raw []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("corrupt state value: %w", err)
	}
	return fromDecoded(tree)
}

func fromDecoded(tree any) (Value, error) {
	switch tv := tree.(type) {
	case nil:
		return nil, nil
	case string:
		return tv, nil
	case bool:
		return tv, nil
	case json.Number:
		lit := tv.String()
		if strings.ContainsAny(lit, ".eE") {
			return NewDecimal(lit)
		}
		i, err := tv.Int64()
		if err != nil {
			return nil, fmt.Errorf("integer out of range: %s", lit)
		}
		return i, nil
	case []any:
		out := make(List, len(tv))
		for i, elem := range tv {
			v, err := fromDecoded(elem)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case map[string]any:
		if v, ok, err := fromTagged(tv); ok || err != nil {
			return v, err
		}
		out := make(Dict, len(tv))
		for k, elem := range tv {
			v, err := fromDecoded(elem)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported encoded form %T", tree)
	}
}

func fromTagged(obj map[string]any) (Value, bool, error) {
	if len(obj) != 1 {
		return nil, false, nil
	}
	if lit, ok := obj[fixedTag]; ok {
		s, ok := lit.(string)
		if !ok {
			return nil, true, fmt.Errorf("%s tag requires a string payload", fixedTag)
		}
		d, err := NewDecimal(s)
		return d, true, err
	}
	if parts, ok := obj[timeTag]; ok {
		nums, err := intSlice(parts, 6, timeTag)
		if err != nil {
			return nil, true, err
		}
		dt := NewDatetime(int(nums[0]), int(nums[1]), int(nums[2]), int(nums[3]), int(nums[4]), int(nums[5]))
		return dt, true, nil
	}
	if parts, ok := obj[deltaTag]; ok {
		nums, err := intSlice(parts, 2, deltaTag)
		if err != nil {
			return nil, true, err
		}
		return NewTimedelta(nums[0], nums[1]), true, nil
	}
	return nil, false, nil
}

func intSlice(raw any, want int, tag string) ([]int64, error) {
	arr, ok := raw.([]any)
	if !ok || len(arr) != want {
		return nil, fmt.Errorf("%s tag requires %d integers", tag, want)
	}
	out := make([]int64, want)
	for i, elem := range arr {
		num, ok := elem.(json.Number)
		if !ok {
			return nil, fmt.Errorf("%s tag requires %d integers", tag, want)
		}
		v, err := num.Int64()
		if err != nil {
			return nil, fmt.Errorf("%s tag component out of range", tag)
		}
		out[i] = v
	}
	return out, nil
}
