// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/convm/contractingvm/types"
)

// State keys render as <contract>.<variable>[:dim]*; the separators are
// stable because they are part of the stored keyspace.
const (
	variableSeparator  = "."
	dimensionSeparator = ":"
)

var (
	ErrKeyTooLong        = errors.New("state key too long")
	ErrTooManyDimensions = errors.New("too many key dimensions")
	ErrBadDimension      = errors.New("unkeyable dimension value")
)

// RenderDimension converts one dimension value to its key text. Only
// primitive values and datetimes key state; anything else is an error.
func RenderDimension(v types.Value) (string, error) {
	switch d := v.(type) {
	case string:
		return d, nil
	case int64:
		return strconv.FormatInt(d, 10), nil
	case bool:
		return strconv.FormatBool(d), nil
	case types.Decimal:
		return d.String(), nil
	case types.Datetime:
		return d.String(), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrBadDimension, types.KindOf(v))
	}
}

// StateKey builds the full key for a contract variable, dimensions
// included, and enforces the dimension and length bounds.
func StateKey(contract, variable string, dims []types.Value) (string, error) {
	if len(dims) > types.MaxKeyDimensions {
		return "", fmt.Errorf("%w: %d > %d", ErrTooManyDimensions, len(dims), types.MaxKeyDimensions)
	}
	var sb strings.Builder
	sb.WriteString(contract)
	sb.WriteString(variableSeparator)
	sb.WriteString(variable)
	for _, dim := range dims {
		text, err := RenderDimension(dim)
		if err != nil {
			return "", err
		}
		sb.WriteString(dimensionSeparator)
		sb.WriteString(text)
	}
	key := sb.String()
	if len(key) > types.MaxKeyBytes {
		return "", fmt.Errorf("%w: %d bytes > %d", ErrKeyTooLong, len(key), types.MaxKeyBytes)
	}
	return key, nil
}
