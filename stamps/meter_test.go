// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stamps

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeterCharges(t *testing.T) {
	assert := assert.New(t)

	m := NewMeter(1000)
	require.NoError(t, m.ChargeRead(100))
	assert.Equal(uint64(100), m.Used())

	require.NoError(t, m.ChargeWrite(10))
	assert.Equal(uint64(350), m.Used())
	assert.Equal(uint64(650), m.Remaining())

	assert.Equal(uint64(100), m.BytesRead())
	assert.Equal(uint64(10), m.BytesWritten())
}

func TestMeterExhaustionConsumesBudget(t *testing.T) {
	assert := assert.New(t)

	m := NewMeter(100)
	require.NoError(t, m.ChargeWrite(4)) // 100 stamps exactly
	assert.Equal(uint64(0), m.Remaining())

	// The budget line itself is inclusive; one more byte tips it over.
	err := m.ChargeRead(1)
	assert.ErrorIs(err, ErrInsufficientStamps)
	assert.Equal(uint64(100), m.Used())
	assert.Equal(uint64(0), m.Remaining())

	// Bytes moved are not recorded for the failed charge.
	assert.Equal(uint64(0), m.BytesRead())
	assert.Equal(uint64(4), m.BytesWritten())
}

func TestMeterPartialExhaustion(t *testing.T) {
	m := NewMeter(100)
	require.NoError(t, m.ChargeRead(40))

	err := m.ChargeWrite(3) // 75 stamps against 60 remaining
	assert.ErrorIs(t, err, ErrInsufficientStamps)
	assert.Equal(t, uint64(100), m.Used())
}

func TestMeterOverflowSafe(t *testing.T) {
	m := NewMeter(math.MaxUint64)
	require.NoError(t, m.ChargeRead(math.MaxUint64/2))

	// Multiplying by the write rate overflows; that must read as
	// exhaustion, not a wrapped counter.
	err := m.ChargeWrite(math.MaxUint64 / 2)
	assert.ErrorIs(t, err, ErrInsufficientStamps)
	assert.Equal(t, uint64(math.MaxUint64), m.Used())
}

func TestMeterZeroByteChargeIsFree(t *testing.T) {
	m := NewMeter(10)
	require.NoError(t, m.ChargeRead(0))
	assert.Equal(t, uint64(0), m.Used())
}
