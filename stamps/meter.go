// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stamps

import (
	"errors"

	safemath "github.com/ava-labs/avalanchego/utils/math"
)

// Stamp costs per byte of serialized state moved through the driver.
const (
	ReadCostPerByte  uint64 = 1
	WriteCostPerByte uint64 = 25
)

// ErrInsufficientStamps reports an exhausted budget. Whatever remained
// of the budget is consumed when it is returned.
var ErrInsufficientStamps = errors.New("insufficient stamps")

// Meter tracks stamp consumption for one transaction. A single meter is
// threaded through every nested call, so cross-contract work accumulates
// into the caller's budget.
type Meter struct {
	limit uint64
	used  uint64

	bytesRead    uint64
	bytesWritten uint64
}

// NewMeter returns a meter with the given stamp budget.
func NewMeter(limit uint64) *Meter {
	return &Meter{limit: limit}
}

// ChargeRead accounts n bytes read from state.
func (m *Meter) ChargeRead(n uint64) error {
	if err := m.charge(n, ReadCostPerByte); err != nil {
		return err
	}
	m.bytesRead += n
	return nil
}

// ChargeWrite accounts n bytes written to state.
func (m *Meter) ChargeWrite(n uint64) error {
	if err := m.charge(n, WriteCostPerByte); err != nil {
		return err
	}
	m.bytesWritten += n
	return nil
}

func (m *Meter) charge(n, costPerByte uint64) error {
	cost, err := safemath.Mul64(n, costPerByte)
	if err != nil {
		return m.exhaust()
	}
	used, err := safemath.Add64(m.used, cost)
	if err != nil || used > m.limit {
		return m.exhaust()
	}
	m.used = used
	return nil
}

// exhaust consumes the rest of the budget. Running out of stamps is not
// refundable: the transaction aborts and the full budget is spent.
func (m *Meter) exhaust() error {
	m.used = m.limit
	return ErrInsufficientStamps
}

// Limit returns the transaction budget.
func (m *Meter) Limit() uint64 { return m.limit }

// Used returns the stamps consumed so far.
func (m *Meter) Used() uint64 { return m.used }

// Remaining returns the stamps left in the budget.
func (m *Meter) Remaining() uint64 { return m.limit - m.used }

// BytesRead returns the total serialized bytes read.
func (m *Meter) BytesRead() uint64 { return m.bytesRead }

// BytesWritten returns the total serialized bytes written.
func (m *Meter) BytesWritten() uint64 { return m.bytesWritten }
