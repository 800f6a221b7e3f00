// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"fmt"
	"sort"

	"github.com/ava-labs/avalanchego/database"

	"github.com/convm/contractingvm/stamps"
	"github.com/convm/contractingvm/types"
)

// Driver is the metered state access layer for one transaction. Reads
// fall through the transaction's own pending writes to the backing
// store; writes stage in the pending set until the transaction succeeds
// and Commit copies them down. Abandoning the driver abandons the
// writes, which is what makes a failed transaction effect-free.
type Driver struct {
	db    database.KeyValueReader
	meter *stamps.Meter

	pending map[string][]byte
}

// NewDriver returns a driver reading through db and charging meter.
func NewDriver(db database.KeyValueReader, meter *stamps.Meter) *Driver {
	return &Driver{
		db:      db,
		meter:   meter,
		pending: map[string][]byte{},
	}
}

// Meter exposes the transaction meter.
func (d *Driver) Meter() *stamps.Meter { return d.meter }

// GetRaw reads the serialized bytes under key, charging for every byte
// read. Absent keys are free and report found=false.
func (d *Driver) GetRaw(key string) ([]byte, bool, error) {
	if len(key) > types.MaxKeyBytes {
		return nil, false, fmt.Errorf("%w: %d bytes", ErrKeyTooLong, len(key))
	}
	raw, found := d.pending[key]
	if !found {
		stored, err := d.db.Get([]byte(key))
		switch err {
		case nil:
			raw, found = stored, true
		case database.ErrNotFound:
		default:
			return nil, false, err
		}
	}
	if !found {
		return nil, false, nil
	}
	if err := d.meter.ChargeRead(uint64(len(raw))); err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// Get reads and decodes the value under key.
func (d *Driver) Get(key string) (types.Value, bool, error) {
	raw, found, err := d.GetRaw(key)
	if err != nil || !found {
		return nil, false, err
	}
	val, err := types.Decode(raw)
	if err != nil {
		return nil, false, fmt.Errorf("corrupt state under %q: %w", key, err)
	}
	return val, true, nil
}

// SetRaw stages raw under key, charging for every byte written.
func (d *Driver) SetRaw(key string, raw []byte) error {
	if len(key) > types.MaxKeyBytes {
		return fmt.Errorf("%w: %d bytes", ErrKeyTooLong, len(key))
	}
	if err := d.meter.ChargeWrite(uint64(len(raw))); err != nil {
		return err
	}
	d.pending[key] = raw
	return nil
}

// Set encodes v canonically and stages it under key.
func (d *Driver) Set(key string, v types.Value) error {
	raw, err := types.Encode(v)
	if err != nil {
		return err
	}
	return d.SetRaw(key, raw)
}

// Has reports key presence without reading (or charging for) the value.
func (d *Driver) Has(key string) (bool, error) {
	if _, found := d.pending[key]; found {
		return true, nil
	}
	has, err := d.db.Has([]byte(key))
	if err != nil {
		return false, err
	}
	return has, nil
}

// PendingWrites returns how many keys the transaction has staged.
func (d *Driver) PendingWrites() int { return len(d.pending) }

// Staged returns every staged key in sorted order.
func (d *Driver) Staged() []string {
	keys := make([]string, 0, len(d.pending))
	for key := range d.pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Commit copies the staged writes into w in key order and clears the
// pending set.
func (d *Driver) Commit(w database.KeyValueWriter) error {
	for _, key := range d.Staged() {
		if err := w.Put([]byte(key), d.pending[key]); err != nil {
			return err
		}
	}
	d.pending = map[string][]byte{}
	return nil
}

// Discard drops every staged write.
func (d *Driver) Discard() {
	d.pending = map[string][]byte{}
}
