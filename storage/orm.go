// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"errors"

	"github.com/convm/contractingvm/types"
)

// ErrReadOnly reports a write through a foreign binding.
var ErrReadOnly = errors.New("foreign state is read-only")

// ErrNoDimensions reports keyed access without any dimension values,
// which would alias the undimensioned slot of the same name.
var ErrNoDimensions = errors.New("keyed access requires at least one dimension")

// Variable is a single-slot binding: one contract variable, no
// dimensions.
type Variable struct {
	driver   *Driver
	key      string
	writable bool
}

// NewVariable binds a writable slot owned by contract.
func NewVariable(driver *Driver, contract, name string) (*Variable, error) {
	return newVariable(driver, contract, name, true)
}

// NewForeignVariable binds a read-only view of another contract's slot.
func NewForeignVariable(driver *Driver, contract, name string) (*Variable, error) {
	return newVariable(driver, contract, name, false)
}

func newVariable(driver *Driver, contract, name string, writable bool) (*Variable, error) {
	key, err := StateKey(contract, name, nil)
	if err != nil {
		return nil, err
	}
	return &Variable{driver: driver, key: key, writable: writable}, nil
}

// Get returns the stored value, or nil when the slot was never written.
func (v *Variable) Get() (types.Value, error) {
	val, _, err := v.driver.Get(v.key)
	return val, err
}

// Set stores val in the slot.
func (v *Variable) Set(val types.Value) error {
	if !v.writable {
		return ErrReadOnly
	}
	return v.driver.Set(v.key, val)
}

// Hash is a keyed binding: a contract variable addressed by one to
// sixteen dimension values. An optional default substitutes for reads
// of absent keys.
type Hash struct {
	driver     *Driver
	contract   string
	name       string
	def        types.Value
	hasDefault bool
	writable   bool
}

// NewHash binds a writable keyed variable owned by contract.
func NewHash(driver *Driver, contract, name string, def types.Value, hasDefault bool) *Hash {
	return &Hash{
		driver:     driver,
		contract:   contract,
		name:       name,
		def:        def,
		hasDefault: hasDefault,
		writable:   true,
	}
}

// NewForeignHash binds a read-only view of another contract's keyed
// variable. Defaults do not cross contracts: absent keys read as nil.
func NewForeignHash(driver *Driver, contract, name string) *Hash {
	return &Hash{driver: driver, contract: contract, name: name}
}

// Get reads the value at the given dimensions. Absent keys resolve to
// the declared default, or nil without one.
func (h *Hash) Get(dims ...types.Value) (types.Value, error) {
	if len(dims) == 0 {
		return nil, ErrNoDimensions
	}
	key, err := StateKey(h.contract, h.name, dims)
	if err != nil {
		return nil, err
	}
	val, found, err := h.driver.Get(key)
	if err != nil {
		return nil, err
	}
	if !found && h.hasDefault {
		return h.def, nil
	}
	return val, nil
}

// Set stores val at the given dimensions.
func (h *Hash) Set(val types.Value, dims ...types.Value) error {
	if !h.writable {
		return ErrReadOnly
	}
	if len(dims) == 0 {
		return ErrNoDimensions
	}
	key, err := StateKey(h.contract, h.name, dims)
	if err != nil {
		return err
	}
	return h.driver.Set(key, val)
}
