// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"errors"
	"fmt"

	"github.com/convm/contractingvm/types"
)

// Registry records stay inside the same keyspace as contract state, on
// suffixes user code can never collide with: contract identifiers may
// not begin or end with an underscore.
const (
	codeSuffix      = "__code__"
	ownerSuffix     = "__owner__"
	submittedSuffix = "__submitted__"
)

// ErrAlreadyDeployed reports a second deployment under a taken name.
var ErrAlreadyDeployed = errors.New("contract name already taken")

// Registry reads and writes contract records through a metered driver,
// so registering and resolving contracts is paid for like any other
// state access.
type Registry struct {
	driver *Driver
}

// NewRegistry returns a registry over driver.
func NewRegistry(driver *Driver) *Registry {
	return &Registry{driver: driver}
}

// Exists reports whether name is registered. Presence probes read no
// value bytes and cost nothing.
func (r *Registry) Exists(name string) (bool, error) {
	return r.driver.Has(recordKey(name, codeSuffix))
}

// Register stores a contract's source and provenance. The name must be
// unclaimed.
func (r *Registry) Register(name string, source []byte, owner string, submitted types.Datetime) error {
	taken, err := r.Exists(name)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %s", ErrAlreadyDeployed, name)
	}
	if err := r.driver.SetRaw(recordKey(name, codeSuffix), source); err != nil {
		return err
	}
	if err := r.driver.SetRaw(recordKey(name, ownerSuffix), []byte(owner)); err != nil {
		return err
	}
	encoded, err := types.Encode(submitted)
	if err != nil {
		return err
	}
	return r.driver.SetRaw(recordKey(name, submittedSuffix), encoded)
}

// Source returns the stored contract source.
func (r *Registry) Source(name string) ([]byte, bool, error) {
	return r.driver.GetRaw(recordKey(name, codeSuffix))
}

// Owner returns the identity that deployed the contract.
func (r *Registry) Owner(name string) (string, bool, error) {
	raw, found, err := r.driver.GetRaw(recordKey(name, ownerSuffix))
	if err != nil || !found {
		return "", found, err
	}
	return string(raw), true, nil
}

// Submitted returns the block time the contract was deployed at.
func (r *Registry) Submitted(name string) (types.Datetime, bool, error) {
	raw, found, err := r.driver.GetRaw(recordKey(name, submittedSuffix))
	if err != nil || !found {
		return types.Datetime{}, found, err
	}
	val, err := types.Decode(raw)
	if err != nil {
		return types.Datetime{}, false, err
	}
	at, ok := val.(types.Datetime)
	if !ok {
		return types.Datetime{}, false, fmt.Errorf("corrupt deployment record for %q", name)
	}
	return at, true, nil
}

func recordKey(contract, suffix string) string {
	return contract + variableSeparator + suffix
}

// CodeKey, OwnerKey, and SubmittedKey address a contract's registry
// records directly, for unmetered reads outside a transaction.
func CodeKey(contract string) string { return recordKey(contract, codeSuffix) }

// OwnerKey returns the key of the deployer record.
func OwnerKey(contract string) string { return recordKey(contract, ownerSuffix) }

// SubmittedKey returns the key of the deployment-time record.
func SubmittedKey(contract string) string { return recordKey(contract, submittedSuffix) }
