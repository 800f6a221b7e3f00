// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contractingvm

import (
	"github.com/ava-labs/avalanchego/database"
)

const (
	LastHeightKey byte = iota
)

var (
	lastHeightKey             = []byte{LastHeightKey}
	_             HeightState = (*heightState)(nil)
)

// HeightState is a thin wrapper around a database tracking the last
// sealed block height. A fresh store reports height 0.
type HeightState interface {
	LastHeight() (uint64, error)
	SetLastHeight(height uint64) error
}

type heightState struct {
	heightDB database.Database
}

func NewHeightState(db database.Database) HeightState {
	return &heightState{
		heightDB: db,
	}
}

func (s *heightState) LastHeight() (uint64, error) {
	height, err := database.GetUInt64(s.heightDB, lastHeightKey)
	if err == database.ErrNotFound {
		return 0, nil
	}
	return height, err
}

func (s *heightState) SetLastHeight(height uint64) error {
	return database.PutUInt64(s.heightDB, lastHeightKey, height)
}
