// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contractingvm

import (
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"
	"github.com/ava-labs/avalanchego/database/versiondb"
)

var (
	// These are prefixes for db keys.
	// It's important to set different prefixes for each separate database objects.
	heightStatePrefix  = []byte("height")
	receiptStatePrefix = []byte("receipt")
	dataStatePrefix    = []byte("data")

	_ State = (*state)(nil)
)

// State wraps the engine's versioned database. Contract state and
// registry records live under the data prefix; receipts and the block
// height live under their own prefixes. Everything written between two
// Commit calls stays in the version layer, so a crash never exposes a
// half-applied block.
type State interface {
	HeightState
	ReceiptState

	// Data is the keyspace the storage driver reads and commits into.
	Data() database.Database

	Commit() error
	Close() error
}

type state struct {
	HeightState
	ReceiptState

	dataDB database.Database
	baseDB *versiondb.Database
}

func NewState(db database.Database) State {
	// create a new baseDB
	baseDB := versiondb.New(db)

	// create prefixed sub-databases from baseDB
	heightDB := prefixdb.New(heightStatePrefix, baseDB)
	receiptDB := prefixdb.New(receiptStatePrefix, baseDB)
	dataDB := prefixdb.New(dataStatePrefix, baseDB)

	return &state{
		HeightState:  NewHeightState(heightDB),
		ReceiptState: NewReceiptState(receiptDB),
		dataDB:       dataDB,
		baseDB:       baseDB,
	}
}

func (s *state) Data() database.Database { return s.dataDB }

// Commit commits pending operations to baseDB
func (s *state) Commit() error {
	return s.baseDB.Commit()
}

// Close closes the underlying base database
func (s *state) Close() error {
	return s.baseDB.Close()
}
