// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contractingvm

import (
	log "github.com/inconshreveable/log15"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
)

// ID is a unique identifier for this engine
var ID = ids.ID{'c', 'o', 'n', 't', 'r', 'a', 'c', 't', 'i', 'n', 'g'}

// Factory builds engines for an embedding node.
type Factory struct {
	Config Config
}

func (f *Factory) New(db database.Database, logger log.Logger, registerer prometheus.Registerer) (*Engine, error) {
	return NewEngine(db, f.Config, logger, registerer)
}
