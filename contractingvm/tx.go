// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contractingvm

import (
	"encoding/json"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"

	"github.com/convm/contractingvm/types"
)

// Transaction IDs are content digests over the submission plus the
// block height it ran at, so resubmitting the same call in a later
// block gets its own receipt. The digest input is canonical JSON;
// encoding/json emits map keys sorted, which keeps it stable.

type deployDigest struct {
	Op     string                     `json:"op"`
	Height uint64                     `json:"height"`
	Name   string                     `json:"name"`
	Source []byte                     `json:"source"`
	Sender string                     `json:"sender"`
	Budget uint64                     `json:"budget"`
	Args   map[string]json.RawMessage `json:"args"`
}

type invokeDigest struct {
	Op       string                     `json:"op"`
	Height   uint64                     `json:"height"`
	Contract string                     `json:"contract"`
	Function string                     `json:"function"`
	Sender   string                     `json:"sender"`
	Budget   uint64                     `json:"budget"`
	Args     map[string]json.RawMessage `json:"args"`
}

func (tx *DeployTx) digest(height uint64) (ids.ID, error) {
	args, err := flattenArgs(tx.Args)
	if err != nil {
		return ids.Empty, err
	}
	blob, err := json.Marshal(deployDigest{
		Op:     OpDeploy.String(),
		Height: height,
		Name:   tx.Name,
		Source: tx.Source,
		Sender: tx.Sender,
		Budget: tx.Budget,
		Args:   args,
	})
	if err != nil {
		return ids.Empty, err
	}
	return hashing.ComputeHash256Array(blob), nil
}

func (tx *InvokeTx) digest(height uint64) (ids.ID, error) {
	args, err := flattenArgs(tx.Args)
	if err != nil {
		return ids.Empty, err
	}
	blob, err := json.Marshal(invokeDigest{
		Op:       OpInvoke.String(),
		Height:   height,
		Contract: tx.Contract,
		Function: tx.Function,
		Sender:   tx.Sender,
		Budget:   tx.Budget,
		Args:     args,
	})
	if err != nil {
		return ids.Empty, err
	}
	return hashing.ComputeHash256Array(blob), nil
}

func flattenArgs(args map[string]types.Value) (map[string]json.RawMessage, error) {
	flat := make(map[string]json.RawMessage, len(args))
	for name, v := range args {
		raw, err := types.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", name, err)
		}
		flat[name] = raw
	}
	return flat, nil
}
