// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"context"
	"encoding/json"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/rpc"

	cjson "github.com/ava-labs/avalanchego/utils/json"

	"github.com/convm/contractingvm/contractingvm"
	"github.com/convm/contractingvm/types"
)

// Client defines contractingvm client operations.
type Client interface {
	// Deploy submits contract source and returns the transaction
	// receipt. An error means the node failed; contract-level failures
	// come back inside the receipt.
	Deploy(ctx context.Context, name string, source []byte, sender string, budget uint64, args map[string]types.Value) (*contractingvm.ReceiptReply, error)

	// Invoke calls an exported function of a deployed contract.
	Invoke(ctx context.Context, contract, function, sender string, budget uint64, args map[string]types.Value) (*contractingvm.ReceiptReply, error)

	// GetContract fetches a deployed contract's source and provenance.
	GetContract(ctx context.Context, name string) (*contractingvm.GetContractReply, error)

	// GetState reads one state key from the committed view, returning
	// the stored canonical JSON.
	GetState(ctx context.Context, key string) (json.RawMessage, bool, error)

	// GetReceipt fetches the receipt of a past transaction.
	GetReceipt(ctx context.Context, txID ids.ID) (*contractingvm.ReceiptReply, error)

	// LastHeight returns the height of the last sealed block.
	LastHeight(ctx context.Context) (uint64, error)
}

// New creates a new client object.
func New(uri string) Client {
	req := rpc.NewEndpointRequester(uri)
	return &client{req: req}
}

type client struct {
	req rpc.EndpointRequester
}

func encodeArgs(args map[string]types.Value) (map[string]json.RawMessage, error) {
	flat := make(map[string]json.RawMessage, len(args))
	for name, v := range args {
		raw, err := types.Encode(v)
		if err != nil {
			return nil, err
		}
		flat[name] = raw
	}
	return flat, nil
}

func (cli *client) Deploy(ctx context.Context, name string, source []byte, sender string, budget uint64, args map[string]types.Value) (*contractingvm.ReceiptReply, error) {
	flat, err := encodeArgs(args)
	if err != nil {
		return nil, err
	}
	resp := new(contractingvm.ReceiptReply)
	err = cli.req.SendRequest(ctx,
		"contracting.deploy",
		&contractingvm.DeployArgs{
			Name:   name,
			Source: string(source),
			Sender: sender,
			Budget: cjson.Uint64(budget),
			Args:   flat,
		},
		resp,
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (cli *client) Invoke(ctx context.Context, contract, function, sender string, budget uint64, args map[string]types.Value) (*contractingvm.ReceiptReply, error) {
	flat, err := encodeArgs(args)
	if err != nil {
		return nil, err
	}
	resp := new(contractingvm.ReceiptReply)
	err = cli.req.SendRequest(ctx,
		"contracting.invoke",
		&contractingvm.InvokeArgs{
			Contract: contract,
			Function: function,
			Sender:   sender,
			Budget:   cjson.Uint64(budget),
			Args:     flat,
		},
		resp,
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (cli *client) GetContract(ctx context.Context, name string) (*contractingvm.GetContractReply, error) {
	resp := new(contractingvm.GetContractReply)
	err := cli.req.SendRequest(ctx,
		"contracting.getContract",
		&contractingvm.GetContractArgs{Name: name},
		resp,
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (cli *client) GetState(ctx context.Context, key string) (json.RawMessage, bool, error) {
	resp := new(contractingvm.GetStateReply)
	err := cli.req.SendRequest(ctx,
		"contracting.getState",
		&contractingvm.GetStateArgs{Key: key},
		resp,
	)
	if err != nil {
		return nil, false, err
	}
	return resp.Value, resp.Found, nil
}

func (cli *client) GetReceipt(ctx context.Context, txID ids.ID) (*contractingvm.ReceiptReply, error) {
	resp := new(contractingvm.ReceiptReply)
	err := cli.req.SendRequest(ctx,
		"contracting.getReceipt",
		&contractingvm.GetReceiptArgs{TxID: txID},
		resp,
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (cli *client) LastHeight(ctx context.Context) (uint64, error) {
	resp := new(contractingvm.LastHeightReply)
	err := cli.req.SendRequest(ctx,
		"contracting.lastHeight",
		&contractingvm.LastHeightArgs{},
		resp,
	)
	if err != nil {
		return 0, err
	}
	return uint64(resp.Height), nil
}
