// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contractingvm

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/rpc/v2"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"

	cjson "github.com/ava-labs/avalanchego/utils/json"

	"github.com/convm/contractingvm/types"
)

// Namespace is the JSON-RPC namespace the service registers under.
const Namespace = "contracting"

var (
	errContractNotFound = errors.New("contract not found")
	errReceiptNotFound  = errors.New("receipt not found")
)

// Service is the transaction and query API over an engine. Deploy and
// Invoke run in dev-mode blocks, one transaction per block.
type Service struct {
	engine *Engine
}

// NewService returns the API service for engine.
func NewService(engine *Engine) *Service {
	return &Service{engine: engine}
}

// NewHandler returns an HTTP handler serving the engine API under the
// contracting namespace.
func NewHandler(engine *Engine) (http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(cjson.NewCodec(), "application/json")
	server.RegisterCodec(cjson.NewCodec(), "application/json;charset=UTF-8")
	return server, server.RegisterService(NewService(engine), Namespace)
}

// EventReply is one emitted event in a receipt reply.
type EventReply struct {
	Contract string          `json:"contract"`
	Name     string          `json:"name"`
	Payload  json.RawMessage `json:"payload"`
	Indexed  []string        `json:"indexed,omitempty"`
}

// ReceiptReply renders a receipt for the API.
type ReceiptReply struct {
	TxID     ids.ID       `json:"txID"`
	Height   cjson.Uint64 `json:"height"`
	Op       string       `json:"op"`
	Contract string       `json:"contract"`
	Function string       `json:"function,omitempty"`

	Status      string `json:"status"`
	FailureKind string `json:"failureKind,omitempty"`
	Error       string `json:"error,omitempty"`

	Return json.RawMessage `json:"return,omitempty"`

	StampsUsed   cjson.Uint64 `json:"stampsUsed"`
	BytesRead    cjson.Uint64 `json:"bytesRead"`
	BytesWritten cjson.Uint64 `json:"bytesWritten"`

	Events    []EventReply `json:"events,omitempty"`
	WriteKeys []string     `json:"writeKeys,omitempty"`
}

func fillReceipt(reply *ReceiptReply, receipt *Receipt) {
	reply.TxID = receipt.TxID
	reply.Height = cjson.Uint64(receipt.Height)
	reply.Op = receipt.Op.String()
	reply.Contract = receipt.Contract
	reply.Function = receipt.Function
	reply.Status = receipt.Status.String()
	reply.FailureKind = receipt.FailureKind
	reply.Error = receipt.Error
	reply.Return = json.RawMessage(receipt.Return)
	reply.StampsUsed = cjson.Uint64(receipt.StampsUsed)
	reply.BytesRead = cjson.Uint64(receipt.BytesRead)
	reply.BytesWritten = cjson.Uint64(receipt.BytesWritten)
	reply.WriteKeys = receipt.WriteKeys
	if len(receipt.Events) > 0 {
		reply.Events = make([]EventReply, len(receipt.Events))
		for i, ev := range receipt.Events {
			reply.Events[i] = EventReply{
				Contract: ev.Contract,
				Name:     ev.Name,
				Payload:  json.RawMessage(ev.Payload),
				Indexed:  ev.Indexed,
			}
		}
	}
}

func decodeArgs(raw map[string]json.RawMessage) (map[string]types.Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	args := make(map[string]types.Value, len(raw))
	for name, blob := range raw {
		v, err := types.Decode(blob)
		if err != nil {
			return nil, err
		}
		args[name] = v
	}
	return args, nil
}

// DeployArgs are the arguments for Deploy.
type DeployArgs struct {
	Name   string                     `json:"name"`
	Source string                     `json:"source"`
	Sender string                     `json:"sender"`
	Budget cjson.Uint64               `json:"budget"`
	Args   map[string]json.RawMessage `json:"args"`
}

// Deploy submits new contract source and returns the transaction
// receipt.
func (s *Service) Deploy(_ *http.Request, args *DeployArgs, reply *ReceiptReply) error {
	vals, err := decodeArgs(args.Args)
	if err != nil {
		return err
	}
	receipt, err := s.engine.SubmitDeploy(&DeployTx{
		Name:   args.Name,
		Source: []byte(args.Source),
		Sender: args.Sender,
		Budget: uint64(args.Budget),
		Args:   vals,
	})
	if err != nil {
		return err
	}
	fillReceipt(reply, receipt)
	return nil
}

// InvokeArgs are the arguments for Invoke.
type InvokeArgs struct {
	Contract string                     `json:"contract"`
	Function string                     `json:"function"`
	Sender   string                     `json:"sender"`
	Budget   cjson.Uint64               `json:"budget"`
	Args     map[string]json.RawMessage `json:"args"`
}

// Invoke calls an exported contract function and returns the
// transaction receipt.
func (s *Service) Invoke(_ *http.Request, args *InvokeArgs, reply *ReceiptReply) error {
	vals, err := decodeArgs(args.Args)
	if err != nil {
		return err
	}
	receipt, err := s.engine.SubmitInvoke(&InvokeTx{
		Contract: args.Contract,
		Function: args.Function,
		Sender:   args.Sender,
		Budget:   uint64(args.Budget),
		Args:     vals,
	})
	if err != nil {
		return err
	}
	fillReceipt(reply, receipt)
	return nil
}

// GetContractArgs are the arguments for GetContract.
type GetContractArgs struct {
	Name string `json:"name"`
}

// GetContractReply is the registry record of a deployed contract.
type GetContractReply struct {
	Name      string `json:"name"`
	Source    string `json:"source"`
	Owner     string `json:"owner"`
	Submitted string `json:"submitted"`
}

// GetContract returns the source and provenance of a deployed contract.
func (s *Service) GetContract(_ *http.Request, args *GetContractArgs, reply *GetContractReply) error {
	info, err := s.engine.Contract(args.Name)
	if errors.Is(err, database.ErrNotFound) {
		return errContractNotFound
	}
	if err != nil {
		return err
	}
	reply.Name = info.Name
	reply.Source = string(info.Source)
	reply.Owner = info.Owner
	reply.Submitted = info.Submitted.String()
	return nil
}

// GetStateArgs are the arguments for GetState.
type GetStateArgs struct {
	Key string `json:"key"`
}

// GetStateReply carries one raw state entry.
type GetStateReply struct {
	Value json.RawMessage `json:"value,omitempty"`
	Found bool            `json:"found"`
}

// GetState reads one state key from the committed view, unmetered. The
// value comes back as the stored canonical JSON.
func (s *Service) GetState(_ *http.Request, args *GetStateArgs, reply *GetStateReply) error {
	raw, found, err := s.engine.ReadState(args.Key)
	if err != nil {
		return err
	}
	reply.Found = found
	if found {
		reply.Value = json.RawMessage(raw)
	}
	return nil
}

// GetReceiptArgs are the arguments for GetReceipt.
type GetReceiptArgs struct {
	TxID ids.ID `json:"txID"`
}

// GetReceipt returns the receipt of a past transaction.
func (s *Service) GetReceipt(_ *http.Request, args *GetReceiptArgs, reply *ReceiptReply) error {
	receipt, err := s.engine.Receipt(args.TxID)
	if errors.Is(err, database.ErrNotFound) {
		return errReceiptNotFound
	}
	if err != nil {
		return err
	}
	fillReceipt(reply, receipt)
	return nil
}

// LastHeightArgs are the (empty) arguments for LastHeight.
type LastHeightArgs struct{}

// LastHeightReply carries the last sealed block height.
type LastHeightReply struct {
	Height cjson.Uint64 `json:"height"`
}

// LastHeight returns the height of the last sealed block.
func (s *Service) LastHeight(_ *http.Request, _ *LastHeightArgs, reply *LastHeightReply) error {
	height, err := s.engine.LastHeight()
	if err != nil {
		return err
	}
	reply.Height = cjson.Uint64(height)
	return nil
}
