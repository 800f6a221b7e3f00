// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contractingvm

import (
	"errors"

	"github.com/ava-labs/avalanchego/ids"

	"github.com/convm/contractingvm/events"
	"github.com/convm/contractingvm/lang"
	"github.com/convm/contractingvm/runtime"
	"github.com/convm/contractingvm/stamps"
	"github.com/convm/contractingvm/storage"
	"github.com/convm/contractingvm/types"
)

// Op distinguishes the two transaction kinds.
type Op uint8

const (
	OpDeploy Op = iota
	OpInvoke
)

func (o Op) String() string {
	if o == OpDeploy {
		return "deploy"
	}
	return "invoke"
}

// Status is the terminal outcome of a transaction.
type Status uint8

const (
	// StatusCommitted: the transaction ran to completion and its
	// writes were applied.
	StatusCommitted Status = iota
	// StatusRejected: the submission failed before execution, at
	// validation or registration time. Nothing ran.
	StatusRejected
	// StatusAborted: execution started and failed. Every pending
	// effect was discarded.
	StatusAborted
)

var statusNames = [...]string{
	StatusCommitted: "committed",
	StatusRejected:  "rejected",
	StatusAborted:   "aborted",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// EventEntry is one emitted event as recorded in a receipt. Payload is
// the canonical JSON object of every declared parameter; Indexed lists
// the parameter names marked indexable, in declaration order.
type EventEntry struct {
	Contract string   `serialize:"true"`
	Name     string   `serialize:"true"`
	Payload  []byte   `serialize:"true"`
	Indexed  []string `serialize:"true"`
}

// Receipt is the persisted outcome of one transaction. Values that the
// linear codec cannot carry natively (the return value, event payloads)
// are flattened to canonical JSON bytes.
type Receipt struct {
	TxID     ids.ID `serialize:"true"`
	Height   uint64 `serialize:"true"`
	Op       Op     `serialize:"true"`
	Contract string `serialize:"true"`
	Function string `serialize:"true"`

	Status      Status `serialize:"true"`
	FailureKind string `serialize:"true"`
	Error       string `serialize:"true"`

	// Return is the canonical JSON of the invoked function's return
	// value; empty when the function returned nothing or the
	// transaction failed.
	Return []byte `serialize:"true"`

	StampsUsed   uint64 `serialize:"true"`
	BytesRead    uint64 `serialize:"true"`
	BytesWritten uint64 `serialize:"true"`

	Events    []EventEntry `serialize:"true"`
	WriteKeys []string     `serialize:"true"`
}

func newReceipt(op Op, txID ids.ID, height uint64, contract, function string) *Receipt {
	return &Receipt{
		TxID:     txID,
		Height:   height,
		Op:       op,
		Contract: contract,
		Function: function,
		Status:   StatusCommitted,
	}
}

// fail records err on the receipt and reports whether it was a
// transaction-level failure. Anything else is the node's problem, not
// the transaction's, and must surface as a plain error.
func (r *Receipt) fail(err error) bool {
	if rej, ok := lang.AsRejection(err); ok {
		r.Status = StatusRejected
		r.FailureKind = rej.First().Kind.String()
		r.Error = err.Error()
		return true
	}
	if abort, ok := runtime.AsAbort(err); ok {
		r.Status = StatusAborted
		r.FailureKind = abort.Kind.String()
		r.Error = abort.Error()
		return true
	}
	// Registration failures reach here raw: Register runs outside the
	// interpreter, so its storage errors are not mapped to aborts.
	switch {
	case errors.Is(err, storage.ErrAlreadyDeployed):
		r.Status = StatusRejected
		r.FailureKind = lang.ViolationName.String()
	case errors.Is(err, stamps.ErrInsufficientStamps):
		r.Status = StatusAborted
		r.FailureKind = runtime.AbortStamps.String()
	case errors.Is(err, storage.ErrKeyTooLong):
		r.Status = StatusAborted
		r.FailureKind = runtime.AbortKey.String()
	default:
		return false
	}
	r.Error = err.Error()
	return true
}

// entriesFrom flattens the transaction log into receipt entries.
func entriesFrom(log *events.Log) ([]EventEntry, error) {
	recs := log.Records()
	if len(recs) == 0 {
		return nil, nil
	}
	entries := make([]EventEntry, len(recs))
	for i, rec := range recs {
		payload, err := types.Encode(rec.Payload())
		if err != nil {
			return nil, err
		}
		indexed := rec.IndexedFields()
		names := make([]string, len(indexed))
		for j, f := range indexed {
			names[j] = f.Name
		}
		entries[i] = EventEntry{
			Contract: rec.Contract,
			Name:     rec.Name,
			Payload:  payload,
			Indexed:  names,
		}
	}
	return entries, nil
}
