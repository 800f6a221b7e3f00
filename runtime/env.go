// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"encoding/hex"
	"math/rand"

	"github.com/convm/contractingvm/events"
	"github.com/convm/contractingvm/lang"
	"github.com/convm/contractingvm/stamps"
	"github.com/convm/contractingvm/storage"
	"github.com/convm/contractingvm/types"
)

// DefaultStepLimit bounds AST evaluation steps per transaction. Loops
// in the dialect are finite by construction; the ceiling exists so a
// hostile contract cannot stall a node with cheap pure compute. It is
// deliberately not part of the stamp arithmetic.
const DefaultStepLimit = 5_000_000

// BlockContext is the deterministic per-block input shared by every
// transaction in the block.
type BlockContext struct {
	Height  uint64
	Time    types.Datetime
	Entropy []byte
}

// ModuleLoader resolves deployed contracts. Implementations read
// through the metered driver, so resolution is paid for by the
// transaction that triggers it.
type ModuleLoader interface {
	Load(name string) (*lang.Module, error)
	OwnerOf(name string) (string, error)
}

// frame is one live contract activation.
type frame struct {
	contract string
	function string
	caller   string
	owner    string
}

// Env is the ambient state of one executing transaction: block inputs,
// the metered driver, the event log, the step counter, and the call
// stack the context fields are answered from.
type Env struct {
	Block  BlockContext
	Signer string
	Driver *storage.Driver
	Loader ModuleLoader
	Log    *events.Log

	steps uint64
	stack []frame
	rngs  map[string]*rand.Rand
}

// NewEnv prepares the environment for one transaction.
func NewEnv(block BlockContext, signer string, driver *storage.Driver, loader ModuleLoader) *Env {
	return &Env{
		Block:  block,
		Signer: signer,
		Driver: driver,
		Loader: loader,
		Log:    &events.Log{},
		steps:  DefaultStepLimit,
		rngs:   map[string]*rand.Rand{},
	}
}

// WithStepLimit overrides the evaluation step ceiling.
func (e *Env) WithStepLimit(limit uint64) *Env {
	e.steps = limit
	return e
}

// Meter returns the transaction meter.
func (e *Env) Meter() *stamps.Meter { return e.Driver.Meter() }

// step burns one evaluation step.
func (e *Env) step() error {
	if e.steps == 0 {
		return Abortf(AbortSteps, "evaluation step ceiling reached")
	}
	e.steps--
	return nil
}

// push enters a function activation. The entry activation's caller is
// the transaction signer; a cross-contract call is attributed to the
// calling contract; a call within the same contract keeps the caller
// unchanged.
func (e *Env) push(contract, function, owner string) error {
	if len(e.stack) >= types.MaxCallDepth {
		return Abortf(AbortDepth, "call depth limit %d reached", types.MaxCallDepth)
	}
	caller := e.Signer
	if top := e.top(); top != nil {
		if top.contract == contract {
			caller = top.caller
		} else {
			caller = top.contract
		}
	}
	e.stack = append(e.stack, frame{
		contract: contract,
		function: function,
		caller:   caller,
		owner:    owner,
	})
	return nil
}

func (e *Env) pop() {
	e.stack = e.stack[:len(e.stack)-1]
}

func (e *Env) top() *frame {
	if len(e.stack) == 0 {
		return nil
	}
	return &e.stack[len(e.stack)-1]
}

// Depth returns the live activation count.
func (e *Env) Depth() int { return len(e.stack) }

// contextField answers the ctx fields visible to contract code.
func (e *Env) contextField(name string) (types.Value, bool) {
	top := e.top()
	if top == nil {
		return nil, false
	}
	switch name {
	case "Caller":
		return top.caller, true
	case "Signer":
		return e.Signer, true
	case "This":
		return top.contract, true
	case "Owner":
		return top.owner, true
	case "Entry":
		if len(e.stack) == 0 {
			return nil, false
		}
		entry := e.stack[0]
		return entry.contract + "." + entry.function, true
	default:
		return nil, false
	}
}

// ambient answers the bare block values visible to contract code.
func (e *Env) ambient(name string) (types.Value, bool) {
	switch name {
	case "now":
		return e.Block.Time, true
	case "blockNum":
		return int64(e.Block.Height), true
	case "blockHash":
		return formatEntropy(e.Block.Entropy), true
	default:
		return nil, false
	}
}

func formatEntropy(entropy []byte) string {
	return hex.EncodeToString(entropy)
}
