// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contractingvm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	log "github.com/inconshreveable/log15"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/ava-labs/avalanchego/utils/timer/mockable"
	"github.com/ava-labs/avalanchego/version"

	"github.com/convm/contractingvm/lang"
	"github.com/convm/contractingvm/runtime"
	"github.com/convm/contractingvm/stamps"
	"github.com/convm/contractingvm/storage"
	"github.com/convm/contractingvm/types"
)

const Name = "contractingvm"

var (
	Version = &version.Semantic{Major: 1, Minor: 0, Patch: 0}

	errNoSender = errors.New("transaction has no sender")
)

// Engine runs contract transactions against a versioned state store.
// Each Deploy or Invoke is one atomic transaction: it either commits
// every staged write and its event log, or leaves no trace beyond its
// receipt. Writes accumulate in the version layer until Commit flushes
// them to the backing database at a block boundary.
type Engine struct {
	lock    sync.RWMutex
	config  Config
	clock   mockable.Clock
	log     log.Logger
	state   State
	modules *cache.LRU[string, *lang.Module]
	metrics *metrics
}

// NewEngine builds an engine over db. A nil registerer keeps metrics
// local to the engine.
func NewEngine(db database.Database, config Config, logger log.Logger, registerer prometheus.Registerer) (*Engine, error) {
	config = config.withDefaults()
	if logger == nil {
		logger = log.New("module", Name)
	}
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	m, err := newMetrics(registerer)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:  config,
		log:     logger,
		state:   NewState(db),
		modules: &cache.LRU[string, *lang.Module]{Size: config.ModuleCacheSize},
		metrics: m,
	}
	height, err := e.state.LastHeight()
	if err != nil {
		return nil, err
	}
	e.log.Info("engine ready", "height", height, "defaultBudget", config.DefaultBudget)
	return e, nil
}

// DeployTx submits contract source under a fresh name and runs its
// constructor.
type DeployTx struct {
	Name   string
	Source []byte
	Sender string
	// Budget is the stamp budget; 0 applies the engine default.
	Budget uint64
	Args   map[string]types.Value
}

// InvokeTx calls an exported function of a deployed contract.
type InvokeTx struct {
	Contract string
	Function string
	Sender   string
	Budget   uint64
	Args     map[string]types.Value
}

// Deploy runs tx as one atomic transaction in blockCtx and returns its
// receipt. The returned error reports node-level trouble only;
// contract-level failures land in the receipt.
func (e *Engine) Deploy(blockCtx runtime.BlockContext, tx *DeployTx) (*Receipt, error) {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.deploy(blockCtx, tx)
}

// Invoke runs tx as one atomic transaction in blockCtx and returns its
// receipt.
func (e *Engine) Invoke(blockCtx runtime.BlockContext, tx *InvokeTx) (*Receipt, error) {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.invoke(blockCtx, tx)
}

// SubmitDeploy runs tx in a fresh single-transaction dev-mode block and
// flushes it to the backing store.
func (e *Engine) SubmitDeploy(tx *DeployTx) (*Receipt, error) {
	e.lock.Lock()
	defer e.lock.Unlock()
	blockCtx, err := e.nextBlockContext()
	if err != nil {
		return nil, err
	}
	receipt, err := e.deploy(blockCtx, tx)
	if err != nil {
		return nil, err
	}
	return receipt, e.state.Commit()
}

// SubmitInvoke runs tx in a fresh single-transaction dev-mode block and
// flushes it to the backing store.
func (e *Engine) SubmitInvoke(tx *InvokeTx) (*Receipt, error) {
	e.lock.Lock()
	defer e.lock.Unlock()
	blockCtx, err := e.nextBlockContext()
	if err != nil {
		return nil, err
	}
	receipt, err := e.invoke(blockCtx, tx)
	if err != nil {
		return nil, err
	}
	return receipt, e.state.Commit()
}

func (e *Engine) deploy(blockCtx runtime.BlockContext, tx *DeployTx) (*Receipt, error) {
	if tx.Sender == "" {
		return nil, errNoSender
	}
	txID, err := tx.digest(blockCtx.Height)
	if err != nil {
		return nil, err
	}
	receipt := newReceipt(OpDeploy, txID, blockCtx.Height, tx.Name, "")
	driver := storage.NewDriver(e.state.Data(), stamps.NewMeter(e.budget(tx.Budget)))
	env := runtime.NewEnv(blockCtx, tx.Sender, driver, e.loaderFor(driver)).
		WithStepLimit(e.config.StepLimit)

	mod, runErr := e.runDeploy(env, driver, blockCtx, tx)
	if err := e.seal(receipt, env, driver, runErr); err != nil {
		return nil, err
	}
	if receipt.Status == StatusCommitted {
		e.modules.Put(tx.Name, mod)
	}
	return receipt, e.finish(receipt)
}

// runDeploy validates, registers, and constructs the contract, in that
// order. Registering first makes the new contract resolvable should its
// constructor reach it through another contract.
func (e *Engine) runDeploy(env *runtime.Env, driver *storage.Driver, blockCtx runtime.BlockContext, tx *DeployTx) (*lang.Module, error) {
	mod, err := lang.Validate(tx.Name, tx.Source)
	if err != nil {
		return nil, err
	}
	registry := storage.NewRegistry(driver)
	if err := registry.Register(tx.Name, tx.Source, tx.Sender, blockCtx.Time); err != nil {
		return nil, err
	}
	return mod, runtime.New(env).RunConstructor(mod, tx.Sender, tx.Args)
}

func (e *Engine) invoke(blockCtx runtime.BlockContext, tx *InvokeTx) (*Receipt, error) {
	if tx.Sender == "" {
		return nil, errNoSender
	}
	txID, err := tx.digest(blockCtx.Height)
	if err != nil {
		return nil, err
	}
	receipt := newReceipt(OpInvoke, txID, blockCtx.Height, tx.Contract, tx.Function)
	driver := storage.NewDriver(e.state.Data(), stamps.NewMeter(e.budget(tx.Budget)))
	env := runtime.NewEnv(blockCtx, tx.Sender, driver, e.loaderFor(driver)).
		WithStepLimit(e.config.StepLimit)

	ret, runErr := runtime.New(env).Invoke(tx.Contract, tx.Function, tx.Args)
	if runErr == nil && ret != nil {
		raw, err := types.Encode(ret)
		if err != nil {
			runErr = runtime.Abortf(runtime.AbortType,
				"value of kind %s cannot be returned to the caller", types.KindOf(ret))
		} else {
			receipt.Return = raw
		}
	}
	if err := e.seal(receipt, env, driver, runErr); err != nil {
		return nil, err
	}
	return receipt, e.finish(receipt)
}

// seal closes out the transaction on the receipt: meter totals always,
// then either the failure or the committed event log and write set.
func (e *Engine) seal(receipt *Receipt, env *runtime.Env, driver *storage.Driver, runErr error) error {
	meter := driver.Meter()
	receipt.StampsUsed = meter.Used()
	receipt.BytesRead = meter.BytesRead()
	receipt.BytesWritten = meter.BytesWritten()

	if runErr != nil {
		if !receipt.fail(runErr) {
			return runErr
		}
		driver.Discard()
		return nil
	}

	entries, err := entriesFrom(env.Log)
	if err != nil {
		return err
	}
	receipt.Events = entries
	receipt.WriteKeys = driver.Staged()
	return driver.Commit(e.state.Data())
}

// finish persists the receipt, advances the height watermark, and
// records the outcome.
func (e *Engine) finish(receipt *Receipt) error {
	if err := e.state.PutReceipt(receipt); err != nil {
		return err
	}
	last, err := e.state.LastHeight()
	if err != nil {
		return err
	}
	if receipt.Height > last {
		if err := e.state.SetLastHeight(receipt.Height); err != nil {
			return err
		}
	}
	e.metrics.observe(receipt)
	if receipt.Status == StatusCommitted {
		e.log.Info("transaction committed",
			"op", receipt.Op, "contract", receipt.Contract,
			"txID", receipt.TxID, "stamps", receipt.StampsUsed)
	} else {
		e.log.Info("transaction failed",
			"op", receipt.Op, "contract", receipt.Contract,
			"txID", receipt.TxID, "kind", receipt.FailureKind, "err", receipt.Error)
	}
	return nil
}

func (e *Engine) budget(txBudget uint64) uint64 {
	if txBudget == 0 {
		return e.config.DefaultBudget
	}
	return txBudget
}

// NextBlockContext mints the dev-mode context for the next block: one
// height above the last sealed block, stamped with the engine clock,
// with entropy derived from both. An embedding node supplies its own
// contexts instead.
func (e *Engine) NextBlockContext() (runtime.BlockContext, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()
	return e.nextBlockContext()
}

func (e *Engine) nextBlockContext() (runtime.BlockContext, error) {
	last, err := e.state.LastHeight()
	if err != nil {
		return runtime.BlockContext{}, err
	}
	height := last + 1
	now := e.clock.Time()

	var seed [16]byte
	binary.BigEndian.PutUint64(seed[:8], height)
	binary.BigEndian.PutUint64(seed[8:], uint64(now.Unix()))
	return runtime.BlockContext{
		Height:  height,
		Time:    types.DatetimeFromUnix(now.Unix()),
		Entropy: hashing.ComputeHash256(seed[:]),
	}, nil
}

// ReadState returns the canonical JSON stored under key in the
// committed view. Queries are unmetered.
func (e *Engine) ReadState(key string) ([]byte, bool, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()
	raw, err := e.state.Data().Get([]byte(key))
	switch err {
	case nil:
		return raw, true, nil
	case database.ErrNotFound:
		return nil, false, nil
	default:
		return nil, false, err
	}
}

// ContractInfo describes a deployed contract's registry records.
type ContractInfo struct {
	Name      string
	Source    []byte
	Owner     string
	Submitted types.Datetime
}

// Contract returns the registry records for name, or
// database.ErrNotFound if it was never deployed.
func (e *Engine) Contract(name string) (*ContractInfo, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()
	data := e.state.Data()

	source, err := data.Get([]byte(storage.CodeKey(name)))
	if err != nil {
		return nil, err
	}
	owner, err := data.Get([]byte(storage.OwnerKey(name)))
	if err != nil {
		return nil, err
	}
	rawAt, err := data.Get([]byte(storage.SubmittedKey(name)))
	if err != nil {
		return nil, err
	}
	val, err := types.Decode(rawAt)
	if err != nil {
		return nil, err
	}
	at, ok := val.(types.Datetime)
	if !ok {
		return nil, fmt.Errorf("corrupt deployment record for %q", name)
	}
	return &ContractInfo{
		Name:      name,
		Source:    source,
		Owner:     string(owner),
		Submitted: at,
	}, nil
}

// Receipt returns the persisted receipt for txID, or
// database.ErrNotFound.
func (e *Engine) Receipt(txID ids.ID) (*Receipt, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()
	return e.state.GetReceipt(txID)
}

// LastHeight returns the height of the last sealed block.
func (e *Engine) LastHeight() (uint64, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()
	return e.state.LastHeight()
}

// Commit flushes every accepted transaction to the backing store.
func (e *Engine) Commit() error {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.state.Commit()
}

// Close releases the underlying database.
func (e *Engine) Close() error {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.state.Close()
}
