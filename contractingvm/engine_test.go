// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contractingvm

import (
	"testing"
	"time"

	log "github.com/inconshreveable/log15"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/memdb"

	"github.com/convm/contractingvm/runtime"
	"github.com/convm/contractingvm/stamps"
	"github.com/convm/contractingvm/types"
)

const tokenSource = `package con_token

var owner = Variable()
var balances = Hash(0)
var TransferEvent = LogEvent("Transfer",
	Indexed("from", string), Indexed("to", string), Param("amount", int, decimal))

func seed(amount int) {
	owner.Set(ctx.Caller)
	balances[ctx.Caller] = amount
}

func Transfer(amount int, to string) {
	assert(amount > 0, "cannot transfer a non-positive amount")
	sender := ctx.Caller
	assert(balances[sender] >= amount, "insufficient balance")
	balances[sender] = balances[sender] - amount
	balances[to] = balances[to] + amount
	TransferEvent(dict{"from": sender, "to": to, "amount": amount})
}

func BalanceOf(account string) {
	return balances[account]
}
`

func newTestEngineOver(t *testing.T, db database.Database) *Engine {
	t.Helper()
	logger := log.New()
	logger.SetHandler(log.DiscardHandler())
	engine, err := NewEngine(db, DefaultConfig(), logger, prometheus.NewRegistry())
	require.NoError(t, err)
	return engine
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return newTestEngineOver(t, memdb.New())
}

func testBlockCtx(height uint64) runtime.BlockContext {
	entropy := make([]byte, 32)
	for i := range entropy {
		entropy[i] = byte(height) + byte(i)
	}
	return runtime.BlockContext{
		Height:  height,
		Time:    types.NewDatetime(2024, 6, 1, 12, 0, 0),
		Entropy: entropy,
	}
}

func deployToken(t *testing.T, engine *Engine) *Receipt {
	t.Helper()
	receipt, err := engine.Deploy(testBlockCtx(1), &DeployTx{
		Name:   "con_token",
		Source: []byte(tokenSource),
		Sender: "alice",
		Budget: 2_000_000,
		Args:   map[string]types.Value{"amount": int64(1000)},
	})
	require.NoError(t, err)
	require.Equal(t, StatusCommitted, receipt.Status, receipt.Error)
	return receipt
}

func TestDeployCharges(t *testing.T) {
	require := require.New(t)
	engine := newTestEngine(t)

	receipt := deployToken(t, engine)

	// A deployment writes three registry records plus whatever the
	// constructor stores: owner "alice" and balance 1000.
	timeRaw := types.MustEncode(types.NewDatetime(2024, 6, 1, 12, 0, 0))
	written := uint64(len(tokenSource)) + uint64(len("alice")) + uint64(len(timeRaw)) +
		uint64(len(`"alice"`)) + uint64(len(`1000`))
	require.Equal(written, receipt.BytesWritten)
	require.Zero(receipt.BytesRead)
	require.Equal(written*stamps.WriteCostPerByte, receipt.StampsUsed)

	require.Equal([]string{
		"con_token.__code__",
		"con_token.__owner__",
		"con_token.__submitted__",
		"con_token.balances:alice",
		"con_token.owner",
	}, receipt.WriteKeys)

	info, err := engine.Contract("con_token")
	require.NoError(err)
	require.Equal([]byte(tokenSource), info.Source)
	require.Equal("alice", info.Owner)
	require.True(types.NewDatetime(2024, 6, 1, 12, 0, 0).Equal(info.Submitted))
}

func TestTransferScenario(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	engine := newTestEngine(t)
	deployToken(t, engine)

	receipt, err := engine.Invoke(testBlockCtx(2), &InvokeTx{
		Contract: "con_token",
		Function: "Transfer",
		Sender:   "alice",
		Budget:   1_000_000,
		Args:     map[string]types.Value{"amount": int64(250), "to": "bob"},
	})
	require.NoError(err)
	require.Equal(StatusCommitted, receipt.Status, receipt.Error)

	// Resolution reads the stored source and owner; the body reads the
	// sender balance twice and writes both balances back.
	resolution := uint64(len(tokenSource)) + uint64(len("alice"))
	read := resolution + 2*uint64(len(`1000`))
	written := uint64(len(`750`)) + uint64(len(`250`))
	assert.Equal(read, receipt.BytesRead)
	assert.Equal(written, receipt.BytesWritten)
	assert.Equal(read*stamps.ReadCostPerByte+written*stamps.WriteCostPerByte, receipt.StampsUsed)

	assert.Empty(receipt.Return)
	assert.Equal([]string{"con_token.balances:alice", "con_token.balances:bob"}, receipt.WriteKeys)

	require.Len(receipt.Events, 1)
	event := receipt.Events[0]
	assert.Equal("con_token", event.Contract)
	assert.Equal("Transfer", event.Name)
	assert.Equal([]string{"from", "to"}, event.Indexed)
	assert.JSONEq(`{"amount":250,"from":"alice","to":"bob"}`, string(event.Payload))

	raw, found, err := engine.ReadState("con_token.balances:alice")
	require.NoError(err)
	require.True(found)
	assert.Equal([]byte(`750`), raw)

	balance, err := engine.Invoke(testBlockCtx(3), &InvokeTx{
		Contract: "con_token",
		Function: "BalanceOf",
		Sender:   "carol",
		Budget:   1_000_000,
		Args:     map[string]types.Value{"account": "bob"},
	})
	require.NoError(err)
	require.Equal(StatusCommitted, balance.Status, balance.Error)
	assert.Equal([]byte(`250`), balance.Return)
	assert.Equal((resolution+uint64(len(`250`)))*stamps.ReadCostPerByte, balance.StampsUsed)
}

func TestInvokeAbortLeavesNoTrace(t *testing.T) {
	require := require.New(t)
	engine := newTestEngine(t)
	deployToken(t, engine)

	receipt, err := engine.Invoke(testBlockCtx(2), &InvokeTx{
		Contract: "con_token",
		Function: "Transfer",
		Sender:   "alice",
		Budget:   1_000_000,
		Args:     map[string]types.Value{"amount": int64(9999), "to": "bob"},
	})
	require.NoError(err)
	require.Equal(StatusAborted, receipt.Status)
	require.Equal("assertion", receipt.FailureKind)
	require.Contains(receipt.Error, "insufficient balance")
	require.Empty(receipt.Events)
	require.Empty(receipt.WriteKeys)

	raw, found, err := engine.ReadState("con_token.balances:alice")
	require.NoError(err)
	require.True(found)
	require.Equal([]byte(`1000`), raw)

	_, found, err = engine.ReadState("con_token.balances:bob")
	require.NoError(err)
	require.False(found)
}

func TestInvokeMissingContract(t *testing.T) {
	require := require.New(t)
	engine := newTestEngine(t)

	receipt, err := engine.Invoke(testBlockCtx(1), &InvokeTx{
		Contract: "con_ghost",
		Function: "Anything",
		Sender:   "alice",
	})
	require.NoError(err)
	require.Equal(StatusAborted, receipt.Status)
	require.Equal("not-found", receipt.FailureKind)
	require.Zero(receipt.StampsUsed)
}

func TestDeployRejectsInvalidSource(t *testing.T) {
	require := require.New(t)
	engine := newTestEngine(t)

	receipt, err := engine.Deploy(testBlockCtx(1), &DeployTx{
		Name:   "con_bad",
		Source: []byte("package con_bad\n\nimport \"os\"\n\nfunc Run() {\n\treturn 1\n}\n"),
		Sender: "alice",
	})
	require.NoError(err)
	require.Equal(StatusRejected, receipt.Status)
	require.Equal("import", receipt.FailureKind)
	require.Zero(receipt.StampsUsed)

	_, err = engine.Contract("con_bad")
	require.ErrorIs(err, database.ErrNotFound)
}

func TestDeployNameCollision(t *testing.T) {
	require := require.New(t)
	engine := newTestEngine(t)
	deployToken(t, engine)

	receipt, err := engine.Deploy(testBlockCtx(2), &DeployTx{
		Name:   "con_token",
		Source: []byte(tokenSource),
		Sender: "mallory",
		Budget: 2_000_000,
		Args:   map[string]types.Value{"amount": int64(1)},
	})
	require.NoError(err)
	require.Equal(StatusRejected, receipt.Status)
	require.Equal("name", receipt.FailureKind)
	require.Contains(receipt.Error, "already taken")

	info, err := engine.Contract("con_token")
	require.NoError(err)
	require.Equal("alice", info.Owner)
}

func TestBudgetBoundary(t *testing.T) {
	require := require.New(t)

	resolution := uint64(len(tokenSource)) + uint64(len("alice"))
	exact := (resolution+2*uint64(len(`1000`)))*stamps.ReadCostPerByte +
		(uint64(len(`750`))+uint64(len(`250`)))*stamps.WriteCostPerByte

	tx := func(budget uint64) *InvokeTx {
		return &InvokeTx{
			Contract: "con_token",
			Function: "Transfer",
			Sender:   "alice",
			Budget:   budget,
			Args:     map[string]types.Value{"amount": int64(250), "to": "bob"},
		}
	}

	t.Run("exact fit commits", func(t *testing.T) {
		engine := newTestEngine(t)
		deployToken(t, engine)
		receipt, err := engine.Invoke(testBlockCtx(2), tx(exact))
		require.NoError(err)
		require.Equal(StatusCommitted, receipt.Status, receipt.Error)
		require.Equal(exact, receipt.StampsUsed)
	})

	t.Run("one short consumes everything", func(t *testing.T) {
		engine := newTestEngine(t)
		deployToken(t, engine)
		receipt, err := engine.Invoke(testBlockCtx(2), tx(exact-1))
		require.NoError(err)
		require.Equal(StatusAborted, receipt.Status)
		require.Equal("stamps", receipt.FailureKind)
		require.Equal(exact-1, receipt.StampsUsed)

		raw, found, err := engine.ReadState("con_token.balances:alice")
		require.NoError(err)
		require.True(found)
		require.Equal([]byte(`1000`), raw)
	})
}

const storeSource = `package con_store

var cells = Hash()

func Put(key string, value string) {
	cells[key] = value
}

func Get(key string) {
	return cells[key]
}
`

const proxySource = `package con_proxy

import "con_store"

func Relay(key string, value string) {
	con_store.Put(key, value)
	return con_store.Get(key)
}
`

func TestCrossContractResolutionChargedOnce(t *testing.T) {
	require := require.New(t)
	engine := newTestEngine(t)

	receipt, err := engine.Deploy(testBlockCtx(1), &DeployTx{
		Name: "con_store", Source: []byte(storeSource), Sender: "alice", Budget: 2_000_000,
	})
	require.NoError(err)
	require.Equal(StatusCommitted, receipt.Status, receipt.Error)

	receipt, err = engine.Deploy(testBlockCtx(2), &DeployTx{
		Name: "con_proxy", Source: []byte(proxySource), Sender: "bob", Budget: 2_000_000,
	})
	require.NoError(err)
	require.Equal(StatusCommitted, receipt.Status, receipt.Error)

	receipt, err = engine.Invoke(testBlockCtx(3), &InvokeTx{
		Contract: "con_proxy",
		Function: "Relay",
		Sender:   "carol",
		Budget:   1_000_000,
		Args:     map[string]types.Value{"key": "greeting", "value": "hi"},
	})
	require.NoError(err)
	require.Equal(StatusCommitted, receipt.Status, receipt.Error)
	require.Equal([]byte(`"hi"`), receipt.Return)

	// Both contracts resolve once each; Get then reads back the
	// pending write, which is charged like any other read.
	read := uint64(len(proxySource)) + uint64(len("bob")) +
		uint64(len(storeSource)) + uint64(len("alice")) +
		uint64(len(`"hi"`))
	written := uint64(len(`"hi"`))
	require.Equal(read, receipt.BytesRead)
	require.Equal(read*stamps.ReadCostPerByte+written*stamps.WriteCostPerByte, receipt.StampsUsed)
	require.Equal([]string{"con_store.cells:greeting"}, receipt.WriteKeys)
}

const leakSource = `package con_leak

func Grab(target string) {
	return importlib.ImportModule(target)
}
`

func TestHandleCannotEscapeToReceipt(t *testing.T) {
	require := require.New(t)
	engine := newTestEngine(t)

	receipt, err := engine.Deploy(testBlockCtx(1), &DeployTx{
		Name: "con_store", Source: []byte(storeSource), Sender: "alice", Budget: 2_000_000,
	})
	require.NoError(err)
	require.Equal(StatusCommitted, receipt.Status, receipt.Error)

	receipt, err = engine.Deploy(testBlockCtx(2), &DeployTx{
		Name: "con_leak", Source: []byte(leakSource), Sender: "bob", Budget: 2_000_000,
	})
	require.NoError(err)
	require.Equal(StatusCommitted, receipt.Status, receipt.Error)

	receipt, err = engine.Invoke(testBlockCtx(3), &InvokeTx{
		Contract: "con_leak",
		Function: "Grab",
		Sender:   "carol",
		Budget:   1_000_000,
		Args:     map[string]types.Value{"target": "con_store"},
	})
	require.NoError(err)
	require.Equal(StatusAborted, receipt.Status)
	require.Equal("type", receipt.FailureKind)
	require.Contains(receipt.Error, "cannot be returned")
}

func TestReceiptPersistsAcrossRestart(t *testing.T) {
	require := require.New(t)
	db := memdb.New()
	engine := newTestEngineOver(t, db)
	engine.clock.Set(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	deployed, err := engine.SubmitDeploy(&DeployTx{
		Name:   "con_token",
		Source: []byte(tokenSource),
		Sender: "alice",
		Budget: 2_000_000,
		Args:   map[string]types.Value{"amount": int64(1000)},
	})
	require.NoError(err)
	require.Equal(StatusCommitted, deployed.Status, deployed.Error)
	require.EqualValues(1, deployed.Height)

	invoked, err := engine.SubmitInvoke(&InvokeTx{
		Contract: "con_token",
		Function: "Transfer",
		Sender:   "alice",
		Budget:   1_000_000,
		Args:     map[string]types.Value{"amount": int64(250), "to": "bob"},
	})
	require.NoError(err)
	require.Equal(StatusCommitted, invoked.Status, invoked.Error)
	require.EqualValues(2, invoked.Height)

	reopened := newTestEngineOver(t, db)
	height, err := reopened.LastHeight()
	require.NoError(err)
	require.EqualValues(2, height)

	restored, err := reopened.Receipt(invoked.TxID)
	require.NoError(err)
	require.Equal(invoked.TxID, restored.TxID)
	require.Equal(StatusCommitted, restored.Status)
	require.Equal(OpInvoke, restored.Op)
	require.Equal("con_token", restored.Contract)
	require.Equal("Transfer", restored.Function)
	require.Equal(invoked.StampsUsed, restored.StampsUsed)
	require.Equal(invoked.WriteKeys, restored.WriteKeys)
	require.Len(restored.Events, 1)
	require.Equal(invoked.Events[0].Payload, restored.Events[0].Payload)
	require.Equal(invoked.Events[0].Indexed, restored.Events[0].Indexed)

	raw, found, err := reopened.ReadState("con_token.balances:bob")
	require.NoError(err)
	require.True(found)
	require.Equal([]byte(`250`), raw)
}

func TestHeightWatermark(t *testing.T) {
	require := require.New(t)
	engine := newTestEngine(t)

	deployToken(t, engine)
	height, err := engine.LastHeight()
	require.NoError(err)
	require.EqualValues(1, height)

	receipt, err := engine.Invoke(testBlockCtx(9), &InvokeTx{
		Contract: "con_token",
		Function: "BalanceOf",
		Sender:   "alice",
		Args:     map[string]types.Value{"account": "alice"},
	})
	require.NoError(err)
	require.Equal(StatusCommitted, receipt.Status, receipt.Error)

	height, err = engine.LastHeight()
	require.NoError(err)
	require.EqualValues(9, height)

	// An earlier-height replay never moves the watermark backwards.
	_, err = engine.Invoke(testBlockCtx(4), &InvokeTx{
		Contract: "con_token",
		Function: "BalanceOf",
		Sender:   "alice",
		Args:     map[string]types.Value{"account": "alice"},
	})
	require.NoError(err)
	height, err = engine.LastHeight()
	require.NoError(err)
	require.EqualValues(9, height)
}

func TestEngineMetrics(t *testing.T) {
	require := require.New(t)
	engine := newTestEngine(t)
	deployToken(t, engine)

	receipt, err := engine.Invoke(testBlockCtx(2), &InvokeTx{
		Contract: "con_token",
		Function: "Transfer",
		Sender:   "alice",
		Budget:   1_000_000,
		Args:     map[string]types.Value{"amount": int64(250), "to": "bob"},
	})
	require.NoError(err)
	require.Equal(StatusCommitted, receipt.Status, receipt.Error)

	require.Equal(1.0, testutil.ToFloat64(engine.metrics.contracts))
	require.Equal(1.0, testutil.ToFloat64(engine.metrics.events))
	require.Equal(1.0, testutil.ToFloat64(engine.metrics.txs.WithLabelValues("deploy", "committed")))
	require.Equal(1.0, testutil.ToFloat64(engine.metrics.txs.WithLabelValues("invoke", "committed")))
}

func TestTransactionIDsDiffer(t *testing.T) {
	require := require.New(t)

	tx := &InvokeTx{
		Contract: "con_token",
		Function: "Transfer",
		Sender:   "alice",
		Args:     map[string]types.Value{"amount": int64(1), "to": "bob"},
	}
	first, err := tx.digest(1)
	require.NoError(err)
	second, err := tx.digest(2)
	require.NoError(err)
	require.NotEqual(first, second)

	again, err := tx.digest(1)
	require.NoError(err)
	require.Equal(first, again)
}
