// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"strings"
	"testing"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convm/contractingvm/lang"
	"github.com/convm/contractingvm/stamps"
	"github.com/convm/contractingvm/storage"
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

type mapLoader struct {
	mods   map[string]*lang.Module
	owners map[string]string
}

func newMapLoader() *mapLoader {
	return &mapLoader{mods: map[string]*lang.Module{}, owners: map[string]string{}}
}

func (l *mapLoader) deploy(t *testing.T, name, source, owner string) *lang.Module {
	t.Helper()
	mod, err := lang.Validate(name, []byte(source))
	require.NoError(t, err)
	l.mods[name] = mod
	l.owners[name] = owner
	return mod
}

func (l *mapLoader) Load(name string) (*lang.Module, error) {
	mod, ok := l.mods[name]
	if !ok {
		return nil, &Abort{Kind: AbortNotFound, Msg: "contract " + name + " is not deployed"}
	}
	return mod, nil
}

func (l *mapLoader) OwnerOf(name string) (string, error) {
	owner, ok := l.owners[name]
	if !ok {
		return "", &Abort{Kind: AbortNotFound, Msg: "contract " + name + " is not deployed"}
	}
	return owner, nil
}

func testBlock() BlockContext {
	entropy := make([]byte, 32)
	for i := range entropy {
		entropy[i] = byte(i)
	}
	return BlockContext{
		Height:  7,
		Time:    types.NewDatetime(2024, 6, 1, 12, 0, 0),
		Entropy: entropy,
	}
}

func newTestEnv(db database.Database, budget uint64, signer string, loader ModuleLoader) *Env {
	return NewEnv(testBlock(), signer, storage.NewDriver(db, stamps.NewMeter(budget)), loader)
}

func requireAbort(t *testing.T, err error, kind AbortKind) *Abort {
	t.Helper()
	require.Error(t, err)
	abort, ok := AsAbort(err)
	require.True(t, ok, "expected an abort, got %v", err)
	require.Equal(t, kind, abort.Kind, "wrong abort kind: %v", abort)
	return abort
}

// invoke runs one transaction against db with a fresh meter and
// returns the result alongside the environment for inspection.
func invoke(t *testing.T, db database.Database, loader *mapLoader, signer, contract, function string, args map[string]types.Value) (types.Value, *Env, error) {
	t.Helper()
	env := newTestEnv(db, 100_000, signer, loader)
	v, err := New(env).Invoke(contract, function, args)
	return v, env, err
}

func TestTokenLifecycle(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	db := memdb.New()
	loader := newMapLoader()
	mod := loader.deploy(t, "con_token", tokenSource, "alice")

	// Deployment: the constructor writes the owner ("alice", 7 encoded
	// bytes) and the opening balance ("1000", 4 bytes), all at the write
	// rate.
	seedEnv := newTestEnv(db, 100_000, "alice", loader)
	require.NoError(New(seedEnv).RunConstructor(mod, "alice", map[string]types.Value{"amount": int64(1000)}))
	assert.Equal(uint64(11*stamps.WriteCostPerByte), seedEnv.Meter().Used())
	assert.Equal(uint64(0), seedEnv.Meter().BytesRead())
	require.NoError(seedEnv.Driver.Commit(db))

	// Transfer: two reads of the sender balance ("1000" twice), a free
	// absent read for the recipient, and two writes ("750", "250").
	xferEnv := newTestEnv(db, 100_000, "alice", loader)
	v, err := New(xferEnv).Invoke("con_token", "Transfer", map[string]types.Value{
		"amount": int64(250),
		"to":     "bob",
	})
	require.NoError(err)
	assert.Nil(v)
	assert.Equal(uint64(8), xferEnv.Meter().BytesRead())
	assert.Equal(uint64(6), xferEnv.Meter().BytesWritten())
	assert.Equal(uint64(8*stamps.ReadCostPerByte+6*stamps.WriteCostPerByte), xferEnv.Meter().Used())

	records := xferEnv.Log.Records()
	require.Len(records, 1)
	rec := records[0]
	assert.Equal("con_token", rec.Contract)
	assert.Equal("Transfer", rec.Name)
	require.Len(rec.Fields, 3)
	assert.Equal("from", rec.Fields[0].Name)
	assert.Equal("alice", rec.Fields[0].Value)
	assert.True(rec.Fields[0].Indexed)
	assert.Equal("to", rec.Fields[1].Name)
	assert.Equal("bob", rec.Fields[1].Value)
	assert.True(rec.Fields[1].Indexed)
	assert.Equal("amount", rec.Fields[2].Name)
	assert.Equal(int64(250), rec.Fields[2].Value)
	assert.False(rec.Fields[2].Indexed)
	require.NoError(xferEnv.Driver.Commit(db))

	readEnv := newTestEnv(db, 100_000, "carol", loader)
	v, err = New(readEnv).Invoke("con_token", "BalanceOf", map[string]types.Value{"account": "bob"})
	require.NoError(err)
	assert.Equal(int64(250), v)
	assert.Equal(uint64(3), readEnv.Meter().Used())

	v, _, err = invoke(t, db, loader, "carol", "con_token", "BalanceOf", map[string]types.Value{"account": "alice"})
	require.NoError(err)
	assert.Equal(int64(750), v)
}

func TestInvokeChecksArguments(t *testing.T) {
	db := memdb.New()
	loader := newMapLoader()
	loader.deploy(t, "con_token", tokenSource, "alice")

	tests := []struct {
		name     string
		contract string
		function string
		args     map[string]types.Value
		kind     AbortKind
	}{
		{
			name:     "unknown function",
			contract: "con_token",
			function: "Mint",
			args:     map[string]types.Value{},
			kind:     AbortNotFound,
		},
		{
			name:     "constructor is not invokable",
			contract: "con_token",
			function: "seed",
			args:     map[string]types.Value{"amount": int64(1)},
			kind:     AbortNotFound,
		},
		{
			name:     "contract not deployed",
			contract: "con_ghost",
			function: "Anything",
			args:     map[string]types.Value{},
			kind:     AbortNotFound,
		},
		{
			name:     "missing argument",
			contract: "con_token",
			function: "Transfer",
			args:     map[string]types.Value{"amount": int64(1)},
			kind:     AbortType,
		},
		{
			name:     "extra argument",
			contract: "con_token",
			function: "Transfer",
			args: map[string]types.Value{
				"amount": int64(1), "to": "bob", "memo": "hi",
			},
			kind: AbortType,
		},
		{
			name:     "wrong argument kind",
			contract: "con_token",
			function: "Transfer",
			args:     map[string]types.Value{"amount": "250", "to": "bob"},
			kind:     AbortType,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := invoke(t, db, loader, "alice", tt.contract, tt.function, tt.args)
			requireAbort(t, err, tt.kind)
		})
	}
}

func TestAssertionAbortLeavesNoWrites(t *testing.T) {
	db := memdb.New()
	loader := newMapLoader()
	mod := loader.deploy(t, "con_token", tokenSource, "alice")

	seedEnv := newTestEnv(db, 100_000, "alice", loader)
	require.NoError(t, New(seedEnv).RunConstructor(mod, "alice", map[string]types.Value{"amount": int64(100)}))
	require.NoError(t, seedEnv.Driver.Commit(db))

	_, env, err := invoke(t, db, loader, "alice", "con_token", "Transfer", map[string]types.Value{
		"amount": int64(5000),
		"to":     "bob",
	})
	abort := requireAbort(t, err, AbortAssertion)
	assert.Contains(t, abort.Msg, "insufficient balance")
	assert.Equal(t, "con_token", abort.Contract)
	assert.Equal(t, 0, env.Driver.PendingWrites())
}

const flakySource = `package con_flaky

var notes = Hash()

func Save(key string, ok bool) {
	notes[key] = "saved"
	assert(ok, "rolled back")
}
`

func TestAbortAfterWriteStaysPending(t *testing.T) {
	db := memdb.New()
	loader := newMapLoader()
	loader.deploy(t, "con_flaky", flakySource, "alice")

	// The failed transaction staged a write; discarding the driver is
	// what keeps it from ever reaching the store.
	_, env, err := invoke(t, db, loader, "alice", "con_flaky", "Save", map[string]types.Value{
		"key": "a", "ok": false,
	})
	requireAbort(t, err, AbortAssertion)
	assert.Equal(t, 1, env.Driver.PendingWrites())
	assert.Equal(t, uint64(7*stamps.WriteCostPerByte), env.Meter().Used())
	env.Driver.Discard()
	assert.Equal(t, 0, env.Driver.PendingWrites())
}

func TestStampExhaustionConsumesBudget(t *testing.T) {
	db := memdb.New()
	loader := newMapLoader()
	loader.deploy(t, "con_flaky", flakySource, "alice")

	env := newTestEnv(db, 100, "alice", loader)
	_, err := New(env).Invoke("con_flaky", "Save", map[string]types.Value{"key": "a", "ok": true})
	requireAbort(t, err, AbortStamps)
	assert.Equal(t, uint64(0), env.Meter().Remaining())
	assert.Equal(t, 0, env.Driver.PendingWrites())
}

const controlSource = `package con_control

func Sum(n int) {
	total := 0
	for i := range n {
		total += i
	}
	return total
}

func EvensBelow(limit int, stop int) {
	out := list{}
	for i := range limit {
		if i == stop {
			break
		}
		if i % 2 == 1 {
			continue
		}
		out = append(out, i)
	}
	return out
}

func Keys(d dict) {
	out := list{}
	for k := range d {
		out = append(out, k)
	}
	return out
}

func Swap(a int, b int) {
	a, b = b, a
	return list{a, b}
}

func Bump(n int) {
	n++
	n += 10
	n--
	return n
}

func Glue(s string) {
	out := ""
	for i, r := range s {
		if i > 0 {
			out = out + "-"
		}
		out = out + r
	}
	return out
}
`

func TestControlFlow(t *testing.T) {
	db := memdb.New()
	loader := newMapLoader()
	loader.deploy(t, "con_control", controlSource, "alice")

	v, _, err := invoke(t, db, loader, "alice", "con_control", "Sum", map[string]types.Value{"n": int64(10)})
	require.NoError(t, err)
	assert.Equal(t, int64(45), v)

	v, _, err = invoke(t, db, loader, "alice", "con_control", "EvensBelow", map[string]types.Value{
		"limit": int64(100), "stop": int64(7),
	})
	require.NoError(t, err)
	assert.Equal(t, types.List{int64(0), int64(2), int64(4), int64(6)}, v)

	v, _, err = invoke(t, db, loader, "alice", "con_control", "Swap", map[string]types.Value{
		"a": int64(1), "b": int64(2),
	})
	require.NoError(t, err)
	assert.Equal(t, types.List{int64(2), int64(1)}, v)

	v, _, err = invoke(t, db, loader, "alice", "con_control", "Bump", map[string]types.Value{"n": int64(5)})
	require.NoError(t, err)
	assert.Equal(t, int64(15), v)

	v, _, err = invoke(t, db, loader, "alice", "con_control", "Glue", map[string]types.Value{"s": "héllo"})
	require.NoError(t, err)
	assert.Equal(t, "h-é-l-l-o", v)
}

func TestDictIterationIsSorted(t *testing.T) {
	db := memdb.New()
	loader := newMapLoader()
	loader.deploy(t, "con_control", controlSource, "alice")

	v, _, err := invoke(t, db, loader, "alice", "con_control", "Keys", map[string]types.Value{
		"d": types.Dict{"b": int64(2), "a": int64(1), "c": int64(3)},
	})
	require.NoError(t, err)
	assert.Equal(t, types.List{"a", "b", "c"}, v)
}

const collectionSource = `package con_bag

func Mutate() {
	d := dict{"a": 1, "b": 2}
	delete(d, "a")
	d["c"] = 3
	xs := list{1, 2}
	xs = append(xs, 3, 4)
	xs[0] = 10
	return dict{"d": d, "xs": xs, "n": len(xs), "absent": d["zz"]}
}
`

func TestCollections(t *testing.T) {
	db := memdb.New()
	loader := newMapLoader()
	loader.deploy(t, "con_bag", collectionSource, "alice")

	v, _, err := invoke(t, db, loader, "alice", "con_bag", "Mutate", map[string]types.Value{})
	require.NoError(t, err)
	out, ok := v.(types.Dict)
	require.True(t, ok)
	assert.Equal(t, types.Dict{"b": int64(2), "c": int64(3)}, out["d"])
	assert.Equal(t, types.List{int64(10), int64(2), int64(3), int64(4)}, out["xs"])
	assert.Equal(t, int64(4), out["n"])
	assert.Nil(t, out["absent"])
}

const introSource = `package con_intro

func Who() {
	return dict{
		"caller": ctx.Caller,
		"signer": ctx.Signer,
		"this":   ctx.This,
		"owner":  ctx.Owner,
		"entry":  ctx.Entry,
	}
}

func Facts() {
	return list{now, blockNum, blockHash}
}

func Outer() {
	return inner()
}

func inner() {
	return list{ctx.Caller, ctx.This, ctx.Entry}
}
`

func TestContextFields(t *testing.T) {
	db := memdb.New()
	loader := newMapLoader()
	loader.deploy(t, "con_intro", introSource, "deployer")

	v, _, err := invoke(t, db, loader, "bob", "con_intro", "Who", map[string]types.Value{})
	require.NoError(t, err)
	assert.Equal(t, types.Dict{
		"caller": "bob",
		"signer": "bob",
		"this":   "con_intro",
		"owner":  "deployer",
		"entry":  "con_intro.Who",
	}, v)
}

func TestAmbientBlockFacts(t *testing.T) {
	db := memdb.New()
	loader := newMapLoader()
	loader.deploy(t, "con_intro", introSource, "deployer")

	v, env, err := invoke(t, db, loader, "bob", "con_intro", "Facts", map[string]types.Value{})
	require.NoError(t, err)
	out, ok := v.(types.List)
	require.True(t, ok)
	require.Len(t, out, 3)
	assert.True(t, types.Equal(types.NewDatetime(2024, 6, 1, 12, 0, 0), out[0]))
	assert.Equal(t, int64(7), out[1])
	assert.Equal(t, formatEntropy(env.Block.Entropy), out[2])
}

func TestCallerSurvivesInternalCalls(t *testing.T) {
	db := memdb.New()
	loader := newMapLoader()
	loader.deploy(t, "con_intro", introSource, "deployer")

	// A private helper runs in its own activation, but the caller is
	// still the signer, not the contract itself.
	v, _, err := invoke(t, db, loader, "alice", "con_intro", "Outer", map[string]types.Value{})
	require.NoError(t, err)
	assert.Equal(t, types.List{"alice", "con_intro", "con_intro.Outer"}, v)
}

const deepSource = `package con_deep

func Descend(n int) {
	if n == 0 {
		return 0
	}
	return Descend(n - 1)
}
`

func TestRecursionDepthLimit(t *testing.T) {
	db := memdb.New()
	loader := newMapLoader()
	loader.deploy(t, "con_deep", deepSource, "alice")

	v, _, err := invoke(t, db, loader, "alice", "con_deep", "Descend", map[string]types.Value{"n": int64(100)})
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	_, _, err = invoke(t, db, loader, "alice", "con_deep", "Descend", map[string]types.Value{"n": int64(2000)})
	requireAbort(t, err, AbortDepth)
}

func TestStepCeilingAborts(t *testing.T) {
	db := memdb.New()
	loader := newMapLoader()
	loader.deploy(t, "con_control", controlSource, "alice")

	env := newTestEnv(db, 100_000, "alice", loader).WithStepLimit(200)
	_, err := New(env).Invoke("con_control", "Sum", map[string]types.Value{"n": int64(1_000_000)})
	requireAbort(t, err, AbortSteps)
}

const blankSource = `package con_blanks

var tagged = Hash()
var fallback = Hash("none")

func Probe(key string) {
	v := tagged[key]
	if v == nil {
		return "absent"
	}
	return v
}

func Lookup(key string) {
	return fallback[key]
}

func Erase(key string) {
	fallback[key] = nil
}
`

func TestHashDefaultsAndStoredNil(t *testing.T) {
	db := memdb.New()
	loader := newMapLoader()
	loader.deploy(t, "con_blanks", blankSource, "alice")

	// Absent with no declared default reads as nil, for free.
	v, env, err := invoke(t, db, loader, "alice", "con_blanks", "Probe", map[string]types.Value{"key": "x"})
	require.NoError(t, err)
	assert.Equal(t, "absent", v)
	assert.Equal(t, uint64(0), env.Meter().Used())

	// Absent with a declared default reads as the default.
	v, _, err = invoke(t, db, loader, "alice", "con_blanks", "Lookup", map[string]types.Value{"key": "x"})
	require.NoError(t, err)
	assert.Equal(t, "none", v)

	// A stored nil is present, and presence beats the default.
	_, env, err = invoke(t, db, loader, "alice", "con_blanks", "Erase", map[string]types.Value{"key": "x"})
	require.NoError(t, err)
	require.NoError(t, env.Driver.Commit(db))

	v, _, err = invoke(t, db, loader, "alice", "con_blanks", "Lookup", map[string]types.Value{"key": "x"})
	require.NoError(t, err)
	assert.Nil(t, v)
}

const keyedSource = `package con_keys

var store = Hash()

func Put(key string) {
	store[key] = 1
}

func Grid(a string, b int, c bool) {
	store[a, b, c] = "cell"
	return store[a, b, c]
}
`

func TestOversizedKeyAborts(t *testing.T) {
	db := memdb.New()
	loader := newMapLoader()
	loader.deploy(t, "con_keys", keyedSource, "alice")

	_, _, err := invoke(t, db, loader, "alice", "con_keys", "Put", map[string]types.Value{
		"key": strings.Repeat("k", 1100),
	})
	requireAbort(t, err, AbortKey)
}

func TestMultiDimensionState(t *testing.T) {
	db := memdb.New()
	loader := newMapLoader()
	loader.deploy(t, "con_keys", keyedSource, "alice")

	v, env, err := invoke(t, db, loader, "alice", "con_keys", "Grid", map[string]types.Value{
		"a": "row", "b": int64(-3), "c": true,
	})
	require.NoError(t, err)
	assert.Equal(t, "cell", v)
	require.NoError(t, env.Driver.Commit(db))

	raw, err := db.Get([]byte("con_keys.store:row:-3:true"))
	require.NoError(t, err)
	assert.Equal(t, `"cell"`, string(raw))
}

const eventSource = `package con_notice

var Shipped = LogEvent("Shipped", Indexed("order", string), Param("weight", decimal))

func Ship(order string, weight decimal) {
	Shipped(dict{"order": order, "weight": weight})
}

func ShipBroken(order string) {
	Shipped(dict{"order": order})
}
`

func TestEventSchemaMismatchAborts(t *testing.T) {
	db := memdb.New()
	loader := newMapLoader()
	loader.deploy(t, "con_notice", eventSource, "alice")

	weight, err := types.NewDecimal("2.5")
	require.NoError(t, err)
	_, env, err := invoke(t, db, loader, "alice", "con_notice", "Ship", map[string]types.Value{
		"order": "ord-1", "weight": weight,
	})
	require.NoError(t, err)
	require.Equal(t, 1, env.Log.Len())

	_, env, err = invoke(t, db, loader, "alice", "con_notice", "ShipBroken", map[string]types.Value{
		"order": "ord-2",
	})
	requireAbort(t, err, AbortEvent)
	assert.Equal(t, 0, env.Log.Len())
}
