// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package runtime executes validated contracts. The interpreter walks
// the accepted syntax tree directly; everything dynamic it touches
// (state, stamps, events, other contracts) flows through the
// transaction environment, which is what makes execution deterministic
// and atomically abortable.
package runtime

import (
	"errors"
	"go/ast"
	"go/token"
	"strconv"

	"github.com/convm/contractingvm/events"
	"github.com/convm/contractingvm/lang"
	"github.com/convm/contractingvm/stamps"
	"github.com/convm/contractingvm/storage"
	"github.com/convm/contractingvm/types"
)

// Interpreter runs contract functions inside one transaction
// environment. It is single-use per transaction and not safe for
// concurrent use.
type Interpreter struct {
	env *Env
}

// New returns an interpreter over env.
func New(env *Env) *Interpreter {
	return &Interpreter{env: env}
}

// Env returns the transaction environment.
func (in *Interpreter) Env() *Env { return in.env }

type ctrl uint8

const (
	ctrlNone ctrl = iota
	ctrlBreak
	ctrlContinue
	ctrlReturn
)

type flow struct {
	kind  ctrl
	value types.Value
}

// activation is one live function call: its module, local variables,
// and lazily bound state objects.
type activation struct {
	mod       *lang.Module
	vars      map[string]types.Value
	varBound  map[string]*storage.Variable
	hashBound map[string]*storage.Hash
	handles   map[string]*ContractHandle
}

func newActivation(mod *lang.Module) *activation {
	return &activation{
		mod:       mod,
		vars:      map[string]types.Value{},
		varBound:  map[string]*storage.Variable{},
		hashBound: map[string]*storage.Hash{},
		handles:   map[string]*ContractHandle{},
	}
}

// Invoke runs an exported function of a deployed contract with named
// arguments. This is the transaction entry point.
func (in *Interpreter) Invoke(contract, function string, args map[string]types.Value) (types.Value, error) {
	if function == lang.ConstructorName {
		return nil, Abortf(AbortNotFound, "the constructor is not invokable")
	}
	mod, err := in.env.Loader.Load(contract)
	if err != nil {
		return nil, err
	}
	fn := mod.Exported(function)
	if fn == nil {
		return nil, &Abort{Kind: AbortNotFound, Contract: contract,
			Msg: "no exported function " + strconv.Quote(function)}
	}
	ordered, err := orderArgs(fn, args)
	if err != nil {
		return nil, err
	}
	owner, err := in.env.Loader.OwnerOf(contract)
	if err != nil {
		return nil, err
	}
	if err := in.env.push(contract, function, owner); err != nil {
		return nil, err
	}
	v, err := in.runFunction(mod, fn, ordered)
	in.env.pop()
	return v, err
}

// RunConstructor executes a freshly validated contract's one-shot
// initializer at deployment.
func (in *Interpreter) RunConstructor(mod *lang.Module, owner string, args map[string]types.Value) error {
	if mod.Constructor == nil {
		if len(args) > 0 {
			return &Abort{Kind: AbortNotFound, Contract: mod.Name,
				Msg: "contract takes no constructor arguments"}
		}
		return nil
	}
	ordered, err := orderArgs(mod.Constructor, args)
	if err != nil {
		return err
	}
	if err := in.env.push(mod.Name, lang.ConstructorName, owner); err != nil {
		return err
	}
	_, err = in.runFunction(mod, mod.Constructor, ordered)
	in.env.pop()
	return err
}

// orderArgs matches named arguments against the declared parameters,
// checking both completeness and types.
func orderArgs(fn *lang.Function, named map[string]types.Value) ([]types.Value, error) {
	if len(named) != len(fn.Params) {
		return nil, Abortf(AbortType, "%s takes %d arguments, got %d", fn.Name, len(fn.Params), len(named))
	}
	out := make([]types.Value, len(fn.Params))
	for i, p := range fn.Params {
		v, ok := named[p.Name]
		if !ok {
			return nil, Abortf(AbortType, "%s is missing argument %q", fn.Name, p.Name)
		}
		if !p.Type.Matches(v) {
			return nil, Abortf(AbortType, "argument %q takes %s, got %s", p.Name, p.Type, types.KindOf(v))
		}
		out[i] = v
	}
	return out, nil
}

func (in *Interpreter) runFunction(mod *lang.Module, fn *lang.Function, args []types.Value) (types.Value, error) {
	act := newActivation(mod)
	for i, p := range fn.Params {
		act.vars[p.Name] = args[i]
	}
	fl, err := in.execBlock(act, fn.Decl.Body.List)
	if err != nil {
		return nil, in.locate(err)
	}
	if fl.kind == ctrlReturn {
		return fl.value, nil
	}
	return nil, nil
}

// locate stamps an abort with the contract that raised it.
func (in *Interpreter) locate(err error) error {
	if abort, ok := AsAbort(err); ok && abort.Contract == "" {
		if top := in.env.top(); top != nil {
			abort.Contract = top.contract
		}
	}
	return err
}

// mapStateErr converts storage and metering failures into aborts.
func mapStateErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsAbort(err); ok {
		return err
	}
	switch {
	case errors.Is(err, stamps.ErrInsufficientStamps):
		return Abortf(AbortStamps, "stamp budget exhausted")
	case errors.Is(err, storage.ErrKeyTooLong),
		errors.Is(err, storage.ErrTooManyDimensions),
		errors.Is(err, storage.ErrBadDimension),
		errors.Is(err, storage.ErrNoDimensions):
		return Abortf(AbortKey, "%s", err)
	case errors.Is(err, storage.ErrReadOnly):
		return Abortf(AbortType, "foreign state is read-only")
	default:
		return Abortf(AbortState, "%s", err)
	}
}

// ---- statements ----

func (in *Interpreter) execBlock(act *activation, stmts []ast.Stmt) (flow, error) {
	for _, stmt := range stmts {
		fl, err := in.execStmt(act, stmt)
		if err != nil {
			return flow{}, err
		}
		if fl.kind != ctrlNone {
			return fl, nil
		}
	}
	return flow{}, nil
}

func (in *Interpreter) execStmt(act *activation, stmt ast.Stmt) (flow, error) {
	if err := in.env.step(); err != nil {
		return flow{}, err
	}
	switch s := stmt.(type) {
	case *ast.BlockStmt:
		return in.execBlock(act, s.List)

	case *ast.EmptyStmt:
		return flow{}, nil

	case *ast.ExprStmt:
		_, err := in.evalExpr(act, s.X)
		return flow{}, err

	case *ast.ReturnStmt:
		if len(s.Results) == 0 {
			return flow{kind: ctrlReturn}, nil
		}
		v, err := in.evalExpr(act, s.Results[0])
		if err != nil {
			return flow{}, err
		}
		return flow{kind: ctrlReturn, value: v}, nil

	case *ast.BranchStmt:
		if s.Tok == token.BREAK {
			return flow{kind: ctrlBreak}, nil
		}
		return flow{kind: ctrlContinue}, nil

	case *ast.IfStmt:
		cond, err := in.evalBool(act, s.Cond, "if condition")
		if err != nil {
			return flow{}, err
		}
		if cond {
			return in.execBlock(act, s.Body.List)
		}
		if s.Else != nil {
			return in.execStmt(act, s.Else)
		}
		return flow{}, nil

	case *ast.AssignStmt:
		return flow{}, in.execAssign(act, s)

	case *ast.IncDecStmt:
		op := token.ADD
		if s.Tok == token.DEC {
			op = token.SUB
		}
		cur, err := in.evalExpr(act, s.X)
		if err != nil {
			return flow{}, err
		}
		next, err := binaryOp(op, cur, int64(1))
		if err != nil {
			return flow{}, err
		}
		return flow{}, in.assignTo(act, s.X, next)

	case *ast.RangeStmt:
		return in.execRange(act, s)

	default:
		return flow{}, Abortf(AbortType, "unsupported statement")
	}
}

var compoundOps = map[token.Token]token.Token{
	token.ADD_ASSIGN: token.ADD,
	token.SUB_ASSIGN: token.SUB,
	token.MUL_ASSIGN: token.MUL,
	token.QUO_ASSIGN: token.QUO,
	token.REM_ASSIGN: token.REM,
}

func (in *Interpreter) execAssign(act *activation, s *ast.AssignStmt) error {
	if base, compound := compoundOps[s.Tok]; compound {
		cur, err := in.evalExpr(act, s.Lhs[0])
		if err != nil {
			return err
		}
		rhs, err := in.evalExpr(act, s.Rhs[0])
		if err != nil {
			return err
		}
		next, err := binaryOp(base, cur, rhs)
		if err != nil {
			return err
		}
		return in.assignTo(act, s.Lhs[0], next)
	}

	// Right sides evaluate before any target updates, so swaps work.
	vals := make([]types.Value, len(s.Rhs))
	for i, rhs := range s.Rhs {
		v, err := in.evalExpr(act, rhs)
		if err != nil {
			return err
		}
		vals[i] = v
	}
	for i, lhs := range s.Lhs {
		if err := in.assignTo(act, lhs, vals[i]); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) assignTo(act *activation, target ast.Expr, v types.Value) error {
	switch t := target.(type) {
	case *ast.Ident:
		act.vars[t.Name] = v
		return nil

	case *ast.IndexExpr:
		if hash, bound := in.hashFor(act, t.X); bound {
			dim, err := in.evalExpr(act, t.Index)
			if err != nil {
				return err
			}
			return mapStateErr(hash.Set(v, dim))
		}
		container, err := in.evalExpr(act, t.X)
		if err != nil {
			return err
		}
		idx, err := in.evalExpr(act, t.Index)
		if err != nil {
			return err
		}
		return in.indexWrite(container, idx, v)

	case *ast.IndexListExpr:
		hash, bound := in.hashFor(act, t.X)
		if !bound {
			return Abortf(AbortType, "multiple subscripts only address hash bindings")
		}
		dims, err := in.evalExprs(act, t.Indices)
		if err != nil {
			return err
		}
		return mapStateErr(hash.Set(v, dims...))

	default:
		return Abortf(AbortType, "cannot assign to this expression")
	}
}

func (in *Interpreter) indexWrite(container, idx, v types.Value) error {
	switch c := container.(type) {
	case types.Dict:
		key, ok := idx.(string)
		if !ok {
			return Abortf(AbortType, "dict keys are strings, got %s", types.KindOf(idx))
		}
		c[key] = v
		return nil
	case types.List:
		i, ok := idx.(int64)
		if !ok {
			return Abortf(AbortType, "list indexes are ints, got %s", types.KindOf(idx))
		}
		if i < 0 || i >= int64(len(c)) {
			return Abortf(AbortType, "list index %d out of range [0, %d)", i, len(c))
		}
		c[i] = v
		return nil
	default:
		return Abortf(AbortType, "cannot assign into a %s", types.KindOf(container))
	}
}

func (in *Interpreter) execRange(act *activation, s *ast.RangeStmt) (flow, error) {
	subject, err := in.evalExpr(act, s.X)
	if err != nil {
		return flow{}, err
	}
	keyName := identName(s.Key)
	valName := identName(s.Value)

	iterate := func(k, v types.Value) (flow, error) {
		if err := in.env.step(); err != nil {
			return flow{}, err
		}
		if keyName != "" {
			act.vars[keyName] = k
		}
		if valName != "" {
			act.vars[valName] = v
		}
		fl, err := in.execBlock(act, s.Body.List)
		if err != nil {
			return flow{}, err
		}
		return fl, nil
	}

	run := func(fl flow, err error) (bool, flow, error) {
		if err != nil {
			return true, flow{}, err
		}
		switch fl.kind {
		case ctrlBreak:
			return true, flow{}, nil
		case ctrlReturn:
			return true, fl, nil
		default:
			return false, flow{}, nil
		}
	}

	switch x := subject.(type) {
	case int64:
		for i := int64(0); i < x; i++ {
			if done, fl, err := run(iterate(i, nil)); done {
				return fl, err
			}
		}
	case types.List:
		for i, elem := range x {
			if done, fl, err := run(iterate(int64(i), elem)); done {
				return fl, err
			}
		}
	case string:
		for i, r := range []rune(x) {
			if done, fl, err := run(iterate(int64(i), string(r))); done {
				return fl, err
			}
		}
	case types.Dict:
		for _, key := range x.SortedKeys() {
			if done, fl, err := run(iterate(key, x[key])); done {
				return fl, err
			}
		}
	default:
		return flow{}, Abortf(AbortType, "cannot range over a %s", types.KindOf(subject))
	}
	return flow{}, nil
}

func identName(e ast.Expr) string {
	ident, ok := e.(*ast.Ident)
	if !ok {
		return ""
	}
	return ident.Name
}

// ---- expressions ----

func (in *Interpreter) evalExprs(act *activation, exprs []ast.Expr) ([]types.Value, error) {
	out := make([]types.Value, len(exprs))
	for i, e := range exprs {
		v, err := in.evalExpr(act, e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (in *Interpreter) evalBool(act *activation, e ast.Expr, what string) (bool, error) {
	v, err := in.evalExpr(act, e)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, Abortf(AbortType, "%s must be bool, got %s", what, types.KindOf(v))
	}
	return b, nil
}

func (in *Interpreter) evalExpr(act *activation, expr ast.Expr) (types.Value, error) {
	if err := in.env.step(); err != nil {
		return nil, err
	}
	switch e := expr.(type) {
	case *ast.BasicLit:
		return evalLiteral(e)

	case *ast.Ident:
		return in.resolveIdent(act, e.Name)

	case *ast.ParenExpr:
		return in.evalExpr(act, e.X)

	case *ast.UnaryExpr:
		v, err := in.evalExpr(act, e.X)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case token.SUB:
			return negValue(v)
		case token.ADD:
			if !isNumeric(v) {
				return nil, Abortf(AbortType, "unary + takes a number, got %s", types.KindOf(v))
			}
			return v, nil
		default: // NOT, by validation
			b, ok := v.(bool)
			if !ok {
				return nil, Abortf(AbortType, "! takes a bool, got %s", types.KindOf(v))
			}
			return !b, nil
		}

	case *ast.BinaryExpr:
		if e.Op == token.LAND || e.Op == token.LOR {
			left, err := in.evalBool(act, e.X, "logical operand")
			if err != nil {
				return nil, err
			}
			if (e.Op == token.LAND && !left) || (e.Op == token.LOR && left) {
				return left, nil
			}
			return in.evalBool(act, e.Y, "logical operand")
		}
		left, err := in.evalExpr(act, e.X)
		if err != nil {
			return nil, err
		}
		right, err := in.evalExpr(act, e.Y)
		if err != nil {
			return nil, err
		}
		return binaryOp(e.Op, left, right)

	case *ast.SelectorExpr:
		base, _ := unparen(e.X).(*ast.Ident)
		if base == nil || base.Name != lang.ContextName {
			return nil, Abortf(AbortType, "attribute access is only valid on the execution context")
		}
		v, ok := in.env.contextField(e.Sel.Name)
		if !ok {
			return nil, Abortf(AbortName, "unknown context field %q", e.Sel.Name)
		}
		return v, nil

	case *ast.IndexExpr:
		if hash, bound := in.hashFor(act, e.X); bound {
			dim, err := in.evalExpr(act, e.Index)
			if err != nil {
				return nil, err
			}
			v, err := hash.Get(dim)
			return v, mapStateErr(err)
		}
		container, err := in.evalExpr(act, e.X)
		if err != nil {
			return nil, err
		}
		idx, err := in.evalExpr(act, e.Index)
		if err != nil {
			return nil, err
		}
		return in.indexRead(container, idx)

	case *ast.IndexListExpr:
		hash, bound := in.hashFor(act, e.X)
		if !bound {
			return nil, Abortf(AbortType, "multiple subscripts only address hash bindings")
		}
		dims, err := in.evalExprs(act, e.Indices)
		if err != nil {
			return nil, err
		}
		v, err := hash.Get(dims...)
		return v, mapStateErr(err)

	case *ast.CompositeLit:
		return in.evalComposite(act, e)

	case *ast.CallExpr:
		return in.evalCall(act, e)

	default:
		return nil, Abortf(AbortType, "unsupported expression")
	}
}

func evalLiteral(lit *ast.BasicLit) (types.Value, error) {
	switch lit.Kind {
	case token.INT:
		n, err := strconv.ParseInt(lit.Value, 0, 64)
		if err != nil {
			return nil, Abortf(AbortType, "integer literal out of range")
		}
		return n, nil
	case token.FLOAT:
		d, err := types.NewDecimal(lit.Value)
		if err != nil {
			return nil, Abortf(AbortType, "malformed decimal literal")
		}
		return d, nil
	case token.STRING:
		s, err := strconv.Unquote(lit.Value)
		if err != nil {
			return nil, Abortf(AbortType, "malformed string literal")
		}
		return s, nil
	default:
		return nil, Abortf(AbortType, "unsupported literal")
	}
}

func (in *Interpreter) resolveIdent(act *activation, name string) (types.Value, error) {
	switch name {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "nil":
		return nil, nil
	}
	if v, ok := act.vars[name]; ok {
		return v, nil
	}
	if c, ok := act.mod.Constants[name]; ok {
		return c, nil
	}
	if v, ok := in.env.ambient(name); ok {
		return v, nil
	}
	if kind, ok := lang.BindingKindByName(name); ok {
		return kind, nil
	}
	if act.mod.ImportsContract(name) {
		return in.contractHandle(act, name)
	}
	return nil, Abortf(AbortName, "undefined: %s", name)
}

func (in *Interpreter) indexRead(container, idx types.Value) (types.Value, error) {
	switch c := container.(type) {
	case types.Dict:
		key, ok := idx.(string)
		if !ok {
			return nil, Abortf(AbortType, "dict keys are strings, got %s", types.KindOf(idx))
		}
		return c[key], nil
	case types.List:
		i, ok := idx.(int64)
		if !ok {
			return nil, Abortf(AbortType, "list indexes are ints, got %s", types.KindOf(idx))
		}
		if i < 0 || i >= int64(len(c)) {
			return nil, Abortf(AbortType, "list index %d out of range [0, %d)", i, len(c))
		}
		return c[i], nil
	case string:
		i, ok := idx.(int64)
		if !ok {
			return nil, Abortf(AbortType, "string indexes are ints, got %s", types.KindOf(idx))
		}
		runes := []rune(c)
		if i < 0 || i >= int64(len(runes)) {
			return nil, Abortf(AbortType, "string index %d out of range [0, %d)", i, len(runes))
		}
		return string(runes[i]), nil
	default:
		return nil, Abortf(AbortType, "cannot index a %s", types.KindOf(container))
	}
}

func (in *Interpreter) evalComposite(act *activation, e *ast.CompositeLit) (types.Value, error) {
	switch e.Type.(*ast.Ident).Name {
	case "dict":
		out := make(types.Dict, len(e.Elts))
		for _, elt := range e.Elts {
			kv := elt.(*ast.KeyValueExpr)
			key, err := in.evalExpr(act, kv.Key)
			if err != nil {
				return nil, err
			}
			text, ok := key.(string)
			if !ok {
				return nil, Abortf(AbortType, "dict keys are strings, got %s", types.KindOf(key))
			}
			val, err := in.evalExpr(act, kv.Value)
			if err != nil {
				return nil, err
			}
			out[text] = val
		}
		return out, nil
	default: // list, by validation
		out := make(types.List, 0, len(e.Elts))
		for _, elt := range e.Elts {
			v, err := in.evalExpr(act, elt)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
}

// hashFor resolves expr to a bound keyed state object when it names a
// hash binding of the active module.
func (in *Interpreter) hashFor(act *activation, expr ast.Expr) (*storage.Hash, bool) {
	ident, ok := unparen(expr).(*ast.Ident)
	if !ok {
		return nil, false
	}
	decl := act.mod.Bindings[ident.Name]
	if decl == nil || !decl.Kind.Keyed() {
		return nil, false
	}
	if bound, ok := act.hashBound[ident.Name]; ok {
		return bound, true
	}
	var bound *storage.Hash
	if decl.Kind == lang.BindForeignHash {
		bound = storage.NewForeignHash(in.env.Driver, decl.ForeignContract, decl.ForeignName)
	} else {
		bound = storage.NewHash(in.env.Driver, act.mod.Name, decl.Name, decl.Default, decl.HasDefault)
	}
	act.hashBound[ident.Name] = bound
	return bound, true
}

// variableFor resolves a declared single-slot binding.
func (in *Interpreter) variableFor(act *activation, decl *lang.Binding) (*storage.Variable, error) {
	if bound, ok := act.varBound[decl.Name]; ok {
		return bound, nil
	}
	var (
		bound *storage.Variable
		err   error
	)
	if decl.Kind == lang.BindForeignVariable {
		bound, err = storage.NewForeignVariable(in.env.Driver, decl.ForeignContract, decl.ForeignName)
	} else {
		bound, err = storage.NewVariable(in.env.Driver, act.mod.Name, decl.Name)
	}
	if err != nil {
		return nil, mapStateErr(err)
	}
	act.varBound[decl.Name] = bound
	return bound, nil
}

// ---- calls ----

var conversionNames = map[string]struct{}{
	"int": {}, "string": {}, "bool": {}, "decimal": {},
}

func (in *Interpreter) evalCall(act *activation, call *ast.CallExpr) (types.Value, error) {
	switch fun := unparen(call.Fun).(type) {
	case *ast.Ident:
		return in.callNamed(act, fun.Name, call)
	case *ast.SelectorExpr:
		return in.callSelector(act, fun, call)
	default:
		return nil, Abortf(AbortType, "only named functions can be called")
	}
}

func (in *Interpreter) callNamed(act *activation, name string, call *ast.CallExpr) (types.Value, error) {
	if fn := act.mod.Functions[name]; fn != nil {
		args, err := in.evalExprs(act, call.Args)
		if err != nil {
			return nil, err
		}
		return in.callLocal(act, fn, args)
	}
	if def := act.mod.EventVars[name]; def != nil {
		return in.emitEvent(act, def, call)
	}
	args, err := in.evalExprs(act, call.Args)
	if err != nil {
		return nil, err
	}
	if _, conv := conversionNames[name]; conv {
		return convert(name, args[0])
	}
	return callBuiltin(name, args)
}

// callLocal invokes a function of the running module: a private
// helper, an exported sibling, or direct recursion. The activation
// still counts against the call depth limit.
func (in *Interpreter) callLocal(act *activation, fn *lang.Function, args []types.Value) (types.Value, error) {
	for i, p := range fn.Params {
		if !p.Type.Matches(args[i]) {
			return nil, Abortf(AbortType, "argument %q takes %s, got %s", p.Name, p.Type, types.KindOf(args[i]))
		}
	}
	top := in.env.top()
	if err := in.env.push(act.mod.Name, fn.Name, top.owner); err != nil {
		return nil, err
	}
	v, err := in.runFunction(act.mod, fn, args)
	in.env.pop()
	return v, err
}

func (in *Interpreter) emitEvent(act *activation, def *lang.EventDef, call *ast.CallExpr) (types.Value, error) {
	arg, err := in.evalExpr(act, call.Args[0])
	if err != nil {
		return nil, err
	}
	payload, ok := arg.(types.Dict)
	if !ok {
		return nil, Abortf(AbortEvent, "events take a dict payload, got %s", types.KindOf(arg))
	}
	rec, err := events.Build(act.mod.Name, def, payload)
	if err != nil {
		return nil, Abortf(AbortEvent, "%s", err)
	}
	in.env.Log.Emit(rec)
	return nil, nil
}

func (in *Interpreter) callSelector(act *activation, fun *ast.SelectorExpr, call *ast.CallExpr) (types.Value, error) {
	base, _ := unparen(fun.X).(*ast.Ident)
	if base == nil {
		return nil, Abortf(AbortType, "attribute access on expressions is not allowed")
	}
	sel := fun.Sel.Name

	if decl := act.mod.Bindings[base.Name]; decl != nil {
		return in.callAccessor(act, decl, sel, call)
	}
	if lang.IsModule(base.Name) {
		args, err := in.evalExprs(act, call.Args)
		if err != nil {
			return nil, err
		}
		return in.callModule(act, base.Name, sel, args)
	}

	handle, err := in.handleFor(act, base.Name)
	if err != nil {
		return nil, err
	}
	args, err := in.evalExprs(act, call.Args)
	if err != nil {
		return nil, err
	}
	return in.callForeign(handle, sel, args)
}

func (in *Interpreter) callAccessor(act *activation, decl *lang.Binding, sel string, call *ast.CallExpr) (types.Value, error) {
	bound, err := in.variableFor(act, decl)
	if err != nil {
		return nil, err
	}
	switch sel {
	case "Get":
		v, err := bound.Get()
		return v, mapStateErr(err)
	case "Set":
		v, err := in.evalExpr(act, call.Args[0])
		if err != nil {
			return nil, err
		}
		return nil, mapStateErr(bound.Set(v))
	default:
		return nil, Abortf(AbortName, "unknown state accessor %q", sel)
	}
}

// handleFor resolves the receiver of a cross-contract call: a static
// contract import or a local holding an importlib module handle.
func (in *Interpreter) handleFor(act *activation, name string) (*ContractHandle, error) {
	if act.mod.ImportsContract(name) {
		h, err := in.contractHandle(act, name)
		if err != nil {
			return nil, err
		}
		return h.(*ContractHandle), nil
	}
	if v, ok := act.vars[name]; ok {
		handle, ok := v.(*ContractHandle)
		if !ok {
			return nil, Abortf(AbortType, "%s is not a contract module", name)
		}
		return handle, nil
	}
	return nil, Abortf(AbortName, "undefined: %s", name)
}
