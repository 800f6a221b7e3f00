// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lang

import (
	"go/ast"
	"go/token"
	"strconv"

	"github.com/convm/contractingvm/types"
)

// Arity bounds per callable; -1 means unbounded.
var builtinArity = map[string][2]int{
	"assert": {1, 2},
	"len":    {1, 1},
	"abs":    {1, 1},
	"min":    {2, -1},
	"max":    {2, -1},
	"append": {2, -1},
	"delete": {2, 2},
	"round":  {1, 2},
}

// Type tokens callable as conversions inside bodies.
var conversionTokens = map[string]struct{}{
	"int": {}, "string": {}, "bool": {}, "decimal": {},
}

// moduleArity is the importable module surface: member names with the
// argument counts each accepts.
var moduleArity = map[string]map[string][2]int{
	"hashlib": {
		"Sha256": {1, 1},
		"Sha3":   {1, 1},
	},
	"crypto": {
		"Verify":     {3, 3},
		"KeyIsValid": {1, 1},
	},
	"random": {
		"Seed":        {0, 1},
		"Randint":     {2, 2},
		"Getrandbits": {1, 1},
		"Choice":      {1, 1},
	},
	"datetime": {
		"Datetime":  {3, 6},
		"Timedelta": {1, 2},
		"Weeks":     {1, 1},
		"Days":      {1, 1},
		"Hours":     {1, 1},
		"Minutes":   {1, 1},
		"Seconds":   {1, 1},
	},
	"importlib": {
		"ImportModule":     {1, 1},
		"EnforceInterface": {2, 2},
		"Func":             {1, -1},
		"Var":              {2, 2},
	},
}

// IsModule reports whether name is an importable standard module.
func IsModule(name string) bool {
	return moduleArity[name] != nil
}

var allowedBinaryOps = map[token.Token]struct{}{
	token.ADD: {}, token.SUB: {}, token.MUL: {}, token.QUO: {}, token.REM: {},
	token.EQL: {}, token.NEQ: {}, token.LSS: {}, token.LEQ: {}, token.GTR: {}, token.GEQ: {},
	token.LAND: {}, token.LOR: {},
}

var bitwiseOps = map[token.Token]struct{}{
	token.AND: {}, token.OR: {}, token.XOR: {}, token.SHL: {}, token.SHR: {}, token.AND_NOT: {},
	token.AND_ASSIGN: {}, token.OR_ASSIGN: {}, token.XOR_ASSIGN: {},
	token.SHL_ASSIGN: {}, token.SHR_ASSIGN: {}, token.AND_NOT_ASSIGN: {},
}

func (v *validator) checkBody(fn *Function) {
	if fn.Decl.Body == nil {
		v.add(ViolationConstruct, fn.Decl.Pos(), "function %q has no body", fn.Name)
		return
	}
	for _, stmt := range fn.Decl.Body.List {
		v.checkStmt(stmt, 0)
	}
}

func (v *validator) checkStmt(stmt ast.Stmt, loopDepth int) {
	switch s := stmt.(type) {
	case *ast.BlockStmt:
		for _, inner := range s.List {
			v.checkStmt(inner, loopDepth)
		}

	case *ast.AssignStmt:
		v.checkAssign(s)

	case *ast.IncDecStmt:
		v.checkAssignTarget(s.X)

	case *ast.IfStmt:
		if s.Init != nil {
			v.add(ViolationConstruct, s.Init.Pos(), "if statements take a bare condition")
		}
		v.checkExpr(s.Cond)
		v.checkStmt(s.Body, loopDepth)
		if s.Else != nil {
			v.checkStmt(s.Else, loopDepth)
		}

	case *ast.RangeStmt:
		v.checkRange(s, loopDepth)

	case *ast.ForStmt:
		v.add(ViolationConstruct, s.Pos(), "only range loops are allowed")

	case *ast.ReturnStmt:
		if len(s.Results) > 1 {
			v.add(ViolationConstruct, s.Pos(), "functions return at most one value")
			return
		}
		for _, res := range s.Results {
			v.checkExpr(res)
		}

	case *ast.BranchStmt:
		switch s.Tok {
		case token.BREAK, token.CONTINUE:
			if s.Label != nil {
				v.add(ViolationConstruct, s.Label.Pos(), "labels are not allowed")
				return
			}
			if loopDepth == 0 {
				v.add(ViolationConstruct, s.Pos(), "%s outside a loop", s.Tok)
			}
		case token.GOTO:
			v.add(ViolationConstruct, s.Pos(), "goto is not allowed")
		default:
			v.add(ViolationConstruct, s.Pos(), "%s is not allowed", s.Tok)
		}

	case *ast.ExprStmt:
		call, ok := s.X.(*ast.CallExpr)
		if !ok {
			v.add(ViolationConstruct, s.Pos(), "expression statements must be calls")
			return
		}
		v.checkExpr(call)

	case *ast.DeclStmt:
		v.add(ViolationConstruct, s.Pos(), "declarations inside functions are not allowed")

	case *ast.GoStmt:
		v.add(ViolationConstruct, s.Pos(), "goroutines are not allowed")
	case *ast.DeferStmt:
		v.add(ViolationConstruct, s.Pos(), "defer is not allowed")
	case *ast.SendStmt:
		v.add(ViolationConstruct, s.Pos(), "channel operations are not allowed")
	case *ast.SelectStmt:
		v.add(ViolationConstruct, s.Pos(), "select is not allowed")
	case *ast.SwitchStmt, *ast.TypeSwitchStmt:
		v.add(ViolationConstruct, stmt.Pos(), "switch is not allowed")
	case *ast.LabeledStmt:
		v.add(ViolationConstruct, s.Pos(), "labels are not allowed")
	case *ast.EmptyStmt:

	default:
		v.add(ViolationConstruct, stmt.Pos(), "unsupported statement")
	}
}

func (v *validator) checkRange(s *ast.RangeStmt, loopDepth int) {
	if s.Key != nil && s.Tok != token.DEFINE {
		v.add(ViolationConstruct, s.TokPos, "range variables must be declared with :=")
		return
	}
	for _, loopVar := range []ast.Expr{s.Key, s.Value} {
		if loopVar == nil {
			continue
		}
		ident, ok := loopVar.(*ast.Ident)
		if !ok {
			v.add(ViolationConstruct, loopVar.Pos(), "range variables must be plain identifiers")
			continue
		}
		if v.nameOK(ident.Name, ident.Pos()) && v.mod.topLevel(ident.Name) {
			v.add(ViolationName, ident.Pos(), "cannot assign to module-level name %q", ident.Name)
		}
	}
	v.checkExpr(s.X)
	v.checkStmt(s.Body, loopDepth+1)
}

func (v *validator) checkAssign(s *ast.AssignStmt) {
	if _, bad := bitwiseOps[s.Tok]; bad {
		v.add(ViolationConstruct, s.TokPos, "bitwise operators are not allowed")
		return
	}
	if len(s.Lhs) != len(s.Rhs) {
		v.add(ViolationConstruct, s.Pos(), "multi-target assignment from a single expression is not allowed; read the value and compare against nil")
		return
	}
	for _, lhs := range s.Lhs {
		v.checkAssignTarget(lhs)
	}
	for _, rhs := range s.Rhs {
		v.checkExpr(rhs)
	}
}

// checkAssignTarget validates the left side of assignments and the
// operand of ++ and --.
func (v *validator) checkAssignTarget(expr ast.Expr) {
	switch t := expr.(type) {
	case *ast.Ident:
		if !v.nameOK(t.Name, t.Pos()) {
			return
		}
		if t.Name == ConstructorName {
			v.add(ViolationName, t.Pos(), "%q is reserved for the constructor", ConstructorName)
			return
		}
		if v.mod.topLevel(t.Name) {
			v.add(ViolationName, t.Pos(), "cannot assign to module-level name %q", t.Name)
		}

	case *ast.IndexExpr:
		if b := v.bindingTarget(t.X); b != nil {
			v.checkKeyedWrite(b, t.X.Pos(), 1)
		} else {
			v.checkExpr(t.X)
		}
		v.checkExpr(t.Index)

	case *ast.IndexListExpr:
		b := v.bindingTarget(t.X)
		if b == nil {
			v.add(ViolationConstruct, t.Pos(), "multiple subscripts only address hash bindings")
			return
		}
		v.checkKeyedWrite(b, t.X.Pos(), len(t.Indices))
		for _, idx := range t.Indices {
			v.checkExpr(idx)
		}

	case *ast.SelectorExpr:
		v.add(ViolationConstruct, t.Pos(), "attribute assignment is not allowed")

	default:
		v.add(ViolationConstruct, expr.Pos(), "cannot assign to this expression")
	}
}

func (v *validator) checkKeyedWrite(b *Binding, pos token.Pos, dims int) {
	switch b.Kind {
	case BindHash:
		v.checkDims(pos, dims)
	case BindForeignHash:
		v.add(ViolationORM, pos, "foreign state is read-only")
	default:
		v.add(ViolationORM, pos, "%q takes no dimensions", b.Name)
	}
}

func (v *validator) checkDims(pos token.Pos, dims int) {
	if dims > types.MaxKeyDimensions {
		v.add(ViolationKey, pos, "state keys take at most %d dimensions, got %d", types.MaxKeyDimensions, dims)
	}
}

// bindingTarget resolves expr to a state binding when it is a bare
// binding identifier.
func (v *validator) bindingTarget(expr ast.Expr) *Binding {
	ident, ok := unparen(expr).(*ast.Ident)
	if !ok {
		return nil
	}
	return v.mod.Bindings[ident.Name]
}

func (v *validator) checkExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.BasicLit:
		switch e.Kind {
		case token.INT:
			if _, err := strconv.ParseInt(e.Value, 0, 64); err != nil {
				v.add(ViolationConstruct, e.Pos(), "integer literal out of range")
			}
		case token.FLOAT:
			if _, err := types.NewDecimal(e.Value); err != nil {
				v.add(ViolationConstruct, e.Pos(), "malformed decimal literal")
			}
		case token.STRING:
		case token.CHAR:
			v.add(ViolationConstruct, e.Pos(), "character literals are not allowed")
		default:
			v.add(ViolationConstruct, e.Pos(), "%s literals are not allowed", e.Kind)
		}

	case *ast.Ident:
		v.checkValueIdent(e)

	case *ast.ParenExpr:
		v.checkExpr(e.X)

	case *ast.UnaryExpr:
		switch e.Op {
		case token.SUB, token.ADD, token.NOT:
			v.checkExpr(e.X)
		case token.AND:
			v.add(ViolationConstruct, e.Pos(), "pointers are not allowed")
		case token.XOR:
			v.add(ViolationConstruct, e.Pos(), "bitwise operators are not allowed")
		case token.ARROW:
			v.add(ViolationConstruct, e.Pos(), "channel operations are not allowed")
		default:
			v.add(ViolationConstruct, e.Pos(), "unsupported operator %s", e.Op)
		}

	case *ast.BinaryExpr:
		if _, bad := bitwiseOps[e.Op]; bad {
			v.add(ViolationConstruct, e.OpPos, "bitwise operators are not allowed")
			return
		}
		if _, ok := allowedBinaryOps[e.Op]; !ok {
			v.add(ViolationConstruct, e.OpPos, "unsupported operator %s", e.Op)
			return
		}
		v.checkExpr(e.X)
		v.checkExpr(e.Y)

	case *ast.CallExpr:
		v.checkCall(e)

	case *ast.SelectorExpr:
		v.checkSelectorRead(e)

	case *ast.IndexExpr:
		if b := v.bindingTarget(e.X); b != nil {
			v.checkKeyedRead(b, e.X.Pos(), 1)
		} else if ident, ok := e.X.(*ast.Ident); ok && v.unsubscriptable(ident.Name) {
			v.add(ViolationConstruct, e.Pos(), "%q is not subscriptable", ident.Name)
		} else {
			v.checkExpr(e.X)
		}
		v.checkExpr(e.Index)

	case *ast.IndexListExpr:
		b := v.bindingTarget(e.X)
		if b == nil {
			v.add(ViolationConstruct, e.Pos(), "multiple subscripts only address hash bindings")
			return
		}
		v.checkKeyedRead(b, e.X.Pos(), len(e.Indices))
		for _, idx := range e.Indices {
			v.checkExpr(idx)
		}

	case *ast.CompositeLit:
		v.checkComposite(e)

	case *ast.FuncLit:
		v.add(ViolationConstruct, e.Pos(), "function literals are not allowed")
	case *ast.SliceExpr:
		v.add(ViolationConstruct, e.Pos(), "slicing is not allowed")
	case *ast.TypeAssertExpr:
		v.add(ViolationConstruct, e.Pos(), "type assertions are not allowed")
	case *ast.StarExpr:
		v.add(ViolationConstruct, e.Pos(), "pointers are not allowed")
	case *ast.Ellipsis:
		v.add(ViolationConstruct, e.Pos(), "variadic expressions are not allowed")
	case *ast.ArrayType, *ast.MapType, *ast.ChanType, *ast.StructType, *ast.InterfaceType, *ast.FuncType:
		v.add(ViolationConstruct, expr.Pos(), "type expressions are not allowed")

	default:
		v.add(ViolationConstruct, expr.Pos(), "unsupported expression")
	}
}

// checkValueIdent enforces what a bare identifier may stand for in
// value position.
func (v *validator) checkValueIdent(e *ast.Ident) {
	name := e.Name
	switch {
	case name == "_":
		v.add(ViolationName, e.Pos(), "the blank identifier is not allowed")
	case name == "true" || name == "false" || name == "nil":
	case ambientNames.Contains(name):
	case name == ContextName:
		v.add(ViolationConstruct, e.Pos(), "the execution context is only used for field access")
	case name == ConstructorName:
		v.add(ViolationConstructor, e.Pos(), "the constructor cannot be referenced")
	case v.mod.Bindings[name] != nil:
		v.add(ViolationORM, e.Pos(), "state binding %q cannot be used as a value", name)
	case v.mod.EventVars[name] != nil:
		v.add(ViolationEvent, e.Pos(), "event %q can only be emitted by calling it", name)
	case v.mod.Functions[name] != nil:
		v.add(ViolationConstruct, e.Pos(), "functions cannot be used as values")
	case stateCtors.Contains(name):
		// Binding constructors double as kind tokens for
		// importlib.Var requirements.
	case eventCtors.Contains(name):
		v.add(ViolationEvent, e.Pos(), "%s can only be used at module level", name)
	case moduleArity[name] != nil:
		v.add(ViolationImport, e.Pos(), "module %q is only used for member access", name)
	case builtinNames.Contains(name):
		v.add(ViolationConstruct, e.Pos(), "builtin %q can only be called", name)
	case isTypeToken(name):
		v.add(ViolationConstruct, e.Pos(), "type name %q can only be called as a conversion", name)
	default:
		if underscoreEdged(name) {
			v.add(ViolationName, e.Pos(), "identifier %q may not begin or end with an underscore", name)
		}
		// Contract import handles and locals resolve at run time.
	}
}

func underscoreEdged(name string) bool {
	return name[0] == '_' || name[len(name)-1] == '_'
}

func isTypeToken(name string) bool {
	_, ok := types.TokenByName(name)
	return ok
}

func (v *validator) unsubscriptable(name string) bool {
	if moduleArity[name] != nil || builtinNames.Contains(name) || name == ContextName {
		return true
	}
	if v.mod.EventVars[name] != nil || v.mod.Functions[name] != nil {
		return true
	}
	return v.isContractImport(name)
}

func (v *validator) checkKeyedRead(b *Binding, pos token.Pos, dims int) {
	if !b.Kind.Keyed() {
		v.add(ViolationORM, pos, "%q takes no dimensions", b.Name)
		return
	}
	v.checkDims(pos, dims)
}

func (v *validator) isContractImport(name string) bool {
	for _, imp := range v.mod.Imports {
		if imp.Contract && imp.Path == name {
			return true
		}
	}
	return false
}

func (v *validator) checkComposite(e *ast.CompositeLit) {
	ident, ok := e.Type.(*ast.Ident)
	if !ok {
		v.add(ViolationConstruct, e.Pos(), "composite literals must name dict or list")
		return
	}
	switch ident.Name {
	case "dict":
		for _, elt := range e.Elts {
			kv, ok := elt.(*ast.KeyValueExpr)
			if !ok {
				v.add(ViolationConstruct, elt.Pos(), "dict literals require key: value pairs")
				continue
			}
			v.checkExpr(kv.Key)
			v.checkExpr(kv.Value)
		}
	case "list":
		for _, elt := range e.Elts {
			if _, bad := elt.(*ast.KeyValueExpr); bad {
				v.add(ViolationConstruct, elt.Pos(), "list literals take plain elements")
				continue
			}
			v.checkExpr(elt)
		}
	default:
		v.add(ViolationConstruct, e.Pos(), "composite literals must name dict or list")
	}
}

func (v *validator) checkCall(call *ast.CallExpr) {
	if call.Ellipsis.IsValid() {
		v.add(ViolationConstruct, call.Ellipsis, "variadic calls are not allowed")
		return
	}
	for _, arg := range call.Args {
		v.checkExpr(arg)
	}

	switch fun := unparen(call.Fun).(type) {
	case *ast.Ident:
		v.checkIdentCall(fun, call)
	case *ast.SelectorExpr:
		v.checkSelectorCall(fun, call)
	default:
		v.add(ViolationConstruct, call.Fun.Pos(), "only named functions can be called")
	}
}

func (v *validator) checkIdentCall(fun *ast.Ident, call *ast.CallExpr) {
	name := fun.Name
	argc := len(call.Args)
	switch {
	case stateCtors.Contains(name):
		v.add(ViolationORM, fun.Pos(), "%s can only be used at module level", name)
	case eventCtors.Contains(name):
		v.add(ViolationEvent, fun.Pos(), "%s can only be used at module level", name)
	case name == ConstructorName:
		v.add(ViolationConstructor, fun.Pos(), "the constructor cannot be called")
	case v.mod.EventVars[name] != nil:
		if argc != 1 {
			v.add(ViolationEvent, call.Pos(), "events take a single dict argument")
		}
	case v.mod.Bindings[name] != nil:
		v.add(ViolationORM, fun.Pos(), "state binding %q is not callable", name)
	case v.mod.Functions[name] != nil:
		fn := v.mod.Functions[name]
		if argc != len(fn.Params) {
			v.add(ViolationConstruct, call.Pos(), "%s takes %d arguments, got %d", name, len(fn.Params), argc)
		}
	case builtinNames.Contains(name):
		v.checkArity(call, name, builtinArity[name])
	case moduleArity[name] != nil:
		v.add(ViolationImport, fun.Pos(), "module %q is only used for member access", name)
	case isTypeToken(name):
		if _, conv := conversionTokens[name]; !conv {
			v.add(ViolationConstruct, fun.Pos(), "%q is not a conversion", name)
			return
		}
		v.checkArity(call, name, [2]int{1, 1})
	case v.isContractImport(name):
		v.add(ViolationConstruct, fun.Pos(), "contract modules are not callable")
	default:
		v.add(ViolationName, fun.Pos(), "unknown function %q", name)
	}
}

func (v *validator) checkSelectorCall(fun *ast.SelectorExpr, call *ast.CallExpr) {
	base, ok := unparen(fun.X).(*ast.Ident)
	if !ok {
		v.add(ViolationConstruct, fun.Pos(), "attribute access on expressions is not allowed")
		return
	}
	sel := fun.Sel.Name

	if b := v.mod.Bindings[base.Name]; b != nil {
		v.checkAccessorCall(b, fun, call)
		return
	}
	if members := moduleArity[base.Name]; members != nil {
		if !v.moduleImported(base.Name) {
			v.add(ViolationImport, base.Pos(), "module %q is not imported", base.Name)
			return
		}
		arity, ok := members[sel]
		if !ok {
			v.add(ViolationImport, fun.Sel.Pos(), "module %q has no member %q", base.Name, sel)
			return
		}
		v.checkArity(call, base.Name+"."+sel, arity)
		return
	}
	switch {
	case base.Name == ContextName:
		v.add(ViolationConstruct, fun.Pos(), "context fields are not callable")
	case v.mod.EventVars[base.Name] != nil:
		v.add(ViolationEvent, fun.Pos(), "event %q can only be emitted by calling it", base.Name)
	case v.mod.Functions[base.Name] != nil:
		v.add(ViolationConstruct, fun.Pos(), "functions have no attributes")
	default:
		// A statically imported contract or a module handle held in a
		// local. Either way only exported functions are reachable.
		if !ast.IsExported(sel) {
			v.add(ViolationConstruct, fun.Sel.Pos(), "cross-contract calls name exported functions")
		}
	}
}

func (v *validator) checkAccessorCall(b *Binding, fun *ast.SelectorExpr, call *ast.CallExpr) {
	sel := fun.Sel.Name
	if b.Kind.Keyed() {
		v.add(ViolationORM, fun.Pos(), "%q is accessed with subscripts", b.Name)
		return
	}
	switch sel {
	case "Get":
		v.checkArity(call, b.Name+".Get", [2]int{0, 0})
	case "Set":
		if b.Kind.Foreign() {
			v.add(ViolationORM, fun.Pos(), "foreign state is read-only")
			return
		}
		v.checkArity(call, b.Name+".Set", [2]int{1, 1})
	default:
		v.add(ViolationORM, fun.Sel.Pos(), "unknown state accessor %q", sel)
	}
}

func (v *validator) moduleImported(name string) bool {
	for _, imp := range v.mod.Imports {
		if !imp.Contract && imp.Path == name {
			return true
		}
	}
	return false
}

func (v *validator) checkArity(call *ast.CallExpr, what string, bounds [2]int) {
	argc := len(call.Args)
	if argc < bounds[0] || (bounds[1] >= 0 && argc > bounds[1]) {
		switch {
		case bounds[0] == bounds[1]:
			v.add(ViolationConstruct, call.Pos(), "%s takes %d arguments, got %d", what, bounds[0], argc)
		case bounds[1] < 0:
			v.add(ViolationConstruct, call.Pos(), "%s takes at least %d arguments, got %d", what, bounds[0], argc)
		default:
			v.add(ViolationConstruct, call.Pos(), "%s takes %d to %d arguments, got %d", what, bounds[0], bounds[1], argc)
		}
	}
}

// checkSelectorRead enforces selector expressions outside call
// position: only execution context fields are readable attributes.
func (v *validator) checkSelectorRead(e *ast.SelectorExpr) {
	base, ok := unparen(e.X).(*ast.Ident)
	if !ok {
		v.add(ViolationConstruct, e.Pos(), "attribute access on expressions is not allowed")
		return
	}
	switch {
	case base.Name == ContextName:
		if !contextFields.Contains(e.Sel.Name) {
			v.add(ViolationName, e.Sel.Pos(), "unknown context field %q", e.Sel.Name)
		}
	case v.mod.Bindings[base.Name] != nil:
		v.add(ViolationORM, e.Pos(), "state accessors can only be called")
	case moduleArity[base.Name] != nil:
		v.add(ViolationConstruct, e.Pos(), "module members can only be called")
	case v.mod.EventVars[base.Name] != nil:
		v.add(ViolationEvent, e.Pos(), "event %q can only be emitted by calling it", base.Name)
	case v.mod.Functions[base.Name] != nil:
		v.add(ViolationConstruct, e.Pos(), "functions have no attributes")
	case v.isContractImport(base.Name):
		v.add(ViolationConstruct, e.Pos(), "cross-contract functions can only be called")
	default:
		v.add(ViolationConstruct, e.Pos(), "attribute access is only valid on the execution context and imported modules")
	}
}
