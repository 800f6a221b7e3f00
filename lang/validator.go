// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lang

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"github.com/ava-labs/avalanchego/utils/set"

	"github.com/convm/contractingvm/types"
)

const (
	// NamePrefix is mandatory for every contract name.
	NamePrefix = "con_"

	// MaxContractNameLen bounds the full contract name, prefix included.
	MaxContractNameLen = 64

	// ConstructorName is the reserved one-shot initializer. It is
	// lowercase on purpose: constructors are never leaked as exports.
	ConstructorName = "seed"
)

// Binding and event constructors, legal at module level only.
const (
	ctorVariable        = "Variable"
	ctorHash            = "Hash"
	ctorForeignVariable = "ForeignVariable"
	ctorForeignHash     = "ForeignHash"
	ctorLogEvent        = "LogEvent"
	ctorIndexed         = "Indexed"
	ctorParam           = "Param"
)

// ContextName is the ambient execution context identifier.
const ContextName = "ctx"

var contextFields = set.Of("Caller", "Signer", "This", "Owner", "Entry")

// Ambient block values readable from any contract body.
var ambientNames = set.Of("now", "blockNum", "blockHash")

// Builtin functions resolvable in any contract body.
var builtinNames = set.Of(
	"assert", "len", "abs", "min", "max", "append", "delete", "round",
)

var stateCtors = set.Of(ctorVariable, ctorHash, ctorForeignVariable, ctorForeignHash)
var eventCtors = set.Of(ctorLogEvent, ctorIndexed, ctorParam)

// reservedNames may never be declared, shadowed, or assigned.
var reservedNames = buildReserved()

func buildReserved() set.Set[string] {
	s := set.Of(
		ContextName, "true", "false", "nil",
	)
	s.Union(ambientNames)
	s.Union(builtinNames)
	s.Union(stateCtors)
	s.Union(eventCtors)
	for name := range moduleArity {
		s.Add(name)
	}
	for _, tok := range types.TokenNames() {
		s.Add(tok)
	}
	return s
}

// ValidContractName reports whether s is a well-formed contract name:
// the con_ prefix, then a lowercase letter, then lowercase letters,
// digits, and interior underscores.
func ValidContractName(s string) bool {
	if len(s) > MaxContractNameLen || !strings.HasPrefix(s, NamePrefix) {
		return false
	}
	rest := s[len(NamePrefix):]
	if rest == "" || rest[0] < 'a' || rest[0] > 'z' || rest[len(rest)-1] == '_' {
		return false
	}
	for i := 1; i < len(rest); i++ {
		c := rest[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}

// Validate parses source and checks it against the contract dialect.
// On success it returns the resolved module; on failure a
// *RejectionError carrying every violation found.
func Validate(name string, source []byte) (*Module, error) {
	v := &validator{
		fset: token.NewFileSet(),
		mod: &Module{
			Name:      name,
			Source:    source,
			Functions: map[string]*Function{},
			Bindings:  map[string]*Binding{},
			Events:    map[string]*EventDef{},
			EventVars: map[string]*EventDef{},
			Constants: map[string]types.Value{},
		},
	}
	v.mod.Fset = v.fset

	file, err := parser.ParseFile(v.fset, name+".con", source, parser.SkipObjectResolution)
	if err != nil {
		return nil, &RejectionError{Violations: []Violation{{
			Kind: ViolationSyntax,
			Msg:  err.Error(),
		}}}
	}
	v.mod.File = file

	if !ValidContractName(name) {
		v.add(ViolationName, file.Name.Pos(), "invalid contract name %q: names are con_ followed by lowercase letters, digits, and interior underscores", name)
	}
	if file.Name.Name != name {
		v.add(ViolationName, file.Name.Pos(), "package clause %q does not match contract name %q", file.Name.Name, name)
	}

	// First pass resolves every module-level declaration so body
	// checks can tell bindings, events, and constants apart.
	for _, decl := range file.Decls {
		v.checkDecl(decl)
	}
	v.finishDecls()

	// Second pass walks every function body.
	for _, fn := range v.mod.Functions {
		v.checkBody(fn)
	}

	if len(v.violations) > 0 {
		return nil, &RejectionError{Violations: v.violations}
	}
	return v.mod, nil
}

type validator struct {
	fset       *token.FileSet
	mod        *Module
	violations []Violation
}

func (v *validator) add(kind ViolationKind, pos token.Pos, format string, args ...interface{}) {
	v.violations = append(v.violations, Violation{
		Kind: kind,
		Msg:  fmt.Sprintf(format, args...),
		Pos:  v.fset.Position(pos),
	})
}

// checkName enforces the shared identifier rules and records the name
// in the module-level table.
func (v *validator) checkName(name string, pos token.Pos) bool {
	if !v.nameOK(name, pos) {
		return false
	}
	if v.mod.topLevel(name) {
		v.add(ViolationName, pos, "%q redeclared", name)
		return false
	}
	return true
}

// nameOK enforces identifier rules without the redeclaration check.
func (v *validator) nameOK(name string, pos token.Pos) bool {
	if name == "_" {
		v.add(ViolationName, pos, "the blank identifier is not allowed")
		return false
	}
	if strings.HasPrefix(name, "_") || strings.HasSuffix(name, "_") {
		v.add(ViolationName, pos, "identifier %q may not begin or end with an underscore", name)
		return false
	}
	if name == ConstructorName {
		return true
	}
	if reservedNames.Contains(name) {
		v.add(ViolationName, pos, "%q is reserved", name)
		return false
	}
	return true
}

func (v *validator) checkDecl(decl ast.Decl) {
	switch d := decl.(type) {
	case *ast.GenDecl:
		switch d.Tok {
		case token.IMPORT:
			for _, spec := range d.Specs {
				v.checkImport(spec.(*ast.ImportSpec))
			}
		case token.VAR:
			for _, spec := range d.Specs {
				v.checkVar(spec.(*ast.ValueSpec))
			}
		case token.CONST:
			for _, spec := range d.Specs {
				v.checkConst(spec.(*ast.ValueSpec))
			}
		case token.TYPE:
			v.add(ViolationConstruct, d.Pos(), "type declarations are not allowed")
		}
	case *ast.FuncDecl:
		v.checkFunc(d)
	case *ast.BadDecl:
		v.add(ViolationSyntax, d.Pos(), "malformed declaration")
	}
}

func (v *validator) checkImport(spec *ast.ImportSpec) {
	if spec.Name != nil {
		v.add(ViolationImport, spec.Name.Pos(), "import aliases are not allowed")
		return
	}
	path, err := strconv.Unquote(spec.Path.Value)
	if err != nil {
		v.add(ViolationImport, spec.Path.Pos(), "malformed import path")
		return
	}
	for _, imp := range v.mod.Imports {
		if imp.Path == path {
			v.add(ViolationImport, spec.Path.Pos(), "duplicate import %q", path)
			return
		}
	}
	switch {
	case moduleArity[path] != nil:
		v.mod.Imports = append(v.mod.Imports, Import{Path: path})
	case ValidContractName(path):
		if path == v.mod.Name {
			v.add(ViolationImport, spec.Path.Pos(), "a contract cannot import itself")
			return
		}
		v.mod.Imports = append(v.mod.Imports, Import{Path: path, Contract: true})
	default:
		v.add(ViolationImport, spec.Path.Pos(), "import %q is not allowed", path)
	}
}

func (v *validator) checkVar(spec *ast.ValueSpec) {
	if len(spec.Names) != 1 || len(spec.Values) != 1 {
		v.add(ViolationORM, spec.Pos(), "module-level variables declare one name with one constructor")
		return
	}
	if spec.Type != nil {
		v.add(ViolationAnnotation, spec.Type.Pos(), "module-level variables take no type annotation")
		return
	}
	name := spec.Names[0]
	call, ok := spec.Values[0].(*ast.CallExpr)
	if !ok {
		v.add(ViolationORM, spec.Values[0].Pos(), "module-level variables must be created with Variable, Hash, ForeignVariable, ForeignHash, or LogEvent")
		return
	}
	ctor, ok := call.Fun.(*ast.Ident)
	if !ok || (!stateCtors.Contains(ctor.Name) && ctor.Name != ctorLogEvent) {
		v.add(ViolationORM, call.Fun.Pos(), "module-level variables must be created with Variable, Hash, ForeignVariable, ForeignHash, or LogEvent")
		return
	}
	if name.Name == ConstructorName || !v.checkName(name.Name, name.Pos()) {
		if name.Name == ConstructorName {
			v.add(ViolationName, name.Pos(), "%q is reserved for the constructor", ConstructorName)
		}
		return
	}

	switch ctor.Name {
	case ctorVariable:
		if len(call.Args) != 0 {
			v.add(ViolationORM, call.Pos(), "Variable takes no arguments")
			return
		}
		v.mod.Bindings[name.Name] = &Binding{Name: name.Name, Kind: BindVariable}

	case ctorHash:
		b := &Binding{Name: name.Name, Kind: BindHash}
		switch len(call.Args) {
		case 0:
		case 1:
			def, ok := v.literal(call.Args[0])
			if !ok {
				v.add(ViolationORM, call.Args[0].Pos(), "hash defaults must be literals")
				return
			}
			b.Default, b.HasDefault = def, true
		default:
			v.add(ViolationORM, call.Pos(), "Hash takes at most a default value")
			return
		}
		v.mod.Bindings[name.Name] = b

	case ctorForeignVariable, ctorForeignHash:
		contract, varName, ok := v.foreignArgs(ctor.Name, call)
		if !ok {
			return
		}
		kind := BindForeignVariable
		if ctor.Name == ctorForeignHash {
			kind = BindForeignHash
		}
		v.mod.Bindings[name.Name] = &Binding{
			Name:            name.Name,
			Kind:            kind,
			ForeignContract: contract,
			ForeignName:     varName,
		}

	case ctorLogEvent:
		v.checkEvent(name.Name, call)
	}
}

func (v *validator) foreignArgs(ctor string, call *ast.CallExpr) (contract, varName string, ok bool) {
	if len(call.Args) != 2 {
		v.add(ViolationORM, call.Pos(), "%s takes a contract name and a variable name", ctor)
		return "", "", false
	}
	contract, ok = stringLit(call.Args[0])
	if !ok || !ValidContractName(contract) {
		v.add(ViolationORM, call.Args[0].Pos(), "%s requires a literal contract name", ctor)
		return "", "", false
	}
	if contract == v.mod.Name {
		v.add(ViolationORM, call.Args[0].Pos(), "%s cannot point at the declaring contract", ctor)
		return "", "", false
	}
	varName, ok = stringLit(call.Args[1])
	if !ok || !validIdent(varName) {
		v.add(ViolationORM, call.Args[1].Pos(), "%s requires a literal variable name", ctor)
		return "", "", false
	}
	return contract, varName, true
}

func (v *validator) checkEvent(varName string, call *ast.CallExpr) {
	if len(call.Args) < 1 {
		v.add(ViolationEvent, call.Pos(), "LogEvent requires an event name")
		return
	}
	eventName, ok := stringLit(call.Args[0])
	if !ok || !validIdent(eventName) {
		v.add(ViolationEvent, call.Args[0].Pos(), "event names must be literal identifiers")
		return
	}
	if _, dup := v.mod.Events[eventName]; dup {
		v.add(ViolationEvent, call.Args[0].Pos(), "event %q redeclared", eventName)
		return
	}

	def := &EventDef{Name: eventName, Var: varName}
	seen := set.NewSet[string](len(call.Args) - 1)
	indexed := 0
	for _, arg := range call.Args[1:] {
		field, ok := arg.(*ast.CallExpr)
		if !ok {
			v.add(ViolationEvent, arg.Pos(), "event fields must be Indexed or Param entries")
			return
		}
		fieldCtor, ok := field.Fun.(*ast.Ident)
		if !ok || (fieldCtor.Name != ctorIndexed && fieldCtor.Name != ctorParam) {
			v.add(ViolationEvent, field.Pos(), "event fields must be Indexed or Param entries")
			return
		}
		if len(field.Args) < 2 {
			v.add(ViolationEvent, field.Pos(), "%s takes a field name and at least one type", fieldCtor.Name)
			return
		}
		fieldName, ok := stringLit(field.Args[0])
		if !ok || !validIdent(fieldName) {
			v.add(ViolationEvent, field.Args[0].Pos(), "event field names must be literal identifiers")
			return
		}
		if seen.Contains(fieldName) {
			v.add(ViolationEvent, field.Args[0].Pos(), "event field %q redeclared", fieldName)
			return
		}
		seen.Add(fieldName)

		p := EventParam{Name: fieldName, Indexed: fieldCtor.Name == ctorIndexed}
		for _, typeArg := range field.Args[1:] {
			ident, ok := typeArg.(*ast.Ident)
			if !ok {
				v.add(ViolationEvent, typeArg.Pos(), "event field types must be type names")
				return
			}
			tok, ok := types.TokenByName(ident.Name)
			if !ok {
				v.add(ViolationEvent, typeArg.Pos(), "unknown event field type %q", ident.Name)
				return
			}
			if p.Indexed && !tok.Primitive() {
				v.add(ViolationEvent, typeArg.Pos(), "indexed event fields must use primitive types, not %q", ident.Name)
				return
			}
			p.Types = append(p.Types, tok)
		}
		if p.Indexed {
			indexed++
		}
		def.Params = append(def.Params, p)
	}
	if indexed > MaxIndexedFields {
		v.add(ViolationEvent, call.Pos(), "event %q marks %d indexed fields; the maximum is %d", eventName, indexed, MaxIndexedFields)
		return
	}
	v.mod.Events[eventName] = def
	v.mod.EventVars[varName] = def
}

// MaxIndexedFields bounds how many fields of one event are indexable.
const MaxIndexedFields = 3

func (v *validator) checkConst(spec *ast.ValueSpec) {
	if spec.Type != nil {
		v.add(ViolationAnnotation, spec.Type.Pos(), "constants take no type annotation")
		return
	}
	if len(spec.Names) != len(spec.Values) {
		v.add(ViolationConstruct, spec.Pos(), "constants must be assigned literal values")
		return
	}
	for i, name := range spec.Names {
		if !v.checkName(name.Name, name.Pos()) {
			continue
		}
		val, ok := v.literal(spec.Values[i])
		if !ok {
			v.add(ViolationConstruct, spec.Values[i].Pos(), "constants must be assigned literal values")
			continue
		}
		v.mod.Constants[name.Name] = val
	}
}

func (v *validator) checkFunc(d *ast.FuncDecl) {
	if d.Recv != nil {
		v.add(ViolationConstruct, d.Recv.Pos(), "methods are not allowed")
		return
	}
	if d.Type.TypeParams != nil {
		v.add(ViolationConstruct, d.Type.TypeParams.Pos(), "type parameters are not allowed")
		return
	}
	if d.Type.Results != nil {
		v.add(ViolationAnnotation, d.Type.Results.Pos(), "return type annotations are not allowed")
		return
	}
	name := d.Name.Name
	if name != ConstructorName && !v.nameOK(name, d.Name.Pos()) {
		return
	}
	if v.mod.topLevel(name) {
		v.add(ViolationName, d.Name.Pos(), "%q redeclared", name)
		return
	}

	fn := &Function{
		Name:     name,
		Exported: ast.IsExported(name),
		Decl:     d,
	}
	seen := set.NewSet[string](4)
	for _, field := range d.Type.Params.List {
		if len(field.Names) == 0 {
			v.add(ViolationAnnotation, field.Pos(), "parameters must be named")
			continue
		}
		tok := v.paramType(field.Type)
		for _, pname := range field.Names {
			if !v.nameOK(pname.Name, pname.Pos()) {
				continue
			}
			if pname.Name == ConstructorName {
				v.add(ViolationName, pname.Pos(), "%q is reserved for the constructor", ConstructorName)
				continue
			}
			if v.mod.topLevel(pname.Name) {
				v.add(ViolationName, pname.Pos(), "parameter %q shadows a module-level name", pname.Name)
				continue
			}
			if seen.Contains(pname.Name) {
				v.add(ViolationName, pname.Pos(), "parameter %q redeclared", pname.Name)
				continue
			}
			seen.Add(pname.Name)
			fn.Params = append(fn.Params, FuncParam{Name: pname.Name, Type: tok})
		}
	}

	v.mod.Functions[name] = fn
	if name == ConstructorName {
		v.mod.Constructor = fn
	}
}

func (v *validator) paramType(expr ast.Expr) types.Token {
	if _, ok := expr.(*ast.Ellipsis); ok {
		v.add(ViolationConstruct, expr.Pos(), "variadic parameters are not allowed")
		return types.TokenAny
	}
	ident, ok := expr.(*ast.Ident)
	if !ok {
		v.add(ViolationAnnotation, expr.Pos(), "parameter types must be type names")
		return types.TokenAny
	}
	tok, ok := types.TokenByName(ident.Name)
	if !ok {
		v.add(ViolationAnnotation, expr.Pos(), "unknown parameter type %q", ident.Name)
		return types.TokenAny
	}
	return tok
}

// finishDecls applies the whole-module rules that need every
// declaration resolved first.
func (v *validator) finishDecls() {
	exported := false
	for _, fn := range v.mod.Functions {
		if fn.Exported {
			exported = true
			break
		}
	}
	if !exported {
		v.add(ViolationExport, v.mod.File.Name.Pos(), "contracts must export at least one function")
	}
}

// ---- literal resolution ----

func (v *validator) literal(expr ast.Expr) (types.Value, bool) {
	switch e := expr.(type) {
	case *ast.BasicLit:
		switch e.Kind {
		case token.INT:
			n, err := strconv.ParseInt(e.Value, 0, 64)
			if err != nil {
				return nil, false
			}
			return n, true
		case token.FLOAT:
			d, err := types.NewDecimal(e.Value)
			if err != nil {
				return nil, false
			}
			return d, true
		case token.STRING:
			s, err := strconv.Unquote(e.Value)
			if err != nil {
				return nil, false
			}
			return s, true
		}
	case *ast.Ident:
		switch e.Name {
		case "true":
			return true, true
		case "false":
			return false, true
		case "nil":
			return nil, true
		}
	case *ast.UnaryExpr:
		if e.Op != token.SUB {
			return nil, false
		}
		inner, ok := v.literal(e.X)
		if !ok {
			return nil, false
		}
		switch n := inner.(type) {
		case int64:
			return -n, true
		case types.Decimal:
			return n.Neg(), true
		}
	case *ast.ParenExpr:
		return v.literal(e.X)
	}
	return nil, false
}

func stringLit(expr ast.Expr) (string, bool) {
	lit, ok := expr.(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return "", false
	}
	s, err := strconv.Unquote(lit.Value)
	return s, err == nil
}

func validIdent(s string) bool {
	if s == "" || s[0] == '_' || s[len(s)-1] == '_' {
		return false
	}
	for i, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
