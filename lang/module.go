// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lang

import (
	"go/ast"
	"go/token"

	"github.com/convm/contractingvm/types"
)

// BindingKind distinguishes the four state binding constructors.
type BindingKind uint8

const (
	BindVariable BindingKind = iota
	BindHash
	BindForeignVariable
	BindForeignHash
)

var bindingKindNames = [...]string{
	BindVariable:        "Variable",
	BindHash:            "Hash",
	BindForeignVariable: "ForeignVariable",
	BindForeignHash:     "ForeignHash",
}

// BindingKindByName maps a constructor name back to its kind. It is
// how kind tokens in interface requirements resolve.
func BindingKindByName(name string) (BindingKind, bool) {
	for k, n := range bindingKindNames {
		if n == name {
			return BindingKind(k), true
		}
	}
	return 0, false
}

func (k BindingKind) String() string {
	if int(k) < len(bindingKindNames) {
		return bindingKindNames[k]
	}
	return "unknown"
}

// Foreign reports whether the binding proxies another contract's state.
func (k BindingKind) Foreign() bool {
	return k == BindForeignVariable || k == BindForeignHash
}

// Keyed reports whether the binding is addressed with dimension values.
func (k BindingKind) Keyed() bool {
	return k == BindHash || k == BindForeignHash
}

// Binding is one module-level state declaration.
type Binding struct {
	Name string
	Kind BindingKind

	// Default applies to Hash bindings only: the value a read of an
	// absent key resolves to. HasDefault distinguishes Hash() from
	// Hash(nil).
	Default    types.Value
	HasDefault bool

	// ForeignContract and ForeignName locate the proxied declaration
	// for foreign bindings.
	ForeignContract string
	ForeignName     string
}

// EventParam is one field of an event schema, in declaration order.
type EventParam struct {
	Name    string
	Types   []types.Token
	Indexed bool
}

// Accepts reports whether v satisfies one of the declared value types.
func (p EventParam) Accepts(v types.Value) bool {
	for _, tok := range p.Types {
		if tok.Matches(v) {
			return true
		}
	}
	return false
}

// EventDef is a declared event: its emitted name, the module-level
// identifier it is bound to, and the ordered parameter schema.
type EventDef struct {
	Name   string
	Var    string
	Params []EventParam
}

// Param lookup by field name; nil if absent.
func (d *EventDef) Param(name string) *EventParam {
	for i := range d.Params {
		if d.Params[i].Name == name {
			return &d.Params[i]
		}
	}
	return nil
}

// IndexedCount returns how many parameters are marked indexable.
func (d *EventDef) IndexedCount() int {
	n := 0
	for _, p := range d.Params {
		if p.Indexed {
			n++
		}
	}
	return n
}

// FuncParam is a declared function parameter with its annotation token.
type FuncParam struct {
	Name string
	Type types.Token
}

// Function is one accepted function declaration.
type Function struct {
	Name     string
	Exported bool
	Params   []FuncParam
	Decl     *ast.FuncDecl
}

// Import is one accepted import: either a standard module or another
// contract (Contract true, Path of the form con_*).
type Import struct {
	Path     string
	Contract bool
}

// Module is the validated representation of a contract. Everything an
// executor needs is resolved here; the AST bodies are interpreted as-is.
type Module struct {
	Name   string
	Source []byte

	Fset *token.FileSet
	File *ast.File

	Functions   map[string]*Function
	Constructor *Function // nil when the contract declares none

	Bindings  map[string]*Binding
	Events    map[string]*EventDef // by event name
	EventVars map[string]*EventDef // by declaring identifier
	Constants map[string]types.Value
	Imports   []Import
}

// Func returns the named function, exported or private.
func (m *Module) Func(name string) *Function {
	return m.Functions[name]
}

// Exported returns the exported function by name, nil otherwise.
func (m *Module) Exported(name string) *Function {
	fn := m.Functions[name]
	if fn == nil || !fn.Exported {
		return nil
	}
	return fn
}

// ImportsContract reports whether the module imports the named contract.
func (m *Module) ImportsContract(name string) bool {
	for _, imp := range m.Imports {
		if imp.Contract && imp.Path == name {
			return true
		}
	}
	return false
}

// topLevel reports whether name is any module-level declaration: a
// binding, event variable, function, constant, or import handle. These
// names must never be assignment targets inside bodies.
func (m *Module) topLevel(name string) bool {
	if _, ok := m.Bindings[name]; ok {
		return true
	}
	if _, ok := m.EventVars[name]; ok {
		return true
	}
	if _, ok := m.Functions[name]; ok {
		return true
	}
	if _, ok := m.Constants[name]; ok {
		return true
	}
	for _, imp := range m.Imports {
		if imp.Path == name {
			return true
		}
	}
	return false
}
