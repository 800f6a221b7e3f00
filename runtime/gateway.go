// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"strconv"
	"strings"

	"github.com/convm/contractingvm/lang"
	"github.com/convm/contractingvm/types"
)

// ContractHandle is a live reference to another deployed contract,
// produced by a contract import or importlib.ImportModule. Handles
// exist only inside the transaction that resolved them; they cannot be
// stored or returned to the outside.
type ContractHandle struct {
	name  string
	mod   *lang.Module
	owner string
}

// Name returns the handle's contract name.
func (h *ContractHandle) Name() string { return h.name }

// ifaceEntry is one structural requirement built by importlib.Func or
// importlib.Var and consumed by importlib.EnforceInterface.
type ifaceEntry struct {
	fn       bool
	name     string
	argNames []string
	kind     lang.BindingKind
}

// contractHandle resolves a statically imported contract, caching the
// handle for the rest of the activation.
func (in *Interpreter) contractHandle(act *activation, name string) (types.Value, error) {
	if h, ok := act.handles[name]; ok {
		return h, nil
	}
	h, err := in.loadContract(name)
	if err != nil {
		return nil, err
	}
	act.handles[name] = h
	return h, nil
}

func (in *Interpreter) loadContract(name string) (*ContractHandle, error) {
	mod, err := in.env.Loader.Load(name)
	if err != nil {
		return nil, err
	}
	owner, err := in.env.Loader.OwnerOf(name)
	if err != nil {
		return nil, err
	}
	return &ContractHandle{name: name, mod: mod, owner: owner}, nil
}

// callForeign invokes an exported function of another contract. The
// callee runs in its own activation: its caller is the invoking
// contract, its state bindings resolve against its own namespace, and
// it shares the transaction's pending writes, event log, meter and
// depth budget. Any failure inside the callee aborts the whole
// transaction.
func (in *Interpreter) callForeign(h *ContractHandle, function string, args []types.Value) (types.Value, error) {
	fn := h.mod.Exported(function)
	if fn == nil {
		return nil, &Abort{Kind: AbortNotFound, Contract: h.name,
			Msg: "no exported function " + strconv.Quote(function)}
	}
	if len(args) != len(fn.Params) {
		return nil, Abortf(AbortType, "%s.%s takes %d arguments, got %d", h.name, function, len(fn.Params), len(args))
	}
	for i, p := range fn.Params {
		if !p.Type.Matches(args[i]) {
			return nil, Abortf(AbortType, "argument %q takes %s, got %s", p.Name, p.Type, types.KindOf(args[i]))
		}
	}
	if err := in.env.push(h.name, function, h.owner); err != nil {
		return nil, err
	}
	v, err := in.runFunction(h.mod, fn, args)
	in.env.pop()
	return v, err
}

func (in *Interpreter) callImportlib(act *activation, member string, args []types.Value) (types.Value, error) {
	switch member {
	case "ImportModule":
		name, err := moduleString("importlib", member, args[0])
		if err != nil {
			return nil, err
		}
		if !lang.ValidContractName(name) {
			return nil, Abortf(AbortName, "%q is not a contract name", name)
		}
		if name == act.mod.Name {
			return nil, Abortf(AbortName, "a contract cannot import itself")
		}
		return in.loadContract(name)

	case "Func":
		entry := ifaceEntry{fn: true}
		for i, a := range args {
			s, err := moduleString("importlib", member, a)
			if err != nil {
				return nil, err
			}
			if i == 0 {
				entry.name = s
			} else {
				entry.argNames = append(entry.argNames, s)
			}
		}
		return entry, nil

	case "Var":
		name, err := moduleString("importlib", member, args[0])
		if err != nil {
			return nil, err
		}
		kind, ok := args[1].(lang.BindingKind)
		if !ok {
			return nil, Abortf(AbortType, "importlib.Var takes a binding kind token")
		}
		return ifaceEntry{name: name, kind: kind}, nil

	case "EnforceInterface":
		handle, ok := args[0].(*ContractHandle)
		if !ok {
			return nil, Abortf(AbortType, "importlib.EnforceInterface takes a contract module")
		}
		spec, ok := args[1].(types.List)
		if !ok {
			return nil, Abortf(AbortType, "importlib.EnforceInterface takes a list of requirements, got %s", types.KindOf(args[1]))
		}
		return nil, enforceInterface(handle, spec)

	default:
		return nil, Abortf(AbortName, "unknown importlib member %q", member)
	}
}

// enforceInterface checks the resolved contract against each
// requirement before any nested execution happens. A miss aborts the
// transaction.
func enforceInterface(h *ContractHandle, requirements types.List) error {
	for _, req := range requirements {
		entry, ok := req.(ifaceEntry)
		if !ok {
			return Abortf(AbortType, "interface requirements come from importlib.Func and importlib.Var")
		}
		if entry.fn {
			if err := enforceFunc(h, entry); err != nil {
				return err
			}
			continue
		}
		decl := h.mod.Bindings[entry.name]
		if decl == nil {
			return Abortf(AbortInterface, "%s has no state binding %q", h.name, entry.name)
		}
		if decl.Kind != entry.kind {
			return Abortf(AbortInterface, "%s binding %q is %s, want %s", h.name, entry.name, decl.Kind, entry.kind)
		}
	}
	return nil
}

func enforceFunc(h *ContractHandle, entry ifaceEntry) error {
	fn := h.mod.Exported(entry.name)
	if fn == nil {
		return Abortf(AbortInterface, "%s has no exported function %q", h.name, entry.name)
	}
	actual := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		actual[i] = p.Name
	}
	if len(actual) != len(entry.argNames) {
		return Abortf(AbortInterface, "%s.%s takes (%s), want (%s)",
			h.name, entry.name, strings.Join(actual, ", "), strings.Join(entry.argNames, ", "))
	}
	for i, want := range entry.argNames {
		if actual[i] != want {
			return Abortf(AbortInterface, "%s.%s takes (%s), want (%s)",
				h.name, entry.name, strings.Join(actual, ", "), strings.Join(entry.argNames, ", "))
		}
	}
	return nil
}
