// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"errors"
	"fmt"
)

// AbortKind classifies why a transaction aborted at execution time.
// Aborts are atomic: every pending effect of the transaction is
// discarded, whichever nested call raised it.
type AbortKind uint8

const (
	// AbortAssertion: an assert() with a false condition.
	AbortAssertion AbortKind = iota
	// AbortStamps: the stamp budget ran out.
	AbortStamps
	// AbortDepth: the call nesting limit was hit.
	AbortDepth
	// AbortSteps: the evaluation step ceiling was hit.
	AbortSteps
	// AbortType: an operation received a value it has no meaning for.
	AbortType
	// AbortName: a name failed to resolve at run time.
	AbortName
	// AbortKey: a state key broke the dimension or length bounds.
	AbortKey
	// AbortEvent: an emitted payload did not match its schema.
	AbortEvent
	// AbortInterface: a structural interface check failed.
	AbortInterface
	// AbortNotFound: a contract or function does not exist.
	AbortNotFound
	// AbortState: the backing store failed; not a contract fault.
	AbortState
)

var abortKindNames = [...]string{
	AbortAssertion: "assertion",
	AbortStamps:    "stamps",
	AbortDepth:     "depth",
	AbortSteps:     "steps",
	AbortType:      "type",
	AbortName:      "name",
	AbortKey:       "key",
	AbortEvent:     "event",
	AbortInterface: "interface",
	AbortNotFound:  "not-found",
	AbortState:     "state",
}

func (k AbortKind) String() string {
	if int(k) < len(abortKindNames) {
		return abortKindNames[k]
	}
	return "unknown"
}

// Abort is the terminal failure of a transaction. Contract identifies
// the innermost contract executing when it was raised.
type Abort struct {
	Kind     AbortKind
	Contract string
	Msg      string
}

func (a *Abort) Error() string {
	if a.Contract == "" {
		return fmt.Sprintf("%s abort: %s", a.Kind, a.Msg)
	}
	return fmt.Sprintf("%s abort in %s: %s", a.Kind, a.Contract, a.Msg)
}

// Abortf builds an abort with a formatted message.
func Abortf(kind AbortKind, format string, args ...interface{}) *Abort {
	return &Abort{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// AsAbort extracts an *Abort if err is one.
func AsAbort(err error) (*Abort, bool) {
	var abort *Abort
	if errors.As(err, &abort) {
		return abort, true
	}
	return nil, false
}
