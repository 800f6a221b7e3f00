// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lang

import (
	"errors"
	"fmt"
	"go/token"
	"strings"
)

// ViolationKind classifies why a contract source was rejected. Deployment
// reports the kind to the submitter verbatim, so the set is part of the
// engine's observable surface.
type ViolationKind uint8

const (
	// ViolationSyntax: the source does not parse at all.
	ViolationSyntax ViolationKind = iota
	// ViolationConstruct: a syntax construct outside the allow-list.
	ViolationConstruct
	// ViolationImport: a disallowed or malformed import.
	ViolationImport
	// ViolationName: a naming rule (reserved words, underscores,
	// redeclaration, assignment to module-level names).
	ViolationName
	// ViolationAnnotation: a parameter or return type annotation rule.
	ViolationAnnotation
	// ViolationExport: no exported function exists.
	ViolationExport
	// ViolationConstructor: constructor declaration or call rules.
	ViolationConstructor
	// ViolationORM: state-binding construction or access rules.
	ViolationORM
	// ViolationEvent: event definition schema rules.
	ViolationEvent
	// ViolationKey: a statically determinable dimension bound.
	ViolationKey
)

var violationKindNames = [...]string{
	ViolationSyntax:      "syntax",
	ViolationConstruct:   "construct",
	ViolationImport:      "import",
	ViolationName:        "name",
	ViolationAnnotation:  "annotation",
	ViolationExport:      "export",
	ViolationConstructor: "constructor",
	ViolationORM:         "orm",
	ViolationEvent:       "event",
	ViolationKey:         "key",
}

func (k ViolationKind) String() string {
	if int(k) < len(violationKindNames) {
		return violationKindNames[k]
	}
	return "unknown"
}

// Violation is a single rejected rule with its source location.
type Violation struct {
	Kind ViolationKind
	Msg  string
	Pos  token.Position
}

func (v Violation) String() string {
	if v.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s violation: %s", v.Pos.Filename, v.Pos.Line, v.Pos.Column, v.Kind, v.Msg)
	}
	return fmt.Sprintf("%s violation: %s", v.Kind, v.Msg)
}

// RejectionError carries every violation found in one validation pass.
// Deployment fails on the first, but reporting all of them keeps the static
// validation endpoint useful.
type RejectionError struct {
	Violations []Violation
}

func (e *RejectionError) Error() string {
	switch len(e.Violations) {
	case 0:
		return "contract rejected"
	case 1:
		return e.Violations[0].String()
	default:
		return fmt.Sprintf("%s (and %d more)", e.Violations[0].String(), len(e.Violations)-1)
	}
}

// First returns the leading violation.
func (e *RejectionError) First() Violation {
	if len(e.Violations) == 0 {
		return Violation{Kind: ViolationSyntax, Msg: "contract rejected"}
	}
	return e.Violations[0]
}

// Report renders every violation, one per line.
func (e *RejectionError) Report() string {
	lines := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		lines[i] = v.String()
	}
	return strings.Join(lines, "\n")
}

// AsRejection extracts a *RejectionError if err is one.
func AsRejection(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
