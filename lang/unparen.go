// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lang

import "go/ast"

// unparen returns e with any enclosing parentheses stripped.
// Equivalent to ast.Unparen, which requires Go 1.22.
func unparen(e ast.Expr) ast.Expr {
	for {
		paren, ok := e.(*ast.ParenExpr)
		if !ok {
			return e
		}
		e = paren.X
	}
}
