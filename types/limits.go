// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

const (
	// MaxKeyDimensions bounds how many dimension values a single state
	// key may carry.
	MaxKeyDimensions = 16

	// MaxKeyBytes bounds the rendered length of a state key, contract
	// and variable prefix included.
	MaxKeyBytes = 1024

	// MaxCallDepth bounds contract-to-contract call nesting, the
	// entry call included.
	MaxCallDepth = 1024
)
