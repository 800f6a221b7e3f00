// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contractingvm

import "github.com/convm/contractingvm/runtime"

// Config tunes an engine instance. The zero value is usable: every
// field falls back to its default.
type Config struct {
	// DefaultBudget is the stamp budget applied to transactions that
	// do not carry one of their own.
	DefaultBudget uint64 `json:"budget-default"`

	// StepLimit caps evaluation steps per transaction. It protects the
	// node from hostile compute loops and is separate from stamps.
	StepLimit uint64 `json:"step-limit"`

	// ModuleCacheSize bounds the parsed-module LRU.
	ModuleCacheSize int `json:"module-cache-size"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		DefaultBudget:   1_000_000,
		StepLimit:       runtime.DefaultStepLimit,
		ModuleCacheSize: 256,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.DefaultBudget == 0 {
		c.DefaultBudget = def.DefaultBudget
	}
	if c.StepLimit == 0 {
		c.StepLimit = def.StepLimit
	}
	if c.ModuleCacheSize <= 0 {
		c.ModuleCacheSize = def.ModuleCacheSize
	}
	return c
}
