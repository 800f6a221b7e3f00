// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contractingvm

import (
	"fmt"

	"github.com/ava-labs/avalanchego/cache"

	"github.com/convm/contractingvm/lang"
	"github.com/convm/contractingvm/runtime"
	"github.com/convm/contractingvm/storage"
)

var _ runtime.ModuleLoader = (*txLoader)(nil)

// txLoader resolves deployed contracts for one transaction. Source and
// owner reads go through the transaction's metered driver, so the
// transaction pays resolution exactly once per name; the parse itself
// is memoized engine-wide because deployed source never changes.
type txLoader struct {
	modules  *cache.LRU[string, *lang.Module]
	registry *storage.Registry

	mods   map[string]*lang.Module
	owners map[string]string
}

func (e *Engine) loaderFor(driver *storage.Driver) *txLoader {
	return &txLoader{
		modules:  e.modules,
		registry: storage.NewRegistry(driver),
		mods:     map[string]*lang.Module{},
		owners:   map[string]string{},
	}
}

func (l *txLoader) Load(name string) (*lang.Module, error) {
	if mod, ok := l.mods[name]; ok {
		return mod, nil
	}
	source, found, err := l.registry.Source(name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, runtime.Abortf(runtime.AbortNotFound, "contract %s is not deployed", name)
	}
	mod, cached := l.modules.Get(name)
	if !cached {
		mod, err = lang.Validate(name, source)
		if err != nil {
			return nil, fmt.Errorf("stored source for %s no longer validates: %w", name, err)
		}
		l.modules.Put(name, mod)
	}
	l.mods[name] = mod
	return mod, nil
}

func (l *txLoader) OwnerOf(name string) (string, error) {
	if owner, ok := l.owners[name]; ok {
		return owner, nil
	}
	owner, found, err := l.registry.Owner(name)
	if err != nil {
		return "", err
	}
	if !found {
		return "", runtime.Abortf(runtime.AbortNotFound, "contract %s has no deployment record", name)
	}
	l.owners[name] = owner
	return owner, nil
}
