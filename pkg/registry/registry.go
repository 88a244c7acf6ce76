// Package registry holds the package index: the read-only name-to-package
// mapping every execution context resolves trigger references against. The
// index is populated once while manifests load and then handed to contexts
// as a types.Index; the engine itself never mutates it.
package registry

import (
	"sort"
	"sync"

	"github.com/arthur-debert/rigup/pkg/errors"
	"github.com/arthur-debert/rigup/pkg/types"
)

// Index is a thread-safe package registry. The zero value is not usable;
// create one with NewIndex.
type Index struct {
	mu       sync.RWMutex
	packages map[string]*types.Package
}

// NewIndex creates an empty index
func NewIndex() *Index {
	return &Index{packages: make(map[string]*types.Package)}
}

// Register adds a package to the index
func (idx *Index) Register(p *types.Package) error {
	if p == nil || p.Name == "" {
		return errors.New(errors.ErrInvalidInput, "package name cannot be empty")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.packages[p.Name]; exists {
		return errors.Newf(errors.ErrAlreadyExists, "package %q is already registered", p.Name)
	}

	idx.packages[p.Name] = p
	return nil
}

// Get looks up a package by name. Implements types.Index.
func (idx *Index) Get(name string) (*types.Package, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	p, ok := idx.packages[name]
	return p, ok
}

// Names returns all registered package names in sorted order
func (idx *Index) Names() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	names := make([]string, 0, len(idx.packages))
	for name := range idx.packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered packages
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.packages)
}
