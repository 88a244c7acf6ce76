package types

import (
	"github.com/arthur-debert/rigup/pkg/config"
	"github.com/arthur-debert/rigup/pkg/errors"
)

// Behavior selects which action body a run executes. The behavior flows
// through nested triggers: validating an action validates its dependents.
type Behavior string

const (
	BehaviorApply    Behavior = "apply"
	BehaviorRevert   Behavior = "revert"
	BehaviorValidate Behavior = "validate"
)

// Package is a named bundle of actions plus default configuration. The
// defaults are merged (fill-missing) into a context's config whenever one
// of the package's actions is triggered.
type Package struct {
	// Name is the package name, unique within an Index
	Name string

	// Defaults is the package's default configuration
	Defaults config.Config

	actions map[string]*Action
}

// NewPackage creates a package with the given defaults. A nil defaults
// config is replaced by an empty one.
func NewPackage(name string, defaults config.Config) *Package {
	if defaults == nil {
		defaults = config.New()
	}
	return &Package{
		Name:     name,
		Defaults: defaults,
		actions:  make(map[string]*Action),
	}
}

// Add registers an action with the package and sets its backreference
func (p *Package) Add(a *Action) error {
	if a.Name == "" {
		return errors.New(errors.ErrInvalidInput, "action name cannot be empty")
	}
	if _, exists := p.actions[a.Name]; exists {
		return errors.Newf(errors.ErrAlreadyExists, "action %q already defined in package %q", a.Name, p.Name)
	}
	a.Pack = p
	p.actions[a.Name] = a
	return nil
}

// Action looks up an action by name
func (p *Package) Action(name string) (*Action, bool) {
	a, ok := p.actions[name]
	return a, ok
}

// ActionNames returns the names of all actions in the package
func (p *Package) ActionNames() []string {
	names := make([]string, 0, len(p.actions))
	for name := range p.actions {
		names = append(names, name)
	}
	return names
}

// Action is a named unit with up to three behaviors. It belongs to exactly
// one package.
type Action struct {
	// Name addresses the action within its package
	Name string

	// Pack is the owning package, set by Package.Add
	Pack *Package

	// Apply makes the action's effect happen
	Apply Body

	// Revert undoes the action's effect
	Revert Body

	// Validate checks whether the effect is in place. Mismatches are
	// boolean results, not errors.
	Validate Body
}

// Body returns the body for a behavior, ok=false when the action does not
// define it
func (a *Action) Body(b Behavior) (Body, bool) {
	switch b {
	case BehaviorApply:
		return a.Apply, a.Apply != nil
	case BehaviorRevert:
		return a.Revert, a.Revert != nil
	case BehaviorValidate:
		return a.Validate, a.Validate != nil
	default:
		return nil, false
	}
}
