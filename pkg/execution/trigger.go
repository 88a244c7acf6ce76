package execution

import (
	"strings"

	"github.com/arthur-debert/rigup/pkg/errors"
	"github.com/arthur-debert/rigup/pkg/types"
)

// RefSeparator splits an action reference into action and package parts
const RefSeparator = ":"

// SplitRef parses "action" or "action:package" by splitting once from the
// right, so action names may themselves contain the separator.
func SplitRef(ref string) (actionName, packageName string) {
	idx := strings.LastIndex(ref, RefSeparator)
	if idx < 0 {
		return ref, ""
	}
	return ref[:idx], ref[idx+1:]
}

func missingAction(ref string) error {
	return errors.Newf(errors.ErrMissingAction, "unresolvable action reference %q", ref).
		WithDetail("ref", ref)
}

// Trigger resolves an action reference and runs its body for the context's
// current behavior, forwarding extra arguments. A reference with an
// explicit package resolves against the index; a bare name resolves against
// the active package. Either way an unresolvable reference fails with a
// MISSING_ACTION error carrying the original reference string.
func (c *Context) Trigger(ref string, args ...interface{}) (interface{}, error) {
	actionName, packageName := SplitRef(ref)

	var pkg *types.Package
	if packageName != "" {
		p, ok := c.index.Get(packageName)
		if !ok {
			return nil, missingAction(ref)
		}
		pkg = p
	} else {
		if c.active == nil {
			return nil, missingAction(ref)
		}
		pkg = c.active
	}

	action, ok := pkg.Action(actionName)
	if !ok {
		return nil, missingAction(ref)
	}

	return c.runAction(action, args)
}

// runAction merges the target package's defaults into the context config
// (fill-missing, so values already set along the chain win), swaps the
// active package and diagnostic task name, and restores both on every exit
// path. Failures propagate only after restoration.
func (c *Context) runAction(action *types.Action, args []interface{}) (result interface{}, err error) {
	c.cfg.Merge(action.Pack.Defaults)

	prevPackage := c.active
	c.active = action.Pack
	task := action.Name + RefSeparator + action.Pack.Name
	prevTask := c.sink.SetTask(task)
	defer func() {
		c.active = prevPackage
		c.sink.SetTask(prevTask)
	}()

	c.logger.Debug().
		Str("action", action.Name).
		Str("package", action.Pack.Name).
		Str("behavior", string(c.behavior)).
		Msg("running action")

	body, ok := action.Body(c.behavior)
	if !ok {
		// an action without this behavior is a no-op, so revert/validate
		// chains can walk dependents that only define apply
		c.sink.Log("skip " + task + ": no " + string(c.behavior) + " behavior")
		return nil, nil
	}

	return body(c.newCall(args))
}
