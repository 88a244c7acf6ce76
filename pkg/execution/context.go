// Package execution is the engine core: the Context binds a (node, user,
// config, active package) tuple for one invocation chain, runs action
// bodies through the Call capability surface, resolves nested triggers
// with config inheritance, and forks per-user sub-contexts.
package execution

import (
	"bytes"
	"os/exec"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/rigup/pkg/config"
	"github.com/arthur-debert/rigup/pkg/errors"
	"github.com/arthur-debert/rigup/pkg/logging"
	"github.com/arthur-debert/rigup/pkg/node"
	"github.com/arthur-debert/rigup/pkg/types"
)

// Context drives one synchronous call stack against one node. Contexts are
// transient: create one per top-level run and never share it across
// concurrent runs, since the config and active-package pointer mutate along
// the chain.
type Context struct {
	node     types.Node
	index    types.Index
	cfg      config.Config
	sink     types.LogSink
	logger   zerolog.Logger
	active   *types.Package
	behavior types.Behavior
}

// New creates a context over a node and a package index. The context
// snapshots the node's config; later merges along the trigger chain do not
// touch the node's own copy.
func New(n types.Node, index types.Index) *Context {
	return &Context{
		node:     n,
		index:    index,
		cfg:      n.Config().Clone(),
		sink:     n.Log(),
		logger:   logging.GetLogger("execution"),
		behavior: types.BehaviorApply,
	}
}

// NewMock creates a dry-run context over a fresh mock node: trigger
// resolution, config merging and routing run the real code paths while
// every node effect is recorded instead of performed. The mock node is
// returned alongside so callers can read its journal.
func NewMock(userName string, cfg config.Config, index types.Index, sink types.LogSink) (*Context, *node.Mock) {
	mock := node.NewMock(userName, cfg, sink)
	return New(mock, index), mock
}

// Node returns the bound node handle
func (c *Context) Node() types.Node { return c.node }

// Config returns the context's config. Forked contexts share it by
// reference.
func (c *Context) Config() config.Config { return c.cfg }

// Log returns the bound log sink
func (c *Context) Log() types.LogSink { return c.sink }

// Behavior returns the behavior the current run executes
func (c *Context) Behavior() types.Behavior { return c.behavior }

// ActivePackage returns the package bare trigger references resolve
// against, nil outside any action run
func (c *Context) ActivePackage() *types.Package { return c.active }

// Execute runs a top-level action reference with an explicit behavior. The
// behavior flows through nested triggers: validating an action validates
// whatever it triggers.
func (c *Context) Execute(ref string, behavior types.Behavior, args ...interface{}) (interface{}, error) {
	prev := c.behavior
	c.behavior = behavior
	defer func() { c.behavior = prev }()
	return c.Trigger(ref, args...)
}

// As runs body as another user. A blank user or the node's current user
// executes body in this same context. Otherwise body runs in a forked
// context: independent node handle and log sink, shared index and config.
func (c *Context) As(user string, body types.Body) (interface{}, error) {
	if user == "" || user == c.node.User() {
		return body(c.newCall(nil))
	}

	forked, err := c.node.ForUser(user)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrNodeUser, "forking node for user %q", user)
	}

	fc := &Context{
		node:     forked,
		index:    c.index,
		cfg:      c.cfg,
		sink:     c.sink.CloneForNode(forked),
		logger:   c.logger.With().Str("user", user).Logger(),
		active:   c.active,
		behavior: c.behavior,
	}
	return body(fc.newCall(nil))
}

// InDir runs body with the node's working directory overridden, restoring
// the previous directory on every exit path including failure.
func (c *Context) InDir(path string, body func() (interface{}, error)) (interface{}, error) {
	prev, err := c.node.SetCwd(path)
	if err != nil {
		return nil, err
	}
	defer func() { _, _ = c.node.SetCwd(prev) }()
	return body()
}

// RunLocal executes a command on the controller machine, logging stdout
// and stderr separately. Diagnostic only: a non-zero exit is logged and
// swallowed.
func (c *Context) RunLocal(cmd string) {
	c.sink.Local(cmd)

	var stdout, stderr bytes.Buffer
	local := exec.Command("sh", "-c", cmd)
	local.Stdout = &stdout
	local.Stderr = &stderr

	err := local.Run()
	c.sink.Stdout(stdout.String())
	c.sink.Stderr(stderr.String())
	if err != nil {
		c.logger.Debug().Err(err).Str("cmd", cmd).Msg("local command exited non-zero")
	}
}

// Field reads a configuration field by dotted path; the router's fallback
// tier. Absence is the one lookup that fails.
func (c *Context) Field(name string) (config.Value, error) {
	v, ok := c.cfg.Get(name)
	if !ok {
		return config.Value{}, errors.Newf(errors.ErrFieldNotFound,
			"no operation or configuration field %q", name).WithDetail("field", name)
	}
	return v, nil
}
