package types

import (
	"github.com/arthur-debert/rigup/pkg/config"
)

// Body is an action behavior. It receives the capability surface of the
// executing context plus any positional arguments forwarded by the caller
// of Trigger. A body that takes no arguments simply ignores Call.Args.
type Body func(call Call) (interface{}, error)

// Call is the fixed operation vocabulary an action body executes through.
// It deliberately exposes less than the full execution context. Anything
// outside this set is a configuration-field read via Field, which fails
// with a FIELD_NOT_FOUND error when the field is absent; that two-tier
// resolution order (operation first, config field second) is part of the
// contract.
type Call interface {
	// Node returns the bound target handle
	Node() Node

	// Config returns the context's configuration
	Config() config.Config

	// Log returns the bound log sink
	Log() LogSink

	// Args returns the positional arguments forwarded by the trigger caller
	Args() []interface{}

	// Arg returns the i-th positional argument, ok=false when out of range
	Arg(i int) (interface{}, bool)

	// Run executes a command on the node
	Run(cmd string, opts RunOpts) (string, error)

	// Sudo executes a privileged command on the node
	Sudo(cmd string, opts RunOpts) (string, error)

	// RunLocal executes a command on the controller machine, logging stdout
	// and stderr separately. Diagnostic only: a non-zero exit is logged,
	// never returned as an error.
	RunLocal(cmd string)

	// Env reads an environment variable on the node
	Env(name string) (string, error)

	// InDir runs body with the node's working directory overridden,
	// restoring the previous directory on every exit path
	InDir(path string, body func() (interface{}, error)) (interface{}, error)

	// As runs body as another user. A blank user or the node's own user
	// runs body in this same context; any other user runs it in a forked
	// context with an independent Node and LogSink but shared Index and
	// Config.
	As(user string, body Body) (interface{}, error)

	// Upload copies a controller-side file to the node
	Upload(from, to string) error

	// Download copies a node-side file to the controller
	Download(from, to string) error

	// Mkdir creates a directory on the node
	Mkdir(path string) error

	// Remove deletes a path on the node
	Remove(path string) error

	// Copy duplicates a node-side path
	Copy(from, to string) error

	// Move renames a node-side path
	Move(from, to string) error

	// Local returns a handle to a controller-side file
	Local(path string) FileHandle

	// Remote returns a handle to a node-side file
	Remote(path string) FileHandle

	// Template returns a renderer for a controller-side template file,
	// bound to this context's config
	Template(path string) Renderer

	// Trigger resolves and runs another action by reference
	// ("action" or "action:package"), forwarding extra arguments
	Trigger(ref string, args ...interface{}) (interface{}, error)

	// BinaryExists reports whether a binary exists on the node's PATH
	BinaryExists(name string) (bool, error)

	// Field reads a configuration field by dotted path. This is the
	// fallback tier of the capability resolution order and the only
	// lookup that fails on absence.
	Field(name string) (config.Value, error)
}
