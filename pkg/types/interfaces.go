package types

import (
	"io/fs"

	"github.com/arthur-debert/rigup/pkg/config"
)

// RunOpts carries per-command options for Node.Run and Node.Sudo
type RunOpts struct {
	// Env is extra environment for the command, merged over the node's own
	Env map[string]string

	// Stdin is fed to the command when non-empty
	Stdin string
}

// Node is the target-machine handle. The engine holds a reference only and
// never manages its lifecycle. Implementations decide what "remote" means:
// an SSH transport, the controller machine itself, or a dry-run recorder.
type Node interface {
	// User returns the identity commands run as
	User() string

	// Run executes a command on the node and returns its output.
	// Failures are returned unchanged; the engine applies no retry.
	Run(cmd string, opts RunOpts) (string, error)

	// Sudo executes a command with elevated privilege
	Sudo(cmd string, opts RunOpts) (string, error)

	// Upload copies a controller-side file to the node
	Upload(from, to string) error

	// Download copies a node-side file to the controller
	Download(from, to string) error

	// Mkdir creates a directory (and parents) on the node
	Mkdir(path string) error

	// Delete removes a path on the node
	Delete(path string) error

	// Copy duplicates a node-side path
	Copy(from, to string) error

	// Move renames a node-side path
	Move(from, to string) error

	// SetPermissions sets the permission bits of a node-side path
	SetPermissions(path string, mode fs.FileMode) error

	// SetOwner sets owner and group of a node-side path. An empty group
	// leaves the group unchanged.
	SetOwner(path, user, group string) error

	// Env reads an environment variable on the node
	Env(name string) (string, error)

	// BinaryExists reports whether a binary is on the node's PATH
	BinaryExists(name string) (bool, error)

	// ForUser returns a node handle bound to another user identity
	ForUser(user string) (Node, error)

	// SetCwd overrides the working directory for subsequent commands and
	// returns the previous one, so callers can restore it
	SetCwd(path string) (string, error)

	// Config returns the node's configuration snapshot
	Config() config.Config

	// Log returns the node's log sink
	Log() LogSink
}

// LogSink receives the engine's per-operation log traffic
type LogSink interface {
	// Log records a general message
	Log(msg string)

	// Local records a command executed on the controller machine
	Local(cmd string)

	// Stdout records captured standard output
	Stdout(text string)

	// Stderr records captured standard error
	Stderr(text string)

	// MockExecute records the description of a suppressed (dry-run) effect
	MockExecute(description string)

	// SetTask names the action currently running, for diagnostics, and
	// returns the previous name
	SetTask(name string) string

	// CloneForNode derives an independent sink for a forked node
	CloneForNode(n Node) LogSink
}

// Index is the read-only package registry handle passed into each context
type Index interface {
	// Get looks up a package by name
	Get(name string) (*Package, bool)
}

// FileHandle represents a controller-side or node-side file for transfer,
// comparison and permission queries
type FileHandle interface {
	// Path returns the file path on its side
	Path() string

	// CopyTo transfers this file's content to another handle
	CopyTo(other FileHandle) error

	// Delete removes the file
	Delete() error

	// Matches reports whether both files hold identical bytes. A missing
	// file on either side is a mismatch, not an error.
	Matches(other FileHandle) (bool, error)

	// Checksum returns the sha256 hex digest of the content, or ok=false
	// when the file is absent
	Checksum() (string, bool, error)

	// Permissions returns the file's permission bits
	Permissions() (fs.FileMode, error)

	// Owner returns the file's owner and group names
	Owner() (user, group string, err error)
}

// Renderer produces files from templates bound to a context's config
type Renderer interface {
	// RenderToTempfile renders with the given variables into a tempfile
	// keyed by a content hash of the rendered bytes, and returns its path
	RenderToTempfile(vars config.Config) (string, error)
}
