package node

import (
	"fmt"
	"io/fs"

	"github.com/arthur-debert/rigup/pkg/config"
	"github.com/arthur-debert/rigup/pkg/errors"
	"github.com/arthur-debert/rigup/pkg/logging"
	"github.com/arthur-debert/rigup/pkg/types"
)

// Mock is a dry-run node: every mutating primitive records a description
// of the intended effect through the sink's MockExecute channel and returns
// a benign zero value. Trigger resolution, config merging and routing run
// the real code paths; only node effects are suppressed.
//
// All handles forked from one Mock (via ForUser) append to a shared
// journal, so a preview of a whole run reads in order.
type Mock struct {
	user    string
	cwd     string
	cfg     config.Config
	sink    types.LogSink
	journal *[]string
}

// NewMock creates a dry-run node. A nil config gets an empty one; a nil
// sink gets a default zerolog-backed one.
func NewMock(userName string, cfg config.Config, sink types.LogSink) *Mock {
	if userName == "" {
		userName = "mock"
	}
	if cfg == nil {
		cfg = config.New()
	}
	if sink == nil {
		sink = logging.NewSink("node.mock")
	}
	journal := make([]string, 0)
	return &Mock{user: userName, cfg: cfg, sink: sink, journal: &journal}
}

// Journal returns the descriptions of every suppressed effect so far, in
// execution order, across user forks
func (m *Mock) Journal() []string { return *m.journal }

func (m *Mock) mock(format string, args ...interface{}) {
	desc := fmt.Sprintf(format, args...)
	*m.journal = append(*m.journal, desc)
	m.sink.MockExecute(desc)
}

// User returns the identity commands would run as
func (m *Mock) User() string { return m.user }

// Config returns the node's configuration snapshot
func (m *Mock) Config() config.Config { return m.cfg }

// Log returns the node's log sink
func (m *Mock) Log() types.LogSink { return m.sink }

// Run records the command and returns empty output
func (m *Mock) Run(cmd string, opts types.RunOpts) (string, error) {
	m.mock("run[%s]: %s", m.user, cmd)
	return "", nil
}

// Sudo records the privileged command and returns empty output
func (m *Mock) Sudo(cmd string, opts types.RunOpts) (string, error) {
	m.mock("sudo[%s]: %s", m.user, cmd)
	return "", nil
}

// Upload records the intended transfer
func (m *Mock) Upload(from, to string) error {
	m.mock("upload %s -> %s", from, to)
	return nil
}

// Download records the intended transfer
func (m *Mock) Download(from, to string) error {
	m.mock("download %s -> %s", from, to)
	return nil
}

// Mkdir records the intended directory creation
func (m *Mock) Mkdir(path string) error {
	m.mock("mkdir -p %s", path)
	return nil
}

// Delete records the intended removal
func (m *Mock) Delete(path string) error {
	m.mock("rm -rf %s", path)
	return nil
}

// Copy records the intended copy
func (m *Mock) Copy(from, to string) error {
	m.mock("cp %s %s", from, to)
	return nil
}

// Move records the intended rename
func (m *Mock) Move(from, to string) error {
	m.mock("mv %s %s", from, to)
	return nil
}

// SetPermissions records the intended chmod
func (m *Mock) SetPermissions(path string, mode fs.FileMode) error {
	m.mock("chmod %o %s", mode.Perm(), path)
	return nil
}

// SetOwner records the intended chown
func (m *Mock) SetOwner(path, userName, group string) error {
	m.mock("chown %s:%s %s", userName, group, path)
	return nil
}

// Env returns an empty value; a mock node has no environment
func (m *Mock) Env(name string) (string, error) {
	return "", nil
}

// BinaryExists reports false: with no target to query, a preview shows the
// full plan rather than skipping install branches
func (m *Mock) BinaryExists(name string) (bool, error) {
	return false, nil
}

// ForUser returns a mock handle for another user sharing this journal
func (m *Mock) ForUser(userName string) (types.Node, error) {
	if userName == "" {
		return nil, errors.New(errors.ErrNodeUser, "user cannot be empty")
	}
	return &Mock{user: userName, cfg: m.cfg, sink: m.sink, journal: m.journal}, nil
}

// SetCwd overrides the working directory and returns the previous one
func (m *Mock) SetCwd(path string) (string, error) {
	prev := m.cwd
	m.cwd = path
	return prev, nil
}
