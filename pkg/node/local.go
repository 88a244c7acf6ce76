package node

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/arthur-debert/rigup/pkg/config"
	"github.com/arthur-debert/rigup/pkg/errors"
	"github.com/arthur-debert/rigup/pkg/logging"
	"github.com/arthur-debert/rigup/pkg/types"
)

// Local runs commands and file operations on the controller machine
// itself. Commands go through "sh -c"; when the node is bound to a user
// other than the process owner, they are wrapped in sudo -u.
type Local struct {
	user string
	cwd  string
	cfg  config.Config
	sink types.LogSink
}

// NewLocal creates a local node bound to user. An empty user means the
// current process owner. A nil sink gets a default zerolog-backed one.
func NewLocal(userName string, cfg config.Config, sink types.LogSink) *Local {
	if userName == "" {
		userName = currentUser()
	}
	if cfg == nil {
		cfg = config.New()
	}
	if sink == nil {
		sink = logging.NewSink("node.local")
	}
	return &Local{user: userName, cfg: cfg, sink: sink}
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

// User returns the identity commands run as
func (l *Local) User() string { return l.user }

// Config returns the node's configuration snapshot
func (l *Local) Config() config.Config { return l.cfg }

// Log returns the node's log sink
func (l *Local) Log() types.LogSink { return l.sink }

func (l *Local) shell(cmd string, opts types.RunOpts, privileged bool) (string, error) {
	var c *exec.Cmd
	switch {
	case privileged:
		c = exec.Command("sudo", "sh", "-c", cmd)
	case l.user != currentUser():
		c = exec.Command("sudo", "-u", l.user, "sh", "-c", cmd)
	default:
		c = exec.Command("sh", "-c", cmd)
	}

	if l.cwd != "" {
		c.Dir = l.cwd
	}
	if len(opts.Env) > 0 {
		c.Env = os.Environ()
		for k, v := range opts.Env {
			c.Env = append(c.Env, k+"="+v)
		}
	}
	if opts.Stdin != "" {
		c.Stdin = strings.NewReader(opts.Stdin)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	l.sink.Log(cmd)
	err := c.Run()
	l.sink.Stdout(stdout.String())
	l.sink.Stderr(stderr.String())

	if err != nil {
		return stdout.String(), errors.Wrapf(err, errors.ErrNodeCommand, "command failed: %s", cmd).
			WithDetail("stderr", stderr.String())
	}
	return stdout.String(), nil
}

// Run executes a command as the node's user
func (l *Local) Run(cmd string, opts types.RunOpts) (string, error) {
	return l.shell(cmd, opts, false)
}

// Sudo executes a command with elevated privilege
func (l *Local) Sudo(cmd string, opts types.RunOpts) (string, error) {
	return l.shell(cmd, opts, true)
}

func copyFile(from, to string) error {
	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	info, err := src.Stat()
	if err != nil {
		return err
	}

	dst, err := os.OpenFile(to, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() { _ = dst.Close() }()

	_, err = io.Copy(dst, src)
	return err
}

// Upload copies a controller-side file to the node. On a local node both
// sides are the same filesystem.
func (l *Local) Upload(from, to string) error {
	l.sink.Log(fmt.Sprintf("upload %s -> %s", from, to))
	if err := copyFile(from, to); err != nil {
		return errors.Wrapf(err, errors.ErrTransfer, "upload %s to %s", from, to)
	}
	return nil
}

// Download copies a node-side file to the controller
func (l *Local) Download(from, to string) error {
	l.sink.Log(fmt.Sprintf("download %s -> %s", from, to))
	if err := copyFile(from, to); err != nil {
		return errors.Wrapf(err, errors.ErrTransfer, "download %s to %s", from, to)
	}
	return nil
}

// Mkdir creates a directory and its parents
func (l *Local) Mkdir(path string) error {
	l.sink.Log("mkdir -p " + path)
	return os.MkdirAll(path, 0755)
}

// Delete removes a path
func (l *Local) Delete(path string) error {
	l.sink.Log("rm -rf " + path)
	return os.RemoveAll(path)
}

// Copy duplicates a node-side file
func (l *Local) Copy(from, to string) error {
	l.sink.Log(fmt.Sprintf("cp %s %s", from, to))
	if err := copyFile(from, to); err != nil {
		return errors.Wrapf(err, errors.ErrTransfer, "copy %s to %s", from, to)
	}
	return nil
}

// Move renames a node-side path
func (l *Local) Move(from, to string) error {
	l.sink.Log(fmt.Sprintf("mv %s %s", from, to))
	return os.Rename(from, to)
}

// SetPermissions sets the permission bits of a path
func (l *Local) SetPermissions(path string, mode fs.FileMode) error {
	l.sink.Log(fmt.Sprintf("chmod %o %s", mode.Perm(), path))
	return os.Chmod(path, mode)
}

// SetOwner sets owner and group of a path. An empty group leaves the
// group unchanged.
func (l *Local) SetOwner(path, userName, group string) error {
	l.sink.Log(fmt.Sprintf("chown %s:%s %s", userName, group, path))

	uid := -1
	if userName != "" {
		u, err := user.Lookup(userName)
		if err != nil {
			return errors.Wrapf(err, errors.ErrNodeUser, "looking up user %q", userName)
		}
		uid, err = strconv.Atoi(u.Uid)
		if err != nil {
			return errors.Wrapf(err, errors.ErrNodeUser, "non-numeric uid for %q", userName)
		}
	}

	gid := -1
	if group != "" {
		g, err := user.LookupGroup(group)
		if err != nil {
			return errors.Wrapf(err, errors.ErrNodeUser, "looking up group %q", group)
		}
		gid, err = strconv.Atoi(g.Gid)
		if err != nil {
			return errors.Wrapf(err, errors.ErrNodeUser, "non-numeric gid for %q", group)
		}
	}

	return os.Chown(path, uid, gid)
}

// Env reads an environment variable
func (l *Local) Env(name string) (string, error) {
	return os.Getenv(name), nil
}

// BinaryExists reports whether a binary is on PATH
func (l *Local) BinaryExists(name string) (bool, error) {
	_, err := exec.LookPath(name)
	return err == nil, nil
}

// ForUser returns a node handle bound to another user. The configuration
// snapshot is shared; the working directory is not.
func (l *Local) ForUser(userName string) (types.Node, error) {
	if userName == "" {
		return nil, errors.New(errors.ErrNodeUser, "user cannot be empty")
	}
	return &Local{user: userName, cfg: l.cfg, sink: l.sink}, nil
}

// SetCwd overrides the working directory and returns the previous one
func (l *Local) SetCwd(path string) (string, error) {
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(l.cwd, path)
	}
	prev := l.cwd
	l.cwd = path
	return prev, nil
}
