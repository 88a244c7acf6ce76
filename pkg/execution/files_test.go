package execution

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/rigup/pkg/errors"
	"github.com/arthur-debert/rigup/pkg/logging"
	"github.com/arthur-debert/rigup/pkg/node"
	"github.com/arthur-debert/rigup/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLocalCall builds a call over a local node, so "remote" file handles
// operate on this machine's filesystem through real shell primitives.
func newLocalCall(t *testing.T) *call {
	t.Helper()
	n := node.NewLocal("", nil, logging.NewRecorder())
	ctx := New(n, registry.NewIndex())
	return &call{ctx: ctx}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFileMatches(t *testing.T) {
	dir := t.TempDir()
	c := newLocalCall(t)

	a := writeFile(t, dir, "a", "same bytes")
	b := writeFile(t, dir, "b", "same bytes")
	d := writeFile(t, dir, "d", "different")

	match, err := c.Local(a).Matches(c.Remote(b))
	require.NoError(t, err)
	assert.True(t, match)

	match, err = c.Local(a).Matches(c.Remote(d))
	require.NoError(t, err)
	assert.False(t, match)

	// a missing file on either side is a mismatch, not an error
	match, err = c.Local(a).Matches(c.Remote(filepath.Join(dir, "absent")))
	require.NoError(t, err)
	assert.False(t, match)

	match, err = c.Local(filepath.Join(dir, "absent")).Matches(c.Remote(b))
	require.NoError(t, err)
	assert.False(t, match)
}

func TestFileCopyToAndDelete(t *testing.T) {
	dir := t.TempDir()
	c := newLocalCall(t)

	src := writeFile(t, dir, "src", "payload")

	t.Run("local to remote", func(t *testing.T) {
		dst := filepath.Join(dir, "uploaded")
		require.NoError(t, c.Local(src).CopyTo(c.Remote(dst)))
		data, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
	})

	t.Run("remote to local", func(t *testing.T) {
		dst := filepath.Join(dir, "downloaded")
		require.NoError(t, c.Remote(src).CopyTo(c.Local(dst)))
		data, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
	})

	t.Run("remote to remote", func(t *testing.T) {
		dst := filepath.Join(dir, "copied")
		require.NoError(t, c.Remote(src).CopyTo(c.Remote(dst)))
		data, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
	})

	t.Run("delete", func(t *testing.T) {
		victim := writeFile(t, dir, "victim", "x")
		require.NoError(t, c.Remote(victim).Delete())
		_, err := os.Stat(victim)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("local to local failure is a transfer error", func(t *testing.T) {
		// a directory opens fine but can't be read as a byte stream, so
		// the copy itself fails
		err := c.Local(dir).CopyTo(c.Local(filepath.Join(dir, "out")))
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrTransfer))
	})
}

func TestRemotePermissions(t *testing.T) {
	dir := t.TempDir()
	c := newLocalCall(t)

	path := writeFile(t, dir, "conf", "x")
	require.NoError(t, os.Chmod(path, 0640))

	mode, err := c.Remote(path).Permissions()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), mode.Perm())
}

func TestRemoteOwner(t *testing.T) {
	dir := t.TempDir()
	c := newLocalCall(t)

	path := writeFile(t, dir, "conf", "x")
	user, group, err := c.Remote(path).Owner()
	require.NoError(t, err)
	assert.NotEmpty(t, user)
	assert.NotEmpty(t, group)

	// local and remote handles agree about a file on the same machine
	lUser, lGroup, err := c.Local(path).Owner()
	require.NoError(t, err)
	assert.Equal(t, user, lUser)
	assert.Equal(t, group, lGroup)
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "'/etc/app.conf'", ShellQuote("/etc/app.conf"))
	assert.Equal(t, `'it'\''s'`, ShellQuote("it's"))
}
