package node

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/rigup/pkg/logging"
	"github.com/arthur-debert/rigup/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRun(t *testing.T) {
	rec := logging.NewRecorder()
	n := NewLocal("", nil, rec)

	out, err := n.Run("echo hello", types.RunOpts{})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)

	// command text and output both reach the sink
	assert.Contains(t, rec.Messages(logging.EntryLog), "echo hello")
	assert.Contains(t, rec.Messages(logging.EntryStdout), "hello\n")
}

func TestLocalRunFailurePassesThrough(t *testing.T) {
	n := NewLocal("", nil, logging.NewRecorder())
	_, err := n.Run("exit 3", types.RunOpts{})
	assert.Error(t, err)
}

func TestLocalRunOpts(t *testing.T) {
	n := NewLocal("", nil, logging.NewRecorder())

	out, err := n.Run("echo $RIGUP_TEST_VAR", types.RunOpts{Env: map[string]string{"RIGUP_TEST_VAR": "set"}})
	require.NoError(t, err)
	assert.Equal(t, "set\n", out)

	out, err = n.Run("cat", types.RunOpts{Stdin: "piped"})
	require.NoError(t, err)
	assert.Equal(t, "piped", out)
}

func TestLocalFileOperations(t *testing.T) {
	dir := t.TempDir()
	n := NewLocal("", nil, logging.NewRecorder())

	src := filepath.Join(dir, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("content"), 0644))

	uploaded := filepath.Join(dir, "uploaded.txt")
	require.NoError(t, n.Upload(src, uploaded))
	data, err := os.ReadFile(uploaded)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	copied := filepath.Join(dir, "copied.txt")
	require.NoError(t, n.Copy(uploaded, copied))

	moved := filepath.Join(dir, "moved.txt")
	require.NoError(t, n.Move(copied, moved))
	_, err = os.Stat(copied)
	assert.True(t, os.IsNotExist(err))

	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, n.Mkdir(sub))
	info, err := os.Stat(sub)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, n.SetPermissions(moved, 0600))
	info, err = os.Stat(moved)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, n.Delete(moved))
	_, err = os.Stat(moved)
	assert.True(t, os.IsNotExist(err))

	// upload from a missing source is a transfer error
	assert.Error(t, n.Upload(filepath.Join(dir, "absent"), uploaded))
}

func TestLocalTransfersReturnUntypedNil(t *testing.T) {
	dir := t.TempDir()
	n := NewLocal("", nil, logging.NewRecorder())

	src := filepath.Join(dir, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("content"), 0644))

	// success must be the nil interface, not a typed-nil wrapper that
	// compares non-nil to callers
	if err := n.Upload(src, filepath.Join(dir, "up.txt")); err != nil {
		t.Fatalf("Upload returned non-nil error on success: %#v", err)
	}
	if err := n.Download(src, filepath.Join(dir, "down.txt")); err != nil {
		t.Fatalf("Download returned non-nil error on success: %#v", err)
	}
	if err := n.Copy(src, filepath.Join(dir, "cp.txt")); err != nil {
		t.Fatalf("Copy returned non-nil error on success: %#v", err)
	}
}

func TestLocalCwd(t *testing.T) {
	dir := t.TempDir()
	n := NewLocal("", nil, logging.NewRecorder())

	prev, err := n.SetCwd(dir)
	require.NoError(t, err)
	assert.Equal(t, "", prev)

	out, err := n.Run("pwd", types.RunOpts{})
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Base(dir))

	prev, err = n.SetCwd(prev)
	require.NoError(t, err)
	assert.Equal(t, dir, prev)
}

func TestLocalQueries(t *testing.T) {
	n := NewLocal("", nil, logging.NewRecorder())

	exists, err := n.BinaryExists("sh")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = n.BinaryExists("definitely-not-a-binary-rigup")
	require.NoError(t, err)
	assert.False(t, exists)

	t.Setenv("RIGUP_ENV_CHECK", "value")
	v, err := n.Env("RIGUP_ENV_CHECK")
	require.NoError(t, err)
	assert.Equal(t, "value", v)
}

func TestLocalForUser(t *testing.T) {
	n := NewLocal("", nil, logging.NewRecorder())
	forked, err := n.ForUser("svc")
	require.NoError(t, err)
	assert.Equal(t, "svc", forked.User())

	// config snapshot is shared by reference
	assert.Equal(t, n.Config().ToMap(), forked.Config().ToMap())

	_, err = n.ForUser("")
	assert.Error(t, err)
}
