package execution

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/arthur-debert/rigup/pkg/errors"
	"github.com/arthur-debert/rigup/pkg/types"
)

// localFile is a controller-side file handle
type localFile struct {
	path string
}

// remoteFile is a node-side file handle; all operations go through the
// bound node's primitives
type remoteFile struct {
	path string
	node types.Node
}

// ShellQuote single-quotes a string for safe interpolation into node
// shell commands
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func (f *localFile) Path() string { return f.path }

func (f *localFile) CopyTo(other types.FileHandle) error {
	switch dst := other.(type) {
	case *remoteFile:
		return dst.node.Upload(f.path, dst.path)
	case *localFile:
		src, err := os.Open(f.path)
		if err != nil {
			return errors.Wrapf(err, errors.ErrTransfer, "opening %s", f.path)
		}
		defer func() { _ = src.Close() }()
		out, err := os.Create(dst.path)
		if err != nil {
			return errors.Wrapf(err, errors.ErrTransfer, "creating %s", dst.path)
		}
		defer func() { _ = out.Close() }()
		if _, err := io.Copy(out, src); err != nil {
			return errors.Wrapf(err, errors.ErrTransfer, "copying %s to %s", f.path, dst.path)
		}
		return nil
	default:
		return errors.Newf(errors.ErrInvalidInput, "unsupported copy target %T", other)
	}
}

func (f *localFile) Delete() error {
	return os.Remove(f.path)
}

func (f *localFile) Checksum() (string, bool, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	defer func() { _ = file.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", false, err
	}
	return hex.EncodeToString(h.Sum(nil)), true, nil
}

func (f *localFile) Matches(other types.FileHandle) (bool, error) {
	return checksumsMatch(f, other)
}

func (f *localFile) Permissions() (fs.FileMode, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return 0, err
	}
	return info.Mode().Perm(), nil
}

func (f *localFile) Owner() (string, string, error) {
	// stat is POSIX; local files only need owner lookups on unix nodes
	out, err := statField(f.path, "%U %G")
	if err != nil {
		return "", "", err
	}
	parts := strings.Fields(out)
	if len(parts) != 2 {
		return "", "", errors.Newf(errors.ErrInternal, "unexpected stat output %q", out)
	}
	return parts[0], parts[1], nil
}

func statField(path, format string) (string, error) {
	cmd := exec.Command("stat", "-c", format, path)
	out, err := cmd.Output()
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrNodeCommand, "stat %s", path)
	}
	return strings.TrimSpace(string(out)), nil
}

func (f *remoteFile) Path() string { return f.path }

func (f *remoteFile) CopyTo(other types.FileHandle) error {
	switch dst := other.(type) {
	case *remoteFile:
		return f.node.Copy(f.path, dst.path)
	case *localFile:
		return f.node.Download(f.path, dst.path)
	default:
		return errors.Newf(errors.ErrInvalidInput, "unsupported copy target %T", other)
	}
}

func (f *remoteFile) Delete() error {
	return f.node.Delete(f.path)
}

// Checksum hashes the remote file through the node. A failing stat/hash is
// treated as an absent file (ok=false), keeping validation a boolean
// outcome rather than a failure.
func (f *remoteFile) Checksum() (string, bool, error) {
	out, err := f.node.Run("sha256sum -- "+ShellQuote(f.path), types.RunOpts{})
	if err != nil {
		return "", false, nil
	}
	fields := strings.Fields(out)
	if len(fields) < 1 || len(fields[0]) != sha256.Size*2 {
		return "", false, nil
	}
	return fields[0], true, nil
}

func (f *remoteFile) Matches(other types.FileHandle) (bool, error) {
	return checksumsMatch(f, other)
}

func (f *remoteFile) Permissions() (fs.FileMode, error) {
	out, err := f.node.Run("stat -c '%a' "+ShellQuote(f.path), types.RunOpts{})
	if err != nil {
		return 0, err
	}
	bits, err := strconv.ParseUint(strings.TrimSpace(out), 8, 32)
	if err != nil {
		return 0, errors.Wrapf(err, errors.ErrInternal, "parsing permission bits %q", out)
	}
	return fs.FileMode(bits), nil
}

func (f *remoteFile) Owner() (string, string, error) {
	out, err := f.node.Run("stat -c '%U %G' "+ShellQuote(f.path), types.RunOpts{})
	if err != nil {
		return "", "", err
	}
	parts := strings.Fields(out)
	if len(parts) != 2 {
		return "", "", errors.Newf(errors.ErrInternal, "unexpected stat output %q", out)
	}
	return parts[0], parts[1], nil
}

// checksumsMatch compares two handles by content hash. A missing file on
// either side is a mismatch, not an error.
func checksumsMatch(a, b types.FileHandle) (bool, error) {
	sumA, okA, err := a.Checksum()
	if err != nil {
		return false, err
	}
	sumB, okB, err := b.Checksum()
	if err != nil {
		return false, err
	}
	if !okA || !okB {
		return false, nil
	}
	return sumA == sumB, nil
}
