// Package fileaction generates the two dependent, idempotent actions a
// declarative file spec expands into: a content action (transfer into
// place) and a permissions action (ownership and mode enforcement). Both
// register as triggerable dependents of the declaring package, so a
// package action can fan out to them per behavior: applying applies them,
// validating byte-compares and checks only the specified attributes.
package fileaction

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/arthur-debert/rigup/pkg/errors"
	"github.com/arthur-debert/rigup/pkg/execution"
	"github.com/arthur-debert/rigup/pkg/types"
)

// Spec declares a file to put on the node. Exactly one of Source (a
// controller-side payload path) or Template (a controller-side template
// rendered against the context config) must be set, and Destination is
// required. Name overrides the generated action names and is required when
// Destination is not a literal.
type Spec struct {
	Source      Field
	Template    Field
	Destination Field

	// Name overrides the deterministic action naming
	Name Field

	// Permissions is an octal mode string ("644" or "0644")
	Permissions Field

	// User and Group own the destination; Group defaults to User
	User  Field
	Group Field

	// CreateDir, when truthy, creates the destination's parent before the
	// transfer; a value that is neither a boolean word nor empty is taken
	// as the literal directory to create
	CreateDir Field

	// OnApply runs against the context after a successful apply
	OnApply func(types.Call) error
}

// FileAction is a validated spec plus its generated action names
type FileAction struct {
	spec        Spec
	contentName string
	permsName   string
}

// New validates a spec. Malformed specs fail here, at definition time,
// with a CONFIGURATION error; nothing is registered for them.
func New(spec Spec) (*FileAction, error) {
	if !spec.Source.IsSet() && !spec.Template.IsSet() {
		return nil, errors.New(errors.ErrConfiguration, "file action requires source or template")
	}
	if spec.Source.IsSet() && spec.Template.IsSet() {
		return nil, errors.New(errors.ErrConfiguration, "file action takes source or template, not both")
	}
	if !spec.Destination.IsSet() {
		return nil, errors.New(errors.ErrConfiguration, "file action requires a destination")
	}

	base, ok := spec.Name.Literal()
	if !ok {
		if spec.Name.IsSet() {
			return nil, errors.New(errors.ErrConfiguration, "file action name must be a literal")
		}
		dest, isLit := spec.Destination.Literal()
		if !isLit {
			return nil, errors.New(errors.ErrConfiguration,
				"file action needs an explicit name when its destination is not a literal")
		}
		base = sanitizeName(dest)
	}

	fa := &FileAction{
		spec:        spec,
		contentName: "file-" + base,
	}
	if spec.Permissions.IsSet() || spec.User.IsSet() || spec.Group.IsSet() {
		fa.permsName = "perms-" + base
	}
	return fa, nil
}

func sanitizeName(path string) string {
	return strings.ReplaceAll(strings.Trim(path, "/"), "/", "-")
}

// ContentAction returns the name of the generated content action
func (fa *FileAction) ContentAction() string { return fa.contentName }

// PermissionsAction returns the name of the generated permissions action,
// empty when the spec supplied none of permissions/user/group
func (fa *FileAction) PermissionsAction() string { return fa.permsName }

// Register adds the generated actions to the declaring package
func (fa *FileAction) Register(pkg *types.Package) error {
	content := &types.Action{
		Name:     fa.contentName,
		Apply:    fa.applyContent,
		Revert:   fa.revertContent,
		Validate: fa.validateContent,
	}
	if err := pkg.Add(content); err != nil {
		return err
	}

	if fa.permsName == "" {
		return nil
	}
	perms := &types.Action{
		Name:     fa.permsName,
		Apply:    fa.applyPermissions,
		Validate: fa.validatePermissions,
	}
	return pkg.Add(perms)
}

// owner resolves the user and group fields, defaulting group to user
func (fa *FileAction) owner(call types.Call) (string, string, error) {
	user, err := fa.spec.User.Resolve(call)
	if err != nil {
		return "", "", err
	}
	group, err := fa.spec.Group.Resolve(call)
	if err != nil {
		return "", "", err
	}
	if group == "" {
		group = user
	}
	return user, group, nil
}

// createDirTarget decides which directory apply must create first: none,
// the destination's parent (boolean truthy), or a literal path
func (fa *FileAction) createDirTarget(call types.Call, dest string) (string, error) {
	if !fa.spec.CreateDir.IsSet() {
		return "", nil
	}
	v, err := fa.spec.CreateDir.Resolve(call)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(v) {
	case "", "false", "0", "no":
		return "", nil
	case "true", "1", "yes":
		return filepath.Dir(dest), nil
	default:
		return v, nil
	}
}

// payload resolves the controller-side file to transfer: the source path
// itself, or the template rendered into a content-hash-keyed tempfile
func (fa *FileAction) payload(call types.Call) (string, error) {
	if fa.spec.Source.IsSet() {
		return fa.spec.Source.Resolve(call)
	}
	tmplPath, err := fa.spec.Template.Resolve(call)
	if err != nil {
		return "", err
	}
	return call.Template(tmplPath).RenderToTempfile(nil)
}

// remoteTempPath is stable per destination, so a re-run overwrites its own
// leftovers instead of accumulating files
func remoteTempPath(dest string) string {
	sum := sha256.Sum256([]byte(dest))
	return filepath.Join("/tmp", "rigup-"+hex.EncodeToString(sum[:8]))
}

func (fa *FileAction) applyContent(call types.Call) (interface{}, error) {
	dest, err := fa.spec.Destination.Resolve(call)
	if err != nil {
		return nil, err
	}

	dir, err := fa.createDirTarget(call, dest)
	if err != nil {
		return nil, err
	}
	if dir != "" {
		if _, err := call.Sudo("mkdir -p "+execution.ShellQuote(dir), types.RunOpts{}); err != nil {
			return nil, err
		}
		user, group, err := fa.owner(call)
		if err != nil {
			return nil, err
		}
		if user != "" {
			chown := fmt.Sprintf("chown %s:%s %s", user, group, execution.ShellQuote(dir))
			if _, err := call.Sudo(chown, types.RunOpts{}); err != nil {
				return nil, err
			}
		}
	}

	payload, err := fa.payload(call)
	if err != nil {
		return nil, err
	}

	tmp := remoteTempPath(dest)
	if err := call.Upload(payload, tmp); err != nil {
		return nil, err
	}

	mv := fmt.Sprintf("mv %s %s", execution.ShellQuote(tmp), execution.ShellQuote(dest))
	if _, err := call.Sudo(mv, types.RunOpts{}); err != nil {
		return nil, err
	}

	if fa.spec.OnApply != nil {
		if err := fa.spec.OnApply(call); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (fa *FileAction) revertContent(call types.Call) (interface{}, error) {
	dest, err := fa.spec.Destination.Resolve(call)
	if err != nil {
		return nil, err
	}
	_, err = call.Sudo("rm -f "+execution.ShellQuote(dest), types.RunOpts{})
	return nil, err
}

func (fa *FileAction) validateContent(call types.Call) (interface{}, error) {
	dest, err := fa.spec.Destination.Resolve(call)
	if err != nil {
		return nil, err
	}
	payload, err := fa.payload(call)
	if err != nil {
		return nil, err
	}
	return call.Local(payload).Matches(call.Remote(dest))
}

func (fa *FileAction) applyPermissions(call types.Call) (interface{}, error) {
	dest, err := fa.spec.Destination.Resolve(call)
	if err != nil {
		return nil, err
	}

	user, group, err := fa.owner(call)
	if err != nil {
		return nil, err
	}
	if user != "" || group != "" {
		if err := call.Node().SetOwner(dest, user, group); err != nil {
			return nil, err
		}
	}

	if fa.spec.Permissions.IsSet() {
		mode, err := fa.mode(call)
		if err != nil {
			return nil, err
		}
		if err := call.Node().SetPermissions(dest, mode); err != nil {
			return nil, err
		}
	}

	if fa.spec.OnApply != nil {
		if err := fa.spec.OnApply(call); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (fa *FileAction) mode(call types.Call) (fs.FileMode, error) {
	raw, err := fa.spec.Permissions.Resolve(call)
	if err != nil {
		return 0, err
	}
	bits, err := strconv.ParseUint(raw, 8, 32)
	if err != nil {
		return 0, errors.Wrapf(err, errors.ErrConfiguration, "invalid permission bits %q", raw)
	}
	return fs.FileMode(bits), nil
}

// validatePermissions compares only the fields the spec supplied. It is
// true when all of them match the remote file's actual values.
func (fa *FileAction) validatePermissions(call types.Call) (interface{}, error) {
	dest, err := fa.spec.Destination.Resolve(call)
	if err != nil {
		return nil, err
	}
	remote := call.Remote(dest)

	if fa.spec.Permissions.IsSet() {
		want, err := fa.mode(call)
		if err != nil {
			return nil, err
		}
		actual, err := remote.Permissions()
		if err != nil {
			return false, nil
		}
		if actual.Perm() != want.Perm() {
			return false, nil
		}
	}

	if fa.spec.User.IsSet() || fa.spec.Group.IsSet() {
		actualUser, actualGroup, err := remote.Owner()
		if err != nil {
			return false, nil
		}
		if fa.spec.User.IsSet() {
			want, err := fa.spec.User.Resolve(call)
			if err != nil {
				return nil, err
			}
			if actualUser != want {
				return false, nil
			}
		}
		if fa.spec.Group.IsSet() {
			want, err := fa.spec.Group.Resolve(call)
			if err != nil {
				return nil, err
			}
			if actualGroup != want {
				return false, nil
			}
		}
	}

	return true, nil
}
