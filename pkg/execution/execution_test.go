package execution

import (
	"fmt"
	"testing"

	"github.com/arthur-debert/rigup/pkg/config"
	"github.com/arthur-debert/rigup/pkg/errors"
	"github.com/arthur-debert/rigup/pkg/logging"
	"github.com/arthur-debert/rigup/pkg/node"
	"github.com/arthur-debert/rigup/pkg/registry"
	"github.com/arthur-debert/rigup/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T, idx types.Index, cfg config.Config) (*Context, *node.Mock, *logging.Recorder) {
	t.Helper()
	rec := logging.NewRecorder()
	ctx, mock := NewMock("deploy", cfg, idx, rec)
	return ctx, mock, rec
}

func mustRegister(t *testing.T, idx *registry.Index, p *types.Package) {
	t.Helper()
	require.NoError(t, idx.Register(p))
}

func TestSplitRef(t *testing.T) {
	tests := []struct {
		ref     string
		action  string
		pkgName string
	}{
		{"install", "install", ""},
		{"install:web", "install", "web"},
		{"a:b:c", "a:b", "c"}, // split once, from the right
		{"install:", "install", ""},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			action, pkgName := SplitRef(tt.ref)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.pkgName, pkgName)
		})
	}
}

func TestTriggerResolvesLikeDirectLookup(t *testing.T) {
	idx := registry.NewIndex()
	web := types.NewPackage("web", nil)
	ran := 0
	require.NoError(t, web.Add(&types.Action{
		Name: "install",
		Apply: func(call types.Call) (interface{}, error) {
			ran++
			return "installed", nil
		},
	}))
	mustRegister(t, idx, web)

	ctx, _, _ := newTestContext(t, idx, nil)

	out, err := ctx.Execute("install:web", types.BehaviorApply)
	require.NoError(t, err)
	assert.Equal(t, "installed", out)
	assert.Equal(t, 1, ran)
}

func TestTriggerBareNameUsesActivePackage(t *testing.T) {
	idx := registry.NewIndex()
	web := types.NewPackage("web", nil)
	require.NoError(t, web.Add(&types.Action{
		Name: "configure",
		Apply: func(call types.Call) (interface{}, error) {
			return "configured", nil
		},
	}))
	require.NoError(t, web.Add(&types.Action{
		Name: "install",
		Apply: func(call types.Call) (interface{}, error) {
			// bare reference resolves against the active package
			return call.Trigger("configure")
		},
	}))
	mustRegister(t, idx, web)

	ctx, _, _ := newTestContext(t, idx, nil)
	out, err := ctx.Execute("install:web", types.BehaviorApply)
	require.NoError(t, err)
	assert.Equal(t, "configured", out)
}

func TestTriggerMissingAction(t *testing.T) {
	idx := registry.NewIndex()
	mustRegister(t, idx, types.NewPackage("web", nil))
	ctx, _, _ := newTestContext(t, idx, nil)

	tests := []struct {
		name string
		ref  string
	}{
		{"unknown package", "install:nope"},
		{"unknown action in known package", "install:web"},
		{"bare name with no active package", "install"},
		{"empty package name", "install:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ctx.Trigger(tt.ref)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrMissingAction))
			// the error carries exactly the reference it was given
			assert.Equal(t, tt.ref, errors.GetErrorDetails(err)["ref"])
		})
	}
}

func TestTriggerMergesDefaultsFillMissing(t *testing.T) {
	idx := registry.NewIndex()
	web := types.NewPackage("web", config.Config{
		"greeting": config.String("from-defaults"),
		"port":     config.Int(80),
	})
	require.NoError(t, web.Add(&types.Action{
		Name: "install",
		Apply: func(call types.Call) (interface{}, error) {
			g, _ := call.Config().GetString("greeting")
			p, _ := call.Config().GetString("port")
			return g + ":" + p, nil
		},
	}))
	mustRegister(t, idx, web)

	// the context's pre-existing value wins over the package default
	ctx, _, _ := newTestContext(t, idx, config.Config{
		"greeting": config.String("from-context"),
	})

	out, err := ctx.Execute("install:web", types.BehaviorApply)
	require.NoError(t, err)
	assert.Equal(t, "from-context:80", out)
}

func TestNestedTriggerConfigPrecedence(t *testing.T) {
	idx := registry.NewIndex()

	inner := types.NewPackage("inner", config.Config{
		"shared":     config.String("inner-default"),
		"inner_only": config.String("inner-value"),
	})
	require.NoError(t, inner.Add(&types.Action{
		Name: "setup",
		Apply: func(call types.Call) (interface{}, error) {
			return nil, nil
		},
	}))

	outer := types.NewPackage("outer", config.Config{
		"shared": config.String("outer-default"),
	})
	require.NoError(t, outer.Add(&types.Action{
		Name: "install",
		Apply: func(call types.Call) (interface{}, error) {
			return call.Trigger("setup:inner")
		},
	}))

	mustRegister(t, idx, inner)
	mustRegister(t, idx, outer)

	ctx, _, _ := newTestContext(t, idx, nil)
	_, err := ctx.Execute("install:outer", types.BehaviorApply)
	require.NoError(t, err)

	// the earlier merge along the chain wins; the inner package only fills
	// what is still missing
	shared, _ := ctx.Config().GetString("shared")
	assert.Equal(t, "outer-default", shared)
	innerOnly, _ := ctx.Config().GetString("inner_only")
	assert.Equal(t, "inner-value", innerOnly)
}

func TestActivePackageRestoredAfterNestedFailure(t *testing.T) {
	idx := registry.NewIndex()

	inner := types.NewPackage("inner", nil)
	require.NoError(t, inner.Add(&types.Action{
		Name: "boom",
		Apply: func(call types.Call) (interface{}, error) {
			return nil, fmt.Errorf("inner exploded")
		},
	}))

	outer := types.NewPackage("outer", nil)
	mustRegister(t, idx, inner)
	mustRegister(t, idx, outer)

	ctx, _, rec := newTestContext(t, idx, nil)

	var activeDuringRun *types.Package
	require.NoError(t, outer.Add(&types.Action{
		Name: "install",
		Apply: func(call types.Call) (interface{}, error) {
			activeDuringRun = ctx.ActivePackage()
			return call.Trigger("boom:inner")
		},
	}))

	_, err := ctx.Execute("install:outer", types.BehaviorApply)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inner exploded")

	// the failure propagated only after full restoration
	assert.Nil(t, ctx.ActivePackage())
	assert.Equal(t, "", rec.Task())
	assert.Equal(t, outer, activeDuringRun)
}

func TestTaskNameSwappedDuringNestedTrigger(t *testing.T) {
	idx := registry.NewIndex()

	inner := types.NewPackage("inner", nil)
	outer := types.NewPackage("outer", nil)
	mustRegister(t, idx, inner)
	mustRegister(t, idx, outer)

	ctx, _, rec := newTestContext(t, idx, nil)

	var innerTask, outerTaskAfter string
	require.NoError(t, inner.Add(&types.Action{
		Name: "setup",
		Apply: func(call types.Call) (interface{}, error) {
			innerTask = rec.Task()
			return nil, nil
		},
	}))
	require.NoError(t, outer.Add(&types.Action{
		Name: "install",
		Apply: func(call types.Call) (interface{}, error) {
			if _, err := call.Trigger("setup:inner"); err != nil {
				return nil, err
			}
			outerTaskAfter = rec.Task()
			return nil, nil
		},
	}))

	_, err := ctx.Execute("install:outer", types.BehaviorApply)
	require.NoError(t, err)

	// the inner call carried its own diagnostic name
	assert.Equal(t, "setup:inner", innerTask)
	// after the nested call returned, the outer name was restored
	assert.Equal(t, "install:outer", outerTaskAfter)
	// and after the whole run, the pre-run name
	assert.Equal(t, "", rec.Task())
}

func TestArgsForwarding(t *testing.T) {
	idx := registry.NewIndex()
	web := types.NewPackage("web", nil)
	require.NoError(t, web.Add(&types.Action{
		Name: "greet",
		Apply: func(call types.Call) (interface{}, error) {
			name, ok := call.Arg(0)
			require.True(t, ok)
			count, ok := call.Arg(1)
			require.True(t, ok)
			_, ok = call.Arg(2)
			assert.False(t, ok)
			assert.Len(t, call.Args(), 2)
			return fmt.Sprintf("%v/%v", name, count), nil
		},
	}))
	require.NoError(t, web.Add(&types.Action{
		Name: "noargs",
		Apply: func(call types.Call) (interface{}, error) {
			// zero-argument invocation mode: the body ignores Args
			assert.Empty(t, call.Args())
			return "plain", nil
		},
	}))
	mustRegister(t, idx, web)

	ctx, _, _ := newTestContext(t, idx, nil)

	out, err := ctx.Execute("greet:web", types.BehaviorApply, "alice", 7)
	require.NoError(t, err)
	assert.Equal(t, "alice/7", out)

	out, err = ctx.Execute("noargs:web", types.BehaviorApply)
	require.NoError(t, err)
	assert.Equal(t, "plain", out)
}

func TestBehaviorFlowsThroughTriggers(t *testing.T) {
	idx := registry.NewIndex()

	var validated bool
	dep := types.NewPackage("dep", nil)
	require.NoError(t, dep.Add(&types.Action{
		Name: "content",
		Apply: func(call types.Call) (interface{}, error) {
			t.Fatal("apply must not run during validate")
			return nil, nil
		},
		Validate: func(call types.Call) (interface{}, error) {
			validated = true
			return true, nil
		},
	}))

	top := types.NewPackage("top", nil)
	require.NoError(t, top.Add(&types.Action{
		Name: "all",
		Apply: func(call types.Call) (interface{}, error) {
			return call.Trigger("content:dep")
		},
		Validate: func(call types.Call) (interface{}, error) {
			return call.Trigger("content:dep")
		},
	}))

	mustRegister(t, idx, dep)
	mustRegister(t, idx, top)

	ctx, _, _ := newTestContext(t, idx, nil)
	out, err := ctx.Execute("all:top", types.BehaviorValidate)
	require.NoError(t, err)
	assert.Equal(t, true, out)
	assert.True(t, validated)
}

func TestMissingBehaviorIsNoOp(t *testing.T) {
	idx := registry.NewIndex()
	web := types.NewPackage("web", nil)
	require.NoError(t, web.Add(&types.Action{
		Name: "install",
		Apply: func(call types.Call) (interface{}, error) {
			return "applied", nil
		},
	}))
	mustRegister(t, idx, web)

	ctx, _, rec := newTestContext(t, idx, nil)
	out, err := ctx.Execute("install:web", types.BehaviorRevert)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Contains(t, rec.Messages(logging.EntryLog), "skip install:web: no revert behavior")
}

func TestAsSameUserSameContext(t *testing.T) {
	idx := registry.NewIndex()
	ctx, mock, _ := newTestContext(t, idx, config.Config{"k": config.String("v")})

	for _, user := range []string{"", mock.User()} {
		out, err := ctx.As(user, func(call types.Call) (interface{}, error) {
			assert.True(t, call.Node() == ctx.Node(), "same node handle")
			return "same", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "same", out)
	}
}

func TestAsDifferentUserForks(t *testing.T) {
	idx := registry.NewIndex()
	ctx, mock, rec := newTestContext(t, idx, nil)

	_, err := ctx.As("svc", func(call types.Call) (interface{}, error) {
		assert.Equal(t, "svc", call.Node().User())
		assert.False(t, call.Node() == ctx.Node(), "forked node handle")

		// config is shared by reference: writes inside the fork are
		// visible to the caller's context
		call.Config().Set("written_in_fork", config.String("yes"))

		// the fork's effects land in the shared mock journal
		_, runErr := call.Run("whoami", types.RunOpts{})
		return nil, runErr
	})
	require.NoError(t, err)

	v, ok := ctx.Config().GetString("written_in_fork")
	require.True(t, ok)
	assert.Equal(t, "yes", v)
	assert.Contains(t, mock.Journal(), "run[svc]: whoami")

	// the clone logged through the shared recorder
	assert.Contains(t, rec.Messages(logging.EntryMock), "run[svc]: whoami")
}

func TestInDirRestoresOnFailure(t *testing.T) {
	idx := registry.NewIndex()
	ctx, mock, _ := newTestContext(t, idx, nil)

	_, err := ctx.InDir("/srv/app", func() (interface{}, error) {
		prev, cwdErr := mock.SetCwd("/srv/app")
		require.NoError(t, cwdErr)
		assert.Equal(t, "/srv/app", prev)
		_, _ = mock.SetCwd(prev)
		return nil, fmt.Errorf("body failed")
	})
	require.Error(t, err)

	// previous (empty) working directory is back in place
	prev, cwdErr := mock.SetCwd("/probe")
	require.NoError(t, cwdErr)
	assert.Equal(t, "", prev)
}

func TestFieldFallback(t *testing.T) {
	idx := registry.NewIndex()
	ctx, _, _ := newTestContext(t, idx, config.Config{
		"app": config.Section(config.Config{"port": config.Int(8080)}),
	})

	v, err := ctx.Field("app.port")
	require.NoError(t, err)
	i, _ := v.AsInt()
	assert.Equal(t, int64(8080), i)

	_, err = ctx.Field("app.absent")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFieldNotFound))
	assert.Equal(t, "app.absent", errors.GetErrorDetails(err)["field"])
}

func TestRunLocalIsDiagnosticOnly(t *testing.T) {
	idx := registry.NewIndex()
	ctx, _, rec := newTestContext(t, idx, nil)

	ctx.RunLocal("echo to-stdout; echo to-stderr 1>&2; exit 9")

	assert.Equal(t, []string{"echo to-stdout; echo to-stderr 1>&2; exit 9"}, rec.Messages(logging.EntryLocal))
	assert.Equal(t, []string{"to-stdout\n"}, rec.Messages(logging.EntryStdout))
	assert.Equal(t, []string{"to-stderr\n"}, rec.Messages(logging.EntryStderr))
}

func TestMockScriptProducesOnlyLogEntries(t *testing.T) {
	idx := registry.NewIndex()
	web := types.NewPackage("web", nil)
	require.NoError(t, web.Add(&types.Action{
		Name: "everything",
		Apply: func(call types.Call) (interface{}, error) {
			out, err := call.Run("apt-get update", types.RunOpts{})
			require.NoError(t, err)
			assert.Equal(t, "", out)

			out, err = call.Sudo("make install", types.RunOpts{})
			require.NoError(t, err)
			assert.Equal(t, "", out)

			require.NoError(t, call.Upload("/local/a", "/remote/a"))
			require.NoError(t, call.Download("/remote/a", "/local/b"))
			require.NoError(t, call.Mkdir("/remote/dir"))
			require.NoError(t, call.Remove("/remote/dir"))
			require.NoError(t, call.Copy("/remote/a", "/remote/b"))
			require.NoError(t, call.Node().SetPermissions("/remote/b", 0640))
			require.NoError(t, call.Node().SetOwner("/remote/b", "svc", "svc"))
			return nil, nil
		},
	}))
	mustRegister(t, idx, web)

	ctx, mock, rec := newTestContext(t, idx, nil)
	_, err := ctx.Execute("everything:web", types.BehaviorApply)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"run[deploy]: apt-get update",
		"sudo[deploy]: make install",
		"upload /local/a -> /remote/a",
		"download /remote/a -> /local/b",
		"mkdir -p /remote/dir",
		"rm -rf /remote/dir",
		"cp /remote/a /remote/b",
		"chmod 640 /remote/b",
		"chown svc:svc /remote/b",
	}, mock.Journal())
	assert.Equal(t, mock.Journal(), rec.Messages(logging.EntryMock))
}
