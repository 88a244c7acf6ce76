package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/rigup/pkg/config"
	"github.com/arthur-debert/rigup/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "motd.tmpl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRenderToTempfile(t *testing.T) {
	path := writeTemplate(t, "host {{.hostname}} port {{.port}}\n")
	base := config.Config{
		"hostname": config.String("web01"),
		"port":     config.Int(80),
	}

	out, err := New(path, base).RenderToTempfile(nil)
	require.NoError(t, err)

	rendered, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "host web01 port 80\n", string(rendered))
}

func TestRenderVarsOverrideBase(t *testing.T) {
	path := writeTemplate(t, "{{.hostname}}")
	base := config.Config{"hostname": config.String("base")}
	vars := config.Config{"hostname": config.String("explicit")}

	out, err := New(path, base).RenderToTempfile(vars)
	require.NoError(t, err)

	rendered, _ := os.ReadFile(out)
	assert.Equal(t, "explicit", string(rendered))

	// the caller's vars are not mutated by the merge
	v, _ := vars.GetString("hostname")
	assert.Equal(t, "explicit", v)
	assert.Len(t, vars, 1)
}

func TestRenderIsContentKeyed(t *testing.T) {
	path := writeTemplate(t, "static content")

	first, err := New(path, nil).RenderToTempfile(nil)
	require.NoError(t, err)
	second, err := New(path, nil).RenderToTempfile(nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRenderErrors(t *testing.T) {
	t.Run("missing template file", func(t *testing.T) {
		_, err := New("/does/not/exist.tmpl", nil).RenderToTempfile(nil)
		assert.True(t, errors.IsErrorCode(err, errors.ErrTemplateRender))
	})

	t.Run("missing variable", func(t *testing.T) {
		path := writeTemplate(t, "{{.absent}}")
		_, err := New(path, config.New()).RenderToTempfile(nil)
		assert.True(t, errors.IsErrorCode(err, errors.ErrTemplateRender))
	})

	t.Run("bad syntax", func(t *testing.T) {
		path := writeTemplate(t, "{{.unclosed")
		_, err := New(path, nil).RenderToTempfile(nil)
		assert.True(t, errors.IsErrorCode(err, errors.ErrTemplateRender))
	})
}
