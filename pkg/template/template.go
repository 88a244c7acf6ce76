// Package template renders controller-side template files into tempfiles
// keyed by a content hash of the rendered bytes, so repeated renders of the
// same content reuse one file and transfers stay idempotent.
package template

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/arthur-debert/rigup/pkg/config"
	"github.com/arthur-debert/rigup/pkg/errors"
	"github.com/arthur-debert/rigup/pkg/logging"
)

// File renders a single template file with config-derived variables.
// Implements types.Renderer.
type File struct {
	path string
	base config.Config
}

// New creates a renderer for the template at path. The base config is bound
// in by the execution context; explicit render variables take precedence
// over it.
func New(path string, base config.Config) *File {
	return &File{path: path, base: base}
}

// Path returns the template's source path
func (f *File) Path() string {
	return f.path
}

// RenderToTempfile renders the template and writes the result to a
// tempfile named by the sha256 of the rendered bytes. Rendering the same
// content twice returns the same path without rewriting.
func (f *File) RenderToTempfile(vars config.Config) (string, error) {
	logger := logging.GetLogger("template")

	raw, err := os.ReadFile(f.path)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrTemplateRender, "reading template %s", f.path)
	}

	tmpl, err := template.New(filepath.Base(f.path)).Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrTemplateRender, "parsing template %s", f.path)
	}

	merged := vars
	if merged == nil {
		merged = config.New()
	} else {
		merged = merged.Clone()
	}
	merged.Merge(f.base)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, merged.ToMap()); err != nil {
		return "", errors.Wrapf(err, errors.ErrTemplateRender, "rendering template %s", f.path)
	}

	sum := sha256.Sum256(buf.Bytes())
	name := fmt.Sprintf("rigup-%s%s", hex.EncodeToString(sum[:8]), filepath.Ext(f.path))
	out := filepath.Join(os.TempDir(), name)

	if _, err := os.Stat(out); err == nil {
		logger.Debug().Str("path", out).Msg("rendered content already on disk")
		return out, nil
	}

	if err := os.WriteFile(out, buf.Bytes(), 0600); err != nil {
		return "", errors.Wrapf(err, errors.ErrTemplateRender, "writing rendered file %s", out)
	}

	logger.Debug().Str("template", f.path).Str("path", out).Msg("rendered template")
	return out, nil
}
