// Package manifest loads declarative package definitions from TOML or YAML
// files: the package name, its default configuration, and file directives
// that expand into generated content/permissions actions. Loading fails
// fast: a malformed file directive is fatal to the whole load, nothing
// from that manifest is registered.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/mitchellh/mapstructure"

	"github.com/arthur-debert/rigup/pkg/config"
	"github.com/arthur-debert/rigup/pkg/errors"
	"github.com/arthur-debert/rigup/pkg/fileaction"
	"github.com/arthur-debert/rigup/pkg/logging"
	"github.com/arthur-debert/rigup/pkg/registry"
	"github.com/arthur-debert/rigup/pkg/types"
)

// fileDirective is the wire shape of one [[file]] entry
type fileDirective struct {
	Source      string      `mapstructure:"source"`
	Template    string      `mapstructure:"template"`
	Destination string      `mapstructure:"destination"`
	Name        string      `mapstructure:"name"`
	Permissions string      `mapstructure:"permissions"`
	User        string      `mapstructure:"user"`
	Group       string      `mapstructure:"group"`
	CreateDir   interface{} `mapstructure:"create_dir"`
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	default:
		return nil, errors.Newf(errors.ErrManifestLoad, "unsupported manifest extension %q", filepath.Ext(path))
	}
}

// Load reads one manifest file into a package. Relative source/template
// paths in file directives resolve against the manifest's directory.
func Load(path string) (*types.Package, error) {
	logger := logging.GetLogger("manifest")

	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, errors.Wrapf(err, errors.ErrManifestParse, "parsing manifest %s", path)
	}

	name := k.String("name")
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	defaults := config.New()
	if raw := k.Cut("config").Raw(); len(raw) > 0 {
		defaults, err = config.FromMap(raw)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrManifestParse, "config section of %s", path)
		}
	}

	pkg := types.NewPackage(name, defaults)

	var directives []fileDirective
	if raw := k.Get("file"); raw != nil {
		if err := mapstructure.Decode(raw, &directives); err != nil {
			return nil, errors.Wrapf(err, errors.ErrManifestParse, "file directives of %s", path)
		}
	}

	baseDir := filepath.Dir(path)
	for i, directive := range directives {
		if err := registerDirective(pkg, directive, baseDir); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfiguration, "file directive %d of %s", i, path)
		}
	}

	logger.Debug().Str("package", name).Str("path", path).
		Int("actions", len(pkg.ActionNames())).Msg("loaded manifest")
	return pkg, nil
}

// registerDirective expands one directive into generated file actions on
// the package
func registerDirective(pkg *types.Package, d fileDirective, baseDir string) error {
	spec := fileaction.Spec{}

	if d.Source != "" {
		spec.Source = fileaction.Lit(resolvePath(baseDir, d.Source))
	}
	if d.Template != "" {
		spec.Template = fileaction.Lit(resolvePath(baseDir, d.Template))
	}
	if d.Destination != "" {
		spec.Destination = fileaction.Lit(d.Destination)
	}
	if d.Name != "" {
		spec.Name = fileaction.Lit(d.Name)
	}
	if d.Permissions != "" {
		spec.Permissions = fileaction.Lit(d.Permissions)
	}
	if d.User != "" {
		spec.User = fileaction.Lit(d.User)
	}
	if d.Group != "" {
		spec.Group = fileaction.Lit(d.Group)
	}

	switch v := d.CreateDir.(type) {
	case nil:
	case bool:
		spec.CreateDir = fileaction.Lit(fmt.Sprintf("%t", v))
	case string:
		spec.CreateDir = fileaction.Lit(v)
	default:
		return errors.Newf(errors.ErrConfiguration, "create_dir must be a boolean or a path, got %T", v)
	}

	fa, err := fileaction.New(spec)
	if err != nil {
		return err
	}
	return fa.Register(pkg)
}

func resolvePath(baseDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// LoadDir loads every manifest in a directory (non-recursive) into a fresh
// index
func LoadDir(dir string) (*registry.Index, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrManifestLoad, "reading manifest directory %s", dir)
	}

	idx := registry.NewIndex()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".toml" && ext != ".yaml" && ext != ".yml" {
			continue
		}
		pkg, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if err := idx.Register(pkg); err != nil {
			return nil, err
		}
	}
	return idx, nil
}
