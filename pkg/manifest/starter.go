package manifest

import (
	"github.com/pelletier/go-toml/v2"

	"github.com/arthur-debert/rigup/pkg/errors"
)

type starterFile struct {
	Source      string `toml:"source"`
	Destination string `toml:"destination"`
	Permissions string `toml:"permissions"`
	User        string `toml:"user"`
	CreateDir   bool   `toml:"create_dir"`
}

type starterManifest struct {
	Name   string                 `toml:"name"`
	Config map[string]interface{} `toml:"config"`
	File   []starterFile          `toml:"file"`
}

// Starter renders a minimal example manifest for a new package, ready to
// be edited
func Starter(name string) ([]byte, error) {
	doc := starterManifest{
		Name: name,
		Config: map[string]interface{}{
			"greeting": "hello from " + name,
		},
		File: []starterFile{
			{
				Source:      "files/example.conf",
				Destination: "/etc/" + name + "/example.conf",
				Permissions: "0644",
				User:        "root",
				CreateDir:   true,
			},
		},
	}

	out, err := toml.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "rendering starter manifest")
	}
	return out, nil
}
