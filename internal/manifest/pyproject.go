// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// PyProjectFileName is the Python project metadata file read during analysis.
const PyProjectFileName = "pyproject.toml"

type (
	// PyProject is the part of pyproject.toml that informs the build stage.
	PyProject struct {
		Name string
		// RequiresPython is the interpreter constraint, e.g. ">=3.11".
		RequiresPython string
		BuildBackend   string
	}

	pyprojectFile struct {
		Project struct {
			Name           string `toml:"name"`
			RequiresPython string `toml:"requires-python"`
		} `toml:"project"`
		BuildSystem struct {
			BuildBackend string `toml:"build-backend"`
		} `toml:"build-system"`
		Tool struct {
			Poetry struct {
				Name         string         `toml:"name"`
				Dependencies map[string]any `toml:"dependencies"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
)

// ParsePyProject reads PEP 621 metadata, falling back to the Poetry tables.
func ParsePyProject(data []byte) (PyProject, error) {
	var f pyprojectFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return PyProject{}, fmt.Errorf("parse %s: %w", PyProjectFileName, err)
	}

	pp := PyProject{
		Name:           f.Project.Name,
		RequiresPython: f.Project.RequiresPython,
		BuildBackend:   f.BuildSystem.BuildBackend,
	}
	if pp.Name == "" {
		pp.Name = f.Tool.Poetry.Name
	}
	if pp.RequiresPython == "" {
		if v, ok := f.Tool.Poetry.Dependencies["python"].(string); ok {
			pp.RequiresPython = v
		}
	}
	return pp, nil
}
