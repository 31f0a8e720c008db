package registry

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// manifestVersion is the registry.json format version.
const manifestVersion = "1"

// Registry is the generated manifest describing every shipped skill.
type Registry struct {
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
	Skills      []Skill   `json:"skills"`
}

// Build walks a skills tree, validates every skill, and assembles the
// registry manifest sorted by skill name.
func Build(fsys fs.FS) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read skills dir: %w", err)
	}

	reg := &Registry{
		Version:     manifestVersion,
		GeneratedAt: time.Now().UTC(),
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		skill, err := ReadSkill(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("skill %s: %w", entry.Name(), err)
		}
		if err := ValidateSkill(skill, entry.Name()); err != nil {
			return nil, fmt.Errorf("skill %s: %w", entry.Name(), err)
		}
		reg.Skills = append(reg.Skills, skill)
	}

	sort.Slice(reg.Skills, func(i, j int) bool {
		return reg.Skills[i].Name < reg.Skills[j].Name
	})
	return reg, nil
}

// WriteFile writes the manifest as pretty-printed JSON, creating
// parent directories as needed.
func (r *Registry) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize registry: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
