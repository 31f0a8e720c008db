// Package registry embeds the skill documents shipped with the
// binary, builds the machine-readable registry manifest from them,
// and installs them into coding-agent skill directories.
package registry

// Skill represents properties parsed from a SKILL.md frontmatter.
type Skill struct {
	Name         string            `yaml:"name" json:"name"`
	Description  string            `yaml:"description" json:"description"`
	Version      string            `yaml:"version,omitempty" json:"version,omitempty"`
	License      string            `yaml:"license,omitempty" json:"license,omitempty"`
	AllowedTools string            `yaml:"allowed-tools,omitempty" json:"allowed_tools,omitempty"`
	Metadata     map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	Path         string            `yaml:"-" json:"path,omitempty"`
}
