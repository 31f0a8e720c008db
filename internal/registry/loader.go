package registry

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed all:skills
var embeddedFS embed.FS

// Embedded returns the skills tree shipped with the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embeddedFS, "skills")
	if err != nil {
		panic(err)
	}
	return sub
}

// Discover finds all valid skills in a skills tree, skipping
// directories without a parseable SKILL.md.
func Discover(fsys fs.FS) ([]Skill, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read skills dir: %w", err)
	}

	var skills []Skill
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		skill, err := ReadSkill(fsys, entry.Name())
		if err != nil {
			continue
		}
		skills = append(skills, skill)
	}
	return skills, nil
}

// ReadSkill reads skill properties from a directory's SKILL.md
// frontmatter.
func ReadSkill(fsys fs.FS, skillDir string) (Skill, error) {
	skill, _, err := ReadFull(fsys, skillDir)
	return skill, err
}

// ReadFull reads skill properties and the instruction body.
func ReadFull(fsys fs.FS, skillDir string) (Skill, string, error) {
	skillMD, err := findSkillMD(fsys, skillDir)
	if err != nil {
		return Skill{}, "", err
	}

	content, err := fs.ReadFile(fsys, skillMD)
	if err != nil {
		return Skill{}, "", fmt.Errorf("read SKILL.md: %w", err)
	}

	metadata, body, err := ParseFrontmatter(string(content))
	if err != nil {
		return Skill{}, "", err
	}

	skill, err := metadataToSkill(metadata)
	if err != nil {
		return Skill{}, "", err
	}
	skill.Path = skillMD
	return skill, body, nil
}

func findSkillMD(fsys fs.FS, skillDir string) (string, error) {
	for _, name := range []string{"SKILL.md", "skill.md"} {
		p := path.Join(skillDir, name)
		if _, err := fs.Stat(fsys, p); err == nil {
			return p, nil
		}
	}
	return "", ErrSkillNotFound
}

// ParseFrontmatter extracts YAML frontmatter and the markdown body.
func ParseFrontmatter(content string) (map[string]any, string, error) {
	if !strings.HasPrefix(content, "---") {
		return nil, "", ErrParseFailed
	}

	parts := strings.SplitN(content[3:], "---", 2)
	if len(parts) < 2 {
		return nil, "", ErrParseFailed
	}

	var metadata map[string]any
	if err := yaml.Unmarshal([]byte(parts[0]), &metadata); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrParseFailed, err)
	}

	return metadata, strings.TrimSpace(parts[1]), nil
}

func metadataToSkill(m map[string]any) (Skill, error) {
	name, _ := m["name"].(string)
	desc, _ := m["description"].(string)

	if name == "" {
		return Skill{}, ErrMissingName
	}
	if desc == "" {
		return Skill{}, ErrMissingDesc
	}

	skill := Skill{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(desc),
	}

	if v, ok := m["version"].(string); ok {
		skill.Version = v
	}
	if v, ok := m["license"].(string); ok {
		skill.License = v
	}
	if v, ok := m["allowed-tools"].(string); ok {
		skill.AllowedTools = v
	}
	if v, ok := m["metadata"].(map[string]any); ok {
		skill.Metadata = toStringMap(v)
	}

	return skill, nil
}

func toStringMap(m map[string]any) map[string]string {
	result := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			result[k] = s
		}
	}
	return result
}
