package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Agent is a coding agent whose skills directory we install into.
type Agent int

const (
	// Claude installs under ~/.claude/skills.
	Claude Agent = iota
	// Cursor installs under ~/.cursor/skills-cursor.
	Cursor
)

func (a Agent) String() string {
	switch a {
	case Claude:
		return "claude"
	case Cursor:
		return "cursor"
	default:
		return "unknown"
	}
}

// ParseAgent resolves an --agent flag value.
func ParseAgent(name string) (Agent, error) {
	switch name {
	case "claude", "":
		return Claude, nil
	case "cursor":
		return Cursor, nil
	default:
		return 0, fmt.Errorf("unknown agent %q (expected claude or cursor)", name)
	}
}

// AllAgents returns every supported agent.
func AllAgents() []Agent {
	return []Agent{Claude, Cursor}
}

// InstallDir returns the installation path of one skill for an agent.
func InstallDir(agent Agent, name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	switch agent {
	case Claude:
		return filepath.Join(home, ".claude", "skills", name), nil
	case Cursor:
		return filepath.Join(home, ".cursor", "skills-cursor", name), nil
	default:
		return "", fmt.Errorf("unknown agent type: %d", agent)
	}
}

// IsInstalled reports whether the skill already exists for the agent.
func IsInstalled(agent Agent, name string) bool {
	dir, err := InstallDir(agent, name)
	if err != nil {
		return false
	}
	_, err = os.Stat(filepath.Join(dir, "SKILL.md"))
	return err == nil
}

// Install copies a skill's SKILL.md from the skills tree into the
// agent's directory and returns the installation path. An existing
// installation is only overwritten with force.
func Install(fsys fs.FS, agent Agent, name string, force bool) (string, error) {
	skillMD, err := findSkillMD(fsys, name)
	if err != nil {
		return "", fmt.Errorf("skill %s: %w", name, err)
	}

	content, err := fs.ReadFile(fsys, skillMD)
	if err != nil {
		return "", fmt.Errorf("skill %s: %w", name, err)
	}

	dir, err := InstallDir(agent, name)
	if err != nil {
		return "", err
	}

	if !force && IsInstalled(agent, name) {
		return "", fmt.Errorf("skill %s already installed at %s (use --force to overwrite)", name, dir)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create skill directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "SKILL.md"), content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write skill file: %w", err)
	}
	return dir, nil
}

// Uninstall removes an installed skill. Removing a skill that is not
// installed is not an error.
func Uninstall(agent Agent, name string) error {
	dir, err := InstallDir(agent, name)
	if err != nil {
		return err
	}

	if !IsInstalled(agent, name) {
		return nil
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove skill directory: %w", err)
	}
	return nil
}
