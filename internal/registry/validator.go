package registry

import "regexp"

const (
	MaxNameLength = 64
	MaxDescLength = 1024
)

var namePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidateSkill checks a skill's frontmatter for compliance. dirName
// is the directory holding the SKILL.md; the skill name must match it.
func ValidateSkill(s Skill, dirName string) error {
	if err := validateName(s.Name, dirName); err != nil {
		return err
	}
	return validateDescription(s.Description)
}

func validateName(name, dirName string) error {
	if name == "" {
		return ErrMissingName
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	if !namePattern.MatchString(name) {
		return ErrInvalidName
	}
	if name != dirName {
		return ErrNameMismatch
	}
	return nil
}

func validateDescription(desc string) error {
	if desc == "" {
		return ErrMissingDesc
	}
	if len(desc) > MaxDescLength {
		return ErrDescTooLong
	}
	return nil
}
