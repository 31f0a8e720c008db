package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSortsAndValidates(t *testing.T) {
	fsys := fstest.MapFS{
		"zeta/SKILL.md": {Data: []byte("---\nname: zeta\ndescription: Last.\n---\nbody")},
		"alfa/SKILL.md": {Data: []byte("---\nname: alfa\ndescription: First.\n---\nbody")},
	}

	reg, err := Build(fsys)
	require.NoError(t, err)

	require.Len(t, reg.Skills, 2)
	assert.Equal(t, "alfa", reg.Skills[0].Name)
	assert.Equal(t, "zeta", reg.Skills[1].Name)
	assert.Equal(t, "1", reg.Version)
	assert.False(t, reg.GeneratedAt.IsZero())
}

func TestBuildRejectsNameMismatch(t *testing.T) {
	fsys := fstest.MapFS{
		"alfa/SKILL.md": {Data: []byte("---\nname: beta\ndescription: Wrong dir.\n---\nbody")},
	}

	_, err := Build(fsys)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNameMismatch)
	assert.Contains(t, err.Error(), "alfa")
}

func TestBuildRejectsBrokenSkill(t *testing.T) {
	fsys := fstest.MapFS{
		"alfa/SKILL.md": {Data: []byte("no frontmatter at all")},
	}

	_, err := Build(fsys)
	assert.ErrorIs(t, err, ErrParseFailed)
}

func TestWriteFileRoundTrip(t *testing.T) {
	fsys := fstest.MapFS{
		"alfa/SKILL.md": {Data: []byte("---\nname: alfa\ndescription: First.\n---\nbody")},
	}

	reg, err := Build(fsys)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "registry.json")
	require.NoError(t, reg.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded Registry
	require.NoError(t, json.Unmarshal(data, &loaded))
	require.Len(t, loaded.Skills, 1)
	assert.Equal(t, "alfa", loaded.Skills[0].Name)
}

func TestBuiltManifestPassesSchema(t *testing.T) {
	reg, err := Build(Embedded())
	require.NoError(t, err)

	data, err := json.Marshal(reg)
	require.NoError(t, err)

	assert.NoError(t, ValidateManifest(data))
}

func TestValidateManifestRejectsBadNames(t *testing.T) {
	err := ValidateManifest([]byte(`{
		"version": "1",
		"generated_at": "2025-06-01T10:00:00Z",
		"skills": [{"name": "Not Valid", "description": "x"}]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry schema validation failed")
}

func TestValidateManifestNumbersMultipleErrors(t *testing.T) {
	err := ValidateManifest([]byte(`{
		"version": "1",
		"generated_at": "2025-06-01T10:00:00Z",
		"skills": [{"name": "Bad Name", "description": "x", "extra": true}]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "errors:")
	assert.Contains(t, err.Error(), "1. ")
	assert.Contains(t, err.Error(), "2. ")
}

func TestValidateManifestRejectsMissingFields(t *testing.T) {
	err := ValidateManifest([]byte(`{"skills": []}`))
	require.Error(t, err)
}

func TestFormatNumberedErrors(t *testing.T) {
	assert.NoError(t, formatNumberedErrors("p", nil))

	err := formatNumberedErrors("p", []string{"only"})
	require.Error(t, err)
	assert.Equal(t, "p: only", err.Error())

	err = formatNumberedErrors("p", []string{"first", "second"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "p with 2 errors:")
	assert.Contains(t, err.Error(), "  1. first")
	assert.Contains(t, err.Error(), "  2. second")
}
