package world

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinPresets(t *testing.T) {
	catalog := NewCatalog("")

	assert.ElementsMatch(t, []string{"default", "endless", "wilderness"}, catalog.Names())

	tables, err := catalog.Apply("endless", nil)
	require.NoError(t, err)
	assert.Equal(t, "huge", tables["Master"]["world_size"])
	assert.Equal(t, "caves", tables["Caves"]["location"])
}

func TestApplyUnknownPreset(t *testing.T) {
	catalog := NewCatalog("")

	_, err := catalog.Apply("volcano", nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidPreset))
}

func TestApplyMergesOverrides(t *testing.T) {
	catalog := NewCatalog("")

	tables, err := catalog.Apply("default", map[string]map[string]interface{}{
		"Master": {"day": "longday", "resources": "plenty"},
	})
	require.NoError(t, err)
	assert.Equal(t, "longday", tables["Master"]["day"])
	assert.Equal(t, "plenty", tables["Master"]["resources"])
	// Untouched keys keep the preset value.
	assert.Equal(t, "forest", tables["Master"]["location"])
	assert.Equal(t, "default", tables["Caves"]["day"])
}

func TestApplyDoesNotMutateBuiltin(t *testing.T) {
	catalog := NewCatalog("")

	_, err := catalog.Apply("default", map[string]map[string]interface{}{
		"Master": {"day": "longday"},
	})
	require.NoError(t, err)

	fresh, err := catalog.Apply("default", nil)
	require.NoError(t, err)
	assert.Equal(t, "default", fresh["Master"]["day"])
}

func TestUserPresetsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	content := `
rushmode:
  overworld:
    location: forest
    day: longday
  caves:
    location: caves
default:
  overworld:
    location: forest
    day: longdusk
  caves:
    location: caves
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	catalog := NewCatalog(path)

	// New preset is available.
	tables, err := catalog.Apply("rushmode", nil)
	require.NoError(t, err)
	assert.Equal(t, "longday", tables["Master"]["day"])

	// User file overrides a builtin of the same name.
	tables, err = catalog.Apply("default", nil)
	require.NoError(t, err)
	assert.Equal(t, "longdusk", tables["Master"]["day"])
}

func TestMalformedUserPresetsFileIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0644))

	catalog := NewCatalog(path)
	assert.ElementsMatch(t, []string{"default", "endless", "wilderness"}, catalog.Names())
}
