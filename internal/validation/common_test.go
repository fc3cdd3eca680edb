package validation

import (
	"testing"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceName(t *testing.T) {
	valid := []string{"Forest", "my server", "caves_01", "Big.World", "a", "Server-2"}
	for _, name := range valid {
		assert.NoError(t, InstanceName(name), name)
	}

	invalid := []string{
		"",
		" leading",
		"trailing ",
		"-starts-with-dash",
		"slash/name",
		"..",
		".",
		"name\x00null",
		"名前",
	}
	for _, name := range invalid {
		err := InstanceName(name)
		assert.Error(t, err, name)
		assert.Equal(t, errors.ErrInvalidName, errors.GetCode(err), name)
	}
}

func TestInstanceNameLength(t *testing.T) {
	long := make([]byte, 65)
	for i := range long {
		long[i] = 'a'
	}
	assert.Error(t, InstanceName(string(long)))
	assert.NoError(t, InstanceName(string(long[:64])))
}

func TestSameName(t *testing.T) {
	assert.True(t, SameName("Forest", "forest"))
	assert.True(t, SameName("FOREST", "Forest"))
	assert.False(t, SameName("Forest", "Forest2"))
}

func TestPortTriple(t *testing.T) {
	assert.NoError(t, PortTriple(10999, 27016, 8768))

	err := PortTriple(10999, 10999, 8768)
	assert.Equal(t, errors.ErrInvalidPort, errors.GetCode(err))

	assert.Error(t, PortTriple(0, 27016, 8768))
	assert.Error(t, PortTriple(10999, 70000, 8768))
	assert.Error(t, PortTriple(10999, 27016, -1))
}

func TestModID(t *testing.T) {
	assert.NoError(t, ModID("378160973"))

	for _, id := range []string{"", "workshop-378160973", "mod", "123abc"} {
		assert.Error(t, ModID(id), id)
	}
}

func TestSettingString(t *testing.T) {
	for _, v := range []string{"", "survival with friends", "hunter2", "ünïcode is fine"} {
		assert.NoError(t, SettingString("description", v), v)
	}

	for _, v := range []string{"line\nbreak", "carriage\rreturn", "tab\tstop", "nul\x00byte", "\x7f"} {
		err := SettingString("description", v)
		require.Error(t, err, "%q", v)
		assert.Equal(t, errors.ErrValidationFailed, errors.GetCode(err), "%q", v)
	}
}

func TestClusterToken(t *testing.T) {
	assert.NoError(t, ClusterToken("pds-g^KU_abc123"))

	for _, token := range []string{"", "   ", "\t\n"} {
		err := ClusterToken(token)
		assert.Equal(t, errors.ErrMissingToken, errors.GetCode(err), "%q", token)
	}
}

func TestPath(t *testing.T) {
	cleaned, err := Path("saves/./Master")
	assert.NoError(t, err)
	assert.Equal(t, "saves/Master", cleaned)

	for _, p := range []string{"", "../outside", "saves/../../etc"} {
		_, err := Path(p)
		assert.Error(t, err, p)
	}
}
