package cluster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFiles materializes a rendered file set into dir
func writeFiles(t *testing.T, dir string, files map[string][]byte) {
	t.Helper()
	for rel, data := range files {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, data, 0644))
	}
}

func richInstance() *Instance {
	inst := New("Forest", "T1")
	inst.Settings.Description = "survival with friends"
	inst.Settings.MaxPlayers = 12
	inst.Settings.PVP = true
	inst.Settings.Password = "hunter2"
	inst.Settings.WorldPreset = "endless"
	inst.Ports = Ports{Game: 11000, Master: 27020, Auth: 8770}
	inst.Mods = []ModEntry{
		{ID: "362278795", Enabled: true, Options: map[string]interface{}{
			"language":  "en",
			"max_items": 40,
			"strict":    false,
		}},
		{ID: "378160973", Enabled: false},
	}
	inst.World = map[string]map[string]interface{}{
		"Master": {
			"location":     "forest",
			"season_start": "autumn",
			"day":          "long",
		},
		"Caves": {
			"location": "caves",
		},
	}
	return inst
}

func TestRenderParseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		inst *Instance
	}{
		{"defaults", New("Forest", "T1")},
		{"rich", richInstance()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), tt.inst.Name)
			writeFiles(t, dir, tt.inst.Render())

			parsed, err := Parse(dir)
			require.NoError(t, err)
			assert.Equal(t, tt.inst, parsed)
		})
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	inst := richInstance()

	first := inst.Render()
	second := inst.Render()

	require.Equal(t, len(first), len(second))
	for rel, data := range first {
		assert.Equal(t, data, second[rel], "file %s differs between renders", rel)
	}
}

func TestRenderAfterParseIsByteIdentical(t *testing.T) {
	inst := richInstance()
	dir := filepath.Join(t.TempDir(), inst.Name)
	first := inst.Render()
	writeFiles(t, dir, first)

	parsed, err := Parse(dir)
	require.NoError(t, err)

	second := parsed.Render()
	for rel, data := range first {
		assert.Equal(t, string(data), string(second[rel]), "file %s", rel)
	}
}

func TestParsePreservesUnknownKeys(t *testing.T) {
	inst := New("Forest", "T1")
	dir := filepath.Join(t.TempDir(), "Forest")
	writeFiles(t, dir, inst.Render())

	// Simulate a newer server build adding settings this kit doesn't know.
	clusterINI := filepath.Join(dir, FileClusterINI)
	data, err := os.ReadFile(clusterINI)
	require.NoError(t, err)
	data = append(data, []byte("\n[LOBBY]\nregion = eu-central\n")...)
	require.NoError(t, os.WriteFile(clusterINI, data, 0644))

	parsed, err := Parse(dir)
	require.NoError(t, err)
	require.Contains(t, parsed.Extra, FileClusterINI)
	assert.Equal(t, []ExtraKey{{Section: "LOBBY", Key: "region", Value: "eu-central"}},
		parsed.Extra[FileClusterINI])

	// Unknown keys survive a re-render verbatim.
	rendered := string(parsed.Render()[FileClusterINI])
	assert.Contains(t, rendered, "[LOBBY]\nregion = eu-central\n")
}

func TestParseMissingFilesUsesDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Empty")
	require.NoError(t, os.MkdirAll(dir, 0755))

	parsed, err := Parse(dir)
	require.NoError(t, err)

	assert.Equal(t, "Empty", parsed.Name)
	assert.Equal(t, DefaultSettings(), parsed.Settings)
	assert.Equal(t, DefaultPorts(), parsed.Ports)
	assert.Empty(t, parsed.Token)
	assert.Empty(t, parsed.Mods)
	assert.Equal(t, StatusStopped, parsed.Status)
}

func TestParseMalformedClusterINI(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Broken")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileClusterINI),
		[]byte("[GAMEPLAY]\ngame_mode survival\n"), 0644))

	_, err := Parse(dir)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrConfigParse))
	assert.Contains(t, err.Error(), FileClusterINI)
	assert.Contains(t, err.Error(), "Line: 2")
}

func TestParseBadNumericValue(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Broken")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileClusterINI),
		[]byte("[GAMEPLAY]\nmax_players = many\n"), 0644))

	_, err := Parse(dir)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrConfigParse))
	assert.Contains(t, err.Error(), "Line: 2")
}

func TestModOrderSurvivesRoundTrip(t *testing.T) {
	inst := New("Forest", "T1")
	inst.Mods = []ModEntry{
		{ID: "3", Enabled: true},
		{ID: "1", Enabled: true},
		{ID: "2", Enabled: false},
	}

	dir := filepath.Join(t.TempDir(), "Forest")
	writeFiles(t, dir, inst.Render())

	parsed, err := Parse(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1", "2"}, parsed.ModIDs())
	assert.False(t, parsed.Mods[2].Enabled)
}

func TestModSetupListsOnlyEnabledMods(t *testing.T) {
	inst := New("Forest", "T1")
	inst.Mods = []ModEntry{
		{ID: "362278795", Enabled: true},
		{ID: "378160973", Enabled: false},
	}

	setup := string(inst.Render()[FileModSetup])
	assert.Contains(t, setup, `ServerModSetup("362278795")`)
	assert.NotContains(t, setup, "378160973")
}

func TestPortsOverlaps(t *testing.T) {
	a := Ports{Game: 10999, Master: 27016, Auth: 8768}

	port, overlap := a.Overlaps(Ports{Game: 10999, Master: 27018, Auth: 8770})
	assert.True(t, overlap)
	assert.Equal(t, 10999, port)

	// The Caves shard binds Game+1, so adjacent game ports collide too.
	_, overlap = a.Overlaps(Ports{Game: 11000, Master: 27018, Auth: 8770})
	assert.True(t, overlap)

	_, overlap = a.Overlaps(Ports{Game: 11002, Master: 27018, Auth: 8770})
	assert.False(t, overlap)
}

func TestValidate(t *testing.T) {
	inst := New("Forest", "T1")
	require.NoError(t, inst.Validate())

	bad := New("../etc", "T1")
	err := bad.Validate()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidName))

	dupPorts := New("Forest", "T1")
	dupPorts.Ports.Master = dupPorts.Ports.Game
	err = dupPorts.Validate()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidPort))
}

func TestValidateRejectsControlCharacters(t *testing.T) {
	// A newline in any settings string would break out of its config line
	// and corrupt the rendered file, so Validate must reject it up front.
	cases := map[string]func(*Instance){
		"description": func(i *Instance) { i.Settings.Description = "oops\n[SHARD]\nmaster_port = banana" },
		"password":    func(i *Instance) { i.Settings.Password = "hunter\r2" },
		"game_mode":   func(i *Instance) { i.Settings.GameMode = "survival\n" },
		"intention":   func(i *Instance) { i.Settings.Intention = "co\x00op" },
		"token":       func(i *Instance) { i.Token = "T1\nT2" },
		"cluster_key": func(i *Instance) { i.ShardNet.ClusterKey = "key\nextra" },
	}
	for name, mutate := range cases {
		inst := New("Forest", "T1")
		mutate(inst)
		err := inst.Validate()
		require.Error(t, err, name)
		assert.True(t, errors.HasCode(err, errors.ErrValidationFailed), name)
	}
}

func TestModOptionStringsSurviveQuotesAndNewlines(t *testing.T) {
	// Option blobs are opaque caller data; quotes, backslashes and newlines
	// must round-trip without breaking the table layout.
	mods := []ModEntry{
		{ID: "362278795", Enabled: true, Options: map[string]interface{}{
			"greeting": "say \"hi\"\nthen wave",
			"path":     `C:\mods\stuff`,
			"plain":    "unchanged",
		}},
	}

	data := RenderMods(mods)
	parsed, err := ParseMods("modoverrides.lua", data)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, mods[0].Options, parsed[0].Options)

	// And the rendered form stays line-structured.
	reparsed, err := ParseMods("modoverrides.lua", RenderMods(parsed))
	require.NoError(t, err)
	assert.Equal(t, parsed, reparsed)
}
