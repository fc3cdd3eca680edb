package mods

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/cluster"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/errors"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/registry"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/world"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNames map[string]string

func (f fakeNames) Name(ctx context.Context, modID string) (string, error) {
	return f[modID], nil
}

func newTestManager(t *testing.T) (*Manager, *registry.Registry) {
	t.Helper()
	reg := registry.New(t.TempDir(), world.NewCatalog(""))
	_, err := reg.Create(context.Background(), "Forest", "T1", registry.CreateOptions{})
	require.NoError(t, err)
	return NewManager(reg, fakeNames{"362278795": "Global Positions"}), reg
}

func TestAddAndList(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	inst, err := m.Add(ctx, "Forest", "362278795", true, map[string]interface{}{
		"ENABLEPINGS": true,
		"SHAREMINIMAPPROGRESS": true,
	})
	require.NoError(t, err)
	require.Len(t, inst.Mods, 1)

	_, err = m.Add(ctx, "Forest", "378160973", true, nil)
	require.NoError(t, err)

	infos, err := m.List(ctx, "Forest")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "362278795", infos[0].ID)
	assert.Equal(t, "Global Positions", infos[0].DisplayName)
	assert.True(t, infos[0].Enabled)
	assert.Equal(t, true, infos[0].Options["ENABLEPINGS"])
	assert.Empty(t, infos[1].DisplayName)
}

func TestAddDuplicate(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Add(ctx, "Forest", "362278795", true, nil)
	require.NoError(t, err)

	_, err = m.Add(ctx, "Forest", "362278795", false, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrDuplicateMod))

	infos, err := m.List(ctx, "Forest")
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestAddInvalidID(t *testing.T) {
	m, _ := newTestManager(t)

	for _, modID := range []string{"", "not-a-number", "workshop-123"} {
		_, err := m.Add(context.Background(), "Forest", modID, true, nil)
		require.Error(t, err, "id %q", modID)
	}
}

func TestRemove(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Add(ctx, "Forest", "362278795", true, nil)
	require.NoError(t, err)
	_, err = m.Add(ctx, "Forest", "378160973", true, nil)
	require.NoError(t, err)

	inst, err := m.Remove(ctx, "Forest", "362278795")
	require.NoError(t, err)
	require.Len(t, inst.Mods, 1)
	assert.Equal(t, "378160973", inst.Mods[0].ID)

	_, err = m.Remove(ctx, "Forest", "362278795")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrUnknownMod))
}

func TestSetEnabledKeepsOptionsAndOrder(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Add(ctx, "Forest", "362278795", true, map[string]interface{}{"ENABLEPINGS": true})
	require.NoError(t, err)
	_, err = m.Add(ctx, "Forest", "378160973", true, nil)
	require.NoError(t, err)

	inst, err := m.SetEnabled(ctx, "Forest", "362278795", false)
	require.NoError(t, err)
	assert.Equal(t, "362278795", inst.Mods[0].ID)
	assert.False(t, inst.Mods[0].Enabled)
	assert.Equal(t, true, inst.Mods[0].Options["ENABLEPINGS"])

	// A disabled mod stays in modoverrides.lua but is dropped from the
	// download list.
	setup, err := os.ReadFile(filepath.Join(m.reg.Dir("Forest"), cluster.FileModSetup))
	require.NoError(t, err)
	assert.NotContains(t, string(setup), "362278795")
	assert.Contains(t, string(setup), "378160973")

	overrides, err := os.ReadFile(filepath.Join(m.reg.Dir("Forest"), cluster.FileMasterMods))
	require.NoError(t, err)
	assert.Contains(t, string(overrides), "362278795")
}

func TestConfigure(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Add(ctx, "Forest", "362278795", true, map[string]interface{}{"old": 1})
	require.NoError(t, err)

	inst, err := m.Configure(ctx, "Forest", "362278795", map[string]interface{}{
		"FIREOPTIONS": 2,
		"OVERRIDEMODE": false,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inst.Mods[0].Options["FIREOPTIONS"])
	assert.NotContains(t, inst.Mods[0].Options, "old")

	_, err = m.Configure(ctx, "Forest", "999", map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrUnknownMod))
}

func TestReorder(t *testing.T) {
	m, reg := newTestManager(t)
	ctx := context.Background()

	for _, modID := range []string{"111111", "222222", "362278795"} {
		_, err := m.Add(ctx, "Forest", modID, true, nil)
		require.NoError(t, err)
	}

	inst, err := m.Reorder(ctx, "Forest", []string{"362278795", "111111", "222222"})
	require.NoError(t, err)
	assert.Equal(t, []string{"362278795", "111111", "222222"}, inst.ModIDs())

	// The new order survives a reload from disk.
	got, err := reg.Get(ctx, "Forest")
	require.NoError(t, err)
	assert.Equal(t, []string{"362278795", "111111", "222222"}, got.ModIDs())
}

func TestReorderRejectsBadPermutations(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	for _, modID := range []string{"111111", "222222"} {
		_, err := m.Add(ctx, "Forest", modID, true, nil)
		require.NoError(t, err)
	}

	cases := [][]string{
		{"111111"},                       // missing a mod
		{"111111", "222222", "333333"},   // extra mod
		{"111111", "111111"},             // duplicate
		{"111111", "333333"},             // unknown
	}
	for _, order := range cases {
		_, err := m.Reorder(ctx, "Forest", order)
		require.Error(t, err, "order %v", order)
	}

	// List untouched after the failed attempts.
	inst, err := m.List(ctx, "Forest")
	require.NoError(t, err)
	assert.Equal(t, "111111", inst[0].ID)
	assert.Equal(t, "222222", inst[1].ID)
}

func TestMutationsRejectedWhileRunning(t *testing.T) {
	m, reg := newTestManager(t)
	ctx := context.Background()

	reg.SetStatusFunc(func(name string) cluster.Status { return cluster.StatusRunning })

	_, err := m.Add(ctx, "Forest", "362278795", true, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInstanceBusy))
}
