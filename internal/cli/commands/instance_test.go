package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/cluster"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/config"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/constants"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/registry"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/supervisor"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/world"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDeps(t *testing.T) (*registry.Registry, *supervisor.Supervisor) {
	t.Helper()

	cfg := &config.GlobalConfig{
		Storage: config.StorageConfig{
			InstancesPath: t.TempDir(),
			InstallPath:   t.TempDir(),
		},
		Supervisor: config.SupervisorConfig{
			StartTimeoutSeconds: 5,
			StopGraceSeconds:    1,
		},
	}
	reg := registry.New(cfg.Storage.InstancesPath, world.NewCatalog(""))
	sup := supervisor.New(cfg, reg)
	return reg, sup
}

func findCommand(t *testing.T, commands []*cobra.Command, name string) *cobra.Command {
	t.Helper()
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func runCommand(cmd *cobra.Command, args ...string) error {
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestInstanceCommandSet(t *testing.T) {
	reg, sup := newTestDeps(t)
	commands := InstanceCommands(reg, sup)

	for _, name := range []string{"create", "list", "status", "start", "stop", "delete", "token", "ports", "update"} {
		assert.NotNil(t, findCommand(t, commands, name), name)
	}

	createCmd := findCommand(t, commands, "create")
	for _, flag := range []string{"token", "preset", "max-players", "pvp", "game-port"} {
		assert.NotNil(t, createCmd.Flags().Lookup(flag), flag)
	}
}

func TestCreateCommand(t *testing.T) {
	reg, sup := newTestDeps(t)
	commands := InstanceCommands(reg, sup)

	err := runCommand(findCommand(t, commands, "create"),
		"Forest", "--token", "T1", "--max-players", "8", "--game-port", "11000")
	require.NoError(t, err)

	inst, err := reg.Get(context.Background(), "Forest")
	require.NoError(t, err)
	assert.Equal(t, "T1", inst.Token)
	assert.Equal(t, 8, inst.Settings.MaxPlayers)
	assert.Equal(t, 11000, inst.Ports.Game)
}

func TestCreateCommandRejectsDuplicate(t *testing.T) {
	reg, sup := newTestDeps(t)
	commands := InstanceCommands(reg, sup)

	require.NoError(t, runCommand(findCommand(t, commands, "create"), "Forest"))
	assert.Error(t, runCommand(findCommand(t, commands, "create"), "forest"))
}

func TestTokenAndPortsCommands(t *testing.T) {
	reg, sup := newTestDeps(t)
	commands := InstanceCommands(reg, sup)

	require.NoError(t, runCommand(findCommand(t, commands, "create"), "Forest"))
	require.NoError(t, runCommand(findCommand(t, commands, "token"), "Forest", "T2"))
	require.NoError(t, runCommand(findCommand(t, commands, "ports"), "Forest", "--game", "12000"))

	inst, err := reg.Get(context.Background(), "Forest")
	require.NoError(t, err)
	assert.Equal(t, "T2", inst.Token)
	assert.Equal(t, 12000, inst.Ports.Game)
}

func TestUpdateCommandOnlyTouchesChangedFlags(t *testing.T) {
	reg, sup := newTestDeps(t)
	commands := InstanceCommands(reg, sup)

	require.NoError(t, runCommand(findCommand(t, commands, "create"),
		"Forest", "--description", "original", "--max-players", "10"))
	require.NoError(t, runCommand(findCommand(t, commands, "update"),
		"Forest", "--pvp=true"))

	inst, err := reg.Get(context.Background(), "Forest")
	require.NoError(t, err)
	assert.True(t, inst.Settings.PVP)
	assert.Equal(t, "original", inst.Settings.Description)
	assert.Equal(t, 10, inst.Settings.MaxPlayers)
}

func TestDeleteCommandRequiresConfirmation(t *testing.T) {
	reg, sup := newTestDeps(t)
	commands := InstanceCommands(reg, sup)

	require.NoError(t, runCommand(findCommand(t, commands, "create"), "Forest"))

	ctx := context.Background()
	saveDir := filepath.Join(reg.Dir("Forest"), constants.ShardMaster, cluster.SaveDir)
	require.NoError(t, os.MkdirAll(saveDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(saveDir, "0000000001"), []byte("session"), 0644))

	assert.Error(t, runCommand(findCommand(t, commands, "delete"), "Forest"))

	require.NoError(t, runCommand(findCommand(t, commands, "delete"), "Forest", "--yes"))
	_, err := reg.Get(ctx, "Forest")
	assert.Error(t, err)
}

func TestStartCommandWithoutBinary(t *testing.T) {
	reg, sup := newTestDeps(t)
	commands := InstanceCommands(reg, sup)

	require.NoError(t, runCommand(findCommand(t, commands, "create"), "Forest", "--token", "T1"))
	assert.Error(t, runCommand(findCommand(t, commands, "start"), "Forest"))
}

func TestStatusCommandUnknownInstance(t *testing.T) {
	reg, sup := newTestDeps(t)
	commands := InstanceCommands(reg, sup)

	assert.Error(t, runCommand(findCommand(t, commands, "status"), "Nope"))
}
