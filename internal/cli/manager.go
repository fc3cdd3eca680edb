// Package cli assembles the dstkit command tree
package cli

import (
	"context"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/cli/commands"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/config"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/db"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/importer"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/mods"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/registry"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/supervisor"

	"github.com/spf13/cobra"
)

// Manager handles CLI operations
type Manager struct {
	cfg      *config.GlobalConfig
	reg      *registry.Registry
	sup      *supervisor.Supervisor
	mods     *mods.Manager
	engine   *importer.Engine
	database *db.DB
	rootCmd  *cobra.Command
}

// New creates a new CLI manager with all dependencies wired
func New(cfg *config.GlobalConfig, reg *registry.Registry, sup *supervisor.Supervisor, modMgr *mods.Manager, engine *importer.Engine, database *db.DB) *Manager {
	m := &Manager{
		cfg:      cfg,
		reg:      reg,
		sup:      sup,
		mods:     modMgr,
		engine:   engine,
		database: database,
	}
	m.rootCmd = createRootCommand()
	m.setupCommands()
	return m
}

// Execute executes the CLI with the given arguments
func (m *Manager) Execute(args []string) error {
	return m.ExecuteWithContext(context.Background(), args)
}

// ExecuteWithContext executes the CLI with the given arguments and context
func (m *Manager) ExecuteWithContext(ctx context.Context, args []string) error {
	m.rootCmd.SetArgs(args)
	return m.rootCmd.ExecuteContext(ctx)
}

// setupCommands sets up all CLI commands
func (m *Manager) setupCommands() {
	for _, cmd := range commands.InstanceCommands(m.reg, m.sup) {
		m.rootCmd.AddCommand(cmd)
	}

	modCmd := &cobra.Command{
		Use:     "mod",
		Short:   "Workshop mod management commands",
		Aliases: []string{"mods"},
	}
	for _, cmd := range commands.ModCommands(m.mods) {
		modCmd.AddCommand(cmd)
	}
	m.rootCmd.AddCommand(modCmd)

	m.rootCmd.AddCommand(commands.ImportCommand(m.engine))
	m.rootCmd.AddCommand(commands.PresetsCommand(m.reg))
	m.rootCmd.AddCommand(commands.ServerCommand(m.cfg, m.reg, m.sup, m.mods, m.engine, m.database))
}
