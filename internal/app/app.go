// Package app wires the dstkit components together
package app

import (
	"context"
	"fmt"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/cli"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/config"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/db"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/importer"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/mods"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/registry"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/supervisor"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/world"
)

// App represents the main application
type App struct {
	Config     *config.GlobalConfig
	Registry   *registry.Registry
	Supervisor *supervisor.Supervisor
	Mods       *mods.Manager
	Importer   *importer.Engine
	DB         *db.DB
	CLI        *cli.Manager
}

// New creates a new application instance
func New() *App {
	return &App{}
}

// Run starts the application
func (a *App) Run(args []string) error {
	return a.RunWithContext(context.Background(), args)
}

// RunWithContext starts the application with a context for cancellation
func (a *App) RunWithContext(ctx context.Context, args []string) error {
	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.ValidateGlobalConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.Config = cfg

	// The mod name cache is best effort: the CLI still works without it.
	database, err := db.New(db.DefaultConfig())
	if err == nil {
		if err := database.Migrate(); err != nil {
			database.Close()
			database = nil
		}
	} else {
		database = nil
	}
	a.DB = database
	defer func() {
		if a.DB != nil {
			a.DB.Close()
		}
	}()

	catalog := world.NewCatalog(cfg.World.PresetsPath)
	a.Registry = registry.New(cfg.Storage.InstancesPath, catalog)
	a.Supervisor = supervisor.New(cfg, a.Registry)
	a.Importer = importer.NewEngine(a.Registry)

	var names mods.NameStore
	if a.DB != nil {
		names = db.NewModNameRepository(a.DB, nil)
	}
	a.Mods = mods.NewManager(a.Registry, names)

	a.CLI = cli.New(cfg, a.Registry, a.Supervisor, a.Mods, a.Importer, a.DB)

	if len(args) == 0 {
		return a.CLI.ExecuteWithContext(ctx, []string{"--help"})
	}
	return a.CLI.ExecuteWithContext(ctx, args)
}
