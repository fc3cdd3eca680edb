package commands

import (
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/config"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/db"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/importer"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/mods"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/registry"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/server"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/supervisor"

	"github.com/spf13/cobra"
)

// ServerCommand creates the HTTP API server command
func ServerCommand(cfg *config.GlobalConfig, reg *registry.Registry, sup *supervisor.Supervisor, modMgr *mods.Manager, engine *importer.Engine, database *db.DB) *cobra.Command {
	var host string
	var port int
	var logLevel string

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the HTTP API server",
		Long: `Run the dstkit HTTP API server. The API exposes instance management,
process control, mod editing, save import, and a websocket status stream
for local tooling.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			serverCfg := server.DefaultConfig()
			if cfg != nil && cfg.Server.Port != 0 {
				serverCfg.Port = cfg.Server.Port
			}
			if cmd.Flags().Changed("host") {
				serverCfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				serverCfg.Port = port
			}
			if cmd.Flags().Changed("log-level") {
				serverCfg.LogLevel = logLevel
			}

			srv := server.New(serverCfg, reg, sup, modMgr, engine, database)
			return srv.Start(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost", "Host interface to bind")
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides config)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	return cmd
}
