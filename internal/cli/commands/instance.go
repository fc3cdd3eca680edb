// Package commands implements the dstkit subcommands
package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/cluster"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/registry"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/supervisor"

	"github.com/spf13/cobra"
)

// InstanceCommands creates the instance lifecycle commands
func InstanceCommands(reg *registry.Registry, sup *supervisor.Supervisor) []*cobra.Command {
	commands := []*cobra.Command{}

	// dstkit create <name>
	var createToken, createDescription, createGameMode, createPreset, createPassword string
	var createMaxPlayers, createGamePort, createMasterPort, createAuthPort int
	var createPVP bool
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new server instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := cluster.DefaultSettings()
			if createDescription != "" {
				settings.Description = createDescription
			}
			if createGameMode != "" {
				settings.GameMode = createGameMode
			}
			if createPreset != "" {
				settings.WorldPreset = createPreset
			}
			if createPassword != "" {
				settings.Password = createPassword
			}
			if createMaxPlayers > 0 {
				settings.MaxPlayers = createMaxPlayers
			}
			settings.PVP = createPVP

			ports := cluster.DefaultPorts()
			if createGamePort > 0 {
				ports.Game = createGamePort
			}
			if createMasterPort > 0 {
				ports.Master = createMasterPort
			}
			if createAuthPort > 0 {
				ports.Auth = createAuthPort
			}

			inst, err := reg.Create(cmd.Context(), args[0], createToken, registry.CreateOptions{
				Settings: &settings,
				Ports:    &ports,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Created instance '%s' (preset %s, ports %d/%d/%d)\n",
				inst.Name, inst.Settings.WorldPreset,
				inst.Ports.Game, inst.Ports.Master, inst.Ports.Auth)
			if inst.Token == "" {
				fmt.Println("No cluster token set. Set one with 'dstkit token' before starting.")
			}
			return nil
		},
	}
	createCmd.Flags().StringVar(&createToken, "token", "", "Cluster token from Klei account")
	createCmd.Flags().StringVar(&createDescription, "description", "", "Server description")
	createCmd.Flags().StringVar(&createGameMode, "game-mode", "", "Game mode (survival, endless, wilderness)")
	createCmd.Flags().StringVar(&createPreset, "preset", "", "World generation preset")
	createCmd.Flags().StringVar(&createPassword, "password", "", "Server password")
	createCmd.Flags().IntVar(&createMaxPlayers, "max-players", 0, "Maximum player count")
	createCmd.Flags().BoolVar(&createPVP, "pvp", false, "Enable PVP")
	createCmd.Flags().IntVar(&createGamePort, "game-port", 0, "Game UDP port")
	createCmd.Flags().IntVar(&createMasterPort, "master-port", 0, "Steam master server port")
	createCmd.Flags().IntVar(&createAuthPort, "auth-port", 0, "Steam authentication port")
	commands = append(commands, createCmd)

	// dstkit list
	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List all server instances",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			instances, err := reg.List(cmd.Context())
			if err != nil {
				return err
			}

			if len(instances) == 0 {
				fmt.Println("No instances found. Create one with 'dstkit create <name>'.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTATUS\tPORTS\tMODE\tPLAYERS\tMODS")
			for _, inst := range instances {
				if inst.Status == cluster.StatusInvalid {
					fmt.Fprintf(w, "%s\t%s\t-\t-\t-\t-\n", inst.Name, inst.Status)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%d/%d/%d\t%s\t%d\t%d\n",
					inst.Name, inst.Status,
					inst.Ports.Game, inst.Ports.Master, inst.Ports.Auth,
					inst.Settings.GameMode, inst.Settings.MaxPlayers, len(inst.Mods))
			}
			return w.Flush()
		},
	}
	commands = append(commands, listCmd)

	// dstkit status <name>
	statusCmd := &cobra.Command{
		Use:   "status <name>",
		Short: "Show instance status and configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := reg.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Instance:    %s\n", inst.Name)
			fmt.Printf("Status:      %s\n", inst.Status)
			if inst.Status == cluster.StatusRunning {
				fmt.Printf("Uptime:      %s\n", sup.Uptime(inst.Name).Round(time.Second))
			}
			fmt.Printf("Description: %s\n", inst.Settings.Description)
			fmt.Printf("Game mode:   %s\n", inst.Settings.GameMode)
			fmt.Printf("Max players: %d\n", inst.Settings.MaxPlayers)
			fmt.Printf("PVP:         %t\n", inst.Settings.PVP)
			fmt.Printf("Preset:      %s\n", inst.Settings.WorldPreset)
			fmt.Printf("Ports:       game %d, master %d, auth %d\n",
				inst.Ports.Game, inst.Ports.Master, inst.Ports.Auth)
			fmt.Printf("Token set:   %t\n", inst.Token != "")
			fmt.Printf("Mods:        %d\n", len(inst.Mods))
			for _, mod := range inst.Mods {
				state := "enabled"
				if !mod.Enabled {
					state = "disabled"
				}
				fmt.Printf("  %s (%s)\n", mod.ID, state)
			}
			return nil
		},
	}
	commands = append(commands, statusCmd)

	// dstkit start <name>
	startCmd := &cobra.Command{
		Use:   "start <name>",
		Short: "Start an instance and wait until it is up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("Starting '%s'...\n", args[0])
			if err := sup.Start(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Instance '%s' is running\n", args[0])
			return nil
		},
	}
	commands = append(commands, startCmd)

	// dstkit stop <name>
	stopCmd := &cobra.Command{
		Use:   "stop <name>",
		Short: "Stop a running instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sup.Stop(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Instance '%s' stopped\n", args[0])
			return nil
		},
	}
	commands = append(commands, stopCmd)

	// dstkit delete <name>
	var deleteYes bool
	deleteCmd := &cobra.Command{
		Use:     "delete <name>",
		Short:   "Delete an instance and its cluster directory",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := reg.Delete(cmd.Context(), args[0], deleteYes); err != nil {
				return err
			}
			fmt.Printf("Instance '%s' deleted\n", args[0])
			return nil
		},
	}
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Confirm deletion of existing save data")
	commands = append(commands, deleteCmd)

	// dstkit token <name> <token>
	tokenCmd := &cobra.Command{
		Use:   "token <name> <token>",
		Short: "Set the cluster token of an instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := reg.SetToken(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Token updated for '%s'\n", args[0])
			return nil
		},
	}
	commands = append(commands, tokenCmd)

	// dstkit ports <name>
	var portGame, portMaster, portAuth int
	portsCmd := &cobra.Command{
		Use:   "ports <name>",
		Short: "Set the port triple of an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := reg.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			ports := inst.Ports
			if portGame > 0 {
				ports.Game = portGame
			}
			if portMaster > 0 {
				ports.Master = portMaster
			}
			if portAuth > 0 {
				ports.Auth = portAuth
			}

			if _, err := reg.SetPorts(cmd.Context(), args[0], ports); err != nil {
				return err
			}
			fmt.Printf("Ports updated for '%s': game %d, master %d, auth %d\n",
				args[0], ports.Game, ports.Master, ports.Auth)
			return nil
		},
	}
	portsCmd.Flags().IntVar(&portGame, "game", 0, "Game UDP port")
	portsCmd.Flags().IntVar(&portMaster, "master", 0, "Steam master server port")
	portsCmd.Flags().IntVar(&portAuth, "auth", 0, "Steam authentication port")
	commands = append(commands, portsCmd)

	// dstkit update <name>
	var updateDescription, updateGameMode, updatePreset, updatePassword, updateIntention string
	var updateMaxPlayers int
	var updatePVP, updatePauseWhenEmpty bool
	updateCmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Update instance settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := reg.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			settings := inst.Settings
			if cmd.Flags().Changed("description") {
				settings.Description = updateDescription
			}
			if cmd.Flags().Changed("game-mode") {
				settings.GameMode = updateGameMode
			}
			if cmd.Flags().Changed("preset") {
				settings.WorldPreset = updatePreset
			}
			if cmd.Flags().Changed("password") {
				settings.Password = updatePassword
			}
			if cmd.Flags().Changed("intention") {
				settings.Intention = updateIntention
			}
			if cmd.Flags().Changed("max-players") {
				settings.MaxPlayers = updateMaxPlayers
			}
			if cmd.Flags().Changed("pvp") {
				settings.PVP = updatePVP
			}
			if cmd.Flags().Changed("pause-when-empty") {
				settings.PauseWhenEmpty = updatePauseWhenEmpty
			}

			if _, err := reg.UpdateSettings(cmd.Context(), args[0], settings); err != nil {
				return err
			}
			fmt.Printf("Settings updated for '%s'\n", args[0])
			return nil
		},
	}
	updateCmd.Flags().StringVar(&updateDescription, "description", "", "Server description")
	updateCmd.Flags().StringVar(&updateGameMode, "game-mode", "", "Game mode")
	updateCmd.Flags().StringVar(&updatePreset, "preset", "", "World generation preset")
	updateCmd.Flags().StringVar(&updatePassword, "password", "", "Server password")
	updateCmd.Flags().StringVar(&updateIntention, "intention", "", "Server intention")
	updateCmd.Flags().IntVar(&updateMaxPlayers, "max-players", 0, "Maximum player count")
	updateCmd.Flags().BoolVar(&updatePVP, "pvp", false, "Enable PVP")
	updateCmd.Flags().BoolVar(&updatePauseWhenEmpty, "pause-when-empty", true, "Pause simulation when empty")
	commands = append(commands, updateCmd)

	return commands
}
