package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/mods"

	"github.com/spf13/cobra"
)

// ModCommands creates the workshop mod management commands
func ModCommands(modMgr *mods.Manager) []*cobra.Command {
	commands := []*cobra.Command{}

	// dstkit mod list <instance>
	listCmd := &cobra.Command{
		Use:     "list <instance>",
		Short:   "List the mods of an instance in load order",
		Aliases: []string{"ls"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := modMgr.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if len(infos) == 0 {
				fmt.Println("No mods configured.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tID\tNAME\tENABLED\tOPTIONS")
			for i, info := range infos {
				name := info.DisplayName
				if name == "" {
					name = "-"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%d\n", i+1, info.ID, name, info.Enabled, len(info.Options))
			}
			return w.Flush()
		},
	}
	commands = append(commands, listCmd)

	// dstkit mod add <instance> <id>
	var addDisabled bool
	var addOptions string
	addCmd := &cobra.Command{
		Use:   "add <instance> <id>",
		Short: "Add a workshop mod to an instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var options map[string]interface{}
			if addOptions != "" {
				if err := json.Unmarshal([]byte(addOptions), &options); err != nil {
					return fmt.Errorf("invalid --options JSON: %w", err)
				}
			}

			if _, err := modMgr.Add(cmd.Context(), args[0], args[1], !addDisabled, options); err != nil {
				return err
			}
			fmt.Printf("Mod %s added to '%s'\n", args[1], args[0])
			return nil
		},
	}
	addCmd.Flags().BoolVar(&addDisabled, "disabled", false, "Add the mod disabled")
	addCmd.Flags().StringVar(&addOptions, "options", "", "Mod configuration options as JSON")
	commands = append(commands, addCmd)

	// dstkit mod remove <instance> <id>
	removeCmd := &cobra.Command{
		Use:     "remove <instance> <id>",
		Short:   "Remove a mod from an instance",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := modMgr.Remove(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Mod %s removed from '%s'\n", args[1], args[0])
			return nil
		},
	}
	commands = append(commands, removeCmd)

	// dstkit mod enable <instance> <id>
	enableCmd := &cobra.Command{
		Use:   "enable <instance> <id>",
		Short: "Enable a configured mod",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := modMgr.SetEnabled(cmd.Context(), args[0], args[1], true); err != nil {
				return err
			}
			fmt.Printf("Mod %s enabled\n", args[1])
			return nil
		},
	}
	commands = append(commands, enableCmd)

	// dstkit mod disable <instance> <id>
	disableCmd := &cobra.Command{
		Use:   "disable <instance> <id>",
		Short: "Disable a configured mod without removing it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := modMgr.SetEnabled(cmd.Context(), args[0], args[1], false); err != nil {
				return err
			}
			fmt.Printf("Mod %s disabled\n", args[1])
			return nil
		},
	}
	commands = append(commands, disableCmd)

	// dstkit mod configure <instance> <id> <json>
	configureCmd := &cobra.Command{
		Use:   "configure <instance> <id> <options-json>",
		Short: "Replace a mod's configuration options",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var options map[string]interface{}
			if err := json.Unmarshal([]byte(args[2]), &options); err != nil {
				return fmt.Errorf("invalid options JSON: %w", err)
			}

			if _, err := modMgr.Configure(cmd.Context(), args[0], args[1], options); err != nil {
				return err
			}
			fmt.Printf("Mod %s configured\n", args[1])
			return nil
		},
	}
	commands = append(commands, configureCmd)

	// dstkit mod reorder <instance> <id...>
	reorderCmd := &cobra.Command{
		Use:   "reorder <instance> <id>...",
		Short: "Set the mod load order; every configured mod must be listed exactly once",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := modMgr.Reorder(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			fmt.Printf("Load order for '%s': %v\n", inst.Name, inst.ModIDs())
			return nil
		},
	}
	commands = append(commands, reorderCmd)

	return commands
}
