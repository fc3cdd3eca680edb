package commands

import (
	"fmt"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/importer"

	"github.com/spf13/cobra"
)

// ImportCommand creates the save import command
func ImportCommand(engine *importer.Engine) *cobra.Command {
	var importWorld, importMods, importSettings bool
	var quiet bool

	cmd := &cobra.Command{
		Use:   "import <instance> <source-dir>",
		Short: "Import save data from an existing cluster directory",
		Long: `Import copies selected data from an existing Don't Starve Together
cluster directory into a stopped managed instance. Imported items replace
the destination's copy entirely; on any failure the destination is left
untouched.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest := importer.Manifest{
				Source:      args[1],
				Destination: args[0],
				Selection: importer.Selection{
					WorldSave: importWorld,
					ModConfig: importMods,
					Settings:  importSettings,
				},
			}

			var onProgress importer.ProgressFunc
			if !quiet {
				lastItem := ""
				onProgress = func(p importer.Progress) {
					if p.Item != lastItem {
						if lastItem != "" {
							fmt.Println()
						}
						lastItem = p.Item
					}
					fmt.Printf("\r%s: %d/%d bytes", p.Item, p.CopiedBytes, p.TotalBytes)
				}
			}

			if err := engine.Import(cmd.Context(), manifest, onProgress); err != nil {
				if !quiet {
					fmt.Println()
				}
				return err
			}
			if !quiet {
				fmt.Println()
			}
			fmt.Printf("Import into '%s' complete\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&importWorld, "world", false, "Import world save data for all shards")
	cmd.Flags().BoolVar(&importMods, "mods", false, "Import the mod configuration")
	cmd.Flags().BoolVar(&importSettings, "settings", false, "Import cluster settings (the instance keeps its name)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")

	return cmd
}
