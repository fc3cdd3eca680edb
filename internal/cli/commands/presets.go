package commands

import (
	"fmt"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/registry"

	"github.com/spf13/cobra"
)

// PresetsCommand creates the world preset listing command
func PresetsCommand(reg *registry.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the available world generation presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range reg.Presets() {
				fmt.Println(name)
			}
			return nil
		},
	}
}
