package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List tables with a domain-specific generator",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := presetRegistry()
		if err != nil {
			return err
		}

		color.Cyan("📦 Preset generators (airportdb):")
		for _, table := range registry.Tables() {
			gen, _ := registry.Lookup(table)
			fmt.Printf("  • %-12s %s\n", table, strings.Join(gen.Columns, ", "))
		}
		color.Yellow("💡 Use --no-presets to fall back to type-based synthesis")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}
