package cmd

import (
	"github.com/Rana718/fakeseed/internal/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default fakeseed.config.json",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.InitializeProject(); err != nil {
			return err
		}
		color.Green("✅ Created %s", config.FileName)
		color.Cyan("💡 Set DATABASE_URL (or the variable named by database.url_env) before seeding")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
