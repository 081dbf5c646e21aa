package cmd

import (
	"fmt"

	"github.com/Rana718/fakeseed/internal/database"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the tables of the connected schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		tables, err := sess.adapter.ListTables(ctx)
		if err != nil {
			return fmt.Errorf("failed to list tables: %w", err)
		}

		if len(tables) == 0 {
			color.Yellow("⚠️  No tables found in the connected schema")
			return nil
		}

		counts, err := database.RowCounts(ctx, sess.adapter, tables)
		if err != nil {
			return err
		}

		color.Cyan("📋 %d table(s):", len(tables))
		for _, t := range tables {
			fmt.Printf("  • %-30s %d rows\n", t, counts[t])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}
