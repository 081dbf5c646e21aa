package cmd

import (
	"encoding/json"
	"os"

	"github.com/Rana718/fakeseed/internal/export"
	"github.com/Rana718/fakeseed/internal/seeder"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func addDryRunFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "Generate rows without loading them")
	cmd.Flags().String("out", "", "With --dry-run, write fixtures to this directory instead of stdout")
	cmd.Flags().String("format", "json", "Fixture format for --out (json, csv)")
}

func isDryRun(cmd *cobra.Command) bool {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	return dryRun
}

// emitBatches prints generated rows as JSON, or writes fixture files when
// --out is set.
func emitBatches(cmd *cobra.Command, batches []*seeder.Batch) error {
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		tables := make(map[string][]seeder.Row, len(batches))
		for _, b := range batches {
			tables[b.Table] = b.Rows
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if len(batches) == 1 {
			return enc.Encode(batches[0].Rows)
		}
		return enc.Encode(tables)
	}

	format, _ := cmd.Flags().GetString("format")
	path, err := export.Write(batches, out, format)
	if err != nil {
		return err
	}
	color.Green("✅ Fixtures written to %s", path)
	return nil
}
