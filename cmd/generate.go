package cmd

import (
	"github.com/Rana718/fakeseed/internal/seeder"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate <table>",
	Short: "Generate fake rows for one table and load them",
	Long: `Reflect the table from the live catalog, synthesize rows that respect its
column constraints and load them in a single transaction. Auto-generated columns
are left to the database. In replace mode existing rows are deleted in the same
transaction; any failure rolls both steps back.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		registry, err := presetRegistry()
		if err != nil {
			return err
		}

		opts, err := seedOptions(cmd, sess.cfg, args[0])
		if err != nil {
			return err
		}
		s := seeder.New(sess.adapter, registry, opts, sess.log)

		progress := &progressReporter{}
		s.OnProgress(progress.update)

		if isDryRun(cmd) {
			table, err := sess.adapter.ReflectTable(ctx, args[0])
			if err != nil {
				return reportError(err)
			}
			batch, err := s.GenerateRows(ctx, table, opts.CountFor(table.Name))
			progress.finish()
			if err != nil {
				return reportError(err)
			}
			return emitBatches(cmd, []*seeder.Batch{batch})
		}

		color.Cyan("🌱 Seeding %s (%s mode)...", args[0], opts.Mode)
		result, err := s.SeedTable(ctx, args[0])
		progress.finish()
		if err != nil {
			return reportError(err)
		}

		printLoadResult(result, opts.Mode)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	addSeedFlags(generateCmd)
	addDryRunFlags(generateCmd)
}
