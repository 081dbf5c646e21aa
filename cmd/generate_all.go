package cmd

import (
	"github.com/Rana718/fakeseed/internal/seeder"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var generateAllCmd = &cobra.Command{
	Use:   "generate-all [table...]",
	Short: "Generate fake rows for every table and load them together",
	Long: `Reflect every table of the connected schema (or the named ones), order them
so foreign key parents come first, generate rows for each and load them.

By default everything runs in one transaction. With --two-phase deletes are
committed in a first transaction and inserts in a second one; a failure in the
insert phase then leaves the deleted tables empty.`,
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

		opts, err := seedOptions(cmd, sess.cfg, "all tables")
		if err != nil {
			return err
		}
		if twoPhase, _ := cmd.Flags().GetBool("two-phase"); twoPhase {
			opts.AtomicAll = false
		}
		if !opts.AtomicAll && opts.Mode == seeder.ModeReplace {
			color.Yellow("⚠️  Two-phase load: deletes are committed before inserts start")
		}

		s := seeder.New(sess.adapter, registry, opts, sess.log)
		progress := &progressReporter{}
		s.OnProgress(progress.update)

		if isDryRun(cmd) {
			batches, err := s.GenerateAll(ctx, args...)
			progress.finish()
			if err != nil {
				return reportError(err)
			}
			return emitBatches(cmd, batches)
		}

		color.Cyan("🌱 Seeding all tables (%s mode)...", opts.Mode)
		result, err := s.SeedAll(ctx, args...)
		progress.finish()
		if err != nil {
			return reportError(err)
		}

		printLoadResult(result, opts.Mode)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateAllCmd)
	addSeedFlags(generateAllCmd)
	addDryRunFlags(generateAllCmd)
	generateAllCmd.Flags().Bool("two-phase", false, "Commit deletes and inserts in separate transactions")
}
