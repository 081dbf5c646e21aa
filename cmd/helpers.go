package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rana718/fakeseed/internal/config"
	"github.com/Rana718/fakeseed/internal/database"
	"github.com/Rana718/fakeseed/internal/logging"
	"github.com/Rana718/fakeseed/internal/seeder"
	"github.com/Rana718/fakeseed/internal/seeder/airportdb"
	"github.com/Rana718/fakeseed/internal/types"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// session bundles what every database command needs.
type session struct {
	cfg     *config.Config
	adapter database.DatabaseAdapter
	log     zerolog.Logger
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	dbURL, err := cfg.GetDatabaseURL()
	if err != nil {
		return nil, err
	}

	adapter := database.NewAdapter(cfg.Database.Provider)
	if err := adapter.Connect(ctx, dbURL); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := adapter.Ping(ctx); err != nil {
		adapter.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Debug().Str("provider", adapter.Provider()).Msg("connected")
	return &session{cfg: cfg, adapter: adapter, log: log}, nil
}

func (s *session) Close() error {
	return s.adapter.Close()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// seedOptions applies command line overrides on top of the config file.
// With --ask the mode comes from the answer read on stdin.
func seedOptions(cmd *cobra.Command, cfg *config.Config, target string) (seeder.Options, error) {
	opts := cfg.SeedOptions()
	flags := cmd.Flags()

	if flags.Changed("count") {
		opts.Count, _ = flags.GetInt("count")
		opts.Tables = nil
		if opts.Count <= 0 {
			return opts, fmt.Errorf("--count must be positive, got %d", opts.Count)
		}
	}
	if flags.Changed("mode") {
		mode, _ := flags.GetString("mode")
		opts.Mode = seeder.ParseMode(mode)
	}
	if replace, _ := flags.GetBool("replace"); replace {
		opts.Mode = seeder.ModeReplace
	}
	if flags.Changed("seed") {
		opts.RandomSeed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("unique-scope") {
		raw, _ := flags.GetString("unique-scope")
		scope, err := seeder.ParseUniqueScope(raw)
		if err != nil {
			return opts, fmt.Errorf("--unique-scope: %w", err)
		}
		opts.UniqueScope = scope
	}
	if noPresets, _ := flags.GetBool("no-presets"); noPresets {
		opts.UsePresets = false
	}
	if flags.Changed("timeout") {
		opts.TxTimeout, _ = flags.GetDuration("timeout")
	}
	if ask, _ := flags.GetBool("ask"); ask && !isDryRun(cmd) {
		opts.Mode = askMode(os.Stdin, os.Stdout, target)
	}
	return opts, nil
}

func addSeedFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("count", "n", 100, "Rows to generate per table")
	cmd.Flags().String("mode", "n", "Replace existing rows? (y/Y replaces, anything else appends)")
	cmd.Flags().Bool("replace", false, "Delete existing rows before inserting")
	cmd.Flags().Bool("ask", false, "Ask interactively whether to delete existing rows first")
	cmd.Flags().Int64("seed", 0, "Random seed (0 = time based)")
	cmd.Flags().String("unique-scope", "column", "Composite unique handling: column or tuple")
	cmd.Flags().Bool("no-presets", false, "Ignore preset generators and use type-based synthesis")
	cmd.Flags().Duration("timeout", 5*time.Minute, "Transaction timeout")
}

func presetRegistry() (*seeder.Registry, error) {
	return airportdb.Registry()
}

// progressReporter renders one progress bar per table.
type progressReporter struct {
	bar   *progressbar.ProgressBar
	table string
}

func (p *progressReporter) update(table string, done, total int) {
	if p.bar == nil || p.table != table {
		if p.bar != nil {
			p.bar.Finish()
			fmt.Fprintln(os.Stderr)
		}
		p.table = table
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(fmt.Sprintf("Generating %-20s", table)),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("rows"),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	p.bar.Set(done)
}

func (p *progressReporter) finish() {
	if p.bar != nil {
		p.bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
}

func printLoadResult(result *seeder.LoadResult, mode seeder.Mode) {
	fmt.Println()
	for _, t := range result.Tables {
		if mode == seeder.ModeReplace {
			color.Green("✅ %-24s deleted %-6d inserted %d", t.Table, t.Deleted, t.Inserted)
		} else {
			color.Green("✅ %-24s inserted %d", t.Table, t.Inserted)
		}
	}
	if mode == seeder.ModeReplace {
		color.Cyan("📊 %d row(s) deleted, %d inserted into %d table(s)", result.Deleted(), result.Inserted(), len(result.Tables))
		return
	}
	color.Cyan("📊 %d row(s) inserted into %d table(s) (%s mode)", result.Inserted(), len(result.Tables), mode)
}

// reportedError marks an error already printed by reportError.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// reportError prints a colored explanation for the typed errors the seeder
// returns and marks err as printed.
func reportError(err error) error {
	var (
		capErr  *seeder.UniquenessCapacityError
		exhErr  *seeder.UniquenessExhaustedError
		loadErr *seeder.LoadError
	)

	switch {
	case errors.Is(err, types.ErrSchemaNotFound):
		color.Red("❌ %v", err)
		color.Yellow("💡 Run 'fakeseed tables' to list the tables of the connected schema")
	case errors.As(err, &capErr):
		color.Red("❌ %v", err)
		color.Yellow("💡 Lower --count to at most %d for %v", capErr.Capacity, capErr.Columns)
	case errors.As(err, &exhErr):
		color.Red("❌ %v", err)
		color.Yellow("💡 Raise seed.max_attempts or lower --count")
	case errors.As(err, &loadErr):
		color.Red("❌ %v", err)
		if loadErr.Integrity {
			color.Yellow("💡 The store rejected a row; try --unique-scope tuple for composite unique indexes")
		}
		if loadErr.Committed {
			color.Yellow("⚠️  Rows deleted before the failure were committed and are gone")
		}
	case errors.Is(err, context.Canceled):
		color.Yellow("⚠️  Interrupted, nothing was committed")
	case errors.Is(err, context.DeadlineExceeded):
		color.Red("❌ Transaction timed out: %v", err)
	default:
		color.Red("❌ %v", err)
	}
	return &reportedError{err: err}
}
