package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/Rana718/fakeseed/internal/seeder"
	"github.com/Rana718/fakeseed/internal/types"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var inspectFormat string

var inspectCmd = &cobra.Command{
	Use:   "inspect [table...]",
	Short: "Show the constraint records extracted for tables",
	Long: `Reflect tables from the live catalog and print, per column, the parsed base
type, size, decimal places, enum literals and the primary/unique/auto flags the
generator works from. Without arguments every table is inspected, parents first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		s := seeder.New(sess.adapter, nil, sess.cfg.SeedOptions(), sess.log)
		tables, err := s.Reflect(ctx, args...)
		if err != nil {
			return err
		}

		switch strings.ToLower(inspectFormat) {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(tables)
		case "yaml":
			enc := yaml.NewEncoder(os.Stdout)
			defer enc.Close()
			return enc.Encode(tables)
		case "table", "":
			for _, t := range tables {
				printTable(os.Stdout, t)
			}
			return nil
		default:
			return fmt.Errorf("unsupported format %q (table, json, yaml)", inspectFormat)
		}
	},
}

func printTable(w io.Writer, t *types.TableMetadata) {
	color.New(color.FgCyan, color.Bold).Fprintf(w, "\n📦 %s\n", t.Name)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tFAMILY\tSIZE\tDP\tFLAGS\tENUM")
	for _, c := range t.Columns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Name, c.RawType, c.Family, optInt(c.Size), optInt(c.DecimalPlace),
			columnFlags(c), strings.Join(c.EnumValues, ","))
	}
	tw.Flush()

	for _, idx := range t.UniqueIndexes {
		if len(idx) > 1 {
			color.New(color.FgYellow).Fprintf(w, "  composite unique: (%s)\n", strings.Join(idx, ", "))
		}
	}
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func columnFlags(c types.ColumnMetadata) string {
	var flags []string
	if c.Primary {
		flags = append(flags, "pk")
	}
	if c.Unique {
		flags = append(flags, "unique")
	}
	if c.AutoGenerated {
		flags = append(flags, "auto")
	}
	if c.Nullable {
		flags = append(flags, "null")
	}
	if c.ForeignKeyTable != "" {
		flags = append(flags, "fk:"+c.ForeignKeyTable)
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&inspectFormat, "format", "o", "table", "Output format: table, json, yaml")
}
