package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/Rana718/fakeseed/internal/types"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var showLimit uint64

var showCmd = &cobra.Command{
	Use:   "show <table>",
	Short: "Print rows currently stored in a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		table, err := sess.adapter.ReflectTable(ctx, args[0])
		if err != nil {
			return reportError(err)
		}

		rows, err := sess.adapter.TableRows(ctx, table.Name, showLimit)
		if err != nil {
			return err
		}

		if len(rows) == 0 {
			color.Yellow("⚠️  %s is empty", table.Name)
			return nil
		}

		columns := rowColumns(table, rows[0])
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for i, c := range columns {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, c)
		}
		fmt.Fprintln(tw)
		for _, row := range rows {
			for i, c := range columns {
				if i > 0 {
					fmt.Fprint(tw, "\t")
				}
				if row[c] == nil {
					fmt.Fprint(tw, "NULL")
				} else {
					fmt.Fprint(tw, row[c])
				}
			}
			fmt.Fprintln(tw)
		}
		tw.Flush()

		color.Cyan("📊 %d row(s)", len(rows))
		return nil
	},
}

// rowColumns keeps declared order and appends anything the catalog did not report.
func rowColumns(table *types.TableMetadata, row map[string]interface{}) []string {
	seen := make(map[string]bool, len(row))
	var columns []string
	for _, c := range table.Columns {
		if _, ok := row[c.Name]; ok {
			columns = append(columns, c.Name)
			seen[c.Name] = true
		}
	}
	var extra []string
	for name := range row {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(columns, extra...)
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().Uint64VarP(&showLimit, "limit", "l", 20, "Maximum rows to print (0 = all)")
}
