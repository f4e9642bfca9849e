package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wqlog/wqlog/pkg/config"
	"github.com/wqlog/wqlog/pkg/daemon"
	"github.com/wqlog/wqlog/pkg/sheets"
)

type targetFlags struct {
	tab string
	rng string
}

func (f *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.tab, "tab", "", "Sheet tab, defaults to the configured tab.")
	cmd.Flags().StringVar(&f.rng, "range", "", "Range in A1 notation, defaults to the configured range.")
}

// resolve loads the config and builds a client for the target with overrides.
func (f *targetFlags) resolve() (*sheets.Client, sheets.Target, error) {
	c, err := loadConfig()
	if err != nil {
		return nil, sheets.Target{}, err
	}
	if f.tab != "" {
		c.Sheets.Tab = f.tab
	}
	if f.rng != "" {
		c.Sheets.Range = f.rng
	}
	if c.Sheets.SpreadsheetID == "" {
		return nil, sheets.Target{}, &config.Error{Field: "sheets.spreadsheet_id", Reason: "is required"}
	}
	if err := c.ValidateTarget(); err != nil {
		return nil, sheets.Target{}, err
	}

	sc, err := daemon.NewSheetsClient(c)
	if err != nil {
		return nil, sheets.Target{}, err
	}
	return sc, c.Target(), nil
}

func parseRows(arg string) ([][]any, error) {
	var rows [][]any
	if err := json.Unmarshal([]byte(arg), &rows); err != nil {
		return nil, pkgerrors.Wrap(err, `rows must be a JSON array of arrays, e.g. '[["a", 1]]'`)
	}
	return rows, nil
}

func NewSheetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sheet",
		Short:   "Read or write the spreadsheet directly",
		GroupID: gAdvanced,
		Long: `Talk to the spreadsheet with the configured service account, without the daemon.

Useful to check credentials and sharing settings before installing the daemon.`,
	}

	var readFlags, writeFlags, appendFlags targetFlags

	read := &cobra.Command{
		Use:   "read",
		Short: "Print the cells in a range",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, t, err := readFlags.resolve()
			if err != nil {
				return err
			}
			rows, err := sc.ReadRange(cmd.Context(), t)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, row := range rows {
				cells := make([]string, len(row))
				for i, v := range row {
					cells[i] = fmt.Sprint(v)
				}
				fmt.Fprintln(w, strings.Join(cells, "\t"))
			}
			return w.Flush()
		},
	}
	readFlags.register(read)

	write := &cobra.Command{
		Use:   "write <rows-json>",
		Short: "Overwrite the cells in a range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := parseRows(args[0])
			if err != nil {
				return err
			}
			sc, t, err := writeFlags.resolve()
			if err != nil {
				return err
			}
			if _, err := sc.WriteRange(cmd.Context(), t, rows); err != nil {
				return err
			}
			logrus.Infof("wrote %d rows to %s", len(rows), t)
			return nil
		},
	}
	writeFlags.register(write)

	appendCmd := &cobra.Command{
		Use:   "append <value>...",
		Short: "Append one row after the table in a range",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, t, err := appendFlags.resolve()
			if err != nil {
				return err
			}
			row := make([]any, len(args))
			for i, a := range args {
				row[i] = a
			}
			if _, err := sc.AppendRow(cmd.Context(), t, row); err != nil {
				return err
			}
			logrus.Infof("appended 1 row to %s", t)
			return nil
		},
	}
	appendFlags.register(appendCmd)

	cmd.AddCommand(read, write, appendCmd)

	return cmd
}
