package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kakeibo/internal/cli"
	"kakeibo/internal/core"
	"kakeibo/internal/export"
	"kakeibo/internal/worker"
)

func exportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export classified rows to CSV or Google Sheets",
	}
	cmd.AddCommand(exportCSVCmd(a), exportSheetsCmd(a))
	return cmd
}

func exportCSVCmd(a *app) *cobra.Command {
	var wf windowFlags
	var outPath string
	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Write classified rows as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := wf.window()
			if err != nil {
				return err
			}
			rows := a.svc.Aggregator().ExportRows(a.svc.Snapshot(), w)
			writer := &export.CSVWriter{}
			if outPath == "" || outPath == "-" {
				return writer.Write(cmd.OutOrStdout(), rows)
			}
			if err := writer.WriteToFile(outPath, rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rows to %s\n", len(rows), outPath)
			return nil
		},
	}
	wf.register(cmd)
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return cmd
}

func exportSheetsCmd(a *app) *cobra.Command {
	var years []int
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Replace the per-year tabs of the configured spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.GoogleSpreadsheetID == "" {
				return fmt.Errorf("GOOGLE_SPREADSHEET_ID is not set")
			}
			dest, err := cli.ExportDestination(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			if len(years) == 0 {
				years = []int{time.Now().Year()}
			}
			w := worker.NewExportWorker(a.svc, dest, a.logger.Slog())
			if err := w.ExportYears(cmd.Context(), years...); err != nil {
				return err
			}
			for _, y := range years {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d (%d rows)\n", y,
					len(a.svc.Aggregator().ExportRows(a.svc.Snapshot(), core.YearWindow(y))))
			}
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&years, "year", nil, "years to export (default current year)")
	return cmd
}
