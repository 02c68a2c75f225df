package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"finboard/internal/log"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the summary to an external destination",
	}
	cmd.AddCommand(newExportSheetsCmd(a))
	return cmd
}

func newExportSheetsCmd(a *app) *cobra.Command {
	var spreadsheetID, sheetName string

	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Replace the content of a Google Sheets tab with the summary",
		Long: `Writes the totals and the category breakdown to a Google Sheets tab.
Authentication uses a service account: GOOGLE_SERVICE_ACCOUNT_JSON,
GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if spreadsheetID != "" {
				a.cfg.GoogleSpreadsheetID = spreadsheetID
			}
			if sheetName != "" {
				a.cfg.GoogleSheetName = sheetName
			}

			writer, err := a.opts.NewSheetsWriter(ctx, a.cfg)
			if err != nil {
				return err
			}

			sum, err := a.loadSummary(ctx)
			if err != nil {
				return err
			}

			updated, err := writer.WriteSummary(ctx, sum)
			if err != nil {
				return err
			}
			a.logger.WithComponent(log.ComponentSheets).Info("Summary exported",
				log.FieldOperation, log.OpExport,
				"range", updated)
			fmt.Fprintf(cmd.OutOrStdout(), "Exported summary to %s\n", updated)
			return nil
		},
	}

	cmd.Flags().StringVar(&spreadsheetID, "spreadsheet", "", "Spreadsheet id, overrides GOOGLE_SPREADSHEET_ID")
	cmd.Flags().StringVar(&sheetName, "sheet", "", "Sheet name, overrides GOOGLE_SHEET_NAME")
	return cmd
}
