package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"finboard/internal/core"
	"finboard/internal/export"
	"finboard/internal/log"
	"finboard/internal/services"
)

func newSummaryCmd(a *app) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Fetch both databases and print income, expenses and the category breakdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			sum, err := a.loadSummary(cmd.Context())
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return export.Write(cmd.OutOrStdout(), f, sum)
			}

			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			if err := export.Write(file, f, sum); err != nil {
				_ = file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("close output file: %w", err)
			}
			a.logger.Info("Summary written", "path", output, "format", string(f))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatTable), "Output format: table, json, yaml or csv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

// loadSummary runs one load cycle with the stored credentials.
func (a *app) loadSummary(ctx context.Context) (core.Summary, error) {
	res, cleanup, err := a.open(ctx)
	if err != nil {
		return core.Summary{}, err
	}
	defer cleanup()

	sum, err := res.Dashboard.Load(ctx, res.Credentials.Current())
	if err != nil {
		a.logger.Debug("Summary load failed", log.FieldError, err, log.FieldErrorKind, services.ErrorKind(err))
		return core.Summary{}, errors.New(services.UserMessage(err))
	}
	return sum, nil
}
