package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"finboard/internal/log"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show, save or clear the stored Notion credentials",
	}
	cmd.AddCommand(newConfigSetCmd(a), newConfigShowCmd(a), newConfigClearCmd(a))
	return cmd
}

func newConfigSetCmd(a *app) *cobra.Command {
	var token, incomeID, expensesID string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Save the integration token and both database ids",
		Example: `  finboard-cli config set --token secret_xxx \
    --income-db 0123456789abcdef0123456789abcdef \
    --expenses-db fedcba9876543210fedcba9876543210`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, cleanup, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			saved, err := res.Credentials.Save(ctx, token, incomeID, expensesID)
			if err != nil {
				return err
			}
			a.logger.Debug("Credentials saved", log.FieldOperation, log.OpSave)
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved (token %s).\n", saved.MaskedToken())
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Notion integration token (secret_... or ntn_...)")
	cmd.Flags().StringVar(&incomeID, "income-db", "", "Income database id")
	cmd.Flags().StringVar(&expensesID, "expenses-db", "", "Expenses database id")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("income-db")
	_ = cmd.MarkFlagRequired("expenses-db")
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored configuration with the token masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, cleanup, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			creds := res.Credentials.Current()
			if !creds.IsComplete() {
				fmt.Fprintln(out, "Not configured. Run `finboard-cli config set`.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Token\t%s\n", creds.MaskedToken())
			fmt.Fprintf(tw, "Income database\t%s\n", creds.IncomeDatabaseID)
			fmt.Fprintf(tw, "Expenses database\t%s\n", creds.ExpensesDatabaseID)
			fmt.Fprintf(tw, "Backend\t%s\n", a.cfg.DataBackend)
			fmt.Fprintf(tw, "Transport\t%s\n", a.cfg.NotionTransport)
			return tw.Flush()
		},
	}
}

func newConfigClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, cleanup, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := res.Credentials.Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration cleared.")
			return nil
		},
	}
}
