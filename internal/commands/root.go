// Package commands implements the finboard-cli command tree.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"finboard/internal/backend"
	"finboard/internal/cli"
	"finboard/internal/config"
	"finboard/internal/core"
	"finboard/internal/export/sheets"
	"finboard/internal/log"
)

// SummaryWriter publishes a summary somewhere outside the process.
type SummaryWriter interface {
	WriteSummary(ctx context.Context, sum core.Summary) (string, error)
}

// Options lets main and tests swap the collaborators of the command tree.
type Options struct {
	Out io.Writer
	Err io.Writer

	LoadConfig      func() (*config.Config, error)
	NewFactory      func(logger *slog.Logger) backend.Factory
	NewSheetsWriter func(ctx context.Context, cfg *config.Config) (SummaryWriter, error)
}

func (o Options) withDefaults() Options {
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Err == nil {
		o.Err = os.Stderr
	}
	if o.LoadConfig == nil {
		o.LoadConfig = cli.LoadConfig
	}
	if o.NewFactory == nil {
		o.NewFactory = backend.NewFactory
	}
	if o.NewSheetsWriter == nil {
		o.NewSheetsWriter = newSheetsWriter
	}
	return o
}

type app struct {
	opts    Options
	envFile string
	backend string

	cfg    *config.Config
	logger *log.Logger
}

// NewRootCmd builds the finboard-cli command tree.
func NewRootCmd(opts Options) *cobra.Command {
	a := &app{opts: opts.withDefaults()}

	root := &cobra.Command{
		Use:   "finboard-cli",
		Short: "Manage Notion credentials and print the finance summary.",
		Long: `finboard-cli shares the credential store of the finboard dashboard.
It saves or clears the Notion token and database ids, prints the
income/expense summary and exports it to Google Sheets.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.SetOut(a.opts.Out)
	root.SetErr(a.opts.Err)

	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "Load environment variables from this file (default .env)")
	root.PersistentFlags().StringVar(&a.backend, "backend", "", "Credential store backend, overrides DATA_BACKEND (sqlite or memory)")

	root.AddCommand(newConfigCmd(a))
	root.AddCommand(newSummaryCmd(a))
	root.AddCommand(newExportCmd(a))

	return root
}

func (a *app) init() error {
	if a.envFile != "" {
		cli.LoadEnvFile(a.envFile)
	} else {
		cli.LoadEnvFile()
	}

	a.logger = cli.SetupLoggerTo(a.opts.Err, log.ComponentCLI)

	cfg, err := a.opts.LoadConfig()
	if err != nil {
		return err
	}
	if a.backend != "" {
		cfg.DataBackend = a.backend
	}
	a.cfg = cfg
	return nil
}

// open builds the backend for one command. The caller must run the returned
// cleanup.
func (a *app) open(ctx context.Context) (*backend.Result, func(), error) {
	bc, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := a.opts.NewFactory(a.logger.Logger).Create(ctx, bc)
	if err != nil {
		return nil, nil, fmt.Errorf("open backend: %w", err)
	}
	cleanup := func() {
		if err := res.Cleanup(); err != nil {
			a.logger.Warn("Backend cleanup failed", log.FieldError, err)
		}
	}
	return res, cleanup, nil
}

func newSheetsWriter(ctx context.Context, cfg *config.Config) (SummaryWriter, error) {
	if err := cfg.ValidateSheets(); err != nil {
		return nil, err
	}
	w, err := sheets.New(ctx, sheets.Options{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}
