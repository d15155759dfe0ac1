// Command msa parses M-PESA statement PDFs from the command line: reports, ledger
// exports, search over categorized transactions and rule table maintenance.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/categorization"
	importservice "github.com/FACorreiaa/mpesa-analyzer/internal/domain/import/service"
	"github.com/FACorreiaa/mpesa-analyzer/pkg/config"
	"github.com/FACorreiaa/mpesa-analyzer/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries the state shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	loc    *time.Location
	rules  []categorization.Rule

	rulesFile string
	timezone  string
	logLevel  string
	envFile   string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "msa",
		Short:         "Analyze M-PESA statements",
		Long:          `msa extracts, categorizes and reports on M-PESA PDF statements.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.rulesFile, "rules", "", "YAML rule table (default: built-in table or PIPELINE_RULES_FILE)")
	root.PersistentFlags().StringVar(&a.timezone, "timezone", "", "timezone of statement times (default: PIPELINE_TIMEZONE)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default: LOG_LEVEL)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "env file to load before reading configuration")

	root.AddCommand(
		newParseCmd(a),
		newExportCmd(a),
		newReprocessCmd(a),
		newSearchCmd(a),
		newRulesCmd(a),
	)
	return root
}

// setup loads configuration and applies flag overrides.
func (a *app) setup(stderr io.Writer) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	if a.rulesFile != "" {
		cfg.Pipeline.RulesFile = a.rulesFile
	}
	if a.timezone != "" {
		cfg.Pipeline.Timezone = a.timezone
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	// Reports go to stdout; logs stay on stderr in text form.
	a.logger = logger.New(stderr, cfg.Logging.Level, "text")

	if a.loc, err = cfg.Pipeline.Location(); err != nil {
		return err
	}
	if a.rules, err = categorization.LoadRulesFile(cfg.Pipeline.RulesFile); err != nil {
		return err
	}
	return nil
}

// service builds a statement service for one command run.
func (a *app) service() *importservice.StatementService {
	return importservice.NewStatementService(categorization.NewCategorizer(a.rules), a.loc, a.logger).
		WithConcurrency(a.cfg.Pipeline.BatchConcurrency)
}

// output opens path for writing, or returns stdout when path is empty or "-".
func output(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, f.Close, nil
}
