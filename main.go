package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"crypto-trading-bot/config"
	"crypto-trading-bot/internal/database"
	"crypto-trading-bot/internal/logging"
	"crypto-trading-bot/internal/notification"
	"crypto-trading-bot/internal/preflight"
	"crypto-trading-bot/internal/vault"

	"github.com/spf13/cobra"
)

// errChecksFailed makes the process exit non-zero without printing a second error.
var errChecksFailed = errors.New("preflight checks failed")

type options struct {
	envFile      string
	schemaPath   string
	root         string
	timeout      time.Duration
	probeTimeout time.Duration
	urlChecks    []string
	allowMissing bool
	probeStreams bool
	metricsFile  string
	jsonOutput   bool
	verbose      bool
	skipNotify   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errChecksFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "trading-bot-preflight",
		Short: "Check that the environment is ready for the trading bot",
		Long: `Run the preflight checks that gate trading bot startup.

Stages, in order:
  - imports      required modules are linked into the binary
  - environment  configuration is valid and credentials are present
  - directories  logs, data and backups exist and are writable
  - database     PostgreSQL database exists and the schema is applied; Redis answers
  - exchanges    every active exchange answers its public API (and private API in live mode)

Configuration comes from the environment, then Vault (when VAULT_ADDR and
VAULT_TOKEN are set), then the .env file.

The exit status is 1 when any check fails.`,
		Example: `  # Run all checks
  trading-bot-preflight

  # Paper trading without Kraken keys, with websocket checks
  trading-bot-preflight --allow-missing-credentials --probe-streams

  # Machine-readable report
  trading-bot-preflight --json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.envFile, "env-file", ".env", "dotenv file read after the environment")
	f.StringVar(&opts.schemaPath, "schema", database.DefaultSchemaPath, "SQL script applied to the database")
	f.StringVar(&opts.root, "root", ".", "directory the working directories are created in")
	f.DurationVar(&opts.timeout, "timeout", 0, "deadline for the whole run (0 for none)")
	f.DurationVar(&opts.probeTimeout, "probe-timeout", preflight.DefaultProbeTimeout, "timeout for each connectivity probe")
	f.StringArrayVar(&opts.urlChecks, "check-url", nil, "extra endpoint to probe, as name=url (repeatable)")
	f.BoolVar(&opts.allowMissing, "allow-missing-credentials", false, "in paper mode, skip exchanges without credentials instead of failing")
	f.BoolVar(&opts.probeStreams, "probe-streams", false, "also check each exchange's websocket feed")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	f.BoolVar(&opts.jsonOutput, "json", false, "print the report as JSON")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "list passing checks")
	f.BoolVar(&opts.skipNotify, "no-notify", false, "do not send the Telegram summary")

	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	src, err := loadSource(ctx, opts.envFile)
	if err != nil {
		return err
	}

	urlChecks, err := parseURLChecks(opts.urlChecks)
	if err != nil {
		return err
	}

	// logging and notification settings are read up front; the pipeline reports
	// configuration errors itself
	cfg, cfgErr := config.Load(src)
	logger := newLogger(cfg, opts.root)
	defer logger.Close()
	logging.SetDefault(logger)

	pipelineOpts := []preflight.Option{
		preflight.WithLogger(logger),
		preflight.WithRoot(opts.root),
		preflight.WithBootstrapper(database.NewBootstrapper(
			database.NewPostgresConnector(), database.FileSchema{Path: opts.schemaPath})),
		preflight.WithProbeTimeout(opts.probeTimeout),
		preflight.WithAllowMissingCredentials(opts.allowMissing),
		preflight.WithStreamProbes(opts.probeStreams),
		preflight.WithURLChecks(urlChecks...),
		preflight.WithMetricsFile(opts.metricsFile),
	}
	if cfgErr == nil && cfg.Telegram.Enabled() && !opts.skipNotify {
		pipelineOpts = append(pipelineOpts, preflight.WithNotifier(notification.NewManager(
			notification.NewTelegramNotifier(notification.TelegramConfig{
				BotToken: cfg.Telegram.BotToken,
				ChatID:   cfg.Telegram.ChatID,
			}))))
	}

	report, err := preflight.New(src, pipelineOpts...).Run(ctx)
	if report != nil {
		if opts.jsonOutput {
			if werr := preflight.WriteJSON(cmd.OutOrStdout(), report); werr != nil {
				return werr
			}
		} else {
			preflight.PrintReport(cmd.OutOrStdout(), report, opts.verbose)
		}
	}
	if err != nil {
		return err
	}
	if !report.Passed() {
		return errChecksFailed
	}
	return nil
}

// loadSource layers the process environment over Vault over the dotenv file.
func loadSource(ctx context.Context, envFile string) (config.Source, error) {
	dotenv, err := config.DotEnv(envFile)
	if err != nil {
		return nil, err
	}
	base := config.Layered(config.EnvSource{}, dotenv)

	secrets, err := vault.Load(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	return config.Layered(config.EnvSource{}, secrets, dotenv), nil
}

func newLogger(cfg *config.Config, root string) *logging.Logger {
	lc := &logging.Config{
		Level:     config.DefaultLogLevel,
		Output:    "stderr",
		Component: "preflight",
	}
	if cfg != nil {
		lc.Level = cfg.Logging.Level
		lc.FilePath = cfg.Logging.FilePath
		if lc.FilePath != "" && !filepath.IsAbs(lc.FilePath) {
			lc.FilePath = filepath.Join(root, lc.FilePath)
		}
	}
	return logging.New(lc)
}
