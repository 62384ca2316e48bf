// Command dbinit creates the trading bot database if it is missing and applies the
// schema script. It is the database stage of the preflight run on its own.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-trading-bot/config"
	"crypto-trading-bot/internal/database"
	"crypto-trading-bot/internal/logging"

	"github.com/spf13/cobra"
)

func main() {
	var (
		envFile    string
		schemaPath string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:           "dbinit",
		Short:         "Create the database and apply the schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			dotenv, err := config.DotEnv(envFile)
			if err != nil {
				return err
			}
			cfg, err := config.Load(config.Layered(config.EnvSource{}, dotenv))
			if err != nil {
				return err
			}

			logger := logging.New(&logging.Config{Level: cfg.Logging.Level, Output: "stderr", Component: "dbinit"})
			defer logger.Close()
			ctx = logging.NewContext(ctx, logger)

			b := database.NewBootstrapper(database.NewPostgresConnector(), database.FileSchema{Path: schemaPath})
			res := b.EnsureDatabase(ctx, cfg)
			out := cmd.OutOrStdout()
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "[WARN] %s\n", w)
			}
			if !res.OK {
				return errors.New(res.Message)
			}
			fmt.Fprintf(out, "[PASS] %s (%d tables, %s)\n", res.Message, len(res.Tables), res.Duration.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file read after the environment")
	cmd.Flags().StringVar(&schemaPath, "schema", database.DefaultSchemaPath, "SQL script applied to the database")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "deadline for the bootstrap")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[FAIL] %v\n", err)
		os.Exit(1)
	}
}
