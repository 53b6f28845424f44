package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"contas/internal/cli"
	"contas/internal/config"
	"contas/internal/log"
)

var (
	envFile   string
	logLevel  string
	logFormat string

	// Set by the root command before any subcommand runs.
	appCfg *config.Config
	logger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "contas",
	Short: "Personal ledger of receivables and payables",
	Long: `contas tracks money to receive and money to pay, expands recurring
entries into installments and reports monthly balances per category.

Run "contas serve" for the HTTP API or use the entry commands directly
against the configured backend (DATA_BACKEND=sqlite for persistent data).`,
	SilenceUsage:      true,
	PersistentPreRunE: initApp,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json); overrides LOG_FORMAT")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(editCmd())
	rootCmd.AddCommand(toggleCmd())
	rootCmd.AddCommand(rmCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(growthCmd())
	rootCmd.AddCommand(sheetsAuthCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		os.Exit(1)
	}
}

func initApp(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile(envFile)

	cfg := config.Load()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	appCfg = cfg

	if cmd.Name() == "serve" {
		logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentApp)
	} else {
		logger = cli.SetupLoggerTo(os.Stderr, cfg.LogLevel, cfg.LogFormat, log.ComponentCLI)
	}
	return nil
}
