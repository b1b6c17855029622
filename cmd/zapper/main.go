// Package main provides the zapper command: it builds or locates OWASP ZAP
// and starts it as a daemon from a CI build step.
package main

import (
	"log/slog"
	"os"

	"github.com/narvanalabs/zapper/pkg/config"
	"github.com/narvanalabs/zapper/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config
	log *logger.Logger

	flagVerbose   bool
	flagLogFormat string
)

func main() {
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: text or json (default $ZAPPER_LOG_FORMAT or text)")

	rootCmd.SilenceErrors = true
	rootCmd.PersistentPreRunE = initZapper

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkHostCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(sealCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		if log != nil {
			log.Error("zapper failed", "error", err)
		} else {
			slog.Error("zapper failed", "error", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "zapper",
	Short:        "Build or locate OWASP ZAP and launch it as a daemon",
	SilenceUsage: true,
}

func initZapper(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	cfg = loaded

	level := logger.ParseLevel(cfg.LogLevel)
	if flagVerbose {
		level = slog.LevelDebug
	}
	format := cfg.LogFormat
	if flagLogFormat != "" {
		format = flagLogFormat
	}
	log = logger.New(level, format == "json")
	slog.SetDefault(log.Logger)
	return nil
}
