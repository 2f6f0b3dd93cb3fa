package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/tripcost/internal/common"
	"github.com/Veraticus/tripcost/internal/config"
)

var (
	version = "dev"

	// logCloser releases the rotating log file opened by initConfig.
	logCloser io.Closer
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "tripcost",
		Short: "🚆 Business trip cost prediction",
		Long: `tripcost predicts what a business trip will cost from the trips that came before it.

It keeps a table of past trips, fits a linear cost model on it after every
new expense report, and answers cost questions from the command line or
over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd, cfgFile)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/tripcost/config.yaml)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "console", "log format (console, json)")
	root.PersistentFlags().String("log-file", "", "write logs to this file with rotation instead of stderr")

	root.AddCommand(seedCmd())
	root.AddCommand(trainCmd())
	root.AddCommand(predictCmd())
	root.AddCommand(forecastCmd())
	root.AddCommand(recordCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(versionCmd())

	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if logCloser != nil {
		_ = logCloser.Close()
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, cfgFile string) error {
	v := viper.GetViper()
	config.SetDefaults(v)

	flags := cmd.Root().PersistentFlags()
	_ = v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("logging.format", flags.Lookup("log-format"))
	_ = v.BindPFlag("logging.file", flags.Lookup("log-file"))

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".config", "tripcost"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	config.BindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// No config file: defaults and environment only.
	}

	if err := setupLogging(v); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

func setupLogging(v *viper.Viper) error {
	closer, err := common.SetupLogger(common.LogOptions{
		Level:      v.GetString("logging.level"),
		Format:     v.GetString("logging.format"),
		File:       config.ExpandPath(v.GetString("logging.file")),
		MaxSizeMB:  v.GetInt("logging.max_size_mb"),
		MaxBackups: v.GetInt("logging.max_backups"),
	})
	if err != nil {
		return err
	}
	if logCloser != nil {
		_ = logCloser.Close()
	}
	logCloser = closer
	return nil
}

// loadConfig resolves the configuration for a command.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tripcost %s\n", version)
			slog.Debug("tripcost version", "version", version)
		},
	}
}
