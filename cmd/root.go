package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/4rdii/transaction-debugger-agent/internal/version"
	"github.com/4rdii/transaction-debugger-agent/pkg/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	log              = logrus.New()
	serverConfigFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tx-debugger",
	Short: "Explains EVM transactions.",
	Long:  `Runs the transaction debugger API, which explains what an EVM transaction did and why it failed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverConfigFile, "config", "", "config file (default is ./config.yaml)")
}

// loadConfig reads the config file and applies its logging level.
func loadConfig() (*server.Config, error) {
	config, err := server.LoadConfig(serverConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	level, err := logrus.ParseLevel(config.LoggingLevel)
	if err != nil {
		log.WithError(err).Warn("Invalid logging level, using info")

		level = logrus.InfoLevel
	}

	log.SetLevel(level)

	return config, nil
}

func runServer(ctx context.Context) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	log.WithField("version", version.Short()).Info("Starting tx-debugger")

	srv, err := server.NewServer(ctx, log, config)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	log.Info("tx-debugger server exited - cya!")

	return nil
}
