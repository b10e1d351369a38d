// Package main implements the spark client daemon.
//
// It loads configuration, signs in to the chat broker, builds the component
// registry and runs until interrupted. The presentation layer attaches to
// the registry; this binary only hosts the core.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sparklabs/spark/internal/config"
	"github.com/sparklabs/spark/internal/events"
	"github.com/sparklabs/spark/internal/logging"
	"github.com/sparklabs/spark/internal/registry"
	"github.com/sparklabs/spark/internal/session"
)

var (
	configPath string
	address    string

	// version information (set via ldflags during build)
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "spark",
	Short: "Spark messaging client core",
	Long: `spark signs in to the chat broker and hosts the component registry
(session, preferences, profiles, search, transfers) for the client.

Examples:
  # Sign in with an explicit address
  spark --address alice@example.com

  # Use a non-default config file
  spark --config ~/.config/spark/config.yaml --address alice@example.com`,
	Version: version,
	RunE:    runClient,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/spark/config.yaml)")
	rootCmd.Flags().StringVar(&address, "address", os.Getenv("SPARK_ADDRESS"), "bare address to sign in as")
}

func runClient(cmd *cobra.Command, args []string) error {
	if address == "" {
		return fmt.Errorf("an address is required (--address or SPARK_ADDRESS)")
	}

	if err := config.EnsureConfigDir(); err != nil {
		return err
	}

	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	sess := session.NewManager(logger)
	if err := sess.Connect(address, session.Config{
		URL:           cfg.Connection.URL,
		Name:          cfg.Connection.Name,
		MaxReconnects: cfg.Connection.MaxReconnects,
		ReconnectWait: cfg.Connection.ReconnectWait.Duration(),
	}); err != nil {
		return err
	}
	defer sess.Close()

	reg, err := registry.New(registry.Options{
		Config:  cfg,
		Logger:  logger,
		Session: sess,
	})
	if err != nil {
		return err
	}
	defer reg.Close()

	userDir, err := reg.UserDir()
	if err != nil {
		return err
	}
	logger.Info("signed in",
		zap.String("address", address),
		zap.String("user_dir", userDir))

	// Surface wire events through logging until a front end attaches.
	evts, err := reg.Events()
	if err != nil {
		return err
	}
	evts.OnDelivered(func(ev events.Event) {
		logger.Debug("message delivered",
			zap.String("from", ev.From),
			zap.String("message", ev.MessageID))
	})
	evts.OnComposing(func(ev events.Event) {
		logger.Debug("peer composing", zap.String("from", ev.From))
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))

	return nil
}
