package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"relayguard/pkg/channel/telegram"
	"relayguard/pkg/classifier"
	"relayguard/pkg/config"
	"relayguard/pkg/gateway"
	"relayguard/pkg/logger"
	"relayguard/pkg/registry"
	"relayguard/pkg/relay"

	"github.com/spf13/cobra"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the forwarding relay",
	Long:  "Runs the full relay pipeline with status and readiness endpoints: classify messages from the source chat and forward safe ones to every registered destination.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.relay")

		store, closeStore, err := newRegistryStore(cfg.Registry)
		if err != nil {
			log.Error("Failed to open destination registry", "error", err)
			return
		}
		defer closeStore()

		reg := registry.New(store)

		cls, err := classifier.New(cfg.Classifier)
		if err != nil {
			log.Error("Classifier configuration invalid", "error", err)
			return
		}

		adapter, err := telegram.NewAdapter(cfg.Telegram, cfg.Gateway.BaseURL, log)
		if err != nil {
			log.Error("Failed to configure telegram channel", "error", err)
			return
		}

		pipeline := relay.NewPipeline(cfg.Relay, reg, cls, adapter, log)

		svc, err := gateway.NewService(cfg, adapter, pipeline.HandleInbound, reg, log)
		if err != nil {
			log.Error("Failed to initialize relay service", "error", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info("Relay started", "mode", cfg.Telegram.Mode, "source_chat_id", cfg.Relay.SourceChatID, "registry_backend", cfg.Registry.Backend)
		if err := svc.Run(runCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Relay runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(relayCmd)
}

// newRegistryStore builds the configured registry backend.
func newRegistryStore(cfg config.RegistryConfig) (registry.Store, func(), error) {
	switch cfg.Backend {
	case "sqlite":
		store, err := registry.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "file", "":
		return registry.NewFileStore(cfg.Path), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported registry backend %q", cfg.Backend)
	}
}
