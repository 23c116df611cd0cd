package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "relayguard",
	Short: "Screen and relay Telegram messages to registered chats",
	Long:  "RelayGuard watches one source chat, screens every message for scam content, and forwards safe messages to all registered destination chats.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
