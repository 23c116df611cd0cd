package cmd

import (
	"context"
	"fmt"

	"relayguard/pkg/config"

	"github.com/spf13/cobra"
)

var destinationsCmd = &cobra.Command{
	Use:   "destinations",
	Short: "List registered forward destinations",
	Long:  "Reads the destination registry from its configured backend and prints every registered chat.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		store, closeStore, err := newRegistryStore(cfg.Registry)
		if err != nil {
			fmt.Printf("failed to open destination registry: %v\n", err)
			return
		}
		defer closeStore()

		destinations, err := store.Load(context.Background())
		if err != nil {
			fmt.Printf("failed to load destinations: %v\n", err)
			return
		}

		if len(destinations) == 0 {
			fmt.Println("no destinations registered")
			return
		}

		for _, dest := range destinations {
			fmt.Println(dest)
		}
	},
}

func init() {
	rootCmd.AddCommand(destinationsCmd)
}
