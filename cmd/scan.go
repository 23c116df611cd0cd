package cmd

import (
	"fmt"
	"strings"

	"relayguard/pkg/bus"
	"relayguard/pkg/classifier"
	"relayguard/pkg/config"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [text]",
	Short: "Classify a message text without running the relay",
	Long:  "Runs the content-safety classifier over the given text and prints the verdict. Uses classifier rules from config.json when present, built-in defaults otherwise.",
	Run: func(cmd *cobra.Command, args []string) {
		text := strings.TrimSpace(strings.Join(args, " "))
		if text == "" {
			fmt.Println("nothing to scan, pass message text as arguments")
			return
		}

		cls, err := classifier.New(scanRules())
		if err != nil {
			fmt.Printf("failed to build classifier: %v\n", err)
			return
		}

		verdict := cls.Classify(bus.InboundMessage{Text: text})
		fmt.Println(verdict.String())
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

// scanRules loads classifier rules from config when available; scanning
// should work without a deployment config.
func scanRules() config.ClassifierConfig {
	cfg, err := config.LoadConfig()
	if err != nil {
		return config.ClassifierConfig{}
	}

	return cfg.Classifier
}
