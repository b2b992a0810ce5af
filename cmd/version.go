package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/finchdesk/finch/internal/config"
)

// Version information (injected at build time via ldflags)
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and configuration information",
	RunE: func(*cobra.Command, []string) error {
		return runVersion()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion() error {
	fmt.Printf("Finch %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Println("Configuration:")
	fmt.Printf("  Provider: %s\n", cfg.Provider)
	fmt.Printf("  Model: %s\n", cfg.FullModelName())
	fmt.Printf("  Embedder: %s\n", cfg.EmbedderModel)
	fmt.Printf("  FAQ source: %s\n", cfg.FAQPath)
	fmt.Printf("  Index path: %s\n", cfg.IndexPath)

	// Check API key presence without printing the full value
	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey != "" && len(geminiKey) >= 8 {
		fmt.Printf("  GEMINI_API_KEY: %s...%s (configured)\n",
			geminiKey[:4], geminiKey[len(geminiKey)-4:])
	} else if geminiKey != "" {
		fmt.Println("  GEMINI_API_KEY: configured")
	} else {
		fmt.Println("  GEMINI_API_KEY: Not set")
	}

	return nil
}
