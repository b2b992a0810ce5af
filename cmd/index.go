package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/finchdesk/finch/internal/app"
	"github.com/finchdesk/finch/internal/config"
	"github.com/finchdesk/finch/internal/log"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the FAQ knowledge index from the source document",
	Long: `Deletes the persisted FAQ index and rebuilds it by chunking and
embedding the configured FAQ document. Run this after editing the FAQ.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(log.Config{JSON: cfg.LogJSON})

	count, err := app.RebuildIndex(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}

	fmt.Printf("Indexed %d chunks from %s into %s\n", count, cfg.FAQPath, cfg.IndexPath)
	return nil
}
