// Package cmd wires the CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "finch",
	Short: "Finch - customer support chat agent",
	Long: `Finch is a customer-support chat agent for Sendbird-style platforms.

It answers customer messages with a retrieval-augmented model, can look up
and cancel orders, quote refunds, and escalate to a human agent. Running
finch without a subcommand starts the webhook server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
