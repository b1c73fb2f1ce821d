// Package cmd implements the chatboat CLI.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chatboat",
	Short: "Chatboat - AI chatbot web backend",
	Long: `Chatboat serves the AI chatbot HTTP API: blocking and SSE streaming
chat endpoints backed by Gemini, plus signup/login token auth.

Running chatboat without arguments starts the server.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
