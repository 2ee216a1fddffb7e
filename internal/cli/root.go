// Package cli implements the bitnet command-line interface using Cobra.
// Each subcommand wires the daemon locally (pull, list, run, serve, etc.).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bitnet",
	Short: "BitNet — Run 1-bit LLMs locally",
	Long: `BitNet manages ternary (1.58-bit) language models on your machine.
Download official BitNet weights from HuggingFace, run CPU-only inference
through the bitnet.cpp llama-cli binary, and serve an OpenAI-style HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
