// Package llmstreamcmder is the root llmstream cobra command.
package llmstreamcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	askcmder "github.com/kbukum/llmstream/cmd/llmstream/ask"
	servecmder "github.com/kbukum/llmstream/cmd/llmstream/serve"
	"github.com/kbukum/llmstream/version"
)

const llmstreamLongDesc string = `llmstream streams chat completions from an OpenAI-compatible API.

Commands:
  llmstream ask "prompt"    Print a completion as it streams
  llmstream serve           Relay completions over HTTP as Server-Sent Events

Configuration is read from llmstream.yml, .env and LLMSTREAM_* environment
variables. OPENAI_API_KEY is used when no API key is configured.`

const llmstreamShortDesc string = "llmstream - streaming chat completions"

func NewLLMStreamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "llmstream",
		Short:         llmstreamShortDesc,
		Long:          llmstreamLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to config file (default: search llmstream.yml, config.yml)")
	cmd.PersistentFlags().String("env-file", "", "Path to .env file (default: search .env.llmstream, .env)")

	// Add subcommands
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
			return err
		},
	}
}
