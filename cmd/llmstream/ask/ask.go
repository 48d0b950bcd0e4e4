// Package askcmder provides the ask command, which prints one streamed
// completion.
package askcmder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/llmstream/bootstrap"
	"github.com/kbukum/llmstream/internal/app"
	"github.com/kbukum/llmstream/llm"
)

type askCommander struct {
	system string
	model  string
	quiet  bool
	out    io.Writer
}

const askLongDesc string = `Send a prompt and print the response as it streams.

Tokens are written to stdout as they arrive; diagnostics go to stderr.

Examples:
  llmstream ask "Write a haiku about Go"
  llmstream ask --system "Answer in French" "What is a goroutine?"
  echo "Summarize this" | llmstream ask -`

const askShortDesc string = "Stream a completion for a prompt"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask [prompt...]",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			cmder.out = cmd.OutOrStdout()

			opts, err := loadOptions(cmd)
			if err != nil {
				return err
			}
			return cmder.run(cmd.Context(), opts, prompt)
		},
	}

	cmd.Flags().StringVarP(&cmder.system, "system", "s", "", "System prompt")
	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Model override")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Print only the final response, not tokens as they arrive")

	return cmd
}

func loadOptions(cmd *cobra.Command) (app.LoadOptions, error) {
	var (
		opts app.LoadOptions
		err  error
	)
	if opts.Debug, err = cmd.Flags().GetBool("debug"); err != nil {
		return opts, fmt.Errorf("could not get debug flag: %w", err)
	}
	if opts.ConfigFile, err = cmd.Flags().GetString("config"); err != nil {
		return opts, fmt.Errorf("could not get config flag: %w", err)
	}
	if opts.EnvFile, err = cmd.Flags().GetString("env-file"); err != nil {
		return opts, fmt.Errorf("could not get env-file flag: %w", err)
	}
	return opts, nil
}

// readPrompt joins args, or reads stdin when the only argument is "-".
func readPrompt(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading prompt: %w", err)
		}
		args = []string{string(b)}
	}
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		return "", fmt.Errorf("prompt is empty")
	}
	return prompt, nil
}

func (c *askCommander) run(ctx context.Context, opts app.LoadOptions, prompt string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := app.Load(opts)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if c.model != "" {
		cfg.LLM.Model = c.model
	}

	a, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}

	return a.RunTask(ctx, func(ctx context.Context) error {
		client, shutdown, err := app.NewClient(ctx, a.Cfg, a.Logger)
		if err != nil {
			return err
		}
		a.OnStop(shutdown)

		messages := make([]llm.Message, 0, 2)
		if c.system != "" {
			messages = append(messages, llm.System(c.system))
		}
		messages = append(messages, llm.User(prompt))

		var receive []llm.ReceiveOption
		if !c.quiet {
			receive = append(receive,
				llm.OnData(func(data string) { _, _ = io.WriteString(c.out, data) }),
				llm.OnEnd(func() { _, _ = fmt.Fprintln(c.out) }),
			)
		}

		text, err := client.StreamSingleResponse(ctx, messages, receive...)
		if c.quiet && text != "" {
			_, _ = fmt.Fprintln(c.out, text)
		}
		return err
	})
}
