// Package servecmder provides the serve command, which relays streamed
// completions to HTTP clients as Server-Sent Events.
package servecmder

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/llmstream/bootstrap"
	"github.com/kbukum/llmstream/internal/app"
	"github.com/kbukum/llmstream/resilience"
	"github.com/kbukum/llmstream/server"
	"github.com/kbukum/llmstream/sse"
)

type serveCommander struct {
	host       string
	port       int
	keepAlive  time.Duration
	maxStreams int
}

const serveLongDesc string = `Start an HTTP server that relays chat completions.

Endpoints:
  POST /v1/stream     Stream records as Server-Sent Events
  POST /v1/complete   Return the accumulated response as JSON
  GET  /healthz       Health check
  GET  /version       Build information

Examples:
  llmstream serve
  llmstream serve --port 9000
  curl -N -d '{"messages":[{"role":"user","content":"Hi"}]}' localhost:8080/v1/stream`

const serveShortDesc string = "Relay completions over HTTP"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				opts app.LoadOptions
				err  error
			)
			if opts.Debug, err = cmd.Flags().GetBool("debug"); err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			if opts.ConfigFile, err = cmd.Flags().GetString("config"); err != nil {
				return fmt.Errorf("could not get config flag: %w", err)
			}
			if opts.EnvFile, err = cmd.Flags().GetString("env-file"); err != nil {
				return fmt.Errorf("could not get env-file flag: %w", err)
			}

			cfg, err := app.Load(opts)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = cmder.host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = cmder.port
			}
			if cmd.Flags().Changed("max-streams") {
				cfg.Streams.MaxConcurrent = cmder.maxStreams
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return cmder.run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&cmder.host, "host", "", "Listen host (overrides server.host)")
	cmd.Flags().IntVarP(&cmder.port, "port", "p", 8080, "Listen port (overrides server.port)")
	cmd.Flags().IntVar(&cmder.maxStreams, "max-streams", 0, "Maximum concurrent relay requests, 0 for no limit (overrides streams.max_concurrent)")
	cmd.Flags().DurationVar(&cmder.keepAlive, "keepalive", 30*time.Second, "Interval between SSE keep-alive comments")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, cfg *app.Config) error {
	a, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}

	client, shutdown, err := app.NewClient(ctx, a.Cfg, a.Logger)
	if err != nil {
		return err
	}

	srv := server.New(a.Cfg.Server, a.Logger)
	srv.ApplyDefaults(a.Name)
	relay := sse.NewRelay(client, a.Logger,
		sse.WithKeepAlive(c.keepAlive),
		sse.WithBulkhead(resilience.NewBulkhead(a.Cfg.Streams)),
	)
	relay.Register(srv.GinEngine())

	a.OnStart(srv.Start)
	a.OnStop(shutdown, srv.Stop)

	return a.Run(ctx)
}
