package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stagegate/stagegate/internal/webserver"
)

func newServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		Long: `Run the HTTP server that receives board webhooks.

Card-update events trigger classification of the changed card. A manual
endpoint POST /process/card/{id} processes one card on demand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(0, false)
			if err != nil {
				return err
			}

			if port == 0 {
				port = a.cfg.Port
			}

			srv, err := webserver.New(webserver.Config{
				Port:      port,
				Processor: a.processor,
				Logger:    a.logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default: WEBHOOK_PORT from environment)")
	return cmd
}
