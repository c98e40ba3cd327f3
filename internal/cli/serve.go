package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pagewright/pagewright/internal/server"
)

var (
	serveAddr   string
	serveOutput string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	Long: `Starts the HTTP server that receives GitHub webhooks and turns them into
generation runs. Deliveries are verified against the configured webhook
secret; push and pull request comment events feed the trigger policy.

The server runs until interrupted.

Example:
  pagewright serve
  pagewright serve --addr :9000`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from host config)")
	serveCmd.Flags().StringVarP(&serveOutput, "output", "o", "", "output directory (default: current directory)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := pipelineFactory(serveOutput)
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = p.cfg.ListenAddr
	}

	srv, err := server.NewServer(&server.Config{
		Addr:   addr,
		Secret: p.cfg.WebhookSecret,
	}, p)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	fmt.Printf("Webhook server listening on %s\n", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	fmt.Println("Shutting down...")
	if err := srv.Stop(); err != nil {
		return err
	}
	return <-errCh
}
