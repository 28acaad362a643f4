package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hostlink/internal/app"
	"hostlink/internal/console"
)

func serveCmd() *cobra.Command {
	var headless bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the server and the operator console",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w, err := app.NewWire(cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer w.Close()

			if err := w.Server.Start(ctx); err != nil {
				return err
			}

			if headless {
				<-ctx.Done()
			} else {
				cctx, cancel := context.WithCancel(ctx)
				err := console.New(w.Server, cmd.OutOrStdout()).Run(cctx, os.Stdin)
				cancel()
				if err != nil {
					w.Log.Warn().Err(err).Msg("console")
				}
			}

			w.Server.Shutdown()
			w.Server.Wait()
			return nil
		},
	}
	cmd.Flags().BoolVar(&headless, "headless", false, "run without the operator console")
	return cmd
}
