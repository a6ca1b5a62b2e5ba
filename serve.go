package main

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"library-circulation/httpapi"
	"library-circulation/notify"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	var deliverEvery time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the circulation HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			router := httpapi.NewRouter(a.lm, httpapi.Options{
				Mode:         a.cfg.HTTP.Mode,
				AllowOrigins: a.cfg.HTTP.AllowOrigins,
				PopularLimit: a.cfg.Reports.PopularLimit,
				Logger:       a.log,
			})
			srv := &http.Server{
				Addr:              addr,
				Handler:           router,
				ReadHeaderTimeout: 5 * time.Second,
			}

			if deliverEvery > 0 {
				d := notify.NewDispatcher(a.box, notify.ConsoleDeliverer{W: cmd.OutOrStdout()}, a.log)
				// The outbox is closed after RunE returns.
				defer startDelivery(ctx, d, deliverEvery)()
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("http server listening", "addr", addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			a.log.Info("shutting down http server")
			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().DurationVar(&deliverEvery, "deliver-every", 30*time.Second, "outbox delivery interval, 0 disables")
	return cmd
}

// startDelivery runs d in the background. The returned stop function cancels
// it and waits until the dispatcher has returned.
func startDelivery(ctx context.Context, d *notify.Dispatcher, every time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.Run(ctx, every)
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}
