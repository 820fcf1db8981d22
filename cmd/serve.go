package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/apc-golf/refhub/internal/api"
	"github.com/apc-golf/refhub/internal/storybook"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reference hub HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfgFile)
			if err != nil {
				return err
			}
			defer a.close()

			// The API can kick batches via /v1/queue/process, so the serve
			// process carries a capturer too.
			if err := a.wireCapturer(); err != nil {
				a.log.Warn("headless capturer unavailable, queue processing disabled", zap.Error(err))
			}
			var runner api.BatchRunner
			if a.capturer != nil {
				w, err := a.newWorker()
				if err != nil {
					return err
				}
				runner = w
			}

			server := api.NewServer(a.cfg, api.Deps{
				Store:     a.store,
				Runner:    runner,
				Blob:      a.blob,
				Storybook: storybook.NewGenerator(a.blob, a.clock),
				Clock:     a.clock,
				Logger:    a.log,
			})

			httpServer := &http.Server{
				Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
				Handler:           server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("http server listening", zap.Int("port", a.cfg.Server.Port))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("http server: %w", err)
			case <-ctx.Done():
			}

			a.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown http server: %w", err)
			}
			return nil
		},
	}
}
