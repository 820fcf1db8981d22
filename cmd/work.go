package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWorkCmd() *cobra.Command {
	var (
		limit int
		drain bool
	)
	cmd := &cobra.Command{
		Use:   "work",
		Short: "Claim pending references and capture them",
		Long: `work claims up to --limit PENDING rows, renders each source URL to a
full-page screenshot, and records SUCCESS or FAILED per row. With --drain it
keeps running batches until the queue is empty.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfgFile)
			if err != nil {
				return err
			}
			defer a.close()

			if limit <= 0 {
				limit = a.cfg.Worker.Limit
			}
			if err := a.wireCapturer(); err != nil {
				return err
			}
			w, err := a.newWorker()
			if err != nil {
				return err
			}

			if drain {
				result, err := w.Drain(ctx, limit, 0)
				if err != nil {
					return err
				}
				a.log.Info("queue drained",
					zap.Int("claimed", result.Claimed),
					zap.Int("succeeded", result.Succeeded),
					zap.Int("failed", result.Failed),
				)
				return nil
			}

			result, err := w.RunBatch(ctx, limit)
			if err != nil {
				return err
			}
			a.log.Info("batch complete",
				zap.Int("claimed", result.Claimed),
				zap.Int("succeeded", result.Succeeded),
				zap.Int("failed", result.Failed),
			)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows to claim (default worker.limit)")
	cmd.Flags().BoolVar(&drain, "drain", false, "run batches until the queue is empty")
	return cmd
}
