package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/apc-golf/refhub/internal/export"
)

func newExportCmd() *cobra.Command {
	var (
		out     string
		format  string
		archive bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the reference index to CSV or XLSX",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfgFile)
			if err != nil {
				return err
			}
			defer a.close()

			if archive {
				target := out
				if target == "" {
					target = filepath.Join(a.cfg.Data.Dir, "reference_archive.zip")
				}
				f, err := os.Create(target)
				if err != nil {
					return fmt.Errorf("create archive file: %w", err)
				}
				defer f.Close()
				if err := export.ZipTree(a.cfg.OutputRoot(), "output", f); err != nil {
					return err
				}
				a.log.Info("archive written", zap.String("path", target))
				return nil
			}

			target := out
			if target == "" {
				target = a.cfg.ExportCSVPath()
				if format == "xlsx" {
					target = strings.TrimSuffix(target, ".csv") + ".xlsx"
				}
			}
			f, err := os.Create(target)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			defer f.Close()

			switch format {
			case "csv":
				err = export.WriteCSV(ctx, a.store, f)
			case "xlsx":
				err = export.WriteXLSX(ctx, a.store, f)
			default:
				return fmt.Errorf("unknown format %q (want csv or xlsx)", format)
			}
			if err != nil {
				return err
			}
			a.log.Info("index exported", zap.String("path", target), zap.String("format", format))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default <data.dir>/index.csv)")
	cmd.Flags().StringVar(&format, "format", "csv", "export format: csv or xlsx")
	cmd.Flags().BoolVar(&archive, "archive", false, "zip the captured output tree instead of the index")
	return cmd
}
