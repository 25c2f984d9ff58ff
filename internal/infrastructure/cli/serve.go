package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/felixgeelhaar/auditor/internal/infrastructure/sse"
	"github.com/felixgeelhaar/auditor/internal/infrastructure/watch"
	"github.com/felixgeelhaar/auditor/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/auditor/pkg/domain/pipeline"
	"github.com/felixgeelhaar/auditor/pkg/infrastructure/dashboard"
	"github.com/felixgeelhaar/auditor/pkg/storage"
	"github.com/spf13/cobra"
)

var serveAddr string

var reportServeCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Serve the last report as a web page that reloads after each run",
	Example: `  auditor report serve --addr 127.0.0.1:8090`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := getProjectRoot()
		if err != nil {
			return err
		}
		ws := wiring.NewWorkspace(root)
		hub := sse.NewHub(slog.Default())
		server, err := dashboard.NewServer(serveAddr, ws.Repo, hub, slog.Default())
		if err != nil {
			return err
		}
		if os.Getenv("AUDITOR_SKIP_SERVE_START") == "true" {
			return nil
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		if err := followReports(ctx, ws.Repo, hub); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving report on http://%s (Ctrl+C to stop)\n", serveAddr)
		return ignoreCanceled(server.Start(ctx))
	},
}

// followReports republishes the stored report whenever another process
// rewrites it.
func followReports(ctx context.Context, repo *storage.FilesystemRepository, hub *sse.Hub) error {
	if err := repo.Initialize(); err != nil {
		return err
	}
	path, err := repo.ResolvePath(storage.ReportFile)
	if err != nil {
		return err
	}
	w, err := watch.NewSubmissionWatcher(watch.DefaultWindow, watch.DefaultFilter(), func(watch.Change) {
		rep, err := repo.LoadReport()
		if err != nil {
			slog.Warn("report changed but could not be read", "error", err)
			return
		}
		hub.AuditFinished(ctx, &pipeline.Outcome{RunID: rep.ID, Report: rep})
	})
	if err != nil {
		return err
	}
	if err := w.AddFile(path); err != nil {
		return err
	}
	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("report watcher stopped", "error", err)
		}
	}()
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func init() {
	reportServeCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8090", "Address to listen on")
	reportCmd.AddCommand(reportServeCmd)
}
