package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/felixgeelhaar/auditor/internal/infrastructure/sse"
	"github.com/felixgeelhaar/auditor/internal/infrastructure/watch"
	"github.com/felixgeelhaar/auditor/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/auditor/pkg/infrastructure/dashboard"
	"github.com/spf13/cobra"
)

var (
	watchOpts   runFlags
	watchWindow time.Duration
	watchServe  string
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Re-run the audit whenever a local submission changes",
	Example: `  auditor watch --repo ./checkout --doc ./checkout/report.md`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := os.Stat(watchOpts.repo)
		if err != nil || !info.IsDir() {
			return NewCLIError("--repo must be a local directory", "Clone the submission first, then watch the checkout", err)
		}
		root, err := getProjectRoot()
		if err != nil {
			return err
		}
		opts := wiring.Options{DiagramPlugin: watchOpts.diagramPlugin}
		var hub *sse.Hub
		if watchServe != "" {
			hub = sse.NewHub(slog.Default())
			opts.Listeners = append(opts.Listeners, hub)
		}
		services, err := loadServices(root, opts)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		if hub != nil {
			server, err := dashboard.NewServer(watchServe, services.Workspace.Repo, hub, slog.Default())
			if err != nil {
				return err
			}
			go func() {
				if err := ignoreCanceled(server.Start(ctx)); err != nil {
					slog.Error("dashboard stopped", "error", err)
				}
			}()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Live report on http://%s\n", watchServe)
		}

		out := cmd.OutOrStdout()
		audit := func() {
			outcome, _, err := executeRun(cmd, services, watchOpts)
			if err != nil {
				printError(cmd.ErrOrStderr(), MapError(err))
				return
			}
			_ = printOutcome(out, outcome, watchOpts.jsonOutput)
		}

		audit()
		if os.Getenv("AUDITOR_WATCH_ONCE") == "true" {
			return nil
		}

		triggers := make(chan watch.Change, 1)
		w, err := watch.NewSubmissionWatcher(watchWindow, watch.DefaultFilter(), func(c watch.Change) {
			select {
			case triggers <- c:
			default:
				// A run is already queued and will see this change.
			}
		})
		if err != nil {
			return err
		}
		if err := w.AddTree(watchOpts.repo); err != nil {
			return err
		}
		if watchOpts.doc != "" {
			if err := w.AddFile(watchOpts.doc); err != nil {
				return err
			}
		}

		errc := make(chan error, 1)
		go func() { errc <- w.Run(ctx) }()

		_, _ = fmt.Fprintf(out, "\nWatching %s for changes (Ctrl+C to stop)...\n", watchOpts.repo)
		for {
			select {
			case <-ctx.Done():
				return nil
			case err := <-errc:
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			case c := <-triggers:
				slog.Info("submission changed", "paths", len(c.Paths), "first", c.Paths[0])
				_, _ = fmt.Fprintf(out, "\nChange detected at %s (%d files)\n", time.Now().Format("15:04:05"), len(c.Paths))
				audit()
			}
		}
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchOpts.repo, "repo", ".", "Local repository directory")
	watchCmd.Flags().StringVar(&watchOpts.doc, "doc", "", "Report document")
	watchCmd.Flags().StringVar(&watchOpts.rubricPath, "rubric", "", "Rubric file overriding the workspace rubric")
	watchCmd.Flags().StringVar(&watchOpts.diagramPlugin, "diagram-plugin", "", "Path to an external diagram analyzer plugin")
	watchCmd.Flags().BoolVar(&watchOpts.jsonOutput, "json", false, "Output in JSON format")
	watchCmd.Flags().DurationVar(&watchWindow, "debounce", watch.DefaultWindow, "Quiet period before a change triggers a run")
	watchCmd.Flags().StringVar(&watchServe, "serve", "", "Also serve a live report page on this address")
	RootCmd.AddCommand(watchCmd)
}
