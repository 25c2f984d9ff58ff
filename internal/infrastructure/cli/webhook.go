package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/felixgeelhaar/auditor/internal/infrastructure/webhook"
	"github.com/felixgeelhaar/auditor/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/auditor/pkg/domain/notify"
	"github.com/felixgeelhaar/auditor/pkg/storage"
	"github.com/spf13/cobra"
)

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage outgoing notifications for finished audits",
}

var (
	webhookSecret string
	webhookFormat string
	webhookEvents []string
	webhookClear  bool
)

func workspaceRepo() (*storage.FilesystemRepository, error) {
	root, err := getProjectRoot()
	if err != nil {
		return nil, err
	}
	return wiring.NewWorkspace(root).Repo, nil
}

var webhookAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add an outgoing webhook endpoint",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url := args[0], args[1]
		repo, err := workspaceRepo()
		if err != nil {
			return err
		}
		config, err := repo.LoadWebhookConfig()
		if err != nil {
			return err
		}
		if _, exists := config.Find(name); exists {
			return NewCLIError(fmt.Sprintf("webhook %q already exists", name), "Remove it first with 'auditor webhook remove'", nil)
		}

		config.Webhooks = append(config.Webhooks, notify.Endpoint{
			Name:         name,
			URL:          url,
			Secret:       webhookSecret,
			Format:       webhookFormat,
			EventFilters: webhookEvents,
			MaxRetries:   3,
			RetryDelay:   time.Second,
			Enabled:      true,
		})
		if err := repo.SaveWebhookConfig(config); err != nil {
			return NewCLIError("invalid webhook", "", err)
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added webhook %q → %s\n", name, url)
		return nil
	},
}

var webhookRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an outgoing webhook endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		repo, err := workspaceRepo()
		if err != nil {
			return err
		}
		config, err := repo.LoadWebhookConfig()
		if err != nil {
			return err
		}

		remaining := config.Webhooks[:0]
		for _, ep := range config.Webhooks {
			if ep.Name != name {
				remaining = append(remaining, ep)
			}
		}
		if len(remaining) == len(config.Webhooks) {
			return NewCLIError(fmt.Sprintf("webhook %q not found", name), "List webhooks with 'auditor webhook list'", nil)
		}
		config.Webhooks = remaining
		if err := repo.SaveWebhookConfig(config); err != nil {
			return err
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed webhook %q\n", name)
		return nil
	},
}

var webhookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured webhook endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := workspaceRepo()
		if err != nil {
			return err
		}
		config, err := repo.LoadWebhookConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(config.Webhooks) == 0 {
			_, _ = fmt.Fprintln(out, "No outgoing webhooks configured.")
			return nil
		}
		for _, ep := range config.Webhooks {
			status := "enabled"
			if !ep.Enabled {
				status = "disabled"
			}
			filters := "all events"
			if len(ep.EventFilters) > 0 {
				filters = strings.Join(ep.EventFilters, ",")
			}
			format := ep.Format
			if format == "" {
				format = notify.FormatJSON
			}
			_, _ = fmt.Fprintf(out, "  %s → %s [%s] format=%s events=%s\n", ep.Name, ep.URL, status, format, filters)
		}
		return nil
	},
}

var webhookTestCmd = &cobra.Command{
	Use:   "test <name>",
	Short: "Send a ping to a webhook endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		repo, err := workspaceRepo()
		if err != nil {
			return err
		}
		config, err := repo.LoadWebhookConfig()
		if err != nil {
			return err
		}
		target, ok := config.Find(name)
		if !ok {
			return NewCLIError(fmt.Sprintf("webhook %q not found", name), "List webhooks with 'auditor webhook list'", nil)
		}
		// A ping is sent even to disabled or filtered endpoints.
		target.Enabled = true
		target.EventFilters = nil

		dlPath, err := repo.DeadLetterPath()
		if err != nil {
			return err
		}
		notifier := webhook.NewNotifier([]notify.Endpoint{target}, webhook.NewDeadLetterStore(dlPath), slog.Default())
		ping := notify.Payload{Event: notify.EventPing, Timestamp: time.Now().UTC()}
		if notifier.Notify(cmd.Context(), ping) == 0 {
			return NewCLIError(fmt.Sprintf("webhook %q did not accept the ping", name), "See 'auditor webhook dead-letters' for the error", nil)
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Ping delivered to webhook %q\n", name)
		return nil
	},
}

var webhookDeadLettersCmd = &cobra.Command{
	Use:   "dead-letters",
	Short: "Show notifications that could not be delivered",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := workspaceRepo()
		if err != nil {
			return err
		}
		dlPath, err := repo.DeadLetterPath()
		if err != nil {
			return err
		}
		store := webhook.NewDeadLetterStore(dlPath)
		out := cmd.OutOrStdout()

		if webhookClear {
			if err := store.Clear(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, "Dead letters cleared.")
			return nil
		}

		entries, err := store.ReadAll()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			_, _ = fmt.Fprintln(out, "No dead letters.")
			return nil
		}
		for _, dl := range entries {
			_, _ = fmt.Fprintf(out, "%s  %s  %s  %s (%d attempts)\n",
				dl.Timestamp.Format(time.RFC3339), dl.WebhookName, dl.Event, dl.Error, dl.Attempts)
		}
		return nil
	},
}

func init() {
	webhookAddCmd.Flags().StringVar(&webhookSecret, "secret", "", "HMAC-SHA256 signing secret")
	webhookAddCmd.Flags().StringVar(&webhookFormat, "format", notify.FormatJSON, "Payload format: json or slack")
	webhookAddCmd.Flags().StringSliceVar(&webhookEvents, "events", nil, "Only send these events (audit.report, audit.aborted)")
	webhookDeadLettersCmd.Flags().BoolVar(&webhookClear, "clear", false, "Remove all dead letters")

	webhookCmd.AddCommand(webhookAddCmd, webhookRemoveCmd, webhookListCmd, webhookTestCmd, webhookDeadLettersCmd)
	RootCmd.AddCommand(webhookCmd)
}
