package webhook

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/auditor/pkg/domain/notify"
)

// slackMessage renders a payload for a Slack incoming webhook.
func slackMessage(p notify.Payload) map[string]interface{} {
	text := slackText(p)
	return map[string]interface{}{
		"text": text,
		"blocks": []map[string]interface{}{
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": text,
				},
			},
		},
	}
}

func slackText(p notify.Payload) string {
	switch p.Event {
	case notify.EventReport:
		msg := fmt.Sprintf(":scales: Audit of %s: *%s* (%.2f/5)", p.Subject, p.Verdict, p.OverallScore)
		if len(p.FailingCriteria) > 0 {
			msg += "\nFailing: " + strings.Join(p.FailingCriteria, ", ")
		}
		return msg
	case notify.EventAborted:
		return fmt.Sprintf(":warning: Audit %s ended without a report: %s", p.RunID, p.Reason)
	case notify.EventPing:
		return ":wave: Auditor webhook test"
	default:
		return fmt.Sprintf("Auditor event: %s", p.Event)
	}
}
