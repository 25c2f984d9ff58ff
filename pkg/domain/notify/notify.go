// Package notify describes where finished audits are announced.
package notify

import (
	"fmt"
	"net/url"
	"time"

	"github.com/felixgeelhaar/auditor/pkg/domain/pipeline"
	"github.com/felixgeelhaar/auditor/pkg/domain/report"
)

// Event names carried in payloads and used as endpoint filters.
const (
	EventReport  = "audit.report"
	EventAborted = "audit.aborted"
	EventPing    = "audit.ping"
)

// Endpoint formats.
const (
	FormatJSON  = "json"
	FormatSlack = "slack"
)

// Config is the workspace's list of outgoing webhooks.
type Config struct {
	Webhooks []Endpoint `yaml:"webhooks" json:"webhooks"`
}

// Endpoint configures a single outgoing webhook.
type Endpoint struct {
	Name         string        `yaml:"name" json:"name"`
	URL          string        `yaml:"url" json:"url"`
	Secret       string        `yaml:"secret,omitempty" json:"secret,omitempty"`
	Format       string        `yaml:"format,omitempty" json:"format,omitempty"`
	EventFilters []string      `yaml:"event_filters,omitempty" json:"event_filters,omitempty"` // empty = all events
	MaxRetries   int           `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
	RetryDelay   time.Duration `yaml:"retry_delay,omitempty" json:"retry_delay,omitempty"`
	Enabled      bool          `yaml:"enabled" json:"enabled"`
}

// Wants reports whether the endpoint is enabled and subscribed to event.
func (e Endpoint) Wants(event string) bool {
	if !e.Enabled {
		return false
	}
	if len(e.EventFilters) == 0 {
		return true
	}
	for _, f := range e.EventFilters {
		if f == event {
			return true
		}
	}
	return false
}

// Validate checks a single endpoint.
func (e Endpoint) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("webhook name is required")
	}
	u, err := url.Parse(e.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("webhook %s: url must be an http(s) URL", e.Name)
	}
	switch e.Format {
	case "", FormatJSON, FormatSlack:
	default:
		return fmt.Errorf("webhook %s: unknown format %q", e.Name, e.Format)
	}
	for _, f := range e.EventFilters {
		switch f {
		case EventReport, EventAborted, EventPing:
		default:
			return fmt.Errorf("webhook %s: unknown event %q", e.Name, f)
		}
	}
	return nil
}

// Validate checks every endpoint and rejects duplicate names.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Webhooks))
	for _, e := range c.Webhooks {
		if err := e.Validate(); err != nil {
			return err
		}
		if seen[e.Name] {
			return fmt.Errorf("duplicate webhook %q", e.Name)
		}
		seen[e.Name] = true
	}
	return nil
}

// Find returns the endpoint called name.
func (c *Config) Find(name string) (Endpoint, bool) {
	for _, e := range c.Webhooks {
		if e.Name == name {
			return e, true
		}
	}
	return Endpoint{}, false
}

// Payload is the JSON body sent to webhook endpoints.
type Payload struct {
	Event           string    `json:"event"`
	RunID           string    `json:"run_id,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	Subject         string    `json:"subject,omitempty"`
	Verdict         string    `json:"verdict,omitempty"`
	OverallScore    float64   `json:"overall_score,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	FailingCriteria []string  `json:"failing_criteria,omitempty"`
}

// FromOutcome summarizes a finished run.
func FromOutcome(o *pipeline.Outcome, at time.Time) Payload {
	p := Payload{RunID: o.RunID, Timestamp: at.UTC()}
	if o.Aborted || o.Report == nil {
		p.Event = EventAborted
		p.Reason = o.Reason
		return p
	}
	p.Event = EventReport
	p.Subject = o.Report.Subject
	p.Verdict = string(o.Report.Verdict)
	p.OverallScore = o.Report.OverallScore
	p.FailingCriteria = failing(o.Report)
	return p
}

func failing(r *report.AuditReport) []string {
	var ids []string
	for _, c := range r.Criteria {
		if c.Failing() {
			ids = append(ids, c.DimensionID)
		}
	}
	return ids
}

// DeadLetter records a delivery that exhausted its retries.
type DeadLetter struct {
	Timestamp   time.Time `json:"timestamp"`
	WebhookName string    `json:"webhook_name"`
	URL         string    `json:"url"`
	Event       string    `json:"event"`
	Payload     string    `json:"payload"`
	Error       string    `json:"error"`
	Attempts    int       `json:"attempts"`
}
