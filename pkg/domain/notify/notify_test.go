package notify_test

import (
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/auditor/pkg/domain/notify"
	"github.com/felixgeelhaar/auditor/pkg/domain/pipeline"
	"github.com/felixgeelhaar/auditor/pkg/domain/report"
)

func TestEndpoint_Wants(t *testing.T) {
	all := notify.Endpoint{Name: "a", Enabled: true}
	if !all.Wants(notify.EventReport) || !all.Wants(notify.EventAborted) {
		t.Error("endpoint without filters should want every event")
	}
	filtered := notify.Endpoint{Name: "b", Enabled: true, EventFilters: []string{notify.EventAborted}}
	if filtered.Wants(notify.EventReport) || !filtered.Wants(notify.EventAborted) {
		t.Error("filter not applied")
	}
	if (notify.Endpoint{Name: "c"}).Wants(notify.EventReport) {
		t.Error("disabled endpoint should want nothing")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ep      notify.Endpoint
		wantErr string
	}{
		{"ok", notify.Endpoint{Name: "ci", URL: "https://hooks.example.com/x"}, ""},
		{"slack", notify.Endpoint{Name: "ci", URL: "https://hooks.slack.com/x", Format: notify.FormatSlack}, ""},
		{"no name", notify.Endpoint{URL: "https://x"}, "name is required"},
		{"bad scheme", notify.Endpoint{Name: "ci", URL: "ftp://x"}, "http(s)"},
		{"no host", notify.Endpoint{Name: "ci", URL: "https://"}, "http(s)"},
		{"bad format", notify.Endpoint{Name: "ci", URL: "https://x", Format: "xml"}, "unknown format"},
		{"bad event", notify.Endpoint{Name: "ci", URL: "https://x", EventFilters: []string{"task.started"}}, "unknown event"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := notify.Config{Webhooks: []notify.Endpoint{tt.ep}}
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	dup := notify.Config{Webhooks: []notify.Endpoint{
		{Name: "ci", URL: "https://a"},
		{Name: "ci", URL: "https://b"},
	}}
	if err := dup.Validate(); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected duplicate error, got %v", err)
	}
}

func TestFromOutcome(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rep := &report.AuditReport{
		Subject:      "https://github.com/acme/agent",
		OverallScore: 3.5,
		Verdict:      report.TierSatisfactory,
		Criteria: []report.CriterionResult{
			{DimensionID: "git_forensic_analysis", FinalScore: 5},
			{DimensionID: "swarm_visual", FinalScore: 2},
		},
	}

	p := notify.FromOutcome(&pipeline.Outcome{RunID: "r1", Report: rep}, at)
	if p.Event != notify.EventReport || p.Verdict != "SATISFACTORY" || p.OverallScore != 3.5 {
		t.Errorf("unexpected payload %+v", p)
	}
	if len(p.FailingCriteria) != 1 || p.FailingCriteria[0] != "swarm_visual" {
		t.Errorf("failing criteria = %v", p.FailingCriteria)
	}

	p = notify.FromOutcome(&pipeline.Outcome{RunID: "r2", Aborted: true, Reason: pipeline.ReasonNoEvidence}, at)
	if p.Event != notify.EventAborted || p.Reason != pipeline.ReasonNoEvidence || p.Verdict != "" {
		t.Errorf("unexpected aborted payload %+v", p)
	}
	if !p.Timestamp.Equal(at) {
		t.Errorf("timestamp = %v", p.Timestamp)
	}
}

func TestConfig_Find(t *testing.T) {
	c := notify.Config{Webhooks: []notify.Endpoint{{Name: "a"}, {Name: "b", URL: "https://b"}}}
	if ep, ok := c.Find("b"); !ok || ep.URL != "https://b" {
		t.Errorf("Find(b) = %+v, %v", ep, ok)
	}
	if _, ok := c.Find("z"); ok {
		t.Error("Find(z) should fail")
	}
}
