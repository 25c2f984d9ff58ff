package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/auditor/pkg/domain/notify"
	"github.com/felixgeelhaar/auditor/pkg/domain/pipeline"
	"github.com/felixgeelhaar/auditor/pkg/domain/report"
)

func ping() notify.Payload {
	return notify.Payload{Event: notify.EventPing, Timestamp: time.Now()}
}

func TestNotifier_DeliverySuccess(t *testing.T) {
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ep := notify.Endpoint{Name: "test", URL: server.URL, Enabled: true}
	n := NewNotifier([]notify.Endpoint{ep}, nil, nil)

	if got := n.Notify(context.Background(), ping()); got != 1 {
		t.Errorf("expected 1 delivered, got %d", got)
	}
	if received.Load() != 1 {
		t.Errorf("expected 1 delivery, got %d", received.Load())
	}
}

func TestNotifier_HMACSignature(t *testing.T) {
	secret := "test-secret"
	var receivedSig string
	var receivedBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedSig = r.Header.Get(SignatureHeader)
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ep := notify.Endpoint{Name: "test", URL: server.URL, Secret: secret, Enabled: true}
	NewNotifier([]notify.Endpoint{ep}, nil, nil).Notify(context.Background(), ping())

	if receivedSig == "" {
		t.Fatalf("expected %s header", SignatureHeader)
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(receivedBody)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if receivedSig != expected {
		t.Errorf("signature mismatch: got %s, want %s", receivedSig, expected)
	}
}

func TestNotifier_RetryAndDeadLetter(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dlStore := NewDeadLetterStore(filepath.Join(t.TempDir(), "deadletters.jsonl"))
	ep := notify.Endpoint{
		Name:       "test",
		URL:        server.URL,
		Enabled:    true,
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
	}

	if got := NewNotifier([]notify.Endpoint{ep}, dlStore, nil).Notify(context.Background(), ping()); got != 0 {
		t.Errorf("expected nothing delivered, got %d", got)
	}
	if attempts.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts.Load())
	}

	entries, err := dlStore.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 dead letter, got %d", len(entries))
	}
	if entries[0].Event != notify.EventPing || entries[0].Attempts != 2 || !strings.Contains(entries[0].Error, "500") {
		t.Errorf("unexpected dead letter %+v", entries[0])
	}
}

func TestNotifier_EventFilter(t *testing.T) {
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ep := notify.Endpoint{
		Name:         "test",
		URL:          server.URL,
		Enabled:      true,
		EventFilters: []string{notify.EventAborted},
	}
	n := NewNotifier([]notify.Endpoint{ep}, nil, nil)

	n.Notify(context.Background(), notify.Payload{Event: notify.EventReport})
	if received.Load() != 0 {
		t.Errorf("expected 0 deliveries for filtered event, got %d", received.Load())
	}
	n.Notify(context.Background(), notify.Payload{Event: notify.EventAborted})
	if received.Load() != 1 {
		t.Errorf("expected 1 delivery for matching event, got %d", received.Load())
	}
}

func TestNotifier_DisabledEndpointSkipped(t *testing.T) {
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
	}))
	defer server.Close()

	ep := notify.Endpoint{Name: "off", URL: server.URL}
	NewNotifier([]notify.Endpoint{ep}, nil, nil).Notify(context.Background(), ping())
	if received.Load() != 0 {
		t.Error("disabled endpoint received a delivery")
	}
}

func TestNotifier_AuditFinishedPayload(t *testing.T) {
	var got notify.Payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := NewNotifier([]notify.Endpoint{{Name: "test", URL: server.URL, Enabled: true}}, nil, nil)
	n.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	n.AuditFinished(context.Background(), &pipeline.Outcome{
		RunID: "run-1",
		Report: &report.AuditReport{
			Subject:      "acme/agent",
			OverallScore: 4.5,
			Verdict:      report.TierExemplary,
		},
	})

	if got.Event != notify.EventReport || got.RunID != "run-1" || got.Verdict != "EXEMPLARY" {
		t.Errorf("unexpected payload %+v", got)
	}
	if got.Timestamp.Year() != 2026 {
		t.Errorf("timestamp = %v", got.Timestamp)
	}
}

func TestNotifier_SlackFormat(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
	}))
	defer server.Close()

	ep := notify.Endpoint{Name: "slack", URL: server.URL, Format: notify.FormatSlack, Enabled: true}
	NewNotifier([]notify.Endpoint{ep}, nil, nil).Notify(context.Background(), notify.Payload{
		Event:           notify.EventReport,
		Subject:         "acme/agent",
		Verdict:         "NEEDS IMPROVEMENT",
		OverallScore:    2.75,
		FailingCriteria: []string{"swarm_visual"},
	})

	text, _ := body["text"].(string)
	if !strings.Contains(text, "NEEDS IMPROVEMENT") || !strings.Contains(text, "2.75") || !strings.Contains(text, "swarm_visual") {
		t.Errorf("unexpected slack text %q", text)
	}
	if _, ok := body["blocks"]; !ok {
		t.Error("expected slack blocks")
	}
}

func TestSlackText(t *testing.T) {
	tests := []struct {
		p    notify.Payload
		want string
	}{
		{notify.Payload{Event: notify.EventAborted, RunID: "r9", Reason: pipeline.ReasonNoEvidence}, "without a report: no evidence"},
		{notify.Payload{Event: notify.EventPing}, "webhook test"},
		{notify.Payload{Event: "other"}, "Auditor event: other"},
	}
	for _, tt := range tests {
		if got := slackText(tt.p); !strings.Contains(got, tt.want) {
			t.Errorf("slackText(%s) = %q, want it to contain %q", tt.p.Event, got, tt.want)
		}
	}
}
