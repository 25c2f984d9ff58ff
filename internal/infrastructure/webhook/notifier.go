// Package webhook delivers audit outcomes to outgoing webhooks.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/auditor/pkg/application"
	"github.com/felixgeelhaar/auditor/pkg/domain/notify"
	"github.com/felixgeelhaar/auditor/pkg/domain/pipeline"
)

// SignatureHeader carries the HMAC-SHA256 of the body when an endpoint has a secret.
const SignatureHeader = "X-Auditor-Signature"

const (
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
)

// Notifier sends outgoing webhook notifications for finished audits.
type Notifier struct {
	endpoints  []notify.Endpoint
	client     *http.Client
	deadLetter *DeadLetterStore
	logger     *slog.Logger
	now        func() time.Time
}

var _ application.OutcomeListener = (*Notifier)(nil)

// NewNotifier creates a notifier. deadLetter may be nil.
func NewNotifier(endpoints []notify.Endpoint, deadLetter *DeadLetterStore, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		endpoints: endpoints,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		deadLetter: deadLetter,
		logger:     logger,
		now:        time.Now,
	}
}

// AuditFinished announces a run's outcome.
func (n *Notifier) AuditFinished(ctx context.Context, o *pipeline.Outcome) {
	n.Notify(ctx, notify.FromOutcome(o, n.now()))
}

// Notify delivers p to every matching endpoint and waits for all deliveries
// to finish. It returns the number of endpoints that accepted the payload.
func (n *Notifier) Notify(ctx context.Context, p notify.Payload) int {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		delivered int
	)
	for _, ep := range n.endpoints {
		if !ep.Wants(p.Event) {
			continue
		}
		body, err := encode(ep, p)
		if err != nil {
			n.logger.Error("webhook payload encoding failed", "webhook", ep.Name, "error", err)
			continue
		}
		wg.Add(1)
		go func(ep notify.Endpoint) {
			defer wg.Done()
			if n.deliver(ctx, ep, p.Event, body) {
				mu.Lock()
				delivered++
				mu.Unlock()
			}
		}(ep)
	}
	wg.Wait()
	return delivered
}

func (n *Notifier) deliver(ctx context.Context, ep notify.Endpoint, event string, body []byte) bool {
	attempts := ep.MaxRetries
	if attempts <= 0 {
		attempts = defaultMaxRetries
	}
	delay := ep.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	r := retry.New[struct{}](retry.Config{
		MaxAttempts:   attempts,
		InitialDelay:  delay,
		BackoffPolicy: retry.BackoffExponential,
	})
	_, err := r.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, n.send(ctx, ep, body)
	})
	if err == nil {
		n.logger.Debug("webhook delivered", "webhook", ep.Name, "event", event)
		return true
	}

	n.logger.Warn("webhook delivery failed", "webhook", ep.Name, "event", event, "attempts", attempts, "error", err)
	if n.deadLetter != nil {
		dl := notify.DeadLetter{
			Timestamp:   n.now().UTC(),
			WebhookName: ep.Name,
			URL:         ep.URL,
			Event:       event,
			Payload:     string(body),
			Error:       err.Error(),
			Attempts:    attempts,
		}
		if err := n.deadLetter.Append(dl); err != nil {
			n.logger.Error("failed to record dead letter", "webhook", ep.Name, "error", err)
		}
	}
	return false
}

func (n *Notifier) send(ctx context.Context, ep notify.Endpoint, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Auditor-Webhook/1.0")

	if ep.Secret != "" {
		req.Header.Set(SignatureHeader, sign(body, ep.Secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func encode(ep notify.Endpoint, p notify.Payload) ([]byte, error) {
	if ep.Format == notify.FormatSlack {
		return json.Marshal(slackMessage(p))
	}
	return json.Marshal(p)
}

// sign computes HMAC-SHA256 of the payload using the secret.
func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
