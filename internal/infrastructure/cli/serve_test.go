package cli

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/auditor/internal/infrastructure/sse"
	"github.com/felixgeelhaar/auditor/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/auditor/pkg/domain/notify"
	"github.com/felixgeelhaar/auditor/pkg/domain/report"
)

func TestReportServe_Skip(t *testing.T) {
	t.Setenv("AUDITOR_SKIP_SERVE_START", "true")
	if _, err := execute(t, "report", "serve", "--project", t.TempDir()); err != nil {
		t.Fatalf("report serve: %v", err)
	}
}

func TestWatchCmd_OnceWithServe(t *testing.T) {
	root, repo, doc := newWorkspace(t)
	t.Setenv("AUDITOR_WATCH_ONCE", "true")
	out, err := execute(t, "watch", "--project", root, "--repo", repo, "--doc", doc, "--serve", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("watch: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Live report on") || !strings.Contains(out, "Verdict:") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestFollowReportsPublishesRewrites(t *testing.T) {
	ws := wiring.NewWorkspace(t.TempDir())
	hub := sse.NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := followReports(ctx, ws.Repo, hub); err != nil {
		t.Fatalf("followReports: %v", err)
	}

	server := httptest.NewServer(hub)
	defer server.Close()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	r := bufio.NewReader(resp.Body)
	if _, err := r.ReadString('\n'); err != nil {
		t.Fatal(err)
	}
	for deadline := time.Now().Add(2 * time.Second); hub.Clients() == 0 && time.Now().Before(deadline); {
		time.Sleep(5 * time.Millisecond)
	}

	rep := &report.AuditReport{ID: "rep-9", Subject: "acme/agent", OverallScore: 2, Verdict: report.TierNeedsImprovement}
	if err := ws.Repo.SaveReport(rep); err != nil {
		t.Fatal(err)
	}

	lines := make(chan string, 64)
	go func() {
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- line
		}
	}()
	timeout := time.After(10 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed before the report event")
			}
			if strings.HasPrefix(line, "event: "+notify.EventReport) {
				return
			}
		case <-timeout:
			t.Fatal("no report event after rewriting the report")
		}
	}
}
