// Package dashboard serves the latest audit report as a small web UI.
package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/felixgeelhaar/auditor/pkg/domain"
	"github.com/felixgeelhaar/auditor/pkg/domain/report"
)

//go:embed templates/*
var templatesFS embed.FS

// DataProvider provides data for the dashboard.
type DataProvider interface {
	LoadReport() (*report.AuditReport, error)
	LoadEvents() ([]domain.Event, error)
}

// Server is the dashboard HTTP server.
type Server struct {
	addr     string
	provider DataProvider
	events   http.Handler
	server   *http.Server
	tmpl     *template.Template
	logger   *slog.Logger
}

// NewServer creates a new dashboard server. When events is non-nil it is
// mounted at /events and pages reload as new outcomes arrive.
func NewServer(addr string, provider DataProvider, events http.Handler, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	funcMap := template.FuncMap{
		"scoreClass": scoreClass,
		"tierClass":  tierClass,
		"formatTime": formatTime,
		"deref":      deref,
		"json":       toJSON,
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Server{
		addr:     addr,
		provider: provider,
		events:   events,
		tmpl:     tmpl,
		logger:   logger,
	}, nil
}

// Handler returns the dashboard routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /criteria/{id}", s.handleCriterion)
	mux.HandleFunc("GET /trail", s.handleTrail)
	mux.HandleFunc("GET /api/report", s.handleAPIReport)
	mux.HandleFunc("GET /api/trail", s.handleAPITrail)
	if s.events != nil {
		mux.Handle("GET /events", s.events)
	}
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
	}
	s.logger.Info("dashboard server starting", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- s.server.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	}
}

// PageData holds data for template rendering.
type PageData struct {
	Title     string
	Report    *report.AuditReport
	Criterion *report.CriterionResult
	Events    []domain.Event
	Live      bool
	Error     string
}

func (s *Server) page(title string) PageData {
	return PageData{Title: title, Live: s.events != nil}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := s.page("Audit Report")
	rep, err := s.provider.LoadReport()
	if err != nil {
		data.Error = err.Error()
	} else {
		data.Report = rep
	}
	s.render(w, "index.html", data)
}

func (s *Server) handleCriterion(w http.ResponseWriter, r *http.Request) {
	rep, err := s.provider.LoadReport()
	if err != nil {
		data := s.page("Criterion")
		data.Error = err.Error()
		s.render(w, "criterion.html", data)
		return
	}
	id := r.PathValue("id")
	for i := range rep.Criteria {
		if rep.Criteria[i].DimensionID == id {
			data := s.page(rep.Criteria[i].DimensionName)
			data.Report = rep
			data.Criterion = &rep.Criteria[i]
			s.render(w, "criterion.html", data)
			return
		}
	}
	http.NotFound(w, r)
}

func (s *Server) handleTrail(w http.ResponseWriter, r *http.Request) {
	data := s.page("Audit Trail")
	events, err := s.provider.LoadEvents()
	if err != nil {
		data.Error = err.Error()
	} else {
		data.Events = events
	}
	s.render(w, "trail.html", data)
}

func (s *Server) handleAPIReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.provider.LoadReport()
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, rep)
}

func (s *Server) handleAPITrail(w http.ResponseWriter, r *http.Request) {
	events, err := s.provider.LoadEvents()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, events)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) render(w http.ResponseWriter, name string, data PageData) {
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("template error", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Template helper functions
func scoreClass(score int) string {
	switch {
	case score >= 4:
		return "score-pass"
	case score <= 2:
		return "score-fail"
	default:
		return "score-warn"
	}
}

func tierClass(t report.Tier) string {
	switch t {
	case report.TierExemplary, report.TierSatisfactory:
		return "tier-pass"
	case report.TierNeedsImprovement:
		return "tier-warn"
	default:
		return "tier-fail"
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
