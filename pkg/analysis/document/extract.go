package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/felixgeelhaar/auditor/pkg/application"
)

// ErrDocumentMissing is returned when no report exists at the given path.
var ErrDocumentMissing = fmt.Errorf("%w: document not found", application.ErrInvalidInput)

const (
	DefaultPDFTimeout = 60 * time.Second
	maxDocumentBytes  = 20 << 20
)

// Extractor turns a report file into plain text.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// PlainExtractor reads markdown and text reports as-is.
type PlainExtractor struct{}

func (PlainExtractor) Extract(_ context.Context, path string) (string, error) {
	// #nosec G304 -- Path is the operator supplied report
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	if len(data) > maxDocumentBytes {
		data = data[:maxDocumentBytes]
	}
	return string(data), nil
}

// PDFExtractor shells out to pdftotext from poppler-utils.
type PDFExtractor struct {
	Binary  string
	Timeout time.Duration
}

func (p PDFExtractor) Extract(ctx context.Context, path string) (string, error) {
	bin := p.Binary
	if bin == "" {
		bin = "pdftotext"
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultPDFTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// #nosec G204 -- Binary comes from configuration and path is the operator supplied report
	cmd := exec.CommandContext(ctx, bin, "-layout", "-enc", "UTF-8", path, "-")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("pdftotext timed out after %s", timeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("pdftotext failed: %w: %s", err, msg)
		}
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	return string(out), nil
}

// AutoExtractor picks the PDF extractor for .pdf files and reads everything
// else as text.
type AutoExtractor struct {
	PDF   Extractor
	Plain Extractor
}

func (a AutoExtractor) Extract(ctx context.Context, path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		if a.PDF == nil {
			return PDFExtractor{}.Extract(ctx, path)
		}
		return a.PDF.Extract(ctx, path)
	}
	if a.Plain == nil {
		return PlainExtractor{}.Extract(ctx, path)
	}
	return a.Plain.Extract(ctx, path)
}

// Document is an ingested report split into paragraphs.
type Document struct {
	Path       string
	Text       string
	Paragraphs []string
}

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Ingest checks the report exists and extracts it.
func Ingest(ctx context.Context, ex Extractor, path string) (*Document, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: no path given", ErrDocumentMissing)
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrDocumentMissing, path)
	}
	text, err := ex.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	return NewDocument(path, text), nil
}

// NewDocument splits text on blank lines.
func NewDocument(path, text string) *Document {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	doc := &Document{Path: path, Text: text}
	for _, p := range paragraphBreak.Split(strings.TrimSpace(text), -1) {
		if p = strings.TrimSpace(p); p != "" {
			doc.Paragraphs = append(doc.Paragraphs, p)
		}
	}
	return doc
}
