package rubric

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Target artifacts a dimension can be evaluated against.
const (
	ArtifactRepo     = "github_repo"
	ArtifactDocument = "pdf_report"
	ArtifactImages   = "pdf_images"
)

// Canonical criterion identifiers.
const (
	GitForensicAnalysis         = "git_forensic_analysis"
	StateManagementRigor        = "state_management_rigor"
	GraphOrchestration          = "graph_orchestration"
	SafeToolEngineering         = "safe_tool_engineering"
	StructuredOutputEnforcement = "structured_output_enforcement"
	TheoreticalDepth            = "theoretical_depth"
	ReportAccuracy              = "report_accuracy"
	SwarmVisual                 = "swarm_visual"
)

// Dimension is one rubric criterion.
type Dimension struct {
	ID                  string `json:"id" yaml:"id"`
	Name                string `json:"name" yaml:"name"`
	TargetArtifact      string `json:"target_artifact" yaml:"target_artifact"`
	ForensicInstruction string `json:"forensic_instruction" yaml:"forensic_instruction"`
	SuccessPattern      string `json:"success_pattern" yaml:"success_pattern"`
	FailurePattern      string `json:"failure_pattern" yaml:"failure_pattern"`
}

// Rubric is the full set of criteria plus free-form synthesis notes.
type Rubric struct {
	Version        string            `json:"version" yaml:"version"`
	Dimensions     []Dimension       `json:"dimensions" yaml:"dimensions"`
	SynthesisRules map[string]string `json:"synthesis_rules,omitempty" yaml:"synthesis_rules,omitempty"`
}

// ErrNotFound is returned by rubric sources that hold no rubric.
var ErrNotFound = errors.New("rubric not found")

// Parse decodes a rubric from JSON or YAML.
func Parse(data []byte) (*Rubric, error) {
	var r Rubric
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &r); err != nil {
			return nil, fmt.Errorf("failed to parse rubric json: %w", err)
		}
	} else if err := yaml.Unmarshal(trimmed, &r); err != nil {
		return nil, fmt.Errorf("failed to parse rubric yaml: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks ids are present and unique.
func (r *Rubric) Validate() error {
	seen := make(map[string]bool, len(r.Dimensions))
	for i, d := range r.Dimensions {
		if d.ID == "" {
			return fmt.Errorf("dimension %d: id is required", i)
		}
		if seen[d.ID] {
			return fmt.Errorf("dimension %q: duplicate id", d.ID)
		}
		seen[d.ID] = true
	}
	return nil
}

// Lookup returns the dimension for id.
func (r *Rubric) Lookup(id string) (Dimension, bool) {
	if r == nil {
		return Dimension{}, false
	}
	for _, d := range r.Dimensions {
		if d.ID == id {
			return d, true
		}
	}
	return Dimension{}, false
}

// NameFor returns the display name of a dimension, deriving one from the
// identifier when the rubric has no entry.
func (r *Rubric) NameFor(id string) string {
	if d, ok := r.Lookup(id); ok && d.Name != "" {
		return d.Name
	}
	return TitleFromID(id)
}

// IDsFor returns the ids of dimensions targeting any of the given artifacts.
// A rubric without dimensions owns the built-in criteria, so detectives keep
// collecting when the workspace rubric could not be read.
func (r *Rubric) IDsFor(artifacts ...string) []string {
	if r == nil || len(r.Dimensions) == 0 {
		r = Default()
	}
	want := make(map[string]bool, len(artifacts))
	for _, a := range artifacts {
		want[a] = true
	}
	var ids []string
	for _, d := range r.Dimensions {
		if want[d.TargetArtifact] {
			ids = append(ids, d.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// IDs returns all dimension ids in sorted order.
func (r *Rubric) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.Dimensions))
	for _, d := range r.Dimensions {
		ids = append(ids, d.ID)
	}
	sort.Strings(ids)
	return ids
}

var titler = cases.Title(language.English)

// TitleFromID turns "graph_orchestration" into "Graph Orchestration".
func TitleFromID(id string) string {
	return titler.String(strings.ReplaceAll(id, "_", " "))
}
