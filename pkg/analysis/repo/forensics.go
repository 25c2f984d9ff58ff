package repo

import (
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/felixgeelhaar/auditor/pkg/domain/evidence"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
)

const missingFileConfidence = 0.98

var codeExts = map[string]bool{".py": true, ".go": true, ".ts": true, ".js": true, ".rs": true, ".java": true}

// Protocol investigates one repository criterion.
type Protocol func(src Source, h HistoryReport, subject string) evidence.Evidence

// Protocols maps criterion ids to their forensic protocol.
var Protocols = map[string]Protocol{
	rubric.GitForensicAnalysis: func(_ Source, h HistoryReport, subject string) evidence.Evidence {
		return gitHistoryEvidence(h, subject)
	},
	rubric.StateManagementRigor:        func(src Source, _ HistoryReport, _ string) evidence.Evidence { return stateManagement(src) },
	rubric.GraphOrchestration:          func(src Source, _ HistoryReport, _ string) evidence.Evidence { return graphOrchestration(src) },
	rubric.SafeToolEngineering:         func(src Source, _ HistoryReport, _ string) evidence.Evidence { return toolSafety(src) },
	rubric.StructuredOutputEnforcement: func(src Source, _ HistoryReport, _ string) evidence.Evidence { return structuredOutput(src) },
}

// Analyze runs the protocol of every requested criterion. Criteria without a
// protocol get a low-confidence not-found record.
func Analyze(criteria []string, src Source, h HistoryReport, subject string) evidence.Partial {
	out := evidence.Partial{}
	for _, id := range criteria {
		p, ok := Protocols[id]
		if !ok {
			out.Add(evidence.NotFound(id, "Investigate "+rubric.TitleFromID(id), subject,
				"No repository forensic protocol exists for this criterion.", 0.5))
			continue
		}
		out.Add(p(src, h, subject))
	}
	return out
}

func observation(id, goal string, found bool, report any, location, rationale string, confidence float64) evidence.Evidence {
	e := evidence.Evidence{
		Goal:        goal,
		Found:       found,
		Location:    location,
		Rationale:   rationale,
		Confidence:  confidence,
		CriterionID: id,
	}
	if report != nil {
		if data, err := json.MarshalIndent(report, "", "  "); err == nil {
			s := string(data)
			e.Content = &s
		}
	}
	return e
}

func gitHistoryEvidence(h HistoryReport, subject string) evidence.Evidence {
	passes := h.Passes()
	confidence := 0.70
	if passes {
		confidence = 0.95
	}
	return observation(rubric.GitForensicAnalysis,
		"Verify >3 commits with setup, tools and graph progression",
		passes, h, subject+" :: git log --reverse",
		fmt.Sprintf("%d commits total. %s", h.CommitCount, h.Notes),
		confidence)
}

// findFile returns the first preferred path present in the catalog, then the
// first code file whose base name matches.
func findFile(src Source, preferred []string, match func(base string) bool) string {
	index := make(map[string]bool, len(src.Files()))
	for _, f := range src.Files() {
		index[f] = true
	}
	for _, p := range preferred {
		if index[p] {
			return p
		}
	}
	for _, f := range src.Files() {
		if codeExts[path.Ext(f)] && match(strings.TrimSuffix(path.Base(f), path.Ext(f))) {
			return f
		}
	}
	return ""
}

var (
	structPattern   = regexp.MustCompile(`type\s+\w+\s+struct`)
	evidencePattern = regexp.MustCompile(`\bEvidence\b`)
	statePattern    = regexp.MustCompile(`\b\w*State\b`)
)

type stateReport struct {
	File          string `json:"file_path"`
	TypedModels   bool   `json:"has_typed_models"`
	Reducers      bool   `json:"has_reducers"`
	EvidenceModel bool   `json:"has_evidence_model"`
	SharedState   bool   `json:"has_shared_state"`
}

func stateManagement(src Source) evidence.Evidence {
	const goal = "Locate the shared agent state with typed models and merge reducers"
	file := findFile(src, []string{"src/state.py", "src/graph.py", "state.py"}, func(base string) bool {
		return base == "state" || base == "types" || base == "models"
	})
	if file == "" {
		return evidence.NotFound(rubric.StateManagementRigor, goal, "src/state.py",
			"No state definition file found at expected locations.", missingFileConfidence)
	}
	text, err := src.ReadFile(file)
	if err != nil {
		return evidence.NotFound(rubric.StateManagementRigor, goal, file, "State file unreadable: "+err.Error(), 0.9)
	}

	r := stateReport{
		File:          file,
		TypedModels:   strings.Contains(text, "BaseModel") || strings.Contains(text, "TypedDict") || structPattern.MatchString(text),
		Reducers:      containsAnyOf(text, "operator.add", "operator.ior", "Annotated[", "sync.Mutex", "sync.RWMutex"),
		EvidenceModel: evidencePattern.MatchString(text),
		SharedState:   statePattern.MatchString(text),
	}
	all := r.TypedModels && r.Reducers && r.EvidenceModel && r.SharedState
	confidence := 0.30
	switch {
	case all:
		confidence = 0.95
	case r.TypedModels:
		confidence = 0.60
	}
	return observation(rubric.StateManagementRigor, goal, all, r, file,
		fmt.Sprintf("models=%s reducers=%s evidence=%s state=%s",
			mark(r.TypedModels), mark(r.Reducers), mark(r.EvidenceModel), mark(r.SharedState)),
		confidence)
}

var (
	edgePattern     = regexp.MustCompile(`add_edge\(\s*["']?([\w.]+)["']?\s*,\s*["']?([\w.]+)["']?`)
	listEdgePattern = regexp.MustCompile(`add_edge\(\s*\[([^\]]*)\]\s*,\s*["']?([\w.]+)["']?`)
)

// Topology is the wiring extracted from a graph definition.
type Topology struct {
	File         string   `json:"file_path"`
	HasGraph     bool     `json:"has_graph"`
	Edges        int      `json:"edge_count"`
	FanOut       []string `json:"fan_out_nodes"`
	FanIn        []string `json:"fan_in_nodes"`
	Goroutines   bool     `json:"has_goroutine_barrier"`
	Conditional  bool     `json:"has_conditional_edges"`
	PurelyLinear bool     `json:"is_purely_linear"`
}

func graphOrchestration(src Source) evidence.Evidence {
	const goal = "Verify parallel fan-out/fan-in graph wiring"
	file := findFile(src, []string{"src/graph.py", "graph.py"}, func(base string) bool {
		return strings.HasPrefix(base, "graph") || base == "pipeline" || base == "orchestrator"
	})
	if file == "" {
		return evidence.NotFound(rubric.GraphOrchestration, goal, "src/graph.py (not found)",
			"No graph definition file exists; topology cannot be verified.", missingFileConfidence)
	}
	text, err := src.ReadFile(file)
	if err != nil {
		return evidence.NotFound(rubric.GraphOrchestration, goal, file, "Graph file unreadable: "+err.Error(), 0.9)
	}

	r := AnalyzeTopology(text)
	r.File = file
	passes := r.HasGraph && !r.PurelyLinear
	confidence := 0.95
	switch {
	case passes:
		confidence = 0.90
	case r.HasGraph:
		confidence = 0.60
	}
	return observation(rubric.GraphOrchestration, goal, passes, r, file,
		fmt.Sprintf("graph=%s linear_only=%t fan_out_nodes=%v fan_in_nodes=%v conditional_edges=%s",
			mark(r.HasGraph), r.PurelyLinear, r.FanOut, r.FanIn, mark(r.Conditional)),
		confidence)
}

// AnalyzeTopology extracts edges from graph wiring code and classifies its
// parallelism.
func AnalyzeTopology(text string) Topology {
	out := map[string]map[string]bool{}
	in := map[string]map[string]bool{}
	edges := 0
	addEdge := func(from, to string) {
		from, to = strings.Trim(strings.TrimSpace(from), `"'`), strings.Trim(strings.TrimSpace(to), `"'`)
		if from == "" || to == "" {
			return
		}
		edges++
		if out[from] == nil {
			out[from] = map[string]bool{}
		}
		if in[to] == nil {
			in[to] = map[string]bool{}
		}
		out[from][to] = true
		in[to][from] = true
	}
	for _, m := range edgePattern.FindAllStringSubmatch(text, -1) {
		addEdge(m[1], m[2])
	}
	for _, m := range listEdgePattern.FindAllStringSubmatch(text, -1) {
		for _, from := range strings.Split(m[1], ",") {
			addEdge(from, m[2])
		}
	}

	r := Topology{
		Edges:       edges,
		FanOut:      wide(out),
		FanIn:       wide(in),
		Conditional: strings.Contains(text, "add_conditional_edges"),
		Goroutines:  strings.Contains(text, "go func") && strings.Contains(text, ".Wait()"),
	}
	r.HasGraph = strings.Contains(text, "StateGraph") || edges > 0 || r.Goroutines
	r.PurelyLinear = len(r.FanOut) == 0 && len(r.FanIn) == 0 && !r.Goroutines
	return r
}

func wide(adj map[string]map[string]bool) []string {
	nodes := []string{}
	for n, peers := range adj {
		if len(peers) >= 2 {
			nodes = append(nodes, n)
		}
	}
	sort.Strings(nodes)
	return nodes
}

var shellPattern = regexp.MustCompile(`exec\.Command(Context)?\([^)]*"(sh|bash)"\s*,\s*"-c"`)

type toolReport struct {
	File       string `json:"file_path"`
	Violation  bool   `json:"uses_shell"`
	TempDir    bool   `json:"uses_tempdir"`
	Subprocess bool   `json:"uses_subprocess"`
	Checked    bool   `json:"subprocess_checked"`
}

func toolSafety(src Source) evidence.Evidence {
	const goal = "Verify sandboxed git clone in a temporary directory without shell execution"
	var files []string
	for _, f := range src.Files() {
		if codeExts[path.Ext(f)] && (strings.HasPrefix(f, "tools/") || strings.Contains(f, "/tools/")) {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return evidence.NotFound(rubric.SafeToolEngineering, goal, "src/tools/ (not found)",
			"No tools directory; sandboxing cannot be verified.", missingFileConfidence)
	}

	var reports []toolReport
	violation, allTemp, allChecked := false, true, true
	for _, f := range files {
		text, err := src.ReadFile(f)
		if err != nil {
			continue
		}
		r := toolReport{
			File:       f,
			Violation:  strings.Contains(text, "os.system(") || strings.Contains(text, "shell=True") || shellPattern.MatchString(text),
			TempDir:    containsAnyOf(text, "tempfile", "TemporaryDirectory", "MkdirTemp", "TempDir"),
			Subprocess: containsAnyOf(text, "subprocess.", "exec.Command"),
			Checked:    containsAnyOf(text, "check=True", "exec.CommandContext"),
		}
		reports = append(reports, r)
		violation = violation || r.Violation
		if r.Subprocess {
			allTemp = allTemp && r.TempDir
			allChecked = allChecked && r.Checked
		}
	}

	passes := !violation && allTemp && allChecked
	confidence := 0.95
	switch {
	case passes:
		confidence = 0.90
	case !violation:
		confidence = 0.70
	}
	shell := "none"
	if violation {
		shell = "SECURITY ISSUE"
	}
	return observation(rubric.SafeToolEngineering, goal, passes, reports, dirOf(files[0]),
		fmt.Sprintf("shell execution=%s tempdir=%s checked subprocess=%s", shell, mark(allTemp), mark(allChecked)),
		confidence)
}

type structuredReport struct {
	File           string `json:"file_path"`
	StructuredCall bool   `json:"uses_structured_output"`
	BindTools      bool   `json:"uses_bind_tools"`
	SchemaCheck    bool   `json:"validates_schema"`
	Retry          bool   `json:"has_retry_logic"`
}

func structuredOutput(src Source) evidence.Evidence {
	const goal = "Verify judge output is bound to a structured opinion schema"
	file := findFile(src, []string{"src/nodes/judges.py"}, func(base string) bool {
		return strings.Contains(base, "judge")
	})
	if file == "" {
		return evidence.NotFound(rubric.StructuredOutputEnforcement, goal, "src/nodes/judges.py (not found)",
			"No judge implementation file exists.", missingFileConfidence)
	}
	text, err := src.ReadFile(file)
	if err != nil {
		return evidence.NotFound(rubric.StructuredOutputEnforcement, goal, file, "Judge file unreadable: "+err.Error(), 0.9)
	}

	lower := strings.ToLower(text)
	r := structuredReport{
		File:           file,
		StructuredCall: strings.Contains(text, "with_structured_output"),
		BindTools:      strings.Contains(text, "bind_tools"),
		SchemaCheck:    containsAnyOf(text, "gojsonschema", "response_format", "json_schema", "JSONMode"),
		Retry:          containsAnyOf(lower, "retry", "tenacity", "max_retries", "backoff", "for_attempt"),
	}
	passes := r.StructuredCall || r.BindTools || r.SchemaCheck
	confidence := 0.95
	if passes {
		confidence = 0.90
	}
	return observation(rubric.StructuredOutputEnforcement, goal, passes, r, file,
		fmt.Sprintf("structured_output=%s bind_tools=%s schema=%s retry_logic=%s",
			mark(r.StructuredCall), mark(r.BindTools), mark(r.SchemaCheck), mark(r.Retry)),
		confidence)
}

func containsAnyOf(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func dirOf(p string) string {
	return path.Dir(p) + "/"
}
