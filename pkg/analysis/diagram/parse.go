// Package diagram classifies architecture diagrams embedded in a report.
//
// Mermaid flowcharts and Graphviz digraphs are recovered from the report
// text and reduced to an edge list. A diagram depicts a parallel swarm when
// at least one node fans out to several successors and at least one node
// joins several predecessors.
package diagram

import (
	"regexp"
	"sort"
	"strings"
)

// Diagram kinds.
const (
	KindMermaid  = "mermaid"
	KindGraphviz = "graphviz"
)

// Edge is a directed connection between two nodes.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Diagram is one recovered graph.
type Diagram struct {
	Kind   string   `json:"kind"`
	Nodes  []string `json:"nodes"`
	Edges  []Edge   `json:"edges"`
	FanOut []string `json:"fan_out_nodes"`
	FanIn  []string `json:"fan_in_nodes"`
}

// Parallel reports whether the diagram shows both a split and a join.
func (d Diagram) Parallel() bool {
	return len(d.FanOut) > 0 && len(d.FanIn) > 0
}

// Linear reports a diagram with edges but no branching at all.
func (d Diagram) Linear() bool {
	return len(d.Edges) > 0 && len(d.FanOut) == 0 && len(d.FanIn) == 0
}

var (
	fencePattern   = regexp.MustCompile("(?s)```\\s*(mermaid|dot|graphviz)\\s*\\n(.*?)```")
	digraphPattern = regexp.MustCompile(`(?s)\b(?:strict\s+)?(?:di)?graph\s+[\w"]*\s*\{(.*?)\n\s*\}`)
	mermaidHeader  = regexp.MustCompile(`(?m)^\s*(?:graph|flowchart)\s+(?:TD|TB|BT|LR|RL)\b.*$`)
)

// Extract finds every diagram in text. Fenced blocks are read first; bare
// digraph bodies and mermaid headers outside fences follow.
func Extract(text string) []Diagram {
	var out []Diagram
	rest := text
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		rest = strings.Replace(rest, m[0], "", 1)
		if strings.EqualFold(m[1], "mermaid") {
			out = appendNonEmpty(out, parseMermaid(m[2]))
		} else {
			out = appendNonEmpty(out, parseDot(bodyOf(m[2])))
		}
	}
	for _, m := range digraphPattern.FindAllStringSubmatch(rest, -1) {
		rest = strings.Replace(rest, m[0], "", 1)
		out = appendNonEmpty(out, parseDot(m[1]))
	}
	for _, loc := range mermaidHeader.FindAllStringIndex(rest, -1) {
		block := rest[loc[0]:]
		if end := strings.Index(block, "\n\n"); end >= 0 {
			block = block[:end]
		}
		out = appendNonEmpty(out, parseMermaid(block))
	}
	return out
}

func appendNonEmpty(out []Diagram, d Diagram) []Diagram {
	if len(d.Edges) == 0 {
		return out
	}
	return append(out, d)
}

func bodyOf(src string) string {
	open := strings.Index(src, "{")
	closing := strings.LastIndex(src, "}")
	if open < 0 || closing <= open {
		return src
	}
	return src[open+1 : closing]
}

var (
	mermaidLabel   = regexp.MustCompile(`\|[^|]*\|`)
	mermaidText    = regexp.MustCompile(`--\s+[^->]+?\s+-->`)
	mermaidShape   = regexp.MustCompile(`\(\([^)]*\)\)|\[\[[^\]]*\]\]|\[[^\]]*\]|\([^)]*\)|\{[^}]*\}`)
	mermaidArrow   = regexp.MustCompile(`\s*(?:-\.+->|={2,}>|-{2,}>|-{3,})\s*`)
	mermaidKeyword = regexp.MustCompile(`^\s*(?:%%|(?:graph|flowchart|subgraph|end|classDef|class|style|linkStyle|click)\b)`)
	nodeID         = regexp.MustCompile(`^[\w.\-]+$`)
)

func parseMermaid(src string) Diagram {
	b := newBuilder(KindMermaid)
	for _, line := range strings.Split(src, "\n") {
		for _, stmt := range strings.Split(line, ";") {
			if mermaidKeyword.MatchString(stmt) {
				continue
			}
			stmt = mermaidText.ReplaceAllString(stmt, "-->")
			stmt = mermaidLabel.ReplaceAllString(stmt, "")
			stmt = mermaidShape.ReplaceAllString(stmt, "")
			b.chain(mermaidArrow.Split(stmt, -1), "&")
		}
	}
	return b.build()
}

var (
	dotAttrs = regexp.MustCompile(`\[[^\]]*\]`)
	dotArrow = regexp.MustCompile(`\s*-[->]\s*`)
)

func parseDot(src string) Diagram {
	b := newBuilder(KindGraphviz)
	src = dotAttrs.ReplaceAllString(src, "")
	for _, stmt := range strings.FieldsFunc(src, func(r rune) bool { return r == ';' || r == '\n' }) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || strings.HasPrefix(stmt, "//") || strings.HasPrefix(stmt, "subgraph") {
			continue
		}
		stmt = strings.Trim(stmt, "{} \t")
		b.chain(dotArrow.Split(stmt, -1), " ")
	}
	return b.build()
}

type builder struct {
	kind  string
	nodes map[string]bool
	edges map[Edge]bool
	order []Edge
}

func newBuilder(kind string) *builder {
	return &builder{kind: kind, nodes: map[string]bool{}, edges: map[Edge]bool{}}
}

// chain links every node of each segment to every node of the next.
func (b *builder) chain(segments []string, sep string) {
	if len(segments) < 2 {
		return
	}
	var prev []string
	for _, seg := range segments {
		cur := b.ids(seg, sep)
		if len(cur) == 0 {
			prev = nil
			continue
		}
		for _, from := range prev {
			for _, to := range cur {
				e := Edge{From: from, To: to}
				if from != to && !b.edges[e] {
					b.edges[e] = true
					b.order = append(b.order, e)
				}
			}
		}
		prev = cur
	}
}

func (b *builder) ids(seg, sep string) []string {
	seg = strings.NewReplacer("{", " ", "}", " ", ",", " ").Replace(seg)
	var parts []string
	if sep == " " {
		parts = strings.Fields(seg)
	} else {
		parts = strings.Split(seg, sep)
	}
	var out []string
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `"'`)
		if p == "" || !nodeID.MatchString(p) {
			continue
		}
		b.nodes[p] = true
		out = append(out, p)
	}
	return out
}

func (b *builder) build() Diagram {
	d := Diagram{Kind: b.kind, Edges: b.order, Nodes: []string{}, FanOut: []string{}, FanIn: []string{}}
	outs, ins := map[string]int{}, map[string]int{}
	for _, e := range b.order {
		outs[e.From]++
		ins[e.To]++
	}
	for n := range b.nodes {
		d.Nodes = append(d.Nodes, n)
		if outs[n] >= 2 {
			d.FanOut = append(d.FanOut, n)
		}
		if ins[n] >= 2 {
			d.FanIn = append(d.FanIn, n)
		}
	}
	sort.Strings(d.Nodes)
	sort.Strings(d.FanOut)
	sort.Strings(d.FanIn)
	return d
}
