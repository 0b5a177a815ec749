// Package graph provides the reference graph declared by generation scripts.
package graph

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrCycleDetected indicates a circular reference was found among generated scripts.
var ErrCycleDetected = errors.New("circular reference detected")

// Edge is one declared reference from a script.
type Edge struct {
	// Target is the node the reference resolves to. For references that do not
	// resolve to a generated script this is the normalised raw reference.
	Target string
	// Raw is the reference exactly as written in the script.
	Raw string
	// Line is the 1-based line of the directive.
	Line int
}

// ReferenceGraph is a directed graph of script references.
// Nodes are generated script paths; edge targets may point outside the node
// set (SDK-resident paths), and such targets are always leaves.
type ReferenceGraph struct {
	// nodes holds generated script paths in insertion order.
	nodes []string
	// known indexes nodes for membership tests.
	known map[string]bool
	// edges maps a node to its references in declaration order.
	edges map[string][]Edge
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// New creates an empty reference graph.
func New() *ReferenceGraph {
	return &ReferenceGraph{
		known:    make(map[string]bool),
		edges:    make(map[string][]Edge),
		debugLog: func(format string, args ...interface{}) {}, // no-op by default
	}
}

// SetDebugLog sets the debug logging function.
func (g *ReferenceGraph) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		g.debugLog = fn
	}
}

// AddNode registers a generated script. Adding a node twice is a no-op.
func (g *ReferenceGraph) AddNode(path string) {
	if g.known[path] {
		return
	}
	g.known[path] = true
	g.nodes = append(g.nodes, path)
}

// AddEdge records a reference from a node. The source node is registered if needed.
func (g *ReferenceGraph) AddEdge(from string, e Edge) {
	g.AddNode(from)
	g.edges[from] = append(g.edges[from], e)
	g.debugLog("[graph.AddEdge] %s -> %s (raw=%q line=%d)", from, e.Target, e.Raw, e.Line)
}

// HasNode reports whether path is a generated script in the graph.
func (g *ReferenceGraph) HasNode(path string) bool {
	return g.known[path]
}

// Nodes returns the node paths in sorted order.
func (g *ReferenceGraph) Nodes() []string {
	out := append([]string(nil), g.nodes...)
	sort.Strings(out)
	return out
}

// Edges returns the references declared by a node, in declaration order.
func (g *ReferenceGraph) Edges(from string) []Edge {
	return g.edges[from]
}

// Size returns the number of nodes.
func (g *ReferenceGraph) Size() int {
	return len(g.nodes)
}

// FindCycle runs a depth-first search restricted to generated scripts and
// returns the first cycle found as an ordered path whose last element repeats
// the first. Nodes are visited in sorted order and edges in declaration order,
// so the result is deterministic. Only one cycle is reported.
func (g *ReferenceGraph) FindCycle() ([]string, bool) {
	// Color states: 0 = white (unvisited), 1 = gray (on stack), 2 = black (done).
	colors := make(map[string]int, len(g.nodes))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		colors[id] = 1
		stack = append(stack, id)

		for _, e := range g.edges[id] {
			if !g.known[e.Target] {
				// External targets are leaves and never part of a cycle.
				continue
			}
			switch colors[e.Target] {
			case 1:
				// Back edge: the cycle is the stack suffix starting at the target.
				for i, n := range stack {
					if n == e.Target {
						cycle := append([]string(nil), stack[i:]...)
						return append(cycle, e.Target)
					}
				}
			case 0:
				if cycle := visit(e.Target); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		colors[id] = 2
		return nil
	}

	for _, id := range g.Nodes() {
		if colors[id] != 0 {
			continue
		}
		if cycle := visit(id); cycle != nil {
			g.debugLog("[graph.FindCycle] cycle: %s", FormatCycle(cycle))
			return cycle, true
		}
	}
	return nil, false
}

// HasCycle returns true if the scripts reference each other circularly.
func (g *ReferenceGraph) HasCycle() bool {
	_, found := g.FindCycle()
	return found
}

// TopologicalSort returns the generated scripts ordered so that every script
// comes after the scripts it references.
func (g *ReferenceGraph) TopologicalSort() ([]string, error) {
	if g.HasCycle() {
		return nil, ErrCycleDetected
	}

	visited := make(map[string]bool)
	var result []string

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, e := range g.edges[id] {
			if g.known[e.Target] {
				visit(e.Target)
			}
		}
		result = append(result, id)
	}

	for _, id := range g.Nodes() {
		visit(id)
	}
	return result, nil
}

// FormatCycle renders a cycle as "A -> B -> A".
func FormatCycle(cycle []string) string {
	return strings.Join(cycle, " -> ")
}
