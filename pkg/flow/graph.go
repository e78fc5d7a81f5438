package flow

import (
	"github.com/matzehuels/flowkeeper/pkg/handle"
)

// =============================================================================
// GraphDocument accessors
// =============================================================================

// NodeIndex returns the slice index of the node with the given id, or -1.
func (g *GraphDocument) NodeIndex(id string) int {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// Node returns a pointer into g.Nodes for the given id.
func (g *GraphDocument) Node(id string) (*Node, bool) {
	if i := g.NodeIndex(id); i >= 0 {
		return &g.Nodes[i], true
	}
	return nil, false
}

// EdgeIndex returns the slice index of the edge with the given id, or -1.
func (g *GraphDocument) EdgeIndex(id string) int {
	for i := range g.Edges {
		if g.Edges[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of g.
func (g GraphDocument) Clone() GraphDocument {
	out := GraphDocument{ID: g.ID, Name: g.Name}
	if g.Nodes != nil {
		out.Nodes = make([]Node, len(g.Nodes))
		for i, n := range g.Nodes {
			out.Nodes[i] = n.Clone()
		}
	}
	if g.Edges != nil {
		out.Edges = append([]Edge(nil), g.Edges...)
	}
	return out
}

// =============================================================================
// ProjectSnapshot accessors
// =============================================================================

// GraphIndex returns the slice index of the graph with the given id, or -1.
func (p *ProjectSnapshot) GraphIndex(id string) int {
	for i := range p.Graphs {
		if p.Graphs[i].ID == id {
			return i
		}
	}
	return -1
}

// Graph returns a pointer into p.Graphs for the given id.
func (p *ProjectSnapshot) Graph(id string) (*GraphDocument, bool) {
	if i := p.GraphIndex(id); i >= 0 {
		return &p.Graphs[i], true
	}
	return nil, false
}

// Active returns the active graph, falling back to the first graph.
func (p *ProjectSnapshot) Active() (*GraphDocument, bool) {
	if g, ok := p.Graph(p.ActiveGraphID); ok {
		return g, true
	}
	if len(p.Graphs) > 0 {
		return &p.Graphs[0], true
	}
	return nil, false
}

// ReplaceGraph swaps in g for the graph with the same id.
// It reports false if no such graph exists.
func (p *ProjectSnapshot) ReplaceGraph(g GraphDocument) bool {
	i := p.GraphIndex(g.ID)
	if i < 0 {
		return false
	}
	p.Graphs[i] = g
	return true
}

// Clone returns a deep copy of p.
func (p ProjectSnapshot) Clone() ProjectSnapshot {
	out := ProjectSnapshot{Version: p.Version, ActiveGraphID: p.ActiveGraphID}
	out.Graphs = make([]GraphDocument, len(p.Graphs))
	for i, g := range p.Graphs {
		out.Graphs[i] = g.Clone()
	}
	return out
}

// =============================================================================
// Normalization
// =============================================================================

// EdgeID derives a deterministic edge id from its four endpoint fields.
func EdgeID(e Edge) string {
	return "e-" + e.Source + "-" + e.SourceHandle + "-" + e.Target + "-" + e.TargetHandle
}

// NormalizeEdge rewrites legacy handle aliases and fills a missing id.
func NormalizeEdge(e Edge) Edge {
	e.SourceHandle = handle.Normalize(e.SourceHandle)
	e.TargetHandle = handle.Normalize(e.TargetHandle)
	if e.ID == "" {
		e.ID = EdgeID(e)
	}
	return e
}

// NormalizeGraph enforces the structural invariants of a graph document:
//
//   - duplicate node ids are dropped (first occurrence wins)
//   - edge handles are normalized and missing edge ids derived
//   - dangling edges and duplicate edge ids are dropped
//   - group membership that does not name a container in the graph is cleared
//
// Containers never nest, so a container's own membership is always cleared.
// The input is not modified.
func NormalizeGraph(g GraphDocument) GraphDocument {
	out := GraphDocument{ID: g.ID, Name: g.Name, Nodes: make([]Node, 0, len(g.Nodes)), Edges: make([]Edge, 0, len(g.Edges))}

	kinds := make(map[string]Kind, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			continue
		}
		if _, dup := kinds[n.ID]; dup {
			continue
		}
		kinds[n.ID] = n.Type
		out.Nodes = append(out.Nodes, n.Clone())
	}

	for i := range out.Nodes {
		n := &out.Nodes[i]
		if n.IsContainer() {
			n.SetGroup("")
			continue
		}
		if n.GroupContainerID != "" && kinds[n.GroupContainerID] != KindGroup {
			n.GroupContainerID = ""
		}
		if n.ParentID != "" && kinds[n.ParentID] != KindGroup {
			n.ParentID = ""
			n.Extent = ""
		}
	}

	seen := make(map[string]bool, len(g.Edges))
	for _, e := range g.Edges {
		e = NormalizeEdge(e)
		if _, ok := kinds[e.Source]; !ok {
			continue
		}
		if _, ok := kinds[e.Target]; !ok {
			continue
		}
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		out.Edges = append(out.Edges, e)
	}
	return out
}

// PruneEdges returns the edges of g that do not touch any of the removed ids.
func PruneEdges(edges []Edge, removed map[string]bool) []Edge {
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if removed[e.Source] || removed[e.Target] {
			continue
		}
		out = append(out, e)
	}
	return out
}

// =============================================================================
// Payload helpers
// =============================================================================

// CopyData deep-copies a JSON-shaped payload map.
func CopyData(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CopyData(t)
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = copyValue(x)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = CopyData(x)
		}
		return out
	default:
		return v
	}
}
