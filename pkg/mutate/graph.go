package mutate

import (
	"github.com/samber/lo"

	"github.com/matzehuels/flowkeeper/pkg/flow"
	"github.com/matzehuels/flowkeeper/pkg/group"
)

// GraphResult is the outcome of [ApplyToGraph].
type GraphResult struct {
	Graph         flow.GraphDocument
	Removed       []string
	Moved         []string
	Attached      []Attach
	Declined      []Attach
	PrunedEdges   []string
	LayoutChanged bool
}

// Changed reports whether the batch changed anything that is persisted.
func (r GraphResult) Changed() bool {
	return len(r.Removed) > 0 || len(r.Moved) > 0 || len(r.Attached) > 0 || r.LayoutChanged
}

// ApplyToGraph runs the full pipeline for one change batch on g: fold the
// changes, drop edges of removed nodes, resolve pending attaches through c,
// and fit containers to their members. g is not modified.
func ApplyToGraph(g flow.GraphDocument, changes []NodeChange, c Confirmer) GraphResult {
	res := ApplyNodeChanges(changes, g.Nodes)

	out := flow.GraphDocument{ID: g.ID, Name: g.Name, Edges: g.Edges}
	var pruned []string
	if len(res.Removed) > 0 {
		gone := lo.SliceToMap(res.Removed, func(id string) (string, bool) { return id, true })
		out.Edges = flow.PruneEdges(g.Edges, gone)
		kept := lo.SliceToMap(out.Edges, func(e flow.Edge) (string, bool) { return e.ID, true })
		for _, e := range g.Edges {
			if !kept[e.ID] {
				pruned = append(pruned, e.ID)
			}
		}
	}
	out.Edges = append([]flow.Edge(nil), out.Edges...)

	nodes, accepted, declined := ResolveAttaches(res.Nodes, res.Pending, c)
	nodes, changed := group.Layout(nodes)
	out.Nodes = nodes

	return GraphResult{
		Graph:         out,
		Removed:       res.Removed,
		Moved:         res.Moved,
		Attached:      accepted,
		Declined:      declined,
		PrunedEdges:   pruned,
		LayoutChanged: changed,
	}
}
