package command

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/matzehuels/flowkeeper/pkg/catalog"
	"github.com/matzehuels/flowkeeper/pkg/connect"
	"github.com/matzehuels/flowkeeper/pkg/flow"
	"github.com/matzehuels/flowkeeper/pkg/group"
	"github.com/matzehuels/flowkeeper/pkg/handle"
	"github.com/matzehuels/flowkeeper/pkg/mutate"
)

// Reason is a rejection code. Connection rejections reuse the codes of
// package connect.
type Reason string

const (
	MinItems      Reason = "min-items"
	LastGraph     Reason = "last-graph"
	NotFound      Reason = "not-found"
	NotAContainer Reason = "not-a-container"
	NestedGroup   Reason = "nested-group"
	UnknownKind   Reason = "unknown-kind"
	NoItems       Reason = "no-items"
	DuplicateID   Reason = "duplicate-id"
	InvalidField  Reason = "invalid-field"
	InvalidName   Reason = "invalid-name"
	Unsupported   Reason = "unsupported"
)

var hints = map[Reason]string{
	MinItems:      "at least one item is required",
	LastGraph:     "a project needs at least one flow",
	NotFound:      "no longer exists",
	NotAContainer: "target is not a group",
	NestedGroup:   "groups cannot be nested",
	UnknownKind:   "unknown node type",
	NoItems:       "this node has no item list",
	DuplicateID:   "id already in use",
	InvalidField:  "field cannot be edited directly",
	InvalidName:   "name must not be empty",
	Unsupported:   "unsupported command",
}

// Message returns user-facing hint text for r.
func (r Reason) Message() string {
	if h, ok := hints[r]; ok {
		return h
	}
	return connect.Reason(r).Message()
}

// Outcome describes what Reduce did.
type Outcome struct {
	Applied      bool     `json:"applied"`
	Reason       Reason   `json:"reason,omitempty"`
	Hint         string   `json:"hint,omitempty"`
	Created      string   `json:"created,omitempty"`
	RemovedEdges []string `json:"removedEdges,omitempty"`
}

func applied() Outcome { return Outcome{Applied: true} }

func rejected(r Reason, subject string) Outcome {
	h := r.Message()
	if subject != "" {
		h = subject + ": " + h
	}
	return Outcome{Reason: r, Hint: h}
}

// Options configures Reduce.
type Options struct {
	// NewID generates node and graph ids. Defaults to random UUIDs.
	NewID func() string
}

func (o Options) newID() string {
	if o.NewID != nil {
		return o.NewID()
	}
	return uuid.NewString()
}

// Reduce applies cmd to a copy of p. On rejection the returned snapshot is
// p itself and the outcome carries the reason.
func Reduce(p flow.ProjectSnapshot, cmd Command, opts Options) (flow.ProjectSnapshot, Outcome) {
	next := p.Clone()
	var out Outcome

	switch c := cmd.(type) {
	case ChangeField:
		out = withGraph(&next, c.Graph, func(g *flow.GraphDocument) Outcome { return changeField(g, c) })
	case AddNode:
		out = withGraph(&next, c.Graph, func(g *flow.GraphDocument) Outcome { return addNode(g, c, opts) })
	case DeleteNodes:
		out = withGraph(&next, c.Graph, func(g *flow.GraphDocument) Outcome { return deleteNodes(g, c.IDs) })
	case AddItem:
		out = withGraph(&next, c.Graph, func(g *flow.GraphDocument) Outcome { return addItem(g, c) })
	case RemoveItem:
		out = withGraph(&next, c.Graph, func(g *flow.GraphDocument) Outcome { return removeItem(g, c) })
	case Connect:
		out = withGraph(&next, c.Graph, func(g *flow.GraphDocument) Outcome { return connectEdge(g, c.Candidate) })
	case Disconnect:
		out = withGraph(&next, c.Graph, func(g *flow.GraphDocument) Outcome { return disconnect(g, c.EdgeID) })
	case JoinGroup:
		out = withGraph(&next, c.Graph, func(g *flow.GraphDocument) Outcome { return joinGroup(g, c) })
	case LeaveGroup:
		out = withGraph(&next, c.Graph, func(g *flow.GraphDocument) Outcome { return leaveGroup(g, c.Node) })
	case DissolveGroup:
		out = withGraph(&next, c.Graph, func(g *flow.GraphDocument) Outcome { return dissolveGroup(g, c.Container) })
	case AddGraph:
		out = addGraph(&next, c, opts)
	case RenameGraph:
		out = renameGraph(&next, c)
	case DeleteGraph:
		out = deleteGraph(&next, c.Graph)
	case SetActiveGraph:
		out = setActive(&next, c.Graph)
	default:
		out = rejected(Unsupported, fmt.Sprintf("%T", cmd))
	}

	if !out.Applied {
		return p, out
	}
	return next, out
}

// withGraph resolves graphID (empty means the active graph) and runs fn on it.
func withGraph(p *flow.ProjectSnapshot, graphID string, fn func(*flow.GraphDocument) Outcome) Outcome {
	var (
		g  *flow.GraphDocument
		ok bool
	)
	if graphID == "" {
		g, ok = p.Active()
	} else {
		g, ok = p.Graph(graphID)
	}
	if !ok {
		return rejected(NotFound, "graph "+graphID)
	}
	return fn(g)
}

// =============================================================================
// Node commands
// =============================================================================

func changeField(g *flow.GraphDocument, c ChangeField) Outcome {
	n, ok := g.Node(c.Node)
	if !ok {
		return rejected(NotFound, "node "+c.Node)
	}
	switch {
	case c.Field == "":
		return rejected(InvalidField, "")
	case c.Field == "id", c.Field == "type", flow.IsEditorOnlyKey(c.Field):
		return rejected(InvalidField, c.Field)
	}
	if list, _, ok := catalog.ItemsOf(*n); ok && c.Field == list.Key {
		return rejected(InvalidField, c.Field)
	}
	if n.Data == nil {
		n.Data = map[string]any{}
	}
	n.Data[c.Field] = c.Value
	relayout(g)
	return applied()
}

func addNode(g *flow.GraphDocument, c AddNode, opts Options) Outcome {
	p, ok := catalog.Lookup(c.Kind)
	if !ok {
		return rejected(UnknownKind, string(c.Kind))
	}
	id := c.ID
	if id == "" {
		id = opts.newID()
	}
	if _, exists := g.Node(id); exists {
		return rejected(DuplicateID, id)
	}
	n := flow.Node{ID: id, Type: c.Kind, Position: c.Position, Data: catalog.DefaultData(c.Kind)}
	if p.Container {
		s := p.Size
		n.Size = &s
	}
	g.Nodes = append(g.Nodes, n)
	out := applied()
	out.Created = id
	return out
}

func deleteNodes(g *flow.GraphDocument, ids []string) Outcome {
	changes := make([]mutate.NodeChange, 0, len(ids))
	for _, id := range ids {
		if _, ok := g.Node(id); !ok {
			return rejected(NotFound, "node "+id)
		}
		changes = append(changes, mutate.Remove(id))
	}
	res := mutate.ApplyToGraph(*g, changes, nil)
	*g = res.Graph
	out := applied()
	out.RemovedEdges = res.PrunedEdges
	return out
}

// =============================================================================
// Item commands
// =============================================================================

func addItem(g *flow.GraphDocument, c AddItem) Outcome {
	n, ok := g.Node(c.Node)
	if !ok {
		return rejected(NotFound, "node "+c.Node)
	}
	list, items, ok := catalog.ItemsOf(*n)
	if !ok {
		return rejected(NoItems, c.Node)
	}
	id := list.NextID(items)
	label := c.Label
	if label == "" {
		label = id
	}
	n.Data = list.Write(n.Data, append(items, catalog.Item{ID: id, Label: label}))
	out := applied()
	out.Created = id
	return out
}

// removeItem enforces the minimum-one rule and deletes every edge bound to
// the item's handle on either side.
func removeItem(g *flow.GraphDocument, c RemoveItem) Outcome {
	n, ok := g.Node(c.Node)
	if !ok {
		return rejected(NotFound, "node "+c.Node)
	}
	list, items, ok := catalog.ItemsOf(*n)
	if !ok {
		return rejected(NoItems, c.Node)
	}
	idx := lo.IndexOf(lo.Map(items, func(it catalog.Item, _ int) string { return it.ID }), c.Item)
	if idx < 0 {
		return rejected(NotFound, list.Noun+" "+c.Item)
	}
	if len(items) <= 1 {
		return rejected(MinItems, list.Noun+" "+c.Item)
	}

	n.Data = list.Write(n.Data, append(items[:idx:idx], items[idx+1:]...))

	h := list.Handle(c.Item)
	bound := func(e flow.Edge) bool {
		return (e.Source == c.Node && handle.Normalize(e.SourceHandle) == h) ||
			(e.Target == c.Node && handle.Normalize(e.TargetHandle) == h)
	}
	out := applied()
	out.RemovedEdges = lo.FilterMap(g.Edges, func(e flow.Edge, _ int) (string, bool) { return e.ID, bound(e) })
	g.Edges = lo.Reject(g.Edges, func(e flow.Edge, _ int) bool { return bound(e) })
	return out
}

// =============================================================================
// Edge commands
// =============================================================================

func connectEdge(g *flow.GraphDocument, c connect.Candidate) Outcome {
	r := connect.Validate(c, g.Nodes, g.Edges)
	if !r.Valid {
		return Outcome{Reason: Reason(r.Reason), Hint: r.Reason.Message()}
	}
	e := c.Edge()
	if !exposes(g, e.Source, e.SourceHandle, false) || !exposes(g, e.Target, e.TargetHandle, true) {
		return Outcome{Reason: Reason(connect.InvalidHandle), Hint: connect.InvalidHandle.Message()}
	}
	if lo.ContainsBy(g.Edges, func(x flow.Edge) bool { return flow.NormalizeEdge(x).SameEndpoints(e) }) {
		return applied()
	}
	for g.EdgeIndex(e.ID) >= 0 {
		e.ID += "-1"
	}
	g.Edges = append(g.Edges, e)
	out := applied()
	out.Created = e.ID
	return out
}

// exposes reports whether the node's kind offers the canonical handle h on
// the given side. Containers expose nothing.
func exposes(g *flow.GraphDocument, nodeID, h string, input bool) bool {
	n, ok := g.Node(nodeID)
	if !ok {
		return false
	}
	inputs, outputs := catalog.Handles(*n)
	if input {
		return lo.Contains(inputs, h)
	}
	return lo.Contains(outputs, h)
}

func disconnect(g *flow.GraphDocument, edgeID string) Outcome {
	i := g.EdgeIndex(edgeID)
	if i < 0 {
		return rejected(NotFound, "edge "+edgeID)
	}
	g.Edges = append(g.Edges[:i:i], g.Edges[i+1:]...)
	out := applied()
	out.RemovedEdges = []string{edgeID}
	return out
}

// =============================================================================
// Group commands
// =============================================================================

func joinGroup(g *flow.GraphDocument, c JoinGroup) Outcome {
	n, ok := g.Node(c.Node)
	if !ok {
		return rejected(NotFound, "node "+c.Node)
	}
	ct, ok := g.Node(c.Container)
	if !ok {
		return rejected(NotFound, "group "+c.Container)
	}
	if !ct.IsContainer() {
		return rejected(NotAContainer, c.Container)
	}
	if n.IsContainer() || n.ID == ct.ID {
		return rejected(NestedGroup, c.Node)
	}
	n.SetGroup(c.Container)
	relayout(g)
	return applied()
}

func leaveGroup(g *flow.GraphDocument, id string) Outcome {
	n, ok := g.Node(id)
	if !ok {
		return rejected(NotFound, "node "+id)
	}
	n.SetGroup("")
	relayout(g)
	return applied()
}

func dissolveGroup(g *flow.GraphDocument, id string) Outcome {
	ct, ok := g.Node(id)
	if !ok {
		return rejected(NotFound, "group "+id)
	}
	if !ct.IsContainer() {
		return rejected(NotAContainer, id)
	}
	return deleteNodes(g, []string{id})
}

func relayout(g *flow.GraphDocument) {
	g.Nodes, _ = group.Layout(g.Nodes)
}

// =============================================================================
// Graph commands
// =============================================================================

func addGraph(p *flow.ProjectSnapshot, c AddGraph, opts Options) Outcome {
	id := c.ID
	if id == "" {
		id = opts.newID()
	}
	if p.GraphIndex(id) >= 0 {
		return rejected(DuplicateID, id)
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = fmt.Sprintf("Flow %d", len(p.Graphs)+1)
	}
	p.Graphs = append(p.Graphs, flow.GraphDocument{ID: id, Name: name, Nodes: []flow.Node{}, Edges: []flow.Edge{}})
	p.ActiveGraphID = id
	out := applied()
	out.Created = id
	return out
}

func renameGraph(p *flow.ProjectSnapshot, c RenameGraph) Outcome {
	g, ok := p.Graph(c.Graph)
	if !ok {
		return rejected(NotFound, "graph "+c.Graph)
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return rejected(InvalidName, "")
	}
	g.Name = name
	return applied()
}

func deleteGraph(p *flow.ProjectSnapshot, id string) Outcome {
	i := p.GraphIndex(id)
	if i < 0 {
		return rejected(NotFound, "graph "+id)
	}
	if len(p.Graphs) == 1 {
		return rejected(LastGraph, "")
	}
	p.Graphs = append(p.Graphs[:i:i], p.Graphs[i+1:]...)
	if p.ActiveGraphID == id || p.GraphIndex(p.ActiveGraphID) < 0 {
		p.ActiveGraphID = p.Graphs[max(0, i-1)].ID
	}
	return applied()
}

func setActive(p *flow.ProjectSnapshot, id string) Outcome {
	if p.GraphIndex(id) < 0 {
		return rejected(NotFound, "graph "+id)
	}
	p.ActiveGraphID = id
	return applied()
}
