package snapshot

import (
	"encoding/json"

	"github.com/matzehuels/flowkeeper/pkg/errors"
	"github.com/matzehuels/flowkeeper/pkg/flow"
)

// LayoutVersion is the version tag of an [EditorLayoutState] record.
const LayoutVersion = 1

// Fallback grid for nodes that have no layout entry.
const (
	GridColumns = 4
	GridStepX   = 220.0
	GridStepY   = 140.0
)

// NodeLayout is the presentation state of one node.
type NodeLayout struct {
	ID        string   `json:"id"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Width     *float64 `json:"width,omitempty"`
	Height    *float64 `json:"height,omitempty"`
	ParentID  string   `json:"parentId,omitempty"`
	Extent    string   `json:"extent,omitempty"`
	ZIndex    *int     `json:"zIndex,omitempty"`
	Collapsed *bool    `json:"collapsed,omitempty"`
}

// GraphLayout holds the node layouts of one graph.
type GraphLayout struct {
	ID    string       `json:"id"`
	Nodes []NodeLayout `json:"nodes"`
}

// EditorLayoutState is the versioned presentation side record of a project.
type EditorLayoutState struct {
	Version       int           `json:"version"`
	ActiveGraphID string        `json:"activeGraphId,omitempty"`
	Graphs        []GraphLayout `json:"graphs"`
}

// Graph returns the layout of graph id, or nil.
func (s *EditorLayoutState) Graph(id string) *GraphLayout {
	for i := range s.Graphs {
		if s.Graphs[i].ID == id {
			return &s.Graphs[i]
		}
	}
	return nil
}

// FallbackPosition is where the i-th node without a layout entry is placed.
func FallbackPosition(i int) flow.Position {
	return flow.Position{
		X: float64(i%GridColumns) * GridStepX,
		Y: float64(i/GridColumns) * GridStepY,
	}
}

// CaptureGraphLayout records the presentation state of every node in g.
// Group membership is carried as ParentID.
func CaptureGraphLayout(g flow.GraphDocument) GraphLayout {
	gl := GraphLayout{ID: g.ID, Nodes: make([]NodeLayout, len(g.Nodes))}
	for i, n := range g.Nodes {
		nl := NodeLayout{
			ID:       n.ID,
			X:        n.Position.X,
			Y:        n.Position.Y,
			ParentID: n.GroupContainerID,
			Extent:   n.Extent,
		}
		if n.Size != nil {
			w, h := n.Size.Width, n.Size.Height
			nl.Width, nl.Height = &w, &h
		}
		if n.ZIndex != nil {
			z := *n.ZIndex
			nl.ZIndex = &z
		}
		if n.Collapsed() {
			c := true
			nl.Collapsed = &c
		}
		gl.Nodes[i] = nl
	}
	return gl
}

// CaptureLayout records the presentation state of every graph in p.
func CaptureLayout(p flow.ProjectSnapshot) EditorLayoutState {
	s := EditorLayoutState{
		Version:       LayoutVersion,
		ActiveGraphID: p.ActiveGraphID,
		Graphs:        make([]GraphLayout, len(p.Graphs)),
	}
	for i, g := range p.Graphs {
		s.Graphs[i] = CaptureGraphLayout(g)
	}
	return s
}

// Hydrate merges a layout onto a logic graph and returns the editable graph
// document. Nodes missing from the layout, or all nodes when layout is nil,
// get [FallbackPosition] by their index in lg.
func Hydrate(lg LogicGraph, layout *GraphLayout) flow.GraphDocument {
	byID := map[string]NodeLayout{}
	if layout != nil {
		for _, nl := range layout.Nodes {
			byID[nl.ID] = nl
		}
	}

	g := flow.GraphDocument{
		ID:    lg.ID,
		Name:  lg.Name,
		Nodes: make([]flow.Node, len(lg.Nodes)),
		Edges: append([]flow.Edge(nil), lg.Edges...),
	}
	for i, ln := range lg.Nodes {
		n := flow.Node{ID: ln.ID, Type: ln.Type, Data: flow.CopyData(ln.Data)}
		nl, ok := byID[ln.ID]
		if !ok {
			n.Position = FallbackPosition(i)
			g.Nodes[i] = n
			continue
		}
		n.Position = flow.Position{X: nl.X, Y: nl.Y}
		if nl.Width != nil && nl.Height != nil {
			n.Size = &flow.Size{Width: *nl.Width, Height: *nl.Height}
		}
		n.SetGroup(nl.ParentID)
		n.Extent = nl.Extent
		if nl.ZIndex != nil {
			z := *nl.ZIndex
			n.ZIndex = &z
		}
		if nl.Collapsed != nil && *nl.Collapsed {
			if n.Data == nil {
				n.Data = map[string]any{}
			}
			n.Data[flow.DataCollapsed] = true
		}
		g.Nodes[i] = n
	}
	return flow.NormalizeGraph(g)
}

// HydrateProject rebuilds a project from logic graphs and a layout record.
// The layout's active graph is used when it names one of the graphs.
func HydrateProject(graphs []LogicGraph, layout EditorLayoutState) flow.ProjectSnapshot {
	p := flow.ProjectSnapshot{Version: flow.SnapshotVersion, Graphs: make([]flow.GraphDocument, len(graphs))}
	for i, lg := range graphs {
		p.Graphs[i] = Hydrate(lg, layout.Graph(lg.ID))
	}
	p.ActiveGraphID = layout.ActiveGraphID
	if _, ok := p.Graph(p.ActiveGraphID); !ok && len(p.Graphs) > 0 {
		p.ActiveGraphID = p.Graphs[0].ID
	}
	return p
}

// EncodeLayout serializes a layout record.
func EncodeLayout(s EditorLayoutState) ([]byte, error) {
	s.Version = LayoutVersion
	return json.Marshal(s)
}

// DecodeLayout parses a layout record. Only version 1 is understood.
func DecodeLayout(data []byte) (EditorLayoutState, error) {
	var s EditorLayoutState
	if err := json.Unmarshal(data, &s); err != nil {
		return EditorLayoutState{}, errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "decode editor layout")
	}
	if s.Version != LayoutVersion {
		return EditorLayoutState{}, errors.New(errors.ErrCodeUnsupportedVersion,
			"editor layout version %d is not supported (want %d)", s.Version, LayoutVersion)
	}
	return s, nil
}
