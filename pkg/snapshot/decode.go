package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/matzehuels/flowkeeper/pkg/catalog"
	"github.com/matzehuels/flowkeeper/pkg/flow"
)

// Options configures decoding and starter generation.
type Options struct {
	// NewID generates graph and node ids. Defaults to random UUIDs.
	NewID func() string

	// DefaultName names the graph of a migrated legacy record or a starter
	// project. Defaults to "Flow 1".
	DefaultName string
}

func (o Options) newID() string {
	if o.NewID != nil {
		return o.NewID()
	}
	return uuid.NewString()
}

func (o Options) defaultName() string {
	if o.DefaultName != "" {
		return o.DefaultName
	}
	return defaultGraphName(0)
}

func defaultGraphName(i int) string {
	return fmt.Sprintf("Flow %d", i+1)
}

// Report describes what [DecodeProject] had to repair.
type Report struct {
	// Migrated is set when a legacy single-graph record was lifted.
	Migrated bool `json:"migrated"`
	// FellBack is set when the data was unusable and the starter project
	// was returned instead.
	FellBack bool `json:"fellBack"`
	// RegeneratedIDs counts empty or duplicate ids that were replaced.
	RegeneratedIDs int `json:"regeneratedIds"`
	// Problem is a short description of why the data fell back.
	Problem string `json:"problem,omitempty"`
}

// DecodeProject loads a project record. It never fails: current (version 2)
// records are normalized, legacy single-graph records ({nodes, edges} with
// no graphs wrapper) are migrated into a one-graph project, and anything
// unreadable yields the [Starter] project. The report says which happened.
func DecodeProject(data []byte, opts Options) (flow.ProjectSnapshot, Report) {
	var rep Report
	fallback := func(problem string) (flow.ProjectSnapshot, Report) {
		rep.FellBack = true
		rep.Problem = problem
		return Starter(opts), rep
	}

	if len(data) == 0 {
		return fallback("no data")
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fallback("malformed json: " + err.Error())
	}

	var p flow.ProjectSnapshot
	switch {
	case raw["graphs"] != nil:
		list, ok := raw["graphs"].([]any)
		if !ok {
			return fallback("graphs is not a list")
		}
		for i, rg := range list {
			m, ok := rg.(map[string]any)
			if !ok {
				continue
			}
			p.Graphs = append(p.Graphs, decodeGraph(m, defaultGraphName(i), opts, &rep))
		}
		p.ActiveGraphID = str(raw["activeGraphId"])
	case raw["nodes"] != nil || raw["edges"] != nil:
		rep.Migrated = true
		g := decodeGraph(raw, opts.defaultName(), opts, &rep)
		g.ID = opts.newID()
		p.Graphs = []flow.GraphDocument{g}
		p.ActiveGraphID = g.ID
	default:
		return fallback("no graphs")
	}

	if len(p.Graphs) == 0 {
		return fallback("no usable graphs")
	}

	seen := map[string]bool{}
	for i := range p.Graphs {
		g := &p.Graphs[i]
		// The first graph carrying a duplicated id keeps it, so an active id
		// pointing at it still resolves.
		if g.ID == "" || seen[g.ID] {
			g.ID = opts.newID()
			rep.RegeneratedIDs++
		}
		seen[g.ID] = true
	}
	if _, ok := p.Graph(p.ActiveGraphID); !ok {
		p.ActiveGraphID = p.Graphs[0].ID
	}
	p.Version = flow.SnapshotVersion
	return p, rep
}

// decodeGraph builds a normalized graph from a loosely typed record.
func decodeGraph(m map[string]any, fallbackName string, opts Options, rep *Report) flow.GraphDocument {
	g := flow.GraphDocument{
		ID:    str(m["id"]),
		Name:  str(m["name"]),
		Nodes: []flow.Node{},
		Edges: []flow.Edge{},
	}
	if g.Name == "" {
		g.Name = fallbackName
	}

	nodes, _ := m["nodes"].([]any)
	seen := map[string]bool{}
	for i, rn := range nodes {
		nm, ok := rn.(map[string]any)
		if !ok {
			continue
		}
		n := decodeNode(nm, i)
		if n.ID == "" || seen[n.ID] {
			n.ID = opts.newID()
			rep.RegeneratedIDs++
		}
		seen[n.ID] = true
		g.Nodes = append(g.Nodes, n)
	}

	edges, _ := m["edges"].([]any)
	for _, re := range edges {
		em, ok := re.(map[string]any)
		if !ok {
			continue
		}
		g.Edges = append(g.Edges, flow.Edge{
			ID:           str(em["id"]),
			Source:       first(str(em["sourceNodeId"]), str(em["source"])),
			SourceHandle: str(em["sourceHandle"]),
			Target:       first(str(em["targetNodeId"]), str(em["target"])),
			TargetHandle: str(em["targetHandle"]),
		})
	}
	return flow.NormalizeGraph(g)
}

// decodeNode reads one node, substituting safe defaults for missing or
// mistyped fields. i is the node's index, used for the fallback position.
func decodeNode(m map[string]any, i int) flow.Node {
	n := flow.Node{
		ID:     str(m["id"]),
		Type:   flow.Kind(first(str(m["type"]), str(m["kind"]))),
		Extent: str(m["extent"]),
	}
	if !catalog.Known(n.Type) {
		n.Type = "process"
	}

	n.Position = FallbackPosition(i)
	if pos, ok := m["position"].(map[string]any); ok {
		x, okx := num(pos["x"])
		y, oky := num(pos["y"])
		if okx && oky {
			n.Position = flow.Position{X: x, Y: y}
		}
	}

	if sz, ok := m["size"].(map[string]any); ok {
		w, okw := num(sz["width"])
		h, okh := num(sz["height"])
		if okw && okh && w > 0 && h > 0 {
			n.Size = &flow.Size{Width: w, Height: h}
		}
	}

	if z, ok := num(m["zIndex"]); ok {
		zi := int(z)
		n.ZIndex = &zi
	}

	n.SetGroup(first(str(m["groupContainerId"]), str(m["parentId"])))
	n.Extent = str(m["extent"])

	if data, ok := m["data"].(map[string]any); ok {
		n.Data = data
	} else {
		n.Data = map[string]any{}
	}
	return n
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// EncodeProject serializes a project record, stamping the current version.
func EncodeProject(p flow.ProjectSnapshot) ([]byte, error) {
	p.Version = flow.SnapshotVersion
	return json.Marshal(p)
}
