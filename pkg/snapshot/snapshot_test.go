package snapshot

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/matzehuels/flowkeeper/pkg/command"
	"github.com/matzehuels/flowkeeper/pkg/errors"
	"github.com/matzehuels/flowkeeper/pkg/flow"
)

func seq(prefix string) Options {
	n := 0
	return Options{NewID: func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}}
}

func sampleGraph() flow.GraphDocument {
	z := 3
	return flow.GraphDocument{
		ID:   "g1",
		Name: "Main",
		Nodes: []flow.Node{
			{ID: "grp", Type: flow.KindGroup, Position: flow.Position{X: -24, Y: -56},
				Size: &flow.Size{Width: 400, Height: 300}, Data: map[string]any{"label": "G", "collapsed": true}},
			{ID: "a", Type: "process", Position: flow.Position{X: 12.5, Y: 40}, GroupContainerID: "grp", ParentID: "grp",
				Extent: flow.ExtentParent, ZIndex: &z,
				Data: map[string]any{"label": "A", "autoSize": map[string]any{"w": 1}, "_cache": 1, "description": "keep"}},
			{ID: "b", Type: "process", Position: flow.Position{X: 700, Y: 333}},
		},
		Edges: []flow.Edge{
			{ID: "e1", Source: "a", SourceHandle: "out.next", Target: "b", TargetHandle: "in.prev"},
		},
	}
}

func TestExportLogicStripsEditorState(t *testing.T) {
	lg := ExportLogic(sampleGraph())

	for _, n := range lg.Nodes {
		for k := range n.Data {
			if IsEditorOnly(k) {
				t.Errorf("node %s exports editor-only key %q", n.ID, k)
			}
		}
	}
	if lg.Nodes[1].Data["description"] != "keep" {
		t.Errorf("logic payload lost: %v", lg.Nodes[1].Data)
	}
	if e := lg.Edges[0]; e.SourceHandle != "out.control.next" || e.TargetHandle != "in.control.prev" {
		t.Errorf("edge not normalized: %+v", e)
	}

	data, err := EncodeLogic(lg)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, rn := range raw["nodes"].([]any) {
		n := rn.(map[string]any)
		for _, k := range []string{"position", "size", "parentId", "groupContainerId", "zIndex"} {
			if _, ok := n[k]; ok {
				t.Errorf("logic node carries %q", k)
			}
		}
	}
}

func TestLogicLayoutRoundTrip(t *testing.T) {
	g := sampleGraph()
	lg := ExportLogic(g)
	layout := CaptureGraphLayout(g)

	back := Hydrate(lg, &layout)
	if len(back.Nodes) != len(g.Nodes) {
		t.Fatalf("nodes = %d", len(back.Nodes))
	}
	for i, n := range back.Nodes {
		orig := g.Nodes[i]
		if n.Position != orig.Position {
			t.Errorf("%s position = %+v, want %+v", n.ID, n.Position, orig.Position)
		}
		if n.GroupContainerID != orig.GroupContainerID {
			t.Errorf("%s membership = %q, want %q", n.ID, n.GroupContainerID, orig.GroupContainerID)
		}
		if n.Collapsed() != orig.Collapsed() {
			t.Errorf("%s collapsed = %v", n.ID, n.Collapsed())
		}
	}
	if back.Nodes[0].Size == nil || *back.Nodes[0].Size != *g.Nodes[0].Size {
		t.Errorf("size lost: %+v", back.Nodes[0].Size)
	}
	if back.Nodes[1].ZIndex == nil || *back.Nodes[1].ZIndex != 3 || back.Nodes[1].Extent != flow.ExtentParent {
		t.Errorf("z/extent lost: %+v", back.Nodes[1])
	}
}

func TestHydrateFallbackGrid(t *testing.T) {
	lg := LogicGraph{ID: "g", Nodes: []LogicNode{
		{ID: "n0", Type: "process"}, {ID: "n1", Type: "process"}, {ID: "n2", Type: "process"},
		{ID: "n3", Type: "process"}, {ID: "n4", Type: "process"},
	}}
	want := []flow.Position{{X: 0, Y: 0}, {X: 220, Y: 0}, {X: 440, Y: 0}, {X: 660, Y: 0}, {X: 0, Y: 140}}

	for _, layout := range []*GraphLayout{nil, {ID: "g"}} {
		g := Hydrate(lg, layout)
		for i, n := range g.Nodes {
			if n.Position != want[i] {
				t.Errorf("node %d = %+v, want %+v", i, n.Position, want[i])
			}
		}
	}

	partial := &GraphLayout{ID: "g", Nodes: []NodeLayout{{ID: "n2", X: 5, Y: 6}}}
	g := Hydrate(lg, partial)
	if g.Nodes[2].Position != (flow.Position{X: 5, Y: 6}) || g.Nodes[3].Position != want[3] {
		t.Errorf("partial layout: %+v / %+v", g.Nodes[2].Position, g.Nodes[3].Position)
	}
}

func TestStarterPersistAndReload(t *testing.T) {
	p := Starter(seq("g"))
	if len(p.Graphs) != 1 {
		t.Fatalf("graphs = %d", len(p.Graphs))
	}
	g := p.Graphs[0]
	if len(g.Nodes) != 4 || len(g.Edges) != 3 {
		t.Fatalf("starter = %d nodes, %d edges", len(g.Nodes), len(g.Edges))
	}

	data, err := EncodeProject(p)
	if err != nil {
		t.Fatal(err)
	}
	back, rep := DecodeProject(data, seq("other"))
	if rep.FellBack || rep.Migrated || rep.RegeneratedIDs != 0 {
		t.Errorf("report = %+v", rep)
	}
	if back.ActiveGraphID != p.ActiveGraphID {
		t.Errorf("active = %q, want %q", back.ActiveGraphID, p.ActiveGraphID)
	}
	bg := back.Graphs[0]
	if len(bg.Nodes) != 4 || len(bg.Edges) != 3 {
		t.Errorf("reloaded = %d nodes, %d edges", len(bg.Nodes), len(bg.Edges))
	}
	for i := range g.Nodes {
		if bg.Nodes[i].Position != g.Nodes[i].Position || bg.Nodes[i].Type != g.Nodes[i].Type {
			t.Errorf("node %d = %+v, want %+v", i, bg.Nodes[i], g.Nodes[i])
		}
	}
}

func TestStarterDeleteSecondCase(t *testing.T) {
	p := Starter(seq("g"))
	p.Graphs[0].Edges = append(p.Graphs[0].Edges, flow.Edge{
		ID: "extra", Source: StarterSwitch, SourceHandle: "out.control.case-case-2",
		Target: StarterEnd, TargetHandle: "in.control.prev",
	})

	next, out := command.Reduce(p, command.RemoveItem{Node: StarterSwitch, Item: "case-2"}, command.Options{})
	if !out.Applied {
		t.Fatalf("rejected: %+v", out)
	}
	g := next.Graphs[0]
	for _, e := range g.Edges {
		if e.SourceHandle == "out.control.case-case-2" {
			t.Errorf("edge %s survived", e.ID)
		}
	}
	if len(g.Edges) != 3 {
		t.Errorf("edges = %d, want 3", len(g.Edges))
	}
	_, out = command.Reduce(next, command.RemoveItem{Node: StarterSwitch, Item: "case-1"}, command.Options{})
	if out.Reason != command.MinItems {
		t.Errorf("last case removal = %+v", out)
	}
}

func TestDecodeLegacyRecord(t *testing.T) {
	legacy := `{
		"nodes": [
			{"id": "a", "type": "start", "position": {"x": 1, "y": 2}},
			{"id": "b", "type": "process"},
			{"id": "c", "type": "end", "position": {"x": "bad"}}
		],
		"edges": [
			{"id": "e1", "source": "a", "sourceHandle": "out.next", "target": "b", "targetHandle": "in.prev"},
			{"id": "e2", "sourceNodeId": "b", "sourceHandle": "out.next", "targetNodeId": "ghost", "targetHandle": "in.prev"}
		]
	}`
	p, rep := DecodeProject([]byte(legacy), seq("new"))
	if !rep.Migrated || rep.FellBack {
		t.Fatalf("report = %+v", rep)
	}
	if p.Version != 2 || len(p.Graphs) != 1 {
		t.Fatalf("snapshot = %+v", p)
	}
	g := p.Graphs[0]
	if g.ID != "new-1" || g.Name != "Flow 1" || p.ActiveGraphID != g.ID {
		t.Errorf("graph id/name = %q/%q active %q", g.ID, g.Name, p.ActiveGraphID)
	}
	if g.Nodes[0].Position != (flow.Position{X: 1, Y: 2}) {
		t.Errorf("a = %+v", g.Nodes[0].Position)
	}
	if g.Nodes[1].Position != FallbackPosition(1) || g.Nodes[2].Position != FallbackPosition(2) {
		t.Errorf("fallback positions = %+v %+v", g.Nodes[1].Position, g.Nodes[2].Position)
	}
	if len(g.Edges) != 1 || g.Edges[0].SourceHandle != "out.control.next" {
		t.Errorf("edges = %+v", g.Edges)
	}
}

func TestDecodeDefaultsUnknownKinds(t *testing.T) {
	legacy := `{"nodes": [
		{"id": "a", "type": "teleporter", "data": {"label": "Beam"}},
		{"id": "b", "kind": "end"},
		{"id": "c"}
	], "edges": []}`
	p, _ := DecodeProject([]byte(legacy), seq("k"))
	want := []flow.Kind{"process", "end", "process"}
	for i, n := range p.Graphs[0].Nodes {
		if n.Type != want[i] {
			t.Errorf("%s type = %q, want %q", n.ID, n.Type, want[i])
		}
	}
	if n := p.Graphs[0].Nodes[0]; n.Label() != "Beam" {
		t.Errorf("payload lost: %+v", n.Data)
	}
}

func TestDecodeFallsBackToStarter(t *testing.T) {
	for _, in := range []string{"", "not json", "[]", `{"foo": 1}`, `{"graphs": "x"}`, `{"graphs": []}`, `{"graphs": [1, 2]}`} {
		p, rep := DecodeProject([]byte(in), seq("s"))
		if !rep.FellBack || rep.Problem == "" {
			t.Errorf("%q: report = %+v", in, rep)
		}
		if len(p.Graphs) != 1 || len(p.Graphs[0].Nodes) != 4 || p.ActiveGraphID != p.Graphs[0].ID {
			t.Errorf("%q: not the starter project", in)
		}
	}
}

func TestDecodeRepairsIdentity(t *testing.T) {
	in := `{
		"version": 2,
		"activeGraphId": "missing",
		"graphs": [
			{"id": "dup", "name": "One", "nodes": [{"id": "x"}, {"id": "x"}, {"type": "end"}], "edges": []},
			{"id": "dup", "nodes": []},
			{"name": "Three"}
		]
	}`
	p, rep := DecodeProject([]byte(in), seq("r"))
	if rep.FellBack || rep.Migrated {
		t.Fatalf("report = %+v", rep)
	}
	if rep.RegeneratedIDs != 4 {
		t.Errorf("RegeneratedIDs = %d, want 4", rep.RegeneratedIDs)
	}
	ids := map[string]bool{}
	for _, g := range p.Graphs {
		if g.ID == "" || ids[g.ID] {
			t.Errorf("graph id %q not unique", g.ID)
		}
		ids[g.ID] = true
	}
	if p.Graphs[1].Name != "Flow 2" || p.Graphs[2].Name != "Three" {
		t.Errorf("names = %q, %q", p.Graphs[1].Name, p.Graphs[2].Name)
	}
	if p.ActiveGraphID != "dup" {
		t.Errorf("active = %q", p.ActiveGraphID)
	}
	nodes := p.Graphs[0].Nodes
	if len(nodes) != 3 || nodes[0].ID == nodes[1].ID || nodes[1].ID == "" || nodes[2].Type != "end" {
		t.Errorf("nodes = %+v", nodes)
	}
	if nodes[0].Type != "process" {
		t.Errorf("missing type default = %q", nodes[0].Type)
	}
}

func TestDecodeLayoutVersion(t *testing.T) {
	data, err := EncodeLayout(CaptureLayout(Starter(seq("g"))))
	if err != nil {
		t.Fatal(err)
	}
	s, err := DecodeLayout(data)
	if err != nil {
		t.Fatal(err)
	}
	if s.Version != 1 || len(s.Graphs) != 1 || len(s.Graphs[0].Nodes) != 4 {
		t.Errorf("layout = %+v", s)
	}

	if _, err := DecodeLayout([]byte(`{"version": 2, "graphs": []}`)); !errors.Is(err, errors.ErrCodeUnsupportedVersion) {
		t.Errorf("err = %v", err)
	}
	if _, err := DecodeLayout([]byte(`{`)); !errors.Is(err, errors.ErrCodeInvalidSnapshot) {
		t.Errorf("err = %v", err)
	}
}

func TestHydrateProject(t *testing.T) {
	p := Starter(seq("g"))
	p.Graphs = append(p.Graphs, StarterGraph("second", "Second"))
	p.ActiveGraphID = "second"
	p.Graphs[1].Nodes[2].Position = flow.Position{X: 9, Y: 9}

	back := HydrateProject(ExportProjectLogic(p), CaptureLayout(p))
	if back.ActiveGraphID != "second" || len(back.Graphs) != 2 {
		t.Fatalf("project = %+v", back)
	}
	if back.Graphs[1].Nodes[2].Position != (flow.Position{X: 9, Y: 9}) {
		t.Errorf("position = %+v", back.Graphs[1].Nodes[2].Position)
	}

	empty := HydrateProject(ExportProjectLogic(p), EditorLayoutState{Version: 1, ActiveGraphID: "nope"})
	if empty.ActiveGraphID != p.Graphs[0].ID {
		t.Errorf("active fallback = %q", empty.ActiveGraphID)
	}
}
