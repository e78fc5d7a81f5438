package mutate

import (
	"strings"
	"testing"

	"github.com/matzehuels/flowkeeper/pkg/flow"
	"github.com/matzehuels/flowkeeper/pkg/group"
)

func box(id string, x, y, w, h float64) flow.Node {
	return flow.Node{ID: id, Type: flow.KindGroup, Position: flow.Position{X: x, Y: y},
		Size: &flow.Size{Width: w, Height: h}, Data: map[string]any{"label": "Box " + id}}
}

func proc(id string, x, y float64, parent string) flow.Node {
	n := flow.Node{ID: id, Type: "process", Position: flow.Position{X: x, Y: y}}
	n.SetGroup(parent)
	return n
}

func find(t *testing.T, nodes []flow.Node, id string) flow.Node {
	t.Helper()
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("node %q not found", id)
	return flow.Node{}
}

func TestContainerMovePropagatesToMembers(t *testing.T) {
	nodes := []flow.Node{
		box("g", 0, 0, 600, 400),
		proc("a", 100, 100, "g"),
		proc("b", 200, 200, "g"),
		proc("free", 900, 900, ""),
	}
	res := ApplyNodeChanges([]NodeChange{Move("g", 50, -20, true)}, nodes)

	if p := find(t, res.Nodes, "a").Position; p != (flow.Position{X: 150, Y: 80}) {
		t.Errorf("a = %+v", p)
	}
	if p := find(t, res.Nodes, "b").Position; p != (flow.Position{X: 250, Y: 180}) {
		t.Errorf("b = %+v", p)
	}
	if p := find(t, res.Nodes, "free").Position; p != (flow.Position{X: 900, Y: 900}) {
		t.Errorf("free moved: %+v", p)
	}
	if len(res.Moved) != 3 {
		t.Errorf("Moved = %v", res.Moved)
	}
	if nodes[1].Position.X != 100 {
		t.Error("input modified")
	}
}

func TestResizeDoesNotPropagate(t *testing.T) {
	tests := []struct {
		name      string
		start     bool
		changes   []NodeChange
		wantWidth float64
		wantPos   flow.Position
	}{
		{"right edge", false, []NodeChange{Resize("g", 900, 700, true)}, 900, flow.Position{X: 0, Y: 0}},
		{"left edge", false, []NodeChange{Resize("g", 700, 400, true), Move("g", -100, 0, false)}, 700, flow.Position{X: -100, Y: 0}},
		{"top edge", false, []NodeChange{Move("g", 0, -50, false), Resize("g", 600, 450, true)}, 600, flow.Position{X: 0, Y: -50}},
		{"move while resizing", true, []NodeChange{Move("g", -30, -30, false)}, 600, flow.Position{X: -30, Y: -30}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := box("g", 0, 0, 600, 400)
			g.Resizing = tt.start
			nodes := []flow.Node{g, proc("a", 100, 100, "g")}
			res := ApplyNodeChanges(tt.changes, nodes)
			if p := find(t, res.Nodes, "a").Position; p != (flow.Position{X: 100, Y: 100}) {
				t.Errorf("member moved on resize: %+v", p)
			}
			got := find(t, res.Nodes, "g")
			if got.Size.Width != tt.wantWidth || got.Position != tt.wantPos {
				t.Errorf("container = %+v at %+v", got.Size, got.Position)
			}
		})
	}
}

func TestExplicitMemberMoveWins(t *testing.T) {
	nodes := []flow.Node{box("g", 0, 0, 600, 400), proc("a", 100, 100, "g")}
	res := ApplyNodeChanges([]NodeChange{
		Move("g", 10, 10, true),
		Move("a", 500, 500, true),
	}, nodes)
	if p := find(t, res.Nodes, "a").Position; p != (flow.Position{X: 500, Y: 500}) {
		t.Errorf("a = %+v, want explicit position", p)
	}
}

func TestDropToGroupDetection(t *testing.T) {
	nodes := []flow.Node{
		box("big", 0, 0, 1000, 1000),
		box("small", 100, 100, 400, 400),
		proc("a", 2000, 2000, ""),
	}

	tests := []struct {
		name    string
		changes []NodeChange
		want    []Attach
	}{
		{"still dragging", []NodeChange{Move("a", 200, 200, true)}, nil},
		{"settled in overlap picks smaller", []NodeChange{Move("a", 200, 200, false)}, []Attach{{"a", "small"}}},
		{"settled in big only", []NodeChange{Move("a", 700, 700, false)}, []Attach{{"a", "big"}}},
		{"settled outside", []NodeChange{Move("a", 3000, 3000, false)}, nil},
		{"drag then drag end", []NodeChange{Move("a", 200, 200, true), DragEnd("a")}, []Attach{{"a", "small"}}},
		{"canceled", []NodeChange{Move("a", 200, 200, true), Cancel("a")}, nil},
		{"select only", []NodeChange{Select("a", true)}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ApplyNodeChanges(tt.changes, nodes)
			if len(res.Pending) != len(tt.want) {
				t.Fatalf("Pending = %v, want %v", res.Pending, tt.want)
			}
			for i := range tt.want {
				if res.Pending[i] != tt.want[i] {
					t.Errorf("Pending[%d] = %v, want %v", i, res.Pending[i], tt.want[i])
				}
			}
		})
	}
}

func TestNoAttachForExistingMember(t *testing.T) {
	nodes := []flow.Node{box("g", 0, 0, 1000, 1000), proc("a", 100, 100, "g")}
	res := ApplyNodeChanges([]NodeChange{Move("a", 300, 300, false)}, nodes)
	if len(res.Pending) != 0 {
		t.Errorf("Pending = %v", res.Pending)
	}
}

func TestContainersAreNeverAttached(t *testing.T) {
	nodes := []flow.Node{box("outer", 0, 0, 2000, 2000), box("inner", 5000, 5000, 300, 300)}
	res := ApplyNodeChanges([]NodeChange{Move("inner", 500, 500, false)}, nodes)
	if len(res.Pending) != 0 {
		t.Errorf("Pending = %v", res.Pending)
	}
}

func TestCancelRestoresPreDragPosition(t *testing.T) {
	nodes := []flow.Node{box("g", 0, 0, 600, 400), proc("a", 100, 100, "g")}

	step1 := ApplyNodeChanges([]NodeChange{Move("g", 40, 40, true)}, nodes)
	step2 := ApplyNodeChanges([]NodeChange{Move("g", 80, 90, true)}, step1.Nodes)
	if o := find(t, step2.Nodes, "g").DragOrigin; o == nil || *o != (flow.Position{}) {
		t.Fatalf("DragOrigin = %v, want origin of first drag event", o)
	}
	step3 := ApplyNodeChanges([]NodeChange{Cancel("g")}, step2.Nodes)

	g := find(t, step3.Nodes, "g")
	if g.Position != (flow.Position{}) || g.Dragging || g.DragOrigin != nil {
		t.Errorf("container after cancel = %+v", g)
	}
	if p := find(t, step3.Nodes, "a").Position; p != (flow.Position{X: 100, Y: 100}) {
		t.Errorf("member after cancel = %+v", p)
	}
}

func TestRemoveReleasesMembers(t *testing.T) {
	nodes := []flow.Node{box("g", 0, 0, 600, 400), proc("a", 100, 100, "g"), proc("b", 0, 0, "")}
	res := ApplyNodeChanges([]NodeChange{Remove("g"), Remove("missing")}, nodes)
	if len(res.Nodes) != 2 {
		t.Fatalf("Nodes = %v", res.Nodes)
	}
	if a := find(t, res.Nodes, "a"); a.GroupContainerID != "" || a.ParentID != "" {
		t.Errorf("member not released: %+v", a)
	}
	if len(res.Removed) != 1 || res.Removed[0] != "g" {
		t.Errorf("Removed = %v", res.Removed)
	}
}

func TestResolveAttachesOneAtATime(t *testing.T) {
	nodes := []flow.Node{box("g", 0, 0, 600, 400), proc("a", 100, 100, ""), proc("b", 150, 150, "")}
	pending := []Attach{{"a", "g"}, {"b", "g"}, {"ghost", "g"}}

	var asked []string
	answers := []bool{true, false}
	c := ConfirmFunc(func(msg string) bool {
		asked = append(asked, msg)
		return answers[len(asked)-1]
	})

	out, accepted, declined := ResolveAttaches(nodes, pending, c)
	if len(asked) != 2 {
		t.Fatalf("asked %d questions, want 2: %v", len(asked), asked)
	}
	if !strings.Contains(asked[0], `"a"`) || !strings.Contains(asked[0], `"Box g"`) {
		t.Errorf("message = %q", asked[0])
	}
	if len(accepted) != 1 || len(declined) != 1 {
		t.Errorf("accepted=%v declined=%v", accepted, declined)
	}
	if a := find(t, out, "a"); a.GroupContainerID != "g" || a.ParentID != "g" {
		t.Errorf("a = %+v", a)
	}
	if b := find(t, out, "b"); b.GroupContainerID != "" || b.Position.X != 150 {
		t.Errorf("declined b = %+v", b)
	}
}

func TestResolveAttachesNilConfirmerDeclines(t *testing.T) {
	nodes := []flow.Node{box("g", 0, 0, 600, 400), proc("a", 100, 100, "")}
	_, accepted, declined := ResolveAttaches(nodes, []Attach{{"a", "g"}}, nil)
	if len(accepted) != 0 || len(declined) != 1 {
		t.Errorf("accepted=%v declined=%v", accepted, declined)
	}
}

func TestApplyToGraph(t *testing.T) {
	g := flow.GraphDocument{
		ID: "g1",
		Nodes: []flow.Node{
			box("grp", 0, 0, 240, 160),
			proc("a", 1000, 1000, ""),
			proc("b", 2000, 2000, ""),
		},
		Edges: []flow.Edge{
			{ID: "e1", Source: "a", SourceHandle: "out.control.next", Target: "b", TargetHandle: "in.control.prev"},
		},
	}

	res := ApplyToGraph(g, []NodeChange{Move("a", 60, 80, false), Remove("b")}, Always(true))

	if len(res.Graph.Edges) != 0 || len(res.PrunedEdges) != 1 {
		t.Errorf("edges = %v pruned = %v", res.Graph.Edges, res.PrunedEdges)
	}
	if len(res.Attached) != 1 {
		t.Fatalf("Attached = %v", res.Attached)
	}
	if !res.LayoutChanged || !res.Changed() {
		t.Error("expected layout change")
	}

	grp := group.Box(find(t, res.Graph.Nodes, "grp"))
	a := group.Box(find(t, res.Graph.Nodes, "a"))
	if grp.Left() > a.Left() || grp.Top() > a.Top() || grp.Right() < a.Right() || grp.Bottom() < a.Bottom() {
		t.Errorf("group %+v does not enclose member %+v", grp, a)
	}
	if len(g.Edges) != 1 || g.Nodes[1].Position.X != 1000 {
		t.Error("input graph modified")
	}

	again := ApplyToGraph(res.Graph, nil, Always(true))
	if again.Changed() {
		t.Errorf("empty batch changed the graph: %+v", again)
	}
}
