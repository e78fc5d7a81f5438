package snapshot

import (
	"github.com/matzehuels/flowkeeper/pkg/catalog"
	"github.com/matzehuels/flowkeeper/pkg/flow"
	"github.com/matzehuels/flowkeeper/pkg/handle"
)

// Node ids of the starter skeleton. They only need to be unique within the
// graph.
const (
	StarterStart   = "start-1"
	StarterSwitch  = "switch-1"
	StarterProcess = "process-1"
	StarterEnd     = "end-1"
)

// Starter returns a project with a single graph holding the canonical
// skeleton start -> switch -> process -> end. The switch has two cases; the
// first one is wired to the process node.
func Starter(opts Options) flow.ProjectSnapshot {
	g := StarterGraph(opts.newID(), opts.defaultName())
	return flow.ProjectSnapshot{
		Version:       flow.SnapshotVersion,
		ActiveGraphID: g.ID,
		Graphs:        []flow.GraphDocument{g},
	}
}

// StarterGraph builds the starter skeleton with the given graph id and name.
func StarterGraph(id, name string) flow.GraphDocument {
	node := func(nid string, kind flow.Kind, x float64) flow.Node {
		return flow.Node{ID: nid, Type: kind, Position: flow.Position{X: x, Y: 0}, Data: catalog.DefaultData(kind)}
	}
	edge := func(src, sh, tgt, th string) flow.Edge {
		return flow.NormalizeEdge(flow.Edge{Source: src, SourceHandle: sh, Target: tgt, TargetHandle: th})
	}

	return flow.GraphDocument{
		ID:   id,
		Name: name,
		Nodes: []flow.Node{
			node(StarterStart, "start", 0),
			node(StarterSwitch, "switch", 260),
			node(StarterProcess, "process", 520),
			node(StarterEnd, "end", 780),
		},
		Edges: []flow.Edge{
			edge(StarterStart, handle.ControlOut, StarterSwitch, handle.ControlIn),
			edge(StarterSwitch, handle.Case("case-1"), StarterProcess, handle.ControlIn),
			edge(StarterProcess, handle.ControlOut, StarterEnd, handle.ControlIn),
		},
	}
}
