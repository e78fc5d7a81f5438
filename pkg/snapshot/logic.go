package snapshot

import (
	"encoding/json"

	"github.com/matzehuels/flowkeeper/pkg/errors"
	"github.com/matzehuels/flowkeeper/pkg/flow"
)

// LogicNode is a node as seen by a downstream generator: identity, kind and
// payload, with every presentation-only key removed.
type LogicNode struct {
	ID   string         `json:"id"`
	Type flow.Kind      `json:"type"`
	Data map[string]any `json:"data"`
}

// LogicGraph is the presentation-free export of one graph.
type LogicGraph struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Nodes []LogicNode `json:"nodes"`
	Edges []flow.Edge `json:"edges"`
}

// IsEditorOnly reports whether a payload key is presentation state and is
// stripped from logic exports.
func IsEditorOnly(key string) bool { return flow.IsEditorOnlyKey(key) }

// cleanData returns a deep copy of data without editor-only keys.
func cleanData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if IsEditorOnly(k) {
			continue
		}
		out[k] = v
	}
	return flow.CopyData(out)
}

// ExportLogic derives the logic graph of g. The graph is normalized first, so
// the export never carries dangling edges or legacy handle aliases.
func ExportLogic(g flow.GraphDocument) LogicGraph {
	ng := flow.NormalizeGraph(g)
	lg := LogicGraph{
		ID:    ng.ID,
		Name:  ng.Name,
		Nodes: make([]LogicNode, len(ng.Nodes)),
		Edges: ng.Edges,
	}
	for i, n := range ng.Nodes {
		lg.Nodes[i] = LogicNode{ID: n.ID, Type: n.Type, Data: cleanData(n.Data)}
	}
	return lg
}

// ExportProjectLogic exports every graph of p, in order.
func ExportProjectLogic(p flow.ProjectSnapshot) []LogicGraph {
	out := make([]LogicGraph, len(p.Graphs))
	for i, g := range p.Graphs {
		out[i] = ExportLogic(g)
	}
	return out
}

// EncodeLogic serializes a logic graph as indented JSON.
func EncodeLogic(lg LogicGraph) ([]byte, error) {
	return json.MarshalIndent(lg, "", "  ")
}

// DecodeLogic parses a logic graph.
func DecodeLogic(data []byte) (LogicGraph, error) {
	var lg LogicGraph
	if err := json.Unmarshal(data, &lg); err != nil {
		return LogicGraph{}, errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "decode logic graph")
	}
	if lg.ID == "" {
		return LogicGraph{}, errors.New(errors.ErrCodeInvalidSnapshot, "logic graph has no id")
	}
	return lg, nil
}
