package flow

import "strings"

// =============================================================================
// Constants
// =============================================================================

// SnapshotVersion is the version tag of a persisted [ProjectSnapshot].
const SnapshotVersion = 2

// Kind identifies a node variant. The catalog in pkg/catalog maps each kind
// to its port profile and default payload.
type Kind string

// KindGroup is the container kind. Group boxes have no ports and their size
// is derived from their members.
const KindGroup Kind = "group"

// ExtentParent constrains a node to its parent's bounds while dragging.
const ExtentParent = "parent"

// Data keys shared by many kinds.
const (
	DataLabel     = "label"
	DataCollapsed = "collapsed"
	DataAutoSize  = "autoSize"
	DataText      = "text"
)

// IsEditorOnlyKey reports whether a payload key is presentation state that
// never leaves the editor. Keys starting with "_" are private caches.
func IsEditorOnlyKey(key string) bool {
	return key == DataCollapsed || key == DataAutoSize || strings.HasPrefix(key, "_")
}

// =============================================================================
// Geometry
// =============================================================================

// Position is a canvas coordinate of a node's top-left corner.
type Position struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Add returns p translated by (dx, dy).
func (p Position) Add(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Size is a node's width and height in canvas units.
type Size struct {
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// =============================================================================
// Node
// =============================================================================

// Node is one vertex of a graph document.
//
// The interaction fields (Selected, Dragging, Resizing, DragOrigin) belong to
// the live editor session and are never serialized.
type Node struct {
	ID               string         `json:"id" bson:"id"`
	Type             Kind           `json:"type" bson:"type"`
	Position         Position       `json:"position" bson:"position"`
	Size             *Size          `json:"size,omitempty" bson:"size,omitempty"`
	GroupContainerID string         `json:"groupContainerId,omitempty" bson:"groupContainerId,omitempty"`
	ParentID         string         `json:"parentId,omitempty" bson:"parentId,omitempty"`
	Extent           string         `json:"extent,omitempty" bson:"extent,omitempty"`
	ZIndex           *int           `json:"zIndex,omitempty" bson:"zIndex,omitempty"`
	Data             map[string]any `json:"data,omitempty" bson:"data,omitempty"`

	Selected   bool      `json:"-" bson:"-"`
	Dragging   bool      `json:"-" bson:"-"`
	Resizing   bool      `json:"-" bson:"-"`
	DragOrigin *Position `json:"-" bson:"-"`
}

// IsContainer reports whether n is a group box.
func (n *Node) IsContainer() bool { return n.Type == KindGroup }

// Label returns the display label if set, otherwise the ID.
func (n *Node) Label() string {
	if s, ok := n.Data[DataLabel].(string); ok && s != "" {
		return s
	}
	return n.ID
}

// Collapsed reports the editor-only collapse flag.
func (n *Node) Collapsed() bool {
	b, _ := n.Data[DataCollapsed].(bool)
	return b
}

// SetGroup makes n a member of containerID, or releases it from its
// container when containerID is empty.
func (n *Node) SetGroup(containerID string) {
	n.GroupContainerID = containerID
	n.ParentID = containerID
	if containerID == "" {
		n.Extent = ""
	}
}

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	out := n
	if n.Size != nil {
		s := *n.Size
		out.Size = &s
	}
	if n.ZIndex != nil {
		z := *n.ZIndex
		out.ZIndex = &z
	}
	if n.DragOrigin != nil {
		p := *n.DragOrigin
		out.DragOrigin = &p
	}
	out.Data = CopyData(n.Data)
	return out
}

// =============================================================================
// Edge
// =============================================================================

// Edge connects an output handle of one node to an input handle of another.
type Edge struct {
	ID           string `json:"id" bson:"id"`
	Source       string `json:"sourceNodeId" bson:"sourceNodeId"`
	SourceHandle string `json:"sourceHandle" bson:"sourceHandle"`
	Target       string `json:"targetNodeId" bson:"targetNodeId"`
	TargetHandle string `json:"targetHandle" bson:"targetHandle"`
}

// SameEndpoints reports whether e and o bind the same four fields.
func (e Edge) SameEndpoints(o Edge) bool {
	return e.Source == o.Source && e.SourceHandle == o.SourceHandle &&
		e.Target == o.Target && e.TargetHandle == o.TargetHandle
}

// Touches reports whether e has nodeID at either end.
func (e Edge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// =============================================================================
// Documents
// =============================================================================

// GraphDocument is one named flow.
type GraphDocument struct {
	ID    string `json:"id" bson:"id"`
	Name  string `json:"name" bson:"name"`
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
}

// ProjectSnapshot is the complete multi-graph state of one project.
type ProjectSnapshot struct {
	Version       int             `json:"version" bson:"version"`
	ActiveGraphID string          `json:"activeGraphId" bson:"activeGraphId"`
	Graphs        []GraphDocument `json:"graphs" bson:"graphs"`
}
