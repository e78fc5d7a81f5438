// Package mutate folds batches of node changes from the editor canvas into a
// node set and keeps group-container membership coherent.
//
// A batch is applied in three steps:
//
//  1. Fold: position, selection, size, removal and cancel changes are applied
//     in order. A position change that starts a drag records the pre-drag
//     position; a cancel change restores it.
//  2. Propagate: a container moved by (dx, dy) moves its members by the same
//     delta, unless a member was moved explicitly in the same batch.
//  3. Detect: a non-container node whose move settled with its center inside
//     a container's interior, and which is not already a member, yields a
//     pending [Attach].
//
// Pending attaches are not applied by [ApplyNodeChanges]. [ResolveAttaches]
// asks a [Confirmer] about each one in turn.
package mutate

import "github.com/matzehuels/flowkeeper/pkg/flow"

// ChangeType identifies the kind of a [NodeChange].
type ChangeType string

const (
	ChangePosition   ChangeType = "position"
	ChangeSelect     ChangeType = "select"
	ChangeRemove     ChangeType = "remove"
	ChangeDimensions ChangeType = "dimensions"
	ChangeCancel     ChangeType = "cancel"
)

// NodeChange is one gesture-level edit of a single node. Optional fields are
// nil when the gesture does not carry them.
type NodeChange struct {
	Type     ChangeType     `json:"type" validate:"required,oneof=position select remove dimensions cancel"`
	ID       string         `json:"id" validate:"required"`
	Position *flow.Position `json:"position,omitempty"`
	Dragging *bool          `json:"dragging,omitempty"`
	Selected *bool          `json:"selected,omitempty"`
	Size     *flow.Size     `json:"dimensions,omitempty"`
	Resizing *bool          `json:"resizing,omitempty"`
}

// Move returns a position change. dragging is true while the pointer is down.
func Move(id string, x, y float64, dragging bool) NodeChange {
	return NodeChange{Type: ChangePosition, ID: id, Position: &flow.Position{X: x, Y: y}, Dragging: &dragging}
}

// DragEnd returns a position change that only ends a drag.
func DragEnd(id string) NodeChange {
	f := false
	return NodeChange{Type: ChangePosition, ID: id, Dragging: &f}
}

// Select returns a selection change.
func Select(id string, selected bool) NodeChange {
	return NodeChange{Type: ChangeSelect, ID: id, Selected: &selected}
}

// Remove returns a removal change.
func Remove(id string) NodeChange {
	return NodeChange{Type: ChangeRemove, ID: id}
}

// Resize returns a dimensions change.
func Resize(id string, w, h float64, resizing bool) NodeChange {
	return NodeChange{Type: ChangeDimensions, ID: id, Size: &flow.Size{Width: w, Height: h}, Resizing: &resizing}
}

// Cancel returns a pointer-cancel change that aborts an in-progress drag.
func Cancel(id string) NodeChange {
	return NodeChange{Type: ChangeCancel, ID: id}
}

// Attach is a pending request to make a node a member of a container.
type Attach struct {
	NodeID      string `json:"nodeId"`
	ContainerID string `json:"containerId"`
}

// Result is the outcome of [ApplyNodeChanges].
type Result struct {
	Nodes   []flow.Node
	Pending []Attach
	Removed []string
	Moved   []string
}
