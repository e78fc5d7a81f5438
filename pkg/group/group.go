// Package group derives container geometry from container membership.
//
// A container (a node of kind [flow.KindGroup]) has no ports. Its box is the
// bounding box of its members' boxes, grown by a header strip and padding:
//
//	x      = minLeft - PadLeft
//	y      = minTop  - HeaderHeight - PadTop
//	width  = maxRight  - minLeft + PadLeft + PadRight
//	height = maxBottom - minTop  + HeaderHeight + PadTop + PadBottom
//
// Width and height are clamped to [MinWidth, MaxWidth] and
// [MinHeight, MaxHeight], except that the maximum never cuts into the
// members: a container always reaches its rightmost and bottommost member,
// so only trailing padding is lost to the cap. Members keep absolute canvas
// positions.
//
// [Layout] is idempotent: applying it to its own output reports no change.
package group

import (
	"math"

	"github.com/matzehuels/flowkeeper/pkg/catalog"
	"github.com/matzehuels/flowkeeper/pkg/flow"
	"github.com/matzehuels/flowkeeper/pkg/geom"
)

// Container geometry, in canvas units.
const (
	HeaderHeight = 40.0
	PadLeft      = 24.0
	PadRight     = 24.0
	PadTop       = 16.0
	PadBottom    = 24.0

	MinWidth  = 240.0
	MinHeight = 160.0
	MaxWidth  = 4000.0
	MaxHeight = 4000.0

	// Epsilon is the smallest position or size delta Layout applies.
	Epsilon = 0.5
)

// Box returns the axis-aligned box of n on the canvas.
func Box(n flow.Node) geom.Rect {
	s := catalog.NodeSize(n)
	return geom.Rect{X: n.Position.X, Y: n.Position.Y, Width: s.Width, Height: s.Height}
}

// Interior returns the area of a container where dropped nodes become
// members: its box minus the header strip and padding.
func Interior(container flow.Node) geom.Rect {
	return Box(container).Inset(HeaderHeight+PadTop, PadRight, PadBottom, PadLeft)
}

// Bounds returns the container box enclosing the given member boxes.
// It reports false when there are no members.
func Bounds(members []geom.Rect) (geom.Rect, bool) {
	box, ok := geom.BoundingBox(members)
	if !ok {
		return geom.Rect{}, false
	}
	width := geom.Clamp(box.Width+PadLeft+PadRight, MinWidth, MaxWidth)
	height := geom.Clamp(box.Height+HeaderHeight+PadTop+PadBottom, MinHeight, MaxHeight)
	return geom.Rect{
		X:      box.Left() - PadLeft,
		Y:      box.Top() - HeaderHeight - PadTop,
		Width:  math.Max(width, box.Width+PadLeft),
		Height: math.Max(height, box.Height+HeaderHeight+PadTop),
	}, true
}

// Members returns the nodes whose membership names containerID.
func Members(nodes []flow.Node, containerID string) []flow.Node {
	var out []flow.Node
	for _, n := range nodes {
		if n.GroupContainerID == containerID && !n.IsContainer() {
			out = append(out, n)
		}
	}
	return out
}

// MemberBoxes returns the boxes of the members of containerID.
func MemberBoxes(nodes []flow.Node, containerID string) []geom.Rect {
	var out []geom.Rect
	for _, n := range nodes {
		if n.GroupContainerID == containerID && !n.IsContainer() {
			out = append(out, Box(n))
		}
	}
	return out
}

// ContainerAt returns the container whose interior contains p. When several
// do, the one with the smallest interior area wins; ties go to the earlier
// node. The container with id exclude is never returned.
func ContainerAt(nodes []flow.Node, p geom.Point, exclude string) (string, bool) {
	best := ""
	bestArea := math.Inf(1)
	for _, n := range nodes {
		if !n.IsContainer() || n.ID == exclude {
			continue
		}
		in := Interior(n)
		if !in.Contains(p) {
			continue
		}
		if a := in.Area(); a < bestArea {
			best, bestArea = n.ID, a
		}
	}
	return best, best != ""
}

// Layout fits every container to its members and reports whether any node
// changed. Containers that are being dragged or resized are left alone, as
// are containers without members. The input slice is not modified.
func Layout(nodes []flow.Node) ([]flow.Node, bool) {
	out := make([]flow.Node, len(nodes))
	copy(out, nodes)

	changed := false
	for i := range out {
		c := &out[i]
		if !c.IsContainer() || c.Dragging || c.Resizing {
			continue
		}
		want, ok := Bounds(MemberBoxes(out, c.ID))
		if !ok {
			continue
		}
		if !differs(Box(*c), want) {
			continue
		}
		c.Position = flow.Position{X: want.X, Y: want.Y}
		c.Size = &flow.Size{Width: want.Width, Height: want.Height}
		changed = true
	}
	return out, changed
}

func differs(a, b geom.Rect) bool {
	return !geom.NearlyEqual(a.X, b.X, Epsilon) ||
		!geom.NearlyEqual(a.Y, b.Y, Epsilon) ||
		!geom.NearlyEqual(a.Width, b.Width, Epsilon) ||
		!geom.NearlyEqual(a.Height, b.Height, Epsilon)
}
