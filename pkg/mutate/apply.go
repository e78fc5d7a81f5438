package mutate

import (
	"github.com/samber/lo"

	"github.com/matzehuels/flowkeeper/pkg/flow"
	"github.com/matzehuels/flowkeeper/pkg/group"
)

type delta struct{ dx, dy float64 }

func (d delta) zero() bool { return d.dx == 0 && d.dy == 0 }

// ApplyNodeChanges applies changes to nodes and returns the next node set
// together with the pending attaches the batch produced. Changes naming
// unknown nodes are ignored. The input slice is not modified.
func ApplyNodeChanges(changes []NodeChange, nodes []flow.Node) Result {
	out := make([]flow.Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	index := make(map[string]int, len(out))
	for i, n := range out {
		index[n.ID] = i
	}

	var (
		moves    = map[string]delta{}
		explicit = map[string]bool{}
		settled  = map[string]bool{}
		canceled = map[string]bool{}
		removed  = map[string]bool{}
		resized  = map[string]bool{}
	)

	for _, c := range changes {
		i, ok := index[c.ID]
		if !ok {
			continue
		}
		n := &out[i]

		switch c.Type {
		case ChangePosition:
			if c.Position != nil {
				if n.DragOrigin == nil && c.Dragging != nil && *c.Dragging {
					origin := n.Position
					n.DragOrigin = &origin
				}
				d := moves[n.ID]
				d.dx += c.Position.X - n.Position.X
				d.dy += c.Position.Y - n.Position.Y
				moves[n.ID] = d
				n.Position = *c.Position
				explicit[n.ID] = true
			}
			if c.Dragging != nil {
				n.Dragging = *c.Dragging
			}
			if !n.Dragging {
				n.DragOrigin = nil
				settled[n.ID] = true
				delete(canceled, n.ID)
			}

		case ChangeCancel:
			if n.DragOrigin != nil {
				d := moves[n.ID]
				d.dx += n.DragOrigin.X - n.Position.X
				d.dy += n.DragOrigin.Y - n.Position.Y
				moves[n.ID] = d
				n.Position = *n.DragOrigin
				explicit[n.ID] = true
			}
			n.DragOrigin = nil
			n.Dragging = false
			canceled[n.ID] = true
			delete(settled, n.ID)

		case ChangeSelect:
			if c.Selected != nil {
				n.Selected = *c.Selected
			}

		case ChangeDimensions:
			resized[n.ID] = true
			if c.Size != nil {
				s := *c.Size
				n.Size = &s
			}
			if c.Resizing != nil {
				n.Resizing = *c.Resizing
			}

		case ChangeRemove:
			removed[n.ID] = true
		}
	}

	propagate(out, moves, explicit, removed, resized)

	if len(removed) > 0 {
		out = lo.Filter(out, func(n flow.Node, _ int) bool { return !removed[n.ID] })
		for i := range out {
			if removed[out[i].GroupContainerID] {
				out[i].SetGroup("")
			}
		}
	}

	res := Result{
		Nodes:   out,
		Pending: detect(out, settled, canceled),
	}
	for _, n := range nodes {
		if removed[n.ID] {
			res.Removed = append(res.Removed, n.ID)
		}
	}
	for _, n := range out {
		if d, ok := moves[n.ID]; ok && !d.zero() {
			res.Moved = append(res.Moved, n.ID)
		}
	}
	return res
}

// propagate translates members of moved containers. It records the member
// deltas in moves so callers can report them. A container that is resizing,
// or was resized in the same batch, keeps its members in place: edge-resizing
// from the left or top shifts its position without moving it.
func propagate(nodes []flow.Node, moves map[string]delta, explicit, removed, resized map[string]bool) {
	containers := map[string]delta{}
	for _, n := range nodes {
		if n.Resizing || resized[n.ID] {
			continue
		}
		if d, ok := moves[n.ID]; ok && n.IsContainer() && !removed[n.ID] && !d.zero() {
			containers[n.ID] = d
		}
	}
	if len(containers) == 0 {
		return
	}
	for i := range nodes {
		n := &nodes[i]
		d, ok := containers[n.GroupContainerID]
		if !ok || n.IsContainer() || explicit[n.ID] || removed[n.ID] {
			continue
		}
		n.Position = n.Position.Add(d.dx, d.dy)
		m := moves[n.ID]
		m.dx += d.dx
		m.dy += d.dy
		moves[n.ID] = m
	}
}

// detect finds settled non-container nodes whose center lies in a container
// they are not yet a member of.
func detect(nodes []flow.Node, settled, canceled map[string]bool) []Attach {
	var pending []Attach
	for _, n := range nodes {
		if !settled[n.ID] || canceled[n.ID] || n.IsContainer() || n.Dragging {
			continue
		}
		cid, ok := group.ContainerAt(nodes, group.Box(n).Center(), "")
		if !ok || cid == n.GroupContainerID {
			continue
		}
		pending = append(pending, Attach{NodeID: n.ID, ContainerID: cid})
	}
	return pending
}
