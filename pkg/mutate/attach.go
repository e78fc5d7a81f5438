package mutate

import (
	"fmt"

	"github.com/matzehuels/flowkeeper/pkg/flow"
)

// Confirmer answers yes/no questions. Confirm blocks until the user decides.
type Confirmer interface {
	Confirm(message string) bool
}

// ConfirmFunc adapts a function to [Confirmer].
type ConfirmFunc func(message string) bool

// Confirm calls f(message).
func (f ConfirmFunc) Confirm(message string) bool { return f(message) }

// Always returns a Confirmer that gives the same answer to every question.
func Always(answer bool) Confirmer {
	return ConfirmFunc(func(string) bool { return answer })
}

// AttachMessage is the question asked before adding a node to a container.
func AttachMessage(node, container flow.Node) string {
	return fmt.Sprintf("Add %q to group %q?", node.Label(), container.Label())
}

// ResolveAttaches asks c about each pending attach in order and applies the
// accepted ones. The next question is only asked after the previous one was
// answered. A declined attach leaves the node where it was dropped but does
// not change its membership. Attaches whose node or container no longer
// exists, or that are already satisfied, are skipped without asking.
// A nil Confirmer declines everything.
func ResolveAttaches(nodes []flow.Node, pending []Attach, c Confirmer) (out []flow.Node, accepted, declined []Attach) {
	out = make([]flow.Node, len(nodes))
	copy(out, nodes)

	index := make(map[string]int, len(out))
	for i, n := range out {
		index[n.ID] = i
	}

	for _, a := range pending {
		ni, ok1 := index[a.NodeID]
		ci, ok2 := index[a.ContainerID]
		if !ok1 || !ok2 || !out[ci].IsContainer() || out[ni].IsContainer() {
			continue
		}
		if out[ni].GroupContainerID == a.ContainerID {
			continue
		}
		if c == nil || !c.Confirm(AttachMessage(out[ni], out[ci])) {
			declined = append(declined, a)
			continue
		}
		out[ni].SetGroup(a.ContainerID)
		accepted = append(accepted, a)
	}
	return out, accepted, declined
}
