// Package command is the single reducer for editor intents.
//
// Node payloads carry no callbacks. Every edit the editor can make outside of
// a canvas gesture is expressed as a [Command] value and applied by [Reduce],
// which returns the next project snapshot and an [Outcome]. Rejected commands
// leave the snapshot unchanged and report a [Reason]; they are never errors.
//
// Commands serialize as JSON objects with a "type" discriminator so that a
// rendering surface on the other side of a socket can send them:
//
//	{"type": "removeItem", "graph": "g1", "node": "switch-1", "item": "case-2"}
package command

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/flowkeeper/pkg/connect"
	"github.com/matzehuels/flowkeeper/pkg/flow"
)

// Command is an editor intent. The set of commands is closed.
type Command interface {
	Type() string
	command()
}

// ChangeField sets one payload field of a node.
type ChangeField struct {
	Graph string `json:"graph,omitempty"`
	Node  string `json:"node"`
	Field string `json:"field"`
	Value any    `json:"value"`
}

// AddNode creates a node of the given kind with its default payload.
// An empty ID is generated.
type AddNode struct {
	Graph    string        `json:"graph,omitempty"`
	Kind     flow.Kind     `json:"kind"`
	Position flow.Position `json:"position"`
	ID       string        `json:"id,omitempty"`
}

// DeleteNodes removes nodes, their edges, and releases members of removed
// containers.
type DeleteNodes struct {
	Graph string   `json:"graph,omitempty"`
	IDs   []string `json:"ids"`
}

// AddItem appends an item (case, branch, status code) to a node.
type AddItem struct {
	Graph string `json:"graph,omitempty"`
	Node  string `json:"node"`
	Label string `json:"label,omitempty"`
}

// RemoveItem deletes an item and every edge bound to its handle.
type RemoveItem struct {
	Graph string `json:"graph,omitempty"`
	Node  string `json:"node"`
	Item  string `json:"item"`
}

// Connect adds an edge after validation.
type Connect struct {
	Graph     string            `json:"graph,omitempty"`
	Candidate connect.Candidate `json:"candidate"`
}

// Disconnect removes an edge by id.
type Disconnect struct {
	Graph  string `json:"graph,omitempty"`
	EdgeID string `json:"edge"`
}

// JoinGroup makes a node a member of a container.
type JoinGroup struct {
	Graph     string `json:"graph,omitempty"`
	Node      string `json:"node"`
	Container string `json:"container"`
}

// LeaveGroup releases a node from its container.
type LeaveGroup struct {
	Graph string `json:"graph,omitempty"`
	Node  string `json:"node"`
}

// DissolveGroup removes a container and releases its members.
type DissolveGroup struct {
	Graph     string `json:"graph,omitempty"`
	Container string `json:"container"`
}

// AddGraph creates an empty graph and makes it active.
type AddGraph struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// RenameGraph changes a graph's display name.
type RenameGraph struct {
	Graph string `json:"graph"`
	Name  string `json:"name"`
}

// DeleteGraph removes a graph. The last graph cannot be deleted.
type DeleteGraph struct {
	Graph string `json:"graph"`
}

// SetActiveGraph switches the active graph.
type SetActiveGraph struct {
	Graph string `json:"graph"`
}

func (ChangeField) Type() string    { return "changeField" }
func (AddNode) Type() string        { return "addNode" }
func (DeleteNodes) Type() string    { return "deleteNodes" }
func (AddItem) Type() string        { return "addItem" }
func (RemoveItem) Type() string     { return "removeItem" }
func (Connect) Type() string        { return "connect" }
func (Disconnect) Type() string     { return "disconnect" }
func (JoinGroup) Type() string      { return "joinGroup" }
func (LeaveGroup) Type() string     { return "leaveGroup" }
func (DissolveGroup) Type() string  { return "dissolveGroup" }
func (AddGraph) Type() string       { return "addGraph" }
func (RenameGraph) Type() string    { return "renameGraph" }
func (DeleteGraph) Type() string    { return "deleteGraph" }
func (SetActiveGraph) Type() string { return "setActiveGraph" }

func (ChangeField) command()    {}
func (AddNode) command()        {}
func (DeleteNodes) command()    {}
func (AddItem) command()        {}
func (RemoveItem) command()     {}
func (Connect) command()        {}
func (Disconnect) command()     {}
func (JoinGroup) command()      {}
func (LeaveGroup) command()     {}
func (DissolveGroup) command()  {}
func (AddGraph) command()       {}
func (RenameGraph) command()    {}
func (DeleteGraph) command()    {}
func (SetActiveGraph) command() {}

var registry = map[string]func() Command{
	"changeField":    func() Command { return &ChangeField{} },
	"addNode":        func() Command { return &AddNode{} },
	"deleteNodes":    func() Command { return &DeleteNodes{} },
	"addItem":        func() Command { return &AddItem{} },
	"removeItem":     func() Command { return &RemoveItem{} },
	"connect":        func() Command { return &Connect{} },
	"disconnect":     func() Command { return &Disconnect{} },
	"joinGroup":      func() Command { return &JoinGroup{} },
	"leaveGroup":     func() Command { return &LeaveGroup{} },
	"dissolveGroup":  func() Command { return &DissolveGroup{} },
	"addGraph":       func() Command { return &AddGraph{} },
	"renameGraph":    func() Command { return &RenameGraph{} },
	"deleteGraph":    func() Command { return &DeleteGraph{} },
	"setActiveGraph": func() Command { return &SetActiveGraph{} },
}

// Decode parses a JSON command with a "type" discriminator.
func Decode(data []byte) (Command, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	mk, ok := registry[head.Type]
	if !ok {
		return nil, fmt.Errorf("decode command: unknown type %q", head.Type)
	}
	ptr := mk()
	if err := json.Unmarshal(data, ptr); err != nil {
		return nil, fmt.Errorf("decode %s: %w", head.Type, err)
	}
	return deref(ptr), nil
}

// Encode serializes cmd with its "type" discriminator.
func Encode(cmd Command) ([]byte, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	t, _ := json.Marshal(cmd.Type())
	fields["type"] = t
	return json.Marshal(fields)
}

// deref turns the pointer built by Decode back into the value form that
// Reduce switches on.
func deref(c Command) Command {
	switch v := c.(type) {
	case *ChangeField:
		return *v
	case *AddNode:
		return *v
	case *DeleteNodes:
		return *v
	case *AddItem:
		return *v
	case *RemoveItem:
		return *v
	case *Connect:
		return *v
	case *Disconnect:
		return *v
	case *JoinGroup:
		return *v
	case *LeaveGroup:
		return *v
	case *DissolveGroup:
		return *v
	case *AddGraph:
		return *v
	case *RenameGraph:
		return *v
	case *DeleteGraph:
		return *v
	case *SetActiveGraph:
		return *v
	}
	return c
}
