// Package catalog maps node kinds to their port profiles, default payloads,
// per-item handle lists, and size hints.
//
// The catalog is a lookup table rather than a chain of kind switches: every
// consumer (the connection validator's callers, the command reducer, group
// auto-layout, the renderer) asks [Lookup] for a [Profile] and reads the
// fields it needs.
//
// # Item Lists
//
// Some kinds own a list of items that each contribute one output handle:
//
//   - switch: cases, handle [handle.Case]
//   - parallel, race: branches, handle [handle.Branch]
//   - fetch: status codes, handle [handle.Status]
//
// Item lists always keep at least one item. See [ItemList].
package catalog

import (
	"sort"

	"github.com/matzehuels/flowkeeper/pkg/flow"
	"github.com/matzehuels/flowkeeper/pkg/handle"
)

// DefaultNodeSize is the box assumed for nodes without an explicit size.
var DefaultNodeSize = flow.Size{Width: 180, Height: 72}

// Category groups kinds in menus and listings.
type Category string

const (
	CategoryFlow     Category = "flow"
	CategoryLogic    Category = "logic"
	CategoryData     Category = "data"
	CategoryIO       Category = "io"
	CategoryAnnotate Category = "annotate"
)

// Sizing selects how a kind's box is derived when no explicit size is set.
type Sizing int

const (
	SizeFixed Sizing = iota // DefaultNodeSize or Profile.Size
	SizeText                // estimated from the "text" payload
	SizeSticky              // estimated from the "text" payload, larger minimum
)

// Profile describes one node kind.
type Profile struct {
	Kind      flow.Kind
	Category  Category
	Title     string
	Inputs    []string // static input handles, canonical form
	Outputs   []string // static output handles, canonical form
	Container bool
	Items     *ItemList
	Defaults  map[string]any
	Size      flow.Size
	Sizing    Sizing
}

// HasPorts reports whether the kind exposes any handle.
func (p Profile) HasPorts() bool {
	return len(p.Inputs) > 0 || len(p.Outputs) > 0 || p.Items != nil
}

var (
	controlIO  = []string{handle.ControlIn}
	controlOut = []string{handle.ControlOut}
	dataIn     = handle.DataIn
	dataOut    = handle.DataOut
)

var profiles = map[flow.Kind]Profile{}

func register(p Profile) {
	profiles[p.Kind] = p
}

func init() {
	// Flow
	register(Profile{Kind: "start", Category: CategoryFlow, Title: "Start",
		Outputs: controlOut, Defaults: map[string]any{flow.DataLabel: "Start"}})
	register(Profile{Kind: "end", Category: CategoryFlow, Title: "End",
		Inputs: controlIO, Defaults: map[string]any{flow.DataLabel: "End"}})
	register(Profile{Kind: "process", Category: CategoryFlow, Title: "Process",
		Inputs: []string{handle.ControlIn, dataIn}, Outputs: []string{handle.ControlOut, dataOut},
		Defaults: map[string]any{flow.DataLabel: "Process", "description": ""}})
	register(Profile{Kind: "subflow", Category: CategoryFlow, Title: "Subflow",
		Inputs: []string{handle.ControlIn, dataIn}, Outputs: []string{handle.ControlOut, dataOut},
		Defaults: map[string]any{flow.DataLabel: "Subflow", "graphId": ""}})
	register(Profile{Kind: "return", Category: CategoryFlow, Title: "Return",
		Inputs: []string{handle.ControlIn, dataIn}, Defaults: map[string]any{flow.DataLabel: "Return"}})
	register(Profile{Kind: "delay", Category: CategoryFlow, Title: "Delay",
		Inputs: controlIO, Outputs: controlOut, Defaults: map[string]any{flow.DataLabel: "Delay", "ms": 1000}})
	register(Profile{Kind: "loop", Category: CategoryFlow, Title: "Loop",
		Inputs:   []string{handle.ControlIn, "in.data.items"},
		Outputs:  []string{"out.control.body", handle.ControlOut, "out.data.item"},
		Defaults: map[string]any{flow.DataLabel: "Loop", "maxIterations": 100}})
	register(Profile{Kind: "join", Category: CategoryFlow, Title: "Join",
		Inputs: controlIO, Outputs: controlOut, Defaults: map[string]any{flow.DataLabel: "Join"}})
	register(Profile{Kind: "tryCatch", Category: CategoryFlow, Title: "Try / Catch",
		Inputs:   controlIO,
		Outputs:  []string{"out.control.try", "out.control.catch", handle.ControlOut, "out.data.error"},
		Defaults: map[string]any{flow.DataLabel: "Try"}})
	register(Profile{Kind: "parallel", Category: CategoryFlow, Title: "Parallel",
		Inputs: controlIO, Outputs: controlOut, Items: branchList,
		Defaults: map[string]any{flow.DataLabel: "Parallel", "branches": itemSeed("branch-1", "branch-2")}})
	register(Profile{Kind: "race", Category: CategoryFlow, Title: "Race",
		Inputs: controlIO, Outputs: controlOut, Items: branchList,
		Defaults: map[string]any{flow.DataLabel: "Race", "branches": itemSeed("branch-1", "branch-2")}})

	// Logic
	register(Profile{Kind: "switch", Category: CategoryLogic, Title: "Switch",
		Inputs: []string{handle.ControlIn, dataIn}, Outputs: []string{"out.control.default"}, Items: caseList,
		Defaults: map[string]any{flow.DataLabel: "Switch", "cases": itemSeed("case-1", "case-2")}})
	register(Profile{Kind: "if", Category: CategoryLogic, Title: "If",
		Inputs:   []string{handle.ControlIn, "in.condition.test"},
		Outputs:  []string{"out.control.then", "out.control.else"},
		Defaults: map[string]any{flow.DataLabel: "If"}})
	register(Profile{Kind: "compare", Category: CategoryLogic, Title: "Compare",
		Inputs:   []string{"in.data.left", "in.data.right"},
		Outputs:  []string{"out.condition." + handle.ConditionResult},
		Defaults: map[string]any{flow.DataLabel: "Compare", "operator": "=="}})
	register(Profile{Kind: "and", Category: CategoryLogic, Title: "And",
		Inputs:   []string{"in.condition.a", "in.condition.b"},
		Outputs:  []string{"out.condition." + handle.ConditionResult},
		Defaults: map[string]any{flow.DataLabel: "And"}})
	register(Profile{Kind: "or", Category: CategoryLogic, Title: "Or",
		Inputs:   []string{"in.condition.a", "in.condition.b"},
		Outputs:  []string{"out.condition." + handle.ConditionResult},
		Defaults: map[string]any{flow.DataLabel: "Or"}})
	register(Profile{Kind: "not", Category: CategoryLogic, Title: "Not",
		Inputs:   []string{"in.condition.value"},
		Outputs:  []string{"out.condition." + handle.ConditionResult},
		Defaults: map[string]any{flow.DataLabel: "Not"}})
	register(Profile{Kind: "guard", Category: CategoryLogic, Title: "Guard",
		Inputs:   []string{handle.ControlIn, "in.condition.test"},
		Outputs:  controlOut,
		Defaults: map[string]any{flow.DataLabel: "Guard", "message": ""}})

	// Data
	register(Profile{Kind: "constant", Category: CategoryData, Title: "Constant",
		Outputs: []string{dataOut}, Defaults: map[string]any{flow.DataLabel: "Constant", "value": ""}})
	register(Profile{Kind: "variable", Category: CategoryData, Title: "Variable",
		Outputs: []string{dataOut}, Defaults: map[string]any{flow.DataLabel: "Variable", "name": ""}})
	register(Profile{Kind: "setVariable", Category: CategoryData, Title: "Set Variable",
		Inputs: []string{handle.ControlIn, dataIn}, Outputs: controlOut,
		Defaults: map[string]any{flow.DataLabel: "Set", "name": ""}})
	register(Profile{Kind: "math", Category: CategoryData, Title: "Math",
		Inputs: []string{"in.data.a", "in.data.b"}, Outputs: []string{dataOut},
		Defaults: map[string]any{flow.DataLabel: "Math", "operator": "+"}})
	register(Profile{Kind: "template", Category: CategoryData, Title: "Template",
		Inputs: []string{dataIn}, Outputs: []string{dataOut},
		Defaults: map[string]any{flow.DataLabel: "Template", "template": ""}})
	register(Profile{Kind: "transform", Category: CategoryData, Title: "Transform",
		Inputs: []string{handle.ControlIn, dataIn}, Outputs: []string{handle.ControlOut, dataOut},
		Defaults: map[string]any{flow.DataLabel: "Transform", "expression": ""}})

	// IO
	register(Profile{Kind: "fetch", Category: CategoryIO, Title: "Fetch",
		Inputs:  []string{handle.ControlIn, "in.data.url", "in.data.body"},
		Outputs: []string{"out.control.error", "out.data.response"}, Items: statusList,
		Defaults: map[string]any{flow.DataLabel: "Fetch", "method": "GET", "url": "",
			"statusCodes": itemSeed("200")}})
	register(Profile{Kind: "log", Category: CategoryIO, Title: "Log",
		Inputs: []string{handle.ControlIn, dataIn}, Outputs: controlOut,
		Defaults: map[string]any{flow.DataLabel: "Log", "level": "info"}})
	register(Profile{Kind: "emit", Category: CategoryIO, Title: "Emit Event",
		Inputs: []string{handle.ControlIn, dataIn}, Outputs: controlOut,
		Defaults: map[string]any{flow.DataLabel: "Emit", "event": ""}})
	register(Profile{Kind: "listen", Category: CategoryIO, Title: "On Event",
		Outputs: []string{handle.ControlOut, dataOut}, Defaults: map[string]any{flow.DataLabel: "On Event", "event": ""}})
	register(Profile{Kind: "input", Category: CategoryIO, Title: "Input",
		Outputs: []string{dataOut}, Defaults: map[string]any{flow.DataLabel: "Input", "name": ""}})
	register(Profile{Kind: "output", Category: CategoryIO, Title: "Output",
		Inputs: []string{dataIn}, Defaults: map[string]any{flow.DataLabel: "Output", "name": ""}})

	// Annotation
	register(Profile{Kind: flow.KindGroup, Category: CategoryAnnotate, Title: "Group",
		Container: true, Size: flow.Size{Width: 240, Height: 160},
		Defaults: map[string]any{flow.DataLabel: "Group"}})
	register(Profile{Kind: "text", Category: CategoryAnnotate, Title: "Text", Sizing: SizeText,
		Defaults: map[string]any{flow.DataText: ""}})
	register(Profile{Kind: "sticky", Category: CategoryAnnotate, Title: "Sticky Note", Sizing: SizeSticky,
		Defaults: map[string]any{flow.DataText: "", "color": "yellow"}})
}

// Lookup returns the profile for kind.
func Lookup(kind flow.Kind) (Profile, bool) {
	p, ok := profiles[kind]
	return p, ok
}

// Known reports whether kind is in the catalog.
func Known(kind flow.Kind) bool {
	_, ok := profiles[kind]
	return ok
}

// Kinds returns every registered kind, sorted.
func Kinds() []flow.Kind {
	out := make([]flow.Kind, 0, len(profiles))
	for k := range profiles {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsContainer reports whether kind is a container. Unknown kinds are not.
func IsContainer(kind flow.Kind) bool {
	p, ok := profiles[kind]
	return ok && p.Container
}

// DefaultData returns a fresh copy of the default payload for kind.
// Unknown kinds get an empty map.
func DefaultData(kind flow.Kind) map[string]any {
	p, ok := profiles[kind]
	if !ok {
		return map[string]any{}
	}
	return flow.CopyData(p.Defaults)
}

// Handles returns every handle the node exposes: the static ports of its kind
// followed by one output per item.
func Handles(n flow.Node) (inputs, outputs []string) {
	p, ok := profiles[n.Type]
	if !ok {
		return nil, nil
	}
	inputs = append(inputs, p.Inputs...)
	outputs = append(outputs, p.Outputs...)
	if p.Items != nil {
		for _, it := range p.Items.Read(n.Data) {
			outputs = append(outputs, p.Items.Handle(it.ID))
		}
	}
	return inputs, outputs
}
