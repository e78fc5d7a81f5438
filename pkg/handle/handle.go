package handle

import (
	"regexp"
	"strings"
)

// Role is the side of an edge a handle can occupy.
type Role string

const (
	RoleIn  Role = "in"
	RoleOut Role = "out"
)

// Semantic is what travels across a connection.
type Semantic string

const (
	SemanticControl   Semantic = "control"
	SemanticData      Semantic = "data"
	SemanticCondition Semantic = "condition"
)

// Multiplicity says how many edges may share a handle.
type Multiplicity int

const (
	Single Multiplicity = iota
	Multi
)

func (m Multiplicity) String() string {
	if m == Multi {
		return "multi"
	}
	return "single"
}

// Handle is a parsed port identifier.
type Handle struct {
	Role     Role
	Semantic Semantic
	Suffix   string
}

// String returns the canonical form of h.
func (h Handle) String() string {
	return string(h.Role) + "." + string(h.Semantic) + "." + h.Suffix
}

// Multiplicity derives whether h is single- or multi-use.
//
// Incoming control and outgoing data handles fan in/out freely. The
// condition result output is the one exception to the single-use rule for
// everything else.
func (h Handle) Multiplicity() Multiplicity {
	switch {
	case h.Role == RoleIn && h.Semantic == SemanticControl:
		return Multi
	case h.Role == RoleOut && h.Semantic == SemanticData:
		return Multi
	case h.Role == RoleOut && h.Semantic == SemanticCondition && h.Suffix == ConditionResult:
		return Multi
	default:
		return Single
	}
}

// Multi reports whether h accepts more than one edge.
func (h Handle) Multi() bool { return h.Multiplicity() == Multi }

// ConditionResult is the suffix of the condition output that is always multi-use.
const ConditionResult = "result"

var grammar = regexp.MustCompile(`^(in|out)\.(control|data|condition)\.(.+)$`)

// Parse normalizes id and splits it into role, semantic, and suffix.
// It reports false when the normalized string does not match the grammar.
func Parse(id string) (Handle, bool) {
	m := grammar.FindStringSubmatch(Normalize(id))
	if m == nil {
		return Handle{}, false
	}
	return Handle{Role: Role(m[1]), Semantic: Semantic(m[2]), Suffix: m[3]}, true
}

// Valid reports whether id parses.
func Valid(id string) bool {
	_, ok := Parse(id)
	return ok
}

// Normalize rewrites the closed set of legacy short forms into canonical
// handles. Canonical and unrecognized strings are returned unchanged.
func Normalize(id string) string {
	switch id {
	case "in.prev":
		return "in.control.prev"
	case "out.next":
		return "out.control.next"
	case "in.value":
		return "in.data.value"
	}
	if rest, ok := strings.CutPrefix(id, "out.case-"); ok {
		return "out.control.case-" + rest
	}
	if rest, ok := strings.CutPrefix(id, "in.case-"); ok {
		return "in.condition.case-" + rest
	}
	return id
}

// Standard handles shared by most node kinds.
const (
	ControlIn  = "in.control.prev"
	ControlOut = "out.control.next"
	DataIn     = "in.data.value"
	DataOut    = "out.data.value"
)

// Per-item handle prefixes. The item id follows the prefix verbatim.
const (
	CasePrefix   = "out.control.case-"
	BranchPrefix = "out.control.branch-"
	StatusPrefix = "out.control.status-"
)

// Case returns the output handle of a switch case.
func Case(id string) string { return CasePrefix + id }

// Branch returns the output handle of a parallel or race branch.
func Branch(id string) string { return BranchPrefix + id }

// Status returns the output handle of a fetch status code.
func Status(code string) string { return StatusPrefix + code }
