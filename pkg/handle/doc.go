// Package handle parses and normalizes port identifiers.
//
// A handle is not stored anywhere; it is the string an edge uses to name
// one end of a connection. The canonical grammar is:
//
//	(in|out).(control|data|condition).<suffix>
//
// which encodes a [Role] (which side of an edge the port can sit on), a
// [Semantic] (what flows through it), and an opaque per-kind suffix.
//
// # Legacy aliases
//
// Older projects used short forms that [Normalize] rewrites:
//
//	in.prev     → in.control.prev
//	out.next    → out.control.next
//	out.case-X  → out.control.case-X
//	in.case-X   → in.condition.case-X
//	in.value    → in.data.value
//
// Strings that are neither canonical nor a known alias pass through
// [Normalize] unchanged so that the connection validator can reject them
// with a precise reason instead of silently dropping them.
//
// # Multiplicity
//
// Whether a handle accepts one or many edges is derived, never stored:
// incoming control and outgoing data handles are multi-use, as is the
// condition result output. Every other handle is single-use.
package handle
