// Package snapshot converts between the in-memory project and its persisted
// and exported forms.
//
// Three artifacts are involved:
//
//   - The project record: the whole [flow.ProjectSnapshot] as JSON, version 2.
//     [DecodeProject] reads it tolerantly and migrates legacy single-graph
//     records.
//   - The logic graph: [ExportLogic] strips every presentation-only payload
//     key ("collapsed", "autoSize", and keys starting with "_") and keeps
//     {id, type, data} per node plus normalized edges. This is what a
//     downstream generator consumes.
//   - The editor layout: [CaptureLayout] records positions, sizes, group
//     membership, z-order and collapse flags, keyed by graph id and node id.
//     [Hydrate] merges it back onto a logic graph.
//
// A logic graph hydrated with its own captured layout reproduces the original
// positions exactly. Nodes the layout does not know about are laid out on a
// four-column grid (see [FallbackPosition]).
package snapshot
