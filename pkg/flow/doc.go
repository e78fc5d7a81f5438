// Package flow defines the in-memory model of a node-graph project.
//
// A project is a [ProjectSnapshot]: a versioned list of [GraphDocument]
// values, one per named flow, plus the id of the graph currently open in the
// editor. Each graph holds [Node] and [Edge] slices. Edges name their
// endpoints by node id and handle id (see pkg/handle).
//
// # Containers
//
// Nodes of kind [KindGroup] are group boxes. Other nodes join a group by
// setting GroupContainerID; the group's bounds are derived from its members
// by pkg/group. Groups do not nest.
//
// # Normalization
//
// [NormalizeGraph] enforces the structural invariants every consumer relies
// on: no dangling edges, no duplicate ids, canonical handles, and membership
// that always names an existing container. It never fails; malformed input
// is repaired rather than rejected.
//
// # Concurrency
//
// Values in this package are plain data. Clone before sharing a snapshot
// across goroutines.
package flow
