// Package connect decides whether a proposed edge may be added to a graph.
//
// [Validate] runs a fixed sequence of checks and stops at the first failure.
// The order is part of the contract: callers map the first reason to a hint,
// so a candidate that is both malformed and occupied always reports the
// malformed reason.
//
//  1. [MissingEndpoint]
//  2. [InvalidHandle]
//  3. [WrongDirection]
//  4. [SemanticMismatch]
//  5. [NodeNotFound]
//  6. [SourceOccupied]
//  7. [TargetOccupied]
//
// Re-proposing an edge that already exists with the same four endpoint
// fields is always valid, so reconnecting is idempotent.
package connect

import (
	"github.com/matzehuels/flowkeeper/pkg/flow"
	"github.com/matzehuels/flowkeeper/pkg/handle"
)

// Reason is a machine-readable rejection code.
type Reason string

const (
	MissingEndpoint  Reason = "missing-endpoint"
	InvalidHandle    Reason = "invalid-handle"
	WrongDirection   Reason = "wrong-direction"
	SemanticMismatch Reason = "semantic-mismatch"
	NodeNotFound     Reason = "node-not-found"
	SourceOccupied   Reason = "source-occupied"
	TargetOccupied   Reason = "target-occupied"
)

var messages = map[Reason]string{
	MissingEndpoint:  "connection needs both a source and a target",
	InvalidHandle:    "unknown port",
	WrongDirection:   "connect an output to an input",
	SemanticMismatch: "port types do not match",
	NodeNotFound:     "node no longer exists",
	SourceOccupied:   "source port already occupied",
	TargetOccupied:   "target port already occupied",
}

// Message returns user-facing hint text for r.
func (r Reason) Message() string {
	if m, ok := messages[r]; ok {
		return m
	}
	return string(r)
}

// Candidate is a proposed edge.
type Candidate struct {
	Source       string `json:"sourceNodeId"`
	SourceHandle string `json:"sourceHandle"`
	Target       string `json:"targetNodeId"`
	TargetHandle string `json:"targetHandle"`
}

// Edge returns the normalized edge for c with its derived id.
func (c Candidate) Edge() flow.Edge {
	return flow.NormalizeEdge(flow.Edge{
		Source:       c.Source,
		SourceHandle: c.SourceHandle,
		Target:       c.Target,
		TargetHandle: c.TargetHandle,
	})
}

// Result is the outcome of [Validate]. Reason is empty when Valid.
type Result struct {
	Valid  bool   `json:"valid"`
	Reason Reason `json:"reason,omitempty"`
}

func reject(r Reason) Result { return Result{Reason: r} }

// Validate checks c against the current nodes and edges.
func Validate(c Candidate, nodes []flow.Node, edges []flow.Edge) Result {
	if c.Source == "" || c.Target == "" {
		return reject(MissingEndpoint)
	}

	src, ok1 := handle.Parse(c.SourceHandle)
	tgt, ok2 := handle.Parse(c.TargetHandle)
	if !ok1 || !ok2 {
		return reject(InvalidHandle)
	}
	if src.Role != handle.RoleOut || tgt.Role != handle.RoleIn {
		return reject(WrongDirection)
	}
	if src.Semantic != tgt.Semantic {
		return reject(SemanticMismatch)
	}

	if !hasNode(nodes, c.Source) || !hasNode(nodes, c.Target) {
		return reject(NodeNotFound)
	}

	proposed := c.Edge()
	if !src.Multi() && bound(edges, proposed, func(e flow.Edge) bool {
		return e.Source == proposed.Source && e.SourceHandle == proposed.SourceHandle
	}) {
		return reject(SourceOccupied)
	}
	if !tgt.Multi() && bound(edges, proposed, func(e flow.Edge) bool {
		return e.Target == proposed.Target && e.TargetHandle == proposed.TargetHandle
	}) {
		return reject(TargetOccupied)
	}
	return Result{Valid: true}
}

// IsValid reports whether [Validate] accepts c.
func IsValid(c Candidate, nodes []flow.Node, edges []flow.Edge) bool {
	return Validate(c, nodes, edges).Valid
}

func hasNode(nodes []flow.Node, id string) bool {
	for i := range nodes {
		if nodes[i].ID == id {
			return true
		}
	}
	return false
}

// bound reports whether some edge other than proposed itself occupies the
// handle selected by match.
func bound(edges []flow.Edge, proposed flow.Edge, match func(flow.Edge) bool) bool {
	for _, e := range edges {
		e = flow.NormalizeEdge(e)
		if !match(e) {
			continue
		}
		if e.SameEndpoints(proposed) {
			continue
		}
		return true
	}
	return false
}
