package connect_test

import (
	"fmt"

	"github.com/matzehuels/flowkeeper/pkg/connect"
	"github.com/matzehuels/flowkeeper/pkg/flow"
)

func ExampleValidate() {
	nodes := []flow.Node{
		{ID: "start", Type: "start"},
		{ID: "a", Type: "process"},
		{ID: "b", Type: "process"},
	}
	edges := []flow.Edge{
		{ID: "e1", Source: "start", SourceHandle: "out.control.next", Target: "a", TargetHandle: "in.control.prev"},
	}

	// The start node's single control output is already wired to "a".
	r := connect.Validate(connect.Candidate{
		Source: "start", SourceHandle: "out.next",
		Target: "b", TargetHandle: "in.prev",
	}, nodes, edges)
	fmt.Println(r.Valid, r.Reason, "-", r.Reason.Message())

	// Proposing the existing edge again is fine.
	r = connect.Validate(connect.Candidate{
		Source: "start", SourceHandle: "out.control.next",
		Target: "a", TargetHandle: "in.control.prev",
	}, nodes, edges)
	fmt.Println(r.Valid)
	// Output:
	// false source-occupied - source port already occupied
	// true
}
