package connect

import (
	"testing"

	"github.com/matzehuels/flowkeeper/pkg/flow"
)

func testNodes() []flow.Node {
	return []flow.Node{
		{ID: "a", Type: "process"},
		{ID: "b", Type: "process"},
		{ID: "c", Type: "process"},
		{ID: "cmp", Type: "compare"},
		{ID: "if1", Type: "if"},
		{ID: "if2", Type: "if"},
	}
}

func TestValidateReasons(t *testing.T) {
	edges := []flow.Edge{
		{ID: "e1", Source: "a", SourceHandle: "out.control.next", Target: "b", TargetHandle: "in.control.prev"},
		{ID: "e2", Source: "a", SourceHandle: "out.data.value", Target: "b", TargetHandle: "in.data.value"},
	}

	tests := []struct {
		name string
		c    Candidate
		want Reason
	}{
		{"missing source", Candidate{"", "out.control.next", "b", "in.control.prev"}, MissingEndpoint},
		{"missing target", Candidate{"a", "out.control.next", "", "in.control.prev"}, MissingEndpoint},
		{"missing wins over invalid", Candidate{"", "junk", "b", "junk"}, MissingEndpoint},
		{"invalid source handle", Candidate{"a", "out.bogus.x", "b", "in.control.prev"}, InvalidHandle},
		{"invalid target handle", Candidate{"a", "out.control.next", "b", ""}, InvalidHandle},
		{"out to out", Candidate{"a", "out.control.next", "b", "out.control.next"}, WrongDirection},
		{"in to in", Candidate{"a", "in.data.value", "b", "in.data.value"}, WrongDirection},
		{"control to data", Candidate{"a", "out.control.next", "c", "in.data.value"}, SemanticMismatch},
		{"unknown source node", Candidate{"zz", "out.control.next", "c", "in.control.prev"}, NodeNotFound},
		{"unknown target node", Candidate{"a", "out.data.value", "zz", "in.data.value"}, NodeNotFound},
		{"source occupied", Candidate{"a", "out.control.next", "c", "in.control.prev"}, SourceOccupied},
		{"source occupied via alias", Candidate{"a", "out.next", "c", "in.prev"}, SourceOccupied},
		{"target occupied", Candidate{"c", "out.data.value", "b", "in.data.value"}, TargetOccupied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.c, testNodes(), edges)
			if got.Valid || got.Reason != tt.want {
				t.Errorf("Validate = %+v, want reason %s", got, tt.want)
			}
			if IsValid(tt.c, testNodes(), edges) {
				t.Error("IsValid = true for rejected candidate")
			}
		})
	}
}

func TestValidateAccepts(t *testing.T) {
	edges := []flow.Edge{
		{ID: "e1", Source: "a", SourceHandle: "out.control.next", Target: "b", TargetHandle: "in.control.prev"},
		{ID: "e2", Source: "a", SourceHandle: "out.data.value", Target: "b", TargetHandle: "in.data.value"},
		{ID: "e3", Source: "cmp", SourceHandle: "out.condition.result", Target: "if1", TargetHandle: "in.condition.test"},
	}

	tests := []struct {
		name string
		c    Candidate
	}{
		{"multi control input", Candidate{"c", "out.control.next", "b", "in.control.prev"}},
		{"multi data output", Candidate{"a", "out.data.value", "c", "in.data.value"}},
		{"condition result fans out", Candidate{"cmp", "out.condition.result", "if2", "in.condition.test"}},
		{"reconnect identical", Candidate{"a", "out.control.next", "b", "in.control.prev"}},
		{"reconnect identical via alias", Candidate{"a", "out.next", "b", "in.prev"}},
		{"reconnect identical data", Candidate{"a", "out.data.value", "b", "in.data.value"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Validate(tt.c, testNodes(), edges); !got.Valid {
				t.Errorf("Validate = %+v, want valid", got)
			}
		})
	}
}

func TestOutToOutNeverValid(t *testing.T) {
	for _, sem := range []string{"control", "data", "condition"} {
		c := Candidate{"a", "out." + sem + ".x", "b", "out." + sem + ".y"}
		if got := Validate(c, testNodes(), nil); got.Reason != WrongDirection {
			t.Errorf("%s: got %+v, want wrong-direction", sem, got)
		}
	}
}

func TestCandidateEdge(t *testing.T) {
	e := Candidate{"a", "out.case-1", "b", "in.prev"}.Edge()
	if e.SourceHandle != "out.control.case-1" || e.TargetHandle != "in.control.prev" {
		t.Errorf("handles not normalized: %+v", e)
	}
	if e.ID != "e-a-out.control.case-1-b-in.control.prev" {
		t.Errorf("ID = %q", e.ID)
	}
}

func TestReasonMessage(t *testing.T) {
	if SourceOccupied.Message() != "source port already occupied" {
		t.Errorf("Message = %q", SourceOccupied.Message())
	}
	if Reason("other").Message() != "other" {
		t.Error("unknown reasons should echo their code")
	}
}
