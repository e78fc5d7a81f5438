package cli

import (
	"testing"
)

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty defaults to svg", "", []string{"svg"}},
		{"single format", "dot", []string{"dot"}},
		{"multiple formats", "dot,svg", []string{"dot", "svg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFormats(tt.input)
			if len(got) != len(tt.want) {
				t.Errorf("parseFormats(%q) length = %d, want %d", tt.input, len(got), len(tt.want))
				return
			}
			for i, v := range got {
				if v != tt.want[i] {
					t.Errorf("parseFormats(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
				}
			}
		})
	}
}

func TestValidateFormats(t *testing.T) {
	tests := []struct {
		name    string
		formats []string
		wantErr bool
	}{
		{"valid svg", []string{"svg"}, false},
		{"valid dot", []string{"dot"}, false},
		{"valid both", []string{"dot", "svg"}, false},
		{"invalid format", []string{"png"}, true},
		{"mixed valid invalid", []string{"svg", "pdf"}, true},
		{"empty slice", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFormats(tt.formats)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateFormats(%v) error = %v, wantErr %v", tt.formats, err, tt.wantErr)
			}
		})
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, want string
	}{
		{"out/flow.svg", "out/flow"},
		{"out/flow.dot", "out/flow"},
		{"out/flow", "out/flow"},
		{"out/flow.v2", "out/flow.v2"},
	}
	for _, tt := range tests {
		if got := basePath(tt.output); got != tt.want {
			t.Errorf("basePath(%q) = %q, want %q", tt.output, got, tt.want)
		}
	}
}
