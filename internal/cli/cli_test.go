package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/flowkeeper/pkg/errors"
	"github.com/matzehuels/flowkeeper/pkg/handle"
	"github.com/matzehuels/flowkeeper/pkg/snapshot"
)

func TestMain(m *testing.M) {
	stdout = io.Discard
	os.Exit(m.Run())
}

// testEnv isolates a CLI run: a config file pointing at a temporary file
// store, and no environment overrides.
func testEnv(t *testing.T) string {
	t.Helper()
	for _, k := range []string{
		"FLOWKEEPER_CONFIG", "FLOWKEEPER_STORAGE", "FLOWKEEPER_NAMESPACE", "FLOWKEEPER_DATA_DIR",
		"FLOWKEEPER_REDIS_ADDR", "FLOWKEEPER_MONGO_URI", "FLOWKEEPER_POSTGRES_DSN",
		"FLOWKEEPER_ADDR", "FLOWKEEPER_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.toml")
	body := "[storage]\nbackend = \"file\"\n\n[storage.file]\ndir = '" + filepath.Join(dir, "data") + "'\n"
	if err := os.WriteFile(cfg, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfg
}

// run executes one command line with a fresh root command.
func run(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SilenceUsage = true
	root.SilenceErrors = true
	root.SetArgs(append([]string{"--config", cfg}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, cfg string, args ...string) string {
	t.Helper()
	out, err := run(t, cfg, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func exportGraph(t *testing.T, cfg string) snapshot.LogicGraph {
	t.Helper()
	lg, err := snapshot.DecodeLogic([]byte(mustRun(t, cfg, "export")))
	if err != nil {
		t.Fatalf("decode export: %v", err)
	}
	return lg
}

func TestNewRefusesExistingProject(t *testing.T) {
	cfg := testEnv(t)
	mustRun(t, cfg, "new")

	if _, err := run(t, cfg, "new"); err == nil {
		t.Fatal("second new without --force should fail")
	}
	mustRun(t, cfg, "new", "--force")
}

func TestExportStarter(t *testing.T) {
	cfg := testEnv(t)
	mustRun(t, cfg, "new")

	lg := exportGraph(t, cfg)
	if len(lg.Nodes) != 4 || len(lg.Edges) != 3 {
		t.Fatalf("export = %d nodes, %d edges, want 4, 3", len(lg.Nodes), len(lg.Edges))
	}
}

func TestCommandsPersistBetweenRuns(t *testing.T) {
	cfg := testEnv(t)
	mustRun(t, cfg, "new")

	mustRun(t, cfg, "node", "add", "process", "--id", "extra", "--x", "400", "--y", "80")
	mustRun(t, cfg, "connect", snapshot.StarterProcess+":"+handle.DataOut, "extra:"+handle.DataIn)

	lg := exportGraph(t, cfg)
	if len(lg.Nodes) != 5 {
		t.Errorf("nodes = %d, want 5", len(lg.Nodes))
	}
	if len(lg.Edges) != 4 {
		t.Errorf("edges = %d, want 4", len(lg.Edges))
	}

	mustRun(t, cfg, "node", "rm", "extra")
	lg = exportGraph(t, cfg)
	if len(lg.Nodes) != 4 || len(lg.Edges) != 3 {
		t.Errorf("after rm: %d nodes, %d edges, want 4, 3", len(lg.Nodes), len(lg.Edges))
	}
}

func TestRejectionsBecomeErrors(t *testing.T) {
	cfg := testEnv(t)
	mustRun(t, cfg, "new")

	tests := []struct {
		name string
		args []string
	}{
		{"occupied source", []string{"connect", snapshot.StarterStart, snapshot.StarterEnd}},
		{"last case", []string{"item", "rm", snapshot.StarterSwitch, "case-1"}},
		{"unknown kind", []string{"node", "add", "teleporter"}},
		{"missing graph", []string{"graph", "rm", "nope"}},
	}

	// The starter keeps two cases, so removing one is allowed first.
	mustRun(t, cfg, "item", "rm", snapshot.StarterSwitch, "case-2")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, cfg, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if errors.GetCode(err) != errors.ErrCodeRejected {
				t.Errorf("code = %s, want %s", errors.GetCode(err), errors.ErrCodeRejected)
			}
		})
	}
}

func TestMoveJoinsGroupWithYes(t *testing.T) {
	cfg := testEnv(t)
	mustRun(t, cfg, "new")
	mustRun(t, cfg, "node", "add", "group", "--id", "grp", "--x", "1000", "--y", "0")

	mustRun(t, cfg, "move", snapshot.StarterProcess, "1010", "60", "--no")
	if parentOf(t, cfg, snapshot.StarterProcess) != "" {
		t.Fatal("--no should leave the node outside the group")
	}

	mustRun(t, cfg, "move", snapshot.StarterProcess, "1012", "62", "--yes")
	if got := parentOf(t, cfg, snapshot.StarterProcess); got != "grp" {
		t.Fatalf("parent = %q, want grp", got)
	}

	if _, err := run(t, cfg, "move", snapshot.StarterProcess, "1", "2", "--yes", "--no"); err == nil {
		t.Error("--yes and --no together should fail")
	}
}

func parentOf(t *testing.T, cfg, id string) string {
	t.Helper()
	layout, err := snapshot.DecodeLayout([]byte(mustRun(t, cfg, "layout")))
	if err != nil {
		t.Fatalf("decode layout: %v", err)
	}
	for _, g := range layout.Graphs {
		for _, n := range g.Nodes {
			if n.ID == id {
				return n.ParentID
			}
		}
	}
	t.Fatalf("node %s not in layout", id)
	return ""
}

func TestExportImportRoundTrip(t *testing.T) {
	cfg := testEnv(t)
	dir := t.TempDir()
	logic := filepath.Join(dir, "logic.json")
	layout := filepath.Join(dir, "layout.json")

	mustRun(t, cfg, "new")
	mustRun(t, cfg, "move", snapshot.StarterEnd, "900", "40")
	mustRun(t, cfg, "export", "--all", "-o", logic)
	mustRun(t, cfg, "layout", "-o", layout)

	mustRun(t, cfg, "-p", "copy", "import", logic, "-l", layout)

	raw, err := os.ReadFile(layout)
	if err != nil {
		t.Fatal(err)
	}
	copied := mustRun(t, cfg, "-p", "copy", "layout")
	var want, got snapshot.EditorLayoutState
	if err := json.Unmarshal(raw, &want); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(copied), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Graphs) != len(want.Graphs) {
		t.Fatalf("graphs = %d, want %d", len(got.Graphs), len(want.Graphs))
	}
	for _, n := range got.Graphs[0].Nodes {
		if n.ID == snapshot.StarterEnd && (n.X != 900 || n.Y != 40) {
			t.Errorf("end position = (%v, %v), want (900, 40)", n.X, n.Y)
		}
	}
}

func TestMigrateLegacyFile(t *testing.T) {
	cfg := testEnv(t)
	legacy := filepath.Join(t.TempDir(), "legacy.json")
	body := `{"nodes":[{"id":"a","type":"start","position":{"x":0,"y":0}}],"edges":[]}`
	if err := os.WriteFile(legacy, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	out := mustRun(t, cfg, "migrate", legacy)
	p, report := snapshot.DecodeProject([]byte(out), snapshot.Options{})
	if report.FellBack {
		t.Fatalf("migrated output did not decode: %s", report.Problem)
	}
	if len(p.Graphs) != 1 || len(p.Graphs[0].Nodes) != 1 {
		t.Errorf("migrated project = %+v", p)
	}
}

func TestRenderDOT(t *testing.T) {
	cfg := testEnv(t)
	mustRun(t, cfg, "new")

	out := mustRun(t, cfg, "render", "-f", "dot")
	if !strings.HasPrefix(out, "digraph G {") {
		t.Errorf("render output = %q", out)
	}
}

func TestParseCandidate(t *testing.T) {
	tests := []struct {
		source, target string
		wantSH, wantTH string
	}{
		{"a", "b", handle.ControlOut, handle.ControlIn},
		{"a:" + handle.DataOut, "b:" + handle.DataIn, handle.DataOut, handle.DataIn},
		{"a:out.control.case-1", "b", "out.control.case-1", handle.ControlIn},
	}
	for _, tt := range tests {
		c := parseCandidate(tt.source, tt.target)
		if c.Source != "a" || c.Target != "b" {
			t.Errorf("parseCandidate(%q, %q) nodes = %q, %q", tt.source, tt.target, c.Source, c.Target)
		}
		if c.SourceHandle != tt.wantSH || c.TargetHandle != tt.wantTH {
			t.Errorf("parseCandidate(%q, %q) handles = %q, %q, want %q, %q",
				tt.source, tt.target, c.SourceHandle, c.TargetHandle, tt.wantSH, tt.wantTH)
		}
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"42", float64(42)},
		{"true", true},
		{`"quoted"`, "quoted"},
		{"plain text", "plain text"},
	}
	for _, tt := range tests {
		if got := parseValue(tt.in); got != tt.want {
			t.Errorf("parseValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
	if got, ok := parseValue(`{"a":1}`).(map[string]any); !ok || got["a"] != float64(1) {
		t.Errorf("parseValue(object) = %#v", got)
	}
}

func TestAnswerFlag(t *testing.T) {
	if answerFlag(false, false) != nil {
		t.Error("no flags should ask")
	}
	if a := answerFlag(true, false); a == nil || !*a {
		t.Error("--yes should confirm")
	}
	if a := answerFlag(false, true); a == nil || *a {
		t.Error("--no should decline")
	}
}

func TestDecodeLogicFile(t *testing.T) {
	single := `{"id":"g1","name":"One","nodes":[],"edges":[]}`
	many := `[` + single + `,{"id":"g2","name":"Two","nodes":[],"edges":[]}]`

	graphs, err := decodeLogicFile([]byte(single))
	if err != nil || len(graphs) != 1 {
		t.Fatalf("single: %v, %d graphs", err, len(graphs))
	}
	graphs, err = decodeLogicFile([]byte("  " + many))
	if err != nil || len(graphs) != 2 || graphs[1].ID != "g2" {
		t.Fatalf("array: %v, %+v", err, graphs)
	}
	if _, err := decodeLogicFile([]byte("[]")); err == nil {
		t.Error("empty array should fail")
	}
}

func TestConfirmModel(t *testing.T) {
	m := ConfirmModel{Message: "Add?"}
	if !strings.Contains(m.View(), "Add?") {
		t.Errorf("View() = %q", m.View())
	}
}

func TestCompletion(t *testing.T) {
	cfg := testEnv(t)
	mustRun(t, cfg, "new")
	mustRun(t, cfg, "node", "add", "group", "--id", "grp")

	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	c.configPath = cfg
	move, _, err := root.Find([]string{"move"})
	if err != nil {
		t.Fatal(err)
	}
	move.SetContext(context.Background())

	got, _ := c.completeNodes(1, false)(move, nil, "sw")
	if len(got) != 1 || !strings.HasPrefix(got[0], snapshot.StarterSwitch+"\t") {
		t.Errorf("nodes = %q, want only %s", got, snapshot.StarterSwitch)
	}
	if got, _ := c.completeNodes(1, false)(move, []string{"x"}, ""); got != nil {
		t.Errorf("second argument completed %q", got)
	}
	got, _ = c.completeNodes(1, true)(move, nil, "")
	if len(got) != 1 || !strings.HasPrefix(got[0], "grp\t") {
		t.Errorf("containers = %q, want grp", got)
	}

	kinds, _ := completeKinds(move, nil, "proc")
	if len(kinds) == 0 || !strings.HasPrefix(kinds[0], "process\t") {
		t.Errorf("kinds = %q", kinds)
	}
}

func TestCompletionWithoutProjectCreatesNothing(t *testing.T) {
	cfg := testEnv(t)
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	c.configPath = cfg
	root.SetContext(context.Background())

	if got, _ := c.completeGraphs(root, nil, ""); got != nil {
		t.Errorf("graphs = %q, want none", got)
	}
	if _, err := run(t, cfg, "new"); err != nil {
		t.Errorf("new after completion: %v", err)
	}
}
