package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowkeeper/pkg/errors"
	"github.com/matzehuels/flowkeeper/pkg/flow"
	"github.com/matzehuels/flowkeeper/pkg/session"
	"github.com/matzehuels/flowkeeper/pkg/snapshot"
)

// newCommand creates the "new" command.
func (c *CLI) newCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a project with the starter flow",
		Long: `Create a project holding one graph with the starter flow: a start node, a switch
with two cases, a process step and an end node.

An existing project is left alone unless --force is given.`,
		Example: `  flowkeeper new -p checkout
  flowkeeper new -p checkout --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.withSession(ctx, c.sessionOptions(false, nil), func(s *session.Session) error {
				if s.Existed() && !force {
					return errors.New(errors.ErrCodeInvalidInput, "project %q already exists (use --force to reset it)", s.ID())
				}
				if _, err := s.Replace(ctx, snapshot.Starter(snapshot.Options{})); err != nil {
					return err
				}
				p := s.Project()
				printSuccess("Created project %s", StyleHighlight.Render(s.ID()))
				printProjectStats(p, false)
				printNextStep("Inspect it", "flowkeeper show -p "+s.ID())
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "replace an existing project")
	return cmd
}

// showCommand creates the "show" command.
func (c *CLI) showCommand() *cobra.Command {
	var (
		graphID string
		edges   bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show graphs, nodes and edges of a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.withSession(ctx, c.sessionOptions(false, nil), func(s *session.Session) error {
				g, err := graphOf(s, graphID)
				if err != nil {
					return err
				}
				p := s.Project()
				w := cmd.OutOrStdout()

				fmt.Fprintln(w, StyleTitle.Render("Project "+s.ID()))
				printReport(s.Report())
				fmt.Fprintln(w, graphTable(p))
				fmt.Fprintln(w)
				fmt.Fprintln(w, StyleTitle.Render(g.Name)+" "+StyleDim.Render(g.ID))
				fmt.Fprintln(w, nodeTable(g))
				if edges && len(g.Edges) > 0 {
					fmt.Fprintln(w, edgeTable(g))
				}
				printProjectStats(p, !s.Dirty())
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&graphID, "graph", "g", "", "graph id (default: active graph)")
	cmd.Flags().BoolVarP(&edges, "edges", "e", false, "list edges")
	return cmd
}

// migrateCommand creates the "migrate" command.
func (c *CLI) migrateCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "migrate <file>",
		Short: "Upgrade a stored project record to the current format",
		Long: `Read a project record from a file, lift legacy single-graph records into the
multi-graph format, repair missing or duplicate ids, and write the result.

Unusable records are replaced by the starter project and reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog := newProgress(c.Logger)
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", args[0])
			}

			p, report := snapshot.DecodeProject(data, snapshot.Options{})
			out, err := snapshot.EncodeProject(p)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), output, indentJSON(out)); err != nil {
				return err
			}

			prog.done("Migrated "+args[0], "graphs", len(p.Graphs), "migrated", report.Migrated, "fell_back", report.FellBack)
			printReport(report)
			if output != "" {
				printFile(output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

// exportCommand creates the "export" command.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		graphID string
		output  string
		all     bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the logic of a graph without presentation state",
		Long: `Export graphs for code generation. Positions, sizes, collapse flags and other
editor-only payload keys are removed; identities, kinds, payloads and edges are kept.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.withSession(ctx, c.sessionOptions(false, nil), func(s *session.Session) error {
				var (
					data []byte
					err  error
				)
				if all {
					data, err = json.Marshal(snapshot.ExportProjectLogic(s.Project()))
				} else {
					g, gerr := graphOf(s, graphID)
					if gerr != nil {
						return gerr
					}
					data, err = snapshot.EncodeLogic(snapshot.ExportLogic(g))
				}
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), output, indentJSON(data))
			})
		},
	}

	cmd.Flags().StringVarP(&graphID, "graph", "g", "", "graph id (default: active graph)")
	cmd.Flags().BoolVar(&all, "all", false, "export every graph as a JSON array")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

// layoutCommand creates the "layout" command.
func (c *CLI) layoutCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Export the editor layout record of a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.withSession(ctx, c.sessionOptions(false, nil), func(s *session.Session) error {
				data, err := snapshot.EncodeLayout(snapshot.CaptureLayout(s.Project()))
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), output, indentJSON(data))
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

// importCommand creates the "import" command.
func (c *CLI) importCommand() *cobra.Command {
	var layoutPath string

	cmd := &cobra.Command{
		Use:   "import <logic.json>",
		Short: "Replace a project with exported logic and an optional layout",
		Long: `Rebuild a project from a logic export (one graph or an array of graphs) and,
optionally, a layout record. Nodes without a layout entry are placed on a grid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", args[0])
			}
			graphs, err := decodeLogicFile(data)
			if err != nil {
				return err
			}

			var layout snapshot.EditorLayoutState
			if layoutPath != "" {
				raw, err := os.ReadFile(layoutPath)
				if err != nil {
					return errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", layoutPath)
				}
				if layout, err = snapshot.DecodeLayout(raw); err != nil {
					return err
				}
			}

			return c.withSession(ctx, c.sessionOptions(false, nil), func(s *session.Session) error {
				report, err := s.Replace(ctx, snapshot.HydrateProject(graphs, layout))
				if err != nil {
					return err
				}
				printSuccess("Imported %d graphs into %s", len(graphs), StyleHighlight.Render(s.ID()))
				printReport(report)
				printProjectStats(s.Project(), false)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&layoutPath, "layout", "l", "", "layout record to apply")
	return cmd
}

// =============================================================================
// Helpers
// =============================================================================

// graphOf returns graph id of the session, or the active graph.
func graphOf(s *session.Session, id string) (flow.GraphDocument, error) {
	g, ok := s.Graph(id)
	if !ok {
		return flow.GraphDocument{}, errors.New(errors.ErrCodeGraphNotFound, "graph %q not found", id)
	}
	return g, nil
}

// decodeLogicFile accepts a single logic graph or an array of them.
func decodeLogicFile(data []byte) ([]snapshot.LogicGraph, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var graphs []snapshot.LogicGraph
		if err := json.Unmarshal(trimmed, &graphs); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "decode logic export")
		}
		if len(graphs) == 0 {
			return nil, errors.New(errors.ErrCodeInvalidSnapshot, "logic export holds no graphs")
		}
		return graphs, nil
	}
	lg, err := snapshot.DecodeLogic(data)
	if err != nil {
		return nil, err
	}
	return []snapshot.LogicGraph{lg}, nil
}

// writeOutput writes data to path, or to w when path is empty.
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "write %s", path)
	}
	return nil
}

func indentJSON(data []byte) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return data
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

func printProjectStats(p flow.ProjectSnapshot, saved bool) {
	nodes, edges := 0, 0
	for _, g := range p.Graphs {
		nodes += len(g.Nodes)
		edges += len(g.Edges)
	}
	printStats(len(p.Graphs), nodes, edges, saved)
}

func printReport(r snapshot.Report) {
	if r.Migrated {
		printInfo("Migrated legacy single-graph record")
	}
	if r.RegeneratedIDs > 0 {
		printInfo("Regenerated %d ids", r.RegeneratedIDs)
	}
	if r.FellBack {
		printWarning("Record was unusable, starter project loaded: %s", r.Problem)
	}
}
