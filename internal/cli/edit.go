package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowkeeper/pkg/command"
	"github.com/matzehuels/flowkeeper/pkg/connect"
	"github.com/matzehuels/flowkeeper/pkg/errors"
	"github.com/matzehuels/flowkeeper/pkg/flow"
	"github.com/matzehuels/flowkeeper/pkg/handle"
	"github.com/matzehuels/flowkeeper/pkg/mutate"
	"github.com/matzehuels/flowkeeper/pkg/session"
)

// dispatch applies cmd and turns a rejection into a REJECTED error.
func dispatch(ctx context.Context, s *session.Session, cmd command.Command) (command.Outcome, error) {
	out, err := s.Dispatch(ctx, cmd)
	if err != nil {
		return out, err
	}
	if !out.Applied {
		return out, errors.New(errors.ErrCodeRejected, "%s", out.Hint)
	}
	return out, nil
}

// runCommand opens the project, dispatches the command built by build, and
// prints success.
func (c *CLI) runCommand(cmd *cobra.Command, build func(*session.Session) command.Command, success func(command.Outcome)) error {
	ctx := cmd.Context()
	return c.withSession(ctx, c.sessionOptions(false, nil), func(s *session.Session) error {
		out, err := dispatch(ctx, s, build(s))
		if err != nil {
			return err
		}
		success(out)
		return nil
	})
}

// =============================================================================
// Connections
// =============================================================================

// connectCommand creates the "connect" command.
func (c *CLI) connectCommand() *cobra.Command {
	var graphID string

	cmd := &cobra.Command{
		Use:   "connect <source>[:handle] <target>[:handle]",
		Short: "Connect an output port to an input port",
		Long: `Connect two nodes. Handles default to the control ports (out.control.next on the
source, in.control.prev on the target). Legacy handle names such as out.case-1 are
accepted and stored in canonical form.

The connection is refused when a handle is malformed or points the wrong way,
when the two ports carry different semantics, or when a single-connection
port is already occupied.`,
		Example: `  flowkeeper connect start-1 switch-1
  flowkeeper connect switch-1:out.control.case-2 end-1
  flowkeeper connect compare-1:out.condition.result guard-1:in.condition.test`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cand := parseCandidate(args[0], args[1])
			return c.runCommand(cmd,
				func(*session.Session) command.Command {
					return command.Connect{Graph: graphID, Candidate: cand}
				},
				func(command.Outcome) {
					e := cand.Edge()
					printSuccess("Connected %s %s %s", e.Source, iconArrow, e.Target)
					printDetail("%s", e.ID)
				})
		},
	}

	cmd.Flags().StringVarP(&graphID, "graph", "g", "", "graph id (default: active graph)")
	cmd.ValidArgsFunction = c.completeNodes(2, false)
	return cmd
}

// disconnectCommand creates the "disconnect" command.
func (c *CLI) disconnectCommand() *cobra.Command {
	var graphID string

	cmd := &cobra.Command{
		Use:   "disconnect <edge-id>",
		Short: "Remove an edge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCommand(cmd,
				func(*session.Session) command.Command {
					return command.Disconnect{Graph: graphID, EdgeID: args[0]}
				},
				func(command.Outcome) { printSuccess("Removed edge %s", args[0]) })
		},
	}

	cmd.Flags().StringVarP(&graphID, "graph", "g", "", "graph id (default: active graph)")
	return cmd
}

func parseCandidate(source, target string) connect.Candidate {
	src, srcHandle, ok := strings.Cut(source, ":")
	if !ok {
		srcHandle = handle.ControlOut
	}
	dst, dstHandle, ok := strings.Cut(target, ":")
	if !ok {
		dstHandle = handle.ControlIn
	}
	return connect.Candidate{Source: src, SourceHandle: srcHandle, Target: dst, TargetHandle: dstHandle}
}

// =============================================================================
// Gestures
// =============================================================================

// moveCommand creates the "move" command.
func (c *CLI) moveCommand() *cobra.Command {
	var (
		graphID string
		yes, no bool
	)

	cmd := &cobra.Command{
		Use:   "move <node> <x> <y>",
		Short: "Move a node and settle it",
		Long: `Move a node to a canvas position as a completed drag. Moving a group box moves
its members with it and refits the box. A node dropped inside a group box it
does not belong to asks whether it should join the group.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, y, err := parsePair(args[1], args[2])
			if err != nil {
				return err
			}
			changes := []mutate.NodeChange{mutate.Move(args[0], x, y, false)}
			return c.applyChanges(cmd, graphID, answerFlag(yes, no), changes)
		},
	}

	cmd.Flags().StringVarP(&graphID, "graph", "g", "", "graph id (default: active graph)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "join any group the node is dropped into")
	cmd.Flags().BoolVar(&no, "no", false, "never join a group on drop")
	cmd.MarkFlagsMutuallyExclusive("yes", "no")
	cmd.ValidArgsFunction = c.completeNodes(1, false)
	return cmd
}

// applyChanges runs a gesture batch and reports what the engine did.
func (c *CLI) applyChanges(cmd *cobra.Command, graphID string, answer *bool, changes []mutate.NodeChange) error {
	ctx := cmd.Context()
	return c.withSession(ctx, c.sessionOptions(true, answer), func(s *session.Session) error {
		res, err := s.ApplyNodeChanges(ctx, graphID, changes)
		if err != nil {
			return err
		}
		if !res.Changed() {
			printInfo("Nothing changed")
			return nil
		}
		for _, id := range res.Moved {
			printSuccess("Moved %s", id)
		}
		for _, a := range res.Attached {
			printSuccess("%s joined %s", a.NodeID, a.ContainerID)
		}
		for _, a := range res.Declined {
			printDetail("%s stays outside %s", a.NodeID, a.ContainerID)
		}
		if len(res.PrunedEdges) > 0 {
			printDetail("Removed %d edges", len(res.PrunedEdges))
		}
		if res.LayoutChanged {
			printDetail("Group boxes refitted")
		}
		return nil
	})
}

func answerFlag(yes, no bool) *bool {
	switch {
	case yes:
		return &yes
	case no:
		f := false
		return &f
	}
	return nil
}

func parsePair(a, b string) (float64, float64, error) {
	x, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return 0, 0, errors.New(errors.ErrCodeInvalidInput, "invalid number %q", a)
	}
	y, err := strconv.ParseFloat(b, 64)
	if err != nil {
		return 0, 0, errors.New(errors.ErrCodeInvalidInput, "invalid number %q", b)
	}
	return x, y, nil
}

// =============================================================================
// Nodes
// =============================================================================

// nodeCommand creates the "node" command group.
func (c *CLI) nodeCommand() *cobra.Command {
	var graphID string

	cmd := &cobra.Command{
		Use:   "node",
		Short: "Add, remove, resize and edit nodes",
	}
	cmd.PersistentFlags().StringVarP(&graphID, "graph", "g", "", "graph id (default: active graph)")

	var (
		id   string
		x, y float64
	)
	add := &cobra.Command{
		Use:     "add <kind>",
		Short:   "Add a node with the default payload of its kind",
		Example: "  flowkeeper node add delay --x 400 --y 80",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCommand(cmd,
				func(*session.Session) command.Command {
					return command.AddNode{Graph: graphID, Kind: flow.Kind(args[0]), ID: id, Position: flow.Position{X: x, Y: y}}
				},
				func(out command.Outcome) { printSuccess("Added %s %s", args[0], StyleHighlight.Render(out.Created)) })
		},
	}
	add.Flags().StringVar(&id, "id", "", "node id (default: generated)")
	add.Flags().Float64Var(&x, "x", 0, "x position")
	add.Flags().Float64Var(&y, "y", 0, "y position")

	rm := &cobra.Command{
		Use:     "rm <node>...",
		Aliases: []string{"remove"},
		Short:   "Remove nodes and their edges",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCommand(cmd,
				func(*session.Session) command.Command {
					return command.DeleteNodes{Graph: graphID, IDs: args}
				},
				func(out command.Outcome) {
					printSuccess("Removed %s", strings.Join(args, ", "))
					if n := len(out.RemovedEdges); n > 0 {
						printDetail("Removed %d edges", n)
					}
				})
		},
	}

	set := &cobra.Command{
		Use:   "set <node> <field> <value>",
		Short: "Set a payload field (JSON values are decoded)",
		Example: `  flowkeeper node set process-1 label "Charge card"
  flowkeeper node set delay-1 ms 250`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCommand(cmd,
				func(*session.Session) command.Command {
					return command.ChangeField{Graph: graphID, Node: args[0], Field: args[1], Value: parseValue(args[2])}
				},
				func(command.Outcome) { printSuccess("Set %s.%s", args[0], args[1]) })
		},
	}

	resize := &cobra.Command{
		Use:   "resize <node> <width> <height>",
		Short: "Resize a node as a completed resize gesture",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, h, err := parsePair(args[1], args[2])
			if err != nil {
				return err
			}
			return c.applyChanges(cmd, graphID, nil, []mutate.NodeChange{mutate.Resize(args[0], w, h, false)})
		},
	}

	add.ValidArgsFunction = completeKinds
	rm.ValidArgsFunction = c.completeNodes(0, false)
	set.ValidArgsFunction = c.completeNodes(1, false)
	resize.ValidArgsFunction = c.completeNodes(1, false)
	cmd.AddCommand(add, rm, set, resize)
	return cmd
}

// parseValue decodes s as JSON, falling back to the raw string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

// =============================================================================
// Items
// =============================================================================

// itemCommand creates the "item" command group.
func (c *CLI) itemCommand() *cobra.Command {
	var graphID string

	cmd := &cobra.Command{
		Use:   "item",
		Short: "Add or remove cases, branches and status codes",
		Long: `Nodes such as switch, parallel and httpResponse carry an item list, and every
item owns one output port. Removing an item removes the edges bound to its port.
The last item of a node cannot be removed.`,
	}
	cmd.PersistentFlags().StringVarP(&graphID, "graph", "g", "", "graph id (default: active graph)")

	add := &cobra.Command{
		Use:   "add <node> [label]",
		Short: "Append an item",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := ""
			if len(args) == 2 {
				label = args[1]
			}
			return c.runCommand(cmd,
				func(*session.Session) command.Command {
					return command.AddItem{Graph: graphID, Node: args[0], Label: label}
				},
				func(out command.Outcome) { printSuccess("Added item %s to %s", out.Created, args[0]) })
		},
	}

	rm := &cobra.Command{
		Use:     "rm <node> <item>",
		Aliases: []string{"remove"},
		Short:   "Remove an item and the edges of its port",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCommand(cmd,
				func(*session.Session) command.Command {
					return command.RemoveItem{Graph: graphID, Node: args[0], Item: args[1]}
				},
				func(out command.Outcome) {
					printSuccess("Removed item %s from %s", args[1], args[0])
					if n := len(out.RemovedEdges); n > 0 {
						printDetail("Removed %d edges", n)
					}
				})
		},
	}

	add.ValidArgsFunction = c.completeNodes(1, false)
	rm.ValidArgsFunction = c.completeNodes(1, false)
	cmd.AddCommand(add, rm)
	return cmd
}

// =============================================================================
// Groups
// =============================================================================

// groupCommand creates the "group" command group.
func (c *CLI) groupCommand() *cobra.Command {
	var graphID string

	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage group box membership",
	}
	cmd.PersistentFlags().StringVarP(&graphID, "graph", "g", "", "graph id (default: active graph)")

	join := &cobra.Command{
		Use:   "join <node> <group>",
		Short: "Make a node a member of a group box",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCommand(cmd,
				func(*session.Session) command.Command {
					return command.JoinGroup{Graph: graphID, Node: args[0], Container: args[1]}
				},
				func(command.Outcome) { printSuccess("%s joined %s", args[0], args[1]) })
		},
	}

	leave := &cobra.Command{
		Use:   "leave <node>",
		Short: "Release a node from its group box",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCommand(cmd,
				func(*session.Session) command.Command {
					return command.LeaveGroup{Graph: graphID, Node: args[0]}
				},
				func(command.Outcome) { printSuccess("%s left its group", args[0]) })
		},
	}

	dissolve := &cobra.Command{
		Use:   "dissolve <group>",
		Short: "Remove a group box and keep its members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCommand(cmd,
				func(*session.Session) command.Command {
					return command.DissolveGroup{Graph: graphID, Container: args[0]}
				},
				func(command.Outcome) { printSuccess("Dissolved %s", args[0]) })
		},
	}

	join.ValidArgsFunction = c.completeNodes(2, false)
	leave.ValidArgsFunction = c.completeNodes(1, false)
	dissolve.ValidArgsFunction = c.completeNodes(1, true)
	cmd.AddCommand(join, leave, dissolve)
	return cmd
}

// =============================================================================
// Graphs
// =============================================================================

// graphCommand creates the "graph" command group.
func (c *CLI) graphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Manage the graphs of a project",
	}

	var id string
	add := &cobra.Command{
		Use:   "add [name]",
		Short: "Add an empty graph and make it active",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return c.runCommand(cmd,
				func(*session.Session) command.Command { return command.AddGraph{ID: id, Name: name} },
				func(out command.Outcome) { printSuccess("Added graph %s", StyleHighlight.Render(out.Created)) })
		},
	}
	add.Flags().StringVar(&id, "id", "", "graph id (default: generated)")

	rename := &cobra.Command{
		Use:   "rename <graph> <name>",
		Short: "Rename a graph",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCommand(cmd,
				func(*session.Session) command.Command { return command.RenameGraph{Graph: args[0], Name: args[1]} },
				func(command.Outcome) { printSuccess("Renamed %s to %q", args[0], args[1]) })
		},
	}

	rm := &cobra.Command{
		Use:     "rm <graph>",
		Aliases: []string{"remove"},
		Short:   "Delete a graph (the last graph cannot be deleted)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCommand(cmd,
				func(*session.Session) command.Command { return command.DeleteGraph{Graph: args[0]} },
				func(command.Outcome) { printSuccess("Deleted graph %s", args[0]) })
		},
	}

	use := &cobra.Command{
		Use:   "use <graph>",
		Short: "Switch the active graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCommand(cmd,
				func(*session.Session) command.Command { return command.SetActiveGraph{Graph: args[0]} },
				func(command.Outcome) { printSuccess("Active graph is %s", args[0]) })
		},
	}

	ls := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List graphs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.withSession(ctx, c.sessionOptions(false, nil), func(s *session.Session) error {
				fmt.Fprintln(cmd.OutOrStdout(), graphTable(s.Project()))
				return nil
			})
		},
	}

	rename.ValidArgsFunction = c.completeGraphs
	rm.ValidArgsFunction = c.completeGraphs
	use.ValidArgsFunction = c.completeGraphs
	cmd.AddCommand(add, rename, rm, use, ls)
	return cmd
}
