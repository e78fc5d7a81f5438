package render

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/flowkeeper/pkg/catalog"
	"github.com/matzehuels/flowkeeper/pkg/flow"
	"github.com/matzehuels/flowkeeper/pkg/handle"
	"github.com/matzehuels/flowkeeper/pkg/snapshot"
)

// Options configures DOT generation.
type Options struct {
	// Detailed adds the node kind and scalar payload fields to labels.
	Detailed bool

	// LeftToRight lays the diagram out horizontally (rankdir=LR).
	LeftToRight bool
}

var edgeStyles = map[handle.Semantic]string{
	handle.SemanticControl:   "solid",
	handle.SemanticData:      "dashed",
	handle.SemanticCondition: "dotted",
}

// ToDOT converts a graph document to Graphviz DOT source.
func ToDOT(g flow.GraphDocument, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	if opts.LeftToRight {
		buf.WriteString("  rankdir=LR;\n")
	} else {
		buf.WriteString("  rankdir=TB;\n")
	}
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  compound=true;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	members := map[string][]flow.Node{}
	for _, n := range g.Nodes {
		if n.GroupContainerID != "" {
			members[n.GroupContainerID] = append(members[n.GroupContainerID], n)
		}
	}

	for _, n := range g.Nodes {
		switch {
		case n.IsContainer():
			writeCluster(&buf, n, members[n.ID], opts)
		case n.GroupContainerID == "":
			writeNode(&buf, "  ", n, opts)
		}
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		src, srcOK := g.Node(e.Source)
		tgt, tgtOK := g.Node(e.Target)
		if !srcOK || !tgtOK || src.IsContainer() || tgt.IsContainer() {
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.Source, e.Target, strings.Join(edgeAttrs(*src, e), ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeCluster(buf *bytes.Buffer, c flow.Node, members []flow.Node, opts Options) {
	fmt.Fprintf(buf, "  subgraph %q {\n", "cluster_"+c.ID)
	fmt.Fprintf(buf, "    label=%q;\n", c.Label())
	buf.WriteString("    style=\"rounded,dashed\";\n")
	buf.WriteString("    color=grey50;\n")
	if len(members) == 0 {
		// Graphviz drops empty clusters; an invisible point keeps the box.
		fmt.Fprintf(buf, "    %q [shape=point, style=invis];\n", c.ID)
	}
	for _, m := range members {
		writeNode(buf, "    ", m, opts)
	}
	buf.WriteString("  }\n")
}

func writeNode(buf *bytes.Buffer, indent string, n flow.Node, opts Options) {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, opts.Detailed))}
	if p, ok := catalog.Lookup(n.Type); ok {
		switch p.Category {
		case catalog.CategoryLogic:
			attrs = append(attrs, "fillcolor=\"#fff4d6\"")
		case catalog.CategoryData:
			attrs = append(attrs, "fillcolor=\"#e3f1ff\"")
		case catalog.CategoryIO:
			attrs = append(attrs, "fillcolor=\"#e6f7ea\"")
		case catalog.CategoryAnnotate:
			attrs = append(attrs, "shape=note", "fillcolor=\"#fffbe0\"")
		}
	} else {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	}
	fmt.Fprintf(buf, "%s%q [%s];\n", indent, n.ID, strings.Join(attrs, ", "))
}

func fmtLabel(n flow.Node, detailed bool) string {
	label := n.Label()
	if !detailed {
		return label
	}

	parts := []string{string(n.Type)}
	for _, k := range slices.Sorted(maps.Keys(n.Data)) {
		if k == flow.DataLabel || snapshot.IsEditorOnly(k) {
			continue
		}
		switch v := n.Data[k].(type) {
		case string, float64, bool, int:
			parts = append(parts, fmt.Sprintf("%s: %v", k, v))
		}
	}
	return label + "\n" + strings.Join(parts, "\n")
}

func edgeAttrs(src flow.Node, e flow.Edge) []string {
	h, ok := handle.Parse(e.SourceHandle)
	if !ok {
		return []string{"style=solid"}
	}
	attrs := []string{"style=" + edgeStyles[h.Semantic]}
	if label := edgeLabel(src, h); label != "" {
		attrs = append(attrs, fmt.Sprintf("label=%q", label))
	}
	return attrs
}

// edgeLabel names the source port. The default control and data ports stay
// unlabeled.
func edgeLabel(src flow.Node, h handle.Handle) string {
	if list, items, ok := catalog.ItemsOf(src); ok {
		if it, ok := list.Owner(items, h.String()); ok {
			if it.Label != "" {
				return it.Label
			}
			return it.ID
		}
	}
	switch h.String() {
	case handle.ControlOut, handle.DataOut:
		return ""
	}
	return h.Suffix
}
