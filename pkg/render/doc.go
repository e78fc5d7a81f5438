// Package render draws a graph document as a Graphviz diagram.
//
// # Overview
//
// [ToDOT] turns a [flow.GraphDocument] into DOT source. Group containers
// become "cluster" subgraphs holding their members, so Graphviz draws the
// membership boxes the editor shows. Edges are styled by handle semantic:
//
//   - control: solid
//   - data: dashed
//   - condition: dotted
//
// and labeled with the handle suffix, or with the item label when the source
// handle belongs to a case, branch or status-code item.
//
// [RenderSVG] renders DOT in process with [github.com/goccy/go-graphviz].
//
//	dot := render.ToDOT(g, render.Options{})
//	svg, err := render.RenderSVG(ctx, dot)
//
// The DOT is a structural view. Editor positions are not used; Graphviz
// computes its own layout.
package render
