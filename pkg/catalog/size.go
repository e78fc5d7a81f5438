package catalog

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/matzehuels/flowkeeper/pkg/flow"
)

// Text metrics used to estimate annotation boxes.
const (
	charWidth   = 7.5
	lineHeight  = 20.0
	textPadX    = 24.0
	textPadY    = 20.0
	maxTextW    = 480.0
	minTextW    = 120.0
	minTextH    = 40.0
	minStickyW  = 200.0
	minStickyH  = 140.0
	maxStickyW  = 360.0
	maxEstimate = 1200.0
)

// NodeSize returns the box of n: its explicit size when set, otherwise the
// catalog's estimate for its kind.
func NodeSize(n flow.Node) flow.Size {
	if n.Size != nil && n.Size.Width > 0 && n.Size.Height > 0 {
		return *n.Size
	}
	return EstimateSize(n)
}

// EstimateSize derives a box from the node's kind. Text and sticky nodes are
// sized from the length and line count of their "text" payload; others use
// the kind's fixed size or [DefaultNodeSize].
func EstimateSize(n flow.Node) flow.Size {
	p, ok := profiles[n.Type]
	if !ok {
		return DefaultNodeSize
	}
	switch p.Sizing {
	case SizeText:
		return estimateText(textOf(n), minTextW, maxTextW, minTextH)
	case SizeSticky:
		return estimateText(textOf(n), minStickyW, maxStickyW, minStickyH)
	}
	if p.Size.Width > 0 && p.Size.Height > 0 {
		return p.Size
	}
	return DefaultNodeSize
}

func textOf(n flow.Node) string {
	s, _ := n.Data[flow.DataText].(string)
	return s
}

// estimateText wraps each line at the maximum width and sums line heights.
func estimateText(text string, minW, maxW, minH float64) flow.Size {
	lines := strings.Split(text, "\n")
	perLine := math.Floor((maxW - textPadX) / charWidth)

	longest := 0
	rows := 0
	for _, line := range lines {
		n := utf8.RuneCountInString(line)
		if n > longest {
			longest = n
		}
		rows += int(math.Max(1, math.Ceil(float64(n)/perLine)))
	}

	w := math.Min(maxW, math.Max(minW, float64(longest)*charWidth+textPadX))
	h := math.Min(maxEstimate, math.Max(minH, float64(rows)*lineHeight+textPadY))
	return flow.Size{Width: w, Height: h}
}
