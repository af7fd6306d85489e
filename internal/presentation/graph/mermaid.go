// Package graph draws trees as Mermaid flowcharts annotated with epochs.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/epochlik/pkg/ports"
)

// Overlay highlights nodes on the chart.
type Overlay struct {
	Dirty []int
}

// epochColors cycles through fills for epoch classes.
var epochColors = []string{"#e1f5fe", "#fff3e0", "#e8f5e9", "#f3e5f5", "#fffde7"}

// GenerateMermaid produces a Mermaid flowchart of tree, parent above child.
// Tips are drawn as rounded boxes and internal nodes as circles; each node is
// styled by the epoch containing it. A branch crossing one or more epoch
// boundaries is drawn dotted and labelled with the epochs it spans.
func GenerateMermaid(tree ports.Tree, names func(int) string, boundaries []float64, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	epochOf := func(age float64) int { return sort.SearchFloat64s(boundaries, age) }

	for node := tree.NodeCount() - 1; node >= 0; node-- {
		id := nodeID(node)
		label := fmt.Sprintf("%s <br/> %.4g", label(names, node), tree.Height(node))
		if node < tree.TipCount() {
			sb.WriteString(fmt.Sprintf("    %s(\"%s\")\n", id, label))
		} else {
			sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", id, label))
		}

		parent := tree.Parent(node)
		if parent < 0 {
			continue
		}
		start, end := epochOf(tree.Height(node)), epochOf(tree.Height(parent))
		if start == end {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", nodeID(parent), id))
		} else {
			sb.WriteString(fmt.Sprintf("    %s -. \"e%d→e%d\" .-> %s\n", nodeID(parent), end, start, id))
		}
	}

	sb.WriteString("\n    %% Epoch Styles\n")
	for e := 0; e <= len(boundaries); e++ {
		sb.WriteString(fmt.Sprintf("    classDef epoch%d fill:%s,stroke:#37474f,color:#000;\n", e, epochColors[e%len(epochColors)]))
	}
	for node := 0; node < tree.NodeCount(); node++ {
		sb.WriteString(fmt.Sprintf("    class %s epoch%d;\n", nodeID(node), epochOf(tree.Height(node))))
	}

	if overlay != nil && len(overlay.Dirty) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef dirty stroke:#d32f2f,stroke-width:3px;\n")
		seen := make(map[int]bool)
		for _, node := range overlay.Dirty {
			if !seen[node] && node >= 0 && node < tree.NodeCount() {
				seen[node] = true
				sb.WriteString(fmt.Sprintf("    class %s dirty;\n", nodeID(node)))
			}
		}
	}
	return sb.String()
}

func nodeID(node int) string {
	return fmt.Sprintf("n%d", node)
}

func label(names func(int) string, node int) string {
	if names != nil {
		if name := names(node); name != "" {
			return strings.ReplaceAll(name, "\"", "'")
		}
	}
	return nodeID(node)
}
