package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/epochlik/internal/presentation/graph"
	"github.com/aretw0/epochlik/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMermaid(t *testing.T) {
	tr, err := tree.ParseNewick("((A:0.5,B:0.5):1.0,(C:1.0,D:1.0):0.5);")
	require.NoError(t, err)

	tests := []struct {
		name       string
		boundaries []float64
		overlay    *graph.Overlay
		contains   []string
		excludes   []string
	}{
		{
			name: "Single Epoch",
			contains: []string{
				"graph TD",
				`n0("A <br/> 0")`,
				"((\"n6 <br/> 1.5\"))",
				"n6 --> n5",
				"class n0 epoch0;",
			},
			excludes: []string{".->", "classDef dirty"},
		},
		{
			name:       "Crossing Branch",
			boundaries: []float64{1.0},
			contains: []string{
				"classDef epoch1",
				`n6 -. "e1→e0" .-> n4`,
				"class n6 epoch1;",
				"class n5 epoch0;",
			},
		},
		{
			name:    "Dirty Overlay",
			overlay: &graph.Overlay{Dirty: []int{2, 2, 99}},
			contains: []string{
				"classDef dirty",
				"class n2 dirty;",
			},
			excludes: []string{"class n99"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := graph.GenerateMermaid(tr, tr.Name, tt.boundaries, tt.overlay)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}
			if tt.overlay != nil {
				assert.Equal(t, 1, strings.Count(out, "class n2 dirty;"), "dirty nodes are deduplicated")
			}
		})
	}
}
