package alignment_test

import (
	"testing"

	"github.com/aretw0/epochlik/pkg/alignment"
	"github.com/aretw0/epochlik/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompress(t *testing.T) {
	p, err := alignment.Compress(alignment.Nucleotide(),
		[]string{"a", "b", "c"},
		[]string{"AACGT-", "AACGTA", "AACCTA"})
	require.NoError(t, err)

	assert.Equal(t, 4, p.StateCount())
	assert.Equal(t, 3, p.TaxonCount())
	assert.Equal(t, 5, p.PatternCount())
	assert.Equal(t, 6, p.SiteCount())
	assert.Equal(t, []float64{2, 1, 1, 1, 1}, p.Weights())

	assert.Equal(t, []int{0, 1, 2, 3, 4}, p.States(0))
	assert.Equal(t, []int{0, 1, 1, 3, 0}, p.States(2))
	assert.Equal(t, []ports.ConstantPattern{
		{Pattern: 0, State: 0},
		{Pattern: 1, State: 1},
		{Pattern: 3, State: 3},
	}, p.ConstantPatterns())

	for taxon := 0; taxon < 3; taxon++ {
		assert.Nil(t, p.TipPartials(taxon), "gaps alone stay compact")
	}
}

func TestCompress_PartialAmbiguity(t *testing.T) {
	p, err := alignment.Compress(alignment.Nucleotide(), []string{"a", "b"}, []string{"ar", "AG"})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 4}, p.States(0))
	assert.Equal(t, []float64{1, 0, 0, 0, 1, 0, 1, 0}, p.TipPartials(0))
	assert.Nil(t, p.TipPartials(1))
	assert.Len(t, p.ConstantPatterns(), 1)
}

func TestCompress_Errors(t *testing.T) {
	_, err := alignment.Compress(alignment.Nucleotide(), []string{"a", "b"}, []string{"AC", "A"})
	assert.ErrorIs(t, err, alignment.ErrLengthMismatch)

	_, err = alignment.Compress(alignment.Nucleotide(), []string{"a", "b"}, []string{"AC", "AZ"})
	assert.ErrorIs(t, err, alignment.ErrUnknownSymbol)

	_, err = alignment.Compress(alignment.Binary(), []string{"a"}, []string{"012"})
	assert.ErrorIs(t, err, alignment.ErrUnknownSymbol)
}

func TestPatterns_Reorder(t *testing.T) {
	p, err := alignment.Compress(alignment.Binary(), []string{"x", "y"}, []string{"01?", "110"})
	require.NoError(t, err)

	require.NoError(t, p.Reorder([]string{"y", "x"}))
	assert.Equal(t, []string{"y", "x"}, p.Taxa())
	assert.Equal(t, []int{1, 1, 0}, p.States(0))
	assert.Equal(t, []int{0, 1, 2}, p.States(1))

	assert.Error(t, p.Reorder([]string{"y", "z"}))
	assert.Error(t, p.Reorder([]string{"y"}))
}

func TestByName(t *testing.T) {
	a, err := alignment.ByName("dna")
	require.NoError(t, err)
	assert.Equal(t, "nucleotide", a.Name())

	b, err := alignment.ByName("binary")
	require.NoError(t, err)
	assert.Equal(t, 2, b.StateCount())

	_, err = alignment.ByName("protein")
	assert.Error(t, err)
}
