package alignment

import (
	"fmt"
	"strings"

	"github.com/aretw0/epochlik/pkg/ports"
)

// Patterns is a compressed alignment: identical columns are merged and weighted
// by their multiplicity.
type Patterns struct {
	stateCount int
	taxa       []string
	states     [][]int
	partials   [][]float64
	weights    []float64
	constant   []ports.ConstantPattern
}

// Compress builds patterns from aligned sequences, one per taxon. Patterns keep
// the order in which they first appear.
func Compress(alphabet *Alphabet, taxa, sequences []string) (*Patterns, error) {
	if len(taxa) != len(sequences) {
		return nil, fmt.Errorf("%d taxa but %d sequences", len(taxa), len(sequences))
	}
	if len(sequences) == 0 {
		return nil, fmt.Errorf("alignment has no sequences")
	}
	rows := make([][]rune, len(sequences))
	for i, s := range sequences {
		rows[i] = []rune(strings.ToUpper(strings.TrimSpace(s)))
		if len(rows[i]) != len(rows[0]) {
			return nil, fmt.Errorf("%w: %s has %d sites, %s has %d",
				ErrLengthMismatch, taxa[i], len(rows[i]), taxa[0], len(rows[0]))
		}
	}

	n := alphabet.StateCount()
	p := &Patterns{
		stateCount: n,
		taxa:       append([]string(nil), taxa...),
		states:     make([][]int, len(taxa)),
	}
	sets := make([][][]int, len(taxa))
	seen := map[string]int{}
	column := make([]rune, len(rows))
	for site := range rows[0] {
		for t := range rows {
			column[t] = rows[t][site]
		}
		key := string(column)
		if idx, ok := seen[key]; ok {
			p.weights[idx]++
			continue
		}
		seen[key] = len(p.weights)
		p.weights = append(p.weights, 1)
		for t, symbol := range column {
			set, err := alphabet.States(symbol)
			if err != nil {
				return nil, fmt.Errorf("taxon %s site %d: %w", taxa[t], site+1, err)
			}
			state := n
			if len(set) == 1 {
				state = set[0]
			}
			p.states[t] = append(p.states[t], state)
			sets[t] = append(sets[t], set)
		}
	}

	for t := range taxa {
		p.partials = append(p.partials, tipPartials(sets[t], n))
	}
	p.findConstant()
	return p, nil
}

// tipPartials returns indicator vectors when some site is partially ambiguous,
// or nil when every site is exact or fully unknown.
func tipPartials(sets [][]int, n int) []float64 {
	partial := false
	for _, set := range sets {
		if len(set) > 1 && len(set) < n {
			partial = true
			break
		}
	}
	if !partial {
		return nil
	}
	out := make([]float64, len(sets)*n)
	for i, set := range sets {
		for _, s := range set {
			out[i*n+s] = 1
		}
	}
	return out
}

func (p *Patterns) findConstant() {
	for i := range p.weights {
		state := p.states[0][i]
		constant := state < p.stateCount
		for t := 1; t < len(p.states) && constant; t++ {
			constant = p.states[t][i] == state
		}
		if constant {
			p.constant = append(p.constant, ports.ConstantPattern{Pattern: i, State: state})
		}
	}
}

func (p *Patterns) StateCount() int { return p.stateCount }

func (p *Patterns) PatternCount() int { return len(p.weights) }

func (p *Patterns) TaxonCount() int { return len(p.taxa) }

func (p *Patterns) Taxa() []string { return p.taxa }

func (p *Patterns) Weights() []float64 { return p.weights }

func (p *Patterns) States(taxon int) []int { return p.states[taxon] }

func (p *Patterns) TipPartials(taxon int) []float64 { return p.partials[taxon] }

func (p *Patterns) ConstantPatterns() []ports.ConstantPattern { return p.constant }

// SiteCount returns the number of alignment columns.
func (p *Patterns) SiteCount() int {
	total := 0.0
	for _, w := range p.weights {
		total += w
	}
	return int(total)
}

// Reorder permutes taxa to match names, e.g. the tip order of a tree.
func (p *Patterns) Reorder(names []string) error {
	if len(names) != len(p.taxa) {
		return fmt.Errorf("%d names for %d taxa", len(names), len(p.taxa))
	}
	pos := make(map[string]int, len(p.taxa))
	for i, t := range p.taxa {
		pos[t] = i
	}
	states := make([][]int, len(names))
	partials := make([][]float64, len(names))
	for i, name := range names {
		j, ok := pos[name]
		if !ok {
			return fmt.Errorf("taxon %q is not in the alignment", name)
		}
		states[i], partials[i] = p.states[j], p.partials[j]
	}
	p.taxa = append([]string(nil), names...)
	p.states, p.partials = states, partials
	return nil
}
