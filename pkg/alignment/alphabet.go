// Package alignment compresses aligned sequences into weighted site patterns.
package alignment

import (
	"errors"
	"fmt"
	"unicode"
)

var (
	ErrUnknownSymbol  = errors.New("unknown symbol")
	ErrLengthMismatch = errors.New("sequences differ in length")
)

// Alphabet maps sequence symbols to the set of states they are compatible with.
type Alphabet struct {
	name    string
	symbols string
	codes   map[rune][]int
}

// Nucleotide returns the DNA alphabet with IUPAC ambiguity codes. U reads as T;
// gaps and missing data are compatible with every state.
func Nucleotide() *Alphabet {
	all := []int{0, 1, 2, 3}
	return &Alphabet{
		name:    "nucleotide",
		symbols: "ACGT",
		codes: map[rune][]int{
			'A': {0}, 'C': {1}, 'G': {2}, 'T': {3}, 'U': {3},
			'R': {0, 2}, 'Y': {1, 3}, 'S': {1, 2}, 'W': {0, 3}, 'K': {2, 3}, 'M': {0, 1},
			'B': {1, 2, 3}, 'D': {0, 2, 3}, 'H': {0, 1, 3}, 'V': {0, 1, 2},
			'N': all, '?': all, '-': all, '.': all,
		},
	}
}

// Binary returns a two-state alphabet over 0 and 1.
func Binary() *Alphabet {
	all := []int{0, 1}
	return &Alphabet{
		name:    "binary",
		symbols: "01",
		codes:   map[rune][]int{'0': {0}, '1': {1}, '?': all, '-': all},
	}
}

// ByName resolves an alphabet from configuration.
func ByName(name string) (*Alphabet, error) {
	switch name {
	case "", "nucleotide", "dna":
		return Nucleotide(), nil
	case "binary":
		return Binary(), nil
	}
	return nil, fmt.Errorf("unknown alphabet %q", name)
}

func (a *Alphabet) Name() string { return a.name }

func (a *Alphabet) StateCount() int { return len(a.symbols) }

// States returns the states compatible with symbol.
func (a *Alphabet) States(symbol rune) ([]int, error) {
	set, ok := a.codes[unicode.ToUpper(symbol)]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s alphabet", ErrUnknownSymbol, symbol, a.name)
	}
	return set, nil
}
