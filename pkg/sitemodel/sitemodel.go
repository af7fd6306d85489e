// Package sitemodel provides among-site rate variation models.
package sitemodel

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

var ErrInvalidParameter = errors.New("invalid site model parameter")

// Gamma discretises a mean-one gamma distribution into equally weighted
// categories, each represented by its median, optionally mixed with a proportion
// of invariant sites. Variable-category rates are scaled by 1/(1-pInv) so that
// the mean rate over all sites stays 1.
type Gamma struct {
	shape      float64
	categories int
	pInv       float64
	rates      []float64
	weights    []float64
}

// NewGamma builds a discrete gamma model with n categories.
func NewGamma(shape float64, n int, pInv float64) (*Gamma, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d categories", ErrInvalidParameter, n)
	}
	g := &Gamma{
		categories: n,
		rates:      make([]float64, n),
		weights:    make([]float64, n),
	}
	if err := g.Set(shape, pInv); err != nil {
		return nil, err
	}
	return g, nil
}

// Uniform returns a single-category model without rate variation.
func Uniform(pInv float64) (*Gamma, error) {
	return NewGamma(math.Inf(1), 1, pInv)
}

// Set updates the shape and the proportion of invariant sites.
func (g *Gamma) Set(shape, pInv float64) error {
	if !(shape > 0) {
		return fmt.Errorf("%w: gamma shape %g", ErrInvalidParameter, shape)
	}
	if pInv < 0 || pInv >= 1 || math.IsNaN(pInv) {
		return fmt.Errorf("%w: proportion invariant %g", ErrInvalidParameter, pInv)
	}
	g.shape = shape
	g.pInv = pInv

	n := g.categories
	if n == 1 || math.IsInf(shape, 1) {
		for i := range g.rates {
			g.rates[i] = 1
		}
	} else {
		dist := distuv.Gamma{Alpha: shape, Beta: shape}
		mean := 0.0
		for i := range g.rates {
			g.rates[i] = dist.Quantile((2*float64(i) + 1) / (2 * float64(n)))
			mean += g.rates[i] / float64(n)
		}
		for i := range g.rates {
			g.rates[i] /= mean
		}
	}
	for i := range g.rates {
		g.rates[i] /= 1 - pInv
		g.weights[i] = (1 - pInv) / float64(n)
	}
	return nil
}

func (g *Gamma) Shape() float64 { return g.shape }

func (g *Gamma) CategoryRates() []float64 { return g.rates }

func (g *Gamma) CategoryWeights() []float64 { return g.weights }

func (g *Gamma) ProportionInvariant() float64 { return g.pInv }
