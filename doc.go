/*
Package epochlik computes phylogenetic tree likelihoods under epoch models, in
which different substitution processes govern different intervals of time.

# Concept

The time axis is cut at boundary ages into epochs; epoch 0 is the most recent.
A branch that lies inside one epoch gets its transition matrix from that epoch's
process, while a branch crossing boundaries gets the product of one matrix per
epoch it passes through, from the parent's age down to the node's age.

The likelihood is incremental. Between evaluations only the branches and
partials touched by a change are recomputed, and Store/Restore let a sampler
propose a change and cheaply undo it: buffers are double-buffered and only the
index tables are saved.

Numerical underflow on large trees is handled by rescaling. Under the default
dynamic scheme nothing is scaled until the first non-finite result; the
evaluation is then retried once with scale factors, which are afterwards
refreshed periodically.

# Usage

	sc, err := epochlik.LoadScenario("two-epoch.yaml")
	if err != nil {
		log.Fatal(err)
	}
	lik, err := epochlik.NewFromScenario(sc)
	if err != nil {
		log.Fatal(err)
	}
	defer lik.Close()

	logL, err := lik.LogLikelihood()

A sampler wraps every proposal in Store/Restore:

	lik.Store()
	sc.Tree.Store()
	sc.Tree.SetHeight(node, h)
	if logL, err := lik.LogLikelihood(); err != nil || !accept(logL) {
		lik.Restore()
		sc.Tree.Restore()
	}
	sc.Tree.Accept()

Engines are resolved by name through a registry; the in-process "cpu" engine is
always available and serves as fallback.
*/
package epochlik
