// Package tui renders evaluation results for humans.
package tui

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/muesli/termenv"
)

// Report summarises one evaluated likelihood.
type Report struct {
	Name          string
	Engine        string
	Threads       int
	Scheme        string
	Tips          int
	Patterns      int
	Sites         int
	Boundaries    []float64
	LogLikelihood float64
	Resumed       string // Checkpoint ID the run resumed from, if any
	Duration      time.Duration

	// PatternLogLikelihoods, when set, lists the lowest-scoring patterns.
	PatternLogLikelihoods []float64
}

// worstPatterns is how many patterns the report lists.
const worstPatterns = 5

// Markdown formats the report as a markdown document.
func (r Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.title())
	fmt.Fprintf(&b, "**log-likelihood:** `%s`\n\n", formatLogL(r.LogLikelihood))
	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| engine | %s (%d threads) |\n", r.Engine, r.Threads)
	fmt.Fprintf(&b, "| scaling | %s |\n", r.Scheme)
	fmt.Fprintf(&b, "| tips | %d |\n", r.Tips)
	fmt.Fprintf(&b, "| patterns | %d (%d sites) |\n", r.Patterns, r.Sites)
	fmt.Fprintf(&b, "| epoch boundaries | %s |\n", formatBoundaries(r.Boundaries))
	if r.Resumed != "" {
		fmt.Fprintf(&b, "| resumed from | %s |\n", r.Resumed)
	}
	fmt.Fprintf(&b, "| duration | %s |\n", r.Duration.Round(time.Microsecond))

	if worst := r.worst(); len(worst) > 0 {
		b.WriteString("\n## Lowest patterns\n\n| pattern | log-likelihood |\n|---|---|\n")
		for _, i := range worst {
			fmt.Fprintf(&b, "| %d | %s |\n", i, formatLogL(r.PatternLogLikelihoods[i]))
		}
	}
	return b.String()
}

// Plain formats the report as aligned key/value lines.
func (r Report) Plain() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-18s %s\n", "scenario", r.title())
	fmt.Fprintf(&b, "%-18s %s\n", "log-likelihood", formatLogL(r.LogLikelihood))
	fmt.Fprintf(&b, "%-18s %s (%d threads)\n", "engine", r.Engine, r.Threads)
	fmt.Fprintf(&b, "%-18s %s\n", "scaling", r.Scheme)
	fmt.Fprintf(&b, "%-18s %d\n", "tips", r.Tips)
	fmt.Fprintf(&b, "%-18s %d (%d sites)\n", "patterns", r.Patterns, r.Sites)
	fmt.Fprintf(&b, "%-18s %s\n", "epoch boundaries", formatBoundaries(r.Boundaries))
	if r.Resumed != "" {
		fmt.Fprintf(&b, "%-18s %s\n", "resumed from", r.Resumed)
	}
	return b.String()
}

// Write prints the report: rendered markdown on terminals unless plain is set,
// plain lines otherwise.
func (r Report) Write(w io.Writer, plain bool) error {
	if plain || !IsTerminal(w) {
		_, err := io.WriteString(w, r.Plain())
		return err
	}
	render, err := NewRenderer()
	if err != nil {
		return err
	}
	out, err := render(r.Markdown())
	if err != nil {
		return err
	}
	p := termenv.EnvColorProfile()
	headline := termenv.String(" " + formatLogL(r.LogLikelihood) + " ").Bold().
		Foreground(p.Color("#0f172a")).Background(p.Color("#a78bfa"))
	_, err = fmt.Fprintf(w, "\n%s\n%s", headline, out)
	return err
}

func (r Report) title() string {
	if r.Name == "" {
		return "likelihood"
	}
	return r.Name
}

// worst returns the indices of the lowest pattern log-likelihoods.
func (r Report) worst() []int {
	var idx []int
	for i := range r.PatternLogLikelihoods {
		idx = append(idx, i)
		for j := len(idx) - 1; j > 0 && r.PatternLogLikelihoods[idx[j]] < r.PatternLogLikelihoods[idx[j-1]]; j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
		if len(idx) > worstPatterns {
			idx = idx[:worstPatterns]
		}
	}
	return idx
}

func formatLogL(v float64) string {
	if math.IsInf(v, -1) {
		return "-Inf"
	}
	return fmt.Sprintf("%.6f", v)
}

func formatBoundaries(b []float64) string {
	if len(b) == 0 {
		return "none"
	}
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(parts, ", ")
}
