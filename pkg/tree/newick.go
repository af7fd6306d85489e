package tree

import (
	"fmt"
	"strconv"
	"strings"
)

type parsed struct {
	name     string
	length   float64
	children []*parsed
}

// ParseNewick reads a rooted binary Newick string with branch lengths measured
// in time units. Tips are numbered in order of appearance and every tip is
// assumed to sit at the height given by its distance from the deepest tip, so
// the tree is ultrametric only when the lengths make it so.
func ParseNewick(s string) (*Tree, error) {
	p := &newickParser{src: strings.TrimSpace(s)}
	root, err := p.node()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == ';' {
		p.pos++
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("%w: trailing input at offset %d", ErrMalformed, p.pos)
	}

	var tips, internals []*parsed
	depth := map[*parsed]float64{}
	var walk func(n *parsed, d float64) error
	walk = func(n *parsed, d float64) error {
		depth[n] = d
		switch len(n.children) {
		case 0:
			tips = append(tips, n)
		case 2:
			internals = append(internals, n)
			for _, c := range n.children {
				if err := walk(c, d+c.length); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("%w: node with %d children", ErrMalformed, len(n.children))
		}
		return nil
	}
	if err := walk(root, 0); err != nil {
		return nil, err
	}

	deepest := 0.0
	for _, tip := range tips {
		deepest = max(deepest, depth[tip])
	}
	index := make(map[*parsed]int, len(tips)+len(internals))
	for i, tip := range tips {
		index[tip] = i
	}
	// Internal nodes in post-order, so the root is the last index.
	for i := range internals {
		index[internals[len(internals)-1-i]] = len(tips) + i
	}

	nodes := make([]Node, len(tips)+len(internals))
	for n, i := range index {
		nodes[i].Name = n.name
		nodes[i].Height = deepest - depth[n]
	}
	nodes[index[root]].Parent = -1
	for n, i := range index {
		for _, c := range n.children {
			nodes[index[c]].Parent = i
		}
	}
	return New(len(tips), nodes)
}

type newickParser struct {
	src string
	pos int
}

func (p *newickParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\n' || p.src[p.pos] == '\t' || p.src[p.pos] == '\r') {
		p.pos++
	}
}

func (p *newickParser) node() (*parsed, error) {
	p.skipSpace()
	n := &parsed{}
	if p.pos < len(p.src) && p.src[p.pos] == '(' {
		p.pos++
		for {
			c, err := p.node()
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, c)
			p.skipSpace()
			if p.pos >= len(p.src) {
				return nil, fmt.Errorf("%w: unexpected end of input", ErrMalformed)
			}
			if p.src[p.pos] == ',' {
				p.pos++
				continue
			}
			if p.src[p.pos] == ')' {
				p.pos++
				break
			}
			return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrMalformed, p.src[p.pos], p.pos)
		}
	}
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && !strings.ContainsRune("(),:;", rune(p.src[p.pos])) {
		p.pos++
	}
	n.name = strings.TrimSpace(p.src[start:p.pos])
	if p.pos < len(p.src) && p.src[p.pos] == ':' {
		p.pos++
		start = p.pos
		for p.pos < len(p.src) && !strings.ContainsRune("(),;", rune(p.src[p.pos])) {
			p.pos++
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(p.src[start:p.pos]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: branch length: %v", ErrMalformed, err)
		}
		n.length = v
	}
	return n, nil
}
