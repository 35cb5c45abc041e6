package crf

import "fmt"

// Layout maps every weight cell of a registry to its position in the flat
// parameter vector. Tied cells hold the same position.
type Layout struct {
	Node []Dense[int]   // by node type ID
	Edge [][]Dense[int] // by edge type ID, then feature
	N    int            // number of distinct parameters
}

// BuildLayout assigns parameter positions: node types first, in registry
// order and row-major, then each edge feature according to its sharing.
func BuildLayout(r *Registry) (*Layout, error) {
	l := &Layout{
		Node: make([]Dense[int], len(r.NodeTypes)),
		Edge: make([][]Dense[int], len(r.EdgeTypes)),
	}

	for i, t := range r.NodeTypes {
		if t.Weights.Rows <= 0 || t.Weights.Cols <= 0 {
			return nil, fmt.Errorf("%w: node type %q is %dx%d", ErrBadShape, t.Name, t.Weights.Rows, t.Weights.Cols)
		}
		l.Node[i] = l.independent(t.Weights.Rows, t.Weights.Cols)
	}

	for i, t := range r.EdgeTypes {
		if len(t.Sharing) != len(t.Weights) {
			return nil, fmt.Errorf("%w: edge type %q has %d weight matrices and %d sharing entries",
				ErrBadSharing, t.Name, len(t.Weights), len(t.Sharing))
		}
		maps := make([]Dense[int], len(t.Weights))
		for f, W := range t.Weights {
			if W.Rows <= 0 || W.Cols <= 0 {
				return nil, fmt.Errorf("%w: edge type %q feature %d is %dx%d", ErrBadShape, t.Name, f, W.Rows, W.Cols)
			}
			switch s := t.Sharing[f]; s.Kind {
			case SharingIndependent:
				maps[f] = l.independent(W.Rows, W.Cols)
			case SharingSymmetric:
				if !W.Square() {
					return nil, fmt.Errorf("%w: symmetric feature %d of edge type %q is %dx%d", ErrNonSquare, f, t.Name, W.Rows, W.Cols)
				}
				maps[f] = l.symmetric(W.Rows)
			case SharingTranspose:
				if s.Source < 0 || s.Source >= f {
					return nil, fmt.Errorf("%w: feature %d of edge type %q transposes feature %d", ErrBadSharing, f, t.Name, s.Source)
				}
				if !W.Square() {
					return nil, fmt.Errorf("%w: transposed feature %d of edge type %q is %dx%d", ErrNonSquare, f, t.Name, W.Rows, W.Cols)
				}
				maps[f] = maps[s.Source].T()
			default:
				return nil, fmt.Errorf("%w: feature %d of edge type %q has kind %d", ErrBadSharing, f, t.Name, s.Kind)
			}
		}
		l.Edge[i] = maps
	}
	return l, nil
}

// independent gives every cell a fresh position, row-major.
func (l *Layout) independent(rows, cols int) Dense[int] {
	m := NewDense[int](rows, cols)
	for i := range m.Data {
		m.Data[i] = l.N + i
	}
	l.N += rows * cols
	return m
}

// symmetric numbers the upper triangle of an n×n matrix, diagonal included,
// row-major, and mirrors it below the diagonal. The first pass numbers the
// off-diagonal pairs while reserving a slot ahead of each row; the second
// pass fills those slots with the diagonal.
func (l *Layout) symmetric(n int) Dense[int] {
	m := NewDense[int](n, n)
	base := l.N

	index := base
	for r := range n {
		index++
		for c := r + 1; c < n; c++ {
			m.Set(r, c, index)
			m.Set(c, r, index)
			index++
		}
	}

	m.Set(0, 0, base)
	prev := base
	for c := 1; c < n; c++ {
		prev += n - c + 1
		m.Set(c, c, prev)
	}

	l.N = base + n*(n+1)/2
	return m
}

// Materialize fans x out into a fresh set of weight matrices: every cell
// takes the value of its position.
func (l *Layout) Materialize(x []float64) *Weights {
	w := &Weights{
		Node: make([]Dense[float64], len(l.Node)),
		Edge: make([][]Dense[float64], len(l.Edge)),
	}
	for i, m := range l.Node {
		w.Node[i] = gather(m, x)
	}
	for i, maps := range l.Edge {
		w.Edge[i] = make([]Dense[float64], len(maps))
		for f, m := range maps {
			w.Edge[i][f] = gather(m, x)
		}
	}
	return w
}

func gather(m Dense[int], x []float64) Dense[float64] {
	out := NewDense[float64](m.Rows, m.Cols)
	for i, idx := range m.Data {
		if idx >= 0 {
			out.Data[i] = x[idx]
		}
	}
	return out
}

// Flatten reads the registry's weights into a parameter vector. Tied cells
// are expected to agree; the last one read wins.
func (l *Layout) Flatten(r *Registry) []float64 {
	x := make([]float64, l.N)
	for i, t := range r.NodeTypes {
		scatter(l.Node[i], t.Weights, x)
	}
	for i, t := range r.EdgeTypes {
		for f, W := range t.Weights {
			scatter(l.Edge[i][f], W, x)
		}
	}
	return x
}

func scatter(m Dense[int], W Dense[float64], x []float64) {
	for i, idx := range m.Data {
		if idx >= 0 {
			x[idx] = W.Data[i]
		}
	}
}
