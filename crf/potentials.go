package crf

import "math"

// PotentialComputer recomputes the node and edge potentials of a graph from
// the given weights, writing them into the graph's nodes and edges.
type PotentialComputer interface {
	ComputePotentials(g *Graph, w *Weights)
}

// ExpLinear computes log-linear potentials: a node of type t gets
// exp(W_t · features) and an edge of type t gets exp(Σ_k W_t,k · features_k).
// The analytic gradient of the objective assumes this parametrisation.
type ExpLinear struct{}

// ComputePotentials implements PotentialComputer.
func (ExpLinear) ComputePotentials(g *Graph, w *Weights) {
	for _, n := range g.Nodes {
		W := w.Node[n.Type]
		if len(n.Potentials) != W.Rows {
			n.Potentials = make([]float64, W.Rows)
		}
		for c := range W.Rows {
			score := 0.0
			for f, v := range W.Row(c) {
				score += v * n.Features[f]
			}
			n.Potentials[c] = math.Exp(score)
		}
	}

	for _, e := range g.Edges {
		Ws := w.Edge[e.Type]
		rows, cols := Ws[0].Rows, Ws[0].Cols
		if e.Potentials.Rows != rows || e.Potentials.Cols != cols {
			e.Potentials = NewDense[float64](rows, cols)
		}
		for i := range e.Potentials.Data {
			score := 0.0
			for f, W := range Ws {
				score += W.Data[i] * e.Features[f]
			}
			e.Potentials.Data[i] = math.Exp(score)
		}
	}
}
