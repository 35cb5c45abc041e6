package crf

import "math"

// DefaultLambda is the L2 penalty applied to every parameter.
const DefaultLambda = 10.0

// Objective is the L2-regularised negative log pseudo-likelihood of a
// dataset as a function of the flat parameter vector.
type Objective struct {
	Dataset    *Dataset
	Layout     *Layout
	Potentials PotentialComputer
	Lambda     float64

	buf []float64
}

// NewObjective returns the objective of d under layout l.
func NewObjective(d *Dataset, l *Layout, pc PotentialComputer, lambda float64) *Objective {
	return &Objective{Dataset: d, Layout: l, Potentials: pc, Lambda: lambda}
}

// Evaluate returns the objective at x and writes its gradient into g. The
// registry is not modified; node and edge potentials of the dataset's graphs
// are overwritten.
func (o *Objective) Evaluate(x, g []float64) float64 {
	for i := range g {
		g[i] = 0
	}

	w := o.Layout.Materialize(x)
	fx := 0.0
	for i, graph := range o.Dataset.Graphs {
		o.Potentials.ComputePotentials(graph, w)
		fx += o.accumulate(graph, o.Dataset.Truth[i], g)
	}

	reg := 0.0
	for i, v := range x {
		reg += o.Lambda * v * v
		g[i] += 2 * o.Lambda * v
	}
	return fx + reg
}

// accumulate adds the gradient of one graph's loss into g and returns the loss.
func (o *Objective) accumulate(graph *Graph, truth GroundTruth, g []float64) float64 {
	fx := 0.0
	for _, n := range graph.Nodes {
		t := truth[n.ID]
		o.buf = localConditional(graph, n, truth, o.buf)
		p := o.buf

		sum := 0.0
		for _, v := range p {
			sum += v
		}
		fx += -math.Log(p[t]) + math.Log(sum)

		nodeMap := o.Layout.Node[n.Type]
		edges := graph.Incident(n.ID)
		for c, v := range p {
			diff := v / sum
			if c == t {
				diff--
			}

			for f, feat := range n.Features {
				if idx := nodeMap.At(c, f); idx >= 0 {
					g[idx] += feat * diff
				}
			}

			for _, e := range edges {
				isFrom, other := e.Endpoint(n.ID)
				row, col := c, truth[other]
				if !isFrom {
					row, col = truth[other], c
				}
				for f, feat := range e.Features {
					if idx := o.Layout.Edge[e.Type][f].At(row, col); idx >= 0 {
						g[idx] += feat * diff
					}
				}
			}
		}
	}
	return fx
}

// localConditional writes into buf the potential of every class of n with
// each neighbour fixed to its label in labels, and returns it.
func localConditional(graph *Graph, n *Node, labels map[int]int, buf []float64) []float64 {
	p := append(buf[:0], n.Potentials...)
	for _, e := range graph.Incident(n.ID) {
		isFrom, other := e.Endpoint(n.ID)
		m := labels[other]
		if isFrom {
			for c := range p {
				p[c] *= e.Potentials.At(c, m)
			}
		} else {
			row := e.Potentials.Row(m)
			for c := range p {
				p[c] *= row[c]
			}
		}
	}
	return p
}
