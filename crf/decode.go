package crf

// DefaultSweeps bounds the number of passes Decode makes over a graph.
const DefaultSweeps = 50

// Decode labels the nodes of g by iterated conditional modes: every node
// starts at the argmax of its own potentials, then repeatedly moves to the
// best class given its neighbours' current labels until a full sweep changes
// nothing or maxSweeps is reached. The result is a local optimum, not the
// exact MAP labelling.
func Decode(g *Graph, w *Weights, pc PotentialComputer, maxSweeps int) GroundTruth {
	pc.ComputePotentials(g, w)

	labels := make(GroundTruth, len(g.Nodes))
	for _, n := range g.Nodes {
		labels[n.ID] = argmax(n.Potentials)
	}

	var buf []float64
	for range maxSweeps {
		changed := false
		for _, n := range g.Nodes {
			buf = localConditional(g, n, labels, buf)
			if best := argmax(buf); best != labels[n.ID] {
				labels[n.ID] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return labels
}

// Beliefs returns, for every node, the distribution over its classes given
// its neighbours' labels. Potentials must already be computed.
func Beliefs(g *Graph, labels GroundTruth) map[int][]float64 {
	out := make(map[int][]float64, len(g.Nodes))
	for _, n := range g.Nodes {
		p := localConditional(g, n, labels, nil)
		sum := 0.0
		for _, v := range p {
			sum += v
		}
		for c := range p {
			p[c] /= sum
		}
		out[n.ID] = p
	}
	return out
}

// Predict decodes g with the registry's weights and log-linear potentials.
func (r *Registry) Predict(g *Graph) GroundTruth {
	return Decode(g, r.Weights(), ExpLinear{}, DefaultSweeps)
}

// PredictBeliefs decodes g and returns per-node class names with their
// probabilities given the decoded neighbourhood.
func (r *Registry) PredictBeliefs(g *Graph) map[int]map[string]float64 {
	labels := r.Predict(g)
	beliefs := Beliefs(g, labels)

	result := make(map[int]map[string]float64, len(beliefs))
	for _, n := range g.Nodes {
		labelsOf := r.NodeType(n.Type).Labels
		result[n.ID] = make(map[string]float64, len(beliefs[n.ID]))
		for c, p := range beliefs[n.ID] {
			result[n.ID][labelsOf.Name(c)] = p
		}
	}
	return result
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
