// Package pgm trains pairwise conditional random fields over labeled graphs
// and labels new graphs with them.
//
// Training maximises the L2-regularised pseudo-likelihood of a dataset file
// with L-BFGS:
//
//	m, _, _ := pgm.Train(ctx, "scenes.json", nil)
//	_ = m.Save("model.json")
//	labels, _ := m.Label("unlabeled.json")
//	for _, g := range labels {
//	    fmt.Println(g.Graph, g.Labels) // "kitchen" map[0:cup 1:table]
//	}
package pgm

import (
	"fmt"
	"os"

	"github.com/happyhackingspace/pgm/crf"
	"github.com/happyhackingspace/pgm/internal/dataset"
)

// Model wraps a registry of node and edge types with learned weights.
type Model struct {
	registry *crf.Registry
}

// GraphLabels holds the decoded labels of one graph.
type GraphLabels struct {
	Graph  string         `json:"graph"`
	Labels map[int]string `json:"labels"`
}

// GraphBeliefs holds per-node class probabilities of one graph.
type GraphBeliefs struct {
	Graph   string                     `json:"graph"`
	Beliefs map[int]map[string]float64 `json:"beliefs"`
}

// Load loads a trained model from a model file.
func Load(path string) (*Model, error) {
	r, err := crf.LoadModel(path)
	if err != nil {
		return nil, fmt.Errorf("pgm: %w", err)
	}
	return &Model{registry: r}, nil
}

// Save writes the model to a model file.
func (m *Model) Save(path string) error {
	if m.registry == nil {
		return fmt.Errorf("pgm: model not initialized")
	}
	if err := crf.SaveModel(m.registry, path); err != nil {
		return fmt.Errorf("pgm: %w", err)
	}
	return nil
}

// Registry returns the model's types and weights.
func (m *Model) Registry() *crf.Registry {
	return m.registry
}

// Label decodes every graph of the dataset file at path. Node labels in the
// file, if any, are ignored.
func (m *Model) Label(path string) ([]GraphLabels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pgm: %w", err)
	}
	return m.LabelData(data)
}

// LabelData is Label for an in-memory dataset document.
func (m *Model) LabelData(data []byte) ([]GraphLabels, error) {
	graphs, err := m.graphs(data)
	if err != nil {
		return nil, err
	}

	out := make([]GraphLabels, len(graphs))
	for i, g := range graphs {
		pred := m.registry.Predict(g)
		labels := make(map[int]string, len(pred))
		for _, n := range g.Nodes {
			labels[n.ID] = m.registry.NodeType(n.Type).Labels.Name(pred[n.ID])
		}
		out[i] = GraphLabels{Graph: g.Name, Labels: labels}
	}
	return out, nil
}

// BeliefsData decodes every graph of an in-memory dataset document and
// returns each node's class distribution given its decoded neighbours.
func (m *Model) BeliefsData(data []byte) ([]GraphBeliefs, error) {
	graphs, err := m.graphs(data)
	if err != nil {
		return nil, err
	}

	out := make([]GraphBeliefs, len(graphs))
	for i, g := range graphs {
		out[i] = GraphBeliefs{Graph: g.Name, Beliefs: m.registry.PredictBeliefs(g)}
	}
	return out, nil
}

func (m *Model) graphs(data []byte) ([]*crf.Graph, error) {
	if m.registry == nil {
		return nil, fmt.Errorf("pgm: model not initialized")
	}
	f, err := dataset.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("pgm: %w", err)
	}

	graphs := make([]*crf.Graph, len(f.Graphs))
	for i := range f.Graphs {
		g, _, err := f.Graph(i, m.registry, false)
		if err != nil {
			return nil, fmt.Errorf("pgm: %w", err)
		}
		if err := m.registry.ValidateGraph(g); err != nil {
			return nil, fmt.Errorf("pgm: %w", err)
		}
		graphs[i] = g
	}
	return graphs, nil
}
