package crf

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pairDataset is two nodes joined by one edge, two classes and one feature
// everywhere.
func pairDataset(t *testing.T) *Dataset {
	t.Helper()
	r := NewRegistry()
	_, err := r.AddNodeType("obj", []string{"a", "b"}, 1)
	require.NoError(t, err)
	_, err = r.AddEdgeType("near", 2, 2, []Sharing{Independent()})
	require.NoError(t, err)

	g := NewGraph("pair")
	require.NoError(t, g.AddNode(&Node{ID: 0, Type: 0, Features: []float64{1.0}}))
	require.NoError(t, g.AddNode(&Node{ID: 1, Type: 0, Features: []float64{0.5}}))
	require.NoError(t, g.AddEdge(&Edge{From: 0, To: 1, Type: 0, Features: []float64{1.0}}))

	d := NewDataset(r)
	require.NoError(t, d.Add(g, GroundTruth{0: 0, 1: 1}))
	return d
}

// richDataset mixes two node types, symmetric and transposed edge features,
// and edges seen from both ends.
func richDataset(t *testing.T) *Dataset {
	t.Helper()
	r := NewRegistry()
	_, err := r.AddNodeType("obj", []string{"floor", "wall", "table"}, 2)
	require.NoError(t, err)
	_, err = r.AddNodeType("room", []string{"kitchen", "office"}, 1)
	require.NoError(t, err)
	_, err = r.AddEdgeType("near", 3, 3, []Sharing{Independent(), TransposeOf(0), Symmetric()})
	require.NoError(t, err)
	_, err = r.AddEdgeType("in", 3, 2, []Sharing{Independent(), Independent()})
	require.NoError(t, err)

	d := NewDataset(r)

	g := NewGraph("scene-1")
	require.NoError(t, g.AddNode(&Node{ID: 10, Type: 0, Features: []float64{1.0, 0.2}}))
	require.NoError(t, g.AddNode(&Node{ID: 11, Type: 0, Features: []float64{0.3, -0.7}}))
	require.NoError(t, g.AddNode(&Node{ID: 12, Type: 0, Features: []float64{-0.5, 0.9}}))
	require.NoError(t, g.AddNode(&Node{ID: 20, Type: 1, Features: []float64{1.0}}))
	require.NoError(t, g.AddEdge(&Edge{From: 10, To: 11, Type: 0, Features: []float64{1.0, 0.4, 0.8}}))
	require.NoError(t, g.AddEdge(&Edge{From: 11, To: 12, Type: 0, Features: []float64{0.6, -0.2, 1.0}}))
	require.NoError(t, g.AddEdge(&Edge{From: 12, To: 10, Type: 0, Features: []float64{-0.3, 0.5, 0.1}}))
	for _, id := range []int{10, 11, 12} {
		require.NoError(t, g.AddEdge(&Edge{From: id, To: 20, Type: 1, Features: []float64{1.0, 0.5}}))
	}
	require.NoError(t, d.Add(g, GroundTruth{10: 0, 11: 1, 12: 2, 20: 1}))

	g2 := NewGraph("scene-2")
	require.NoError(t, g2.AddNode(&Node{ID: 1, Type: 0, Features: []float64{0.8, 0.1}}))
	require.NoError(t, g2.AddNode(&Node{ID: 2, Type: 0, Features: []float64{-0.9, 0.4}}))
	require.NoError(t, g2.AddNode(&Node{ID: 3, Type: 1, Features: []float64{-1.0}}))
	require.NoError(t, g2.AddEdge(&Edge{From: 2, To: 1, Type: 0, Features: []float64{0.7, 0.7, -0.4}}))
	require.NoError(t, g2.AddEdge(&Edge{From: 1, To: 3, Type: 1, Features: []float64{0.2, 1.0}}))
	require.NoError(t, g2.AddEdge(&Edge{From: 2, To: 3, Type: 1, Features: []float64{0.9, -0.1}}))
	require.NoError(t, d.Add(g2, GroundTruth{1: 0, 2: 0, 3: 0}))

	return d
}

func randomVector(seed int64, n int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	x := make([]float64, n)
	for i := range x {
		x[i] = rng.Float64() - 0.5
	}
	return x
}
