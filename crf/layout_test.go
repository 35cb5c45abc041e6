package crf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func layoutRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	_, err := r.AddNodeType("obj", []string{"a", "b"}, 3)
	require.NoError(t, err)
	_, err = r.AddEdgeType("near", 3, 3, []Sharing{Independent(), Symmetric(), TransposeOf(0), Symmetric()})
	require.NoError(t, err)
	return r
}

// indexCounts counts how many cells reference each position.
func indexCounts(l *Layout) map[int]int {
	counts := make(map[int]int)
	for _, m := range l.Node {
		for _, idx := range m.Data {
			counts[idx]++
		}
	}
	for _, maps := range l.Edge {
		for _, m := range maps {
			for _, idx := range m.Data {
				counts[idx]++
			}
		}
	}
	return counts
}

func TestBuildLayoutCounts(t *testing.T) {
	l, err := BuildLayout(layoutRegistry(t))
	require.NoError(t, err)

	// node 2*3, independent 9, symmetric 6, transpose 0, symmetric 6
	assert.Equal(t, 6+9+6+0+6, l.N)

	counts := indexCounts(l)
	assert.Len(t, counts, l.N)
	for i := range l.N {
		assert.Positive(t, counts[i], "index %d unused", i)
	}
}

func TestBuildLayoutNodeRowMajor(t *testing.T) {
	l, err := BuildLayout(layoutRegistry(t))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, l.Node[0].Data)
	assert.Equal(t, []int{6, 7, 8, 9, 10, 11, 12, 13, 14}, l.Edge[0][0].Data)
}

func TestBuildLayoutSymmetric(t *testing.T) {
	l, err := BuildLayout(layoutRegistry(t))
	require.NoError(t, err)

	sym := l.Edge[0][1]
	assert.Equal(t, []int{
		15, 16, 17,
		16, 18, 19,
		17, 19, 20,
	}, sym.Data)

	for _, m := range []Dense[int]{l.Edge[0][1], l.Edge[0][3]} {
		seen := make(map[int]bool)
		for r := range m.Rows {
			for c := range m.Cols {
				assert.Equal(t, m.At(r, c), m.At(c, r))
			}
			diag := m.At(r, r)
			assert.False(t, seen[diag], "diagonal index %d repeated", diag)
			seen[diag] = true
			for c := range m.Cols {
				if c != r {
					assert.NotEqual(t, diag, m.At(r, c))
				}
			}
		}
	}
}

func TestBuildLayoutSymmetricSingleClass(t *testing.T) {
	r := NewRegistry()
	_, err := r.AddEdgeType("self", 1, 1, []Sharing{Symmetric(), Independent()})
	require.NoError(t, err)

	l, err := BuildLayout(r)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, l.Edge[0][0].Data)
	assert.Equal(t, []int{1}, l.Edge[0][1].Data)
	assert.Equal(t, 2, l.N)
}

func TestBuildLayoutTranspose(t *testing.T) {
	l, err := BuildLayout(layoutRegistry(t))
	require.NoError(t, err)

	src, tr := l.Edge[0][0], l.Edge[0][2]
	for r := range 3 {
		for c := range 3 {
			assert.Equal(t, src.At(c, r), tr.At(r, c))
		}
	}

	// transposed cells introduce no new positions
	own := make(map[int]bool)
	for f, m := range l.Edge[0] {
		if f == 2 {
			continue
		}
		for _, idx := range m.Data {
			own[idx] = true
		}
	}
	for _, idx := range tr.Data {
		assert.True(t, own[idx])
	}
}

func TestBuildLayoutErrors(t *testing.T) {
	tests := []struct {
		name    string
		rows    int
		cols    int
		sharing []Sharing
		want    error
	}{
		{"symmetric non-square", 2, 3, []Sharing{Symmetric()}, ErrNonSquare},
		{"transpose non-square", 2, 3, []Sharing{Independent(), TransposeOf(0)}, ErrNonSquare},
		{"transpose first feature", 2, 2, []Sharing{TransposeOf(0)}, ErrBadSharing},
		{"transpose later feature", 2, 2, []Sharing{Independent(), TransposeOf(2), Independent()}, ErrBadSharing},
		{"unknown kind", 2, 2, []Sharing{{Kind: 9}}, ErrBadSharing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			_, err := r.AddEdgeType("e", tt.rows, tt.cols, tt.sharing)
			require.NoError(t, err)
			_, err = BuildLayout(r)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestMaterializeFansOutTiedWeights(t *testing.T) {
	r := layoutRegistry(t)
	l, err := BuildLayout(r)
	require.NoError(t, err)

	x := make([]float64, l.N)
	for i := range x {
		x[i] = float64(i) + 0.5
	}
	w := l.Materialize(x)

	assert.Equal(t, 16.5, w.Edge[0][1].At(0, 1))
	assert.Equal(t, 16.5, w.Edge[0][1].At(1, 0))
	assert.Equal(t, w.Edge[0][0].T(), w.Edge[0][2])

	r.SetWeights(w)
	assert.Equal(t, x, l.Flatten(r))
}
