package crf

import (
	"fmt"
	"strings"
)

// Dense is a row-major matrix. Weight matrices use Dense[float64]; weight
// index maps use Dense[int].
type Dense[T int | float64] struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
	Data []T `json:"data"`
}

// NewDense returns a zero matrix of the given shape.
func NewDense[T int | float64](rows, cols int) Dense[T] {
	return Dense[T]{Rows: rows, Cols: cols, Data: make([]T, rows*cols)}
}

// At returns the element at (r, c).
func (m Dense[T]) At(r, c int) T {
	return m.Data[r*m.Cols+c]
}

// Set assigns the element at (r, c).
func (m Dense[T]) Set(r, c int, v T) {
	m.Data[r*m.Cols+c] = v
}

// Row returns a view of row r.
func (m Dense[T]) Row(r int) []T {
	return m.Data[r*m.Cols : (r+1)*m.Cols]
}

// Square reports whether the matrix has as many rows as columns.
func (m Dense[T]) Square() bool {
	return m.Rows == m.Cols
}

// T returns the transpose as a new matrix.
func (m Dense[T]) T() Dense[T] {
	out := NewDense[T](m.Cols, m.Rows)
	for r := range m.Rows {
		for c := range m.Cols {
			out.Set(c, r, m.At(r, c))
		}
	}
	return out
}

// Clone returns a deep copy.
func (m Dense[T]) Clone() Dense[T] {
	out := Dense[T]{Rows: m.Rows, Cols: m.Cols, Data: make([]T, len(m.Data))}
	copy(out.Data, m.Data)
	return out
}

// String formats the matrix one row per line.
func (m Dense[T]) String() string {
	var b strings.Builder
	for r := range m.Rows {
		for c := range m.Cols {
			if c > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%v", m.At(r, c))
		}
		if r < m.Rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
