package crf

import (
	"encoding/json"
	"fmt"
	"os"
)

// SaveModel serializes the registry, including its learned weights, to JSON.
func SaveModel(r *Registry, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadModel deserializes a registry from JSON.
func LoadModel(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalModel(data)
}

// MarshalModel serializes the registry to JSON bytes.
func MarshalModel(r *Registry) ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalModel deserializes a registry from JSON bytes and checks its
// matrices and weight layout.
func UnmarshalModel(data []byte) (*Registry, error) {
	var r Registry
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	if _, err := BuildLayout(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

// validate checks what a decoded registry cannot guarantee by construction:
// type IDs match positions, matrix data matches the declared shape, class
// names match node weight rows and all feature matrices of an edge type share
// one shape.
func (r *Registry) validate() error {
	for i, t := range r.NodeTypes {
		if t == nil {
			return fmt.Errorf("%w: node type %d is missing", ErrBadShape, i)
		}
		if t.ID != i {
			return fmt.Errorf("%w: node type %q has ID %d at position %d", ErrBadShape, t.Name, t.ID, i)
		}
		if err := checkDense(t.Weights); err != nil {
			return fmt.Errorf("%w: node type %q: %v", ErrBadShape, t.Name, err)
		}
		if t.Labels == nil || t.Labels.Size() != t.Weights.Rows || len(t.Labels.ToID) != t.Labels.Size() {
			return fmt.Errorf("%w: node type %q has %d weight rows and %d class names",
				ErrBadShape, t.Name, t.Weights.Rows, t.Labels.Size())
		}
		for id, name := range t.Labels.ToStr {
			if t.Labels.Get(name) != id {
				return fmt.Errorf("%w: node type %q: class %q is not indexed as %d", ErrBadShape, t.Name, name, id)
			}
		}
	}

	for i, t := range r.EdgeTypes {
		if t == nil {
			return fmt.Errorf("%w: edge type %d is missing", ErrBadShape, i)
		}
		if t.ID != i {
			return fmt.Errorf("%w: edge type %q has ID %d at position %d", ErrBadShape, t.Name, t.ID, i)
		}
		if len(t.Weights) == 0 {
			return fmt.Errorf("%w: edge type %q has no features", ErrBadShape, t.Name)
		}
		rows, cols := t.Shape()
		for f, W := range t.Weights {
			if err := checkDense(W); err != nil {
				return fmt.Errorf("%w: edge type %q feature %d: %v", ErrBadShape, t.Name, f, err)
			}
			if W.Rows != rows || W.Cols != cols {
				return fmt.Errorf("%w: edge type %q feature %d is %dx%d, feature 0 is %dx%d",
					ErrBadShape, t.Name, f, W.Rows, W.Cols, rows, cols)
			}
		}
	}
	return nil
}

func checkDense(m Dense[float64]) error {
	if m.Rows <= 0 || m.Cols <= 0 {
		return fmt.Errorf("shape %dx%d", m.Rows, m.Cols)
	}
	if len(m.Data) != m.Rows*m.Cols {
		return fmt.Errorf("%d values for a %dx%d matrix", len(m.Data), m.Rows, m.Cols)
	}
	return nil
}
