// Package crf trains pairwise conditional random fields over labeled graphs
// by maximising the pseudo-likelihood of the ground truth labels.
//
// Node and edge types own the weight matrices. BuildLayout maps every
// independently learned weight to one position of a flat parameter vector,
// honouring per-feature sharing of edge weights, and Train drives L-BFGS over
// that vector.
package crf

import (
	"fmt"
	"strconv"
	"strings"
)

// Alphabet maps between string labels and integer IDs.
type Alphabet struct {
	ToID  map[string]int `json:"to_id"`
	ToStr []string       `json:"to_str"`
}

// NewAlphabet creates an empty alphabet.
func NewAlphabet() *Alphabet {
	return &Alphabet{
		ToID: make(map[string]int),
	}
}

// Add adds a string to the alphabet if not already present, returns its ID.
func (a *Alphabet) Add(s string) int {
	if id, ok := a.ToID[s]; ok {
		return id
	}
	id := len(a.ToStr)
	a.ToID[s] = id
	a.ToStr = append(a.ToStr, s)
	return id
}

// Get returns the ID for a string, or -1 if not found.
func (a *Alphabet) Get(s string) int {
	if id, ok := a.ToID[s]; ok {
		return id
	}
	return -1
}

// Name returns the string for an ID, or "" if out of range.
func (a *Alphabet) Name(id int) string {
	if a == nil || id < 0 || id >= len(a.ToStr) {
		return ""
	}
	return a.ToStr[id]
}

// Size returns the number of entries.
func (a *Alphabet) Size() int {
	if a == nil {
		return 0
	}
	return len(a.ToStr)
}

// SharingKind tells how the weights of one edge feature are tied.
type SharingKind int

const (
	// SharingIndependent learns every cell separately.
	SharingIndependent SharingKind = iota
	// SharingSymmetric ties (r,c) with (c,r).
	SharingSymmetric
	// SharingTranspose reuses the transpose of an earlier feature's weights.
	SharingTranspose
)

// Sharing is the weight tying of one edge feature. Source is the feature
// index transposed by SharingTranspose and is ignored otherwise.
type Sharing struct {
	Kind   SharingKind
	Source int
}

// Independent returns untied sharing.
func Independent() Sharing { return Sharing{Kind: SharingIndependent} }

// Symmetric returns symmetric sharing.
func Symmetric() Sharing { return Sharing{Kind: SharingSymmetric} }

// TransposeOf returns sharing that reuses the transposed weights of feature f.
func TransposeOf(f int) Sharing { return Sharing{Kind: SharingTranspose, Source: f} }

func (s Sharing) String() string {
	switch s.Kind {
	case SharingIndependent:
		return "independent"
	case SharingSymmetric:
		return "symmetric"
	case SharingTranspose:
		return "transpose:" + strconv.Itoa(s.Source)
	}
	return fmt.Sprintf("sharing(%d)", int(s.Kind))
}

// MarshalText implements encoding.TextMarshaler.
func (s Sharing) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. A transpose must name
// its source feature ("transpose:N").
func (s *Sharing) UnmarshalText(text []byte) error {
	v, err := ParseSharing(string(text), -1)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSharing parses "independent", "symmetric", "transpose:N" or a bare
// "transpose", which refers to the feature preceding feature.
func ParseSharing(s string, feature int) (Sharing, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "independent":
		return Independent(), nil
	case "symmetric":
		return Symmetric(), nil
	case "transpose":
		if feature < 1 {
			return Sharing{}, fmt.Errorf("%w: bare transpose on feature %d", ErrBadSharing, feature)
		}
		return TransposeOf(feature - 1), nil
	}
	if src, ok := strings.CutPrefix(s, "transpose:"); ok {
		f, err := strconv.Atoi(src)
		if err != nil {
			return Sharing{}, fmt.Errorf("%w: %q", ErrBadSharing, s)
		}
		return TransposeOf(f), nil
	}
	return Sharing{}, fmt.Errorf("%w: %q", ErrBadSharing, s)
}

// NodeType is a family of nodes sharing one weight matrix of shape
// classes × features.
type NodeType struct {
	ID      int            `json:"id"`
	Name    string         `json:"name"`
	Labels  *Alphabet      `json:"labels"`
	Weights Dense[float64] `json:"weights"`
}

// NumClasses returns the number of classes of the type.
func (t *NodeType) NumClasses() int { return t.Weights.Rows }

// NumFeatures returns the length of the feature vectors of the type.
func (t *NodeType) NumFeatures() int { return t.Weights.Cols }

// EdgeType is a family of edges sharing one weight matrix per edge feature.
// Rows index the classes of an edge's From node, columns those of its To node.
type EdgeType struct {
	ID      int              `json:"id"`
	Name    string           `json:"name"`
	Weights []Dense[float64] `json:"weights"`
	Sharing []Sharing        `json:"sharing"`
}

// NumFeatures returns the length of the feature vectors of the type.
func (t *EdgeType) NumFeatures() int { return len(t.Weights) }

// Shape returns the shape of each of the type's weight matrices.
func (t *EdgeType) Shape() (rows, cols int) {
	if len(t.Weights) == 0 {
		return 0, 0
	}
	return t.Weights[0].Rows, t.Weights[0].Cols
}

// Registry owns the node and edge types. Type IDs are their positions.
type Registry struct {
	NodeTypes []*NodeType `json:"node_types"`
	EdgeTypes []*EdgeType `json:"edge_types"`
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// AddNodeType registers a node type with the given class names and number
// of features. Weights start at zero.
func (r *Registry) AddNodeType(name string, classes []string, numFeatures int) (*NodeType, error) {
	labels := NewAlphabet()
	for _, c := range classes {
		labels.Add(c)
	}
	if labels.Size() != len(classes) {
		return nil, fmt.Errorf("crf: node type %q: duplicate class names", name)
	}
	if len(classes) == 0 || numFeatures <= 0 {
		return nil, fmt.Errorf("%w: node type %q has %d classes and %d features", ErrBadShape, name, len(classes), numFeatures)
	}
	t := &NodeType{
		ID:      len(r.NodeTypes),
		Name:    name,
		Labels:  labels,
		Weights: NewDense[float64](len(classes), numFeatures),
	}
	r.NodeTypes = append(r.NodeTypes, t)
	return t, nil
}

// AddEdgeType registers an edge type whose weight matrices are rows × cols,
// one per entry of sharing. Sharing is checked by BuildLayout.
func (r *Registry) AddEdgeType(name string, rows, cols int, sharing []Sharing) (*EdgeType, error) {
	if rows <= 0 || cols <= 0 || len(sharing) == 0 {
		return nil, fmt.Errorf("%w: edge type %q is %dx%d with %d features", ErrBadShape, name, rows, cols, len(sharing))
	}
	t := &EdgeType{
		ID:      len(r.EdgeTypes),
		Name:    name,
		Weights: make([]Dense[float64], len(sharing)),
		Sharing: append([]Sharing(nil), sharing...),
	}
	for f := range t.Weights {
		t.Weights[f] = NewDense[float64](rows, cols)
	}
	r.EdgeTypes = append(r.EdgeTypes, t)
	return t, nil
}

// NodeType returns the node type with the given ID, or nil.
func (r *Registry) NodeType(id int) *NodeType {
	if id < 0 || id >= len(r.NodeTypes) {
		return nil
	}
	return r.NodeTypes[id]
}

// EdgeType returns the edge type with the given ID, or nil.
func (r *Registry) EdgeType(id int) *EdgeType {
	if id < 0 || id >= len(r.EdgeTypes) {
		return nil
	}
	return r.EdgeTypes[id]
}

// NodeTypeByName returns the node type with the given name, or nil.
func (r *Registry) NodeTypeByName(name string) *NodeType {
	for _, t := range r.NodeTypes {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// EdgeTypeByName returns the edge type with the given name, or nil.
func (r *Registry) EdgeTypeByName(name string) *EdgeType {
	for _, t := range r.EdgeTypes {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Weights is a snapshot of all weight matrices, indexed by type ID and, for
// edges, by feature.
type Weights struct {
	Node []Dense[float64]
	Edge [][]Dense[float64]
}

// Weights returns the registry's current weights. The matrices alias the
// registry's storage.
func (r *Registry) Weights() *Weights {
	w := &Weights{
		Node: make([]Dense[float64], len(r.NodeTypes)),
		Edge: make([][]Dense[float64], len(r.EdgeTypes)),
	}
	for i, t := range r.NodeTypes {
		w.Node[i] = t.Weights
	}
	for i, t := range r.EdgeTypes {
		w.Edge[i] = t.Weights
	}
	return w
}

// SetWeights copies w into the registry's weight matrices.
func (r *Registry) SetWeights(w *Weights) {
	for i, t := range r.NodeTypes {
		copy(t.Weights.Data, w.Node[i].Data)
	}
	for i, t := range r.EdgeTypes {
		for f := range t.Weights {
			copy(t.Weights[f].Data, w.Edge[i][f].Data)
		}
	}
}
