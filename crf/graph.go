package crf

import "fmt"

// Node is a graph vertex. Type is the ID of its NodeType in the registry.
type Node struct {
	ID         int
	Type       int
	Features   []float64
	Potentials []float64 // per class, filled by a PotentialComputer
}

// Edge connects two nodes of one graph. From indexes the rows of the edge
// potentials, To the columns.
type Edge struct {
	From       int
	To         int
	Type       int
	Features   []float64
	Potentials Dense[float64] // filled by a PotentialComputer
}

// Endpoint reports whether node id is the From end of e and returns the ID of
// the other end.
func (e *Edge) Endpoint(id int) (isFrom bool, other int) {
	if e.From == id {
		return true, e.To
	}
	return false, e.From
}

// Graph owns its nodes and edges and indexes edges by endpoint.
type Graph struct {
	Name  string
	Group int // used to keep related graphs in the same cross-validation fold

	Nodes []*Node
	Edges []*Edge

	byID     map[int]*Node
	incident map[int][]*Edge
}

// NewGraph creates an empty graph.
func NewGraph(name string) *Graph {
	return &Graph{
		Name:     name,
		byID:     make(map[int]*Node),
		incident: make(map[int][]*Edge),
	}
}

// AddNode adds n to the graph.
func (g *Graph) AddNode(n *Node) error {
	if _, ok := g.byID[n.ID]; ok {
		return fmt.Errorf("%w: %d in graph %q", ErrDuplicateNode, n.ID, g.Name)
	}
	g.Nodes = append(g.Nodes, n)
	g.byID[n.ID] = n
	return nil
}

// AddEdge adds e to the graph and files it under both endpoints.
func (g *Graph) AddEdge(e *Edge) error {
	for _, id := range []int{e.From, e.To} {
		if _, ok := g.byID[id]; !ok {
			return fmt.Errorf("%w: edge endpoint %d in graph %q", ErrUnknownNode, id, g.Name)
		}
	}
	if e.From == e.To {
		return fmt.Errorf("crf: self-loop on node %d in graph %q", e.From, g.Name)
	}
	g.Edges = append(g.Edges, e)
	g.incident[e.From] = append(g.incident[e.From], e)
	g.incident[e.To] = append(g.incident[e.To], e)
	return nil
}

// Node returns the node with the given ID.
func (g *Graph) Node(id int) (*Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// Incident returns the edges touching node id.
func (g *Graph) Incident(id int) []*Edge {
	return g.incident[id]
}

// GroundTruth maps node IDs to their true class.
type GroundTruth map[int]int

// Dataset is the training input: a registry, graphs and one GroundTruth per
// graph.
type Dataset struct {
	Registry *Registry
	Graphs   []*Graph
	Truth    []GroundTruth
}

// NewDataset creates an empty dataset over r.
func NewDataset(r *Registry) *Dataset {
	return &Dataset{Registry: r}
}

// Add validates g against the registry and truth, then appends them.
func (d *Dataset) Add(g *Graph, truth GroundTruth) error {
	if err := d.validateGraph(g, truth); err != nil {
		return err
	}
	d.Graphs = append(d.Graphs, g)
	d.Truth = append(d.Truth, truth)
	return nil
}

// Validate checks every graph of the dataset. Train calls it before building
// the weight layout.
func (d *Dataset) Validate() error {
	if len(d.Graphs) != len(d.Truth) {
		return fmt.Errorf("crf: %d graphs but %d ground truth maps", len(d.Graphs), len(d.Truth))
	}
	for i, g := range d.Graphs {
		if err := d.validateGraph(g, d.Truth[i]); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dataset) validateGraph(g *Graph, truth GroundTruth) error {
	if err := d.Registry.ValidateGraph(g); err != nil {
		return err
	}
	for _, n := range g.Nodes {
		nt := d.Registry.NodeType(n.Type)
		label, ok := truth[n.ID]
		if !ok {
			return fmt.Errorf("%w: node %d in graph %q", ErrMissingLabel, n.ID, g.Name)
		}
		if label < 0 || label >= nt.NumClasses() {
			return fmt.Errorf("%w: node %d in graph %q has class %d, type %q has %d",
				ErrLabelRange, n.ID, g.Name, label, nt.Name, nt.NumClasses())
		}
	}
	return nil
}

// ValidateGraph checks that every node and edge of g references a type of r
// with matching feature lengths and endpoint class counts.
func (r *Registry) ValidateGraph(g *Graph) error {
	for _, n := range g.Nodes {
		nt := r.NodeType(n.Type)
		if nt == nil {
			return fmt.Errorf("%w: node type %d of node %d in graph %q", ErrUnknownType, n.Type, n.ID, g.Name)
		}
		if len(n.Features) != nt.NumFeatures() {
			return fmt.Errorf("%w: node %d in graph %q has %d features, type %q wants %d",
				ErrFeatureLength, n.ID, g.Name, len(n.Features), nt.Name, nt.NumFeatures())
		}
	}
	for _, e := range g.Edges {
		et := r.EdgeType(e.Type)
		if et == nil {
			return fmt.Errorf("%w: edge type %d of edge %d-%d in graph %q", ErrUnknownType, e.Type, e.From, e.To, g.Name)
		}
		if len(e.Features) != et.NumFeatures() {
			return fmt.Errorf("%w: edge %d-%d in graph %q has %d features, type %q wants %d",
				ErrFeatureLength, e.From, e.To, g.Name, len(e.Features), et.Name, et.NumFeatures())
		}
		from, okFrom := g.Node(e.From)
		to, okTo := g.Node(e.To)
		if !okFrom || !okTo {
			return fmt.Errorf("%w: edge %d-%d in graph %q", ErrUnknownNode, e.From, e.To, g.Name)
		}
		rows, cols := et.Shape()
		if r.NodeType(from.Type).NumClasses() != rows || r.NodeType(to.Type).NumClasses() != cols {
			return fmt.Errorf("%w: edge %d-%d in graph %q, type %q is %dx%d",
				ErrEndpointClasses, e.From, e.To, g.Name, et.Name, rows, cols)
		}
	}
	return nil
}
