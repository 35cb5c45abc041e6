// Package dataset reads collections of labeled graphs from JSON files and
// turns them into training data.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/happyhackingspace/pgm/crf"
)

// File is the content of a dataset file.
type File struct {
	NodeTypes []NodeTypeDef `json:"node_types"`
	EdgeTypes []EdgeTypeDef `json:"edge_types"`
	Graphs    []GraphDef    `json:"graphs"`

	groups []int
}

// NodeTypeDef declares a node type.
type NodeTypeDef struct {
	Name     string   `json:"name"`
	Classes  []string `json:"classes"`
	Features []string `json:"features"` // feature names, in vector order
}

// EdgeTypeDef declares an edge type between two node types. Sharing has
// one entry per feature ("independent", "symmetric", "transpose" or
// "transpose:N"); when empty every feature is independent.
type EdgeTypeDef struct {
	Name     string   `json:"name"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Features []string `json:"features"`
	Sharing  []string `json:"sharing,omitempty"`
}

// GraphDef is one graph. Graphs with the same Group stay in the same
// cross-validation fold; an empty group puts the graph on its own.
type GraphDef struct {
	Name  string    `json:"name"`
	Group string    `json:"group,omitempty"`
	Nodes []NodeDef `json:"nodes"`
	Edges []EdgeDef `json:"edges"`
}

// NodeDef is a node. Label is the class name and is required for training.
type NodeDef struct {
	ID       int             `json:"id"`
	Type     string          `json:"type"`
	Features json.RawMessage `json:"features"`
	Label    string          `json:"label,omitempty"`
}

// EdgeDef is an edge; From indexes the rows of the edge type's matrices.
type EdgeDef struct {
	From     int             `json:"from"`
	To       int             `json:"to"`
	Type     string          `json:"type"`
	Features json.RawMessage `json:"features"`
}

// Load reads and checks a dataset file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and checks a dataset document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if _, err := f.Registry(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Registry builds a fresh registry, with zero weights, from the declared types.
func (f *File) Registry() (*crf.Registry, error) {
	r := crf.NewRegistry()
	for _, nt := range f.NodeTypes {
		if r.NodeTypeByName(nt.Name) != nil {
			return nil, fmt.Errorf("dataset: duplicate node type %q", nt.Name)
		}
		if _, err := r.AddNodeType(nt.Name, nt.Classes, len(nt.Features)); err != nil {
			return nil, fmt.Errorf("dataset: %w", err)
		}
	}
	for _, et := range f.EdgeTypes {
		if r.EdgeTypeByName(et.Name) != nil {
			return nil, fmt.Errorf("dataset: duplicate edge type %q", et.Name)
		}
		from, to := r.NodeTypeByName(et.From), r.NodeTypeByName(et.To)
		if from == nil || to == nil {
			return nil, fmt.Errorf("dataset: edge type %q joins unknown node types %q and %q", et.Name, et.From, et.To)
		}
		sharing, err := et.sharing()
		if err != nil {
			return nil, err
		}
		if _, err := r.AddEdgeType(et.Name, from.NumClasses(), to.NumClasses(), sharing); err != nil {
			return nil, fmt.Errorf("dataset: %w", err)
		}
	}
	if _, err := crf.BuildLayout(r); err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	return r, nil
}

func (et EdgeTypeDef) sharing() ([]crf.Sharing, error) {
	sharing := make([]crf.Sharing, len(et.Features))
	if len(et.Sharing) == 0 {
		for i := range sharing {
			sharing[i] = crf.Independent()
		}
		return sharing, nil
	}
	if len(et.Sharing) != len(et.Features) {
		return nil, fmt.Errorf("dataset: edge type %q has %d features and %d sharing entries", et.Name, len(et.Features), len(et.Sharing))
	}
	for i, s := range et.Sharing {
		v, err := crf.ParseSharing(s, i)
		if err != nil {
			return nil, fmt.Errorf("dataset: edge type %q: %w", et.Name, err)
		}
		sharing[i] = v
	}
	return sharing, nil
}

// Dataset builds training data from the graphs at indices, or from every
// graph when indices is nil, over a fresh registry.
func (f *File) Dataset(indices []int) (*crf.Dataset, error) {
	r, err := f.Registry()
	if err != nil {
		return nil, err
	}
	if indices == nil {
		indices = make([]int, len(f.Graphs))
		for i := range indices {
			indices[i] = i
		}
	}

	d := crf.NewDataset(r)
	for _, i := range indices {
		g, truth, err := f.Graph(i, r, true)
		if err != nil {
			return nil, err
		}
		if err := d.Add(g, truth); err != nil {
			return nil, fmt.Errorf("dataset: %w", err)
		}
	}
	return d, nil
}

// Graph builds graph i against r, resolving types by name. With labeled set,
// every node must carry a label and the ground truth is returned.
func (f *File) Graph(i int, r *crf.Registry, labeled bool) (*crf.Graph, crf.GroundTruth, error) {
	gs := f.Graphs[i]
	name := gs.Name
	if name == "" {
		name = fmt.Sprintf("graph-%d", i)
	}

	g := crf.NewGraph(name)
	g.Group = f.Groups()[i]
	var truth crf.GroundTruth
	if labeled {
		truth = make(crf.GroundTruth, len(gs.Nodes))
	}

	for _, ns := range gs.Nodes {
		nt := r.NodeTypeByName(ns.Type)
		def := f.nodeType(ns.Type)
		if nt == nil || def == nil {
			return nil, nil, fmt.Errorf("dataset: graph %q node %d: unknown node type %q", name, ns.ID, ns.Type)
		}
		features, err := vectorize(ns.Features, def.Features)
		if err != nil {
			return nil, nil, fmt.Errorf("dataset: graph %q node %d: %w", name, ns.ID, err)
		}
		if err := g.AddNode(&crf.Node{ID: ns.ID, Type: nt.ID, Features: features}); err != nil {
			return nil, nil, fmt.Errorf("dataset: %w", err)
		}
		if labeled {
			class := nt.Labels.Get(ns.Label)
			if class < 0 {
				return nil, nil, fmt.Errorf("dataset: graph %q node %d: unknown label %q for type %q", name, ns.ID, ns.Label, nt.Name)
			}
			truth[ns.ID] = class
		}
	}

	for _, es := range gs.Edges {
		et := r.EdgeTypeByName(es.Type)
		def := f.edgeType(es.Type)
		if et == nil || def == nil {
			return nil, nil, fmt.Errorf("dataset: graph %q edge %d-%d: unknown edge type %q", name, es.From, es.To, es.Type)
		}
		features, err := vectorize(es.Features, def.Features)
		if err != nil {
			return nil, nil, fmt.Errorf("dataset: graph %q edge %d-%d: %w", name, es.From, es.To, err)
		}
		if err := g.AddEdge(&crf.Edge{From: es.From, To: es.To, Type: et.ID, Features: features}); err != nil {
			return nil, nil, fmt.Errorf("dataset: %w", err)
		}
	}
	return g, truth, nil
}

// Groups returns a group ID per graph for grouped cross-validation.
func (f *File) Groups() []int {
	if len(f.groups) == len(f.Graphs) {
		return f.groups
	}
	groups := make([]int, len(f.Graphs))
	names := crf.NewAlphabet()
	for i, gs := range f.Graphs {
		key := gs.Group
		if key == "" {
			key = fmt.Sprintf("\x00%d", i)
		}
		groups[i] = names.Add(key)
	}
	f.groups = groups
	return groups
}

func (f *File) nodeType(name string) *NodeTypeDef {
	for i := range f.NodeTypes {
		if f.NodeTypes[i].Name == name {
			return &f.NodeTypes[i]
		}
	}
	return nil
}

func (f *File) edgeType(name string) *EdgeTypeDef {
	for i := range f.EdgeTypes {
		if f.EdgeTypes[i].Name == name {
			return &f.EdgeTypes[i]
		}
	}
	return nil
}
