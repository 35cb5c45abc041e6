package pgm

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/happyhackingspace/pgm/crf"
)

const scenesPath = "testdata/scenes.json"

func TestTrainAndLabel(t *testing.T) {
	m, res, err := Train(t.Context(), scenesPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome == crf.Failed {
		t.Fatalf("unexpected outcome %v (%v)", res.Outcome, res.Status)
	}

	modelPath := filepath.Join(t.TempDir(), "model.json")
	if err := m.Save(modelPath); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(modelPath)
	if err != nil {
		t.Fatal(err)
	}

	results, err := loaded.Label(scenesPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 6 {
		t.Fatalf("expected 6 graphs, got %d", len(results))
	}
	for _, r := range results {
		if r.Labels[0] != "cup" || r.Labels[1] != "table" {
			t.Errorf("%s: unexpected labels %v", r.Graph, r.Labels)
		}
		if l, ok := r.Labels[2]; ok && l != "cup" {
			t.Errorf("%s: node 2 labeled %q", r.Graph, l)
		}
	}
}

func TestBeliefsData(t *testing.T) {
	m, _, err := Train(t.Context(), scenesPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(scenesPath)
	if err != nil {
		t.Fatal(err)
	}

	results, err := m.BeliefsData(data)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		for id, probs := range r.Beliefs {
			sum := probs["cup"] + probs["table"]
			if sum < 0.999 || sum > 1.001 {
				t.Errorf("%s node %d: probabilities sum to %v", r.Graph, id, sum)
			}
		}
		if r.Beliefs[0]["cup"] <= 0.5 {
			t.Errorf("%s: expected node 0 to lean towards cup, got %v", r.Graph, r.Beliefs[0])
		}
	}
}

func TestLabelRejectsMismatchedTypes(t *testing.T) {
	m, _, err := Train(t.Context(), scenesPath, nil)
	if err != nil {
		t.Fatal(err)
	}

	doc := `{
  "node_types": [{"name": "object", "classes": ["cup", "table"], "features": ["height"]}],
  "graphs": [{"name": "g", "nodes": [{"id": 0, "type": "object", "features": [0.5]}]}]
}`
	if _, err := m.LabelData([]byte(doc)); err == nil {
		t.Error("expected error for a feature count the model does not know")
	}
}

func TestEvaluate(t *testing.T) {
	result, err := Evaluate(t.Context(), scenesPath, &EvalConfig{Folds: 3})
	if err != nil {
		t.Fatal(err)
	}
	if result.GraphTotal != 6 {
		t.Errorf("expected 6 evaluated graphs, got %d", result.GraphTotal)
	}
	if result.NodeTotal != 15 {
		t.Errorf("expected 15 evaluated nodes, got %d", result.NodeTotal)
	}
	if result.NodeCorrect != result.NodeTotal {
		t.Errorf("expected every node right, got %d/%d", result.NodeCorrect, result.NodeTotal)
	}
	if !reflect.DeepEqual(result.Classes, []string{"cup", "table"}) {
		t.Errorf("unexpected classes %v", result.Classes)
	}
}

func TestEvaluateSingleGroup(t *testing.T) {
	doc := `{
  "node_types": [{"name": "object", "classes": ["cup", "table"], "features": ["height"]}],
  "graphs": [
    {"name": "a", "group": "room", "nodes": [{"id": 0, "type": "object", "features": [0.5], "label": "cup"}]},
    {"name": "b", "group": "room", "nodes": [{"id": 0, "type": "object", "features": [0.9], "label": "table"}]}
  ]
}`
	path := filepath.Join(t.TempDir(), "one-group.json")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Evaluate(t.Context(), path, nil); err == nil {
		t.Error("expected error for a single group")
	}
}

func TestGroupKFold(t *testing.T) {
	folds := groupKFold([]int{0, 0, 1, 2, 2, 3}, 2)
	want := [][]int{{0, 1, 3, 4}, {2, 5}}
	if !reflect.DeepEqual(folds, want) {
		t.Errorf("got %v, want %v", folds, want)
	}
	if got := groupKFold([]int{0, 1}, 10); len(got) != 2 {
		t.Errorf("expected folds capped at the number of groups, got %d", len(got))
	}
}

func TestLoadNonExistent(t *testing.T) {
	_, err := Load("/nonexistent/model.json")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestModelNotInitialized(t *testing.T) {
	m := &Model{}
	if _, err := m.LabelData([]byte(`{}`)); err == nil {
		t.Error("expected error for uninitialized model")
	}
	if err := m.Save(filepath.Join(t.TempDir(), "model.json")); err == nil {
		t.Error("expected error for uninitialized model")
	}
}

func TestEvaluateKeepsNodeTypesApart(t *testing.T) {
	doc := `{
  "node_types": [
    {"name": "item", "classes": ["cup", "other"], "features": ["round", "bias"]},
    {"name": "room", "classes": ["kitchen", "other"], "features": ["sink", "bias"]}
  ],
  "edge_types": [{"name": "in", "from": "item", "to": "room", "features": ["bias"]}],
  "graphs": [
    {"name": "a", "group": "g1", "nodes": [
      {"id": 0, "type": "item", "features": [1, 1], "label": "cup"},
      {"id": 1, "type": "item", "features": [0, 1], "label": "other"},
      {"id": 2, "type": "room", "features": [1, 1], "label": "kitchen"}],
     "edges": [{"from": 0, "to": 2, "type": "in", "features": [1]}]},
    {"name": "b", "group": "g2", "nodes": [
      {"id": 0, "type": "item", "features": [1, 1], "label": "cup"},
      {"id": 1, "type": "item", "features": [0, 1], "label": "other"},
      {"id": 2, "type": "room", "features": [0, 1], "label": "other"}],
     "edges": [{"from": 1, "to": 2, "type": "in", "features": [1]}]}
  ]
}`
	path := filepath.Join(t.TempDir(), "two-types.json")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := Evaluate(t.Context(), path, &EvalConfig{Folds: 2})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"item/other", "room/other", "item/cup"} {
		if _, ok := result.Confusion[want]; !ok {
			t.Errorf("confusion matrix has no row %q: %v", want, result.Classes)
		}
	}
	if _, ok := result.Confusion["other"]; ok {
		t.Errorf("class names of different node types were merged: %v", result.Classes)
	}
	if result.NodeTotal != 6 {
		t.Errorf("expected 6 evaluated nodes, got %d", result.NodeTotal)
	}
}
