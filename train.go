package pgm

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/happyhackingspace/pgm/crf"
	"github.com/happyhackingspace/pgm/internal/dataset"
)

// EvalConfig holds configuration for evaluation.
type EvalConfig struct {
	Folds   int
	Trainer *crf.TrainerConfig // nil uses crf.DefaultTrainerConfig
}

// EvalResult holds cross-validation evaluation results.
type EvalResult struct {
	NodeAccuracy  float64
	GraphAccuracy float64
	NodeCorrect   int
	NodeTotal     int
	GraphCorrect  int
	GraphTotal    int

	// Confusion counts predictions per true class, then predicted class.
	// Classes are named "type/class" when the dataset has several node types.
	Confusion map[string]map[string]int
	Classes   []string
}

// Train trains a model on the labeled graphs of the dataset file at
// dataPath. A nil config uses crf.DefaultTrainerConfig.
//
// When the optimiser ends with an error code, the model holding the last
// accepted weights is returned along with the error.
func Train(ctx context.Context, dataPath string, config *crf.TrainerConfig) (*Model, *crf.Result, error) {
	f, err := dataset.Load(dataPath)
	if err != nil {
		return nil, nil, fmt.Errorf("pgm: %w", err)
	}
	if len(f.Graphs) == 0 {
		return nil, nil, fmt.Errorf("pgm: no graphs found in %s", dataPath)
	}
	d, err := f.Dataset(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("pgm: %w", err)
	}

	res, err := crf.Train(ctx, d, trainerConfig(config))
	if res == nil {
		return nil, nil, fmt.Errorf("pgm: %w", err)
	}
	m := &Model{registry: d.Registry}
	if err != nil {
		return m, res, fmt.Errorf("pgm: %w", err)
	}
	return m, res, nil
}

// Evaluate runs grouped k-fold cross-validation on the dataset file at
// dataPath: graphs sharing a group never straddle train and test folds.
func Evaluate(ctx context.Context, dataPath string, config *EvalConfig) (*EvalResult, error) {
	nFolds := 10
	var tc *crf.TrainerConfig
	if config != nil {
		if config.Folds > 0 {
			nFolds = config.Folds
		}
		tc = config.Trainer
	}

	f, err := dataset.Load(dataPath)
	if err != nil {
		return nil, fmt.Errorf("pgm: %w", err)
	}
	folds := groupKFold(f.Groups(), nFolds)
	if len(folds) < 2 {
		return nil, fmt.Errorf("pgm: cross-validation needs at least 2 groups, %s has %d", dataPath, len(folds))
	}

	result := &EvalResult{Confusion: make(map[string]map[string]int)}
	for k, testIdx := range folds {
		testSet := makeTestSet(len(f.Graphs), testIdx)
		var trainIdx []int
		for i := range f.Graphs {
			if !testSet[i] {
				trainIdx = append(trainIdx, i)
			}
		}

		d, err := f.Dataset(trainIdx)
		if err != nil {
			return nil, fmt.Errorf("pgm: %w", err)
		}
		slog.Debug("Training fold", "fold", k+1, "train", len(trainIdx), "test", len(testIdx))
		if _, err := crf.Train(ctx, d, trainerConfig(tc)); err != nil {
			return nil, fmt.Errorf("pgm: fold %d: %w", k+1, err)
		}

		r := d.Registry
		for _, idx := range testIdx {
			g, truth, err := f.Graph(idx, r, true)
			if err != nil {
				return nil, fmt.Errorf("pgm: %w", err)
			}
			pred := r.Predict(g)
			allCorrect := true
			for _, n := range g.Nodes {
				nt := r.NodeType(n.Type)
				want, got := nt.Labels.Name(truth[n.ID]), nt.Labels.Name(pred[n.ID])
				if len(r.NodeTypes) > 1 {
					want, got = nt.Name+"/"+want, nt.Name+"/"+got
				}
				result.count(want, got)
				if want == got {
					result.NodeCorrect++
				} else {
					allCorrect = false
				}
				result.NodeTotal++
			}
			if allCorrect {
				result.GraphCorrect++
			}
			result.GraphTotal++
		}
	}

	if result.NodeTotal > 0 {
		result.NodeAccuracy = float64(result.NodeCorrect) / float64(result.NodeTotal)
	}
	if result.GraphTotal > 0 {
		result.GraphAccuracy = float64(result.GraphCorrect) / float64(result.GraphTotal)
	}
	for cls := range result.Confusion {
		result.Classes = append(result.Classes, cls)
	}
	slices.Sort(result.Classes)
	return result, nil
}

func (r *EvalResult) count(want, got string) {
	if r.Confusion[want] == nil {
		r.Confusion[want] = make(map[string]int)
	}
	r.Confusion[want][got]++
	if r.Confusion[got] == nil {
		r.Confusion[got] = make(map[string]int)
	}
}

func trainerConfig(config *crf.TrainerConfig) crf.TrainerConfig {
	if config == nil {
		return crf.DefaultTrainerConfig()
	}
	return *config
}

func groupKFold(groups []int, nFolds int) [][]int {
	uniqueGroups := make(map[int]bool)
	for _, g := range groups {
		uniqueGroups[g] = true
	}
	sortedGroups := make([]int, 0, len(uniqueGroups))
	for g := range uniqueGroups {
		sortedGroups = append(sortedGroups, g)
	}
	slices.Sort(sortedGroups)

	if nFolds > len(sortedGroups) {
		nFolds = len(sortedGroups)
	}
	if nFolds == 0 {
		return nil
	}

	groupToFold := make(map[int]int)
	for i, g := range sortedGroups {
		groupToFold[g] = i % nFolds
	}

	folds := make([][]int, nFolds)
	for i, g := range groups {
		fold := groupToFold[g]
		folds[fold] = append(folds[fold], i)
	}
	return folds
}

func makeTestSet(n int, testIdx []int) []bool {
	set := make([]bool, n)
	for _, i := range testIdx {
		set[i] = true
	}
	return set
}
