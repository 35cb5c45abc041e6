package crf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/happyhackingspace/pgm/lbfgs"
)

// TrainerConfig holds training hyperparameters.
type TrainerConfig struct {
	Lambda        float64 // L2 regularization
	MaxIterations int     // 0 means no limit
	Epsilon       float64 // convergence threshold on ||g|| / max(1, ||x||)
	Memory        int     // L-BFGS correction pairs
	Past          int     // delta stopping test distance, 0 disables it
	Delta         float64
	LineSearch    lbfgs.LineSearch
	WarmStart     bool // start from the registry's weights instead of zero

	// Potentials defaults to ExpLinear.
	Potentials PotentialComputer
	// Progress is called after every iteration; returning false stops training.
	Progress lbfgs.ProgressFunc
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultTrainerConfig returns the default training config: λ = 10,
// backtracking line search and the default L-BFGS tolerances.
func DefaultTrainerConfig() TrainerConfig {
	p := lbfgs.DefaultParams()
	return TrainerConfig{
		Lambda:        DefaultLambda,
		MaxIterations: 100,
		Epsilon:       p.Epsilon,
		Memory:        p.Memory,
		Past:          p.Past,
		Delta:         p.Delta,
		LineSearch:    lbfgs.Backtracking,
	}
}

func (c TrainerConfig) params() lbfgs.Params {
	p := lbfgs.DefaultParams()
	p.Memory = c.Memory
	p.Epsilon = c.Epsilon
	p.Past = c.Past
	p.Delta = c.Delta
	p.MaxIterations = c.MaxIterations
	p.LineSearch = c.LineSearch
	return p
}

// Outcome classifies how an optimisation run ended.
type Outcome int

const (
	Converged Outcome = iota
	StoppedByCriteria
	MaxIterations
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Converged:
		return "converged"
	case StoppedByCriteria:
		return "stopped by criteria"
	case MaxIterations:
		return "maximum iterations"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

func classify(st lbfgs.Status) Outcome {
	switch st {
	case lbfgs.StatusConvergence, lbfgs.StatusAlreadyMinimized:
		return Converged
	case lbfgs.StatusStop:
		return StoppedByCriteria
	case lbfgs.StatusMaxIterations:
		return MaxIterations
	}
	return Failed
}

// Result describes a finished training run. The learned weights are also
// written into the dataset's registry.
type Result struct {
	Outcome     Outcome
	Status      lbfgs.Status
	Fx          float64
	Iterations  int
	Evaluations int
	Layout      *Layout
	X           []float64
}

type stage int

const (
	stageBuildIndex stage = iota
	stageInitParams
	stageOptimize
	stageReport
	stageDone
)

var stageNames = [...]string{"build-index", "init-params", "optimize", "report", "done"}

func (s stage) String() string { return stageNames[s] }

// Train learns the registry's weights from d by minimising the regularised
// negative log pseudo-likelihood with L-BFGS.
//
// Invalid datasets fail before any work is done. When the optimiser ends with
// an error code, the returned Result is still populated, the registry holds
// the last accepted weights and the error is an *OptimizerError.
func Train(ctx context.Context, d *Dataset, config TrainerConfig) (*Result, error) {
	log := config.Logger
	if log == nil {
		log = slog.Default()
	}
	pc := config.Potentials
	if pc == nil {
		pc = ExpLinear{}
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	log.Debug("CRF training stage", "stage", stageBuildIndex)
	layout, err := BuildLayout(d.Registry)
	if err != nil {
		return nil, err
	}
	log.Info("Weight layout built",
		"weights", humanize.Comma(int64(layout.N)),
		"node_types", len(d.Registry.NodeTypes),
		"edge_types", len(d.Registry.EdgeTypes),
		"graphs", len(d.Graphs))

	log.Debug("CRF training stage", "stage", stageInitParams)
	if layout.N == 0 {
		return nil, ErrNoWeights
	}
	var x []float64
	if config.WarmStart {
		x = layout.Flatten(d.Registry)
	} else {
		x = make([]float64, layout.N)
	}

	log.Debug("CRF training stage", "stage", stageOptimize, "linesearch", config.LineSearch)
	obj := NewObjective(d, layout, pc, config.Lambda)
	res := &Result{Layout: layout}
	evaluate := func(x, g []float64) float64 {
		res.Evaluations++
		return obj.Evaluate(x, g)
	}
	progress := func(p lbfgs.Progress) bool {
		res.Iterations = p.Iteration
		args := []any{"iteration", p.Iteration, "fx", p.Fx, "x0", p.X[0], "g0", p.G[0]}
		if len(p.X) > 1 {
			args = append(args, "x1", p.X[1], "g1", p.G[1])
		}
		args = append(args, "xnorm", p.XNorm, "gnorm", p.GNorm, "step", p.Step)
		log.Debug("CRF training iteration", args...)
		if config.Progress != nil {
			return config.Progress(p)
		}
		return true
	}
	fx, st := lbfgs.Minimize(ctx, x, evaluate, progress, config.params())

	log.Debug("CRF training stage", "stage", stageReport)
	res.Status = st
	res.Outcome = classify(st)
	res.Fx = fx
	res.X = x
	d.Registry.SetWeights(layout.Materialize(x))
	report(log, d.Registry, res)

	log.Debug("CRF training stage", "stage", stageDone)
	if res.Outcome == Failed {
		return res, &OptimizerError{Status: st}
	}
	return res, nil
}

func report(log *slog.Logger, r *Registry, res *Result) {
	level := slog.LevelInfo
	if res.Outcome == Failed {
		level = slog.LevelWarn
	}
	log.Log(context.Background(), level, "CRF training finished",
		"outcome", res.Outcome,
		"status", res.Status,
		"code", int(res.Status),
		"fx", res.Fx,
		"iterations", res.Iterations,
		"evaluations", res.Evaluations)

	for _, t := range r.NodeTypes {
		log.Debug("Node type weights", "type", t.Name, "weights", "\n"+t.Weights.String())
	}
	for _, t := range r.EdgeTypes {
		for f, W := range t.Weights {
			log.Debug("Edge type weights", "type", t.Name, "feature", f, "sharing", t.Sharing[f], "weights", "\n"+W.String())
		}
	}
}

// IsOptimizerError reports whether err came from an optimiser error code and
// returns that code.
func IsOptimizerError(err error) (lbfgs.Status, bool) {
	var oe *OptimizerError
	if errors.As(err, &oe) {
		return oe.Status, true
	}
	return 0, false
}
