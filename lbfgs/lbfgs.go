// Package lbfgs implements limited-memory BFGS minimisation with a
// backtracking line search, driven through evaluate and progress callbacks.
package lbfgs

import (
	"context"
	"math"
)

// Objective evaluates the function at x, writes the gradient into g and
// returns the function value. g has the same length as x.
type Objective func(x, g []float64) float64

// Progress describes the state after an accepted iteration.
type Progress struct {
	Iteration   int
	X           []float64
	G           []float64
	Fx          float64
	XNorm       float64
	GNorm       float64
	Step        float64
	Evaluations int // line-search evaluations spent in this iteration
}

// ProgressFunc is called after every iteration. Returning false stops the
// optimisation with StatusStop. Implementations must not modify X or G.
type ProgressFunc func(p Progress) bool

// Params holds the optimiser settings. Zero values are not defaults; start
// from DefaultParams.
type Params struct {
	Memory        int        // number of correction pairs kept
	Epsilon       float64    // convergence: ||g|| / max(1, ||x||) <= Epsilon
	Past          int        // distance for the delta-based stopping test, 0 disables it
	Delta         float64    // relative decrease threshold for the Past test
	MaxIterations int        // 0 means no limit
	LineSearch    LineSearch // backtracking variant
	MaxLineSearch int        // evaluations per line search
	MinStep       float64
	MaxStep       float64
	Ftol          float64 // sufficient decrease constant
	Wolfe         float64 // curvature constant
}

// DefaultParams returns the liblbfgs defaults with backtracking line search.
func DefaultParams() Params {
	return Params{
		Memory:        6,
		Epsilon:       1e-5,
		Past:          0,
		Delta:         1e-5,
		MaxIterations: 0,
		LineSearch:    Backtracking,
		MaxLineSearch: 40,
		MinStep:       1e-20,
		MaxStep:       1e20,
		Ftol:          1e-4,
		Wolfe:         0.9,
	}
}

func (p *Params) validate(n int) Status {
	switch {
	case n <= 0:
		return StatusInvalidN
	case p.Memory <= 0:
		return StatusInvalidMemory
	case p.Epsilon < 0:
		return StatusInvalidEpsilon
	case p.Past < 0:
		return StatusInvalidTestPeriod
	case p.Delta < 0:
		return StatusInvalidDelta
	case p.MaxIterations < 0:
		return StatusInvalidMaxIteration
	case p.MinStep < 0:
		return StatusInvalidMinStep
	case p.MaxStep < p.MinStep:
		return StatusInvalidMaxStep
	case p.Ftol < 0:
		return StatusInvalidFtol
	case p.MaxLineSearch <= 0:
		return StatusInvalidMaxLineSrch
	}
	switch p.LineSearch {
	case BacktrackingArmijo:
	case BacktrackingWolfe, BacktrackingStrongWolfe:
		if p.Wolfe <= p.Ftol || p.Wolfe >= 1 {
			return StatusInvalidWolfe
		}
	default:
		return StatusInvalidLineSearch
	}
	return StatusConvergence
}

// Minimize minimises eval starting from x, which is updated in place with the
// final accepted point. It returns the objective value at that point and the
// terminal status. When the line search fails, x is restored to the last
// accepted point. ctx is checked once per iteration.
func Minimize(ctx context.Context, x []float64, eval Objective, progress ProgressFunc, params Params) (float64, Status) {
	n := len(x)
	if st := params.validate(n); st != StatusConvergence {
		return 0, st
	}

	g := make([]float64, n)
	xp := make([]float64, n)
	gp := make([]float64, n)
	s := make([]float64, n)
	y := make([]float64, n)
	hist := newHistory(n, params.Memory)

	var pf []float64
	if params.Past > 0 {
		pf = make([]float64, params.Past)
	}

	fx := eval(x, g)
	if math.IsNaN(fx) || math.IsInf(fx, 0) {
		return fx, StatusNonFiniteObjective
	}
	if pf != nil {
		pf[0] = fx
	}

	xnorm := math.Max(norm(x), 1)
	gnorm := norm(g)
	if gnorm/xnorm <= params.Epsilon {
		return fx, StatusAlreadyMinimized
	}

	// Steepest descent for the first step, scaled to unit length.
	d := make([]float64, n)
	for i := range d {
		d[i] = -g[i]
	}
	step := 1 / norm(d)

	for k := 1; ; k++ {
		if ctx.Err() != nil {
			return fx, StatusCanceled
		}

		copy(xp, x)
		copy(gp, g)

		evals, fnew, accepted, st := backtrack(x, fx, g, d, step, xp, eval, &params)
		if st != StatusConvergence {
			copy(x, xp)
			copy(g, gp)
			return fx, st
		}
		fx, step = fnew, accepted

		xnorm = norm(x)
		gnorm = norm(g)
		if progress != nil && !progress(Progress{
			Iteration:   k,
			X:           x,
			G:           g,
			Fx:          fx,
			XNorm:       xnorm,
			GNorm:       gnorm,
			Step:        step,
			Evaluations: evals,
		}) {
			return fx, StatusStop
		}

		if gnorm/math.Max(xnorm, 1) <= params.Epsilon {
			return fx, StatusConvergence
		}

		if pf != nil {
			if params.Past <= k {
				rate := (pf[k%params.Past] - fx) / fx
				if math.Abs(rate) < params.Delta {
					return fx, StatusStop
				}
			}
			pf[k%params.Past] = fx
		}

		if params.MaxIterations != 0 && params.MaxIterations < k+1 {
			return fx, StatusMaxIterations
		}

		for i := range n {
			s[i] = x[i] - xp[i]
			y[i] = g[i] - gp[i]
		}
		hist.update(s, y)
		hist.direction(g, d)
		step = 1
	}
}

// history keeps the last m correction pairs for the two-loop recursion.
type history struct {
	n     int
	m     int
	s     [][]float64
	y     [][]float64
	rho   []float64
	alpha []float64
	k     int
	size  int
}

func newHistory(n, m int) *history {
	h := &history{
		n:     n,
		m:     m,
		s:     make([][]float64, m),
		y:     make([][]float64, m),
		rho:   make([]float64, m),
		alpha: make([]float64, m),
	}
	for i := range m {
		h.s[i] = make([]float64, n)
		h.y[i] = make([]float64, n)
	}
	return h
}

// update stores a correction pair; pairs with non-positive curvature are
// dropped so the implicit Hessian stays positive definite.
func (h *history) update(s, y []float64) {
	sy := dot(s, y)
	if sy <= 0 {
		return
	}
	idx := h.k % h.m
	copy(h.s[idx], s)
	copy(h.y[idx], y)
	h.rho[idx] = 1.0 / sy
	h.k++
	if h.size < h.m {
		h.size++
	}
}

// direction writes -H·g into d.
func (h *history) direction(g, d []float64) {
	for i := range d {
		d[i] = -g[i]
	}
	if h.size == 0 {
		return
	}

	// First loop, newest to oldest
	for i := h.size - 1; i >= 0; i-- {
		idx := h.slot(i)
		h.alpha[i] = h.rho[idx] * dot(h.s[idx], d)
		for j := range h.n {
			d[j] -= h.alpha[i] * h.y[idx][j]
		}
	}

	// Scale by H_0 = (s_k^T y_k) / (y_k^T y_k)
	latest := h.slot(h.size - 1)
	yy := dot(h.y[latest], h.y[latest])
	if yy > 0 {
		gamma := dot(h.s[latest], h.y[latest]) / yy
		for i := range d {
			d[i] *= gamma
		}
	}

	// Second loop, oldest to newest
	for i := range h.size {
		idx := h.slot(i)
		beta := h.rho[idx] * dot(h.y[idx], d)
		for j := range h.n {
			d[j] += (h.alpha[i] - beta) * h.s[idx][j]
		}
	}
}

// slot maps the i-th stored pair (0 = oldest) to its ring buffer index.
func (h *history) slot(i int) int {
	idx := (h.k - h.size + i) % h.m
	if idx < 0 {
		idx += h.m
	}
	return idx
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm(a []float64) float64 {
	return math.Sqrt(dot(a, a))
}
