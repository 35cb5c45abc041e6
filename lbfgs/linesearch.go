package lbfgs

import (
	"fmt"
	"math"
	"strings"
)

// LineSearch selects the sufficient-decrease test used by the backtracking
// line search.
type LineSearch int

const (
	// BacktrackingArmijo accepts the first step satisfying the Armijo condition.
	BacktrackingArmijo LineSearch = iota + 1
	// BacktrackingWolfe additionally requires the curvature condition.
	BacktrackingWolfe
	// BacktrackingStrongWolfe requires the strong curvature condition.
	BacktrackingStrongWolfe
)

// Backtracking is the default line search (regular Wolfe conditions).
const Backtracking = BacktrackingWolfe

var lineSearchNames = map[LineSearch]string{
	BacktrackingArmijo:      "armijo",
	BacktrackingWolfe:       "wolfe",
	BacktrackingStrongWolfe: "strong-wolfe",
}

func (ls LineSearch) String() string {
	if n, ok := lineSearchNames[ls]; ok {
		return n
	}
	return fmt.Sprintf("linesearch(%d)", int(ls))
}

// ParseLineSearch parses "armijo", "wolfe" or "strong-wolfe".
func ParseLineSearch(s string) (LineSearch, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for ls, name := range lineSearchNames {
		if name == s {
			return ls, nil
		}
	}
	return 0, fmt.Errorf("lbfgs: unknown line search %q", s)
}

const (
	stepDecrease = 0.5
	stepIncrease = 2.1
)

// backtrack searches along d from xp, writing the accepted point into x and
// its gradient into g. It returns the number of evaluations, the new objective
// and the accepted step, or a negative status on failure.
func backtrack(x []float64, f float64, g, d []float64, step float64, xp []float64, eval Objective, p *Params) (int, float64, float64, Status) {
	if step <= 0 {
		return 0, f, step, StatusInvalidLineSearch
	}

	dginit := dot(g, d)
	if dginit > 0 {
		return 0, f, step, StatusIncreaseGradient
	}

	finit := f
	dgtest := p.Ftol * dginit
	count := 0

	for {
		for i := range x {
			x[i] = xp[i] + step*d[i]
		}
		f = eval(x, g)
		count++

		width := stepDecrease
		switch {
		case math.IsNaN(f) || math.IsInf(f, 0) || f > finit+step*dgtest:
			// insufficient decrease, keep shrinking
		case p.LineSearch == BacktrackingArmijo:
			return count, f, step, StatusConvergence
		default:
			dg := dot(g, d)
			switch {
			case dg < p.Wolfe*dginit:
				width = stepIncrease
			case p.LineSearch == BacktrackingWolfe:
				return count, f, step, StatusConvergence
			case dg > -p.Wolfe*dginit:
				// strong wolfe overshoot
			default:
				return count, f, step, StatusConvergence
			}
		}

		if step < p.MinStep {
			return count, f, step, StatusMinimumStep
		}
		if step > p.MaxStep {
			return count, f, step, StatusMaximumStep
		}
		if count >= p.MaxLineSearch {
			return count, f, step, StatusMaximumLineSearch
		}
		step *= width
	}
}
