package lbfgs

import "fmt"

// Status is the terminal code returned by Minimize. Non-negative values are
// successful terminations; negative values are errors. The numeric values
// match liblbfgs so codes can be compared across implementations.
type Status int

const (
	StatusConvergence      Status = 0
	StatusStop             Status = 1
	StatusAlreadyMinimized Status = 2

	StatusUnknownError        Status = -1024
	StatusCanceled            Status = -1021
	StatusInvalidN            Status = -1020
	StatusInvalidEpsilon      Status = -1017
	StatusInvalidTestPeriod   Status = -1016
	StatusInvalidDelta        Status = -1015
	StatusInvalidLineSearch   Status = -1014
	StatusInvalidMinStep      Status = -1013
	StatusInvalidMaxStep      Status = -1012
	StatusInvalidFtol         Status = -1011
	StatusInvalidWolfe        Status = -1010
	StatusInvalidMaxLineSrch  Status = -1007
	StatusMinimumStep         Status = -1000
	StatusMaximumStep         Status = -999
	StatusMaximumLineSearch   Status = -998
	StatusMaxIterations       Status = -997
	StatusIncreaseGradient    Status = -994
	StatusInvalidMemory       Status = -993
	StatusNonFiniteObjective  Status = -992
	StatusInvalidMaxIteration Status = -991
)

var statusText = map[Status]string{
	StatusConvergence:         "convergence",
	StatusStop:                "stopped by criteria",
	StatusAlreadyMinimized:    "already minimized",
	StatusUnknownError:        "unknown error",
	StatusCanceled:            "canceled",
	StatusInvalidN:            "invalid number of variables",
	StatusInvalidEpsilon:      "invalid epsilon",
	StatusInvalidTestPeriod:   "invalid past",
	StatusInvalidDelta:        "invalid delta",
	StatusInvalidLineSearch:   "invalid line search",
	StatusInvalidMinStep:      "invalid min step",
	StatusInvalidMaxStep:      "invalid max step",
	StatusInvalidFtol:         "invalid ftol",
	StatusInvalidWolfe:        "invalid wolfe",
	StatusInvalidMaxLineSrch:  "invalid max line search",
	StatusMinimumStep:         "line search step below minimum",
	StatusMaximumStep:         "line search step above maximum",
	StatusMaximumLineSearch:   "line search reached maximum evaluations",
	StatusMaxIterations:       "maximum number of iterations",
	StatusIncreaseGradient:    "search direction increases objective",
	StatusInvalidMemory:       "invalid memory size",
	StatusNonFiniteObjective:  "objective is not finite at the starting point",
	StatusInvalidMaxIteration: "invalid max iterations",
}

// String returns a human-readable description of the status.
func (s Status) String() string {
	if t, ok := statusText[s]; ok {
		return t
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// IsError reports whether s is an error code.
func (s Status) IsError() bool {
	return s < 0
}
