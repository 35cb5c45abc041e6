package crf

import (
	"errors"
	"fmt"

	"github.com/happyhackingspace/pgm/lbfgs"
)

// Sentinel errors. Callers match them with errors.Is; returned errors wrap
// them with the offending type, graph or node.
var (
	// ErrBadShape is returned for weight matrices with a zero dimension.
	ErrBadShape = errors.New("crf: invalid weight shape")

	// ErrNonSquare is returned when symmetric or transposed sharing is
	// requested on a non-square edge weight matrix.
	ErrNonSquare = errors.New("crf: sharing requires a square matrix")

	// ErrBadSharing is returned for a transpose source that is not an
	// earlier feature of the same edge type.
	ErrBadSharing = errors.New("crf: invalid sharing")

	// ErrUnknownType is returned when a node or edge references a type ID
	// missing from the registry.
	ErrUnknownType = errors.New("crf: unknown type")

	// ErrUnknownNode is returned for an edge endpoint missing from the graph.
	ErrUnknownNode = errors.New("crf: unknown node")

	// ErrDuplicateNode is returned when a node ID is added twice.
	ErrDuplicateNode = errors.New("crf: duplicate node")

	// ErrFeatureLength is returned when a feature vector does not match the
	// number of features of its type.
	ErrFeatureLength = errors.New("crf: feature length mismatch")

	// ErrEndpointClasses is returned when an edge type's matrix shape does not
	// match the class counts of the edge's endpoints.
	ErrEndpointClasses = errors.New("crf: edge endpoints do not match edge type shape")

	// ErrMissingLabel is returned when ground truth does not cover a node.
	ErrMissingLabel = errors.New("crf: missing ground truth label")

	// ErrLabelRange is returned for a ground truth class outside the node
	// type's classes.
	ErrLabelRange = errors.New("crf: ground truth label out of range")

	// ErrNoWeights is returned when the registry yields no parameters to learn.
	ErrNoWeights = errors.New("crf: no weights to learn")
)

// OptimizerError reports an optimiser run that ended with an error code.
type OptimizerError struct {
	Status lbfgs.Status
}

func (e *OptimizerError) Error() string {
	return fmt.Sprintf("crf: optimizer terminated with error code %d (%s)", int(e.Status), e.Status)
}
