package analysis

import "errors"

var (
	ErrNilAnalysis = errors.New("nil analysis")
	ErrNoStats     = errors.New("analysis has no stat registry")
)
