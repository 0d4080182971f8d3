package report

import "errors"

var (
	ErrEmptyReport    = errors.New("empty report")
	ErrNoKernels      = errors.New("report contains no kernels")
	ErrKernelIndex    = errors.New("kernel index out of range")
	ErrMissingColumn  = errors.New("required column missing")
	ErrMalformedValue = errors.New("malformed value")
)
