package render

import "errors"

var (
	ErrUnknownFormat = errors.New("unknown output format")
	ErrDotNotFound   = errors.New("graphviz dot executable not found")
	ErrEmptyTree     = errors.New("nothing to render")
)
