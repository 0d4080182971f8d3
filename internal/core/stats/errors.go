package stats

import "errors"

var (
	ErrStatNameMismatch = errors.New("stat names differ")
	ErrEmptyStatName    = errors.New("stat name is empty")
)
