package config

import "errors"

var (
	ErrInvalidConfig   = errors.New("invalid GPU configuration")
	ErrProfileNotFound = errors.New("GPU configuration profile not found")
)
