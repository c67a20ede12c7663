package exercise

import "errors"

// Sentinel kinds for catalogue errors.
var (
	ErrLoadCatalog    = errors.New("failed to load exercise catalog")
	ErrInvalidCatalog = errors.New("invalid exercise catalog")
)
