package fracture

import "errors"

var (
	ErrUnknownShape    = errors.New("fracture: unknown shape kind")
	ErrInvalidSettings = errors.New("fracture: invalid settings")
	ErrNoScene         = errors.New("fracture: nil scene")
	ErrNoEngine        = errors.New("fracture: nil engine")
)
