package capture

import "errors"

var (
	ErrInvalidOrderSpec = errors.New("invalid order spec")
	ErrUnknownOrder     = errors.New("unknown order")
	ErrNoTransport      = errors.New("no session transport")
	ErrIDSpaceExhausted = errors.New("correlation id space exhausted")
)
