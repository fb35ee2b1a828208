package fixserver

import "errors"

var (
	ErrUnknownOrder     = errors.New("unknown order")
	ErrTooLateToCancel  = errors.New("too late to cancel")
	ErrUnsupportedBegin = errors.New("unsupported begin string")
	ErrUnsupportedType  = errors.New("unsupported message type")
	ErrSessionDown      = errors.New("loopback session is not up")
)
