package fixclient

import "errors"

var (
	ErrNotLoggedOn      = errors.New("fix session not logged on")
	ErrLogonTimeout     = errors.New("timed out waiting for fix logon")
	ErrUnsupportedBegin = errors.New("unsupported fix begin string")
	ErrUnsupportedType  = errors.New("unsupported outbound message type")
	ErrMissingField     = errors.New("missing required field")
)
