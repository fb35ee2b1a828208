package recordlog

import "errors"

var (
	ErrBadHeader = errors.New("bad record log header")
	ErrBadRow    = errors.New("bad record log row")
)
