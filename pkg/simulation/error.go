package simulation

import "errors"

var ErrPanic = errors.New("simulation panicked")
