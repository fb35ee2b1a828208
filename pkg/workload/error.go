package workload

import "errors"

var ErrInvalidConfig = errors.New("invalid workload config")
