package analytics

import "errors"

var (
	ErrEmptyDataset   = errors.New("no data")
	ErrUnknownPnLMode = errors.New("unknown pnl mode")
)
