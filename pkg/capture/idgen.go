package capture

import (
	"fmt"
	"sync/atomic"
)

const (
	defaultIDWidth = 8
	maxIDWidth     = 19
)

// idGenerator hands out zero-padded, strictly increasing correlation IDs.
// IDs compare correctly as strings only while they keep the same width, so
// the generator stops at the largest value that fits.
type idGenerator struct {
	n     atomic.Uint64
	width int
	max   uint64
}

func newIDGenerator(width int) *idGenerator {
	if width <= 0 {
		width = defaultIDWidth
	}
	if width > maxIDWidth {
		width = maxIDWidth
	}
	max := uint64(1)
	for i := 0; i < width; i++ {
		max *= 10
	}
	return &idGenerator{width: width, max: max - 1}
}

func (g *idGenerator) next() (string, error) {
	n := g.n.Add(1)
	if n > g.max {
		return "", fmt.Errorf("%w: more than %d ids of width %d", ErrIDSpaceExhausted, g.max, g.width)
	}
	return fmt.Sprintf("%0*d", g.width, n), nil
}
