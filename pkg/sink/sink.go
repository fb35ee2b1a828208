package sink

import (
	"context"
	"errors"

	"github.com/joripage/fixsim/pkg/capture/model"
)

var ErrFanoutClosed = errors.New("fanout closed")

// Envelope is one captured record as mirrored to external systems.
type Envelope struct {
	RunID    string            `json:"run_id"`
	Position int               `json:"position"`
	Record   model.EventRecord `json:"record"`
}

// Key is the partition key used by brokers: the correlation ID when the
// record has one, otherwise the run.
func (e Envelope) Key() string {
	if id := e.Record.CorrelationID(); id != "" {
		return id
	}
	return e.RunID
}

// Sink publishes envelopes to one external system.
type Sink interface {
	Name() string
	Publish(ctx context.Context, env Envelope) error
	Close(ctx context.Context) error
}
