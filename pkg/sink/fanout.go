package sink

import (
	"context"
	"sync"

	"github.com/gammazero/deque"
	"github.com/joripage/fixsim/pkg/capture/model"
	"go.uber.org/zap"
)

// Fanout buffers envelopes in an unbounded queue and publishes them to every
// sink from a single goroutine, so Enqueue never blocks the capture path.
// Publish errors are logged and counted; mirroring is best effort.
type Fanout struct {
	runID  string
	sinks  []Sink
	logger *zap.Logger

	mu      sync.Mutex
	queue   deque.Deque[Envelope]
	signal  chan struct{}
	closed  bool
	done    chan struct{}
	failed  int
	flushed int
}

func NewFanout(runID string, logger *zap.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fanout{
		runID:  runID,
		sinks:  sinks,
		logger: logger,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go f.drain()
	return f
}

// Observe matches eventlog.Observer.
func (f *Fanout) Observe(index int, rec model.EventRecord) {
	_ = f.Enqueue(Envelope{RunID: f.runID, Position: index, Record: rec})
}

func (f *Fanout) Enqueue(env Envelope) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrFanoutClosed
	}
	f.queue.PushBack(env)
	f.mu.Unlock()

	select {
	case f.signal <- struct{}{}:
	default:
	}
	return nil
}

func (f *Fanout) drain() {
	defer close(f.done)
	for {
		f.mu.Lock()
		for f.queue.Len() > 0 {
			env := f.queue.PopFront()
			f.mu.Unlock()
			f.publish(env)
			f.mu.Lock()
		}
		closed := f.closed
		f.mu.Unlock()
		if closed {
			return
		}
		<-f.signal
	}
}

func (f *Fanout) publish(env Envelope) {
	ok := true
	for _, s := range f.sinks {
		if err := s.Publish(context.Background(), env); err != nil {
			ok = false
			f.logger.Warn("publish record failed",
				zap.String("sink", s.Name()),
				zap.Int("position", env.Position),
				zap.Error(err))
		}
	}
	f.mu.Lock()
	if ok {
		f.flushed++
	} else {
		f.failed++
	}
	f.mu.Unlock()
}

// Stats returns how many envelopes were published everywhere and how many
// failed on at least one sink.
func (f *Fanout) Stats() (flushed, failed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushed, f.failed
}

// Close stops accepting envelopes, waits for the queue to drain or ctx to
// end, then closes every sink.
func (f *Fanout) Close(ctx context.Context) error {
	f.mu.Lock()
	already := f.closed
	f.closed = true
	f.mu.Unlock()
	if already {
		return nil
	}

	select {
	case f.signal <- struct{}{}:
	default:
	}

	var err error
	select {
	case <-f.done:
	case <-ctx.Done():
		err = ctx.Err()
		f.mu.Lock()
		pending := f.queue.Len()
		f.mu.Unlock()
		f.logger.Warn("fanout drain interrupted", zap.Int("pending", pending))
	}

	for _, s := range f.sinks {
		if cerr := s.Close(ctx); cerr != nil {
			f.logger.Warn("close sink failed", zap.String("sink", s.Name()), zap.Error(cerr))
			if err == nil {
				err = cerr
			}
		}
	}
	return err
}
