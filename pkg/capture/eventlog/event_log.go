package eventlog

import (
	"errors"
	"sync"

	"github.com/joripage/fixsim/pkg/capture/model"
)

var ErrLogClosed = errors.New("event log closed")

// Observer is notified of every appended record, in append order, while the
// log lock is held. Observers must not block.
type Observer func(index int, rec model.EventRecord)

// EventLog is the append-only capture sequence. Appends from every goroutine
// are serialized by one mutex; records are read back only after Close.
type EventLog struct {
	mu        sync.Mutex
	records   []model.EventRecord
	observers []Observer
	closed    bool
}

func NewEventLog() *EventLog {
	return &EventLog{}
}

func (l *EventLog) Subscribe(o Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.observers = append(l.observers, o)
}

// Append stores a copy of rec and returns its position in the log.
func (l *EventLog) Append(rec model.EventRecord) (int, error) {
	if err := rec.Validate(); err != nil {
		return -1, err
	}
	rec.Fields = rec.Fields.Clone()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return -1, ErrLogClosed
	}
	idx := len(l.records)
	l.records = append(l.records, rec)
	for _, o := range l.observers {
		o(idx, rec)
	}
	return idx, nil
}

// Close stops further appends. It is safe to call more than once.
func (l *EventLog) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
}

func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.records)
}

// Records returns the captured sequence in append order. Callers must treat
// the returned records as read-only.
func (l *EventLog) Records() []model.EventRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.EventRecord, len(l.records))
	copy(out, l.records)
	return out
}
