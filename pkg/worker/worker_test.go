package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/joripage/fixsim/pkg/repo"
	"github.com/joripage/fixsim/pkg/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventRecordRepo struct {
	rows []*repo.EventRecord
	err  error
}

func (f *fakeEventRecordRepo) BulkCreate(ctx context.Context, records []*repo.EventRecord) ([]*repo.EventRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.rows = append(f.rows, records...)
	return records, nil
}

func (f *fakeEventRecordRepo) ListByRunID(ctx context.Context, runID string) ([]*repo.EventRecord, error) {
	return f.rows, nil
}

func (f *fakeEventRecordRepo) ListRunIDs(ctx context.Context) ([]string, error) {
	return nil, nil
}

type fakeRepo struct {
	er *fakeEventRecordRepo
}

func (f fakeRepo) EventRecord() repo.IEventRecord { return f.er }

func TestHandleEnvelopes(t *testing.T) {
	er := &fakeEventRecordRepo{}
	w := NewWorker(fakeRepo{er: er}, nil)

	envs := []sink.Envelope{
		{RunID: "r1", Position: 0, Record: model.EventRecord{
			Direction:   model.DirectionSent,
			MessageType: model.MsgTypeNewOrderSingle,
			Fields:      model.Fields{model.TagClOrdID: "00000001", model.TagSymbol: "MSFT"},
		}},
		{RunID: "r1", Position: 1, Record: model.EventRecord{
			Direction:   model.DirectionReceived,
			MessageType: model.MsgTypeExecutionReport,
			Fields:      model.Fields{model.TagClOrdID: "00000001"},
		}},
	}
	require.NoError(t, w.handleEnvelopes(context.Background(), envs))
	require.Len(t, er.rows, 2)
	assert.Equal(t, "MSFT", er.rows[0].Symbol)
	assert.Equal(t, 1, er.rows[1].Position)

	require.NoError(t, w.handleEnvelopes(context.Background(), nil))
	assert.Len(t, er.rows, 2)
}

func TestHandleEnvelopesPropagatesError(t *testing.T) {
	er := &fakeEventRecordRepo{err: errors.New("db down")}
	w := NewWorker(fakeRepo{er: er}, nil)
	err := w.handleEnvelopes(context.Background(), []sink.Envelope{{RunID: "r"}})
	assert.Error(t, err)
}
