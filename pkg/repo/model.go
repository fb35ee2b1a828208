package repo

import (
	"time"

	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/quickfixgo/enum"
)

// EventRecord is the persisted row of one mirrored record.
type EventRecord struct {
	ID             int64             `gorm:"primaryKey"`
	RunID          string            `gorm:"column:run_id;uniqueIndex:idx_event_records_run_position"`
	Position       int               `gorm:"column:position;uniqueIndex:idx_event_records_run_position"`
	Direction      string            `gorm:"column:direction"`
	MessageType    string            `gorm:"column:message_type"`
	SequenceNumber int               `gorm:"column:sequence_number"`
	SendingTime    *time.Time        `gorm:"column:sending_time"`
	ClOrdID        string            `gorm:"column:cl_ord_id"`
	Symbol         string            `gorm:"column:symbol"`
	Fields         map[string]string `gorm:"column:fields;serializer:json"`
	CreatedAt      time.Time         `gorm:"column:created_at"`
}

func (EventRecord) TableName() string {
	return "event_records"
}

func NewEventRecord(runID string, position int, rec model.EventRecord) *EventRecord {
	row := &EventRecord{
		RunID:          runID,
		Position:       position,
		Direction:      string(rec.Direction),
		MessageType:    string(rec.MessageType),
		SequenceNumber: rec.SequenceNumber,
		ClOrdID:        rec.CorrelationID(),
		Symbol:         rec.Symbol(),
		Fields:         make(map[string]string, len(rec.Fields)),
	}
	if !rec.SendingTime.IsZero() {
		ts := rec.SendingTime.UTC()
		row.SendingTime = &ts
	}
	for t, v := range rec.Fields {
		row.Fields[t.String()] = v
	}
	return row
}

// Record converts the row back. Unknown tag keys are dropped.
func (r *EventRecord) Record() (model.EventRecord, error) {
	dir, err := model.ParseDirection(r.Direction)
	if err != nil {
		return model.EventRecord{}, err
	}
	rec := model.EventRecord{
		Direction:      dir,
		MessageType:    enum.MsgType(r.MessageType),
		SequenceNumber: r.SequenceNumber,
		Fields:         make(model.Fields, len(r.Fields)),
	}
	if r.SendingTime != nil {
		rec.SendingTime = r.SendingTime.UTC()
	}
	for k, v := range r.Fields {
		if t, ok := model.ParseTag(k); ok {
			rec.Fields.Set(t, v)
		}
	}
	return rec, nil
}
