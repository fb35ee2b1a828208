package recordlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/joripage/fixsim/pkg/capture/model"
	_ "github.com/mattn/go-sqlite3"
	"github.com/quickfixgo/enum"
)

const schema = `
CREATE TABLE IF NOT EXISTS event_records (
	run_id          TEXT    NOT NULL,
	position        INTEGER NOT NULL,
	direction       TEXT    NOT NULL,
	message_type    TEXT    NOT NULL,
	sequence_number INTEGER NOT NULL,
	sending_time    TEXT    NOT NULL,
	fields          TEXT    NOT NULL,
	PRIMARY KEY (run_id, position)
);`

// Journal keeps captured records of many runs in one SQLite file.
type Journal struct {
	db *sql.DB
}

func OpenJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Save stores records under runID in one transaction, keyed by log position.
func (j *Journal) Save(ctx context.Context, runID string, records []model.EventRecord) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO event_records
		(run_id, position, direction, message_type, sequence_number, sending_time, fields)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, rec := range records {
		fields, err := json.Marshal(rec.Fields)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			runID, i, string(rec.Direction), string(rec.MessageType),
			rec.SequenceNumber, formatTime(rec.SendingTime), string(fields),
		); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Load returns the records of one run in log order.
func (j *Journal) Load(ctx context.Context, runID string) ([]model.EventRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT direction, message_type, sequence_number, sending_time, fields
		FROM event_records WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EventRecord
	for rows.Next() {
		var dir, msgType, sendingTime, fieldsJSON string
		var seq int
		if err := rows.Scan(&dir, &msgType, &seq, &sendingTime, &fieldsJSON); err != nil {
			return nil, err
		}
		direction, err := model.ParseDirection(dir)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRow, err)
		}
		ts, err := parseTime(sendingTime)
		if err != nil {
			return nil, fmt.Errorf("%w: sending time %q", ErrBadRow, sendingTime)
		}
		var raw map[model.Tag]string
		if err := json.Unmarshal([]byte(fieldsJSON), &raw); err != nil {
			return nil, fmt.Errorf("%w: fields: %v", ErrBadRow, err)
		}
		fields := make(model.Fields, len(raw))
		for t, v := range raw {
			fields.Set(t, v)
		}
		out = append(out, model.EventRecord{
			Direction:      direction,
			MessageType:    enum.MsgType(msgType),
			SequenceNumber: seq,
			SendingTime:    ts,
			Fields:         fields,
		})
	}
	return out, rows.Err()
}

// Runs lists the run IDs stored in the journal.
func (j *Journal) Runs(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT DISTINCT run_id FROM event_records ORDER BY run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (j *Journal) Close() error {
	return j.db.Close()
}
