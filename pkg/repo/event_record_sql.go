package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventRecordSQLRepo struct {
	db *gorm.DB
}

func NewEventRecordSQLRepo(db *gorm.DB) *EventRecordSQLRepo {
	return &EventRecordSQLRepo{
		db: db,
	}
}

func (r *EventRecordSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// BulkCreate ignores rows already stored for the same run and position, so
// redelivered messages are harmless.
func (r *EventRecordSQLRepo) BulkCreate(ctx context.Context, records []*EventRecord) ([]*EventRecord, error) {
	if len(records) == 0 {
		return records, nil
	}
	return records, r.dbWithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(records).Error
}

func (r *EventRecordSQLRepo) ListByRunID(ctx context.Context, runID string) ([]*EventRecord, error) {
	var out []*EventRecord
	err := r.dbWithContext(ctx).
		Where("run_id = ?", runID).
		Order("position").
		Find(&out).Error
	return out, err
}

func (r *EventRecordSQLRepo) ListRunIDs(ctx context.Context) ([]string, error) {
	var out []string
	err := r.dbWithContext(ctx).
		Model(&EventRecord{}).
		Distinct("run_id").
		Order("run_id").
		Pluck("run_id", &out).Error
	return out, err
}
