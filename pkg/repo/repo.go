package repo

import (
	"gorm.io/gorm"
)

type IRepo interface {
	EventRecord() IEventRecord
}

type Repo struct {
	eventDB *gorm.DB
}

func NewRepo(eventDB *gorm.DB) IRepo {
	return &Repo{
		eventDB: eventDB,
	}
}

func (r *Repo) EventRecord() IEventRecord {
	return NewEventRecordSQLRepo(r.eventDB)
}
