package repo

import "context"

type IEventRecord interface {
	BulkCreate(ctx context.Context, records []*EventRecord) ([]*EventRecord, error)
	ListByRunID(ctx context.Context, runID string) ([]*EventRecord, error)
	ListRunIDs(ctx context.Context) ([]string, error)
}
