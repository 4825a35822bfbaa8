package store

import (
	"context"
)

// Store is a document-collection abstraction: keyed reads, equality queries,
// and atomic multi-document batches bounded at BatchLimit per call. Batches
// are atomic per call only; nothing spans two calls.
type Store interface {
	// Documents
	Get(ctx context.Context, collection, id string) (*Document, error)
	Query(ctx context.Context, collection string, filters []Filter, limit int) ([]Document, error)
	BatchWrite(ctx context.Context, collection string, writes []Write) error
	BatchDelete(ctx context.Context, collection string, ids []string) error

	// Run audit trail
	CreateRun(ctx context.Context, run *RunRecord) error
	UpdateRun(ctx context.Context, run *RunRecord) error
	ListRuns(ctx context.Context, limit, offset int) ([]*RunRecord, error)

	// General
	Close() error
}
