package storage

import (
	"context"

	"chainlens/internal/history"
)

// Repository defines the interface for all storage operations
type Repository interface {
	// Account history archive
	SaveOperations(ctx context.Context, account string, ops []history.Operation) error
	LatestIndex(ctx context.Context, account string) (uint64, bool, error)
	ListOperations(ctx context.Context, account string, opType *string, limit, offset int) ([]history.Operation, error)
	CountOperations(ctx context.Context, account string, opType *string) (int, error)

	// Health & Maintenance
	Ping(ctx context.Context) error
	Close() error
}
