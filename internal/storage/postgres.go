package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"chainlens/internal/history"
	"chainlens/internal/metrics"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
	CREATE TABLE IF NOT EXISTS account_operations (
		account    TEXT   NOT NULL,
		op_index   BIGINT NOT NULL,
		trx_id     TEXT   NOT NULL,
		op_time    TEXT   NOT NULL,
		op_type    TEXT   NOT NULL,
		op_body    JSONB  NOT NULL,
		PRIMARY KEY (account, op_index)
	);
	CREATE INDEX IF NOT EXISTS account_operations_type_idx
		ON account_operations (account, op_type, op_index);
`

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository and ensures the
// archive schema exists.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &PostgresRepository{
		pool: pool,
	}, nil
}

// SaveOperations writes a batch of replayed operations to the archive.
// Replaying overlapping ranges is harmless: duplicates are skipped.
func (r *PostgresRepository) SaveOperations(ctx context.Context, account string, ops []history.Operation) error {
	if len(ops) == 0 {
		return nil
	}

	query := `
		INSERT INTO account_operations (account, op_index, trx_id, op_time, op_type, op_body)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account, op_index) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, op := range ops {
		body, err := json.Marshal(op.Body)
		if err != nil {
			return fmt.Errorf("failed to marshal op body at %d: %w", op.Index, err)
		}
		batch.Queue(query, account, int64(op.Index), op.TrxID, op.Timestamp, op.Type, body)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range ops {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to save operations for %s: %w", account, err)
		}
	}

	metrics.OperationsArchived.Add(float64(len(ops)))

	return nil
}

// LatestIndex returns the highest archived operation index for the account.
// The second return value is false when nothing is archived yet.
func (r *PostgresRepository) LatestIndex(ctx context.Context, account string) (uint64, bool, error) {
	query := `SELECT op_index FROM account_operations WHERE account = $1 ORDER BY op_index DESC LIMIT 1`

	var index int64
	err := r.pool.QueryRow(ctx, query, account).Scan(&index)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get latest index for %s: %w", account, err)
	}
	return uint64(index), true, nil
}

// ListOperations returns archived operations for an account, oldest first,
// optionally filtered by operation type.
func (r *PostgresRepository) ListOperations(ctx context.Context, account string, opType *string, limit, offset int) ([]history.Operation, error) {
	query := `
		SELECT op_index, trx_id, op_time, op_type, op_body
		FROM account_operations
		WHERE account = $1 AND ($2::text IS NULL OR op_type = $2)
		ORDER BY op_index
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, account, opType, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations for %s: %w", account, err)
	}
	defer rows.Close()

	var ops []history.Operation

	for rows.Next() {
		var op history.Operation
		var index int64
		var body []byte

		if err := rows.Scan(&index, &op.TrxID, &op.Timestamp, &op.Type, &body); err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		op.Index = uint64(index)
		if err := json.Unmarshal(body, &op.Body); err != nil {
			return nil, fmt.Errorf("failed to unmarshal op body: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read operations: %w", err)
	}

	return ops, nil
}

// CountOperations returns how many operations are archived for an account,
// optionally filtered by operation type.
func (r *PostgresRepository) CountOperations(ctx context.Context, account string, opType *string) (int, error) {
	query := `
		SELECT COUNT(*) FROM account_operations
		WHERE account = $1 AND ($2::text IS NULL OR op_type = $2)
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, account, opType).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count operations for %s: %w", account, err)
	}
	return count, nil
}

// Ping verifies database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
