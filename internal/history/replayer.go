package history

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"chainlens/internal/metrics"
	"chainlens/internal/rpc"
)

// DefaultBatchSize is the number of operations requested per history fetch.
const DefaultBatchSize = 1000

// Client is the ledger RPC capability the replayer consumes.
// from = -1 addresses the most recent operation; the node returns entries
// ending at the requested index, inclusive, in ascending order.
type Client interface {
	AccountHistory(ctx context.Context, account string, from int64, limit uint32) ([]rpc.HistoryItem, error)
}

// Replayer turns the node's indexed, batch-fetchable operation log into an
// ordered, filterable, lazily-produced sequence. It holds no per-replay
// state: every Replay call establishes a fresh cursor and is independently
// restartable.
type Replayer struct {
	client    Client
	batchSize uint64
}

// NewReplayer creates a replayer. batchSize 0 selects DefaultBatchSize.
func NewReplayer(client Client, batchSize uint64) *Replayer {
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}
	return &Replayer{
		client:    client,
		batchSize: batchSize,
	}
}

// OperationCount returns the index of the account's most recent operation,
// or 0 if the account has no history. Implemented as a single backward fetch
// from the tail.
func (r *Replayer) OperationCount(ctx context.Context, account string) (uint64, error) {
	items, err := r.client.AccountHistory(ctx, account, -1, 0)
	if err != nil {
		return 0, fmt.Errorf("fetch operation count for %s: %w", account, err)
	}
	if len(items) == 0 {
		return 0, nil
	}
	return items[0].Index, nil
}

// Replay returns the account's operations from start onward, oldest first.
// filter may be nil (no filtering), a single operation type tag, or a
// collection of tags; see NormalizeFilter. The sequence suspends at each
// remote batch fetch; a fetch failure is yielded once and terminates the
// sequence. The fetch cursor advances by one batch per fetch regardless of
// how many operations matched the filter.
func (r *Replayer) Replay(ctx context.Context, account string, filter any, start uint64) iter.Seq2[Operation, error] {
	return func(yield func(Operation, error) bool) {
		tags, err := NormalizeFilter(filter)
		if err != nil {
			yield(Operation{}, err)
			return
		}

		// Snapshot the tail once. Operations recorded after this point
		// belong to the next replay.
		maxIndex, err := r.OperationCount(ctx, account)
		if err != nil {
			yield(Operation{}, err)
			return
		}
		if maxIndex == 0 || start >= maxIndex {
			return
		}

		slog.Debug("Replaying account history",
			"account", account,
			"start", start,
			"max_index", maxIndex,
			"batch_size", r.batchSize,
		)

		startIndex := start + r.batchSize
		for i := startIndex; ; i += r.batchSize {
			// The node returns entries ending at the requested index,
			// inclusive, so after the first batch the limit shrinks by one
			// to avoid re-yielding the boundary entry.
			limit := r.batchSize
			if i != startIndex {
				limit = r.batchSize - 1
			}

			items, err := r.client.AccountHistory(ctx, account, int64(i), uint32(limit))
			if err != nil {
				yield(Operation{}, fmt.Errorf("fetch history batch for %s at %d: %w", account, i, err))
				return
			}
			if len(items) == 0 {
				return
			}

			for _, item := range items {
				if item.Index >= maxIndex {
					return
				}
				if tags != nil {
					if _, ok := tags[item.OpType]; !ok {
						continue
					}
				}
				metrics.OperationsReplayed.Inc()
				if !yield(operationFromItem(item), nil) {
					return
				}
			}
		}
	}
}

// ReplayRecent returns the most recent take operations, oldest first.
func (r *Replayer) ReplayRecent(ctx context.Context, account string, filter any, take uint64) iter.Seq2[Operation, error] {
	return func(yield func(Operation, error) bool) {
		count, err := r.OperationCount(ctx, account)
		if err != nil {
			yield(Operation{}, err)
			return
		}
		start := uint64(0)
		if count > take {
			start = count - take
		}
		for op, err := range r.Replay(ctx, account, filter, start) {
			if !yield(op, err) {
				return
			}
		}
	}
}
