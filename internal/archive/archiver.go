package archive

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chainlens/internal/history"
	"chainlens/internal/metrics"
	"chainlens/internal/retry"
	"chainlens/internal/storage"
)

// DefaultFlushSize is how many operations accumulate before a storage write.
const DefaultFlushSize = 500

// Archiver keeps accounts' operation logs mirrored into storage. A failed
// sync is retried as a whole by the injected strategy, which always starts
// a fresh replay; an in-flight replay itself never retries.
type Archiver struct {
	replayer  *history.Replayer
	repo      storage.Repository
	strategy  retry.Strategy
	flushSize int
}

// NewArchiver creates an archiver. flushSize 0 selects DefaultFlushSize.
func NewArchiver(replayer *history.Replayer, repo storage.Repository, strategy retry.Strategy, flushSize int) *Archiver {
	if flushSize == 0 {
		flushSize = DefaultFlushSize
	}
	if strategy == nil {
		strategy = retry.NewNoRetryStrategy()
	}
	return &Archiver{
		replayer:  replayer,
		repo:      repo,
		strategy:  strategy,
		flushSize: flushSize,
	}
}

// SyncAccount brings the account's archive up to the current tail of its
// operation log.
func (a *Archiver) SyncAccount(ctx context.Context, account string) error {
	return a.strategy.Execute(ctx, func() error {
		return a.syncOnce(ctx, account)
	})
}

func (a *Archiver) syncOnce(ctx context.Context, account string) error {
	start := time.Now()

	var replayStart uint64
	latest, ok, err := a.repo.LatestIndex(ctx, account)
	if err != nil {
		return fmt.Errorf("load archive position for %s: %w", account, err)
	}
	if ok {
		replayStart = latest + 1
	}

	synced := 0
	batch := make([]history.Operation, 0, a.flushSize)

	for op, err := range a.replayer.Replay(ctx, account, nil, replayStart) {
		if err != nil {
			return err
		}
		batch = append(batch, op)
		if len(batch) == a.flushSize {
			if err := a.repo.SaveOperations(ctx, account, batch); err != nil {
				return err
			}
			synced += len(batch)
			batch = batch[:0]
		}
	}
	if err := a.repo.SaveOperations(ctx, account, batch); err != nil {
		return err
	}
	synced += len(batch)

	metrics.ArchiveSyncDuration.Observe(time.Since(start).Seconds())
	slog.Debug("Archive sync complete",
		"account", account,
		"from_index", replayStart,
		"synced", synced,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// syncWorkers bounds how many accounts sync concurrently in one pass.
const syncWorkers = 4

// syncAll runs one sync pass over every account with a small worker pool.
// Each worker pulls account names from a shared channel until it drains.
func (a *Archiver) syncAll(ctx context.Context, accounts []string) {
	workers := syncWorkers
	if len(accounts) < workers {
		workers = len(accounts)
	}

	names := make(chan string, len(accounts))
	for _, account := range accounts {
		names <- account
	}
	close(names)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for account := range names {
				if err := a.SyncAccount(ctx, account); err != nil {
					if ctx.Err() != nil {
						return
					}
					slog.Error("Archive sync failed",
						"account", account,
						"error", err,
					)
				}
			}
		}()
	}
	wg.Wait()
}

// Run syncs the accounts once immediately, then on every interval tick
// until the context is cancelled. A failing account is logged and skipped;
// the loop keeps serving the others.
func (a *Archiver) Run(ctx context.Context, accounts []string, interval time.Duration) error {
	slog.Info("Starting history archiver",
		"accounts", len(accounts),
		"interval", interval.String(),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		a.syncAll(ctx, accounts)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			slog.Info("Archiver stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
