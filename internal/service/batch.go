package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/trogers1052/vault-valuation-service/internal/lock"
	"github.com/trogers1052/vault-valuation-service/internal/models"
)

// ErrBatchInFlight is returned when a batch run is already active
var ErrBatchInFlight = errors.New("fee accrual batch already running")

// AccrualCalculator computes the current accrual of one vault
type AccrualCalculator interface {
	GetFeeAccrual(ctx context.Context, vaultIndex int) (*models.FeeAccrualResult, error)
}

// BatchReport summarizes one batch run
type BatchReport struct {
	RunID        string    `json:"run_id"`
	Vaults       int       `json:"vaults"`
	Processed    int       `json:"processed"`
	Failed       int       `json:"failed"`
	FailedVaults []int     `json:"failed_vaults,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// BatchRecalculator recomputes fee accrual for every active vault. Runs
// never overlap: a run requested while another holds the lock is skipped.
type BatchRecalculator struct {
	vaults     VaultConfigStore
	accruals   AccrualCalculator
	snapshots  SnapshotStore
	publisher  AccrualPublisher
	lock        lock.Locker
	lockRefresh time.Duration
	vaultDelay  time.Duration
	observer    Observer
	logger      *slog.Logger
	now        func() time.Time
	newRunID   func() string
}

// BatchDeps groups the collaborators of a BatchRecalculator. Publisher may
// be nil. A positive LockRefresh renews the lock at that period for as long
// as a run lasts; it must be shorter than the lock's expiry.
type BatchDeps struct {
	Vaults      VaultConfigStore
	Accruals    AccrualCalculator
	Snapshots   SnapshotStore
	Publisher   AccrualPublisher
	Lock        lock.Locker
	LockRefresh time.Duration
	VaultDelay  time.Duration
	Observer    Observer
}

// NewBatchRecalculator creates a BatchRecalculator
func NewBatchRecalculator(deps BatchDeps, logger *slog.Logger) *BatchRecalculator {
	l := deps.Lock
	if l == nil {
		l = lock.NewInFlightGuard()
	}
	observer := deps.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	return &BatchRecalculator{
		vaults:      deps.Vaults,
		accruals:    deps.Accruals,
		snapshots:   deps.Snapshots,
		publisher:   deps.Publisher,
		lock:        l,
		lockRefresh: deps.LockRefresh,
		vaultDelay:  deps.VaultDelay,
		observer:    observer,
		logger:      logger.With("component", "fee_batch"),
		now:         time.Now,
		newRunID:    func() string { return uuid.NewString() },
	}
}

// Run processes all active vaults in index order, pausing vaultDelay between
// vaults. A failing vault is logged and counted; it does not stop the run.
// Losing the lock mid-run stops the run with lock.ErrNotHeld.
func (b *BatchRecalculator) Run(ctx context.Context) (*BatchReport, error) {
	acquired, err := b.lock.TryAcquire(ctx)
	if err != nil {
		b.observer.RecordBatchRun("error", 0)
		return nil, err
	}
	if !acquired {
		b.observer.RecordBatchRun("skipped", 0)
		b.logger.Info("fee accrual batch already running, skipping")
		return nil, ErrBatchInFlight
	}
	defer func() {
		if err := b.lock.Release(context.WithoutCancel(ctx)); err != nil {
			b.logger.Warn("failed to release batch lock", "error", err)
		}
	}()

	report := &BatchReport{RunID: b.newRunID(), StartedAt: b.now().UTC()}
	logger := b.logger.With("run_id", report.RunID)

	if b.lockRefresh > 0 {
		runCtx, stop := b.keepLockAlive(ctx, logger)
		defer stop()
		ctx = runCtx
	}

	vaults, err := b.vaults.GetActiveVaults(ctx)
	if err != nil {
		b.observer.RecordBatchRun("error", 0)
		return nil, err
	}
	report.Vaults = len(vaults)
	logger.Info("fee accrual batch started", "vaults", len(vaults))

	for i, v := range vaults {
		if i > 0 {
			if err := sleepContext(ctx, b.vaultDelay); err != nil {
				err = context.Cause(ctx)
				logger.Warn("fee accrual batch interrupted", "processed", report.Processed, "error", err)
				report.FinishedAt = b.now().UTC()
				b.observer.RecordBatchRun("interrupted", report.FinishedAt.Sub(report.StartedAt))
				return report, err
			}
		}

		if err := b.processVault(ctx, report.RunID, v); err != nil {
			report.Failed++
			report.FailedVaults = append(report.FailedVaults, v.VaultIndex)
			b.observer.RecordError("fee_batch", "vault_failed")
			logger.Error("fee accrual failed for vault",
				"vault_id", v.VaultID,
				"vault_index", v.VaultIndex,
				"error", err,
			)
			continue
		}
		report.Processed++
	}

	report.FinishedAt = b.now().UTC()
	b.observer.RecordBatchRun("completed", report.FinishedAt.Sub(report.StartedAt))
	logger.Info("fee accrual batch finished",
		"processed", report.Processed,
		"failed", report.Failed,
		"duration_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	)
	return report, nil
}

// keepLockAlive refreshes the lock every lockRefresh until stop is called.
// The returned context is cancelled with lock.ErrNotHeld if the lock is lost.
func (b *BatchRecalculator) keepLockAlive(ctx context.Context, logger *slog.Logger) (context.Context, func()) {
	runCtx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(b.lockRefresh)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
			}

			err := b.lock.Refresh(runCtx)
			switch {
			case err == nil:
			case errors.Is(err, lock.ErrNotHeld):
				b.observer.RecordError("fee_batch", "lock_lost")
				logger.Error("batch lock lost, stopping run", "error", err)
				cancel(err)
				return
			case runCtx.Err() != nil:
				return
			default:
				// transient; the next tick retries before the ttl runs out
				logger.Warn("failed to refresh batch lock", "error", err)
			}
		}
	}()

	return runCtx, func() {
		cancel(nil)
		<-done
	}
}

func (b *BatchRecalculator) processVault(ctx context.Context, runID string, v *models.VaultConfig) error {
	result, err := b.accruals.GetFeeAccrual(ctx, v.VaultIndex)
	if err != nil {
		return err
	}
	if result.VaultID == "" {
		result.VaultID = v.VaultID
	}

	if _, err := b.snapshots.CreateFeeAccrualSnapshot(ctx, runID, result); err != nil {
		return err
	}

	if b.publisher != nil {
		if err := b.publisher.PublishFeeAccrual(ctx, result); err != nil {
			// snapshot is already stored; the event is best effort
			b.observer.RecordError("fee_batch", "publish_failed")
			b.logger.Warn("failed to publish fee accrual event",
				"vault_index", v.VaultIndex,
				"error", err,
			)
		}
	}
	return nil
}

// Start runs the batch every interval until ctx is cancelled
func (b *BatchRecalculator) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.logger.Info("fee accrual scheduler started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("fee accrual scheduler stopped")
			return
		case <-ticker.C:
			if _, err := b.Run(ctx); err != nil && !errors.Is(err, ErrBatchInFlight) && ctx.Err() == nil {
				b.logger.Error("scheduled fee accrual batch failed", "error", err)
			}
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
