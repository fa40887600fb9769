package limits

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"agentgw/costgate/pkg/limits/budget"
	"agentgw/costgate/pkg/limits/ratelimit"
	"agentgw/costgate/pkg/limits/storage"
)

// Manager coordinates the rate limiter, the budget ledger, budget
// persistence, and the scheduled budget reset.
type Manager struct {
	limiter   *ratelimit.Limiter
	ledger    *budget.Ledger
	backend   storage.Backend
	scheduler *budget.ResetScheduler
	logger    *slog.Logger

	snapshotInterval time.Duration

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// ManagerConfig contains configuration for the limits manager.
type ManagerConfig struct {
	// RateLimit configures the limiter. Nil disables rate limiting.
	RateLimit *ratelimit.Config

	// Ledger configures budget limits.
	Ledger budget.Config

	// Backend persists budget accounts. Nil keeps budgets in memory only.
	Backend storage.Backend

	// ResetSchedule is a cron expression for budget period resets.
	// Empty disables scheduled resets.
	ResetSchedule string

	// SnapshotInterval is how often accounts are persisted.
	// Default: 1 minute. Ignored without a backend.
	SnapshotInterval time.Duration
}

// NewManager creates a manager, restores persisted budget accounts, and
// starts the snapshot loop and reset scheduler. Callers must Close the
// manager on shutdown.
func NewManager(ctx context.Context, cfg ManagerConfig) (*Manager, error) {
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = time.Minute
	}

	m := &Manager{
		ledger:           budget.NewLedger(cfg.Ledger),
		backend:          cfg.Backend,
		logger:           slog.Default().With("component", "limits"),
		snapshotInterval: cfg.SnapshotInterval,
		done:             make(chan struct{}),
	}

	if cfg.RateLimit != nil {
		limiter, err := ratelimit.NewLimiter(*cfg.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		m.limiter = limiter
	}

	if m.backend != nil {
		states, err := m.backend.LoadAccounts(ctx)
		if err != nil {
			m.close()
			return nil, fmt.Errorf("failed to restore budget accounts: %w", err)
		}
		m.ledger.Restore(states)
		if len(states) > 0 {
			m.logger.Info("Budget accounts restored", "accounts", len(states))
		}

		m.wg.Add(1)
		go m.snapshotLoop()
	}

	if cfg.ResetSchedule != "" {
		scheduler := budget.NewResetScheduler(m.ledger, cfg.ResetSchedule)
		// Persist zeroed accounts right after a period reset so a crash
		// cannot resurrect the previous period's spend.
		scheduler.OnReset(func() {
			if err := m.Snapshot(context.Background()); err != nil {
				m.logger.Error("Post-reset snapshot failed", "error", err)
			}
		})
		if err := scheduler.Start(ctx); err != nil {
			m.close()
			return nil, fmt.Errorf("failed to start reset scheduler: %w", err)
		}
		m.scheduler = scheduler
	}

	return m, nil
}

// Limiter returns the rate limiter, nil when rate limiting is disabled.
func (m *Manager) Limiter() *ratelimit.Limiter {
	return m.limiter
}

// Ledger returns the budget ledger.
func (m *Manager) Ledger() *budget.Ledger {
	return m.ledger
}

// NextReset returns the next scheduled budget reset time, nil when resets
// are disabled.
func (m *Manager) NextReset() *time.Time {
	if m.scheduler == nil {
		return nil
	}
	return m.scheduler.NextRun()
}

// Snapshot persists the current budget accounts. It is a no-op without a
// backend.
func (m *Manager) Snapshot(ctx context.Context) error {
	if m.backend == nil {
		return nil
	}
	return m.backend.SaveAccounts(ctx, m.ledger.Snapshot())
}

// Close stops background work, takes a final snapshot, and releases the
// storage backend.
func (m *Manager) Close(ctx context.Context) error {
	var closeErr error

	m.closeOnce.Do(func() {
		if m.scheduler != nil {
			m.scheduler.Stop()
		}

		close(m.done)
		m.wg.Wait()

		if m.limiter != nil {
			m.limiter.Close()
		}

		if m.backend != nil {
			if err := m.Snapshot(ctx); err != nil {
				m.logger.Error("Final budget snapshot failed", "error", err)
				closeErr = err
			}
			if err := m.backend.Close(); err != nil && closeErr == nil {
				closeErr = err
			}
		}
	})

	return closeErr
}

// close tears down partially constructed managers on init failure.
func (m *Manager) close() {
	close(m.done)
	m.wg.Wait()
	if m.limiter != nil {
		m.limiter.Close()
	}
}

// snapshotLoop persists budget accounts on a fixed interval.
func (m *Manager) snapshotLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := m.Snapshot(ctx); err != nil {
				m.logger.Error("Budget snapshot failed", "error", err)
			}
			cancel()
		}
	}
}
