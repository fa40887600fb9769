package budget

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ResetScheduler resets committed budget totals on a cron schedule, marking
// the start of each budget period (e.g., monthly billing cycles).
type ResetScheduler struct {
	ledger   *Ledger
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool

	// onReset, when set, runs after each reset. Used to persist the
	// zeroed accounts.
	onReset func()
}

// NewResetScheduler creates a scheduler resetting the ledger on the given
// cron expression.
//
// Common expressions:
//   - "0 0 1 * *"  - Monthly on the 1st at midnight
//   - "0 0 * * 1"  - Weekly on Monday at midnight
//   - "0 0 * * *"  - Daily at midnight
//
// An empty schedule disables scheduled resets.
func NewResetScheduler(ledger *Ledger, schedule string) *ResetScheduler {
	return &ResetScheduler{
		ledger:   ledger,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "budget.scheduler"),
	}
}

// OnReset registers a hook invoked after each scheduled reset.
func (s *ResetScheduler) OnReset(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReset = fn
}

// Start begins scheduled resets. It validates the cron expression and is a
// no-op when no schedule is configured.
func (s *ResetScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("budget reset schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, s.runReset); err != nil {
		return fmt.Errorf("failed to schedule budget reset: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("budget reset scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runReset executes one reset cycle.
func (s *ResetScheduler) runReset() {
	accounts := s.ledger.ResetAll()
	s.logger.Info("scheduled budget reset completed", "accounts", accounts)

	s.mu.Lock()
	hook := s.onReset
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
}

// Stop stops the scheduler and waits for a running reset to complete.
func (s *ResetScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("budget reset scheduler stopped")
	}
}

// NextRun returns the next scheduled reset time, or nil when no reset is
// scheduled.
func (s *ResetScheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
