package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type SweepUnverifiedMessage struct {
	// Now overrides the sweep reference time. Zero uses the configured clock.
	Now time.Time
}

func (e SweepUnverifiedMessage) Type() string { return "user.sweep_unverified" }

// SweepUnverifiedHandler soft-deletes unverified accounts older than the
// configured lifetime. The whole pass is a single batch statement, so a
// persistence error aborts the sweep with nothing committed, and re-running
// on the next tick is safe: the selection is re-derived from current state.
type SweepUnverifiedHandler struct {
	repo     RepositoryManager
	lifetime time.Duration
	location *time.Location
	logger   Logger
}

func NewSweepUnverifiedHandler(repo RepositoryManager, cfg Config) *SweepUnverifiedHandler {
	loc := cfg.GetLocation()
	if loc == nil {
		loc = time.UTC
	}

	return &SweepUnverifiedHandler{
		repo:     repo,
		lifetime: cfg.GetUnverifiedLifetime(),
		location: loc,
		logger:   defLogger{},
	}
}

func (h *SweepUnverifiedHandler) WithLogger(l Logger) *SweepUnverifiedHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *SweepUnverifiedHandler) Execute(ctx context.Context, event SweepUnverifiedMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during unverified sweep")
	default:
		return h.execute(ctx, event)
	}
}

func (h *SweepUnverifiedHandler) execute(ctx context.Context, event SweepUnverifiedMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	now := event.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.In(h.location)
	cutoff := now.Add(-h.lifetime)

	swept, err := h.repo.Users().SweepUnverified(ctx, cutoff, now)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unverified sweep failed")
	}

	if swept > 0 {
		h.logger.Info("soft-deleted %d unverified accounts older than %s", swept, h.lifetime)
	} else {
		h.logger.Debug("unverified sweep found nothing to delete")
	}

	return nil
}

// Job adapts the handler to the Scheduler contract
func (h *SweepUnverifiedHandler) Job() Job {
	return JobFunc(func(ctx context.Context) error {
		return h.Execute(ctx, SweepUnverifiedMessage{})
	})
}
