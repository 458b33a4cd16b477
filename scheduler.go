package accounts

import (
	"context"
	"time"
)

// ClockScheduler fires a job once a day at the schedule's hour/minute,
// evaluated in the schedule's location.
type ClockScheduler struct {
	logger Logger
}

func NewClockScheduler() *ClockScheduler {
	return &ClockScheduler{logger: defLogger{}}
}

func (s *ClockScheduler) WithLogger(l Logger) *ClockScheduler {
	if l != nil {
		s.logger = l
	}
	return s
}

var _ Scheduler = (*ClockScheduler)(nil)

// Run blocks until ctx is done, executing the job at every trigger. A job
// error is logged and the loop keeps going; the next tick retries from
// current state.
func (s *ClockScheduler) Run(ctx context.Context, spec Schedule, job Job) error {
	loc := spec.Location
	if loc == nil {
		loc = time.UTC
	}

	for {
		next := nextTrigger(time.Now().In(loc), spec.Hour, spec.Minute)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := job.Execute(ctx); err != nil {
			s.logger.Error("scheduled job failed: %v", err)
		}
	}
}

func nextTrigger(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
