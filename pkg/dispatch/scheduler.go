package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/hirewire/notifykit/pkg/prefs"
)

const defaultTickInterval = 30 * time.Second

// Scheduler drives time-triggered dispatch work: releasing quiet-hours
// holds and flushing digest buckets at their boundaries. It is a single
// ticker loop rather than per-event timers, so restarts only need the
// bucket store to recover queued digests.
type Scheduler struct {
	dispatcher *Dispatcher
	interval   time.Duration
	daily      Schedule
	weekly     Schedule
	logger     *slog.Logger
	clock      func() time.Time
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets how often the scheduler wakes up.
func WithTickInterval(interval time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithDailySchedule overrides when daily digests flush.
func WithDailySchedule(schedule Schedule) SchedulerOption {
	return func(s *Scheduler) {
		if schedule != nil {
			s.daily = schedule
		}
	}
}

// WithWeeklySchedule overrides when weekly digests flush.
func WithWeeklySchedule(schedule Schedule) SchedulerOption {
	return func(s *Scheduler) {
		if schedule != nil {
			s.weekly = schedule
		}
	}
}

// WithSchedulerLogger sets the logger for the Scheduler.
func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSchedulerClock overrides the time source, mainly for tests.
func WithSchedulerClock(clock func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewScheduler creates a scheduler for the dispatcher. Daily digests flush
// at 08:00 and weekly digests on Monday 08:00 unless overridden.
func NewScheduler(dispatcher *Dispatcher, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		dispatcher: dispatcher,
		interval:   defaultTickInterval,
		daily:      DailyAt(8, 0),
		weekly:     WeeklyOn(time.Monday, 8, 0),
		logger:     slog.Default(),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks until the context is cancelled. It blocks, so callers run it in
// its own goroutine or errgroup.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.dispatcher == nil {
		return ErrSchedulerNotConfigured
	}

	now := s.clock()
	nextDaily := s.daily.Next(now)
	nextWeekly := s.weekly.Next(now)

	s.logger.LogAttrs(ctx, slog.LevelInfo, "Dispatch scheduler started",
		slog.Duration("interval", s.interval),
		slog.Time("next_daily", nextDaily),
		slog.Time("next_weekly", nextWeekly),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.LogAttrs(ctx, slog.LevelInfo, "Dispatch scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx, &nextDaily, &nextWeekly)
		}
	}
}

// Tick runs one scheduler pass: release due holds, then flush any digest
// cadence whose boundary has passed. Exposed so tests can drive the
// scheduler without real time.
func (s *Scheduler) Tick(ctx context.Context, nextDaily, nextWeekly *time.Time) {
	now := s.clock()

	if released := s.dispatcher.ReleaseDue(ctx, now); released > 0 {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "Released quiet-hours holds",
			slog.Int("count", released),
		)
	}

	if !now.Before(*nextDaily) {
		s.dispatcher.FlushDue(ctx, prefs.FrequencyDaily)
		*nextDaily = s.daily.Next(now)
	}
	if !now.Before(*nextWeekly) {
		s.dispatcher.FlushDue(ctx, prefs.FrequencyWeekly)
		*nextWeekly = s.weekly.Next(now)
	}
}
