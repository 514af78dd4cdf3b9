package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	models "io.winapps.meicho/internal/models/notifications"
	"io.winapps.meicho/internal/prompt"
)

const jobTimeout = 2 * time.Minute

// PromptSource is the set of open entry stores.
type PromptSource interface {
	CheckPrompts(ctx context.Context) int
	PendingPrompts() map[string]prompt.Prompt
	EvictIdle(maxIdle time.Duration) int
}

type SchedulerConfig struct {
	// SweepSpec rotates expired prompts, normally just after midnight.
	SweepSpec string
	// ReminderSpec pushes still-open prompts, normally in the evening.
	ReminderSpec string
	Location     *time.Location
	// IdleTTL closes stores unused for this long on every sweep. Zero keeps them open.
	IdleTTL time.Duration
}

type Scheduler struct {
	cron     *cron.Cron
	source   PromptSource
	notifier *Notifier
	loc      *time.Location
	idleTTL  time.Duration
	logger   *zap.SugaredLogger
}

// NewScheduler registers the sweep and, when notifier is non-nil, the reminder job.
func NewScheduler(cfg SchedulerConfig, source PromptSource, notifier *Notifier, logger *zap.SugaredLogger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		source:   source,
		notifier: notifier,
		loc:      loc,
		idleTTL:  cfg.IdleTTL,
		logger:   logger,
	}

	if _, err := s.cron.AddFunc(cfg.SweepSpec, s.runSweep); err != nil {
		return nil, fmt.Errorf("invalid prompt sweep schedule %q: %w", cfg.SweepSpec, err)
	}
	if notifier != nil {
		if _, err := s.cron.AddFunc(cfg.ReminderSpec, s.runReminder); err != nil {
			return nil, fmt.Errorf("invalid prompt reminder schedule %q: %w", cfg.ReminderSpec, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Infow("prompt scheduler started", "jobs", len(s.cron.Entries()), "timezone", s.loc.String())
}

// Stop halts scheduling and returns a context that is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Sweep closes idle stores, then rotates prompts whose day has ended.
func (s *Scheduler) Sweep(ctx context.Context) int {
	evicted := 0
	if s.idleTTL > 0 {
		evicted = s.source.EvictIdle(s.idleTTL)
	}
	rotated := s.source.CheckPrompts(ctx)
	s.logger.Infow("prompt sweep finished", "rotated", rotated, "evicted", evicted)
	return rotated
}

// Remind sends the pending prompt of every open store to its owner's device.
func (s *Scheduler) Remind(ctx context.Context) (int, error) {
	if s.notifier == nil {
		return 0, nil
	}
	pending := s.source.PendingPrompts()
	reminders := make(map[string]models.DailyPrompt, len(pending))
	for owner, p := range pending {
		y, m, d := p.ExpiresAt.Add(-time.Nanosecond).In(s.loc).Date()
		reminders[owner] = models.DailyPrompt{
			Prompt:    p.Text,
			Date:      time.Date(y, m, d, 0, 0, 0, 0, s.loc),
			ExpiresAt: p.ExpiresAt,
		}
	}

	sent, err := s.notifier.SendDailyPrompts(ctx, reminders)
	if err != nil {
		s.logger.Errorw("daily prompt reminder failed", "pending", len(pending), "error", err)
		return sent, err
	}
	s.logger.Infow("daily prompt reminder finished", "pending", len(pending), "sent", sent)
	return sent, nil
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	s.Sweep(ctx)
}

func (s *Scheduler) runReminder() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	_, _ = s.Remind(ctx)
}
