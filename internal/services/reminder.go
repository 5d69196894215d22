package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/plantcare/domain"
)

// ScheduleSource computes the current care schedule.
type ScheduleSource interface {
	GetSchedule(ctx context.Context) domain.ScheduleResponse
}

// Digest summarises one reminder run.
type Digest struct {
	RanAt    time.Time `json:"ran_at"`
	Upcoming int       `json:"upcoming"`
	Overdue  int       `json:"overdue"`
}

// ReminderConfig controls when the digest runs. Schedule accepts cron specs
// with a leading seconds field or descriptors such as "@every 1h".
type ReminderConfig struct {
	Schedule string
	Timeout  time.Duration
}

// Reminder periodically logs overdue and upcoming plant care.
type Reminder struct {
	source ScheduleSource
	logger *zap.Logger
	cron   *cron.Cron
	cfg    ReminderConfig

	mu   sync.RWMutex
	last *Digest
}

func NewReminder(source ScheduleSource, logger *zap.Logger, cfg ReminderConfig) (*Reminder, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 1h"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Reminder{
		source: source,
		logger: logger,
		cfg:    cfg,
		cron:   cron.New(cron.WithSeconds()),
	}

	if _, err := r.cron.AddFunc(cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		r.Run(ctx)
	}); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", cfg.Schedule, err)
	}
	return r, nil
}

// Start launches the cron scheduler.
func (r *Reminder) Start() {
	if r == nil || r.cron == nil {
		return
	}
	r.cron.Start()
	r.logger.Info("reminder started", zap.String("schedule", r.cfg.Schedule))
}

// Stop waits for a running digest to finish or ctx to expire.
func (r *Reminder) Stop(ctx context.Context) {
	if r == nil || r.cron == nil {
		return
	}
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	r.logger.Info("reminder stopped")
}

// Run computes the schedule once and logs it.
func (r *Reminder) Run(ctx context.Context) Digest {
	schedule := r.source.GetSchedule(ctx)
	digest := Digest{
		RanAt:    time.Now().UTC(),
		Upcoming: len(schedule.UpcomingTasks),
		Overdue:  len(schedule.OverdueTasks),
	}

	for _, task := range schedule.OverdueTasks {
		days := 0
		if task.DaysOverdue != nil {
			days = *task.DaysOverdue
		}
		r.logger.Warn("plant care overdue",
			zap.String("plant_id", task.PlantID),
			zap.String("plant_name", task.PlantName),
			zap.String("task", string(task.TaskType)),
			zap.String("due_date", task.DueDate.String()),
			zap.Int("days_overdue", days))
	}
	r.logger.Info("care digest",
		zap.Int("upcoming", digest.Upcoming),
		zap.Int("overdue", digest.Overdue))

	r.mu.Lock()
	r.last = &digest
	r.mu.Unlock()
	return digest
}

// LastDigest returns the most recent run, if any.
func (r *Reminder) LastDigest() *Digest {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return nil
	}
	d := *r.last
	return &d
}
