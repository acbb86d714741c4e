package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// CronTriggerManager manages one CronTrigger per schedule, all calling the
// same RunFunc.
type CronTriggerManager struct {
	triggers []*CronTrigger
	logger   *slog.Logger
}

// NewCronTriggerManager creates a new CronTriggerManager from a multi-schedule
// specification. See ParseSchedules for the format.
func NewCronTriggerManager(spec string, run RunFunc, logger *slog.Logger) (*CronTriggerManager, error) {
	schedules, err := ParseSchedules(spec)
	if err != nil {
		return nil, err
	}

	triggers := make([]*CronTrigger, 0, len(schedules))
	for _, schedule := range schedules {
		trigger, err := NewCronTrigger(schedule, run, logger)
		if err != nil {
			return nil, fmt.Errorf("creating trigger for '%s': %w", schedule, err)
		}
		triggers = append(triggers, trigger)
	}

	for i, trigger := range triggers {
		logger.Info("trigger registered",
			"index", i,
			"schedule", schedules[i],
			"next_run", trigger.NextRun(),
		)
	}

	return &CronTriggerManager{
		triggers: triggers,
		logger:   logger,
	}, nil
}

// Start launches all triggers. Each trigger runs in its own goroutine.
// Returns immediately. All goroutines exit when ctx is cancelled.
func (m *CronTriggerManager) Start(ctx context.Context) {
	for _, trigger := range m.triggers {
		trigger.Start(ctx)
	}
}

// NextRun returns the earliest scheduled run time across all triggers.
// Returns zero time if there are no triggers.
func (m *CronTriggerManager) NextRun() time.Time {
	if len(m.triggers) == 0 {
		return time.Time{}
	}

	earliest := m.triggers[0].NextRun()
	for i := 1; i < len(m.triggers); i++ {
		next := m.triggers[i].NextRun()
		if next.Before(earliest) {
			earliest = next
		}
	}

	return earliest
}
