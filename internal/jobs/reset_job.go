package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Resetter wipes all stored sessions.
type Resetter interface {
	ResetAll(ctx context.Context) (int64, error)
}

// SessionResetJob periodically clears the session store so abandoned
// sessions do not pile up.
type SessionResetJob struct {
	resetter Resetter
	schedule string
	log      *zap.Logger
	cron     *cron.Cron
}

func NewSessionResetJob(resetter Resetter, schedule string, log *zap.Logger) *SessionResetJob {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionResetJob{
		resetter: resetter,
		schedule: schedule,
		log:      log,
		cron:     cron.New(),
	}
}

// Start schedules the job. An empty schedule disables it.
func (j *SessionResetJob) Start() error {
	if j.schedule == "" {
		j.log.Info("session reset schedule not set, skipping scheduler")
		return nil
	}

	if _, err := j.cron.AddFunc(j.schedule, func() {
		if _, err := j.Run(context.Background()); err != nil {
			j.log.Error("scheduled session reset failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule session reset: %w", err)
	}

	j.cron.Start()
	j.log.Info("session reset job started", zap.String("schedule", j.schedule))
	return nil
}

// Stop waits for a running reset to finish.
func (j *SessionResetJob) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
	}
}

// Run performs a single reset.
func (j *SessionResetJob) Run(ctx context.Context) (int64, error) {
	return j.resetter.ResetAll(ctx)
}
