package scheduler

import (
	"context"
	"time"

	"lead_qualification_bot/internal/domain/participant"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// RecoveryJob periodically re-arms reminder task sets for sessions that were
// in flight when the process last stopped. Timers are process-local, so
// after a restart the durable started_at anchor is the only record of
// pending nudges.
type RecoveryJob struct {
	cronEngine      *cron.Cron
	participantRepo participant.Repository
	reminders       *ReminderScheduler
	logger          *logrus.Entry
	cronSpec        string
}

func NewRecoveryJob(
	participantRepo participant.Repository,
	reminders *ReminderScheduler,
	logger *logrus.Entry,
	cronSpec string, // e.g., "*/5 * * * *" (every 5 minutes)
) *RecoveryJob {
	return &RecoveryJob{
		cronEngine:      cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		participantRepo: participantRepo,
		reminders:       reminders,
		logger:          logger,
		cronSpec:        cronSpec,
	}
}

func (j *RecoveryJob) Start() {
	j.logger.Info("Starting reminder recovery job...")

	_, err := j.cronEngine.AddFunc(j.cronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute) // Context for the sweep
		defer cancel()
		j.sweep(ctx)
	})
	if err != nil {
		j.logger.Fatalf("Could not add reminder recovery cron job: %v", err)
	}

	j.cronEngine.Start()
	j.logger.Info("Reminder recovery job started.")
}

// sweep re-arms task sets from the persisted anchor for every stalled
// session that has none in memory. Overdue tiers fire immediately and are
// filtered by the dispatcher's sent-flag checks, so re-arming is idempotent.
func (j *RecoveryJob) sweep(ctx context.Context) {
	stalled, err := j.participantRepo.ListStalled(ctx, time.Now())
	if err != nil {
		j.logger.WithError(err).Error("Failed to list stalled sessions for reminder recovery")
		return
	}

	recovered := 0
	for _, p := range stalled {
		if !p.SessionStartedAt.Valid {
			continue
		}
		if j.reminders.Active(p.ID) {
			continue // Task set already armed in this process
		}
		j.reminders.ScheduleAll(p.ID, p.SessionStartedAt.Time)
		recovered++
	}
	if recovered > 0 {
		j.logger.WithField("count", recovered).Info("Re-armed reminder task sets after restart")
	}
}

func (j *RecoveryJob) Stop() {
	j.logger.Info("Stopping reminder recovery job...")
	ctx := j.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	j.logger.Info("Reminder recovery job gracefully stopped.")
}
