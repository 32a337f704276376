package scheduler

import (
	"context"
	"sync"
	"time"

	"lead_qualification_bot/internal/domain/participant"

	"github.com/sirupsen/logrus"
)

const dispatchTimeout = 1 * time.Minute

// ReminderDispatcher delivers a fired tier. Implementations re-check the
// persisted completion status and the tier's sent-flag before any side
// effect, so a late fire after cancellation degrades to a no-op.
type ReminderDispatcher interface {
	DispatchReminder(ctx context.Context, participantID int64, tier participant.ReminderTier) error
}

// taskSet is one generation of armed timers for a participant. A set is
// replaced wholesale on restart: once cancelled is observed under the
// registry lock, none of its tiers may dispatch.
type taskSet struct {
	cancelled bool
	timers    map[participant.ReminderTier]*time.Timer
}

// ReminderScheduler owns the per-participant reminder task sets. The registry
// map is the only shared mutable structure; every schedule, cancel and
// tier-fire cleanup goes through its mutex, while dispatch itself runs
// outside the lock (cooperative cancellation: a tier already past the
// generation check finishes its own deliver/no-op decision).
type ReminderScheduler struct {
	mu         sync.Mutex
	tasks      map[int64]*taskSet
	delays     map[participant.ReminderTier]time.Duration
	dispatcher ReminderDispatcher
	logger     *logrus.Entry
}

func NewReminderScheduler(delays map[participant.ReminderTier]time.Duration, logger *logrus.Entry) *ReminderScheduler {
	if delays == nil {
		delays = participant.DefaultReminderDelays()
	}
	return &ReminderScheduler{
		tasks:  make(map[int64]*taskSet),
		delays: delays,
		logger: logger,
	}
}

// SetDispatcher wires the dispatch target. Called once during startup, after
// the orchestrator (which itself depends on this scheduler) is constructed.
func (s *ReminderScheduler) SetDispatcher(d ReminderDispatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatcher = d
}

// ScheduleAll cancels any existing task set for the participant and arms a
// fresh one, one timer per tier relative to anchor. Delays of tiers already
// in the past are clamped to zero so overdue reminders of a recovered
// session fire immediately (and are still filtered by the dispatcher's
// sent-flag check).
func (s *ReminderScheduler) ScheduleAll(participantID int64, anchor time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(participantID)

	set := &taskSet{timers: make(map[participant.ReminderTier]*time.Timer, len(s.delays))}
	s.tasks[participantID] = set
	for tier, delay := range s.delays {
		tier := tier
		wait := time.Until(anchor.Add(delay))
		if wait < 0 {
			wait = 0
		}
		set.timers[tier] = time.AfterFunc(wait, func() {
			s.fire(participantID, tier, set)
		})
	}
	s.logger.WithFields(logrus.Fields{
		"participant_id": participantID,
		"anchor":         anchor.Format(time.RFC3339),
	}).Debug("Reminder task set armed")
}

// CancelAll cancels and discards all outstanding tasks for the participant.
// Safe to call when none exist.
func (s *ReminderScheduler) CancelAll(participantID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(participantID)
}

func (s *ReminderScheduler) cancelLocked(participantID int64) {
	set, ok := s.tasks[participantID]
	if !ok {
		return
	}
	set.cancelled = true
	for _, timer := range set.timers {
		timer.Stop()
	}
	delete(s.tasks, participantID)
}

// Active reports whether the participant currently has an armed task set.
func (s *ReminderScheduler) Active(participantID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[participantID]
	return ok
}

// fire runs on the timer goroutine of a single tier. It drops out silently
// when its generation was replaced or cancelled before the lock was
// acquired; otherwise it removes its own handle and dispatches.
func (s *ReminderScheduler) fire(participantID int64, tier participant.ReminderTier, set *taskSet) {
	s.mu.Lock()
	if set.cancelled || s.tasks[participantID] != set {
		s.mu.Unlock()
		return
	}
	delete(set.timers, tier)
	if len(set.timers) == 0 {
		delete(s.tasks, participantID)
	}
	dispatcher := s.dispatcher
	s.mu.Unlock()

	logCtx := s.logger.WithFields(logrus.Fields{
		"participant_id": participantID,
		"tier":           tier,
	})
	if dispatcher == nil {
		logCtx.Warn("Reminder fired but no dispatcher is wired")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()
	if err := dispatcher.DispatchReminder(ctx, participantID, tier); err != nil {
		// Delivery failures are logged, never retried, and never touch
		// sibling tiers.
		logCtx.WithError(err).Error("Reminder dispatch failed")
		return
	}
	logCtx.Debug("Reminder tier dispatched")
}
