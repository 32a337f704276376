package scheduler

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"lead_qualification_bot/internal/domain/participant"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("component", "test")
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls map[participant.ReminderTier]int
	fail  map[participant.ReminderTier]bool
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{
		calls: make(map[participant.ReminderTier]int),
		fail:  make(map[participant.ReminderTier]bool),
	}
}

func (d *recordingDispatcher) DispatchReminder(_ context.Context, _ int64, tier participant.ReminderTier) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[tier]++
	if d.fail[tier] {
		return fmt.Errorf("simulated delivery failure for %s", tier)
	}
	return nil
}

func (d *recordingDispatcher) total() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		n += c
	}
	return n
}

func (d *recordingDispatcher) count(tier participant.ReminderTier) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[tier]
}

func shortDelays() map[participant.ReminderTier]time.Duration {
	return map[participant.ReminderTier]time.Duration{
		participant.ReminderTier10Min:   10 * time.Millisecond,
		participant.ReminderTier2Hours:  20 * time.Millisecond,
		participant.ReminderTier24Hours: 30 * time.Millisecond,
	}
}

func TestScheduleAllFiresEachTierOnce(t *testing.T) {
	dispatcher := newRecordingDispatcher()
	sched := NewReminderScheduler(shortDelays(), testLogger())
	sched.SetDispatcher(dispatcher)

	sched.ScheduleAll(7, time.Now())
	time.Sleep(150 * time.Millisecond)

	for _, tier := range participant.AllReminderTiers() {
		if got := dispatcher.count(tier); got != 1 {
			t.Errorf("tier %s fired %d times, want 1", tier, got)
		}
	}
	if sched.Active(7) {
		t.Error("task set still active after all tiers fired")
	}
}

func TestScheduleAllTwiceLeavesSingleGeneration(t *testing.T) {
	dispatcher := newRecordingDispatcher()
	sched := NewReminderScheduler(shortDelays(), testLogger())
	sched.SetDispatcher(dispatcher)

	// A fast restart replaces the whole set; the superseded generation must
	// never fire.
	now := time.Now()
	sched.ScheduleAll(7, now)
	sched.ScheduleAll(7, now)
	time.Sleep(150 * time.Millisecond)

	if got := dispatcher.total(); got != 3 {
		t.Errorf("expected exactly 3 fires after double ScheduleAll, got %d", got)
	}
}

func TestCancelAllSuppressesPendingFires(t *testing.T) {
	dispatcher := newRecordingDispatcher()
	sched := NewReminderScheduler(shortDelays(), testLogger())
	sched.SetDispatcher(dispatcher)

	sched.ScheduleAll(7, time.Now())
	sched.CancelAll(7)
	if sched.Active(7) {
		t.Error("task set reported active after CancelAll")
	}
	time.Sleep(100 * time.Millisecond)

	if got := dispatcher.total(); got != 0 {
		t.Errorf("cancelled set fired %d times", got)
	}

	// Cancelling with nothing outstanding is a no-op, not an error.
	sched.CancelAll(7)
	sched.CancelAll(99)
}

func TestOverdueTiersFireImmediatelyOnRecovery(t *testing.T) {
	dispatcher := newRecordingDispatcher()
	sched := NewReminderScheduler(shortDelays(), testLogger())
	sched.SetDispatcher(dispatcher)

	// Recovery re-arms from a persisted anchor that may be far in the past.
	sched.ScheduleAll(7, time.Now().Add(-time.Hour))
	time.Sleep(100 * time.Millisecond)

	if got := dispatcher.total(); got != 3 {
		t.Errorf("expected 3 immediate fires for overdue anchor, got %d", got)
	}
}

func TestDispatchFailureDoesNotAffectSiblingTiers(t *testing.T) {
	dispatcher := newRecordingDispatcher()
	dispatcher.fail[participant.ReminderTier10Min] = true
	sched := NewReminderScheduler(shortDelays(), testLogger())
	sched.SetDispatcher(dispatcher)

	sched.ScheduleAll(7, time.Now())
	time.Sleep(150 * time.Millisecond)

	if got := dispatcher.count(participant.ReminderTier2Hours); got != 1 {
		t.Errorf("second tier fired %d times after sibling failure, want 1", got)
	}
	if got := dispatcher.count(participant.ReminderTier24Hours); got != 1 {
		t.Errorf("third tier fired %d times after sibling failure, want 1", got)
	}
}

func TestSchedulersAreIndependentAcrossParticipants(t *testing.T) {
	dispatcher := newRecordingDispatcher()
	sched := NewReminderScheduler(shortDelays(), testLogger())
	sched.SetDispatcher(dispatcher)

	sched.ScheduleAll(1, time.Now())
	sched.ScheduleAll(2, time.Now())
	sched.CancelAll(1)
	time.Sleep(150 * time.Millisecond)

	if got := dispatcher.total(); got != 3 {
		t.Errorf("expected only participant 2's tiers to fire (3), got %d", got)
	}
}
