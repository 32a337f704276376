package participant

import "time"

// ReminderTier identifies one of the escalating nudges for a stalled session.
type ReminderTier string

const (
	ReminderTier10Min   ReminderTier = "REMINDER_10_MIN"
	ReminderTier2Hours  ReminderTier = "REMINDER_2_HOURS"
	ReminderTier24Hours ReminderTier = "REMINDER_24_HOURS"
)

// AllReminderTiers lists the tiers in escalation order.
func AllReminderTiers() []ReminderTier {
	return []ReminderTier{ReminderTier10Min, ReminderTier2Hours, ReminderTier24Hours}
}

// DefaultReminderDelays are the production delays relative to session start.
func DefaultReminderDelays() map[ReminderTier]time.Duration {
	return map[ReminderTier]time.Duration{
		ReminderTier10Min:   10 * time.Minute,
		ReminderTier2Hours:  2 * time.Hour,
		ReminderTier24Hours: 24 * time.Hour,
	}
}
