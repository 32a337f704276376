package participant

import (
	"database/sql"
	"time"
)

// Participant represents an end user progressing through the qualification survey.
type Participant struct {
	ID           int64 // Telegram chat ID, primary key
	Username     sql.NullString
	RegisteredAt time.Time

	// Answers holds the collected answers keyed by question number (1..9).
	// Missing keys mean the question has not been answered yet.
	Answers map[int]string

	Phone    sql.NullString
	Comments sql.NullString

	// Qualified stays unresolved (Valid == false) until a survey attempt completes.
	Qualified sql.NullBool

	SurveyCompleted   bool
	SurveyCompletedAt sql.NullTime

	SessionStartedAt sql.NullTime

	Reminder10MinSent bool
	Reminder2HSent    bool
	Reminder24HSent   bool
}

// ReminderSent reports whether the given tier was already delivered for the
// current session attempt.
func (p *Participant) ReminderSent(tier ReminderTier) bool {
	switch tier {
	case ReminderTier10Min:
		return p.Reminder10MinSent
	case ReminderTier2Hours:
		return p.Reminder2HSent
	case ReminderTier24Hours:
		return p.Reminder24HSent
	default:
		return false
	}
}

// AllRemindersSent reports whether every tier was delivered for the current attempt.
func (p *Participant) AllRemindersSent() bool {
	return p.Reminder10MinSent && p.Reminder2HSent && p.Reminder24HSent
}
