package participant

import (
	"context"
	"time"
)

// Repository defines the operations for persisting and retrieving Participant
// records. Updates are patch-style: each method touches only the fields it
// names, last write wins per field.
type Repository interface {
	// Upsert creates the participant on first contact or refreshes the
	// username of an existing one.
	Upsert(ctx context.Context, id int64, username string) error
	GetByID(ctx context.Context, id int64) (*Participant, error)
	HasCompletedSurvey(ctx context.Context, id int64) (bool, error)

	// SaveSurveyResult freezes the answer set and resolves qualification,
	// timestamping completion.
	SaveSurveyResult(ctx context.Context, id int64, answers map[int]string, qualified bool, completedAt time.Time) error
	UpdatePhone(ctx context.Context, id int64, phone string) error
	UpdateComments(ctx context.Context, id int64, comments string) error

	// MarkSessionStarted refreshes the attempt anchor and clears all
	// reminder sent-flags in the same statement.
	MarkSessionStarted(ctx context.Context, id int64, startedAt time.Time) error
	MarkReminderSent(ctx context.Context, id int64, tier ReminderTier) error

	// ListStalled returns participants with an open attempt started before
	// the given time and at least one undelivered reminder tier.
	ListStalled(ctx context.Context, startedBefore time.Time) ([]*Participant, error)
}
