package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lead_qualification_bot/internal/domain/participant"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors
var ErrParticipantNotFound = fmt.Errorf("participant not found")
var ErrUnknownReminderTier = fmt.Errorf("unknown reminder tier")

const participantColumns = `user_id, username, registered_at, phone,
               ans_1, ans_2, ans_3, ans_4, ans_5, ans_6, ans_7, ans_8, ans_9,
               comments, qual, survey_completed, survey_completed_at, started_at,
               reminder_10min_sent, reminder_2h_sent, reminder_24h_sent`

type PostgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) *PostgresParticipantRepository {
	return &PostgresParticipantRepository{db: db}
}

// Upsert creates the participant on first contact; for an existing row only
// the username is refreshed (last-seen-wins).
func (r *PostgresParticipantRepository) Upsert(ctx context.Context, id int64, username string) error {
	query := `INSERT INTO users (user_id, username, registered_at)
               VALUES ($1, $2, $3)
               ON CONFLICT (user_id) DO UPDATE SET username = EXCLUDED.username`

	var usernameVal sql.NullString
	if username != "" {
		usernameVal = sql.NullString{String: username, Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, query, id, usernameVal, time.Now().UTC()); err != nil {
		return fmt.Errorf("error upserting participant: %w", err)
	}
	return nil
}

func (r *PostgresParticipantRepository) GetByID(ctx context.Context, id int64) (*participant.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM users WHERE user_id = $1`
	p, err := scanParticipant(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("error getting participant by ID: %w", err)
	}
	return p, nil
}

func (r *PostgresParticipantRepository) HasCompletedSurvey(ctx context.Context, id int64) (bool, error) {
	query := `SELECT survey_completed FROM users WHERE user_id = $1`
	var completed bool
	err := r.db.QueryRowContext(ctx, query, id).Scan(&completed)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil // Unknown participant has trivially not completed anything
		}
		return false, fmt.Errorf("error checking survey completion: %w", err)
	}
	return completed, nil
}

// SaveSurveyResult freezes the answer set, resolves qualification and
// timestamps completion in a single statement.
func (r *PostgresParticipantRepository) SaveSurveyResult(ctx context.Context, id int64, answers map[int]string, qualified bool, completedAt time.Time) error {
	query := `UPDATE users
               SET ans_1 = $1, ans_2 = $2, ans_3 = $3, ans_4 = $4, ans_5 = $5,
                   ans_6 = $6, ans_7 = $7, ans_8 = $8, ans_9 = $9,
                   qual = $10, survey_completed = TRUE, survey_completed_at = $11
               WHERE user_id = $12`

	args := make([]interface{}, 0, 12)
	for i := 1; i <= 9; i++ {
		var ans sql.NullString
		if text, ok := answers[i]; ok {
			ans = sql.NullString{String: text, Valid: true}
		}
		args = append(args, ans)
	}
	args = append(args, qualified, completedAt, id)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error saving survey result: %w", err)
	}
	return checkAffected(res)
}

func (r *PostgresParticipantRepository) UpdatePhone(ctx context.Context, id int64, phone string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET phone = $1 WHERE user_id = $2`, phone, id)
	if err != nil {
		return fmt.Errorf("error updating participant phone: %w", err)
	}
	return checkAffected(res)
}

func (r *PostgresParticipantRepository) UpdateComments(ctx context.Context, id int64, comments string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET comments = $1 WHERE user_id = $2`, comments, id)
	if err != nil {
		return fmt.Errorf("error updating participant comments: %w", err)
	}
	return checkAffected(res)
}

// MarkSessionStarted refreshes the attempt anchor; the reminder sent-flags
// are cleared in the same statement so prior bookkeeping cannot leak into
// the new attempt.
func (r *PostgresParticipantRepository) MarkSessionStarted(ctx context.Context, id int64, startedAt time.Time) error {
	query := `UPDATE users
               SET started_at = $1,
                   reminder_10min_sent = FALSE,
                   reminder_2h_sent = FALSE,
                   reminder_24h_sent = FALSE
               WHERE user_id = $2`
	res, err := r.db.ExecContext(ctx, query, startedAt, id)
	if err != nil {
		return fmt.Errorf("error marking session started: %w", err)
	}
	return checkAffected(res)
}

func (r *PostgresParticipantRepository) MarkReminderSent(ctx context.Context, id int64, tier participant.ReminderTier) error {
	var column string
	switch tier {
	case participant.ReminderTier10Min:
		column = "reminder_10min_sent"
	case participant.ReminderTier2Hours:
		column = "reminder_2h_sent"
	case participant.ReminderTier24Hours:
		column = "reminder_24h_sent"
	default:
		return ErrUnknownReminderTier
	}

	query := fmt.Sprintf(`UPDATE users SET %s = TRUE WHERE user_id = $1`, column)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("error marking reminder sent: %w", err)
	}
	return checkAffected(res)
}

// ListStalled returns participants with an open attempt started before the
// given time that still have at least one undelivered reminder tier.
func (r *PostgresParticipantRepository) ListStalled(ctx context.Context, startedBefore time.Time) ([]*participant.Participant, error) {
	query := `SELECT ` + participantColumns + `
               FROM users
               WHERE started_at IS NOT NULL
                 AND started_at < $1
                 AND survey_completed = FALSE
                 AND NOT (reminder_10min_sent AND reminder_2h_sent AND reminder_24h_sent)
               ORDER BY started_at`

	rows, err := r.db.QueryContext(ctx, query, startedBefore)
	if err != nil {
		return nil, fmt.Errorf("error listing stalled participants: %w", err)
	}
	defer rows.Close()

	participants := make([]*participant.Participant, 0)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning stalled participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stalled participants: %w", err)
	}
	return participants, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanParticipant(row rowScanner) (*participant.Participant, error) {
	p := &participant.Participant{}
	answers := make([]sql.NullString, 9)
	err := row.Scan(
		&p.ID, &p.Username, &p.RegisteredAt, &p.Phone,
		&answers[0], &answers[1], &answers[2], &answers[3], &answers[4],
		&answers[5], &answers[6], &answers[7], &answers[8],
		&p.Comments, &p.Qualified, &p.SurveyCompleted, &p.SurveyCompletedAt, &p.SessionStartedAt,
		&p.Reminder10MinSent, &p.Reminder2HSent, &p.Reminder24HSent,
	)
	if err != nil {
		return nil, err
	}
	p.Answers = make(map[int]string)
	for i, ans := range answers {
		if ans.Valid {
			p.Answers[i+1] = ans.String
		}
	}
	return p, nil
}

func checkAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if affected == 0 {
		return ErrParticipantNotFound
	}
	return nil
}
