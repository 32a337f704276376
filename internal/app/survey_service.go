// internal/app/survey_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lead_qualification_bot/internal/domain/participant"
	"lead_qualification_bot/internal/domain/survey"
	domainTelegram "lead_qualification_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// SurveyService defines the operations of the survey orchestrator: it reacts
// to inbound participant events, drives the session state machine and the
// reminder scheduler together, and emits render/delivery instructions to the
// messaging gateway.
type SurveyService interface {
	// HandleStart processes /start from a regular participant: registers or
	// refreshes the record and either greets a newcomer or resumes an
	// interrupted post-qualification phase.
	HandleStart(ctx context.Context, participantID int64, username string) error
	// HandleBeginSurvey starts (or restarts) a survey attempt.
	HandleBeginSurvey(ctx context.Context, participantID int64) error
	HandleChoiceAnswer(ctx context.Context, participantID int64, step, optionIndex int) error
	// HandleText routes a plain text message by session phase: the free-text
	// question, a typed phone number, or the final comment.
	HandleText(ctx context.Context, participantID int64, messageID int, text string) error
	HandleContactShare(ctx context.Context, participantID int64, phoneNumber string) error
	HandleBack(ctx context.Context, participantID int64, step int) error
	// HandleContinue resumes after a reminder: cancels the pending nudges
	// and re-renders the current step with the reconstructed history.
	HandleContinue(ctx context.Context, participantID int64) error
	HandleSkipComment(ctx context.Context, participantID int64) error
	// DispatchReminder is the fire handler of a reminder tier.
	DispatchReminder(ctx context.Context, participantID int64, tier participant.ReminderTier) error
}

// ReminderScheduler is the orchestrator's view of the reminder task registry.
type ReminderScheduler interface {
	ScheduleAll(participantID int64, anchor time.Time)
	CancelAll(participantID int64)
}

// LeadNotifier is the outbound lead-handoff channel.
type LeadNotifier interface {
	NotifyNewLead(ctx context.Context, participantID int64) error
}

// SurveyServiceImpl implements the SurveyService interface.
type SurveyServiceImpl struct {
	participantRepo participant.Repository
	sessions        *SessionRegistry
	reminders       ReminderScheduler
	telegramClient  domainTelegram.Client
	leads           LeadNotifier
	logger          *logrus.Entry

	// Whether restarting mid-survey discards in-flight answers.
	restartDiscardsProgress bool
}

func NewSurveyService(
	pr participant.Repository,
	sessions *SessionRegistry,
	reminders ReminderScheduler,
	tc domainTelegram.Client,
	leads LeadNotifier,
	logger *logrus.Entry,
	restartDiscardsProgress bool,
) *SurveyServiceImpl {
	return &SurveyServiceImpl{
		participantRepo:         pr,
		sessions:                sessions,
		reminders:               reminders,
		telegramClient:          tc,
		leads:                   leads,
		logger:                  logger,
		restartDiscardsProgress: restartDiscardsProgress,
	}
}

func sendWithMarkup(markup *telebot.ReplyMarkup) *telebot.SendOptions {
	return &telebot.SendOptions{ReplyMarkup: markup}
}

func (s *SurveyServiceImpl) HandleStart(ctx context.Context, participantID int64, username string) error {
	unlock := s.sessions.Lock(participantID)
	defer unlock()

	if err := s.participantRepo.Upsert(ctx, participantID, username); err != nil {
		return fmt.Errorf("failed to upsert participant %d: %w", participantID, err)
	}

	completed, err := s.participantRepo.HasCompletedSurvey(ctx, participantID)
	if err != nil {
		return fmt.Errorf("failed to check survey completion for %d: %w", participantID, err)
	}
	if completed {
		return s.resumeCompleted(ctx, participantID)
	}

	_, err = s.telegramClient.SendMessage(participantID, MsgHello, sendWithMarkup(startKeyboard()))
	if err != nil {
		return fmt.Errorf("failed to send greeting to %d: %w", participantID, err)
	}
	return nil
}

// resumeCompleted routes a participant whose answers are already frozen:
// qualified ones resume at whichever post-qualification step is missing,
// the rest get the rejection message again.
func (s *SurveyServiceImpl) resumeCompleted(ctx context.Context, participantID int64) error {
	p, err := s.participantRepo.GetByID(ctx, participantID)
	if err != nil {
		return fmt.Errorf("failed to load completed participant %d: %w", participantID, err)
	}

	if !p.Qualified.Valid || !p.Qualified.Bool {
		if _, err := s.telegramClient.SendMessage(participantID, MsgNotQualified, nil); err != nil {
			return fmt.Errorf("failed to send rejection to %d: %w", participantID, err)
		}
		if _, err := s.telegramClient.SendMessage(participantID, MsgFAQ, sendWithMarkup(faqKeyboard())); err != nil {
			s.logger.WithError(err).WithField("participant_id", participantID).Error("Failed to send FAQ")
		}
		return nil
	}

	switch {
	case !p.Phone.Valid:
		s.resumePhase(participantID, survey.PhaseAwaitingContact)
		_, err = s.telegramClient.SendMessage(participantID, MsgContactRequest, sendWithMarkup(contactKeyboard()))
	case !p.Comments.Valid:
		s.resumePhase(participantID, survey.PhaseAwaitingComment)
		_, err = s.telegramClient.SendMessage(participantID, MsgCommentRequest, sendWithMarkup(commentKeyboard()))
	default:
		_, err = s.telegramClient.SendMessage(participantID, MsgSuccess, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to resume completed participant %d: %w", participantID, err)
	}
	return nil
}

// resumePhase materializes a session cursor for a participant whose answers
// are frozen but whose contact/comment step was interrupted.
func (s *SurveyServiceImpl) resumePhase(participantID int64, phase survey.Phase) {
	sess, ok := s.sessions.Get(participantID)
	if !ok {
		sess = survey.NewSession(participantID, time.Now())
		s.sessions.Put(sess)
	}
	sess.Phase = phase
}

func (s *SurveyServiceImpl) HandleBeginSurvey(ctx context.Context, participantID int64) error {
	unlock := s.sessions.Lock(participantID)
	defer unlock()

	completed, err := s.participantRepo.HasCompletedSurvey(ctx, participantID)
	if err != nil {
		return fmt.Errorf("failed to check survey completion for %d: %w", participantID, err)
	}
	if completed {
		return s.resumeCompleted(ctx, participantID)
	}
	return s.beginAttempt(ctx, participantID)
}

// beginAttempt starts or restarts the questionnaire. A duplicate start while
// still at step 1 with no answers is a no-op beyond re-rendering; anything
// else re-anchors the attempt, resets the durable reminder bookkeeping and
// atomically replaces the reminder task set.
func (s *SurveyServiceImpl) beginAttempt(ctx context.Context, participantID int64) error {
	now := time.Now()
	sess, ok := s.sessions.Get(participantID)
	duplicateStart := ok && sess.Fresh()
	if !ok {
		sess = survey.NewSession(participantID, now)
		s.sessions.Put(sess)
	} else if !duplicateStart {
		sess.Restart(now, !s.restartDiscardsProgress)
	}

	if !duplicateStart {
		if err := s.participantRepo.MarkSessionStarted(ctx, participantID, now); err != nil {
			return fmt.Errorf("failed to mark session started for %d: %w", participantID, err)
		}
		s.reminders.ScheduleAll(participantID, now)
		s.logger.WithField("participant_id", participantID).Info("Survey attempt started")
	}

	s.renderHistory(participantID, sess)
	s.deleteQuestionMessage(participantID, sess)
	return s.sendQuestion(participantID, sess)
}

func (s *SurveyServiceImpl) HandleChoiceAnswer(ctx context.Context, participantID int64, step, optionIndex int) error {
	unlock := s.sessions.Lock(participantID)
	defer unlock()

	completed, err := s.participantRepo.HasCompletedSurvey(ctx, participantID)
	if err != nil {
		return fmt.Errorf("failed to check survey completion for %d: %w", participantID, err)
	}
	logCtx := s.logger.WithFields(logrus.Fields{"participant_id": participantID, "step": step})
	if completed {
		logCtx.Debug("Choice answer for already completed survey ignored")
		return nil
	}

	sess, ok := s.sessions.Get(participantID)
	if !ok {
		logCtx.Debug("Choice answer without an active session ignored")
		return nil
	}

	_, finished, err := sess.SubmitChoice(step, optionIndex)
	if err != nil {
		// Stale and duplicate submissions are acknowledged without mutation.
		logCtx.WithError(err).Debug("Choice answer rejected by state machine")
		return nil
	}

	s.renderHistory(participantID, sess)
	s.deleteQuestionMessage(participantID, sess)

	if !finished {
		return s.sendQuestion(participantID, sess)
	}
	return s.finalizeAnswers(ctx, participantID, sess)
}

// finalizeAnswers runs once the cursor moved past the last question:
// evaluates qualification, freezes durable state, cancels reminders and
// branches into the contact phase or the terminal rejection.
func (s *SurveyServiceImpl) finalizeAnswers(ctx context.Context, participantID int64, sess *survey.Session) error {
	logCtx := s.logger.WithField("participant_id", participantID)
	if !sess.AllAnswered() {
		// Defensive invariant: the cursor claims completion but answers are
		// missing. Not a reachable steady-state path; log for investigation
		// and drop the event.
		logCtx.WithField("missing_steps", sess.MissingSteps()).Error("Completion requested with missing answers, dropping event")
		return nil
	}

	qualified := survey.Qualified(sess.Answers)
	if err := sess.Complete(qualified); err != nil {
		logCtx.WithError(err).Error("Session completion rejected by state machine")
		return nil
	}

	if err := s.participantRepo.SaveSurveyResult(ctx, participantID, sess.Answers, qualified, time.Now()); err != nil {
		return fmt.Errorf("failed to save survey result for %d: %w", participantID, err)
	}
	s.reminders.CancelAll(participantID)
	logCtx.WithField("qualified", qualified).Info("Survey answers completed")

	if qualified {
		if _, err := s.telegramClient.SendMessage(participantID, MsgContactRequest, sendWithMarkup(contactKeyboard())); err != nil {
			return fmt.Errorf("failed to send contact request to %d: %w", participantID, err)
		}
		return nil
	}

	s.sessions.Delete(participantID)
	if _, err := s.telegramClient.SendMessage(participantID, MsgNotQualified, nil); err != nil {
		return fmt.Errorf("failed to send rejection to %d: %w", participantID, err)
	}
	if _, err := s.telegramClient.SendMessage(participantID, MsgFAQ, sendWithMarkup(faqKeyboard())); err != nil {
		logCtx.WithError(err).Error("Failed to send FAQ")
	}
	return nil
}

func (s *SurveyServiceImpl) HandleText(ctx context.Context, participantID int64, messageID int, text string) error {
	unlock := s.sessions.Lock(participantID)
	defer unlock()

	sess, ok := s.sessions.Get(participantID)
	if !ok {
		s.logger.WithField("participant_id", participantID).Debug("Text message without an active session ignored")
		return nil
	}

	switch sess.Phase {
	case survey.PhaseQuestion:
		return s.handleFreeTextAnswer(ctx, participantID, sess, messageID, text)
	case survey.PhaseAwaitingContact:
		return s.handleTypedPhone(ctx, participantID, sess, text)
	case survey.PhaseAwaitingComment:
		return s.handleComment(ctx, participantID, sess, text)
	default:
		s.logger.WithFields(logrus.Fields{
			"participant_id": participantID,
			"phase":          sess.Phase,
		}).Debug("Text message in terminal phase ignored")
		return nil
	}
}

func (s *SurveyServiceImpl) handleFreeTextAnswer(ctx context.Context, participantID int64, sess *survey.Session, messageID int, text string) error {
	if sess.CurrentStep != survey.FreeTextStep {
		s.logger.WithFields(logrus.Fields{
			"participant_id": participantID,
			"current_step":   sess.CurrentStep,
		}).Debug("Unexpected text during option step ignored")
		return nil
	}

	finished, err := sess.SubmitFreeText(survey.FreeTextStep, text)
	if err != nil {
		if errors.Is(err, survey.ErrInvalidText) {
			if _, sendErr := s.telegramClient.SendMessage(participantID, MsgFreeTextError, nil); sendErr != nil {
				return fmt.Errorf("failed to send free-text re-prompt to %d: %w", participantID, sendErr)
			}
			return nil
		}
		s.logger.WithError(err).WithField("participant_id", participantID).Debug("Free-text answer rejected by state machine")
		return nil
	}

	// The participant's own message is removed once ingested; the answer now
	// lives in the history message.
	if err := s.telegramClient.DeleteMessage(participantID, messageID); err != nil && !errors.Is(err, domainTelegram.ErrMessageNotFound) {
		s.logger.WithError(err).WithField("participant_id", participantID).Error("Failed to delete free-text message")
	}

	s.renderHistory(participantID, sess)
	s.deleteQuestionMessage(participantID, sess)

	if !finished {
		return s.sendQuestion(participantID, sess)
	}
	return s.finalizeAnswers(ctx, participantID, sess)
}

func (s *SurveyServiceImpl) HandleContactShare(ctx context.Context, participantID int64, phoneNumber string) error {
	unlock := s.sessions.Lock(participantID)
	defer unlock()

	sess, ok := s.sessions.Get(participantID)
	if !ok || sess.Phase != survey.PhaseAwaitingContact {
		s.logger.WithField("participant_id", participantID).Debug("Contact share outside of contact phase ignored")
		return nil
	}

	phone, err := survey.NormalizePhone(phoneNumber)
	if err != nil {
		if _, sendErr := s.telegramClient.SendMessage(participantID, MsgPhoneFormatError, sendWithMarkup(contactKeyboard())); sendErr != nil {
			return fmt.Errorf("failed to send phone re-prompt to %d: %w", participantID, sendErr)
		}
		return nil
	}
	return s.acceptContact(ctx, participantID, sess, phone)
}

func (s *SurveyServiceImpl) handleTypedPhone(ctx context.Context, participantID int64, sess *survey.Session, text string) error {
	phone, err := survey.NormalizePhone(text)
	if err != nil {
		if _, sendErr := s.telegramClient.SendMessage(participantID, MsgPhoneFormatError, sendWithMarkup(contactKeyboard())); sendErr != nil {
			return fmt.Errorf("failed to send phone re-prompt to %d: %w", participantID, sendErr)
		}
		return nil
	}
	return s.acceptContact(ctx, participantID, sess, phone)
}

func (s *SurveyServiceImpl) acceptContact(ctx context.Context, participantID int64, sess *survey.Session, phone string) error {
	if err := s.participantRepo.UpdatePhone(ctx, participantID, phone); err != nil {
		return fmt.Errorf("failed to update phone for %d: %w", participantID, err)
	}
	if err := sess.SubmitContact(); err != nil {
		s.logger.WithError(err).WithField("participant_id", participantID).Debug("Contact submission rejected by state machine")
		return nil
	}
	s.logger.WithField("participant_id", participantID).Info("Contact received")

	if _, err := s.telegramClient.SendMessage(participantID, MsgContactReceived, sendWithMarkup(removeKeyboard())); err != nil {
		s.logger.WithError(err).WithField("participant_id", participantID).Error("Failed to confirm contact")
	}
	if _, err := s.telegramClient.SendMessage(participantID, MsgCommentRequest, sendWithMarkup(commentKeyboard())); err != nil {
		return fmt.Errorf("failed to send comment request to %d: %w", participantID, err)
	}
	return nil
}

func (s *SurveyServiceImpl) handleComment(ctx context.Context, participantID int64, sess *survey.Session, text string) error {
	if err := sess.SubmitComment(text); err != nil {
		if errors.Is(err, survey.ErrInvalidText) {
			if _, sendErr := s.telegramClient.SendMessage(participantID, MsgCommentError, sendWithMarkup(commentKeyboard())); sendErr != nil {
				return fmt.Errorf("failed to send comment re-prompt to %d: %w", participantID, sendErr)
			}
			return nil
		}
		s.logger.WithError(err).WithField("participant_id", participantID).Debug("Comment rejected by state machine")
		return nil
	}
	return s.completeLead(ctx, participantID, text)
}

func (s *SurveyServiceImpl) HandleSkipComment(ctx context.Context, participantID int64) error {
	unlock := s.sessions.Lock(participantID)
	defer unlock()

	sess, ok := s.sessions.Get(participantID)
	if !ok || sess.Phase != survey.PhaseAwaitingComment {
		s.logger.WithField("participant_id", participantID).Debug("Skip-comment outside of comment phase ignored")
		return nil
	}
	if err := sess.SubmitComment(CommentSkipSentinel); err != nil {
		s.logger.WithError(err).WithField("participant_id", participantID).Debug("Skip-comment rejected by state machine")
		return nil
	}
	return s.completeLead(ctx, participantID, CommentSkipSentinel)
}

// completeLead persists the comment, collapses the session and performs the
// one-time lead handoff. Reminder cancellation here is idempotent; the set is
// normally gone since answer completion.
func (s *SurveyServiceImpl) completeLead(ctx context.Context, participantID int64, comment string) error {
	if err := s.participantRepo.UpdateComments(ctx, participantID, comment); err != nil {
		return fmt.Errorf("failed to update comments for %d: %w", participantID, err)
	}
	s.reminders.CancelAll(participantID)
	s.sessions.Delete(participantID)
	s.logger.WithField("participant_id", participantID).Info("Survey fully completed")

	if _, err := s.telegramClient.SendMessage(participantID, MsgSuccess, sendWithMarkup(removeKeyboard())); err != nil {
		s.logger.WithError(err).WithField("participant_id", participantID).Error("Failed to send success message")
	}

	if err := s.leads.NotifyNewLead(ctx, participantID); err != nil {
		// Handoff failures are operational: the lead is durable and can be
		// re-sent manually, the participant flow must not fail.
		s.logger.WithError(err).WithField("participant_id", participantID).Error("Lead handoff failed")
	}
	return nil
}

func (s *SurveyServiceImpl) HandleBack(ctx context.Context, participantID int64, step int) error {
	unlock := s.sessions.Lock(participantID)
	defer unlock()

	completed, err := s.participantRepo.HasCompletedSurvey(ctx, participantID)
	if err != nil {
		return fmt.Errorf("failed to check survey completion for %d: %w", participantID, err)
	}
	logCtx := s.logger.WithFields(logrus.Fields{"participant_id": participantID, "step": step})
	if completed {
		logCtx.Debug("Back event for already completed survey ignored")
		return nil
	}

	sess, ok := s.sessions.Get(participantID)
	if !ok {
		logCtx.Debug("Back event without an active session ignored")
		return nil
	}
	if err := sess.GoBack(step); err != nil {
		logCtx.WithError(err).Debug("Back event rejected by state machine")
		return nil
	}

	s.renderHistory(participantID, sess)
	s.deleteQuestionMessage(participantID, sess)
	return s.sendQuestion(participantID, sess)
}

func (s *SurveyServiceImpl) HandleContinue(ctx context.Context, participantID int64) error {
	unlock := s.sessions.Lock(participantID)
	defer unlock()

	completed, err := s.participantRepo.HasCompletedSurvey(ctx, participantID)
	if err != nil {
		return fmt.Errorf("failed to check survey completion for %d: %w", participantID, err)
	}
	if completed {
		s.logger.WithField("participant_id", participantID).Debug("Continue event for already completed survey ignored")
		return nil
	}

	// Resuming is itself the acknowledgement: pending nudges are cancelled
	// before anything is re-rendered.
	s.reminders.CancelAll(participantID)

	sess, ok := s.sessions.Get(participantID)
	if !ok {
		return s.beginAttempt(ctx, participantID)
	}

	switch sess.Phase {
	case survey.PhaseQuestion:
		if sess.Fresh() {
			return s.beginAttempt(ctx, participantID)
		}
		s.renderHistory(participantID, sess)
		s.deleteQuestionMessage(participantID, sess)
		return s.sendQuestion(participantID, sess)
	case survey.PhaseAwaitingContact:
		_, err := s.telegramClient.SendMessage(participantID, MsgContactRequest, sendWithMarkup(contactKeyboard()))
		return err
	case survey.PhaseAwaitingComment:
		_, err := s.telegramClient.SendMessage(participantID, MsgCommentRequest, sendWithMarkup(commentKeyboard()))
		return err
	default:
		return nil
	}
}

// DispatchReminder is the wake handler of one reminder tier. It re-checks
// durable completion and the tier's sent-flag before delivering, so a timer
// queued ahead of a cancellation or completion degrades to a no-op.
func (s *SurveyServiceImpl) DispatchReminder(ctx context.Context, participantID int64, tier participant.ReminderTier) error {
	logCtx := s.logger.WithFields(logrus.Fields{"participant_id": participantID, "tier": tier})

	p, err := s.participantRepo.GetByID(ctx, participantID)
	if err != nil {
		return fmt.Errorf("failed to load participant %d for reminder: %w", participantID, err)
	}
	if p.SurveyCompleted {
		logCtx.Debug("Reminder suppressed: survey already completed")
		return nil
	}
	if !p.SessionStartedAt.Valid {
		logCtx.Debug("Reminder suppressed: no active session attempt")
		return nil
	}
	if p.ReminderSent(tier) {
		logCtx.Debug("Reminder suppressed: tier already delivered")
		return nil
	}

	if _, err := s.telegramClient.SendMessage(participantID, reminderText(tier), sendWithMarkup(continueKeyboard(participantID))); err != nil {
		return fmt.Errorf("failed to deliver %s reminder to %d: %w", tier, participantID, err)
	}
	if err := s.participantRepo.MarkReminderSent(ctx, participantID, tier); err != nil {
		return fmt.Errorf("failed to mark %s reminder sent for %d: %w", tier, participantID, err)
	}
	logCtx.Info("Reminder delivered")
	return nil
}

// renderHistory edits the pinned history message in place, re-sending it if
// Telegram no longer knows the handle. An unchanged rendering is not an error.
func (s *SurveyServiceImpl) renderHistory(participantID int64, sess *survey.Session) {
	text := formatHistory(sess.History())
	if sess.HistoryMessageID != 0 {
		err := s.telegramClient.EditMessageText(participantID, sess.HistoryMessageID, text)
		if err == nil || errors.Is(err, domainTelegram.ErrMessageNotModified) {
			return
		}
		if !errors.Is(err, domainTelegram.ErrMessageNotFound) {
			s.logger.WithError(err).WithField("participant_id", participantID).Error("Failed to edit history message")
			return
		}
	}
	messageID, err := s.telegramClient.SendMessage(participantID, text, nil)
	if err != nil {
		s.logger.WithError(err).WithField("participant_id", participantID).Error("Failed to send history message")
		return
	}
	sess.HistoryMessageID = messageID
}

// deleteQuestionMessage removes the previously rendered question so only the
// current one carries live buttons. A message already gone is fine.
func (s *SurveyServiceImpl) deleteQuestionMessage(participantID int64, sess *survey.Session) {
	if sess.QuestionMessageID == 0 {
		return
	}
	err := s.telegramClient.DeleteMessage(participantID, sess.QuestionMessageID)
	if err != nil && !errors.Is(err, domainTelegram.ErrMessageNotFound) {
		s.logger.WithError(err).WithField("participant_id", participantID).Error("Failed to delete question message")
	}
	sess.QuestionMessageID = 0
}

func (s *SurveyServiceImpl) sendQuestion(participantID int64, sess *survey.Session) error {
	step := sess.CurrentStep
	q, ok := survey.Questions[step]
	if !ok {
		return fmt.Errorf("no question defined for step %d", step)
	}
	messageID, err := s.telegramClient.SendMessage(participantID, q.Text, sendWithMarkup(questionKeyboard(step)))
	if err != nil {
		return fmt.Errorf("failed to send question %d to %d: %w", step, participantID, err)
	}
	sess.QuestionMessageID = messageID
	return nil
}
