package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"lead_qualification_bot/internal/domain/participant"
	"lead_qualification_bot/internal/domain/survey"
	domainTelegram "lead_qualification_bot/internal/domain/telegram"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Custom application-level errors for the lead service
var ErrClaimNotAuthorized = fmt.Errorf("claiming user is not authorized to take leads")
var ErrLeadAlreadyClaimed = fmt.Errorf("lead is already claimed")
var ErrLeadNotReady = fmt.Errorf("lead is not fully completed")

// lead tracks the handoff and claim bookkeeping of one qualifying
// participant. The reference ID identifies the handoff in operator
// conversations; claims are access control only and never touch the
// session state machine.
type lead struct {
	Ref       string
	ClaimedBy int64
	ClaimedAt time.Time
}

// LeadService hands qualifying, fully-completed questionnaires off to the
// reviewing manager and records who claimed them.
type LeadService struct {
	participantRepo   participant.Repository
	telegramClient    domainTelegram.Client
	managerTelegramID int64
	logger            *logrus.Entry

	mu    sync.Mutex
	leads map[int64]*lead
}

func NewLeadService(
	pr participant.Repository,
	tc domainTelegram.Client,
	managerID int64,
	logger *logrus.Entry,
) *LeadService {
	return &LeadService{
		participantRepo:   pr,
		telegramClient:    tc,
		managerTelegramID: managerID,
		logger:            logger,
		leads:             make(map[int64]*lead),
	}
}

// NotifyNewLead delivers the completed questionnaire to the manager. It
// re-verifies against the store that the participant actually qualifies and
// left both phone and comment, and guards against a duplicate handoff of the
// same participant.
func (s *LeadService) NotifyNewLead(ctx context.Context, participantID int64) error {
	p, err := s.participantRepo.GetByID(ctx, participantID)
	if err != nil {
		return fmt.Errorf("failed to load participant %d for lead handoff: %w", participantID, err)
	}
	if !p.SurveyCompleted || !p.Qualified.Valid || !p.Qualified.Bool || !p.Phone.Valid || !p.Comments.Valid {
		return ErrLeadNotReady
	}

	s.mu.Lock()
	if existing, ok := s.leads[participantID]; ok {
		s.mu.Unlock()
		s.logger.WithFields(logrus.Fields{
			"participant_id": participantID,
			"lead_ref":       existing.Ref,
		}).Warn("Lead handoff already performed, skipping duplicate")
		return nil
	}
	ref := uuid.NewString()
	s.leads[participantID] = &lead{Ref: ref}
	s.mu.Unlock()

	text := s.formatLead(p, ref)
	if _, err := s.telegramClient.SendMessage(s.managerTelegramID, text, sendWithMarkup(takeLeadKeyboard(participantID))); err != nil {
		return fmt.Errorf("failed to send lead %s to manager: %w", ref, err)
	}
	s.logger.WithFields(logrus.Fields{
		"participant_id": participantID,
		"lead_ref":       ref,
	}).Info("Lead handed off to manager")
	return nil
}

// Claim records the manager taking a lead and returns the snapshot text for
// re-display. A second claim of the same participant is rejected.
func (s *LeadService) Claim(ctx context.Context, participantID, claimantID int64) (string, error) {
	if claimantID != s.managerTelegramID {
		return "", ErrClaimNotAuthorized
	}

	s.mu.Lock()
	l, ok := s.leads[participantID]
	if !ok {
		// Handoff happened before a restart; accept the claim and rebuild
		// the bookkeeping entry.
		l = &lead{Ref: uuid.NewString()}
		s.leads[participantID] = l
	}
	if l.ClaimedBy != 0 {
		s.mu.Unlock()
		return "", ErrLeadAlreadyClaimed
	}
	l.ClaimedBy = claimantID
	l.ClaimedAt = time.Now()
	ref := l.Ref
	s.mu.Unlock()

	p, err := s.participantRepo.GetByID(ctx, participantID)
	if err != nil {
		return "", fmt.Errorf("failed to load participant %d for claimed lead: %w", participantID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"participant_id": participantID,
		"lead_ref":       ref,
		"claimant_id":    claimantID,
	}).Info("Lead claimed")
	return s.formatLead(p, ref), nil
}

func (s *LeadService) formatLead(p *participant.Participant, ref string) string {
	var b strings.Builder
	completedAt := "Не указано"
	if p.SurveyCompletedAt.Valid {
		completedAt = p.SurveyCompletedAt.Time.Format("02.01.2006 15:04")
	}
	username := "прочерк"
	if p.Username.Valid && p.Username.String != "" {
		username = p.Username.String
	}

	fmt.Fprintf(&b, "Заявка: %s\n", ref)
	fmt.Fprintf(&b, "Дата и время: %s\n", completedAt)
	fmt.Fprintf(&b, "TG ID: %d\n", p.ID)
	fmt.Fprintf(&b, "Username: %s\n", username)
	b.WriteString("Список ответов пользователя:\n")
	for step := 1; step <= survey.QuestionCount; step++ {
		answer, ok := p.Answers[step]
		if !ok {
			answer = "Нет ответа"
		}
		fmt.Fprintf(&b, "%d. %s\n", step, answer)
	}
	fmt.Fprintf(&b, "\nТелефон: %s\n", p.Phone.String)
	fmt.Fprintf(&b, "Комментарий/способ связи: %s", p.Comments.String)
	return b.String()
}
