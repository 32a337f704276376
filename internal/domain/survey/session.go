package survey

import (
	"errors"
	"time"
)

// Phase is the explicit lifecycle state of a session attempt.
type Phase string

const (
	PhaseQuestion        Phase = "QUESTION"
	PhaseAwaitingContact Phase = "AWAITING_CONTACT"
	PhaseAwaitingComment Phase = "AWAITING_COMMENT"
	PhaseDone            Phase = "DONE"
	PhaseRejected        Phase = "REJECTED"
)

// Benign precondition violations. ErrStaleStep in particular marks duplicate
// or out-of-date events that must be acknowledged without mutation.
var (
	ErrStaleStep         = errors.New("event step does not match current step")
	ErrInvalidOption     = errors.New("option index is out of range for this step")
	ErrInvalidText       = errors.New("free text is empty or exceeds the length limit")
	ErrWrongPhase        = errors.New("event is not valid in the current phase")
	ErrSessionLocked     = errors.New("session is completed and locked")
	ErrCannotGoBack      = errors.New("cannot go back from the first step")
	ErrIncompleteAnswers = errors.New("completion requested with missing answers")
)

// HistoryEntry is one (step, answer) pair of the rendered answer history.
type HistoryEntry struct {
	Step   int
	Answer string
}

// Session holds one participant's in-flight survey attempt: the cursor, the
// collected answers and the handles of the rendered history and question
// messages. All transitions are synchronous and either fully commit or leave
// the session untouched.
type Session struct {
	ParticipantID int64
	Phase         Phase
	CurrentStep   int
	Answers       map[int]string
	StartedAt     time.Time

	// Delivery handles owned by the orchestrator.
	HistoryMessageID  int
	QuestionMessageID int
}

// NewSession starts a fresh attempt at step 1 with no answers.
func NewSession(participantID int64, now time.Time) *Session {
	return &Session{
		ParticipantID: participantID,
		Phase:         PhaseQuestion,
		CurrentStep:   1,
		Answers:       make(map[int]string),
		StartedAt:     now,
	}
}

// Restart re-anchors the attempt. With keepAnswers the cursor resumes at the
// first unanswered step; otherwise all in-progress answers are discarded.
func (s *Session) Restart(now time.Time, keepAnswers bool) {
	s.Phase = PhaseQuestion
	s.StartedAt = now
	s.HistoryMessageID = 0
	s.QuestionMessageID = 0
	if !keepAnswers {
		s.Answers = make(map[int]string)
		s.CurrentStep = 1
		return
	}
	s.CurrentStep = s.firstUnanswered()
}

func (s *Session) firstUnanswered() int {
	for step := 1; step <= QuestionCount; step++ {
		if _, ok := s.Answers[step]; !ok {
			return step
		}
	}
	return QuestionCount + 1
}

// Fresh reports whether the attempt is at step 1 with nothing answered, which
// makes a duplicate start a no-op beyond re-rendering.
func (s *Session) Fresh() bool {
	return s.Phase == PhaseQuestion && s.CurrentStep == 1 && len(s.Answers) == 0
}

// Locked reports whether the session reached a terminal state that rejects
// all further answer-mutating events.
func (s *Session) Locked() bool {
	return s.Phase == PhaseDone || s.Phase == PhaseRejected
}

// SubmitChoice records the option answer for the given step and advances the
// cursor. The returned completed flag is true once the cursor moved past the
// last question.
func (s *Session) SubmitChoice(step, optionIndex int) (answer string, completed bool, err error) {
	if s.Locked() {
		return "", false, ErrSessionLocked
	}
	if s.Phase != PhaseQuestion {
		return "", false, ErrWrongPhase
	}
	if step != s.CurrentStep {
		return "", false, ErrStaleStep
	}
	q, ok := Questions[step]
	if !ok || optionIndex < 0 || optionIndex >= len(q.Options) {
		return "", false, ErrInvalidOption
	}
	answer = q.Options[optionIndex]
	s.Answers[step] = answer
	s.CurrentStep = step + 1
	return answer, s.CurrentStep > QuestionCount, nil
}

// SubmitFreeText records the answer for the open-ended step. Validation
// failures re-prompt without advancing.
func (s *Session) SubmitFreeText(step int, text string) (completed bool, err error) {
	if s.Locked() {
		return false, ErrSessionLocked
	}
	if s.Phase != PhaseQuestion || step != FreeTextStep {
		return false, ErrWrongPhase
	}
	if step != s.CurrentStep {
		return false, ErrStaleStep
	}
	if len(text) == 0 || len(text) > MaxFreeTextLen {
		return false, ErrInvalidText
	}
	s.Answers[step] = text
	s.CurrentStep = step + 1
	return s.CurrentStep > QuestionCount, nil
}

// GoBack moves the cursor to the previous step, discarding every answer at
// index >= the new current step so history re-derives exactly.
func (s *Session) GoBack(step int) error {
	if s.Locked() {
		return ErrSessionLocked
	}
	if s.Phase != PhaseQuestion {
		return ErrWrongPhase
	}
	if step != s.CurrentStep {
		return ErrStaleStep
	}
	if step <= 1 {
		return ErrCannotGoBack
	}
	s.CurrentStep = step - 1
	for i := s.CurrentStep; i <= QuestionCount; i++ {
		delete(s.Answers, i)
	}
	return nil
}

// AllAnswered reports whether every question has a recorded answer.
func (s *Session) AllAnswered() bool {
	return len(s.MissingSteps()) == 0
}

// MissingSteps returns the question numbers that have no answer yet.
func (s *Session) MissingSteps() []int {
	var missing []int
	for step := 1; step <= QuestionCount; step++ {
		if _, ok := s.Answers[step]; !ok {
			missing = append(missing, step)
		}
	}
	return missing
}

// Complete resolves the attempt after the last answer: qualified sessions
// move on to the contact phase, others terminate. Requires the full answer
// set; a mismatch is the defensive invariant the caller logs and drops.
func (s *Session) Complete(qualified bool) error {
	if s.Locked() {
		return ErrSessionLocked
	}
	if s.Phase != PhaseQuestion {
		return ErrWrongPhase
	}
	if !s.AllAnswered() {
		return ErrIncompleteAnswers
	}
	if qualified {
		s.Phase = PhaseAwaitingContact
	} else {
		s.Phase = PhaseRejected
	}
	return nil
}

// SubmitContact transitions to the comment phase. The phone is expected to be
// normalized already.
func (s *Session) SubmitContact() error {
	if s.Phase != PhaseAwaitingContact {
		return ErrWrongPhase
	}
	s.Phase = PhaseAwaitingComment
	return nil
}

// SubmitComment validates the comment text and transitions to DONE. The skip
// sentinel is substituted by the caller before this call.
func (s *Session) SubmitComment(text string) error {
	if s.Phase != PhaseAwaitingComment {
		return ErrWrongPhase
	}
	if len(text) == 0 || len(text) > MaxFreeTextLen {
		return ErrInvalidText
	}
	s.Phase = PhaseDone
	return nil
}

// History derives the (step, answer) pairs from the recorded answers in step
// order. It is never stored independently of the answers.
func (s *Session) History() []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(s.Answers))
	for step := 1; step <= QuestionCount; step++ {
		if answer, ok := s.Answers[step]; ok {
			entries = append(entries, HistoryEntry{Step: step, Answer: answer})
		}
	}
	return entries
}
