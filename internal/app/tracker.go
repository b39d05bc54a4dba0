package app

import (
	"context"
	"errors"
	"strings"

	"quizrank-service/internal/domain"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// SubmitInput is one answer submission from a client.
type SubmitInput struct {
	SessionID   string
	QuestionID  string
	OptionID    string
	TimeTakenMS int64
	// AttemptHint seeds attempt_count when the first row is created; the
	// server-side counter wins for every later submission.
	AttemptHint int
}

// SubmitResult reports the outcome of one submission.
type SubmitResult struct {
	IsCorrect    bool  `json:"is_correct"`
	AttemptCount int   `json:"attempt_count"`
	TimeTaken    int64 `json:"time_taken"`
}

// Tracker owns the lifecycle of quiz sessions: open, answer, finish.
type Tracker struct {
	store RecordStore
	guard *Guard
	clock Clock
}

func NewTracker(store RecordStore, clock Clock) *Tracker {
	if clock == nil {
		clock = SystemClock
	}
	return &Tracker{store: store, guard: NewGuard(store), clock: clock}
}

// Open starts a new session for user in the given mode.
func (t *Tracker) Open(ctx context.Context, user domain.User, rawMode string) (domain.Session, error) {
	mode, err := domain.ParseMode(rawMode)
	if err != nil {
		return domain.Session{}, err
	}
	if strings.TrimSpace(user.ID) == "" {
		return domain.Session{}, domain.ErrMissingParameter
	}
	session, err := t.store.CreateSession(ctx, user, mode, t.clock.Now())
	if err != nil {
		return domain.Session{}, storeErr("create session", err)
	}
	return session, nil
}

// SubmitAnswer records a selection for one question of an open session.
// Repeated submissions for the same question accumulate into a single row.
func (t *Tracker) SubmitAnswer(ctx context.Context, userID string, in SubmitInput) (SubmitResult, error) {
	if in.SessionID == "" || in.QuestionID == "" || in.OptionID == "" {
		return SubmitResult{}, domain.ErrMissingParameter
	}

	session, err := t.guard.Authorize(ctx, userID, in.SessionID)
	if err != nil {
		return SubmitResult{}, err
	}
	if session.Completed {
		return SubmitResult{}, domain.ErrSessionAlreadyCompleted
	}

	correct, err := t.store.GetOptionCorrectness(ctx, in.OptionID, in.QuestionID)
	if errors.Is(err, domain.ErrOptionNotFound) {
		return SubmitResult{}, domain.ErrInvalidOption
	}
	if err != nil {
		return SubmitResult{}, storeErr("get option", err)
	}

	delta := in.TimeTakenMS
	if delta < 0 {
		delta = 0
	}
	initial := in.AttemptHint
	if initial < 1 {
		initial = 1
	}

	answer, err := t.store.UpsertAnswer(ctx, domain.AnswerUpsert{
		SessionID:       session.ID,
		QuestionID:      in.QuestionID,
		OptionID:        in.OptionID,
		IsCorrect:       correct,
		TimeDeltaMS:     delta,
		InitialAttempts: initial,
		AnsweredAt:      t.clock.Now(),
	})
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return SubmitResult{}, domain.ErrUnauthorizedSession
	case err != nil:
		return SubmitResult{}, storeErr("upsert answer", err)
	}

	return SubmitResult{
		IsCorrect:    correct,
		AttemptCount: answer.AttemptCount,
		TimeTaken:    answer.TimeTaken,
	}, nil
}

// Finish seals the session. Finishing an already completed session returns
// the stored summary unchanged.
func (t *Tracker) Finish(ctx context.Context, userID, sessionID string) (domain.SessionSummary, error) {
	session, err := t.guard.Authorize(ctx, userID, sessionID)
	if err != nil {
		return domain.SessionSummary{}, err
	}
	if session.Completed {
		return Summarize(session), nil
	}

	now := t.clock.Now()
	sealed, err := t.store.FinalizeSession(ctx, sessionID, func(open domain.Session, answers []domain.Answer) domain.Session {
		return Seal(open, answers, now)
	})
	switch {
	case errors.Is(err, domain.ErrSessionAlreadyCompleted):
		// lost a race with another Finish; report what was stored
		return Summarize(sealed), nil
	case errors.Is(err, domain.ErrSessionNotFound):
		return domain.SessionSummary{}, domain.ErrUnauthorizedSession
	case err != nil:
		return domain.SessionSummary{}, storeErr("finalize session", err)
	}
	return Summarize(sealed), nil
}

// History lists the user's sessions newest first. Unknown modes are ignored
// and the listing falls back to every mode.
func (t *Tracker) History(ctx context.Context, userID, rawMode string, limit int) ([]domain.SessionSummary, error) {
	if userID == "" {
		return nil, domain.ErrMissingParameter
	}
	mode, err := domain.ParseMode(rawMode)
	if err != nil {
		mode = ""
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	sessions, err := t.store.ListUserSessions(ctx, userID, mode, limit)
	if err != nil {
		return nil, storeErr("list user sessions", err)
	}
	out := make([]domain.SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, Summarize(s))
	}
	return out, nil
}

// Details returns the per-question answers of a session owned by userID.
func (t *Tracker) Details(ctx context.Context, userID, sessionID string) ([]domain.AnswerDetail, error) {
	if _, err := t.guard.Authorize(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	details, err := t.store.ListAnswerDetails(ctx, sessionID)
	if err != nil {
		return nil, storeErr("list answer details", err)
	}
	if details == nil {
		details = []domain.AnswerDetail{}
	}
	return details, nil
}
