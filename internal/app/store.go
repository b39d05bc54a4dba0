package app

import (
	"context"
	"errors"
	"time"

	"quizrank-service/internal/domain"
)

// RecordStore abstracts where sessions and answers live (memory, SQLite, Postgres).
// Every method is a single atomic step; serializability is the store's job.
type RecordStore interface {
	CreateSession(ctx context.Context, user domain.User, mode domain.Mode, start time.Time) (domain.Session, error)
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	GetOptionCorrectness(ctx context.Context, optionID, questionID string) (bool, error)
	// UpsertAnswer creates the (session, question) row or accumulates into it.
	// It fails with domain.ErrSessionAlreadyCompleted once the session is sealed.
	UpsertAnswer(ctx context.Context, in domain.AnswerUpsert) (domain.Answer, error)
	// FinalizeSession calls seal with the session and its answers under the same
	// lock that guards UpsertAnswer, then persists the sealed session. A session
	// that is already completed is returned as stored together with
	// domain.ErrSessionAlreadyCompleted, and seal is not called.
	FinalizeSession(ctx context.Context, sessionID string, seal SealFunc) (domain.Session, error)
	ListCompletedSessions(ctx context.Context, mode domain.Mode) ([]domain.CompletedSession, error)
	// ListUserSessions returns the user's sessions newest first; an empty mode means all modes.
	ListUserSessions(ctx context.Context, userID string, mode domain.Mode, limit int) ([]domain.Session, error)
	ListAnswerDetails(ctx context.Context, sessionID string) ([]domain.AnswerDetail, error)
	GetUserStats(ctx context.Context, userID string) (domain.UserStats, error)
	ListUserActivity(ctx context.Context) ([]domain.UserActivity, error)
}

// SealFunc turns an open session plus its answers into the completed session.
type SealFunc func(session domain.Session, answers []domain.Answer) domain.Session

// QuestionCatalog loads catalog questions (with options) for a subject.
type QuestionCatalog interface {
	ListQuestions(ctx context.Context, subject string) ([]domain.Question, error)
}

// QuestionWriter persists catalog questions; used by the seed command.
type QuestionWriter interface {
	SaveQuestions(ctx context.Context, questions []domain.Question) ([]domain.Question, error)
}

// Clock supplies the current time so tests can pin timestamps.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// storeErr passes domain errors through and hides everything else behind domain.ErrInternal.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		domain.ErrSessionNotFound,
		domain.ErrOptionNotFound,
		domain.ErrUserNotFound,
		domain.ErrSessionAlreadyCompleted,
		domain.ErrInternal,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return &domain.InternalError{Op: op, Err: err}
}
