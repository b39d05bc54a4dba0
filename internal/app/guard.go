package app

import (
	"context"
	"errors"

	"quizrank-service/internal/domain"
)

// SessionReader is the slice of RecordStore the ownership guard needs.
type SessionReader interface {
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
}

// Guard grants access to a session only to the user who opened it.
type Guard struct {
	sessions SessionReader
}

func NewGuard(sessions SessionReader) *Guard {
	return &Guard{sessions: sessions}
}

// Authorize loads the session and verifies ownership. Unknown sessions and
// foreign sessions are indistinguishable to the caller.
func (g *Guard) Authorize(ctx context.Context, userID, sessionID string) (domain.Session, error) {
	if userID == "" || sessionID == "" {
		return domain.Session{}, domain.ErrUnauthorizedSession
	}
	session, err := g.sessions.GetSession(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.Session{}, domain.ErrUnauthorizedSession
	}
	if err != nil {
		return domain.Session{}, storeErr("get session", err)
	}
	if session.UserID != userID {
		return domain.Session{}, domain.ErrUnauthorizedSession
	}
	return session, nil
}
