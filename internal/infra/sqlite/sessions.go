package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"quizrank-service/internal/app"
	"quizrank-service/internal/domain"
)

const sessionColumns = `id, user_id, mode, start_time, end_time, total_questions, correct_answers, time_spent, completed, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (domain.Session, error) {
	var (
		s    domain.Session
		mode string
		end  sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.UserID, &mode, &s.StartTime, &end, &s.TotalQuestions, &s.CorrectAnswers, &s.TimeSpent, &s.Completed, &s.CreatedAt); err != nil {
		return domain.Session{}, err
	}
	s.Mode = domain.Mode(mode)
	if end.Valid {
		t := end.Time
		s.EndTime = &t
	}
	return s, nil
}

func (s *Store) CreateSession(ctx context.Context, user domain.User, mode domain.Mode, start time.Time) (domain.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Session{}, err
	}
	defer tx.Rollback()

	// an empty username never overwrites a known one
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, username) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET username = CASE WHEN excluded.username = '' THEN users.username ELSE excluded.username END`,
		user.ID, user.Username,
	); err != nil {
		return domain.Session{}, err
	}

	session := domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Mode:      mode,
		StartTime: start.UTC(),
		CreatedAt: start.UTC(),
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO quiz_sessions (id, user_id, mode, start_time, created_at) VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.UserID, string(mode), session.StartTime, session.CreatedAt,
	); err != nil {
		return domain.Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	return getSession(ctx, s.db, sessionID)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getSession(ctx context.Context, q queryer, sessionID string) (domain.Session, error) {
	session, err := scanSession(q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM quiz_sessions WHERE id = ?`, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, err
}

// FinalizeSession counts answers and seals the session in one transaction.
func (s *Store) FinalizeSession(ctx context.Context, sessionID string, seal app.SealFunc) (domain.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Session{}, err
	}
	defer tx.Rollback()

	session, err := getSession(ctx, tx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if session.Completed {
		return session, domain.ErrSessionAlreadyCompleted
	}

	answers, err := listAnswers(ctx, tx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	sealed := seal(session, answers)

	var end any
	if sealed.EndTime != nil {
		end = sealed.EndTime.UTC()
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE quiz_sessions
		 SET end_time = ?, total_questions = ?, correct_answers = ?, time_spent = ?, completed = 1
		 WHERE id = ? AND completed = 0`,
		end, sealed.TotalQuestions, sealed.CorrectAnswers, sealed.TimeSpent, sessionID,
	)
	if err != nil {
		return domain.Session{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return domain.Session{}, err
	} else if n == 0 {
		return session, domain.ErrSessionAlreadyCompleted
	}
	if err := tx.Commit(); err != nil {
		return domain.Session{}, err
	}
	sealed.Completed = true
	return sealed, nil
}

func (s *Store) ListCompletedSessions(ctx context.Context, mode domain.Mode) ([]domain.CompletedSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT qs.id, qs.user_id, u.username, qs.correct_answers, qs.total_questions, qs.time_spent, qs.created_at
		 FROM quiz_sessions qs
		 JOIN users u ON u.id = qs.user_id
		 WHERE qs.mode = ? AND qs.completed = 1
		 ORDER BY qs.rowid`,
		string(mode),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.CompletedSession, 0)
	for rows.Next() {
		var c domain.CompletedSession
		if err := rows.Scan(&c.SessionID, &c.UserID, &c.Username, &c.CorrectAnswers, &c.TotalQuestions, &c.TimeSpent, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListUserSessions(ctx context.Context, userID string, mode domain.Mode, limit int) ([]domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM quiz_sessions WHERE user_id = ?`
	args := []any{userID}
	if mode != "" {
		query += ` AND mode = ?`
		args = append(args, string(mode))
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}
