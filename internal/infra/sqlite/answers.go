package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"quizrank-service/internal/domain"
)

func (s *Store) GetOptionCorrectness(ctx context.Context, optionID, questionID string) (bool, error) {
	var correct bool
	err := s.db.QueryRowContext(ctx,
		`SELECT is_correct FROM options WHERE id = ? AND question_id = ?`,
		optionID, questionID,
	).Scan(&correct)
	if errors.Is(err, sql.ErrNoRows) {
		return false, domain.ErrOptionNotFound
	}
	return correct, err
}

// UpsertAnswer accumulates into the (session, question) row in a single
// statement; the completed check shares its transaction.
func (s *Store) UpsertAnswer(ctx context.Context, in domain.AnswerUpsert) (domain.Answer, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Answer{}, err
	}
	defer tx.Rollback()

	var completed bool
	err = tx.QueryRowContext(ctx, `SELECT completed FROM quiz_sessions WHERE id = ?`, in.SessionID).Scan(&completed)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Answer{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Answer{}, err
	}
	if completed {
		return domain.Answer{}, domain.ErrSessionAlreadyCompleted
	}

	attempts := in.InitialAttempts
	if attempts < 1 {
		attempts = 1
	}
	answer := domain.Answer{
		SessionID:        in.SessionID,
		QuestionID:       in.QuestionID,
		SelectedOptionID: in.OptionID,
		IsCorrect:        in.IsCorrect,
		AnsweredAt:       in.AnsweredAt.UTC(),
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO question_answers
		   (session_id, question_id, selected_option_id, is_correct, attempt_count, time_taken, answered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, question_id) DO UPDATE SET
		   selected_option_id = excluded.selected_option_id,
		   is_correct = excluded.is_correct,
		   attempt_count = question_answers.attempt_count + 1,
		   time_taken = question_answers.time_taken + excluded.time_taken,
		   answered_at = excluded.answered_at
		 RETURNING attempt_count, time_taken`,
		in.SessionID, in.QuestionID, in.OptionID, in.IsCorrect, attempts, in.TimeDeltaMS, answer.AnsweredAt,
	).Scan(&answer.AttemptCount, &answer.TimeTaken)
	if err != nil {
		return domain.Answer{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Answer{}, err
	}
	return answer, nil
}

type rowsQueryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listAnswers(ctx context.Context, q rowsQueryer, sessionID string) ([]domain.Answer, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT session_id, question_id, selected_option_id, is_correct, attempt_count, time_taken, answered_at
		 FROM question_answers WHERE session_id = ?`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Answer, 0)
	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.SessionID, &a.QuestionID, &a.SelectedOptionID, &a.IsCorrect, &a.AttemptCount, &a.TimeTaken, &a.AnsweredAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ListAnswerDetails(ctx context.Context, sessionID string) ([]domain.AnswerDetail, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT qa.session_id, qa.question_id, qa.selected_option_id, qa.is_correct, qa.attempt_count,
		        qa.time_taken, qa.answered_at, q.title, q.content, q.explanation,
		        COALESCE(o.option_text, ''), COALESCE(co.option_text, '')
		 FROM question_answers qa
		 JOIN questions q ON q.id = qa.question_id
		 LEFT JOIN options o ON o.id = qa.selected_option_id
		 LEFT JOIN options co ON co.question_id = q.id AND co.is_correct = 1
		 WHERE qa.session_id = ?
		 ORDER BY qa.answered_at, qa.rowid`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.AnswerDetail, 0)
	for rows.Next() {
		var d domain.AnswerDetail
		if err := rows.Scan(&d.SessionID, &d.QuestionID, &d.SelectedOptionID, &d.IsCorrect, &d.AttemptCount,
			&d.TimeTaken, &d.AnsweredAt, &d.QuestionTitle, &d.QuestionContent, &d.Explanation,
			&d.SelectedText, &d.CorrectText); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
