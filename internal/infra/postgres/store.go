package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"quizrank-service/internal/app"
	"quizrank-service/internal/domain"
)

// Store is the Postgres-backed app.RecordStore. Mutations of one session are
// serialized by locking its row (SELECT ... FOR UPDATE).
type Store struct {
	db *bun.DB
}

var (
	_ app.RecordStore    = (*Store)(nil)
	_ app.QuestionWriter = (*Store)(nil)
)

// Open connects bun to Postgres through pgdriver.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateSession(ctx context.Context, user domain.User, mode domain.Mode, start time.Time) (domain.Session, error) {
	m := sessionModel{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Mode:      string(mode),
		StartTime: start,
		CreatedAt: start,
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// an empty username never overwrites a known one
		if _, err := tx.NewInsert().
			Model(&userModel{ID: user.ID, Username: user.Username}).
			On("CONFLICT (id) DO UPDATE").
			Set("username = COALESCE(NULLIF(EXCLUDED.username, ''), u.username)").
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&m).Exec(ctx)
		return err
	})
	if err != nil {
		return domain.Session{}, err
	}
	return m.toDomain(), nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	var m sessionModel
	err := s.db.NewSelect().Model(&m).Where("id = ?", sessionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	return m.toDomain(), nil
}

func (s *Store) GetOptionCorrectness(ctx context.Context, optionID, questionID string) (bool, error) {
	var correct bool
	err := s.db.NewSelect().
		Model((*optionModel)(nil)).
		Column("is_correct").
		Where("id = ?", optionID).
		Where("question_id = ?", questionID).
		Scan(ctx, &correct)
	if errors.Is(err, sql.ErrNoRows) {
		return false, domain.ErrOptionNotFound
	}
	return correct, err
}

// lockSession loads the session row and holds its lock until tx ends.
func lockSession(ctx context.Context, tx bun.Tx, sessionID string) (sessionModel, error) {
	var m sessionModel
	err := tx.NewSelect().Model(&m).Where("id = ?", sessionID).For("UPDATE").Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return m, domain.ErrSessionNotFound
	}
	return m, err
}

func (s *Store) UpsertAnswer(ctx context.Context, in domain.AnswerUpsert) (domain.Answer, error) {
	attempts := in.InitialAttempts
	if attempts < 1 {
		attempts = 1
	}
	row := answerModel{
		SessionID:        in.SessionID,
		QuestionID:       in.QuestionID,
		SelectedOptionID: in.OptionID,
		IsCorrect:        in.IsCorrect,
		AttemptCount:     attempts,
		TimeTaken:        in.TimeDeltaMS,
		AnsweredAt:       in.AnsweredAt,
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		session, err := lockSession(ctx, tx, in.SessionID)
		if err != nil {
			return err
		}
		if session.Completed {
			return domain.ErrSessionAlreadyCompleted
		}
		_, err = tx.NewInsert().
			Model(&row).
			On("CONFLICT (session_id, question_id) DO UPDATE").
			Set("selected_option_id = EXCLUDED.selected_option_id").
			Set("is_correct = EXCLUDED.is_correct").
			Set("attempt_count = qa.attempt_count + 1").
			Set("time_taken = qa.time_taken + EXCLUDED.time_taken").
			Set("answered_at = EXCLUDED.answered_at").
			Returning("attempt_count, time_taken").
			Exec(ctx)
		return err
	})
	if err != nil {
		return domain.Answer{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) FinalizeSession(ctx context.Context, sessionID string, seal app.SealFunc) (domain.Session, error) {
	var (
		result  domain.Session
		already bool
	)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		m, err := lockSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if m.Completed {
			result, already = m.toDomain(), true
			return nil
		}

		var rows []answerModel
		if err := tx.NewSelect().Model(&rows).Where("session_id = ?", sessionID).Scan(ctx); err != nil {
			return err
		}
		answers := make([]domain.Answer, 0, len(rows))
		for _, r := range rows {
			answers = append(answers, r.toDomain())
		}

		sealed := seal(m.toDomain(), answers)
		m.EndTime = sealed.EndTime
		m.TotalQuestions = sealed.TotalQuestions
		m.CorrectAnswers = sealed.CorrectAnswers
		m.TimeSpent = sealed.TimeSpent
		m.Completed = true
		if _, err := tx.NewUpdate().
			Model(&m).
			Column("end_time", "total_questions", "correct_answers", "time_spent", "completed").
			WherePK().
			Exec(ctx); err != nil {
			return err
		}
		result = m.toDomain()
		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	if already {
		return result, domain.ErrSessionAlreadyCompleted
	}
	return result, nil
}

func (s *Store) ListCompletedSessions(ctx context.Context, mode domain.Mode) ([]domain.CompletedSession, error) {
	var rows []completedRow
	err := s.db.NewSelect().
		TableExpr("quiz_sessions AS qs").
		ColumnExpr("qs.id AS session_id, qs.user_id, u.username").
		ColumnExpr("qs.correct_answers, qs.total_questions, qs.time_spent, qs.created_at").
		Join("JOIN users AS u ON u.id = qs.user_id").
		Where("qs.mode = ?", string(mode)).
		Where("qs.completed").
		OrderExpr("qs.seq ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	out := make([]domain.CompletedSession, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.CompletedSession{
			SessionID:      r.SessionID,
			UserID:         r.UserID,
			Username:       r.Username,
			CorrectAnswers: r.CorrectAnswers,
			TotalQuestions: r.TotalQuestions,
			TimeSpent:      r.TimeSpent,
			CreatedAt:      r.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) ListUserSessions(ctx context.Context, userID string, mode domain.Mode, limit int) ([]domain.Session, error) {
	var rows []sessionModel
	q := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		OrderExpr("created_at DESC, seq DESC")
	if mode != "" {
		q = q.Where("mode = ?", string(mode))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	out := make([]domain.Session, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) ListAnswerDetails(ctx context.Context, sessionID string) ([]domain.AnswerDetail, error) {
	var rows []detailRow
	err := s.db.NewSelect().
		TableExpr("question_answers AS qa").
		ColumnExpr("qa.session_id, qa.question_id, qa.selected_option_id, qa.is_correct").
		ColumnExpr("qa.attempt_count, qa.time_taken, qa.answered_at").
		ColumnExpr("q.title, q.content, q.explanation").
		ColumnExpr("COALESCE(o.option_text, '') AS selected_text").
		ColumnExpr("COALESCE(co.option_text, '') AS correct_text").
		Join("JOIN questions AS q ON q.id = qa.question_id").
		Join("LEFT JOIN options AS o ON o.id = qa.selected_option_id").
		Join("LEFT JOIN options AS co ON co.question_id = q.id AND co.is_correct").
		Where("qa.session_id = ?", sessionID).
		OrderExpr("qa.answered_at ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	out := make([]domain.AnswerDetail, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.AnswerDetail{
			Answer: domain.Answer{
				SessionID:        r.SessionID,
				QuestionID:       r.QuestionID,
				SelectedOptionID: r.SelectedOptionID,
				IsCorrect:        r.IsCorrect,
				AttemptCount:     r.AttemptCount,
				TimeTaken:        r.TimeTaken,
				AnsweredAt:       r.AnsweredAt,
			},
			QuestionTitle:   r.Title,
			QuestionContent: r.Content,
			Explanation:     r.Explanation,
			SelectedText:    r.SelectedText,
			CorrectText:     r.CorrectText,
		})
	}
	return out, nil
}

func (s *Store) activity(ctx context.Context, userID string) ([]activityRow, error) {
	var rows []activityRow
	q := s.db.NewSelect().
		TableExpr("quiz_sessions AS qs").
		ColumnExpr("qs.user_id").
		ColumnExpr("COUNT(*) FILTER (WHERE qs.completed) AS total_sessions").
		ColumnExpr("COUNT(*) FILTER (WHERE qs.completed AND qs.mode = 'speed') AS speed_sessions").
		ColumnExpr("COUNT(*) FILTER (WHERE qs.completed AND qs.mode = 'study') AS study_sessions").
		ColumnExpr("COALESCE(SUM(qs.total_questions) FILTER (WHERE qs.completed), 0) AS total_questions").
		ColumnExpr("COALESCE(SUM(qs.correct_answers) FILTER (WHERE qs.completed), 0) AS total_correct").
		ColumnExpr("MAX(COALESCE(qs.end_time, qs.start_time)) AS last_activity").
		GroupExpr("qs.user_id").
		OrderExpr("MIN(qs.seq)")
	if userID != "" {
		q = q.Where("qs.user_id = ?", userID)
	}
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) GetUserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	rows, err := s.activity(ctx, userID)
	if err != nil {
		return domain.UserStats{}, err
	}
	if len(rows) == 0 {
		return domain.UserStats{}, domain.ErrUserNotFound
	}
	r := rows[0]
	return domain.UserStats{
		UserID:          userID,
		TotalSessions:   r.Total,
		SpeedSessions:   r.Speed,
		StudySessions:   r.Study,
		TotalQuestions:  r.TotalQuestions,
		TotalCorrect:    r.TotalCorrect,
		OverallAccuracy: app.Accuracy(r.TotalCorrect, r.TotalQuestions),
		LastActivity:    r.LastActivity,
	}, nil
}

func (s *Store) ListUserActivity(ctx context.Context) ([]domain.UserActivity, error) {
	rows, err := s.activity(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserActivity, 0, len(rows))
	for _, r := range rows {
		a := domain.UserActivity{UserID: r.UserID, TotalSessions: r.Total}
		if r.LastActivity != nil {
			a.LastActivity = *r.LastActivity
		}
		out = append(out, a)
	}
	return out, nil
}

// SaveQuestions upserts questions and replaces their options.
func (s *Store) SaveQuestions(ctx context.Context, questions []domain.Question) ([]domain.Question, error) {
	saved := make([]domain.Question, 0, len(questions))
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, q := range questions {
			if q.ID == "" {
				q.ID = uuid.NewString()
			}
			tags := q.Tags
			if tags == nil {
				tags = []string{}
			}
			qm := questionModel{
				ID: q.ID, Subject: q.Subject, Title: q.Title, Content: q.Content,
				Explanation: q.Explanation, Difficulty: q.Difficulty, Tags: tags, Source: q.Source,
			}
			if _, err := tx.NewInsert().Model(&qm).
				On("CONFLICT (id) DO UPDATE").
				Set("subject = EXCLUDED.subject, title = EXCLUDED.title, content = EXCLUDED.content").
				Set("explanation = EXCLUDED.explanation, difficulty = EXCLUDED.difficulty").
				Set("tags = EXCLUDED.tags, source = EXCLUDED.source").
				Exec(ctx); err != nil {
				return err
			}
			if _, err := tx.NewDelete().Model((*optionModel)(nil)).Where("question_id = ?", q.ID).Exec(ctx); err != nil {
				return err
			}

			opts := make([]domain.Option, len(q.Options))
			models := make([]optionModel, len(q.Options))
			for i, o := range q.Options {
				if o.ID == "" {
					o.ID = uuid.NewString()
				}
				o.QuestionID = q.ID
				opts[i] = o
				models[i] = optionModel{ID: o.ID, QuestionID: q.ID, Text: o.Text, IsCorrect: o.Correct, Position: i}
			}
			if len(models) > 0 {
				if _, err := tx.NewInsert().Model(&models).Exec(ctx); err != nil {
					return err
				}
			}
			q.Options = opts
			saved = append(saved, q)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}
