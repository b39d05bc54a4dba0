package sqlite

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"quizrank-service/internal/domain"
)

// SaveQuestions upserts questions and replaces their options.
func (s *Store) SaveQuestions(ctx context.Context, questions []domain.Question) ([]domain.Question, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	saved := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO questions (id, subject, title, content, explanation, difficulty, tags, source)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET subject = excluded.subject, title = excluded.title,
			   content = excluded.content, explanation = excluded.explanation,
			   difficulty = excluded.difficulty, tags = excluded.tags, source = excluded.source`,
			q.ID, q.Subject, q.Title, q.Content, q.Explanation, q.Difficulty, strings.Join(q.Tags, ","), q.Source,
		); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM options WHERE question_id = ?`, q.ID); err != nil {
			return nil, err
		}
		opts := make([]domain.Option, len(q.Options))
		for i, o := range q.Options {
			if o.ID == "" {
				o.ID = uuid.NewString()
			}
			o.QuestionID = q.ID
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO options (id, question_id, option_text, is_correct, position) VALUES (?, ?, ?, ?, ?)`,
				o.ID, o.QuestionID, o.Text, o.Correct, i,
			); err != nil {
				return nil, err
			}
			opts[i] = o
		}
		q.Options = opts
		saved = append(saved, q)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *Store) ListQuestions(ctx context.Context, subject string) ([]domain.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT q.id, q.subject, q.title, q.content, q.explanation, q.difficulty, q.tags, q.source,
		        o.id, o.option_text, o.is_correct
		 FROM questions q
		 JOIN options o ON o.question_id = q.id
		 WHERE q.subject = ?
		 ORDER BY q.rowid, o.position`,
		subject,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Question, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			q    domain.Question
			tags string
			o    domain.Option
		)
		if err := rows.Scan(&q.ID, &q.Subject, &q.Title, &q.Content, &q.Explanation, &q.Difficulty, &tags, &q.Source,
			&o.ID, &o.Text, &o.Correct); err != nil {
			return nil, err
		}
		i, ok := index[q.ID]
		if !ok {
			if tags != "" {
				q.Tags = strings.Split(tags, ",")
			}
			i = len(out)
			index[q.ID] = i
			out = append(out, q)
		}
		o.QuestionID = q.ID
		out[i].Options = append(out[i].Options, o)
	}
	return out, rows.Err()
}
