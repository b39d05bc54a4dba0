package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quizrank-service/internal/domain"
)

// QuestionLoader loads catalog questions with their options from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) ListQuestions(ctx context.Context, subject string) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT q.id, q.subject, q.title, q.content, q.explanation, q.difficulty, q.tags, q.source,
		       o.id, o.option_text, o.is_correct
		FROM questions q
		JOIN options o ON o.question_id = q.id
		WHERE q.subject = $1
		ORDER BY q.created_at, q.id, o.position`, subject)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Question, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			q domain.Question
			o domain.Option
		)
		if err := rows.Scan(&q.ID, &q.Subject, &q.Title, &q.Content, &q.Explanation, &q.Difficulty, &q.Tags, &q.Source,
			&o.ID, &o.Text, &o.Correct); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		i, ok := index[q.ID]
		if !ok {
			i = len(out)
			index[q.ID] = i
			out = append(out, q)
		}
		o.QuestionID = q.ID
		out[i].Options = append(out[i].Options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return out, nil
}
