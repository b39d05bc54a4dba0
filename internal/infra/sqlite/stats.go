package sqlite

import (
	"context"
	"database/sql"
	"time"

	"quizrank-service/internal/app"
	"quizrank-service/internal/domain"
)

// activityRow carries the per-session fields the user aggregates need.
// Timestamps are folded in Go: SQLite loses the column type on MAX().
type activityRow struct {
	userID    string
	mode      domain.Mode
	completed bool
	total     int
	correct   int
	last      time.Time
}

func (s *Store) activityRows(ctx context.Context, where string, args ...any) ([]activityRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, mode, completed, total_questions, correct_answers, start_time, end_time
		 FROM quiz_sessions `+where+` ORDER BY rowid`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []activityRow
	for rows.Next() {
		var (
			r     activityRow
			mode  string
			start time.Time
			end   sql.NullTime
		)
		if err := rows.Scan(&r.userID, &mode, &r.completed, &r.total, &r.correct, &start, &end); err != nil {
			return nil, err
		}
		r.mode = domain.Mode(mode)
		r.last = start
		if end.Valid {
			r.last = end.Time
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetUserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	rows, err := s.activityRows(ctx, `WHERE user_id = ?`, userID)
	if err != nil {
		return domain.UserStats{}, err
	}
	if len(rows) == 0 {
		return domain.UserStats{}, domain.ErrUserNotFound
	}

	stats := domain.UserStats{UserID: userID}
	for _, r := range rows {
		last := r.last
		if stats.LastActivity == nil || last.After(*stats.LastActivity) {
			stats.LastActivity = &last
		}
		if !r.completed {
			continue
		}
		stats.TotalSessions++
		if r.mode == domain.ModeSpeed {
			stats.SpeedSessions++
		} else {
			stats.StudySessions++
		}
		stats.TotalQuestions += r.total
		stats.TotalCorrect += r.correct
	}
	stats.OverallAccuracy = app.Accuracy(stats.TotalCorrect, stats.TotalQuestions)
	return stats, nil
}

func (s *Store) ListUserActivity(ctx context.Context) ([]domain.UserActivity, error) {
	rows, err := s.activityRows(ctx, ``)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	out := make([]domain.UserActivity, 0)
	for _, r := range rows {
		i, ok := index[r.userID]
		if !ok {
			i = len(out)
			index[r.userID] = i
			out = append(out, domain.UserActivity{UserID: r.userID})
		}
		if r.completed {
			out[i].TotalSessions++
		}
		if r.last.After(out[i].LastActivity) {
			out[i].LastActivity = r.last
		}
	}
	return out, nil
}
