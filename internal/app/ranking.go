package app

import (
	"sort"

	"quizrank-service/internal/domain"
)

const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 100
)

// ClampLimit bounds a requested leaderboard size to (0, MaxLeaderboardLimit].
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		return MaxLeaderboardLimit
	}
	return limit
}

// lessFunc reports whether a ranks strictly above b.
type lessFunc func(a, b domain.CompletedSession) bool

// speed: more correct, then less time, then more recent.
func speedLess(a, b domain.CompletedSession) bool {
	if a.CorrectAnswers != b.CorrectAnswers {
		return a.CorrectAnswers > b.CorrectAnswers
	}
	if a.TimeSpent != b.TimeSpent {
		return a.TimeSpent < b.TimeSpent
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// study: more questions, then more time, then more recent.
func studyLess(a, b domain.CompletedSession) bool {
	if a.TotalQuestions != b.TotalQuestions {
		return a.TotalQuestions > b.TotalQuestions
	}
	if a.TimeSpent != b.TimeSpent {
		return a.TimeSpent > b.TimeSpent
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func comparator(mode domain.Mode) (lessFunc, error) {
	switch mode {
	case domain.ModeSpeed:
		return speedLess, nil
	case domain.ModeStudy:
		return studyLess, nil
	}
	return nil, domain.ErrInvalidMode
}

// BestPerUser keeps each user's single best session under the mode's ordering
// and returns them globally sorted. Sessions that tie on every key keep their
// input order, so full ties are ranked in whatever order the store returned.
func BestPerUser(mode domain.Mode, rows []domain.CompletedSession) ([]domain.CompletedSession, error) {
	less, err := comparator(mode)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(rows))
	best := make([]domain.CompletedSession, 0, len(rows))
	for _, row := range rows {
		i, ok := index[row.UserID]
		if !ok {
			index[row.UserID] = len(best)
			best = append(best, row)
			continue
		}
		if less(row, best[i]) {
			best[i] = row
		}
	}

	sort.SliceStable(best, func(i, j int) bool {
		return less(best[i], best[j])
	})
	return best, nil
}

// Rank builds the leaderboard for mode: one entry per user, sequential ranks
// starting at 1, truncated to ClampLimit(limit).
func Rank(mode domain.Mode, rows []domain.CompletedSession, limit int) ([]domain.LeaderboardEntry, error) {
	entries, err := rankAll(mode, rows)
	if err != nil {
		return nil, err
	}
	if n := ClampLimit(limit); len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

func rankAll(mode domain.Mode, rows []domain.CompletedSession) ([]domain.LeaderboardEntry, error) {
	best, err := BestPerUser(mode, rows)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.LeaderboardEntry, 0, len(best))
	for i, row := range best {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:           i + 1,
			UserID:         row.UserID,
			Username:       row.Username,
			CorrectAnswers: row.CorrectAnswers,
			TotalQuestions: row.TotalQuestions,
			Accuracy:       Accuracy(row.CorrectAnswers, row.TotalQuestions),
			TimeSpent:      row.TimeSpent,
			CreatedAt:      row.CreatedAt,
		})
	}
	return entries, nil
}
