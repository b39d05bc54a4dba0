package app

import (
	"time"

	"quizrank-service/internal/domain"
)

const (
	weeklyWindow  = 7 * 24 * time.Hour
	monthlyWindow = 30 * 24 * time.Hour
)

// AggregateSpeed summarizes best-per-user speed rows. Means are rounded to one decimal.
func AggregateSpeed(best []domain.CompletedSession) domain.SpeedStats {
	stats := domain.SpeedStats{TotalRecords: len(best)}
	if len(best) == 0 {
		return stats
	}

	var correct, accuracy, spent float64
	stats.MinTimeSpent = best[0].TimeSpent
	for _, row := range best {
		correct += float64(row.CorrectAnswers)
		accuracy += Accuracy(row.CorrectAnswers, row.TotalQuestions)
		spent += float64(row.TimeSpent)
		if row.CorrectAnswers > stats.MaxCorrectAnswers {
			stats.MaxCorrectAnswers = row.CorrectAnswers
		}
		if row.TimeSpent < stats.MinTimeSpent {
			stats.MinTimeSpent = row.TimeSpent
		}
	}
	n := float64(len(best))
	stats.AvgCorrectAnswers = round(correct/n, 1)
	stats.AvgAccuracy = round(accuracy/n, 1)
	stats.AvgTimeSpent = round(spent/n, 1)
	return stats
}

// AggregateStudy summarizes best-per-user study rows.
func AggregateStudy(best []domain.CompletedSession) domain.StudyStats {
	stats := domain.StudyStats{TotalRecords: len(best)}
	if len(best) == 0 {
		return stats
	}

	var questions, spent float64
	for _, row := range best {
		questions += float64(row.TotalQuestions)
		spent += float64(row.TimeSpent)
		if row.TotalQuestions > stats.MaxQuestions {
			stats.MaxQuestions = row.TotalQuestions
		}
		if row.TimeSpent > stats.MaxTimeSpent {
			stats.MaxTimeSpent = row.TimeSpent
		}
	}
	n := float64(len(best))
	stats.AvgQuestions = round(questions/n, 1)
	stats.AvgTimeSpent = round(spent/n, 1)
	return stats
}

// AggregateActivity counts users with at least one completed session and how
// many of them were active in the last 7 and 30 days.
func AggregateActivity(activity []domain.UserActivity, now time.Time) domain.ActivityStats {
	var stats domain.ActivityStats
	weekAgo := now.Add(-weeklyWindow)
	monthAgo := now.Add(-monthlyWindow)
	for _, user := range activity {
		if user.TotalSessions <= 0 {
			continue
		}
		stats.TotalActiveUsers++
		if !user.LastActivity.Before(weekAgo) {
			stats.WeeklyActiveUsers++
		}
		if !user.LastActivity.Before(monthAgo) {
			stats.MonthlyActiveUsers++
		}
	}
	return stats
}
