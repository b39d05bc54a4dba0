package app

import (
	"math"
	"time"

	"quizrank-service/internal/domain"
)

// Accuracy is the percentage of correct answers rounded to two decimals, or 0
// for a session without answers.
func Accuracy(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round(float64(correct)*100/float64(total), 2)
}

// Seal computes the immutable summary fields of a session finished at now.
// TimeSpent is the wall-clock duration of the session, not the sum of the
// per-answer think times.
func Seal(session domain.Session, answers []domain.Answer, now time.Time) domain.Session {
	seen := make(map[string]struct{}, len(answers))
	correct := 0
	for _, answer := range answers {
		if _, ok := seen[answer.QuestionID]; ok {
			continue
		}
		seen[answer.QuestionID] = struct{}{}
		if answer.IsCorrect {
			correct++
		}
	}

	elapsed := now.Sub(session.StartTime)
	if elapsed < 0 {
		elapsed = 0
	}
	end := now

	session.EndTime = &end
	session.TotalQuestions = len(seen)
	session.CorrectAnswers = correct
	session.TimeSpent = int(elapsed / time.Second)
	session.Completed = true
	return session
}

// Summarize renders a session for responses; accuracy is always recomputed.
func Summarize(session domain.Session) domain.SessionSummary {
	return domain.SessionSummary{
		SessionID:      session.ID,
		Mode:           session.Mode,
		TotalQuestions: session.TotalQuestions,
		CorrectAnswers: session.CorrectAnswers,
		Accuracy:       Accuracy(session.CorrectAnswers, session.TotalQuestions),
		TimeSpent:      session.TimeSpent,
		StartTime:      session.StartTime,
		EndTime:        session.EndTime,
		Completed:      session.Completed,
		CreatedAt:      session.CreatedAt,
	}
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
