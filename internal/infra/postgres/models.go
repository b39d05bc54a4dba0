package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"quizrank-service/internal/domain"
)

type userModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       string `bun:"id,pk"`
	Username string `bun:"username"`
}

type sessionModel struct {
	bun.BaseModel `bun:"table:quiz_sessions,alias:qs"`

	ID             string     `bun:"id,pk"`
	UserID         string     `bun:"user_id"`
	Mode           string     `bun:"mode"`
	StartTime      time.Time  `bun:"start_time"`
	EndTime        *time.Time `bun:"end_time"`
	TotalQuestions int        `bun:"total_questions"`
	CorrectAnswers int        `bun:"correct_answers"`
	TimeSpent      int        `bun:"time_spent"`
	Completed      bool       `bun:"completed"`
	CreatedAt      time.Time  `bun:"created_at"`
}

func (m sessionModel) toDomain() domain.Session {
	return domain.Session{
		ID:             m.ID,
		UserID:         m.UserID,
		Mode:           domain.Mode(m.Mode),
		StartTime:      m.StartTime,
		EndTime:        m.EndTime,
		TotalQuestions: m.TotalQuestions,
		CorrectAnswers: m.CorrectAnswers,
		TimeSpent:      m.TimeSpent,
		Completed:      m.Completed,
		CreatedAt:      m.CreatedAt,
	}
}

type answerModel struct {
	bun.BaseModel `bun:"table:question_answers,alias:qa"`

	SessionID        string    `bun:"session_id,pk"`
	QuestionID       string    `bun:"question_id,pk"`
	SelectedOptionID string    `bun:"selected_option_id"`
	IsCorrect        bool      `bun:"is_correct"`
	AttemptCount     int       `bun:"attempt_count"`
	TimeTaken        int64     `bun:"time_taken"`
	AnsweredAt       time.Time `bun:"answered_at"`
}

func (m answerModel) toDomain() domain.Answer {
	return domain.Answer{
		SessionID:        m.SessionID,
		QuestionID:       m.QuestionID,
		SelectedOptionID: m.SelectedOptionID,
		IsCorrect:        m.IsCorrect,
		AttemptCount:     m.AttemptCount,
		TimeTaken:        m.TimeTaken,
		AnsweredAt:       m.AnsweredAt,
	}
}

type questionModel struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID          string   `bun:"id,pk"`
	Subject     string   `bun:"subject"`
	Title       string   `bun:"title"`
	Content     string   `bun:"content"`
	Explanation string   `bun:"explanation"`
	Difficulty  int      `bun:"difficulty"`
	Tags        []string `bun:"tags,array"`
	Source      string   `bun:"source"`
}

type optionModel struct {
	bun.BaseModel `bun:"table:options,alias:o"`

	ID         string `bun:"id,pk"`
	QuestionID string `bun:"question_id"`
	Text       string `bun:"option_text"`
	IsCorrect  bool   `bun:"is_correct"`
	Position   int    `bun:"position"`
}

type completedRow struct {
	SessionID      string    `bun:"session_id"`
	UserID         string    `bun:"user_id"`
	Username       string    `bun:"username"`
	CorrectAnswers int       `bun:"correct_answers"`
	TotalQuestions int       `bun:"total_questions"`
	TimeSpent      int       `bun:"time_spent"`
	CreatedAt      time.Time `bun:"created_at"`
}

type detailRow struct {
	SessionID        string    `bun:"session_id"`
	QuestionID       string    `bun:"question_id"`
	SelectedOptionID string    `bun:"selected_option_id"`
	IsCorrect        bool      `bun:"is_correct"`
	AttemptCount     int       `bun:"attempt_count"`
	TimeTaken        int64     `bun:"time_taken"`
	AnsweredAt       time.Time `bun:"answered_at"`
	Title            string    `bun:"title"`
	Content          string    `bun:"content"`
	Explanation      string    `bun:"explanation"`
	SelectedText     string    `bun:"selected_text"`
	CorrectText      string    `bun:"correct_text"`
}

type activityRow struct {
	UserID         string     `bun:"user_id"`
	Total          int        `bun:"total_sessions"`
	Speed          int        `bun:"speed_sessions"`
	Study          int        `bun:"study_sessions"`
	TotalQuestions int        `bun:"total_questions"`
	TotalCorrect   int        `bun:"total_correct"`
	LastActivity   *time.Time `bun:"last_activity"`
}
