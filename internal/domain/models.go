package domain

import (
	"strings"
	"time"
)

// Mode selects how a session is scored and ranked.
type Mode string

const (
	ModeSpeed Mode = "speed"
	ModeStudy Mode = "study"
)

// ParseMode validates a raw mode string.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.TrimSpace(raw)) {
	case ModeSpeed:
		return ModeSpeed, nil
	case ModeStudy:
		return ModeStudy, nil
	}
	return "", ErrInvalidMode
}

// Modes lists every supported mode in display order.
func Modes() []Mode {
	return []Mode{ModeSpeed, ModeStudy}
}

// User is the identity handed over by the authentication layer.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Session is one user's single pass at a set of questions.
// Once Completed is set, EndTime and the aggregate fields never change.
type Session struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Mode           Mode       `json:"mode"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	TotalQuestions int        `json:"total_questions"`
	CorrectAnswers int        `json:"correct_answers"`
	TimeSpent      int        `json:"time_spent"` // seconds
	Completed      bool       `json:"completed"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Answer is the accumulated progress on one question within a session.
// There is at most one Answer per (SessionID, QuestionID).
type Answer struct {
	SessionID        string    `json:"session_id"`
	QuestionID       string    `json:"question_id"`
	SelectedOptionID string    `json:"selected_option_id"`
	IsCorrect        bool      `json:"is_correct"`
	AttemptCount     int       `json:"attempt_count"`
	TimeTaken        int64     `json:"time_taken"` // milliseconds
	AnsweredAt       time.Time `json:"answered_at"`
}

// AnswerUpsert is the input of the accumulate-or-create step.
// InitialAttempts is only used when the row does not exist yet.
type AnswerUpsert struct {
	SessionID       string
	QuestionID      string
	OptionID        string
	IsCorrect       bool
	TimeDeltaMS     int64
	InitialAttempts int
	AnsweredAt      time.Time
}

// AnswerDetail joins an Answer with the question and option texts.
type AnswerDetail struct {
	Answer
	QuestionTitle   string `json:"question_title"`
	QuestionContent string `json:"question_content"`
	Explanation     string `json:"explanation"`
	SelectedText    string `json:"selected_text"`
	CorrectText     string `json:"correct_text"`
}

// Option represents a possible answer for a question.
type Option struct {
	ID         string `json:"id" yaml:"id"`
	QuestionID string `json:"question_id" yaml:"-"`
	Text       string `json:"text" yaml:"text"`
	Correct    bool   `json:"correct" yaml:"correct"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID          string   `json:"id" yaml:"id"`
	Subject     string   `json:"subject" yaml:"subject"`
	Title       string   `json:"title" yaml:"title"`
	Content     string   `json:"content" yaml:"content"`
	Explanation string   `json:"explanation,omitempty" yaml:"explanation"`
	Difficulty  int      `json:"difficulty" yaml:"difficulty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags"`
	Source      string   `json:"source,omitempty" yaml:"source"`
	Options     []Option `json:"options" yaml:"options"`
}

// CompletedSession is a finished session joined to its owner's display name.
type CompletedSession struct {
	SessionID      string
	UserID         string
	Username       string
	CorrectAnswers int
	TotalQuestions int
	TimeSpent      int
	CreatedAt      time.Time
}

// LeaderboardEntry is one ranked row; it is derived and never stored.
type LeaderboardEntry struct {
	Rank           int       `json:"rank"`
	UserID         string    `json:"user_id"`
	Username       string    `json:"username"`
	CorrectAnswers int       `json:"correct_answers"`
	TotalQuestions int       `json:"total_questions"`
	Accuracy       float64   `json:"accuracy"`
	TimeSpent      int       `json:"time_spent"`
	CreatedAt      time.Time `json:"created_at"`
}

// Leaderboard captures the ordered ranking for one mode.
type Leaderboard struct {
	Mode    Mode               `json:"mode"`
	Entries []LeaderboardEntry `json:"leaderboard"`
	Total   int                `json:"total"`
}

// SessionSummary is returned when a session is finished or listed in history.
type SessionSummary struct {
	SessionID      string     `json:"session_id"`
	Mode           Mode       `json:"mode"`
	TotalQuestions int        `json:"total_questions"`
	CorrectAnswers int        `json:"correct_answers"`
	Accuracy       float64    `json:"accuracy"`
	TimeSpent      int        `json:"time_spent"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	Completed      bool       `json:"completed"`
	CreatedAt      time.Time  `json:"created_at"`
}

// UserStats aggregates one user's completed sessions.
type UserStats struct {
	UserID          string     `json:"user_id"`
	TotalSessions   int        `json:"total_sessions"`
	SpeedSessions   int        `json:"speed_sessions"`
	StudySessions   int        `json:"study_sessions"`
	TotalQuestions  int        `json:"total_questions"`
	TotalCorrect    int        `json:"total_correct"`
	OverallAccuracy float64    `json:"overall_accuracy"`
	LastActivity    *time.Time `json:"last_activity,omitempty"`
}

// UserActivity is the per-user input of the activity counters.
type UserActivity struct {
	UserID        string
	TotalSessions int
	LastActivity  time.Time
}

// PersonalBest is a user's best ranked entry per mode.
type PersonalBest struct {
	SpeedBest *LeaderboardEntry `json:"speed_best"`
	StudyBest *LeaderboardEntry `json:"study_best"`
	Overall   *UserStats        `json:"overall_stats"` // nil when the user has no sessions
}

type SpeedStats struct {
	TotalRecords      int     `json:"total_records"`
	AvgCorrectAnswers float64 `json:"avg_correct_answers"`
	AvgAccuracy       float64 `json:"avg_accuracy"`
	AvgTimeSpent      float64 `json:"avg_time_spent"`
	MaxCorrectAnswers int     `json:"max_correct_answers"`
	MinTimeSpent      int     `json:"min_time_spent"`
}

type StudyStats struct {
	TotalRecords int     `json:"total_records"`
	AvgQuestions float64 `json:"avg_questions"`
	AvgTimeSpent float64 `json:"avg_time_spent"`
	MaxQuestions int     `json:"max_questions"`
	MaxTimeSpent int     `json:"max_time_spent"`
}

type ActivityStats struct {
	TotalActiveUsers   int `json:"total_active_users"`
	WeeklyActiveUsers  int `json:"weekly_active_users"`
	MonthlyActiveUsers int `json:"monthly_active_users"`
}

// Stats is the descriptive summary served next to the leaderboards.
type Stats struct {
	Speed SpeedStats    `json:"speed_mode"`
	Study StudyStats    `json:"study_mode"`
	Users ActivityStats `json:"users"`
}
