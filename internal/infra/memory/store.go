package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"quizrank-service/internal/app"
	"quizrank-service/internal/domain"
)

// Store is an in-memory implementation of app.RecordStore and the question
// catalog. One mutex serializes every mutation, which makes the answer upsert
// and the session seal atomic with respect to each other.
type Store struct {
	mu sync.RWMutex

	users    map[string]domain.User
	sessions map[string]*domain.Session
	// creation order of session ids; used as the final tiebreak of listings
	sessionOrder []string
	answers      map[string][]*domain.Answer

	questions    map[string]domain.Question
	subjectOrder map[string][]string
	options      map[string]domain.Option
}

func NewStore() *Store {
	return &Store{
		users:        make(map[string]domain.User),
		sessions:     make(map[string]*domain.Session),
		answers:      make(map[string][]*domain.Answer),
		questions:    make(map[string]domain.Question),
		subjectOrder: make(map[string][]string),
		options:      make(map[string]domain.Option),
	}
}

var (
	_ app.RecordStore     = (*Store)(nil)
	_ app.QuestionCatalog = (*Store)(nil)
	_ app.QuestionWriter  = (*Store)(nil)
)

func (s *Store) CreateSession(_ context.Context, user domain.User, mode domain.Mode, start time.Time) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, known := s.users[user.ID]; !known || user.Username != "" {
		s.users[user.ID] = user
	}

	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Mode:      mode,
		StartTime: start,
		CreatedAt: start,
	}
	s.sessions[session.ID] = session
	s.sessionOrder = append(s.sessionOrder, session.ID)
	return *session, nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return copySession(session), nil
}

func (s *Store) GetOptionCorrectness(_ context.Context, optionID, questionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	option, ok := s.options[optionID]
	if !ok || option.QuestionID != questionID {
		return false, domain.ErrOptionNotFound
	}
	return option.Correct, nil
}

func (s *Store) UpsertAnswer(_ context.Context, in domain.AnswerUpsert) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[in.SessionID]
	if !ok {
		return domain.Answer{}, domain.ErrSessionNotFound
	}
	if session.Completed {
		return domain.Answer{}, domain.ErrSessionAlreadyCompleted
	}

	for _, answer := range s.answers[in.SessionID] {
		if answer.QuestionID != in.QuestionID {
			continue
		}
		answer.SelectedOptionID = in.OptionID
		answer.IsCorrect = in.IsCorrect
		answer.AttemptCount++
		answer.TimeTaken += in.TimeDeltaMS
		answer.AnsweredAt = in.AnsweredAt
		return *answer, nil
	}

	attempts := in.InitialAttempts
	if attempts < 1 {
		attempts = 1
	}
	answer := &domain.Answer{
		SessionID:        in.SessionID,
		QuestionID:       in.QuestionID,
		SelectedOptionID: in.OptionID,
		IsCorrect:        in.IsCorrect,
		AttemptCount:     attempts,
		TimeTaken:        in.TimeDeltaMS,
		AnsweredAt:       in.AnsweredAt,
	}
	s.answers[in.SessionID] = append(s.answers[in.SessionID], answer)
	return *answer, nil
}

func (s *Store) FinalizeSession(_ context.Context, sessionID string, seal app.SealFunc) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if session.Completed {
		return copySession(session), domain.ErrSessionAlreadyCompleted
	}

	answers := make([]domain.Answer, 0, len(s.answers[sessionID]))
	for _, answer := range s.answers[sessionID] {
		answers = append(answers, *answer)
	}
	sealed := seal(copySession(session), answers)

	session.EndTime = sealed.EndTime
	session.TotalQuestions = sealed.TotalQuestions
	session.CorrectAnswers = sealed.CorrectAnswers
	session.TimeSpent = sealed.TimeSpent
	session.Completed = true
	return copySession(session), nil
}

func (s *Store) ListCompletedSessions(_ context.Context, mode domain.Mode) ([]domain.CompletedSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.CompletedSession, 0)
	for _, id := range s.sessionOrder {
		session := s.sessions[id]
		if !session.Completed || session.Mode != mode {
			continue
		}
		rows = append(rows, domain.CompletedSession{
			SessionID:      session.ID,
			UserID:         session.UserID,
			Username:       s.users[session.UserID].Username,
			CorrectAnswers: session.CorrectAnswers,
			TotalQuestions: session.TotalQuestions,
			TimeSpent:      session.TimeSpent,
			CreatedAt:      session.CreatedAt,
		})
	}
	return rows, nil
}

func (s *Store) ListUserSessions(_ context.Context, userID string, mode domain.Mode, limit int) ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Session, 0)
	// newest first: walk creation order backwards, then order by created_at
	for i := len(s.sessionOrder) - 1; i >= 0; i-- {
		session := s.sessions[s.sessionOrder[i]]
		if session.UserID != userID || (mode != "" && session.Mode != mode) {
			continue
		}
		out = append(out, copySession(session))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListAnswerDetails(_ context.Context, sessionID string) ([]domain.AnswerDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	details := make([]domain.AnswerDetail, 0, len(s.answers[sessionID]))
	for _, answer := range s.answers[sessionID] {
		question := s.questions[answer.QuestionID]
		detail := domain.AnswerDetail{
			Answer:          *answer,
			QuestionTitle:   question.Title,
			QuestionContent: question.Content,
			Explanation:     question.Explanation,
			SelectedText:    s.options[answer.SelectedOptionID].Text,
		}
		for _, option := range question.Options {
			if option.Correct {
				detail.CorrectText = option.Text
				break
			}
		}
		details = append(details, detail)
	}
	sort.SliceStable(details, func(i, j int) bool {
		return details[i].AnsweredAt.Before(details[j].AnsweredAt)
	})
	return details, nil
}

func (s *Store) GetUserStats(_ context.Context, userID string) (domain.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.UserStats{UserID: userID}
	found := false
	for _, id := range s.sessionOrder {
		session := s.sessions[id]
		if session.UserID != userID {
			continue
		}
		found = true
		last := lastActivity(session)
		if stats.LastActivity == nil || last.After(*stats.LastActivity) {
			stats.LastActivity = &last
		}
		if !session.Completed {
			continue
		}
		stats.TotalSessions++
		switch session.Mode {
		case domain.ModeSpeed:
			stats.SpeedSessions++
		case domain.ModeStudy:
			stats.StudySessions++
		}
		stats.TotalQuestions += session.TotalQuestions
		stats.TotalCorrect += session.CorrectAnswers
	}
	if !found {
		return domain.UserStats{}, domain.ErrUserNotFound
	}
	stats.OverallAccuracy = app.Accuracy(stats.TotalCorrect, stats.TotalQuestions)
	return stats, nil
}

func (s *Store) ListUserActivity(_ context.Context) ([]domain.UserActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index := make(map[string]int)
	out := make([]domain.UserActivity, 0)
	for _, id := range s.sessionOrder {
		session := s.sessions[id]
		i, ok := index[session.UserID]
		if !ok {
			i = len(out)
			index[session.UserID] = i
			out = append(out, domain.UserActivity{UserID: session.UserID})
		}
		if session.Completed {
			out[i].TotalSessions++
		}
		if last := lastActivity(session); last.After(out[i].LastActivity) {
			out[i].LastActivity = last
		}
	}
	return out, nil
}

// SaveQuestions adds questions to the catalog, assigning ids where missing.
func (s *Store) SaveQuestions(_ context.Context, questions []domain.Question) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		opts := make([]domain.Option, len(q.Options))
		for i, option := range q.Options {
			if option.ID == "" {
				option.ID = uuid.NewString()
			}
			option.QuestionID = q.ID
			opts[i] = option
			s.options[option.ID] = option
		}
		q.Options = opts
		if _, exists := s.questions[q.ID]; !exists {
			s.subjectOrder[q.Subject] = append(s.subjectOrder[q.Subject], q.ID)
		}
		s.questions[q.ID] = q
		saved = append(saved, q)
	}
	return saved, nil
}

func (s *Store) ListQuestions(_ context.Context, subject string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Question, 0, len(s.subjectOrder[subject]))
	for _, id := range s.subjectOrder[subject] {
		q := s.questions[id]
		q.Options = append([]domain.Option(nil), q.Options...)
		out = append(out, q)
	}
	return out, nil
}

func copySession(s *domain.Session) domain.Session {
	out := *s
	if s.EndTime != nil {
		end := *s.EndTime
		out.EndTime = &end
	}
	return out
}

func lastActivity(s *domain.Session) time.Time {
	if s.EndTime != nil {
		return *s.EndTime
	}
	return s.StartTime
}
