package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"quizrank-service/internal/app"
	"quizrank-service/internal/domain"
	"quizrank-service/internal/infra/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var (
	alice = domain.User{ID: "u1", Username: "alice"}
	bob   = domain.User{ID: "u2", Username: "bob"}
	carol = domain.User{ID: "u3", Username: "carol"}
)

func newTestStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	_, err := store.SaveQuestions(context.Background(), []domain.Question{
		{
			ID: "q1", Subject: "math", Title: "2 + 2",
			Options: []domain.Option{{ID: "o1", Text: "3"}, {ID: "o2", Text: "4", Correct: true}},
		},
		{
			ID: "q2", Subject: "math", Title: "3 * 3",
			Options: []domain.Option{{ID: "o3", Text: "9", Correct: true}, {ID: "o4", Text: "6"}},
		},
		{
			ID: "q3", Subject: "math", Title: "10 / 2",
			Options: []domain.Option{{ID: "o5", Text: "5", Correct: true}, {ID: "o6", Text: "2"}},
		},
	})
	if err != nil {
		t.Fatalf("seed questions: %v", err)
	}
	return store
}

func newTestTracker(t *testing.T) (*app.Tracker, *memory.Store, *fakeClock) {
	t.Helper()
	store := newTestStore(t)
	clock := newFakeClock()
	return app.NewTracker(store, clock), store, clock
}

func submit(t *testing.T, tracker *app.Tracker, userID, sessionID, questionID, optionID string, ms int64) app.SubmitResult {
	t.Helper()
	res, err := tracker.SubmitAnswer(context.Background(), userID, app.SubmitInput{
		SessionID:   sessionID,
		QuestionID:  questionID,
		OptionID:    optionID,
		TimeTakenMS: ms,
	})
	if err != nil {
		t.Fatalf("submit %s/%s: %v", questionID, optionID, err)
	}
	return res
}
