package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quizrank-service/internal/app"
	"quizrank-service/internal/domain"
)

func TestOpenValidatesMode(t *testing.T) {
	tracker, _, clock := newTestTracker(t)
	ctx := context.Background()

	if _, err := tracker.Open(ctx, alice, "marathon"); !errors.Is(err, domain.ErrInvalidMode) {
		t.Fatalf("expected invalid mode, got %v", err)
	}

	session, err := tracker.Open(ctx, alice, "speed")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if session.Completed || session.EndTime != nil {
		t.Fatalf("expected open session, got %+v", session)
	}
	if !session.StartTime.Equal(clock.Now()) || session.Mode != domain.ModeSpeed || session.UserID != alice.ID {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestSubmitAccumulatesRepeatedAnswers(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	ctx := context.Background()
	session, _ := tracker.Open(ctx, alice, "study")

	first := submit(t, tracker, alice.ID, session.ID, "q1", "o2", 1200)
	if !first.IsCorrect || first.AttemptCount != 1 || first.TimeTaken != 1200 {
		t.Fatalf("unexpected first result %+v", first)
	}
	second := submit(t, tracker, alice.ID, session.ID, "q1", "o1", 800)
	if second.IsCorrect || second.AttemptCount != 2 || second.TimeTaken != 2000 {
		t.Fatalf("unexpected second result %+v", second)
	}

	details, err := tracker.Details(ctx, alice.ID, session.ID)
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("expected a single answer row, got %d", len(details))
	}
	row := details[0]
	if row.AttemptCount != 2 || row.TimeTaken != 2000 || row.IsCorrect || row.SelectedOptionID != "o1" {
		t.Fatalf("unexpected accumulated row %+v", row)
	}
	if row.SelectedText != "3" || row.CorrectText != "4" || row.QuestionTitle != "2 + 2" {
		t.Fatalf("unexpected detail texts %+v", row)
	}
}

func TestAttemptHintOnlySeedsFirstRow(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	ctx := context.Background()
	session, _ := tracker.Open(ctx, alice, "study")

	res, err := tracker.SubmitAnswer(ctx, alice.ID, app.SubmitInput{
		SessionID: session.ID, QuestionID: "q2", OptionID: "o4", AttemptHint: 3,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.AttemptCount != 3 {
		t.Fatalf("expected hint to seed attempts, got %d", res.AttemptCount)
	}

	res, err = tracker.SubmitAnswer(ctx, alice.ID, app.SubmitInput{
		SessionID: session.ID, QuestionID: "q2", OptionID: "o3", AttemptHint: 10,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.AttemptCount != 4 {
		t.Fatalf("expected server counter to win, got %d", res.AttemptCount)
	}

	res, err = tracker.SubmitAnswer(ctx, alice.ID, app.SubmitInput{
		SessionID: session.ID, QuestionID: "q3", OptionID: "o5", AttemptHint: -2, TimeTakenMS: -50,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.AttemptCount != 1 || res.TimeTaken != 0 {
		t.Fatalf("expected floored hint and clamped time, got %+v", res)
	}
}

func TestSubmitValidation(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	ctx := context.Background()
	session, _ := tracker.Open(ctx, alice, "speed")

	cases := []struct {
		name   string
		userID string
		in     app.SubmitInput
		want   error
	}{
		{"missing option", alice.ID, app.SubmitInput{SessionID: session.ID, QuestionID: "q1"}, domain.ErrMissingParameter},
		{"unknown session", alice.ID, app.SubmitInput{SessionID: "nope", QuestionID: "q1", OptionID: "o1"}, domain.ErrUnauthorizedSession},
		{"foreign session", bob.ID, app.SubmitInput{SessionID: session.ID, QuestionID: "q1", OptionID: "o1"}, domain.ErrUnauthorizedSession},
		{"option of another question", alice.ID, app.SubmitInput{SessionID: session.ID, QuestionID: "q1", OptionID: "o3"}, domain.ErrInvalidOption},
		{"unknown option", alice.ID, app.SubmitInput{SessionID: session.ID, QuestionID: "q1", OptionID: "zz"}, domain.ErrInvalidOption},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tracker.SubmitAnswer(ctx, tc.userID, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestFinishCountsDistinctQuestions(t *testing.T) {
	orders := [][]string{{"q1", "q2", "q3"}, {"q3", "q1", "q2"}, {"q2", "q3", "q1"}}
	correctOption := map[string]string{"q1": "o2", "q2": "o3", "q3": "o6"}

	for _, order := range orders {
		tracker, _, clock := newTestTracker(t)
		ctx := context.Background()
		session, _ := tracker.Open(ctx, alice, "speed")
		for _, q := range order {
			submit(t, tracker, alice.ID, session.ID, q, correctOption[q], 500)
		}
		// a retry on the first question must not add a row
		submit(t, tracker, alice.ID, session.ID, order[0], correctOption[order[0]], 500)
		clock.Advance(42 * time.Second)

		summary, err := tracker.Finish(ctx, alice.ID, session.ID)
		if err != nil {
			t.Fatalf("finish: %v", err)
		}
		if summary.TotalQuestions != 3 || summary.CorrectAnswers != 2 {
			t.Fatalf("order %v: unexpected totals %+v", order, summary)
		}
		if summary.Accuracy != 66.67 {
			t.Fatalf("expected accuracy 66.67, got %v", summary.Accuracy)
		}
	}
}

func TestFinishMeasuresWallClock(t *testing.T) {
	tracker, _, clock := newTestTracker(t)
	ctx := context.Background()
	session, _ := tracker.Open(ctx, alice, "speed")

	submit(t, tracker, alice.ID, session.ID, "q1", "o2", 5000)
	submit(t, tracker, alice.ID, session.ID, "q2", "o3", 7000)
	clock.Advance(90*time.Second + 700*time.Millisecond)

	summary, err := tracker.Finish(ctx, alice.ID, session.ID)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if summary.TimeSpent != 90 {
		t.Fatalf("expected 90 whole seconds of session time, got %d", summary.TimeSpent)
	}
	if summary.EndTime == nil || !summary.EndTime.Equal(clock.Now()) || !summary.Completed {
		t.Fatalf("expected sealed session ending now, got %+v", summary)
	}
}

func TestFinishWithoutAnswers(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	ctx := context.Background()
	session, _ := tracker.Open(ctx, alice, "study")

	summary, err := tracker.Finish(ctx, alice.ID, session.ID)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if summary.TotalQuestions != 0 || summary.Accuracy != 0 {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
}

func TestRefinishReturnsStoredSummary(t *testing.T) {
	tracker, _, clock := newTestTracker(t)
	ctx := context.Background()
	session, _ := tracker.Open(ctx, alice, "speed")
	submit(t, tracker, alice.ID, session.ID, "q1", "o2", 100)
	clock.Advance(10 * time.Second)

	first, err := tracker.Finish(ctx, alice.ID, session.ID)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	clock.Advance(time.Hour)
	second, err := tracker.Finish(ctx, alice.ID, session.ID)
	if err != nil {
		t.Fatalf("refinish: %v", err)
	}
	if second.TimeSpent != first.TimeSpent || second.TotalQuestions != first.TotalQuestions ||
		second.CorrectAnswers != first.CorrectAnswers || !second.EndTime.Equal(*first.EndTime) {
		t.Fatalf("refinish changed totals: first=%+v second=%+v", first, second)
	}

	if _, err := tracker.Finish(ctx, bob.ID, session.ID); !errors.Is(err, domain.ErrUnauthorizedSession) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSubmitAfterFinishIsRejected(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	ctx := context.Background()
	session, _ := tracker.Open(ctx, alice, "speed")
	submit(t, tracker, alice.ID, session.ID, "q1", "o2", 100)
	if _, err := tracker.Finish(ctx, alice.ID, session.ID); err != nil {
		t.Fatalf("finish: %v", err)
	}

	_, err := tracker.SubmitAnswer(ctx, alice.ID, app.SubmitInput{
		SessionID: session.ID, QuestionID: "q2", OptionID: "o3",
	})
	if !errors.Is(err, domain.ErrSessionAlreadyCompleted) {
		t.Fatalf("expected already completed, got %v", err)
	}

	summary, _ := tracker.Finish(ctx, alice.ID, session.ID)
	if summary.TotalQuestions != 1 {
		t.Fatalf("completed session changed: %+v", summary)
	}
}

func TestConcurrentSubmitsDoNotLoseUpdates(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	ctx := context.Background()
	session, _ := tracker.Open(ctx, alice, "study")

	const workers = 40
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tracker.SubmitAnswer(ctx, alice.ID, app.SubmitInput{
				SessionID: session.ID, QuestionID: "q1", OptionID: "o2", TimeTakenMS: 10,
			})
			if err != nil {
				t.Errorf("submit: %v", err)
			}
		}()
	}
	wg.Wait()

	details, err := tracker.Details(ctx, alice.ID, session.ID)
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if len(details) != 1 || details[0].AttemptCount != workers || details[0].TimeTaken != workers*10 {
		t.Fatalf("lost updates: %+v", details)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	tracker, _, clock := newTestTracker(t)
	ctx := context.Background()

	var ids []string
	for _, mode := range []string{"speed", "study", "speed"} {
		session, err := tracker.Open(ctx, alice, mode)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		ids = append(ids, session.ID)
		clock.Advance(time.Minute)
	}
	if _, err := tracker.Open(ctx, bob, "speed"); err != nil {
		t.Fatalf("open: %v", err)
	}
	submit(t, tracker, alice.ID, ids[0], "q1", "o2", 100)
	if _, err := tracker.Finish(ctx, alice.ID, ids[0]); err != nil {
		t.Fatalf("finish: %v", err)
	}

	all, err := tracker.History(ctx, alice.ID, "", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(all) != 3 || all[0].SessionID != ids[2] || all[2].SessionID != ids[0] {
		t.Fatalf("unexpected history order %+v", all)
	}
	if all[2].Accuracy != 100 || !all[2].Completed {
		t.Fatalf("expected finished session with accuracy, got %+v", all[2])
	}

	speed, err := tracker.History(ctx, alice.ID, "speed", 1)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(speed) != 1 || speed[0].SessionID != ids[2] {
		t.Fatalf("unexpected filtered history %+v", speed)
	}

	unknown, err := tracker.History(ctx, alice.ID, "bogus", 500)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(unknown) != 3 {
		t.Fatalf("unknown mode should list all modes, got %d", len(unknown))
	}
}

func TestDetailsRequireOwnership(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	ctx := context.Background()
	session, _ := tracker.Open(ctx, alice, "study")

	if _, err := tracker.Details(ctx, bob.ID, session.ID); !errors.Is(err, domain.ErrUnauthorizedSession) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	details, err := tracker.Details(ctx, alice.ID, session.ID)
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if details == nil || len(details) != 0 {
		t.Fatalf("expected empty details, got %+v", details)
	}
}
