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

// playSession opens, answers and finishes one session, taking `spent` of wall time.
func playSession(t *testing.T, tracker *app.Tracker, clock *fakeClock, user domain.User, mode string, picks map[string]string, spent time.Duration) {
	t.Helper()
	ctx := context.Background()
	session, err := tracker.Open(ctx, user, mode)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for q, o := range picks {
		submit(t, tracker, user.ID, session.ID, q, o, 1000)
	}
	clock.Advance(spent)
	if _, err := tracker.Finish(ctx, user.ID, session.ID); err != nil {
		t.Fatalf("finish: %v", err)
	}
	clock.Advance(time.Minute)
}

func TestLeaderboardServiceEndToEnd(t *testing.T) {
	store := newTestStore(t)
	clock := newFakeClock()
	tracker := app.NewTracker(store, clock)
	service := app.NewLeaderboardService(store, clock)
	ctx := context.Background()

	allRight := map[string]string{"q1": "o2", "q2": "o3", "q3": "o5"}
	twoRight := map[string]string{"q1": "o2", "q2": "o3", "q3": "o6"}
	oneRight := map[string]string{"q1": "o2", "q2": "o4"}

	playSession(t, tracker, clock, alice, "speed", oneRight, 20*time.Second)
	playSession(t, tracker, clock, alice, "speed", twoRight, 30*time.Second)
	playSession(t, tracker, clock, bob, "speed", allRight, 60*time.Second)
	playSession(t, tracker, clock, carol, "speed", twoRight, 25*time.Second)
	playSession(t, tracker, clock, carol, "study", oneRight, 300*time.Second)

	lb, err := service.Leaderboard(ctx, "speed", 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if lb.Total != 3 || len(lb.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %+v", lb)
	}
	want := []string{bob.ID, carol.ID, alice.ID}
	for i, e := range lb.Entries {
		if e.UserID != want[i] || e.Rank != i+1 {
			t.Fatalf("position %d: expected %s, got %+v", i, want[i], e)
		}
	}
	if lb.Entries[0].Username != "bob" || lb.Entries[2].TimeSpent != 30 {
		t.Fatalf("unexpected entry fields %+v", lb.Entries)
	}

	stats, err := service.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	// best rows: bob 3/3, carol 2/3, alice 2/3 -> mean correct 7/3 = 2.3
	if stats.Speed.TotalRecords != 3 || stats.Speed.AvgCorrectAnswers != 2.3 {
		t.Fatalf("unexpected speed stats %+v", stats.Speed)
	}
	if stats.Speed.MaxCorrectAnswers != 3 || stats.Speed.MinTimeSpent != 25 {
		t.Fatalf("unexpected speed extremes %+v", stats.Speed)
	}
	if stats.Study.TotalRecords != 1 || stats.Study.MaxTimeSpent != 300 || stats.Study.AvgQuestions != 2 {
		t.Fatalf("unexpected study stats %+v", stats.Study)
	}
	if stats.Users.TotalActiveUsers != 3 || stats.Users.WeeklyActiveUsers != 3 {
		t.Fatalf("unexpected activity %+v", stats.Users)
	}

	clock.Advance(8 * 24 * time.Hour)
	stats, err = service.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Users.WeeklyActiveUsers != 0 || stats.Users.MonthlyActiveUsers != 3 {
		t.Fatalf("expected activity windows to move with the clock, got %+v", stats.Users)
	}
}

func TestPersonalBest(t *testing.T) {
	store := newTestStore(t)
	clock := newFakeClock()
	tracker := app.NewTracker(store, clock)
	service := app.NewLeaderboardService(store, clock)
	ctx := context.Background()

	playSession(t, tracker, clock, alice, "speed", map[string]string{"q1": "o2"}, 10*time.Second)
	playSession(t, tracker, clock, bob, "speed", map[string]string{"q1": "o2", "q2": "o3"}, 10*time.Second)
	playSession(t, tracker, clock, alice, "study", map[string]string{"q1": "o1", "q2": "o3"}, 40*time.Second)
	if _, err := tracker.Open(ctx, alice, "speed"); err != nil {
		t.Fatalf("open: %v", err)
	}

	best, err := service.PersonalBest(ctx, alice.ID)
	if err != nil {
		t.Fatalf("personal best: %v", err)
	}
	if best.SpeedBest == nil || best.SpeedBest.Rank != 2 || best.SpeedBest.CorrectAnswers != 1 {
		t.Fatalf("unexpected speed best %+v", best.SpeedBest)
	}
	if best.StudyBest == nil || best.StudyBest.Rank != 1 || best.StudyBest.TotalQuestions != 2 {
		t.Fatalf("unexpected study best %+v", best.StudyBest)
	}
	o := best.Overall
	if o == nil {
		t.Fatalf("expected overall stats")
	}
	if o.TotalSessions != 2 || o.SpeedSessions != 1 || o.StudySessions != 1 || o.OverallAccuracy != 66.67 {
		t.Fatalf("unexpected overall stats %+v", o)
	}
	if o.LastActivity == nil || !o.LastActivity.Equal(clock.Now()) {
		t.Fatalf("expected last activity at the open session start, got %v", o.LastActivity)
	}

	nobody, err := service.PersonalBest(ctx, "ghost")
	if err != nil {
		t.Fatalf("personal best: %v", err)
	}
	if nobody.SpeedBest != nil || nobody.StudyBest != nil || nobody.Overall != nil {
		t.Fatalf("expected empty personal best, got %+v", nobody)
	}
}

func TestLeaderboardEmptyAndInvalid(t *testing.T) {
	store := newTestStore(t)
	service := app.NewLeaderboardService(store, newFakeClock())
	ctx := context.Background()

	lb, err := service.Leaderboard(ctx, "study", 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if lb.Total != 0 || lb.Entries == nil {
		t.Fatalf("expected empty leaderboard, got %+v", lb)
	}
	if _, err := service.Leaderboard(ctx, "blitz", 10); !errors.Is(err, domain.ErrInvalidMode) {
		t.Fatalf("expected invalid mode, got %v", err)
	}
}

type failingStore struct {
	app.RecordStore
}

func (failingStore) ListCompletedSessions(context.Context, domain.Mode) ([]domain.CompletedSession, error) {
	return nil, errors.New("disk on fire")
}

func TestStoreFailuresAreInternal(t *testing.T) {
	service := app.NewLeaderboardService(failingStore{RecordStore: newTestStore(t)}, newFakeClock())
	_, err := service.Leaderboard(context.Background(), "speed", 10)
	if !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if err.Error() != domain.ErrInternal.Error() {
		t.Fatalf("internal error leaked details: %q", err.Error())
	}
}

// blockingStore parks ListCompletedSessions until release is closed and then
// fails the way a database driver would if its context was cancelled meanwhile.
type blockingStore struct {
	app.RecordStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingStore) ListCompletedSessions(ctx context.Context, mode domain.Mode) ([]domain.CompletedSession, error) {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.RecordStore.ListCompletedSessions(ctx, mode)
}

func TestCancelledCallerDoesNotFailSharedLeaderboardLoad(t *testing.T) {
	tracker, store, clock := newTestTracker(t)
	playSession(t, tracker, clock, alice, "speed", map[string]string{"q1": "o2"}, 10*time.Second)

	blocking := &blockingStore{RecordStore: store, entered: make(chan struct{}), release: make(chan struct{})}
	service := app.NewLeaderboardService(blocking, clock)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := service.Leaderboard(ctxA, "speed", 10)
		errA <- err
	}()
	<-blocking.entered

	type result struct {
		lb  domain.Leaderboard
		err error
	}
	resB := make(chan result, 1)
	go func() {
		lb, err := service.Leaderboard(context.Background(), "speed", 10)
		resB <- result{lb, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled caller to see context.Canceled, got %v", err)
	}
	close(blocking.release)

	got := <-resB
	if got.err != nil {
		t.Fatalf("live caller failed: %v", got.err)
	}
	if got.lb.Total != 1 || got.lb.Entries[0].UserID != alice.ID {
		t.Fatalf("unexpected leaderboard %+v", got.lb)
	}
}
