package app_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"quizrank-service/internal/app"
	"quizrank-service/internal/domain"
)

var base = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func row(user string, correct, total, spent int, minutes int) domain.CompletedSession {
	return domain.CompletedSession{
		SessionID:      fmt.Sprintf("%s-%d-%d-%d", user, correct, spent, minutes),
		UserID:         user,
		Username:       "user " + user,
		CorrectAnswers: correct,
		TotalQuestions: total,
		TimeSpent:      spent,
		CreatedAt:      base.Add(time.Duration(minutes) * time.Minute),
	}
}

func users(entries []domain.LeaderboardEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.UserID
	}
	return out
}

func TestSpeedRanking(t *testing.T) {
	rows := []domain.CompletedSession{
		row("A", 8, 10, 50, 0),
		row("B", 8, 10, 40, 1),
		row("C", 9, 10, 100, 2),
	}
	entries, err := app.Rank(domain.ModeSpeed, rows, 10)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if got := fmt.Sprint(users(entries)); got != "[C B A]" {
		t.Fatalf("expected [C B A], got %s", got)
	}
	for i, e := range entries {
		if e.Rank != i+1 {
			t.Fatalf("expected sequential ranks, got %+v", entries)
		}
	}
	if entries[0].Accuracy != 90 {
		t.Fatalf("expected accuracy 90, got %v", entries[0].Accuracy)
	}
}

func TestStudyRankingRewardsTime(t *testing.T) {
	rows := []domain.CompletedSession{
		row("A", 0, 10, 200, 5),
		row("B", 0, 10, 300, 0),
	}
	entries, err := app.Rank(domain.ModeStudy, rows, 10)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if got := fmt.Sprint(users(entries)); got != "[B A]" {
		t.Fatalf("expected [B A], got %s", got)
	}
}

func TestRecencyBreaksTies(t *testing.T) {
	rows := []domain.CompletedSession{
		row("old", 5, 5, 60, 0),
		row("new", 5, 5, 60, 30),
	}
	for _, mode := range domain.Modes() {
		entries, err := app.Rank(mode, rows, 10)
		if err != nil {
			t.Fatalf("rank: %v", err)
		}
		if got := fmt.Sprint(users(entries)); got != "[new old]" {
			t.Fatalf("%s: expected [new old], got %s", mode, got)
		}
	}
}

func TestRankingKeepsBestSessionPerUser(t *testing.T) {
	rows := []domain.CompletedSession{
		row("A", 3, 10, 20, 0),
		row("A", 7, 10, 90, 1),
		row("A", 7, 10, 80, 2),
		row("B", 6, 10, 10, 3),
		row("B", 7, 12, 95, 4),
	}

	speed, err := app.Rank(domain.ModeSpeed, rows, 0)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(speed) != 2 {
		t.Fatalf("expected one entry per user, got %+v", speed)
	}
	if speed[0].UserID != "A" || speed[0].TimeSpent != 80 || speed[1].UserID != "B" || speed[1].TimeSpent != 95 {
		t.Fatalf("unexpected speed best picks %+v", speed)
	}

	study, err := app.Rank(domain.ModeStudy, rows, 0)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(study) != 2 || study[0].UserID != "B" || study[0].TotalQuestions != 12 {
		t.Fatalf("unexpected study ranking %+v", study)
	}
	if study[1].UserID != "A" || study[1].TimeSpent != 90 {
		t.Fatalf("expected A's longest 10-question session, got %+v", study[1])
	}
}

func TestRankingLimits(t *testing.T) {
	var rows []domain.CompletedSession
	for i := 0; i < 150; i++ {
		rows = append(rows, row(fmt.Sprintf("u%03d", i), i%10, 10, i, i))
	}

	cases := map[int]int{0: app.DefaultLeaderboardLimit, -1: app.DefaultLeaderboardLimit, 5: 5, 100: 100, 1000: app.MaxLeaderboardLimit}
	for limit, want := range cases {
		entries, err := app.Rank(domain.ModeSpeed, rows, limit)
		if err != nil {
			t.Fatalf("rank: %v", err)
		}
		if len(entries) != want {
			t.Fatalf("limit %d: expected %d entries, got %d", limit, want, len(entries))
		}
	}
}

func TestRankingEmptyAndInvalidMode(t *testing.T) {
	entries, err := app.Rank(domain.ModeSpeed, nil, 10)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty leaderboard, got %+v", entries)
	}
	if _, err := app.Rank(domain.Mode("blitz"), nil, 10); !errors.Is(err, domain.ErrInvalidMode) {
		t.Fatalf("expected invalid mode, got %v", err)
	}
}

// Sessions equal on every key field have no defined relative order; only
// uniqueness and sequential ranks are guaranteed.
func TestFullTiesStillGetDistinctRanks(t *testing.T) {
	rows := []domain.CompletedSession{
		row("A", 4, 5, 30, 0),
		row("B", 4, 5, 30, 0),
		row("C", 4, 5, 30, 0),
	}
	entries, err := app.Rank(domain.ModeSpeed, rows, 10)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	seen := map[string]bool{}
	for i, e := range entries {
		if e.Rank != i+1 {
			t.Fatalf("expected rank %d, got %d", i+1, e.Rank)
		}
		if seen[e.UserID] {
			t.Fatalf("duplicate user %s", e.UserID)
		}
		seen[e.UserID] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 users, got %d", len(seen))
	}
}
