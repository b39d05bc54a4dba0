package app

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"quizrank-service/internal/domain"
)

// LeaderboardService serves rankings and statistics. Nothing is cached between
// calls; concurrent identical reads share one store round-trip.
type LeaderboardService struct {
	store RecordStore
	clock Clock
	sf    singleflight.Group
}

func NewLeaderboardService(store RecordStore, clock Clock) *LeaderboardService {
	if clock == nil {
		clock = SystemClock
	}
	return &LeaderboardService{store: store, clock: clock}
}

// Leaderboard ranks the best session of every user for mode.
func (s *LeaderboardService) Leaderboard(ctx context.Context, rawMode string, limit int) (domain.Leaderboard, error) {
	mode, err := domain.ParseMode(rawMode)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	rows, err := s.completed(ctx, mode)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	entries, err := Rank(mode, rows, limit)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.Leaderboard{Mode: mode, Entries: entries, Total: len(entries)}, nil
}

// PersonalBest returns the user's ranked best entry per mode and overall stats.
func (s *LeaderboardService) PersonalBest(ctx context.Context, userID string) (domain.PersonalBest, error) {
	if userID == "" {
		return domain.PersonalBest{}, domain.ErrMissingParameter
	}

	var result domain.PersonalBest
	for _, mode := range domain.Modes() {
		rows, err := s.completed(ctx, mode)
		if err != nil {
			return domain.PersonalBest{}, err
		}
		entries, err := rankAll(mode, rows)
		if err != nil {
			return domain.PersonalBest{}, err
		}
		for i := range entries {
			if entries[i].UserID != userID {
				continue
			}
			entry := entries[i]
			if mode == domain.ModeSpeed {
				result.SpeedBest = &entry
			} else {
				result.StudyBest = &entry
			}
			break
		}
	}

	stats, err := s.store.GetUserStats(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
	case err != nil:
		return domain.PersonalBest{}, storeErr("get user stats", err)
	default:
		result.Overall = &stats
	}
	return result, nil
}

// Stats aggregates both modes over the same one-row-per-user universe the
// leaderboards use, plus cross-mode activity counters.
func (s *LeaderboardService) Stats(ctx context.Context) (domain.Stats, error) {
	var (
		speedRows, studyRows []domain.CompletedSession
		activity             []domain.UserActivity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.completed(gctx, domain.ModeSpeed)
		speedRows = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.completed(gctx, domain.ModeStudy)
		studyRows = rows
		return err
	})
	g.Go(func() error {
		users, err := s.store.ListUserActivity(gctx)
		activity = users
		return storeErr("list user activity", err)
	})
	if err := g.Wait(); err != nil {
		return domain.Stats{}, err
	}

	speedBest, err := BestPerUser(domain.ModeSpeed, speedRows)
	if err != nil {
		return domain.Stats{}, err
	}
	studyBest, err := BestPerUser(domain.ModeStudy, studyRows)
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.Stats{
		Speed: AggregateSpeed(speedBest),
		Study: AggregateStudy(studyBest),
		Users: AggregateActivity(activity, s.clock.Now()),
	}, nil
}

// completed loads completed sessions for mode. The returned slice is shared
// between coalesced callers and must not be modified. The load runs detached
// from any one caller so a cancelled request cannot fail the others waiting on it.
func (s *LeaderboardService) completed(ctx context.Context, mode domain.Mode) ([]domain.CompletedSession, error) {
	shared := context.WithoutCancel(ctx)
	ch := s.sf.DoChan("completed:"+string(mode), func() (interface{}, error) {
		return s.store.ListCompletedSessions(shared, mode)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, storeErr("list completed sessions", res.Err)
		}
		return res.Val.([]domain.CompletedSession), nil
	}
}
