package worker_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"codearena/internal/app/worker"
	"codearena/internal/domain/repository"
	"codearena/internal/platform/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeContestRepo struct {
	repository.ContestRepository
	transitioned int64
}

func (f *fakeContestRepo) TransitionStates(_ context.Context, _ time.Time) (int64, error) {
	return f.transitioned, nil
}

type fakeSubmissionRepo struct {
	repository.SubmissionRepository
	staleIDs []string
	cutoff   time.Time
}

func (f *fakeSubmissionRepo) ReclaimStale(_ context.Context, cutoff time.Time) ([]string, error) {
	f.cutoff = cutoff
	return f.staleIDs, nil
}

func sweeperConfig() *config.Config {
	return &config.Config{
		JudgeQueueName:    "judge_requeue",
		StaleRunningAfter: time.Minute,
	}
}

// A submission that missed its queue offer (crash before the claim, or a
// failed RPush on an earlier pass) is stale PENDING; the reclaim must hand it
// back to the sweep so it lands on the queue again instead of sitting stuck.
func TestSweepOffersReclaimedSubmissions(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	config.AppConfig = sweeperConfig()

	subs := &fakeSubmissionRepo{staleIDs: []string{"sub-1", "sub-2"}}
	s := worker.NewSweeper(rdb, &fakeContestRepo{}, subs, slog.New(slog.NewTextHandler(io.Discard, nil)))

	s.Sweep(context.Background())

	got, err := rdb.LRange(context.Background(), "judge_requeue", 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"sub-1", "sub-2"}, got, "every reclaimed id reaches the queue")
	assert.WithinDuration(t, time.Now().Add(-time.Minute), subs.cutoff, 5*time.Second)
}

func TestSweepNothingStale(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	config.AppConfig = sweeperConfig()

	s := worker.NewSweeper(rdb, &fakeContestRepo{transitioned: 1}, &fakeSubmissionRepo{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Sweep(context.Background())

	n, err := rdb.LLen(context.Background(), "judge_requeue").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}
