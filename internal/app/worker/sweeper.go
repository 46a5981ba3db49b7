package worker

import (
	"context"
	"log/slog"
	"time"

	"codearena/internal/domain/repository"
	"codearena/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

// Sweeper is the periodic reconciliation loop. Each tick it advances contest
// states by wall clock and re-offers stale submissions to the judge queue:
// rows stuck RUNNING past the staleness threshold are reset to PENDING, and
// rows stuck PENDING past it (a crash before the claim, or an earlier offer
// that never made it onto the queue) are offered again.
type Sweeper struct {
	rdb            *redis.Client
	contestRepo    repository.ContestRepository
	submissionRepo repository.SubmissionRepository
	logger         *slog.Logger
}

func NewSweeper(rdb *redis.Client, contestRepo repository.ContestRepository, submissionRepo repository.SubmissionRepository, logger *slog.Logger) *Sweeper {
	return &Sweeper{rdb: rdb, contestRepo: contestRepo, submissionRepo: submissionRepo, logger: logger}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("sweeper started", "interval", config.AppConfig.SweepInterval)
	ticker := time.NewTicker(config.AppConfig.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopping")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one reconciliation pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now()

	transitioned, err := s.contestRepo.TransitionStates(ctx, now)
	if err != nil {
		s.logger.Error("contest state transition failed", "error", err)
	} else if transitioned > 0 {
		s.logger.Info("contests transitioned", "count", transitioned)
	}

	cutoff := now.Add(-config.AppConfig.StaleRunningAfter)
	ids, err := s.submissionRepo.ReclaimStale(ctx, cutoff)
	if err != nil {
		s.logger.Error("stale submission reclaim failed", "error", err)
		return
	}
	for _, id := range ids {
		if err := s.rdb.RPush(ctx, config.AppConfig.JudgeQueueName, id).Err(); err != nil {
			// The submission sits in PENDING; the reclaim matches stale
			// PENDING rows too, so a later pass re-offers it.
			s.logger.Error("could not offer reclaimed submission", "submission_id", id, "error", err)
		}
	}
	if len(ids) > 0 {
		s.logger.Warn("reclaimed stale submissions", "count", len(ids))
	}
}
