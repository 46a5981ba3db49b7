package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"codearena/internal/app/judge"
	"codearena/internal/platform/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseLockScript deletes the lock only when it still holds our value, so
// an expired lock re-acquired by another worker is never deleted from here.
var releaseLockScript = redis.NewScript(`
    if redis.call("get", KEYS[1]) == ARGV[1] then
        return redis.call("del", KEYS[1])
    else
        return 0
    end
`)

const judgeLockKey = "judge:worker:lock"

// JudgeWorker drains the re-queue populated by the reconciliation sweep.
// Submissions normally judge synchronously inside the request; this loop only
// picks up work that a crashed or interrupted process left behind.
type JudgeWorker struct {
	rdb          *redis.Client
	orchestrator *judge.Orchestrator
	logger       *slog.Logger
}

func NewJudgeWorker(rdb *redis.Client, orchestrator *judge.Orchestrator, logger *slog.Logger) *JudgeWorker {
	return &JudgeWorker{rdb: rdb, orchestrator: orchestrator, logger: logger}
}

func (w *JudgeWorker) Start(ctx context.Context) {
	w.logger.Info("judge worker started", "queue", config.AppConfig.JudgeQueueName)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("judge worker stopping")
			return
		default:
			res, err := w.rdb.BRPop(ctx, 0, config.AppConfig.JudgeQueueName).Result()
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				if errors.Is(err, redis.Nil) {
					continue
				}
				w.logger.Error("brpop failed", "queue", config.AppConfig.JudgeQueueName, "error", err)
				time.Sleep(5 * time.Second)
				continue
			}
			// res is [queueName, value]
			if len(res) < 2 || res[1] == "" {
				continue
			}
			w.judgeWithLock(ctx, res[1])
		}
	}
}

// judgeWithLock serializes judging across workers with a Redis lock. Losing
// the lock race re-queues the submission rather than dropping it; the DB
// claim inside the orchestrator still makes duplicate delivery harmless.
func (w *JudgeWorker) judgeWithLock(ctx context.Context, submissionID string) {
	lockValue := uuid.NewString()
	ok, err := w.rdb.SetNX(ctx, judgeLockKey, lockValue, config.AppConfig.JudgeLockTTL).Result()
	if err != nil {
		w.logger.Error("lock acquisition failed", "submission_id", submissionID, "error", err)
		w.requeue(ctx, submissionID)
		return
	}
	if !ok {
		w.logger.Info("judge lock busy, re-queueing", "submission_id", submissionID)
		w.requeue(ctx, submissionID)
		return
	}

	defer func() {
		deleted, err := releaseLockScript.Run(ctx, w.rdb, []string{judgeLockKey}, lockValue).Result()
		if err != nil {
			w.logger.Error("lock release failed", "submission_id", submissionID, "error", err)
		} else if n, _ := deleted.(int64); n != 1 {
			w.logger.Warn("lock already expired or taken", "submission_id", submissionID)
		}
	}()

	sub, err := w.orchestrator.Judge(ctx, submissionID)
	if err != nil {
		w.logger.Error("re-judge failed", "submission_id", submissionID, "error", err)
		return
	}
	w.logger.Info("re-judge finished", "submission_id", sub.ID, "verdict", sub.Status)
}

func (w *JudgeWorker) requeue(ctx context.Context, submissionID string) {
	if err := w.rdb.RPush(ctx, config.AppConfig.JudgeQueueName, submissionID).Err(); err != nil {
		w.logger.Error("re-queue failed", "submission_id", submissionID, "error", err)
	}
}
