package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sgep-io/sgep/internal/catalog"
)

// ExpirySweepJob deactivates expired lotes across the whole catalog.
type ExpirySweepJob struct {
	Catalog *catalog.Service
	Logger  *slog.Logger
}

// NewExpirySweepJob wires dependencies for the sweep handler.
func NewExpirySweepJob(catalogSvc *catalog.Service, logger *slog.Logger) *ExpirySweepJob {
	return &ExpirySweepJob{Catalog: catalogSvc, Logger: logger}
}

// Handle processes expiry sweep tasks.
func (j *ExpirySweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Catalog == nil {
		return errors.New("expiry sweep: handler not configured")
	}
	var payload ExpirySweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	logger := j.logger()
	if payload.DryRun {
		logger.Info("expiry sweep dry run requested, skipping")
		return nil
	}

	start := time.Now()
	count, err := j.Catalog.SweepExpired(ctx)
	if err != nil {
		logger.Error("expiry sweep", slog.Any("error", err))
		return err
	}
	logger.Info("expiry sweep completed",
		slog.Int("lotes_desativados", count),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *ExpirySweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskExpirySweep))
	}
	return slog.Default().With(slog.String("job", TaskExpirySweep))
}
