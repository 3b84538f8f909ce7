package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sgep-io/sgep/internal/dashboard"
)

// DashboardWarmupJob keeps the KPI cache fresh between page hits.
type DashboardWarmupJob struct {
	Dashboard *dashboard.Service
	Logger    *slog.Logger
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(dashboardSvc *dashboard.Service, logger *slog.Logger) *DashboardWarmupJob {
	return &DashboardWarmupJob{Dashboard: dashboardSvc, Logger: logger}
}

// Handle processes dashboard warmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Dashboard == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	logger := j.logger()

	jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	if err := j.Dashboard.Warmup(jobCtx); err != nil {
		logger.Error("dashboard warmup", slog.Any("error", err))
		return err
	}
	logger.Info("dashboard warmup completed", slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *DashboardWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDashboardWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDashboardWarmup))
}
