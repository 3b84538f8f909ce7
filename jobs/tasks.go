package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskExpirySweep deactivates lotes whose expiry date has passed.
	TaskExpirySweep = "expiry:sweep"
	// TaskDashboardWarmup refreshes the dashboard KPI cache.
	TaskDashboardWarmup = "dashboard:warmup"
)

// ExpirySweepPayload parameterizes a sweep run.
type ExpirySweepPayload struct {
	DryRun bool `json:"dry_run"`
}

// NewExpirySweepTask constructs the sweep task.
func NewExpirySweepTask(payload ExpirySweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExpirySweep, data), nil
}

// NewDashboardWarmupTask constructs the warmup task. It carries no payload.
func NewDashboardWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskDashboardWarmup, nil)
}
