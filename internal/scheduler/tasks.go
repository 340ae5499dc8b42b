package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskEstimateJob = "estimates.run"

type EstimateJobPayload struct {
	EstimateID string `json:"estimateId"`
	TenantID   string `json:"tenantId"`
}

func NewEstimateJobTask(payload EstimateJobPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEstimateJob, data), nil
}

func ParseEstimateJobPayload(task *asynq.Task) (EstimateJobPayload, error) {
	var payload EstimateJobPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return EstimateJobPayload{}, err
	}
	return payload, nil
}
