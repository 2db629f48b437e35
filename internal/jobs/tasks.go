package jobs

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the only queue the worker consumes.
	QueueDefault = "default"

	TaskStockInitialize = "stock:initialize_missing"
	TaskExpirationScan  = "expiration:scan"
	TaskAnalyticsWarmup = "analytics:warmup"
)

// ErrUnknownTask is returned when enqueueing a task type the worker does not handle.
var ErrUnknownTask = errors.New("jobs: unknown task type")

// TaskTypes lists every task the worker registers, in a stable order.
var TaskTypes = []string{TaskStockInitialize, TaskExpirationScan, TaskAnalyticsWarmup}

// ExpirationScanPayload overrides the scan window. Zero uses the critical threshold.
type ExpirationScanPayload struct {
	Days int `json:"days"`
}

func NewStockInitializeTask() *asynq.Task {
	return asynq.NewTask(TaskStockInitialize, nil)
}

func NewExpirationScanTask(days int) (*asynq.Task, error) {
	if days < 0 {
		return nil, fmt.Errorf("expiration scan: negative window %d", days)
	}
	data, err := json.Marshal(ExpirationScanPayload{Days: days})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExpirationScan, data), nil
}

func NewAnalyticsWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskAnalyticsWarmup, nil)
}

// NewTask builds a task with default payload from its type name.
func NewTask(taskType string) (*asynq.Task, error) {
	switch taskType {
	case TaskStockInitialize:
		return NewStockInitializeTask(), nil
	case TaskExpirationScan:
		return NewExpirationScanTask(0)
	case TaskAnalyticsWarmup:
		return NewAnalyticsWarmupTask(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, taskType)
	}
}
