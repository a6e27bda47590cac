package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrityScan re-validates posted entry balances per tenant.
	TaskLedgerIntegrityScan = "ledger:integrity_scan"
	// TaskTrialBalanceWarmup precomputes trial balance caches per tenant.
	TaskTrialBalanceWarmup = "reports:tb_warmup"
)

// IntegrityScanPayload scopes an integrity scan run.
type IntegrityScanPayload struct {
	CompanyID string `json:"company_id,omitempty"` // empty scans every tenant
}

// NewIntegrityScanTask constructs an integrity scan task.
func NewIntegrityScanTask(payload IntegrityScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrityScan, data), nil
}

// WarmupPayload scopes a trial balance warmup run.
type WarmupPayload struct {
	Period string `json:"period,omitempty"`
}

// NewWarmupTask constructs a warmup task.
func NewWarmupTask(payload WarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTrialBalanceWarmup, data), nil
}
