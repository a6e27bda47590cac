package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nexusledger/nexusledger/internal/reports"
	"github.com/nexusledger/nexusledger/internal/tenants"
)

// TrialBalanceWarmupJob precomputes trial balances for every active tenant so
// the first interactive request after a posting burst hits a warm cache.
type TrialBalanceWarmupJob struct {
	Reports   *reports.Service
	Directory *tenants.Service
	Logger    *slog.Logger
	clock     func() time.Time
}

// NewTrialBalanceWarmupJob wires dependencies for the warmup handler.
func NewTrialBalanceWarmupJob(reportsSvc *reports.Service, directory *tenants.Service, logger *slog.Logger) *TrialBalanceWarmupJob {
	return &TrialBalanceWarmupJob{
		Reports:   reportsSvc,
		Directory: directory,
		Logger:    logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes trial balance warmup tasks.
func (j *TrialBalanceWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil || j.Directory == nil {
		return errors.New("tb warmup: handler not configured")
	}
	var payload WarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	period := payload.Period
	if period == "" {
		period = j.now().Format("2006-01")
	}

	logger := j.logger().With(slog.String("period", period))
	started := j.now()
	logger.Info("starting trial balance warmup")

	companies, err := j.Directory.ListCompanies(ctx)
	if err != nil {
		logger.Error("load companies", slog.Any("error", err))
		return err
	}

	warmed := 0
	for _, company := range companies {
		if company.Status != tenants.CompanyStatusActive {
			continue
		}
		if err := j.warmCompany(ctx, company.ID, period); err != nil {
			logger.Error("warm company", slog.String("company_id", company.ID), slog.Any("error", err))
			return err
		}
		warmed++
	}

	logger.Info("completed trial balance warmup",
		slog.Int("companies", warmed),
		slog.Duration("duration", time.Since(started)))
	return nil
}

func (j *TrialBalanceWarmupJob) warmCompany(ctx context.Context, companyID, period string) error {
	warmCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	if _, err := j.Reports.TrialBalance(warmCtx, companyID, period); err != nil {
		return err
	}
	// An all-period balance is the default view, so warm it too.
	_, err := j.Reports.TrialBalance(warmCtx, companyID, "")
	return err
}

func (j *TrialBalanceWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTrialBalanceWarmup))
	}
	return slog.Default().With(slog.String("job", TaskTrialBalanceWarmup))
}

func (j *TrialBalanceWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
