package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nexusledger/nexusledger/internal/journal"
	"github.com/nexusledger/nexusledger/internal/tenants"
)

const integrityTolerance = 0.01

// GLIntegrityJob re-validates posted journal entries tenant by tenant and
// reports any that have drifted out of balance. The entries themselves are
// never rewritten; the job only surfaces the damage.
type GLIntegrityJob struct {
	Journals  *journal.Service
	Directory *tenants.Service
	Logger    *slog.Logger
	clock     func() time.Time
}

// NewGLIntegrityJob wires dependencies for the integrity handler.
func NewGLIntegrityJob(journals *journal.Service, directory *tenants.Service, logger *slog.Logger) *GLIntegrityJob {
	return &GLIntegrityJob{
		Journals:  journals,
		Directory: directory,
		Logger:    logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes integrity scan tasks.
func (j *GLIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Journals == nil {
		return errors.New("gl integrity: handler not configured")
	}
	var payload IntegrityScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger()
	started := j.now()
	logger.Info("starting gl integrity scan")

	companies, err := j.scanTargets(ctx, payload.CompanyID)
	if err != nil {
		logger.Error("load scan targets", slog.Any("error", err))
		return err
	}

	scanned := 0
	flagged := 0
	for _, companyID := range companies {
		unbalanced, err := j.scanCompany(ctx, companyID)
		if err != nil {
			logger.Error("scan company", slog.String("company_id", companyID), slog.Any("error", err))
			return err
		}
		for _, number := range unbalanced {
			flagged++
			logger.Warn("posted entry out of balance",
				slog.String("company_id", companyID),
				slog.String("journal_number", number))
		}
		scanned++
	}

	logger.Info("completed gl integrity scan",
		slog.Int("companies", scanned),
		slog.Int("flagged", flagged),
		slog.Duration("duration", time.Since(started)))
	return nil
}

func (j *GLIntegrityJob) scanCompany(ctx context.Context, companyID string) ([]string, error) {
	scanCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	entries, err := j.Journals.List(scanCtx, companyID)
	if err != nil {
		return nil, err
	}
	var unbalanced []string
	for _, entry := range entries {
		if entry.Status != journal.JournalStatusPosted {
			continue
		}
		var debits, credits float64
		for _, line := range entry.Lines {
			debits += line.Debit
			credits += line.Credit
		}
		if math.Abs(debits-credits) >= integrityTolerance {
			unbalanced = append(unbalanced, entry.JournalNumber)
		}
	}
	return unbalanced, nil
}

func (j *GLIntegrityJob) scanTargets(ctx context.Context, companyID string) ([]string, error) {
	if companyID != "" {
		return []string{companyID}, nil
	}
	if j.Directory == nil {
		return nil, errors.New("gl integrity: directory not configured")
	}
	companies, err := j.Directory.ListCompanies(ctx)
	if err != nil {
		return nil, err
	}
	targets := make([]string, 0, len(companies))
	for _, company := range companies {
		if company.Status != tenants.CompanyStatusActive {
			continue
		}
		targets = append(targets, company.ID)
	}
	return targets, nil
}

func (j *GLIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerIntegrityScan))
	}
	return slog.Default().With(slog.String("job", TaskLedgerIntegrityScan))
}

func (j *GLIntegrityJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
