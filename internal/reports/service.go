package reports

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nexusledger/nexusledger/internal/accounts"
	"github.com/nexusledger/nexusledger/internal/journal"
	"github.com/nexusledger/nexusledger/internal/platform/blob"
)

// LedgerSource supplies derived GL rows for a tenant.
type LedgerSource interface {
	GLTransactions(ctx context.Context, companyID string) ([]journal.GLTransaction, error)
}

// ChartSource supplies the CoA hierarchy the report indents by.
type ChartSource interface {
	Tree(ctx context.Context, companyID string) ([]accounts.TreeNode, error)
}

// PriorSource supplies the prior-period net baseline per account code.
type PriorSource interface {
	PriorNet(ctx context.Context, companyID, period string) (map[string]float64, error)
}

// Service assembles trial balance reports.
type Service struct {
	ledger LedgerSource
	chart  ChartSource
	prior  PriorSource
	cache  *Cache
}

// NewService wires the aggregator. cache may be nil.
func NewService(ledger LedgerSource, chart ChartSource, prior PriorSource, cache *Cache) *Service {
	return &Service{ledger: ledger, chart: chart, prior: prior, cache: cache}
}

// TrialBalance builds (or fetches the cached) report for a tenant/period.
// The period scopes GL rows by their entry period; an empty period spans all.
func (s *Service) TrialBalance(ctx context.Context, companyID, period string) (TrialBalance, error) {
	build := func(ctx context.Context) (TrialBalance, error) {
		return s.build(ctx, companyID, period)
	}
	if s.cache == nil {
		return build(ctx)
	}
	key, err := s.cache.BuildKey(ctx, "reports", "tb", companyID, period)
	if err != nil {
		return TrialBalance{}, err
	}
	return FetchJSON(ctx, s.cache, key, build)
}

func (s *Service) build(ctx context.Context, companyID, period string) (TrialBalance, error) {
	tree, err := s.chart.Tree(ctx, companyID)
	if err != nil {
		return TrialBalance{}, err
	}
	rows, err := s.ledger.GLTransactions(ctx, companyID)
	if err != nil {
		return TrialBalance{}, err
	}
	if period != "" {
		filtered := rows[:0]
		for _, row := range rows {
			if row.Period == period {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}
	var prior map[string]float64
	if s.prior != nil {
		prior, err = s.prior.PriorNet(ctx, companyID, period)
		if err != nil {
			return TrialBalance{}, err
		}
	}
	return BuildTrialBalance(tree, rows, prior), nil
}

// Invalidate drops cached reports after ledger writes.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Bump(ctx)
}

// BlobPriorSource reads prior-period baselines from the blob gateway. The
// gateway's fail-open reads mean an unreachable backend yields an empty
// baseline, never an error.
type BlobPriorSource struct {
	client *blob.Client
	logger *slog.Logger
}

// NewBlobPriorSource wraps the gateway client.
func NewBlobPriorSource(client *blob.Client, logger *slog.Logger) *BlobPriorSource {
	return &BlobPriorSource{client: client, logger: logger}
}

type priorDoc struct {
	AccountID string  `json:"account_id"`
	Net       float64 `json:"net"`
}

// PriorNet implements PriorSource.
func (p *BlobPriorSource) PriorNet(ctx context.Context, companyID, period string) (map[string]float64, error) {
	key := "priors/" + companyID
	if period != "" {
		key += "/" + period
	}
	docs, err := p.client.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(docs))
	for _, raw := range docs {
		var doc priorDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			if p.logger != nil {
				p.logger.Warn("skip malformed prior baseline doc", slog.String("company", companyID))
			}
			continue
		}
		out[doc.AccountID] = doc.Net
	}
	return out, nil
}

// StaticPriorSource serves a fixed baseline, for tests and standalone mode.
type StaticPriorSource map[string]float64

// PriorNet implements PriorSource.
func (s StaticPriorSource) PriorNet(context.Context, string, string) (map[string]float64, error) {
	return s, nil
}
