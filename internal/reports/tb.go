// Package reports builds read-only financial views from the general ledger.
package reports

import (
	"math"

	"github.com/nexusledger/nexusledger/internal/accounts"
	"github.com/nexusledger/nexusledger/internal/journal"
)

// TrialBalanceLine is one hierarchy row of the trial balance. Level and
// HasChildren come from the chart of accounts tree, so indentation always
// matches the CoA hierarchy instead of being recomputed from codes.
type TrialBalanceLine struct {
	AccountCode     string  `json:"account_code"`
	AccountName     string  `json:"account_name"`
	AccountType     string  `json:"account_type"`
	Level           int     `json:"level"`
	HasChildren     bool    `json:"has_children"`
	Debit           float64 `json:"debit"`
	Credit          float64 `json:"credit"`
	CurrentNet      float64 `json:"current_net"`
	PriorNet        float64 `json:"prior_net"`
	Variance        float64 `json:"variance"`
	VariancePercent float64 `json:"variance_percent"`
}

// TrialBalance is the assembled report.
type TrialBalance struct {
	Lines       []TrialBalanceLine `json:"lines"`
	TotalDebit  float64            `json:"total_debit"`
	TotalCredit float64            `json:"total_credit"`
}

// BuildTrialBalance rolls GL rows and a prior-period baseline up the account
// tree. Parents accumulate their descendants; rows appear in tree order.
func BuildTrialBalance(tree []accounts.TreeNode, rows []journal.GLTransaction, prior map[string]float64) TrialBalance {
	debits := make(map[string]float64)
	credits := make(map[string]float64)
	for _, row := range rows {
		debits[row.AccountID] += row.Debit
		credits[row.AccountID] += row.Credit
	}

	var report TrialBalance
	var walk func(nodes []accounts.TreeNode) (debit, credit, current, priorSum float64)
	walk = func(nodes []accounts.TreeNode) (float64, float64, float64, float64) {
		var debit, credit, current, priorSum float64
		for _, node := range nodes {
			ownDebit := debits[node.Code]
			ownCredit := credits[node.Code]
			ownPrior := prior[node.Code]

			// reserve the row slot before descending so parents precede children
			idx := len(report.Lines)
			report.Lines = append(report.Lines, TrialBalanceLine{})

			childDebit, childCredit, childNet, childPrior := walk(node.Children)

			lineDebit := round2(ownDebit + childDebit)
			lineCredit := round2(ownCredit + childCredit)
			lineCurrent := round2(ownDebit - ownCredit + childNet)
			linePrior := round2(ownPrior + childPrior)
			report.Lines[idx] = TrialBalanceLine{
				AccountCode:     node.Code,
				AccountName:     node.Name,
				AccountType:     string(node.Type),
				Level:           node.Level,
				HasChildren:     len(node.Children) > 0,
				Debit:           lineDebit,
				Credit:          lineCredit,
				CurrentNet:      lineCurrent,
				PriorNet:        linePrior,
				Variance:        round2(lineCurrent - linePrior),
				VariancePercent: variancePercent(lineCurrent, linePrior),
			}

			debit += ownDebit + childDebit
			credit += ownCredit + childCredit
			current += ownDebit - ownCredit + childNet
			priorSum += ownPrior + childPrior
		}
		return debit, credit, current, priorSum
	}
	totalDebit, totalCredit, _, _ := walk(tree)
	report.TotalDebit = round2(totalDebit)
	report.TotalCredit = round2(totalCredit)
	return report
}

// variancePercent is defined as exactly 0 when the prior net is 0.
func variancePercent(current, prior float64) float64 {
	if prior == 0 {
		return 0
	}
	return round2((current - prior) / math.Abs(prior) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
