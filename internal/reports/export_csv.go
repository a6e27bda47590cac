package reports

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WriteTrialBalanceCSV serialises the report with grouped thousands so the
// export matches what finance teams paste into spreadsheets.
func WriteTrialBalanceCSV(w io.Writer, report TrialBalance) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	printer := message.NewPrinter(language.English)
	formatAmount := func(v float64) string {
		return printer.Sprintf("%.2f", v)
	}

	if err := writer.Write([]string{
		"Account Code", "Account Name", "Type", "Level",
		"Debit", "Credit", "Current Net", "Prior Net", "Variance", "Variance %",
	}); err != nil {
		return err
	}
	for _, line := range report.Lines {
		if err := writer.Write([]string{
			line.AccountCode,
			line.AccountName,
			line.AccountType,
			printer.Sprintf("%d", line.Level),
			formatAmount(line.Debit),
			formatAmount(line.Credit),
			formatAmount(line.CurrentNet),
			formatAmount(line.PriorNet),
			formatAmount(line.Variance),
			formatAmount(line.VariancePercent),
		}); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{
		"", "TOTAL", "", "",
		formatAmount(report.TotalDebit),
		formatAmount(report.TotalCredit),
		"", "", "", "",
	}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}
