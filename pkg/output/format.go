// Package output renders analysis reports for people and for other programs.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/realty-forecast/internal/report"
	"github.com/iwvelando/realty-forecast/pkg/format"
	"github.com/iwvelando/realty-forecast/pkg/loans"
	"github.com/iwvelando/realty-forecast/pkg/scoring"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PrettyFormat writes a human-readable rather than machine-readable report.
func PrettyFormat(w io.Writer, r *report.Report, warnings []string) {
	p := message.NewPrinter(language.English)
	eval := r.Evaluation
	params := r.Parameters

	_, _ = fmt.Fprintf(w, "--- Purchase ---\n")
	_, _ = fmt.Fprintf(w, "Total price         | %s\n", format.Currency(params.Property.TotalPrice))
	_, _ = fmt.Fprintf(w, "Down payment        | %s\n", format.Currency(eval.Costs.DownPayment))
	_, _ = fmt.Fprintf(w, "Deed tax            | %s\n", format.Currency(eval.Costs.DeedTax))
	_, _ = fmt.Fprintf(w, "Agency fee          | %s\n", format.Currency(eval.Costs.AgencyFee))
	_, _ = fmt.Fprintf(w, "Renovation          | %s\n", format.Currency(eval.Costs.Renovation))
	_, _ = fmt.Fprintf(w, "Initial investment  | %s\n", format.Currency(eval.Costs.Total()))

	_, _ = fmt.Fprintf(w, "\n--- Loan ---\n")
	_, _ = fmt.Fprintf(w, "Type                | %s (%s)\n", params.Loan.Type, params.Loan.Method)
	_, _ = fmt.Fprintf(w, "Loan amount         | %s\n", format.Currency(eval.Loan.LoanAmount))
	if eval.Loan.ProvidentPrincipal > 0 {
		_, _ = fmt.Fprintf(w, "Commercial portion  | %s\n", format.Currency(eval.Loan.CommercialPrincipal))
		_, _ = fmt.Fprintf(w, "Provident portion   | %s\n", format.Currency(eval.Loan.ProvidentPrincipal))
	}
	_, _ = fmt.Fprintf(w, "First payment       | %s\n", format.Currency(eval.Metrics.MonthlyPayment))
	_, _ = fmt.Fprintf(w, "Total interest      | %s\n", format.Currency(eval.Loan.Schedule.TotalInterest()))
	_, _ = p.Fprintf(w, "Payments            | %d months\n", len(eval.Loan.Schedule))

	_, _ = fmt.Fprintf(w, "\n--- Metrics ---\n")
	writeMetrics(w, eval.Metrics)

	_, _ = fmt.Fprintf(w, "\n--- Buy vs alternative (%d years) ---\n", params.HoldingYears)
	_, _ = fmt.Fprintf(w, "Buy net worth       | %s (real %s)\n",
		format.Currency(eval.Comparison.BuyNetWorth), format.Currency(eval.Comparison.RealBuyNetWorth))
	_, _ = fmt.Fprintf(w, "Alternative         | %s (real %s)\n",
		format.Currency(eval.Comparison.RentNetWorth), format.Currency(eval.Comparison.RealRentNetWorth))
	winner := "alternative investment"
	if eval.Comparison.BuyIsBetter {
		winner = "buying"
	}
	_, _ = fmt.Fprintf(w, "Better choice       | %s by %s\n", winner, format.Currency(abs(eval.Comparison.Advantage)))

	if c := eval.Prepayment; c != nil {
		_, _ = fmt.Fprintf(w, "\n--- Prepayment of %s in month %d ---\n",
			format.Currency(c.Prepayment.Amount), c.Prepayment.Month)
		_, _ = fmt.Fprintf(w, "Strategy        | Total interest   | Interest saved   | Months saved | New payment\n")
		_, _ = fmt.Fprintf(w, "________        | ______________   | ______________   | ____________ | ___________\n")
		for _, o := range []loans.StrategyOutcome{c.NoPrepayment, c.ReducePayment, c.ReduceTerm} {
			_, _ = p.Fprintf(w, "%-15s | %16s | %16s | %12d | %s\n",
				o.Strategy, format.Currency(o.TotalInterest), format.Currency(o.InterestSaved),
				o.MonthsSaved, format.Currency(o.NewMonthlyPayment))
		}
		_, _ = fmt.Fprintf(w, "Advice: %s\n", c.Recommendation.Guidance)
	}

	if t := eval.Taxes; t != nil {
		_, _ = fmt.Fprintf(w, "\n--- Transaction taxes ---\n")
		_, _ = fmt.Fprintf(w, "Deed tax            | %s (%s)\n", format.Currency(t.DeedTax), format.Percent(t.DeedTaxRate))
		_, _ = fmt.Fprintf(w, "VAT                 | %s (%s)\n", format.Currency(t.VAT), format.Percent(t.VATRate))
		_, _ = fmt.Fprintf(w, "Income tax          | %s (%s)\n", format.Currency(t.IncomeTax), format.Percent(t.IncomeTaxRate))
		_, _ = fmt.Fprintf(w, "Total               | %s\n", format.Currency(t.Total))
	}

	_, _ = fmt.Fprintf(w, "\n--- Yearly projection ---\n")
	_, _ = fmt.Fprintf(w, "Year | Net rent         | Property value   | Remaining loan   | Equity           | Alternative\n")
	_, _ = fmt.Fprintf(w, "____ | ________         | ______________   | ______________   | ______           | ___________\n")
	for _, y := range eval.Projection.Years {
		_, _ = fmt.Fprintf(w, "%4d | %16s | %16s | %16s | %16s | %s\n", y.Year,
			format.Currency(y.AnnualNetRent), format.Currency(y.PropertyValue),
			format.Currency(y.RemainingLoan), format.Currency(y.Equity),
			format.Currency(y.AlternativeValue))
	}

	if len(r.Scenarios) > 0 {
		_, _ = fmt.Fprintf(w, "\n--- Scenarios ---\n")
		_, _ = fmt.Fprintf(w, "Scenario             | Comprehensive | Delta     | DTI     | Risk  | Notes\n")
		_, _ = fmt.Fprintf(w, "________             | _____________ | _____     | ___     | ____  | _____\n")
		for _, s := range r.Scenarios {
			note := ""
			if s.Negative {
				note = "loss"
			}
			_, _ = fmt.Fprintf(w, "%-20s | %13s | %9s | %7s | %5.1f | %s\n", s.Name,
				returnCell(s.Metrics.ComprehensiveReturn, s.Metrics.ComprehensiveDefined),
				format.Percent(s.Delta.ComprehensiveReturn),
				ratioCell(s.Metrics.DTI, s.Metrics.DTIDefined),
				s.Metrics.RiskScore, note)
		}
	}

	a := r.Affordability
	_, _ = fmt.Fprintf(w, "\n--- Affordability ---\n")
	_, _ = fmt.Fprintf(w, "Largest price within %s DTI | %s (current %s)\n",
		format.Percent(a.Limit), format.Currency(a.Value), format.Currency(a.Original))
	for _, note := range a.Notes {
		_, _ = fmt.Fprintf(w, "  %s\n", note)
	}

	if len(warnings) > 0 {
		_, _ = fmt.Fprintf(w, "\n--- Warnings ---\n")
		for _, warning := range warnings {
			_, _ = fmt.Fprintf(w, "- %s\n", warning)
		}
	}
}

func writeMetrics(w io.Writer, m scoring.Metrics) {
	_, _ = fmt.Fprintf(w, "Cash-on-cash return | %s\n", returnCell(m.CashOnCashReturn, m.CashOnCashDefined))
	_, _ = fmt.Fprintf(w, "Total return        | %s\n", returnCell(m.ComprehensiveReturn, m.ComprehensiveDefined))
	_, _ = fmt.Fprintf(w, "Annualized return   | %s\n", returnCell(m.AnnualizedReturn, m.AnnualizedDefined))
	_, _ = fmt.Fprintf(w, "DTI                 | %s\n", ratioCell(m.DTI, m.DTIDefined))
	if m.DSCRDefined {
		_, _ = fmt.Fprintf(w, "DSCR                | %.2f\n", m.DSCR)
	} else {
		_, _ = fmt.Fprintf(w, "DSCR                | n/a\n")
	}
	_, _ = fmt.Fprintf(w, "LTV                 | %s\n", format.Ratio(m.LTV))
	_, _ = fmt.Fprintf(w, "Risk                | %.1f (%s)\n", m.RiskScore, m.RiskLevel)
	_, _ = fmt.Fprintf(w, "Break-even          | %s\n", breakEven(m.BreakEvenYear))
	_, _ = fmt.Fprintf(w, "Final net worth     | %s\n", format.Currency(m.FinalNetWorth))
}

// CsvFormat writes the yearly projection followed by the scenario table in
// comma-separated value format.
func CsvFormat(w io.Writer, r *report.Report) {
	_, _ = fmt.Fprintf(w, `"year","net rent","property value","remaining loan","equity","interest paid","principal paid","cumulative cash flow","alternative value"`)
	_, _ = fmt.Fprintf(w, "\n")
	for _, y := range r.Evaluation.Projection.Years {
		_, _ = fmt.Fprintf(w, `"%d","%.2f","%.2f","%.2f","%.2f","%.2f","%.2f","%.2f","%.2f"`,
			y.Year, y.AnnualNetRent, y.PropertyValue, y.RemainingLoan, y.Equity,
			y.InterestPaid, y.PrincipalPaid, y.CumulativeCashFlow, y.AlternativeValue)
		_, _ = fmt.Fprintf(w, "\n")
	}

	if len(r.Scenarios) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "\n")
	_, _ = fmt.Fprintf(w, `"scenario","comprehensive return","delta","annualized return","dti","risk score","monthly payment","negative"`)
	_, _ = fmt.Fprintf(w, "\n")
	for _, s := range r.Scenarios {
		_, _ = fmt.Fprintf(w, `"%s","%.2f","%.2f","%.2f","%.4f","%.1f","%.2f","%t"`,
			quote(s.Name), s.Metrics.ComprehensiveReturn, s.Delta.ComprehensiveReturn,
			s.Metrics.AnnualizedReturn, s.Metrics.DTI, s.Metrics.RiskScore,
			s.Metrics.MonthlyPayment, s.Negative)
		_, _ = fmt.Fprintf(w, "\n")
	}
}

// JSONFormat writes the report and warnings as indented JSON.
func JSONFormat(w io.Writer, r *report.Report, warnings []string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		*report.Report
		Warnings          []string `json:"warnings,omitempty"`
		NegativeScenarios []string `json:"negativeScenarios,omitempty"`
	}{r, warnings, r.NegativeScenarios()})
}

func returnCell(v float64, defined bool) string {
	if !defined {
		return "n/a"
	}
	return format.Percent(v)
}

func ratioCell(v float64, defined bool) string {
	if !defined {
		return "n/a"
	}
	return format.Ratio(v)
}

func breakEven(year *int) string {
	if year == nil {
		return "not within holding period"
	}
	return fmt.Sprintf("year %d", *year)
}

// quote escapes embedded double quotes for CSV fields.
func quote(s string) string {
	return strings.ReplaceAll(s, `"`, `""`)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
