package output

import (
	"fmt"
	"io"

	"github.com/iwvelando/realty-forecast/internal/report"
	"github.com/iwvelando/realty-forecast/pkg/format"
	"github.com/iwvelando/realty-forecast/pkg/loans"
)

// ContextSummary writes a compact plain-text snapshot of the report, suitable
// as the data section of a prompt for an external advisor.
func ContextSummary(w io.Writer, r *report.Report) {
	params := r.Parameters
	eval := r.Evaluation
	m := eval.Metrics

	_, _ = fmt.Fprintf(w, "Investment model:\n")
	_, _ = fmt.Fprintf(w, "- total price: %s\n", format.WholeCurrency(params.Property.TotalPrice))
	_, _ = fmt.Fprintf(w, "- initial investment: %s (down payment %s plus taxes, fees and renovation)\n",
		format.WholeCurrency(eval.Costs.Total()), format.WholeCurrency(eval.Costs.DownPayment))
	_, _ = fmt.Fprintf(w, "- loan: %s over %d months at %s commercial",
		format.WholeCurrency(eval.Loan.LoanAmount), params.Loan.TermMonths, format.Percent(params.Loan.CommercialRate))
	if eval.Loan.ProvidentPrincipal > 0 {
		_, _ = fmt.Fprintf(w, " / %s provident", format.Percent(params.Loan.ProvidentRate))
	}
	_, _ = fmt.Fprintf(w, "\n")
	_, _ = fmt.Fprintf(w, "- monthly payment: %s\n", format.Currency(m.MonthlyPayment))
	_, _ = fmt.Fprintf(w, "- expected rent: %s per month, vacancy %s\n",
		format.WholeCurrency(params.Property.MonthlyRent), format.Percent(params.Market.VacancyRate))
	_, _ = fmt.Fprintf(w, "- holding period: %d years\n", params.HoldingYears)

	_, _ = fmt.Fprintf(w, "\nHousehold:\n")
	_, _ = fmt.Fprintf(w, "- other properties: %d\n", params.Household.OtherProperties)
	_, _ = fmt.Fprintf(w, "- existing monthly debt: %s\n", format.WholeCurrency(params.Household.ExistingMonthlyDebt))
	_, _ = fmt.Fprintf(w, "- total monthly debt: %s\n", format.WholeCurrency(m.TotalMonthlyDebt))
	_, _ = fmt.Fprintf(w, "- DTI: %s\n", ratioCell(m.DTI, m.DTIDefined))
	_, _ = fmt.Fprintf(w, "- purchase: %s\n", purchaseKind(r))

	_, _ = fmt.Fprintf(w, "\nKey metrics:\n")
	_, _ = fmt.Fprintf(w, "- cash-on-cash return: %s\n", returnCell(m.CashOnCashReturn, m.CashOnCashDefined))
	_, _ = fmt.Fprintf(w, "- comprehensive return: %s\n", returnCell(m.ComprehensiveReturn, m.ComprehensiveDefined))
	_, _ = fmt.Fprintf(w, "- total revenue: %s\n", format.WholeCurrency(m.TotalRevenue))
	_, _ = fmt.Fprintf(w, "- risk score: %.0f (%s)\n", m.RiskScore, m.RiskLevel)
	_, _ = fmt.Fprintf(w, "- break-even: %s\n", breakEven(m.BreakEvenYear))

	_, _ = fmt.Fprintf(w, "\nPrepayment:\n")
	if c := eval.Prepayment; c != nil {
		chosen := "reduce payment"
		if c.Prepayment.Strategy == loans.ReduceTerm {
			chosen = "reduce term"
		}
		_, _ = fmt.Fprintf(w, "- chosen strategy: %s\n", chosen)
		_, _ = fmt.Fprintf(w, "- no prepayment: total interest %s\n", format.WholeCurrency(c.NoPrepayment.TotalInterest))
		_, _ = fmt.Fprintf(w, "- reduce payment: saves %s, new payment %s\n",
			format.WholeCurrency(c.ReducePayment.InterestSaved), format.WholeCurrency(c.ReducePayment.NewMonthlyPayment))
		_, _ = fmt.Fprintf(w, "- reduce term: saves %s, %d months shorter\n",
			format.WholeCurrency(c.ReduceTerm.InterestSaved), c.ReduceTerm.MonthsSaved)
		_, _ = fmt.Fprintf(w, "- advice: %s\n", c.Recommendation.Guidance)
	} else {
		_, _ = fmt.Fprintf(w, "- none planned\n")
	}

	cmp := eval.Comparison
	winner := "alternative investment"
	if cmp.BuyIsBetter {
		winner = "buying"
	}
	_, _ = fmt.Fprintf(w, "\nBuy vs alternative investment over %d years:\n", params.HoldingYears)
	_, _ = fmt.Fprintf(w, "- property net equity: %s\n", format.WholeCurrency(cmp.BuyNetWorth))
	_, _ = fmt.Fprintf(w, "- alternative at %s: %s\n",
		format.Percent(params.Market.AlternativeReturnRate), format.WholeCurrency(cmp.RentNetWorth))
	_, _ = fmt.Fprintf(w, "- better: %s by %s\n", winner, format.WholeCurrency(abs(cmp.Advantage)))
	_, _ = fmt.Fprintf(w, "- hidden purchase costs: %s\n", format.WholeCurrency(eval.Costs.Total()-eval.Costs.DownPayment))
	_, _ = fmt.Fprintf(w, "- inflation: %s\n", format.Percent(params.Market.InflationRate))
}

func purchaseKind(r *report.Report) string {
	h := r.Parameters.Household
	switch {
	case h.InvestmentPurchase:
		return "investment"
	case h.OtherProperties > 0:
		return "upgrade (not first home)"
	default:
		return "first home"
	}
}
