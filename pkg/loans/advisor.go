package loans

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrNoPrepayment is returned when a strategy comparison is requested without a prepayment.
var ErrNoPrepayment = errors.New("no prepayment configured")

// StrategyOutcome summarizes one prepayment strategy.
type StrategyOutcome struct {
	Strategy          string  `json:"strategy"`
	TotalInterest     float64 `json:"totalInterest"`
	InterestSaved     float64 `json:"interestSaved"`
	PayoffMonths      int     `json:"payoffMonths"`
	MonthsSaved       int     `json:"monthsSaved"`
	FirstPayment      float64 `json:"firstPayment"`
	NewMonthlyPayment float64 `json:"newMonthlyPayment"`
	TotalPayment      float64 `json:"totalPayment"`
}

// Recommendation is advisory guidance, not a verdict.
type Recommendation struct {
	Strategy Strategy `json:"strategy,omitempty"`
	Decisive bool     `json:"decisive"`
	Guidance string   `json:"guidance"`
}

// StrategyComparison compares prepayment strategies for the same plan.
type StrategyComparison struct {
	Prepayment     Prepayment      `json:"prepayment"`
	Margin         float64         `json:"margin"`
	NoPrepayment   StrategyOutcome `json:"noPrepayment"`
	ReducePayment  StrategyOutcome `json:"reducePayment"`
	ReduceTerm     StrategyOutcome `json:"reduceTerm"`
	Recommendation Recommendation  `json:"recommendation"`
}

// CompareStrategies composes the plan three times: without the prepayment and
// with it under each strategy. Reduce-term is recommended only when its interest
// saving beats reduce-payment by more than margin (a fraction, e.g. 0.05).
func (g *ScheduleGenerator) CompareStrategies(plan Plan, margin float64) (*StrategyComparison, error) {
	if !plan.Prepayment.Active() {
		return nil, ErrNoPrepayment
	}
	if margin < 0 {
		return nil, fmt.Errorf("%w: recommendation margin must not be negative, got %.4f", ErrInvalidTerms, margin)
	}

	prepayment := *plan.Prepayment
	run := func(p *Prepayment) (Schedule, error) {
		variant := plan
		variant.Prepayment = p
		loan, err := g.ComposeLoan(variant)
		if err != nil {
			return nil, err
		}
		return loan.Schedule, nil
	}

	baseline, err := run(nil)
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	reducePayment := prepayment
	reducePayment.Strategy = ReducePayment
	paymentSchedule, err := run(&reducePayment)
	if err != nil {
		return nil, fmt.Errorf("reduce payment: %w", err)
	}
	reduceTerm := prepayment
	reduceTerm.Strategy = ReduceTerm
	termSchedule, err := run(&reduceTerm)
	if err != nil {
		return nil, fmt.Errorf("reduce term: %w", err)
	}

	comparison := &StrategyComparison{
		Prepayment:    prepayment,
		Margin:        margin,
		NoPrepayment:  summarizeOutcome("none", baseline, baseline, prepayment.Month),
		ReducePayment: summarizeOutcome(string(ReducePayment), paymentSchedule, baseline, prepayment.Month),
		ReduceTerm:    summarizeOutcome(string(ReduceTerm), termSchedule, baseline, prepayment.Month),
	}
	comparison.Recommendation = recommend(comparison.ReducePayment, comparison.ReduceTerm, margin)

	g.logger.Debug(fmt.Sprintf("prepayment of %.2f in month %d: reduce-payment saves %.2f, reduce-term saves %.2f",
		prepayment.Amount, prepayment.Month, comparison.ReducePayment.InterestSaved, comparison.ReduceTerm.InterestSaved),
		zap.String("op", "loans.CompareStrategies"),
	)
	return comparison, nil
}

func summarizeOutcome(name string, schedule, baseline Schedule, prepaymentMonth int) StrategyOutcome {
	return StrategyOutcome{
		Strategy:          name,
		TotalInterest:     schedule.TotalInterest(),
		InterestSaved:     baseline.TotalInterest() - schedule.TotalInterest(),
		PayoffMonths:      schedule.PayoffMonth(),
		MonthsSaved:       baseline.PayoffMonth() - schedule.PayoffMonth(),
		FirstPayment:      schedule.FirstPayment(),
		NewMonthlyPayment: schedule.PaymentAt(prepaymentMonth + 1),
		TotalPayment:      schedule.TotalPayment(),
	}
}

func recommend(reducePayment, reduceTerm StrategyOutcome, margin float64) Recommendation {
	if reduceTerm.InterestSaved > reducePayment.InterestSaved*(1+margin) {
		return Recommendation{
			Strategy: ReduceTerm,
			Decisive: true,
			Guidance: fmt.Sprintf(
				"Reducing the term saves %.2f in interest, %.2f more than reducing the payment, and clears the loan %d months earlier. Prefer it if the current payment is comfortable.",
				reduceTerm.InterestSaved, reduceTerm.InterestSaved-reducePayment.InterestSaved,
				reducePayment.PayoffMonths-reduceTerm.PayoffMonths),
		}
	}
	return Recommendation{
		Decisive: false,
		Guidance: fmt.Sprintf(
			"Both strategies save a similar amount of interest (%.2f reducing the term, %.2f reducing the payment). Reduce the payment to free up %.2f of monthly cash flow, or reduce the term to finish sooner.",
			reduceTerm.InterestSaved, reducePayment.InterestSaved,
			reduceTerm.NewMonthlyPayment-reducePayment.NewMonthlyPayment),
	}
}
