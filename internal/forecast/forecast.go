// Package forecast defines the parameters of a property evaluation and runs
// the loan, projection and scoring chain over them.
package forecast

import (
	"fmt"

	"github.com/iwvelando/realty-forecast/pkg/finance"
	"github.com/iwvelando/realty-forecast/pkg/loans"
	"github.com/iwvelando/realty-forecast/pkg/scoring"
	"go.uber.org/zap"
)

// Evaluation holds everything computed for one parameter set.
type Evaluation struct {
	Loan       *loans.ComposedLoan       `json:"loan"`
	Costs      finance.InitialCosts      `json:"costs"`
	Yearly     []loans.YearSummary       `json:"yearlySchedule"`
	Projection finance.Projection        `json:"projection"`
	Metrics    scoring.Metrics           `json:"metrics"`
	Comparison scoring.Comparison        `json:"comparison"`
	Prepayment *loans.StrategyComparison `json:"prepayment,omitempty"`
	Taxes      *finance.TaxEstimate      `json:"taxes,omitempty"`
}

// Evaluate validates the parameters, composes and amortizes the loan, projects
// the holding period and scores the result. The strategy comparison is added
// when an active prepayment is configured.
func Evaluate(logger *zap.Logger, params Parameters) (*Evaluation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	generator := loans.NewScheduleGenerator(logger)
	plan := params.Plan()
	loan, err := generator.ComposeLoan(plan)
	if err != nil {
		return nil, fmt.Errorf("composing loan: %w", err)
	}

	costs := params.Costs()
	assumptions := params.Assumptions()
	projection, err := finance.NewProjector(logger).Project(loan.Schedule, assumptions, params.HoldingYears, costs)
	if err != nil {
		return nil, fmt.Errorf("projecting cash flows: %w", err)
	}

	result := &Evaluation{
		Loan:       loan,
		Costs:      costs,
		Yearly:     loan.Schedule.Yearly(),
		Projection: projection,
	}

	var currentNetRent float64
	if len(projection.Years) > 0 {
		currentNetRent = projection.Years[0].AnnualNetRent
	}
	result.Metrics = scoring.Score(loan.Schedule, projection.Years, scoring.Inputs{
		Costs:                costs,
		TotalPrice:           params.Property.TotalPrice,
		LoanAmount:           loan.LoanAmount,
		MonthlyRent:          params.Property.MonthlyRent,
		MonthlyIncome:        params.Household.MonthlyIncome,
		ExistingMonthlyDebt:  params.Household.ExistingMonthlyDebt,
		CurrentAnnualNetRent: currentNetRent,
		MultiProperty:        params.MultiProperty(),
	}, params.Policy.Risk)

	if final, ok := projection.Final(); ok {
		result.Comparison = scoring.CompareBuyVsRent(final)
	}

	if plan.Prepayment.Active() {
		comparison, err := generator.CompareStrategies(plan, params.Policy.PrepaymentMargin)
		if err != nil {
			return nil, fmt.Errorf("comparing prepayment strategies: %w", err)
		}
		result.Prepayment = comparison
	}

	if profile, ok := params.Taxes(); ok {
		estimate, err := finance.EstimateTaxes(profile)
		if err != nil {
			return nil, fmt.Errorf("estimating taxes: %w", err)
		}
		result.Taxes = &estimate
	}

	logger.Debug(fmt.Sprintf("evaluated %.2f purchase over %d years: comprehensive return %.2f%%, risk %s",
		params.Property.TotalPrice, params.HoldingYears, result.Metrics.ComprehensiveReturn, result.Metrics.RiskLevel),
		zap.String("op", "forecast.Evaluate"),
	)

	return result, nil
}
