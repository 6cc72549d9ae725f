// Package optimizer searches for the largest purchase price a household can
// finance within its debt-to-income limit.
package optimizer

import (
	"fmt"
	"math"

	"github.com/iwvelando/realty-forecast/internal/forecast"
	"github.com/iwvelando/realty-forecast/pkg/constants"
	"github.com/iwvelando/realty-forecast/pkg/format"
	"github.com/iwvelando/realty-forecast/pkg/loans"
	"github.com/iwvelando/realty-forecast/pkg/mathutil"
	"github.com/iwvelando/realty-forecast/pkg/optimization"
	"go.uber.org/zap"
)

const (
	scopeAffordability = "affordability"
	fieldTotalPrice    = "totalPrice"
	// maxExpansions bounds the doubling of the upper search bound.
	maxExpansions = 64
)

// Runner runs the affordability search for one parameter set.
type Runner struct {
	logger        *zap.Logger
	params        forecast.Parameters
	generator     *loans.ScheduleGenerator
	tolerance     float64
	maxIterations int
}

type evaluation struct {
	price   float64
	payment float64
	limit   float64
}

func (e evaluation) feasible() bool {
	return e.payment <= e.limit+constants.CurrencyTolerance
}

func (e evaluation) headroom() float64 {
	return e.limit - e.payment
}

// NewRunner constructs a Runner. The parameters are copied and validated.
func NewRunner(logger *zap.Logger, params forecast.Parameters) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Runner{
		logger:        logger,
		params:        params.Clone(),
		generator:     loans.NewScheduleGenerator(zap.NewNop()),
		tolerance:     constants.AffordabilityTolerance,
		maxIterations: constants.AffordabilityMaxIterations,
	}, nil
}

// MaxMonthlyPayment is the largest new loan payment within the DTI limit.
func MaxMonthlyPayment(params forecast.Parameters) float64 {
	return params.Household.MonthlyIncome*mathutil.Fraction(params.Policy.DTILimit) - params.Household.ExistingMonthlyDebt
}

// Run bisects the total price, keeping down payment ratio, rates, quota, term
// and method, for the largest price whose first monthly payment fits within
// MaxMonthlyPayment. Prepayments are ignored.
func (r *Runner) Run() (optimization.Summary, error) {
	limit := MaxMonthlyPayment(r.params)
	original, err := r.evaluate(r.params.Property.TotalPrice, limit)
	if err != nil {
		return optimization.Summary{}, err
	}

	summary := optimization.Summary{
		Scope:           scopeAffordability,
		Field:           fieldTotalPrice,
		Original:        original.price,
		OriginalDisplay: format.Currency(original.price),
		Limit:           limit,
		WithinLimit:     original.feasible(),
	}

	if limit <= 0 {
		summary.Measured = 0
		summary.Headroom = limit
		summary.Notes = []string{fmt.Sprintf("existing debt of %s uses the whole %s DTI allowance",
			format.Currency(r.params.Household.ExistingMonthlyDebt), format.Percent(r.params.Policy.DTILimit))}
		summary.ValueDisplay = format.Currency(0)
		return summary, nil
	}

	if original.payment <= 0 {
		summary.Value = original.price
		summary.ValueDisplay = format.Currency(original.price)
		summary.Headroom = limit
		summary.Converged = true
		summary.Notes = []string{"cash purchase: the monthly payment does not depend on the price"}
		return summary, nil
	}

	lower := evaluation{limit: limit}
	upper := original
	iterations := 0
	for upper.feasible() {
		if iterations >= maxExpansions {
			return optimization.Summary{}, fmt.Errorf("optimizer: no price up to %s exceeds the payment limit", format.Currency(upper.price))
		}
		lower = upper
		upper, err = r.evaluate(upper.price*2, limit)
		if err != nil {
			return optimization.Summary{}, err
		}
		iterations++
	}

	for iterations < r.maxIterations && upper.price-lower.price > r.tolerance {
		mid, err := r.evaluate(lower.price+(upper.price-lower.price)/2, limit)
		if err != nil {
			return optimization.Summary{}, err
		}
		iterations++
		if mid.feasible() {
			lower = mid
		} else {
			upper = mid
		}
	}

	summary.Value = lower.price
	summary.ValueDisplay = format.Currency(lower.price)
	summary.Measured = lower.payment
	summary.Headroom = lower.headroom()
	summary.Iterations = iterations
	summary.Converged = upper.price-lower.price <= r.tolerance
	if !summary.Converged {
		summary.Notes = append(summary.Notes, fmt.Sprintf("stopped after %d iterations within %s of the limit",
			iterations, format.Currency(upper.price-lower.price)))
	}

	r.logger.Debug("optimizer found affordable price",
		zap.String("op", "optimizer.Run"),
		zap.Float64("original", summary.Original),
		zap.Float64("value", summary.Value),
		zap.Float64("limit", limit),
		zap.Float64("payment", summary.Measured),
		zap.Int("iterations", iterations),
		zap.Bool("converged", summary.Converged),
	)
	return summary, nil
}

func (r *Runner) evaluate(price, limit float64) (evaluation, error) {
	if price <= 0 {
		return evaluation{limit: limit}, nil
	}
	plan := r.params.Plan()
	plan.TotalPrice = price
	plan.Prepayment = nil
	loan, err := r.generator.ComposeLoan(plan)
	if err != nil {
		return evaluation{}, fmt.Errorf("optimizer evaluation at %s failed: %w", format.Currency(price), err)
	}
	return evaluation{price: price, payment: loan.Schedule.FirstPayment(), limit: limit}, nil
}

// PaymentAt is the first monthly payment for the plan at a given price.
func (r *Runner) PaymentAt(price float64) (float64, error) {
	e, err := r.evaluate(math.Max(0, price), 0)
	return e.payment, err
}
