package loans

import (
	"errors"
	"fmt"

	"github.com/iwvelando/realty-forecast/pkg/constants"
	"go.uber.org/zap"
)

// LoanType selects how a purchase is financed.
type LoanType string

const (
	// Commercial is a single bank loan.
	Commercial LoanType = "commercial"
	// Provident is a single housing provident fund loan.
	Provident LoanType = "provident"
	// Combination splits the loan into a provident leg up to the quota and a commercial remainder.
	Combination LoanType = "combination"
)

// Valid reports whether t is a known loan type.
func (t LoanType) Valid() bool {
	return t == Commercial || t == Provident || t == Combination
}

// Plan describes how a property purchase is financed.
type Plan struct {
	TotalPrice       float64
	DownPaymentRatio float64 // percent of TotalPrice
	LoanType         LoanType
	CommercialRate   float64 // percent
	ProvidentRate    float64 // percent
	ProvidentQuota   float64 // maximum provident principal
	TermMonths       int
	Method           Method
	Prepayment       *Prepayment
	StartDate        string
}

// LoanAmount is the amount to finance.
func (p Plan) LoanAmount() float64 {
	return p.TotalPrice * (1 - p.DownPaymentRatio/constants.PercentageMultiplier)
}

// DownPayment is the cash paid up front towards the price.
func (p Plan) DownPayment() float64 {
	return p.TotalPrice - p.LoanAmount()
}

// Validate rejects plans that cannot be composed.
func (p Plan) Validate() error {
	var errs []error
	if p.TotalPrice <= 0 {
		errs = append(errs, fmt.Errorf("%w: total price must be positive, got %.2f", ErrInvalidTerms, p.TotalPrice))
	}
	if p.DownPaymentRatio < 0 || p.DownPaymentRatio > constants.PercentageMultiplier {
		errs = append(errs, fmt.Errorf("%w: down payment ratio must be within 0..100, got %.2f", ErrInvalidTerms, p.DownPaymentRatio))
	}
	if !p.LoanType.Valid() {
		errs = append(errs, fmt.Errorf("%w: unknown loan type %q", ErrInvalidTerms, p.LoanType))
	}
	if p.ProvidentQuota < 0 {
		errs = append(errs, fmt.Errorf("%w: provident quota must not be negative, got %.2f", ErrInvalidTerms, p.ProvidentQuota))
	}
	if p.CommercialRate < 0 || p.ProvidentRate < 0 {
		errs = append(errs, fmt.Errorf("%w: interest rates must not be negative", ErrInvalidTerms))
	}
	if p.TermMonths <= 0 || p.TermMonths > constants.MaxTermMonths {
		errs = append(errs, fmt.Errorf("%w: term must be within 1..%d months, got %d",
			ErrInvalidTerms, constants.MaxTermMonths, p.TermMonths))
	}
	if !p.Method.Valid() {
		errs = append(errs, fmt.Errorf("%w: unknown repayment method %q", ErrInvalidTerms, p.Method))
	}
	if err := p.Prepayment.Validate(p.TermMonths); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ComposedLoan is the result of composing a Plan.
type ComposedLoan struct {
	LoanAmount          float64  `json:"loanAmount"`
	CommercialPrincipal float64  `json:"commercialPrincipal"`
	ProvidentPrincipal  float64  `json:"providentPrincipal"`
	Commercial          Schedule `json:"-"`
	Provident           Schedule `json:"-"`
	Schedule            Schedule `json:"schedule"`
}

// ComposeLoan splits the plan into its legs, amortizes each one and merges the
// legs into one schedule. A combination plan clamps the provident quota to the
// loan amount. The prepayment is applied to the commercial leg when it carries
// principal and to the provident leg otherwise. Any part the commercial leg
// cannot absorb is prepaid on the provident leg in the same month.
func (g *ScheduleGenerator) ComposeLoan(plan Plan) (*ComposedLoan, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	loan := &ComposedLoan{LoanAmount: plan.LoanAmount()}
	switch plan.LoanType {
	case Commercial:
		loan.CommercialPrincipal = loan.LoanAmount
	case Provident:
		loan.ProvidentPrincipal = loan.LoanAmount
	case Combination:
		quota := plan.ProvidentQuota
		if quota > loan.LoanAmount {
			g.logger.Debug(fmt.Sprintf("provident quota %.2f exceeds loan amount %.2f, clamping", quota, loan.LoanAmount),
				zap.String("op", "loans.ComposeLoan"),
			)
			quota = loan.LoanAmount
		}
		loan.ProvidentPrincipal = quota
		loan.CommercialPrincipal = loan.LoanAmount - quota
	}

	if loan.LoanAmount <= payoffTolerance {
		loan.Schedule = Schedule{}
		return loan, nil
	}

	commercialPrepayment, providentPrepayment := plan.Prepayment, (*Prepayment)(nil)
	if loan.CommercialPrincipal <= payoffTolerance {
		commercialPrepayment, providentPrepayment = nil, plan.Prepayment
	}

	var err error
	if loan.CommercialPrincipal > payoffTolerance {
		loan.Commercial, err = g.GenerateSchedule(Terms{
			Principal:  loan.CommercialPrincipal,
			AnnualRate: plan.CommercialRate,
			TermMonths: plan.TermMonths,
			Method:     plan.Method,
			Prepayment: commercialPrepayment,
			StartDate:  plan.StartDate,
		})
		if err != nil {
			return nil, fmt.Errorf("commercial leg: %w", err)
		}
		providentPrepayment = spillover(commercialPrepayment, loan.Commercial)
		if providentPrepayment != nil {
			g.logger.Debug(fmt.Sprintf("prepayment exceeds the commercial balance, %.2f goes to the provident leg", providentPrepayment.Amount),
				zap.String("op", "loans.ComposeLoan"),
			)
		}
	}
	if loan.ProvidentPrincipal > payoffTolerance {
		loan.Provident, err = g.GenerateSchedule(Terms{
			Principal:  loan.ProvidentPrincipal,
			AnnualRate: plan.ProvidentRate,
			TermMonths: plan.TermMonths,
			Method:     plan.Method,
			Prepayment: providentPrepayment,
			StartDate:  plan.StartDate,
		})
		if err != nil {
			return nil, fmt.Errorf("provident leg: %w", err)
		}
	}

	loan.Schedule = MergeSchedules(loan.Commercial, loan.Provident)

	g.logger.Debug(fmt.Sprintf("composed %s loan of %.2f (commercial %.2f, provident %.2f) over %d months",
		plan.LoanType, loan.LoanAmount, loan.CommercialPrincipal, loan.ProvidentPrincipal, loan.Schedule.PayoffMonth()),
		zap.String("op", "loans.ComposeLoan"),
	)
	return loan, nil
}

// spillover returns the part of prepayment that the leg could not absorb, as a
// prepayment in the same month with the same strategy, or nil.
func spillover(prepayment *Prepayment, leg Schedule) *Prepayment {
	if !prepayment.Active() {
		return nil
	}
	applied := 0.0
	if prepayment.Month <= len(leg) {
		applied = leg[prepayment.Month-1].ExtraPrincipal
	}
	excess := prepayment.Amount - applied
	if excess <= payoffTolerance {
		return nil
	}
	return &Prepayment{Month: prepayment.Month, Amount: excess, Strategy: prepayment.Strategy}
}
