package loans

import (
	"errors"
	"fmt"

	"github.com/iwvelando/realty-forecast/pkg/constants"
	"github.com/iwvelando/realty-forecast/pkg/datetime"
	"go.uber.org/zap"
)

// ErrInvalidTerms is wrapped by every validation failure of Terms, Plan and Prepayment.
var ErrInvalidTerms = errors.New("invalid loan terms")

// Method is the repayment method of a loan.
type Method string

const (
	// EqualPayment keeps the monthly payment level (annuity).
	EqualPayment Method = "equal-payment"
	// EqualPrincipal repays a fixed principal portion every month.
	EqualPrincipal Method = "equal-principal"
)

// Valid reports whether m is a known repayment method.
func (m Method) Valid() bool {
	return m == EqualPayment || m == EqualPrincipal
}

// Strategy controls how a schedule is recomputed after a prepayment.
type Strategy string

const (
	// ReducePayment keeps the remaining term and lowers the payment.
	ReducePayment Strategy = "reduce-payment"
	// ReduceTerm keeps the payment and shortens the term.
	ReduceTerm Strategy = "reduce-term"
)

// Valid reports whether s is a known prepayment strategy.
func (s Strategy) Valid() bool {
	return s == ReducePayment || s == ReduceTerm
}

// Prepayment is a one-time lump sum applied to principal in a given month.
type Prepayment struct {
	Month    int      `json:"month" yaml:"month"`
	Amount   float64  `json:"amount" yaml:"amount"`
	Strategy Strategy `json:"strategy" yaml:"strategy"`
}

// Active reports whether the prepayment changes anything.
func (p *Prepayment) Active() bool {
	return p != nil && p.Amount > 0
}

// Validate checks the prepayment against a loan term.
func (p *Prepayment) Validate(termMonths int) error {
	if p == nil {
		return nil
	}
	if p.Amount < 0 {
		return fmt.Errorf("%w: prepayment amount %.2f is negative", ErrInvalidTerms, p.Amount)
	}
	if p.Amount == 0 {
		return nil
	}
	if p.Month < 1 || p.Month > termMonths {
		return fmt.Errorf("%w: prepayment month %d outside 1..%d", ErrInvalidTerms, p.Month, termMonths)
	}
	if !p.Strategy.Valid() {
		return fmt.Errorf("%w: unknown prepayment strategy %q", ErrInvalidTerms, p.Strategy)
	}
	return nil
}

// Terms describes one loan to amortize.
type Terms struct {
	Principal  float64
	AnnualRate float64 // percent
	TermMonths int
	Method     Method
	Prepayment *Prepayment
	StartDate  string // optional YYYY-MM of the first payment
}

// Validate rejects terms the engine cannot amortize.
func (t Terms) Validate() error {
	var errs []error
	if t.Principal <= 0 {
		errs = append(errs, fmt.Errorf("%w: principal must be positive, got %.2f", ErrInvalidTerms, t.Principal))
	}
	if t.TermMonths <= 0 || t.TermMonths > constants.MaxTermMonths {
		errs = append(errs, fmt.Errorf("%w: term must be within 1..%d months, got %d",
			ErrInvalidTerms, constants.MaxTermMonths, t.TermMonths))
	}
	if t.AnnualRate < 0 {
		errs = append(errs, fmt.Errorf("%w: annual rate must not be negative, got %.4f", ErrInvalidTerms, t.AnnualRate))
	}
	if !t.Method.Valid() {
		errs = append(errs, fmt.Errorf("%w: unknown repayment method %q", ErrInvalidTerms, t.Method))
	}
	if err := t.Prepayment.Validate(t.TermMonths); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Entry is one month of an amortization schedule.
type Entry struct {
	Month              int     `json:"month"`
	Date               string  `json:"date,omitempty"`
	Payment            float64 `json:"payment"`
	Principal          float64 `json:"principal"`
	Interest           float64 `json:"interest"`
	ExtraPrincipal     float64 `json:"extraPrincipal,omitempty"`
	RemainingPrincipal float64 `json:"remainingPrincipal"`
	Prepayment         bool    `json:"prepayment,omitempty"`
}

// ScheduleGenerator provides utilities for generating loan amortization schedules
type ScheduleGenerator struct {
	logger *zap.Logger
}

// NewScheduleGenerator creates a new generator instance
func NewScheduleGenerator(logger *zap.Logger) *ScheduleGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleGenerator{logger: logger}
}

// GenerateSchedule creates a complete month-by-month amortization schedule.
//
// A prepayment is added to the principal portion of its trigger month. When the
// lump sum reaches the outstanding balance the loan is paid off that month and the
// schedule ends there. Otherwise the remaining months are recomputed according to
// the prepayment strategy.
func (g *ScheduleGenerator) GenerateSchedule(terms Terms) (Schedule, error) {
	if err := terms.Validate(); err != nil {
		return nil, err
	}

	n := terms.TermMonths
	balance := terms.Principal
	payment := CalculateMonthlyPayment(balance, terms.AnnualRate, n)
	fixedPrincipal := balance / float64(n)
	prepayment := terms.Prepayment

	schedule := make(Schedule, 0, n)
	for month := 1; month <= n; month++ {
		interest := CalculateInterestPayment(balance, terms.AnnualRate)

		var principal float64
		if terms.Method == EqualPrincipal {
			principal = fixedPrincipal
		} else {
			principal = payment - interest
		}

		final := month == n || principal >= balance-payoffTolerance
		if final {
			principal = balance
		}

		entry := Entry{Month: month, Interest: interest}
		if prepayment.Active() && prepayment.Month == month {
			extra := CapExtraPrincipal(g.logger, prepayment.Amount, principal, balance)
			entry.Prepayment = true
			entry.ExtraPrincipal = extra
			principal += extra
			if principal >= balance-payoffTolerance {
				principal = balance
				if !final {
					g.logger.Debug(fmt.Sprintf("prepayment of %.2f pays off the loan in month %d", prepayment.Amount, month),
						zap.String("op", "loans.GenerateSchedule"),
					)
				}
				final = true
			}
		}

		entry.Principal = principal
		entry.Payment = principal + interest
		if final {
			balance = 0
		} else {
			balance -= principal
		}
		entry.RemainingPrincipal = balance
		schedule = append(schedule, entry)

		if final {
			break
		}

		if entry.Prepayment {
			remaining := n - month
			switch prepayment.Strategy {
			case ReducePayment:
				payment = CalculateMonthlyPayment(balance, terms.AnnualRate, remaining)
				fixedPrincipal = balance / float64(remaining)
				g.logger.Debug(fmt.Sprintf("month %d: payment reduced to %.2f over %d remaining months", month, payment, remaining),
					zap.String("op", "loans.GenerateSchedule"),
				)
			case ReduceTerm:
				projected := remaining
				if terms.Method == EqualPayment {
					projected = MonthsToAmortize(balance, terms.AnnualRate, payment)
				} else if fixedPrincipal > 0 {
					projected = MonthsToAmortize(balance, 0, fixedPrincipal)
				}
				g.logger.Debug(fmt.Sprintf("month %d: term reduced, %d months left instead of %d", month, projected, remaining),
					zap.String("op", "loans.GenerateSchedule"),
				)
			}
		}
	}

	if err := schedule.label(terms.StartDate); err != nil {
		return nil, err
	}
	return schedule, nil
}

func (s Schedule) label(start string) error {
	labels, err := datetime.MonthLabels(start, len(s))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTerms, err)
	}
	for i := range labels {
		s[i].Date = labels[i]
	}
	return nil
}
