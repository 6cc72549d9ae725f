// Package loans builds mortgage amortization schedules: single loans,
// commercial/provident combinations and prepayment strategy comparisons.
package loans

import (
	"math"

	"github.com/iwvelando/realty-forecast/pkg/mathutil"
	"go.uber.org/zap"
)

// payoffTolerance is the residual balance below which a loan counts as repaid.
const payoffTolerance = 0.005

// CalculateMonthlyPayment calculates the level monthly payment for a loan using the standard annuity formula.
func CalculateMonthlyPayment(principal, annualInterestRate float64, termMonths int) float64 {
	if termMonths <= 0 || principal <= 0 {
		return 0
	}
	if annualInterestRate == 0 {
		// For zero interest, simply divide the principal by term
		return principal / float64(termMonths)
	}

	periodicInterestRate := mathutil.MonthlyRate(annualInterestRate)
	power := math.Pow(1.00+periodicInterestRate, float64(termMonths))
	return principal * periodicInterestRate * power / (power - 1.00)
}

// CalculateInterestPayment calculates the interest portion of a payment.
func CalculateInterestPayment(remainingPrincipal, annualInterestRate float64) float64 {
	return remainingPrincipal * mathutil.MonthlyRate(annualInterestRate)
}

// MonthsToAmortize returns how many level payments of the given size are needed
// to repay balance. It returns -1 when the payment never covers the interest.
func MonthsToAmortize(balance, annualInterestRate, payment float64) int {
	if balance <= payoffTolerance {
		return 0
	}
	if payment <= 0 {
		return -1
	}
	r := mathutil.MonthlyRate(annualInterestRate)
	if r == 0 {
		return int(math.Ceil(balance/payment - 1e-9))
	}
	if payment <= balance*r {
		return -1
	}
	n := -math.Log(1-r*balance/payment) / math.Log(1+r)
	return int(math.Ceil(n - 1e-9))
}

// CapExtraPrincipal limits an extra principal payment so that, together with the
// regular principal portion, it never exceeds the outstanding balance.
func CapExtraPrincipal(logger *zap.Logger, requested, regularPrincipal, balance float64) float64 {
	if logger == nil {
		logger = zap.NewNop()
	}
	room := balance - regularPrincipal
	if room < 0 {
		room = 0
	}
	if requested > room {
		logger.Debug("capping extra principal payment to prevent overpayment",
			zap.String("op", "loans.CapExtraPrincipal"),
			zap.Float64("requested", requested),
			zap.Float64("capped_to_balance", room))
		return room
	}
	return requested
}
