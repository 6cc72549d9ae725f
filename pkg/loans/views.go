package loans

import (
	"github.com/iwvelando/realty-forecast/pkg/constants"
	"github.com/shopspring/decimal"
)

// Schedule is an ordered month-by-month amortization schedule. Month i is at index i-1.
type Schedule []Entry

// YearSummary aggregates twelve schedule months.
type YearSummary struct {
	Year               int     `json:"year"`
	Payment            float64 `json:"payment"`
	Principal          float64 `json:"principal"`
	Interest           float64 `json:"interest"`
	ExtraPrincipal     float64 `json:"extraPrincipal,omitempty"`
	RemainingPrincipal float64 `json:"remainingPrincipal"`
}

// OriginalPrincipal is the balance before the first payment.
func (s Schedule) OriginalPrincipal() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[0].Principal + s[0].RemainingPrincipal
}

// TotalInterest sums the interest column.
func (s Schedule) TotalInterest() float64 {
	total := 0.0
	for _, e := range s {
		total += e.Interest
	}
	return total
}

// TotalPrincipal sums the principal column, prepayments included.
func (s Schedule) TotalPrincipal() float64 {
	total := 0.0
	for _, e := range s {
		total += e.Principal
	}
	return total
}

// TotalPayment sums every payment, prepayments included.
func (s Schedule) TotalPayment() float64 {
	total := 0.0
	for _, e := range s {
		total += e.Payment
	}
	return total
}

// TotalExtraPrincipal sums the prepayment lump sums.
func (s Schedule) TotalExtraPrincipal() float64 {
	total := 0.0
	for _, e := range s {
		total += e.ExtraPrincipal
	}
	return total
}

// PayoffMonth is the month of the final payment, 0 for an empty schedule.
func (s Schedule) PayoffMonth() int {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Month
}

// FirstPayment is the payment of month 1.
func (s Schedule) FirstPayment() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[0].Payment
}

// PaymentAt returns the payment of the given month, 0 outside the schedule.
func (s Schedule) PaymentAt(month int) float64 {
	if month < 1 || month > len(s) {
		return 0
	}
	return s[month-1].Payment
}

// RemainingAt returns the balance after the payment of the given month.
// Month 0 is the original principal and months past the schedule are 0.
func (s Schedule) RemainingAt(month int) float64 {
	if month <= 0 {
		return s.OriginalPrincipal()
	}
	if month > len(s) {
		return 0
	}
	return s[month-1].RemainingPrincipal
}

// Yearly aggregates the schedule by loan year.
func (s Schedule) Yearly() []YearSummary {
	if len(s) == 0 {
		return nil
	}
	years := (len(s) + constants.MonthsPerYear - 1) / constants.MonthsPerYear
	out := make([]YearSummary, years)
	for i, e := range s {
		y := i / constants.MonthsPerYear
		out[y].Year = y + 1
		out[y].Payment += e.Payment
		out[y].Principal += e.Principal
		out[y].Interest += e.Interest
		out[y].ExtraPrincipal += e.ExtraPrincipal
		out[y].RemainingPrincipal = e.RemainingPrincipal
	}
	return out
}

// MergeSchedules sums schedules month by month. A schedule that has ended
// contributes nothing to later months.
func MergeSchedules(schedules ...Schedule) Schedule {
	length := 0
	for _, s := range schedules {
		if len(s) > length {
			length = len(s)
		}
	}
	if length == 0 {
		return Schedule{}
	}

	merged := make(Schedule, length)
	for i := range merged {
		merged[i].Month = i + 1
	}
	for _, s := range schedules {
		for i, e := range s {
			m := &merged[i]
			if m.Date == "" {
				m.Date = e.Date
			}
			m.Payment += e.Payment
			m.Principal += e.Principal
			m.Interest += e.Interest
			m.ExtraPrincipal += e.ExtraPrincipal
			m.RemainingPrincipal += e.RemainingPrincipal
			m.Prepayment = m.Prepayment || e.Prepayment
		}
	}
	return merged
}

// Rounded returns a copy of the schedule with every amount rounded to cents.
// Balances are rounded first and principal is derived from consecutive balances,
// so the principal column still sums exactly to the original principal.
func (s Schedule) Rounded() Schedule {
	if len(s) == 0 {
		return Schedule{}
	}
	out := make(Schedule, len(s))
	previous := toCents(s.OriginalPrincipal())
	for i, e := range s {
		remaining := toCents(e.RemainingPrincipal)
		if i == len(s)-1 {
			remaining = decimal.Zero
		}
		principal := previous.Sub(remaining)
		interest := toCents(e.Interest)

		out[i] = e
		out[i].RemainingPrincipal = remaining.InexactFloat64()
		out[i].Principal = principal.InexactFloat64()
		out[i].Interest = interest.InexactFloat64()
		out[i].Payment = principal.Add(interest).InexactFloat64()
		out[i].ExtraPrincipal = toCents(e.ExtraPrincipal).InexactFloat64()
		previous = remaining
	}
	return out
}

func toCents(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(constants.CurrencyPlaces)
}
