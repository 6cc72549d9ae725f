// Package finance projects the year-by-year economics of holding a financed
// property against renting and investing the same cash instead.
package finance

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/realty-forecast/pkg/constants"
	"github.com/iwvelando/realty-forecast/pkg/loans"
	"github.com/iwvelando/realty-forecast/pkg/mathutil"
	"go.uber.org/zap"
)

// ErrInvalidAssumptions is wrapped by every projection validation failure.
var ErrInvalidAssumptions = errors.New("invalid market assumptions")

// Assumptions are the externally supplied market figures. Rates are annual percentages.
type Assumptions struct {
	TotalPrice            float64
	MonthlyRent           float64
	VacancyRate           float64
	RentGrowthRate        float64
	AppreciationRate      float64
	HoldingCostRatio      float64 // percent of property value per year
	MaintenanceCost       float64 // fixed amount per year
	AlternativeReturnRate float64
	InflationRate         float64
}

// Validate rejects assumptions the projector cannot use.
func (a Assumptions) Validate() error {
	var errs []error
	if a.TotalPrice <= 0 {
		errs = append(errs, fmt.Errorf("%w: total price must be positive, got %.2f", ErrInvalidAssumptions, a.TotalPrice))
	}
	if a.MonthlyRent < 0 {
		errs = append(errs, fmt.Errorf("%w: monthly rent must not be negative", ErrInvalidAssumptions))
	}
	if a.VacancyRate < 0 || a.VacancyRate > constants.PercentageMultiplier {
		errs = append(errs, fmt.Errorf("%w: vacancy rate must be within 0..100, got %.2f", ErrInvalidAssumptions, a.VacancyRate))
	}
	if a.HoldingCostRatio < 0 || a.MaintenanceCost < 0 {
		errs = append(errs, fmt.Errorf("%w: holding and maintenance costs must not be negative", ErrInvalidAssumptions))
	}
	rates := []struct {
		name  string
		value float64
	}{
		{"rent growth", a.RentGrowthRate},
		{"appreciation", a.AppreciationRate},
		{"alternative return", a.AlternativeReturnRate},
		{"inflation", a.InflationRate},
	}
	for _, rate := range rates {
		if rate.value <= -constants.PercentageMultiplier {
			errs = append(errs, fmt.Errorf("%w: %s rate must be above -100, got %.2f", ErrInvalidAssumptions, rate.name, rate.value))
		}
	}
	return errors.Join(errs...)
}

// EffectiveAnnualRent is the rent collected in year (1-based) after vacancy.
func (a Assumptions) EffectiveAnnualRent(year int) float64 {
	return a.MonthlyRent * constants.MonthsPerYear *
		(1 - mathutil.Fraction(a.VacancyRate)) * mathutil.Growth(a.RentGrowthRate, year-1)
}

// PropertyValue is the value after the given number of years.
func (a Assumptions) PropertyValue(years int) float64 {
	return a.TotalPrice * mathutil.Growth(a.AppreciationRate, years)
}

// InitialCosts is the cash paid at purchase.
type InitialCosts struct {
	DownPayment float64 `json:"downPayment"`
	DeedTax     float64 `json:"deedTax"`
	AgencyFee   float64 `json:"agencyFee"`
	Renovation  float64 `json:"renovation"`
}

// Total is the initial cash invested.
func (c InitialCosts) Total() float64 {
	return c.DownPayment + c.DeedTax + c.AgencyFee + c.Renovation
}

// YearlySnapshot is the position at the end of a holding year.
type YearlySnapshot struct {
	Year                 int     `json:"year"`
	AnnualNetRent        float64 `json:"annualNetRent"`
	CumulativeRent       float64 `json:"cumulativeRent"`
	PropertyValue        float64 `json:"propertyValue"`
	RealPropertyValue    float64 `json:"realPropertyValue"`
	RemainingLoan        float64 `json:"remainingLoan"`
	RealRemainingLoan    float64 `json:"realRemainingLoan"`
	Equity               float64 `json:"equity"`
	RealEquity           float64 `json:"realEquity"`
	AlternativeValue     float64 `json:"alternativeValue"`
	RealAlternativeValue float64 `json:"realAlternativeValue"`
	InterestPaid         float64 `json:"interestPaid"`
	PrincipalPaid        float64 `json:"principalPaid"`
	MortgagePaid         float64 `json:"mortgagePaid"`
	PrepaymentPaid       float64 `json:"prepaymentPaid"`
	CumulativeInterest   float64 `json:"cumulativeInterest"`
	CumulativePrincipal  float64 `json:"cumulativePrincipal"`
	CumulativeCashFlow   float64 `json:"cumulativeCashFlow"`
	CumulativeReturn     float64 `json:"cumulativeReturn"`
}

// MonthlyCashFlow is one month of the first holding year.
type MonthlyCashFlow struct {
	Month       int     `json:"month"`
	Date        string  `json:"date,omitempty"`
	Rent        float64 `json:"rent"`
	Mortgage    float64 `json:"mortgage"`
	HoldingCost float64 `json:"holdingCost"`
	Maintenance float64 `json:"maintenance"`
	NetCashFlow float64 `json:"netCashFlow"`
}

// Projection is the output of Project.
type Projection struct {
	Years     []YearlySnapshot  `json:"years"`
	FirstYear []MonthlyCashFlow `json:"firstYear"`
}

// Final returns the last snapshot, or false for an empty projection.
func (p Projection) Final() (YearlySnapshot, bool) {
	if len(p.Years) == 0 {
		return YearlySnapshot{}, false
	}
	return p.Years[len(p.Years)-1], true
}

// Deflate converts a nominal amount at the end of year into today's money.
func Deflate(nominal, inflationRate float64, year int) float64 {
	return nominal / mathutil.Growth(inflationRate, year)
}

// Projector builds yearly projections from a schedule and market assumptions.
type Projector struct {
	logger      *zap.Logger
	investments *InvestmentProcessor
}

// NewProjector creates a projector.
func NewProjector(logger *zap.Logger) *Projector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projector{logger: logger, investments: NewInvestmentProcessor(logger)}
}

// Project returns one snapshot per holding year.
//
// Rent and holding cost for year y are based on the rent and property value at
// the start of that year. The alternative track starts with the initial costs and
// receives every month's mortgage payment above the rent collected, compounding
// monthly. Holding and maintenance costs stay on the property side through net
// rent and are not mirrored into the alternative. Holding years past the
// end of the schedule carry no mortgage and a zero balance.
func (p *Projector) Project(schedule loans.Schedule, a Assumptions, holdingYears int, costs InitialCosts) (Projection, error) {
	if err := a.Validate(); err != nil {
		return Projection{}, err
	}
	if holdingYears < 1 || holdingYears > constants.MaxHoldingYears {
		return Projection{}, fmt.Errorf("%w: holding years must be within 1..%d, got %d",
			ErrInvalidAssumptions, constants.MaxHoldingYears, holdingYears)
	}

	initial := costs.Total()
	alternative := p.investments.NewInvestmentState(initial)
	projection := Projection{Years: make([]YearlySnapshot, 0, holdingYears)}

	var cumulativeRent, cumulativeInterest, cumulativePrincipal, cumulativeMortgage float64
	for year := 1; year <= holdingYears; year++ {
		rent := a.EffectiveAnnualRent(year)
		holdingCost := a.PropertyValue(year-1) * mathutil.Fraction(a.HoldingCostRatio)
		netRent := rent - holdingCost - a.MaintenanceCost

		monthlyRent := rent / constants.MonthsPerYear
		monthlyHolding := holdingCost / constants.MonthsPerYear
		monthlyMaintenance := a.MaintenanceCost / constants.MonthsPerYear

		snapshot := YearlySnapshot{Year: year, AnnualNetRent: netRent}
		for m := (year-1)*constants.MonthsPerYear + 1; m <= year*constants.MonthsPerYear; m++ {
			var payment float64
			if m <= len(schedule) {
				entry := schedule[m-1]
				payment = entry.Payment
				snapshot.InterestPaid += entry.Interest
				snapshot.PrincipalPaid += entry.Principal
				snapshot.PrepaymentPaid += entry.ExtraPrincipal
				if year == 1 {
					projection.FirstYear = append(projection.FirstYear, MonthlyCashFlow{Month: m, Date: entry.Date})
				}
			} else if year == 1 {
				projection.FirstYear = append(projection.FirstYear, MonthlyCashFlow{Month: m})
			}
			snapshot.MortgagePaid += payment

			if year == 1 {
				flow := &projection.FirstYear[m-1]
				flow.Rent = monthlyRent
				flow.Mortgage = payment
				flow.HoldingCost = monthlyHolding
				flow.Maintenance = monthlyMaintenance
				flow.NetCashFlow = monthlyRent - payment - monthlyHolding - monthlyMaintenance
			}

			shortfall := math.Max(0, payment-monthlyRent)
			p.investments.ProcessMonth(alternative, shortfall, a.AlternativeReturnRate)
		}

		cumulativeRent += netRent
		cumulativeInterest += snapshot.InterestPaid
		cumulativePrincipal += snapshot.PrincipalPaid
		cumulativeMortgage += snapshot.MortgagePaid

		snapshot.CumulativeRent = cumulativeRent
		snapshot.CumulativeInterest = cumulativeInterest
		snapshot.CumulativePrincipal = cumulativePrincipal
		snapshot.PropertyValue = a.PropertyValue(year)
		snapshot.RemainingLoan = schedule.RemainingAt(year * constants.MonthsPerYear)
		snapshot.Equity = snapshot.PropertyValue - snapshot.RemainingLoan
		snapshot.AlternativeValue = alternative.CurrentValue
		snapshot.CumulativeCashFlow = cumulativeRent - cumulativeMortgage
		snapshot.CumulativeReturn = snapshot.CumulativeCashFlow + snapshot.Equity - initial

		snapshot.RealPropertyValue = Deflate(snapshot.PropertyValue, a.InflationRate, year)
		snapshot.RealRemainingLoan = Deflate(snapshot.RemainingLoan, a.InflationRate, year)
		snapshot.RealEquity = Deflate(snapshot.Equity, a.InflationRate, year)
		snapshot.RealAlternativeValue = Deflate(snapshot.AlternativeValue, a.InflationRate, year)

		projection.Years = append(projection.Years, snapshot)
	}

	final, _ := projection.Final()
	p.logger.Debug(fmt.Sprintf("projected %d years: equity %.2f, alternative %.2f", holdingYears, final.Equity, final.AlternativeValue),
		zap.String("op", "finance.Project"),
	)
	return projection, nil
}
