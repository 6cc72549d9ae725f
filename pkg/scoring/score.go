// Package scoring reduces a loan schedule and its yearly projection into
// return and risk metrics.
package scoring

import (
	"math"

	"github.com/iwvelando/realty-forecast/pkg/constants"
	"github.com/iwvelando/realty-forecast/pkg/finance"
	"github.com/iwvelando/realty-forecast/pkg/loans"
	"github.com/iwvelando/realty-forecast/pkg/mathutil"
)

// AnnualizedReturnSentinel is reported when the final net worth is not positive.
const AnnualizedReturnSentinel = -100.0

// Inputs are the current-state figures the scorer needs besides the schedule
// and the projection.
type Inputs struct {
	Costs               finance.InitialCosts
	TotalPrice          float64
	LoanAmount          float64
	MonthlyRent         float64
	MonthlyIncome       float64
	ExistingMonthlyDebt float64
	// CurrentAnnualNetRent stands in for year 1 when no snapshots exist.
	CurrentAnnualNetRent float64
	// MultiProperty marks an investment purchase or a buyer owning other properties.
	MultiProperty bool
}

// Metrics are the scalar outputs of Score. Returns are percentages, ratios are fractions.
type Metrics struct {
	CashOnCashReturn     float64 `json:"cashOnCashReturn"`
	CashOnCashDefined    bool    `json:"cashOnCashDefined"`
	ComprehensiveReturn  float64 `json:"comprehensiveReturn"`
	ComprehensiveDefined bool    `json:"comprehensiveDefined"`
	AnnualizedReturn     float64 `json:"annualizedReturn"`
	AnnualizedDefined    bool    `json:"annualizedDefined"`

	DTI         float64 `json:"dti"`
	DTIDefined  bool    `json:"dtiDefined"`
	DSCR        float64 `json:"dscr"`
	DSCRDefined bool    `json:"dscrDefined"`
	LTV         float64 `json:"ltv"`

	RiskScore    float64 `json:"riskScore"`
	RiskLevel    Level   `json:"riskLevel"`
	LeverageRisk float64 `json:"leverageRisk"`
	DebtRisk     float64 `json:"debtRisk"`
	CoverageRisk float64 `json:"coverageRisk"`

	BreakEvenYear *int `json:"breakEvenYear"`

	MonthlyPayment    float64 `json:"monthlyPayment"`
	TotalMonthlyDebt  float64 `json:"totalMonthlyDebt"`
	InitialInvestment float64 `json:"initialInvestment"`
	FinalNetWorth     float64 `json:"finalNetWorth"`
	TotalRevenue      float64 `json:"totalRevenue"`
}

// Score computes return and risk metrics. Undefined ratios are reported
// through the *Defined flags with a zero value, never NaN or Inf.
func Score(schedule loans.Schedule, years []finance.YearlySnapshot, in Inputs, policy RiskPolicy) Metrics {
	m := Metrics{
		MonthlyPayment:    schedule.FirstPayment(),
		InitialInvestment: in.Costs.Total(),
	}
	m.TotalMonthlyDebt = m.MonthlyPayment + in.ExistingMonthlyDebt

	scoreReturns(&m, years, in)
	scoreRatios(&m, in)
	scoreRisk(&m, in, policy)
	m.BreakEvenYear = BreakEvenYear(years)
	return m
}

func scoreReturns(m *Metrics, years []finance.YearlySnapshot, in Inputs) {
	initial := m.InitialInvestment

	netRent := in.CurrentAnnualNetRent
	mortgage := m.MonthlyPayment * constants.MonthsPerYear
	if len(years) > 0 {
		netRent = years[0].AnnualNetRent
		mortgage = years[0].MortgagePaid - years[0].PrepaymentPaid
	}
	if initial > 0 {
		m.CashOnCashReturn = (netRent - mortgage) / initial * constants.PercentageMultiplier
		m.CashOnCashDefined = true
	}

	if len(years) == 0 {
		m.FinalNetWorth = initial
		m.AnnualizedReturn = AnnualizedReturnSentinel
		return
	}
	final := years[len(years)-1]
	m.FinalNetWorth = final.CumulativeCashFlow + final.Equity
	m.TotalRevenue = m.FinalNetWorth - initial

	if initial <= 0 {
		m.AnnualizedReturn = AnnualizedReturnSentinel
		return
	}
	m.ComprehensiveReturn = m.TotalRevenue / initial * constants.PercentageMultiplier
	m.ComprehensiveDefined = true

	if m.FinalNetWorth <= 0 {
		m.AnnualizedReturn = AnnualizedReturnSentinel
		return
	}
	m.AnnualizedReturn = (math.Pow(m.FinalNetWorth/initial, 1/float64(final.Year)) - 1) * constants.PercentageMultiplier
	m.AnnualizedDefined = true
}

func scoreRatios(m *Metrics, in Inputs) {
	if in.MonthlyIncome > 0 {
		m.DTI = m.TotalMonthlyDebt / in.MonthlyIncome
		m.DTIDefined = true
	}
	if m.MonthlyPayment > 0 {
		m.DSCR = in.MonthlyRent / m.MonthlyPayment
		m.DSCRDefined = true
	}
	if in.TotalPrice > 0 {
		m.LTV = in.LoanAmount / in.TotalPrice
	}
}

func scoreRisk(m *Metrics, in Inputs, policy RiskPolicy) {
	m.LeverageRisk = mathutil.Clamp(m.LTV, 0, 1) * constants.PercentageMultiplier

	switch {
	case m.DTIDefined:
		m.DebtRisk = mathutil.Clamp(m.DTI/policy.DTICeiling, 0, 1) * constants.PercentageMultiplier
	case m.TotalMonthlyDebt > 0:
		// Debt with no income to service it.
		m.DebtRisk = constants.PercentageMultiplier
	}

	if m.DSCRDefined {
		m.CoverageRisk = mathutil.Clamp(1-m.DSCR, 0, 1) * constants.PercentageMultiplier
	}

	weights := policy.LeverageWeight + policy.DebtWeight + policy.CoverageWeight
	if weights > 0 {
		m.RiskScore = (policy.LeverageWeight*m.LeverageRisk +
			policy.DebtWeight*m.DebtRisk +
			policy.CoverageWeight*m.CoverageRisk) / weights
	}
	if in.MultiProperty {
		m.RiskScore += policy.MultiPropertyPenalty
	}
	m.RiskScore = mathutil.Clamp(m.RiskScore, 0, constants.PercentageMultiplier)
	m.RiskLevel = policy.Level(m.RiskScore)
}

// BreakEvenYear returns the first year whose cumulative return is non-negative.
func BreakEvenYear(years []finance.YearlySnapshot) *int {
	for _, s := range years {
		if s.CumulativeReturn >= 0 {
			year := s.Year
			return &year
		}
	}
	return nil
}

// Comparison sets the buy track against renting and investing the same cash.
type Comparison struct {
	BuyNetWorth      float64 `json:"buyNetWorth"`
	RentNetWorth     float64 `json:"rentNetWorth"`
	RealBuyNetWorth  float64 `json:"realBuyNetWorth"`
	RealRentNetWorth float64 `json:"realRentNetWorth"`
	Advantage        float64 `json:"advantage"`
	BuyIsBetter      bool    `json:"buyIsBetter"`
}

// CompareBuyVsRent compares the final equity with the alternative investment.
func CompareBuyVsRent(final finance.YearlySnapshot) Comparison {
	c := Comparison{
		BuyNetWorth:      final.Equity,
		RentNetWorth:     final.AlternativeValue,
		RealBuyNetWorth:  final.RealEquity,
		RealRentNetWorth: final.RealAlternativeValue,
	}
	c.Advantage = c.BuyNetWorth - c.RentNetWorth
	c.BuyIsBetter = c.Advantage > 0
	return c
}
