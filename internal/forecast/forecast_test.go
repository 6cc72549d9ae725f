package forecast_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/iwvelando/realty-forecast/internal/forecast"
	"github.com/iwvelando/realty-forecast/internal/forecast/forecasttest"
	"github.com/iwvelando/realty-forecast/pkg/finance"
	"github.com/iwvelando/realty-forecast/pkg/loans"
	"github.com/iwvelando/realty-forecast/pkg/scoring"
	"go.uber.org/zap"
)

func TestEvaluate(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	result, err := forecast.Evaluate(logger, forecasttest.Baseline())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if len(result.Loan.Schedule) != 360 {
		t.Errorf("schedule has %d entries, expected 360", len(result.Loan.Schedule))
	}
	if len(result.Yearly) != 30 {
		t.Errorf("yearly schedule has %d years, expected 30", len(result.Yearly))
	}
	if len(result.Projection.Years) != 10 {
		t.Fatalf("projection has %d years, expected 10", len(result.Projection.Years))
	}
	if result.Costs.Total() != 1160000 {
		t.Errorf("initial investment = %.2f, expected 1160000", result.Costs.Total())
	}
	if math.Abs(result.Projection.Years[9].PropertyValue-4440732.85) > 1 {
		t.Errorf("year 10 property value = %.2f, expected about 4440732.85", result.Projection.Years[9].PropertyValue)
	}

	m := result.Metrics
	if math.Abs(m.ComprehensiveReturn-88.72) > 0.05 {
		t.Errorf("ComprehensiveReturn = %.4f, expected about 88.72", m.ComprehensiveReturn)
	}
	if math.Abs(m.AnnualizedReturn-6.557) > 0.01 || !m.AnnualizedDefined {
		t.Errorf("AnnualizedReturn = %.4f, expected about 6.557", m.AnnualizedReturn)
	}
	if math.Abs(m.DTI-0.405) > 0.001 {
		t.Errorf("DTI = %.4f, expected about 0.405", m.DTI)
	}
	if m.RiskLevel != scoring.Medium {
		t.Errorf("RiskLevel = %s, expected medium", m.RiskLevel)
	}
	if m.BreakEvenYear == nil || *m.BreakEvenYear != 3 {
		t.Errorf("BreakEvenYear = %v, expected 3", m.BreakEvenYear)
	}
	if result.Comparison.BuyNetWorth != result.Projection.Years[9].Equity {
		t.Errorf("Comparison.BuyNetWorth = %.2f, expected final equity", result.Comparison.BuyNetWorth)
	}
	if result.Prepayment != nil {
		t.Error("Prepayment comparison present without a prepayment")
	}
	if result.Taxes != nil {
		t.Error("Taxes present without a tax profile")
	}
}

func TestEvaluateWithPrepayment(t *testing.T) {
	params := forecasttest.WithPrepayment(36, 500000, loans.ReduceTerm)
	result, err := forecast.Evaluate(nil, params)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	baseline, err := forecast.Evaluate(nil, forecasttest.Baseline())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if result.Prepayment == nil {
		t.Fatal("Prepayment comparison missing")
	}
	if result.Loan.Schedule.TotalInterest() >= baseline.Loan.Schedule.TotalInterest() {
		t.Errorf("total interest %.2f not below baseline %.2f",
			result.Loan.Schedule.TotalInterest(), baseline.Loan.Schedule.TotalInterest())
	}
	if result.Loan.Schedule.PayoffMonth() >= 360 {
		t.Errorf("payoff month = %d, expected before 360", result.Loan.Schedule.PayoffMonth())
	}
	if result.Projection.Years[2].PrepaymentPaid != 500000 {
		t.Errorf("year 3 prepayment = %.2f, expected 500000", result.Projection.Years[2].PrepaymentPaid)
	}
}

func TestEvaluateCashPurchase(t *testing.T) {
	params := forecasttest.Baseline()
	params.Property.DownPaymentRatio = 100
	result, err := forecast.Evaluate(nil, params)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if len(result.Loan.Schedule) != 0 {
		t.Errorf("cash purchase schedule has %d entries", len(result.Loan.Schedule))
	}
	if result.Metrics.DSCRDefined || result.Metrics.LTV != 0 {
		t.Errorf("metrics = %+v, expected undefined DSCR and zero LTV", result.Metrics)
	}
	if result.Projection.Years[0].MortgagePaid != 0 {
		t.Errorf("mortgage paid = %.2f for a cash purchase", result.Projection.Years[0].MortgagePaid)
	}
}

func TestEvaluateTaxes(t *testing.T) {
	params := forecasttest.Baseline()
	params.TaxProfile = &finance.TaxProfile{Area: 85, Buyer: finance.FirstHome, SecondHand: true, YearsHeld: 3}
	result, err := forecast.Evaluate(nil, params)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if result.Taxes == nil {
		t.Fatal("Taxes missing with a tax profile")
	}
	// 1% deed tax and 1% income tax on 3,000,000.
	if math.Abs(result.Taxes.Total-60000) > 0.01 {
		t.Errorf("Taxes.Total = %.2f, expected 60000", result.Taxes.Total)
	}
	if params.TaxProfile.Price != 0 {
		t.Errorf("Evaluate() modified the tax profile price to %.2f", params.TaxProfile.Price)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *forecast.Parameters)
	}{
		{"Negative price", func(p *forecast.Parameters) { p.Property.TotalPrice = -1 }},
		{"Down payment above 100", func(p *forecast.Parameters) { p.Property.DownPaymentRatio = 120 }},
		{"Zero term", func(p *forecast.Parameters) { p.Loan.TermMonths = 0 }},
		{"Unknown method", func(p *forecast.Parameters) { p.Loan.Method = "balloon" }},
		{"Prepayment after term", func(p *forecast.Parameters) {
			p.Loan.Prepayment = &loans.Prepayment{Month: 400, Amount: 1000, Strategy: loans.ReduceTerm}
		}},
		{"Zero holding years", func(p *forecast.Parameters) { p.HoldingYears = 0 }},
		{"Zero income", func(p *forecast.Parameters) { p.Household.MonthlyIncome = 0 }},
		{"Negative debt", func(p *forecast.Parameters) { p.Household.ExistingMonthlyDebt = -1 }},
		{"Negative renovation", func(p *forecast.Parameters) { p.Property.Renovation = -5 }},
		{"Vacancy above 100", func(p *forecast.Parameters) { p.Market.VacancyRate = 101 }},
		{"Zero concurrency", func(p *forecast.Parameters) { p.Policy.ScenarioConcurrency = 0 }},
		{"Bad risk policy", func(p *forecast.Parameters) { p.Policy.Risk.DTICeiling = 0 }},
		{"Unknown buyer", func(p *forecast.Parameters) { p.TaxProfile = &finance.TaxProfile{Buyer: "investor"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := forecasttest.Baseline()
			tt.mutate(&params)
			err := params.Validate()
			if !errors.Is(err, forecast.ErrInvalidParameters) {
				t.Errorf("Validate() error = %v, expected ErrInvalidParameters", err)
			}
			if _, evalErr := forecast.Evaluate(nil, params); evalErr == nil {
				t.Error("Evaluate() accepted invalid parameters")
			}
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	params := forecasttest.Baseline()
	params.Loan.TermMonths = 0
	params.Household.MonthlyIncome = 0

	err := params.Validate()
	if !errors.Is(err, loans.ErrInvalidTerms) {
		t.Errorf("Validate() error = %v, expected it to wrap ErrInvalidTerms", err)
	}
	if !strings.Contains(err.Error(), "monthly income") {
		t.Errorf("Validate() error = %v, expected the income problem as well", err)
	}
}

func TestClone(t *testing.T) {
	original := forecasttest.WithPrepayment(36, 500000, loans.ReduceTerm)
	original.TaxProfile = &finance.TaxProfile{Area: 90, Buyer: finance.SecondHome}

	clone := original.Clone()
	clone.Loan.Prepayment.Amount = 1
	clone.TaxProfile.Area = 200
	clone.Property.TotalPrice = 1

	if original.Loan.Prepayment.Amount != 500000 {
		t.Errorf("original prepayment amount = %.2f after modifying the clone", original.Loan.Prepayment.Amount)
	}
	if original.TaxProfile.Area != 90 {
		t.Errorf("original tax profile area = %.2f after modifying the clone", original.TaxProfile.Area)
	}
	if original.Property.TotalPrice != 3000000 {
		t.Errorf("original price = %.2f after modifying the clone", original.Property.TotalPrice)
	}
}

func TestMultiProperty(t *testing.T) {
	params := forecasttest.Baseline()
	single, err := forecast.Evaluate(nil, params)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	params.Household.OtherProperties = 1
	multi, err := forecast.Evaluate(nil, params)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	penalty := params.Policy.Risk.MultiPropertyPenalty
	if math.Abs(multi.Metrics.RiskScore-(single.Metrics.RiskScore+penalty)) > 1e-9 {
		t.Errorf("RiskScore = %.2f, expected %.2f", multi.Metrics.RiskScore, single.Metrics.RiskScore+penalty)
	}
}
