// Package forecasttest provides parameter fixtures for tests.
package forecasttest

import (
	"github.com/iwvelando/realty-forecast/internal/forecast"
	"github.com/iwvelando/realty-forecast/pkg/loans"
)

// Baseline returns a financed 3,000,000 purchase held for ten years. Its
// comprehensive return is positive.
func Baseline() forecast.Parameters {
	return forecast.Parameters{
		Property: forecast.Property{
			TotalPrice:       3000000,
			DownPaymentRatio: 30,
			DeedTaxRate:      1,
			AgencyFeeRate:    1,
			Renovation:       200000,
			MonthlyRent:      6000,
		},
		Loan: forecast.Loan{
			Type:           loans.Commercial,
			CommercialRate: 4.1,
			ProvidentRate:  3.1,
			TermMonths:     360,
			Method:         loans.EqualPayment,
		},
		Market: forecast.Market{
			VacancyRate:           5,
			RentGrowthRate:        3,
			AppreciationRate:      4,
			HoldingCostRatio:      0.3,
			MaintenanceCost:       5000,
			AlternativeReturnRate: 4,
			InflationRate:         2.5,
		},
		Household: forecast.Household{
			MonthlyIncome:       30000,
			ExistingMonthlyDebt: 2000,
		},
		HoldingYears: 10,
		Policy:       forecast.DefaultPolicy(),
	}
}

// WithPrepayment returns Baseline with a lump sum prepaid in month.
func WithPrepayment(month int, amount float64, strategy loans.Strategy) forecast.Parameters {
	p := Baseline()
	p.Loan.Prepayment = &loans.Prepayment{Month: month, Amount: amount, Strategy: strategy}
	return p
}
