// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/realty-forecast/pkg/constants"
	"github.com/iwvelando/realty-forecast/pkg/datetime"
)

// ValidateLoanMaturity warns when the loan is still outstanding at the sale
// at the end of the holding period. Dates are used when startDate is set.
func ValidateLoanMaturity(startDate string, termMonths, holdingYears int) (string, error) {
	holdingMonths := holdingYears * constants.MonthsPerYear
	if termMonths <= holdingMonths {
		return "", nil
	}
	if startDate == "" {
		return fmt.Sprintf("Loan runs %d months past the sale after %d years - the remaining balance is repaid from the sale",
			termMonths-holdingMonths, holdingYears), nil
	}

	maturityDate, err := datetime.OffsetDate(startDate, constants.DateTimeLayout, termMonths-1)
	if err != nil {
		return "", err
	}
	saleDate, err := datetime.OffsetDate(startDate, constants.DateTimeLayout, holdingMonths-1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Loan matures after the sale (%s > %s) - the remaining balance is repaid from the sale",
		maturityDate, saleDate), nil
}

// ValidatePrepaymentTiming warns when a prepayment falls after the sale.
func ValidatePrepaymentTiming(month, holdingYears int) string {
	if month > holdingYears*constants.MonthsPerYear {
		return fmt.Sprintf("Prepayment in month %d falls after the sale in month %d - it only affects the loan comparison",
			month, holdingYears*constants.MonthsPerYear)
	}
	return ""
}

// ConfigValidator collects non-fatal configuration warnings.
type ConfigValidator struct {
	StartDate       string
	TermMonths      int
	HoldingYears    int
	PrepaymentMonth int // zero without a prepayment
	LoanAmount      float64
	ProvidentQuota  float64
	Combination     bool
	DTI             float64 // fraction
	DTILimit        float64 // percent
}

// ValidateAll validates the entire configuration and returns warnings
func (cv *ConfigValidator) ValidateAll() []string {
	var warnings []string

	warning, err := ValidateLoanMaturity(cv.StartDate, cv.TermMonths, cv.HoldingYears)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("Start date %q could not be used: %v", cv.StartDate, err))
	} else if warning != "" {
		warnings = append(warnings, warning)
	}

	if cv.PrepaymentMonth > 0 {
		if warning := ValidatePrepaymentTiming(cv.PrepaymentMonth, cv.HoldingYears); warning != "" {
			warnings = append(warnings, warning)
		}
	}

	if cv.Combination && cv.ProvidentQuota > cv.LoanAmount {
		warnings = append(warnings, fmt.Sprintf("Provident quota %.2f exceeds the loan amount %.2f - it is capped at the loan amount",
			cv.ProvidentQuota, cv.LoanAmount))
	}

	if cv.DTILimit > 0 && cv.DTI*constants.PercentageMultiplier > cv.DTILimit {
		warnings = append(warnings, fmt.Sprintf("Debt-to-income ratio %.1f%% exceeds the %.1f%% limit",
			cv.DTI*constants.PercentageMultiplier, cv.DTILimit))
	}

	return warnings
}
