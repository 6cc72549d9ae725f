package finance

import (
	"fmt"

	"github.com/iwvelando/realty-forecast/pkg/mathutil"
)

// BuyerStatus is the buyer's home-ownership position for deed tax purposes.
type BuyerStatus string

const (
	FirstHome      BuyerStatus = "first-home"
	SecondHome     BuyerStatus = "second-home"
	AdditionalHome BuyerStatus = "additional"
)

// Tax rates in percent.
const (
	deedTaxStandardArea  = 90.0
	vatRateShortHold     = 5.3
	vatExemptYears       = 2.0
	incomeTaxRate        = 1.0
	incomeTaxExemptYears = 5.0
)

// TaxProfile describes a purchase for transaction tax estimation.
type TaxProfile struct {
	Price          float64     `json:"price" yaml:"price"`
	Area           float64     `json:"area" yaml:"area"` // square meters
	Buyer          BuyerStatus `json:"buyer" yaml:"buyer"`
	TierOneCity    bool        `json:"tierOneCity" yaml:"tierOneCity"`
	SecondHand     bool        `json:"secondHand" yaml:"secondHand"`
	YearsHeld      float64     `json:"yearsHeld" yaml:"yearsHeld"` // seller's holding period
	SellerOnlyHome bool        `json:"sellerOnlyHome" yaml:"sellerOnlyHome"`
}

// TaxEstimate is an estimate of the one-off taxes of a purchase.
type TaxEstimate struct {
	DeedTaxRate   float64 `json:"deedTaxRate"`
	DeedTax       float64 `json:"deedTax"`
	VATRate       float64 `json:"vatRate"`
	VAT           float64 `json:"vat"`
	IncomeTaxRate float64 `json:"incomeTaxRate"`
	IncomeTax     float64 `json:"incomeTax"`
	Total         float64 `json:"total"`
}

// DeedTaxRate returns the deed tax rate in percent.
func DeedTaxRate(buyer BuyerStatus, area float64, tierOneCity bool) float64 {
	switch buyer {
	case FirstHome:
		if area <= deedTaxStandardArea {
			return 1
		}
		return 1.5
	case SecondHome:
		if tierOneCity {
			return 3
		}
		if area <= deedTaxStandardArea {
			return 1
		}
		return 2
	default:
		return 3
	}
}

// EstimateTaxes estimates deed tax, VAT and seller income tax. VAT applies to
// second-hand homes held less than two years and income tax to second-hand homes
// unless held more than five years as the seller's only home.
func EstimateTaxes(profile TaxProfile) (TaxEstimate, error) {
	if profile.Price <= 0 {
		return TaxEstimate{}, fmt.Errorf("%w: price must be positive, got %.2f", ErrInvalidAssumptions, profile.Price)
	}
	if profile.Area < 0 || profile.YearsHeld < 0 {
		return TaxEstimate{}, fmt.Errorf("%w: area and years held must not be negative", ErrInvalidAssumptions)
	}
	switch profile.Buyer {
	case FirstHome, SecondHome, AdditionalHome:
	default:
		return TaxEstimate{}, fmt.Errorf("%w: unknown buyer status %q", ErrInvalidAssumptions, profile.Buyer)
	}

	estimate := TaxEstimate{DeedTaxRate: DeedTaxRate(profile.Buyer, profile.Area, profile.TierOneCity)}
	if profile.SecondHand {
		if profile.YearsHeld < vatExemptYears {
			estimate.VATRate = vatRateShortHold
		}
		if !(profile.YearsHeld > incomeTaxExemptYears && profile.SellerOnlyHome) {
			estimate.IncomeTaxRate = incomeTaxRate
		}
	}

	estimate.DeedTax = mathutil.ApplyPercentage(profile.Price, estimate.DeedTaxRate)
	estimate.VAT = mathutil.ApplyPercentage(profile.Price, estimate.VATRate)
	estimate.IncomeTax = mathutil.ApplyPercentage(profile.Price, estimate.IncomeTaxRate)
	estimate.Total = estimate.DeedTax + estimate.VAT + estimate.IncomeTax
	return estimate, nil
}
