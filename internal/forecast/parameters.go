package forecast

import (
	"errors"
	"fmt"

	"github.com/iwvelando/realty-forecast/pkg/constants"
	"github.com/iwvelando/realty-forecast/pkg/finance"
	"github.com/iwvelando/realty-forecast/pkg/loans"
	"github.com/iwvelando/realty-forecast/pkg/mathutil"
	"github.com/iwvelando/realty-forecast/pkg/scoring"
)

// ErrInvalidParameters is wrapped by every parameter validation failure.
var ErrInvalidParameters = errors.New("invalid parameters")

// Parameters is the complete, defaulted input of one evaluation. Rates are
// whole percentages and amounts are plain currency units.
type Parameters struct {
	Property     Property  `json:"property"`
	Loan         Loan      `json:"loan"`
	Market       Market    `json:"market"`
	Household    Household `json:"household"`
	HoldingYears int       `json:"holdingYears"`
	Policy       Policy    `json:"policy"`
	// TaxProfile is optional. Its price always follows Property.TotalPrice.
	TaxProfile *finance.TaxProfile `json:"taxProfile,omitempty"`
}

// Property describes the purchase.
type Property struct {
	TotalPrice       float64 `json:"totalPrice"`
	DownPaymentRatio float64 `json:"downPaymentRatio"`
	DeedTaxRate      float64 `json:"deedTaxRate"`
	AgencyFeeRate    float64 `json:"agencyFeeRate"`
	Renovation       float64 `json:"renovation"`
	MonthlyRent      float64 `json:"monthlyRent"`
	StartDate        string  `json:"startDate,omitempty"`
}

// Loan describes the financing.
type Loan struct {
	Type           loans.LoanType    `json:"type"`
	CommercialRate float64           `json:"commercialRate"`
	ProvidentRate  float64           `json:"providentRate"`
	ProvidentQuota float64           `json:"providentQuota"`
	TermMonths     int               `json:"termMonths"`
	Method         loans.Method      `json:"method"`
	Prepayment     *loans.Prepayment `json:"prepayment,omitempty"`
}

// Market holds the market assumptions.
type Market struct {
	VacancyRate           float64 `json:"vacancyRate"`
	RentGrowthRate        float64 `json:"rentGrowthRate"`
	AppreciationRate      float64 `json:"appreciationRate"`
	HoldingCostRatio      float64 `json:"holdingCostRatio"`
	MaintenanceCost       float64 `json:"maintenanceCost"`
	AlternativeReturnRate float64 `json:"alternativeReturnRate"`
	InflationRate         float64 `json:"inflationRate"`
}

// Household describes the buyer's finances.
type Household struct {
	MonthlyIncome       float64 `json:"monthlyIncome"`
	ExistingMonthlyDebt float64 `json:"existingMonthlyDebt"`
	InvestmentPurchase  bool    `json:"investmentPurchase"`
	OtherProperties     int     `json:"otherProperties"`
}

// Policy holds the tunable decision constants.
type Policy struct {
	Risk                scoring.RiskPolicy `json:"risk"`
	PrepaymentMargin    float64            `json:"prepaymentMargin"` // fraction
	DTILimit            float64            `json:"dtiLimit"`         // percent
	ScenarioConcurrency int                `json:"scenarioConcurrency"`
}

// DefaultPolicy returns the default decision constants.
func DefaultPolicy() Policy {
	return Policy{
		Risk:                scoring.DefaultRiskPolicy(),
		PrepaymentMargin:    constants.DefaultPrepaymentMargin,
		DTILimit:            constants.DefaultDTILimit,
		ScenarioConcurrency: constants.DefaultScenarioConcurrency,
	}
}

// Clone returns a deep copy, so perturbing the copy never touches p.
func (p Parameters) Clone() Parameters {
	c := p
	if p.Loan.Prepayment != nil {
		prepayment := *p.Loan.Prepayment
		c.Loan.Prepayment = &prepayment
	}
	if p.TaxProfile != nil {
		profile := *p.TaxProfile
		c.TaxProfile = &profile
	}
	return c
}

// Validate reports every problem with the parameters at once.
func (p Parameters) Validate() error {
	var errs []error
	if err := p.Plan().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := p.Assumptions().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := p.Policy.Risk.Validate(); err != nil {
		errs = append(errs, err)
	}
	if p.HoldingYears < 1 || p.HoldingYears > constants.MaxHoldingYears {
		errs = append(errs, fmt.Errorf("holding years must be within 1..%d, got %d", constants.MaxHoldingYears, p.HoldingYears))
	}
	if p.Property.DeedTaxRate < 0 || p.Property.AgencyFeeRate < 0 || p.Property.Renovation < 0 {
		errs = append(errs, errors.New("deed tax, agency fee and renovation must not be negative"))
	}
	if p.Household.MonthlyIncome <= 0 {
		errs = append(errs, fmt.Errorf("monthly income must be positive, got %.2f", p.Household.MonthlyIncome))
	}
	if p.Household.ExistingMonthlyDebt < 0 || p.Household.OtherProperties < 0 {
		errs = append(errs, errors.New("existing debt and other properties must not be negative"))
	}
	if p.Policy.PrepaymentMargin < 0 {
		errs = append(errs, fmt.Errorf("prepayment margin must not be negative, got %.4f", p.Policy.PrepaymentMargin))
	}
	if p.Policy.DTILimit <= 0 || p.Policy.DTILimit > constants.PercentageMultiplier {
		errs = append(errs, fmt.Errorf("DTI limit must be within 0..100, got %.2f", p.Policy.DTILimit))
	}
	if p.Policy.ScenarioConcurrency < 1 {
		errs = append(errs, fmt.Errorf("scenario concurrency must be at least 1, got %d", p.Policy.ScenarioConcurrency))
	}
	if profile, ok := p.Taxes(); ok && p.Property.TotalPrice > 0 {
		if _, err := finance.EstimateTaxes(profile); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidParameters, errors.Join(errs...))
}

// Plan is the loan plan of the parameters.
func (p Parameters) Plan() loans.Plan {
	return loans.Plan{
		TotalPrice:       p.Property.TotalPrice,
		DownPaymentRatio: p.Property.DownPaymentRatio,
		LoanType:         p.Loan.Type,
		CommercialRate:   p.Loan.CommercialRate,
		ProvidentRate:    p.Loan.ProvidentRate,
		ProvidentQuota:   p.Loan.ProvidentQuota,
		TermMonths:       p.Loan.TermMonths,
		Method:           p.Loan.Method,
		Prepayment:       p.Loan.Prepayment,
		StartDate:        p.Property.StartDate,
	}
}

// Assumptions are the market assumptions of the parameters.
func (p Parameters) Assumptions() finance.Assumptions {
	return finance.Assumptions{
		TotalPrice:            p.Property.TotalPrice,
		MonthlyRent:           p.Property.MonthlyRent,
		VacancyRate:           p.Market.VacancyRate,
		RentGrowthRate:        p.Market.RentGrowthRate,
		AppreciationRate:      p.Market.AppreciationRate,
		HoldingCostRatio:      p.Market.HoldingCostRatio,
		MaintenanceCost:       p.Market.MaintenanceCost,
		AlternativeReturnRate: p.Market.AlternativeReturnRate,
		InflationRate:         p.Market.InflationRate,
	}
}

// Costs is the cash paid at purchase.
func (p Parameters) Costs() finance.InitialCosts {
	return finance.InitialCosts{
		DownPayment: p.Plan().DownPayment(),
		DeedTax:     mathutil.ApplyPercentage(p.Property.TotalPrice, p.Property.DeedTaxRate),
		AgencyFee:   mathutil.ApplyPercentage(p.Property.TotalPrice, p.Property.AgencyFeeRate),
		Renovation:  p.Property.Renovation,
	}
}

// Taxes returns the tax profile priced at the current total price.
func (p Parameters) Taxes() (finance.TaxProfile, bool) {
	if p.TaxProfile == nil {
		return finance.TaxProfile{}, false
	}
	profile := *p.TaxProfile
	profile.Price = p.Property.TotalPrice
	return profile, true
}

// MultiProperty reports whether the purchase adds to an existing portfolio.
func (p Parameters) MultiProperty() bool {
	return p.Household.InvestmentPurchase || p.Household.OtherProperties > 0
}
