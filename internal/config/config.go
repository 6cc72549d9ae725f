// Package config defines the data structures related to configuration and
// includes functions for loading the config and turning it into evaluation
// parameters.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/realty-forecast/internal/forecast"
	"github.com/iwvelando/realty-forecast/internal/scenario"
	"github.com/iwvelando/realty-forecast/pkg/constants"
	"github.com/iwvelando/realty-forecast/pkg/finance"
	"github.com/iwvelando/realty-forecast/pkg/loans"
	"github.com/iwvelando/realty-forecast/pkg/scoring"
	"github.com/iwvelando/realty-forecast/pkg/validation"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DateTimeLayout is the format expected for start dates and is also the output
// date format.
const DateTimeLayout = constants.DateTimeLayout

// Configuration holds all configuration for one realty-forecast run.
type Configuration struct {
	Property     PropertyConfig      `mapstructure:"property" yaml:"property" json:"property"`
	Loan         LoanConfig          `mapstructure:"loan" yaml:"loan" json:"loan"`
	Market       MarketConfig        `mapstructure:"market" yaml:"market" json:"market"`
	Household    HouseholdConfig     `mapstructure:"household" yaml:"household" json:"household"`
	HoldingYears int                 `mapstructure:"holdingYears" yaml:"holdingYears" json:"holdingYears"`
	Policy       PolicyConfig        `mapstructure:"policy" yaml:"policy,omitempty" json:"policy,omitempty"`
	TaxProfile   *finance.TaxProfile `mapstructure:"taxProfile" yaml:"taxProfile,omitempty" json:"taxProfile,omitempty"`
	Scenarios    ScenariosConfig     `mapstructure:"scenarios" yaml:"scenarios,omitempty" json:"scenarios,omitempty"`
	Logging      LoggingConfig       `mapstructure:"logging" yaml:"logging,omitempty" json:"logging,omitempty"`
	Output       OutputConfig        `mapstructure:"output" yaml:"output,omitempty" json:"output,omitempty"`
}

// PropertyConfig describes the purchase.
type PropertyConfig struct {
	TotalPrice       float64 `mapstructure:"totalPrice" yaml:"totalPrice" json:"totalPrice"`
	DownPaymentRatio float64 `mapstructure:"downPaymentRatio" yaml:"downPaymentRatio" json:"downPaymentRatio"`
	// DeedTaxRate is derived from the tax profile when omitted.
	DeedTaxRate   *float64 `mapstructure:"deedTaxRate" yaml:"deedTaxRate,omitempty" json:"deedTaxRate,omitempty"`
	AgencyFeeRate float64  `mapstructure:"agencyFeeRate" yaml:"agencyFeeRate" json:"agencyFeeRate"`
	Renovation    float64  `mapstructure:"renovation" yaml:"renovation" json:"renovation"`
	MonthlyRent   float64  `mapstructure:"monthlyRent" yaml:"monthlyRent" json:"monthlyRent"`
	StartDate     string   `mapstructure:"startDate" yaml:"startDate,omitempty" json:"startDate,omitempty"`
}

// LoanConfig describes the financing. TermMonths wins over TermYears.
type LoanConfig struct {
	Type           string            `mapstructure:"type" yaml:"type,omitempty" json:"type,omitempty"`
	CommercialRate float64           `mapstructure:"commercialRate" yaml:"commercialRate" json:"commercialRate"`
	ProvidentRate  float64           `mapstructure:"providentRate" yaml:"providentRate" json:"providentRate"`
	ProvidentQuota float64           `mapstructure:"providentQuota" yaml:"providentQuota,omitempty" json:"providentQuota,omitempty"`
	TermMonths     int               `mapstructure:"termMonths" yaml:"termMonths,omitempty" json:"termMonths,omitempty"`
	TermYears      int               `mapstructure:"termYears" yaml:"termYears,omitempty" json:"termYears,omitempty"`
	Method         string            `mapstructure:"method" yaml:"method,omitempty" json:"method,omitempty"`
	Prepayment     *PrepaymentConfig `mapstructure:"prepayment" yaml:"prepayment,omitempty" json:"prepayment,omitempty"`
}

// PrepaymentConfig is a one-off lump sum. Month wins over Year; a year
// prepays in its last month.
type PrepaymentConfig struct {
	Month    int     `mapstructure:"month" yaml:"month,omitempty" json:"month,omitempty"`
	Year     int     `mapstructure:"year" yaml:"year,omitempty" json:"year,omitempty"`
	Amount   float64 `mapstructure:"amount" yaml:"amount" json:"amount"`
	Strategy string  `mapstructure:"strategy" yaml:"strategy,omitempty" json:"strategy,omitempty"`
}

// MarketConfig holds the market assumptions in percent.
type MarketConfig struct {
	VacancyRate float64 `mapstructure:"vacancyRate" yaml:"vacancyRate" json:"vacancyRate"`
	// RentGrowthRate defaults to AppreciationRate when omitted.
	RentGrowthRate        *float64 `mapstructure:"rentGrowthRate" yaml:"rentGrowthRate,omitempty" json:"rentGrowthRate,omitempty"`
	AppreciationRate      float64  `mapstructure:"appreciationRate" yaml:"appreciationRate" json:"appreciationRate"`
	HoldingCostRatio      float64  `mapstructure:"holdingCostRatio" yaml:"holdingCostRatio" json:"holdingCostRatio"`
	MaintenanceCost       float64  `mapstructure:"maintenanceCost" yaml:"maintenanceCost" json:"maintenanceCost"`
	AlternativeReturnRate float64  `mapstructure:"alternativeReturnRate" yaml:"alternativeReturnRate" json:"alternativeReturnRate"`
	InflationRate         float64  `mapstructure:"inflationRate" yaml:"inflationRate" json:"inflationRate"`
}

// HouseholdConfig describes the buyer's finances.
type HouseholdConfig struct {
	MonthlyIncome       float64 `mapstructure:"monthlyIncome" yaml:"monthlyIncome" json:"monthlyIncome"`
	ExistingMonthlyDebt float64 `mapstructure:"existingMonthlyDebt" yaml:"existingMonthlyDebt,omitempty" json:"existingMonthlyDebt,omitempty"`
	InvestmentPurchase  bool    `mapstructure:"investmentPurchase" yaml:"investmentPurchase,omitempty" json:"investmentPurchase,omitempty"`
	OtherProperties     int     `mapstructure:"otherProperties" yaml:"otherProperties,omitempty" json:"otherProperties,omitempty"`
}

// PolicyConfig overrides the decision constants. Omitted values keep their
// defaults.
type PolicyConfig struct {
	PrepaymentMargin    *float64            `mapstructure:"prepaymentMargin" yaml:"prepaymentMargin,omitempty" json:"prepaymentMargin,omitempty"`
	DTILimit            float64             `mapstructure:"dtiLimit" yaml:"dtiLimit,omitempty" json:"dtiLimit,omitempty"`
	ScenarioConcurrency int                 `mapstructure:"scenarioConcurrency" yaml:"scenarioConcurrency,omitempty" json:"scenarioConcurrency,omitempty"`
	Risk                *scoring.RiskPolicy `mapstructure:"risk" yaml:"risk,omitempty" json:"risk,omitempty"`
}

// ScenariosConfig selects the stress scenarios.
type ScenariosConfig struct {
	// Builtin defaults to true.
	Builtin *bool                   `mapstructure:"builtin" yaml:"builtin,omitempty" json:"builtin,omitempty"`
	Custom  []scenario.Perturbation `mapstructure:"custom" yaml:"custom,omitempty" json:"custom,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level,omitempty" json:"level,omitempty"`                // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format,omitempty" json:"format,omitempty"`             // json, console
	OutputFile string `mapstructure:"outputFile" yaml:"outputFile,omitempty" json:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format,omitempty" json:"format,omitempty"` // pretty, csv, json
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	// Risk keys overlay the default policy rather than a zero one.
	if v.IsSet("policy.risk") {
		risk := scoring.DefaultRiskPolicy()
		if err := v.UnmarshalKey("policy.risk", &risk); err != nil {
			return nil, fmt.Errorf("unable to decode policy.risk, %w", err)
		}
		configuration.Policy.Risk = &risk
	}
	return &configuration, nil
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Keys can be overridden from the environment, e.g.
// REALTY_PROPERTY_TOTALPRICE.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %w", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads a YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config, %w", err)
	}
	return decode(v)
}

// Marshal encodes the configuration as YAML readable by LoadConfigurationFromReader.
func (c *Configuration) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encoding configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Parameters applies the defaults and converts the configuration into
// validated evaluation parameters.
func (c *Configuration) Parameters() (forecast.Parameters, error) {
	params := forecast.Parameters{
		Property: forecast.Property{
			TotalPrice:       c.Property.TotalPrice,
			DownPaymentRatio: c.Property.DownPaymentRatio,
			AgencyFeeRate:    c.Property.AgencyFeeRate,
			Renovation:       c.Property.Renovation,
			MonthlyRent:      c.Property.MonthlyRent,
			StartDate:        c.Property.StartDate,
		},
		Loan: forecast.Loan{
			Type:           loans.LoanType(strings.ToLower(c.Loan.Type)),
			CommercialRate: c.Loan.CommercialRate,
			ProvidentRate:  c.Loan.ProvidentRate,
			ProvidentQuota: c.Loan.ProvidentQuota,
			TermMonths:     c.Loan.TermMonths,
			Method:         loans.Method(strings.ToLower(c.Loan.Method)),
		},
		Market: forecast.Market{
			VacancyRate:           c.Market.VacancyRate,
			RentGrowthRate:        c.Market.AppreciationRate,
			AppreciationRate:      c.Market.AppreciationRate,
			HoldingCostRatio:      c.Market.HoldingCostRatio,
			MaintenanceCost:       c.Market.MaintenanceCost,
			AlternativeReturnRate: c.Market.AlternativeReturnRate,
			InflationRate:         c.Market.InflationRate,
		},
		Household: forecast.Household{
			MonthlyIncome:       c.Household.MonthlyIncome,
			ExistingMonthlyDebt: c.Household.ExistingMonthlyDebt,
			InvestmentPurchase:  c.Household.InvestmentPurchase,
			OtherProperties:     c.Household.OtherProperties,
		},
		HoldingYears: c.HoldingYears,
		Policy:       forecast.DefaultPolicy(),
	}

	if params.Loan.Type == "" {
		params.Loan.Type = loans.Commercial
	}
	if params.Loan.Method == "" {
		params.Loan.Method = loans.EqualPayment
	}
	if params.Loan.TermMonths == 0 {
		params.Loan.TermMonths = c.Loan.TermYears * constants.MonthsPerYear
	}
	if p := c.Loan.Prepayment; p != nil {
		month := p.Month
		if month == 0 {
			month = p.Year * constants.MonthsPerYear
		}
		strategy := loans.Strategy(strings.ToLower(p.Strategy))
		if strategy == "" {
			strategy = loans.ReducePayment
		}
		params.Loan.Prepayment = &loans.Prepayment{Month: month, Amount: p.Amount, Strategy: strategy}
	}
	if c.Market.RentGrowthRate != nil {
		params.Market.RentGrowthRate = *c.Market.RentGrowthRate
	}

	if c.TaxProfile != nil {
		profile := *c.TaxProfile
		params.TaxProfile = &profile
	}
	switch {
	case c.Property.DeedTaxRate != nil:
		params.Property.DeedTaxRate = *c.Property.DeedTaxRate
	case c.TaxProfile != nil:
		params.Property.DeedTaxRate = finance.DeedTaxRate(c.TaxProfile.Buyer, c.TaxProfile.Area, c.TaxProfile.TierOneCity)
	}

	if c.Policy.PrepaymentMargin != nil {
		params.Policy.PrepaymentMargin = *c.Policy.PrepaymentMargin
	}
	if c.Policy.DTILimit != 0 {
		params.Policy.DTILimit = c.Policy.DTILimit
	}
	if c.Policy.ScenarioConcurrency != 0 {
		params.Policy.ScenarioConcurrency = c.Policy.ScenarioConcurrency
	}
	if c.Policy.Risk != nil {
		params.Policy.Risk = *c.Policy.Risk
	}

	if err := params.Validate(); err != nil {
		return forecast.Parameters{}, err
	}
	return params, nil
}

// Perturbations lists the scenarios to run against params: the built-in
// table unless disabled, followed by the custom scenarios.
func (c *Configuration) Perturbations(params forecast.Parameters) ([]scenario.Perturbation, error) {
	var perturbations []scenario.Perturbation
	if c.Scenarios.Builtin == nil || *c.Scenarios.Builtin {
		perturbations = scenario.Builtins(params)
	}

	var errs []error
	seen := make(map[string]bool, len(perturbations)+len(c.Scenarios.Custom))
	for _, p := range perturbations {
		seen[p.Name] = true
	}
	for _, p := range c.Scenarios.Custom {
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Errorf("%w: duplicate scenario name %q", scenario.ErrInvalidPerturbation, p.Name))
			continue
		}
		seen[p.Name] = true
		perturbations = append(perturbations, p)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return perturbations, nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	params, err := c.Parameters()
	if err != nil {
		return []string{err.Error()}
	}

	cv := validation.ConfigValidator{
		StartDate:      params.Property.StartDate,
		TermMonths:     params.Loan.TermMonths,
		HoldingYears:   params.HoldingYears,
		LoanAmount:     params.Plan().LoanAmount(),
		ProvidentQuota: params.Loan.ProvidentQuota,
		Combination:    params.Loan.Type == loans.Combination,
		DTILimit:       params.Policy.DTILimit,
	}
	if params.Loan.Prepayment.Active() {
		cv.PrepaymentMonth = params.Loan.Prepayment.Month
	}

	loan, err := loans.NewScheduleGenerator(zap.NewNop()).ComposeLoan(params.Plan())
	if err != nil {
		return []string{err.Error()}
	}
	cv.DTI = (loan.Schedule.FirstPayment() + params.Household.ExistingMonthlyDebt) / params.Household.MonthlyIncome

	return cv.ValidateAll()
}
