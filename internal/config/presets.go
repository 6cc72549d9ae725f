package config

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownPreset is returned by Preset for ids not in Presets.
var ErrUnknownPreset = errors.New("unknown preset")

// PresetInfo describes a named parameter template.
type PresetInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type preset struct {
	info  PresetInfo
	build func() Configuration
}

func float(v float64) *float64 { return &v }

var presets = map[string]preset{
	"beijing-essential": {
		info: PresetInfo{
			ID:          "beijing-essential",
			Name:        "Beijing first home",
			Description: "Combination loan on a 5,000,000 first home held for ten years",
		},
		build: func() Configuration {
			return Configuration{
				Property: PropertyConfig{
					TotalPrice:       5000000,
					DownPaymentRatio: 35,
					DeedTaxRate:      float(1),
					AgencyFeeRate:    1,
					Renovation:       200000,
					MonthlyRent:      6000,
				},
				Loan: LoanConfig{
					Type:           "combination",
					CommercialRate: 4.1,
					ProvidentRate:  3.1,
					ProvidentQuota: 1200000,
					TermYears:      30,
				},
				Market: MarketConfig{
					VacancyRate:           5,
					RentGrowthRate:        float(3),
					AppreciationRate:      4,
					HoldingCostRatio:      0.3,
					MaintenanceCost:       5000,
					AlternativeReturnRate: 4,
					InflationRate:         2.5,
				},
				Household:    HouseholdConfig{MonthlyIncome: 30000},
				HoldingYears: 10,
			}
		},
	},
	"shanghai-upgrade": {
		info: PresetInfo{
			ID:          "shanghai-upgrade",
			Name:        "Shanghai upgrade",
			Description: "Second home of 8,000,000 with a 1,000,000 prepayment after five years",
		},
		build: func() Configuration {
			return Configuration{
				Property: PropertyConfig{
					TotalPrice:       8000000,
					DownPaymentRatio: 50,
					DeedTaxRate:      float(3),
					AgencyFeeRate:    1,
					Renovation:       500000,
					MonthlyRent:      10000,
				},
				Loan: LoanConfig{
					Type:           "combination",
					CommercialRate: 4.9,
					ProvidentRate:  3.575,
					ProvidentQuota: 1000000,
					TermYears:      25,
					Prepayment:     &PrepaymentConfig{Month: 60, Amount: 1000000},
				},
				Market: MarketConfig{
					VacancyRate:           5,
					RentGrowthRate:        float(2.5),
					AppreciationRate:      4,
					HoldingCostRatio:      0.3,
					MaintenanceCost:       10000,
					AlternativeReturnRate: 5,
					InflationRate:         2.5,
				},
				Household: HouseholdConfig{
					MonthlyIncome:   50000,
					OtherProperties: 1,
				},
				HoldingYears: 15,
			}
		},
	},
	"shenzhen-investment": {
		info: PresetInfo{
			ID:          "shenzhen-investment",
			Name:        "Shenzhen investment",
			Description: "Commercial loan on a 6,000,000 rental property",
		},
		build: func() Configuration {
			return Configuration{
				Property: PropertyConfig{
					TotalPrice:       6000000,
					DownPaymentRatio: 40,
					DeedTaxRate:      float(3),
					AgencyFeeRate:    1,
					Renovation:       300000,
					MonthlyRent:      8000,
				},
				Loan: LoanConfig{
					Type:           "commercial",
					CommercialRate: 4.3,
					ProvidentRate:  3.25,
					ProvidentQuota: 900000,
					TermYears:      20,
				},
				Market: MarketConfig{
					VacancyRate:           5,
					RentGrowthRate:        float(4),
					AppreciationRate:      4,
					HoldingCostRatio:      0.3,
					MaintenanceCost:       8000,
					AlternativeReturnRate: 6,
					InflationRate:         2.5,
				},
				Household: HouseholdConfig{
					MonthlyIncome:      60000,
					InvestmentPurchase: true,
				},
				HoldingYears: 10,
			}
		},
	},
	"guangzhou-balanced": {
		info: PresetInfo{
			ID:          "guangzhou-balanced",
			Name:        "Guangzhou balanced",
			Description: "Combination loan on a 4,000,000 home held for twelve years",
		},
		build: func() Configuration {
			return Configuration{
				Property: PropertyConfig{
					TotalPrice:       4000000,
					DownPaymentRatio: 30,
					DeedTaxRate:      float(1),
					AgencyFeeRate:    1,
					Renovation:       150000,
					MonthlyRent:      5000,
				},
				Loan: LoanConfig{
					Type:           "combination",
					CommercialRate: 3.95,
					ProvidentRate:  3.1,
					ProvidentQuota: 1000000,
					TermYears:      30,
				},
				Market: MarketConfig{
					VacancyRate:           5,
					RentGrowthRate:        float(3),
					AppreciationRate:      4,
					HoldingCostRatio:      0.3,
					MaintenanceCost:       5000,
					AlternativeReturnRate: 4.5,
					InflationRate:         2.5,
				},
				Household:    HouseholdConfig{MonthlyIncome: 25000},
				HoldingYears: 12,
			}
		},
	},
}

// Presets lists the available presets ordered by id.
func Presets() []PresetInfo {
	infos := make([]PresetInfo, 0, len(presets))
	for _, p := range presets {
		infos = append(infos, p.info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Preset returns a fresh configuration for the preset id.
func Preset(id string) (*Configuration, error) {
	p, ok := presets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, id)
	}
	c := p.build()
	return &c, nil
}
