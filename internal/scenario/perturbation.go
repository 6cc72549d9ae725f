// Package scenario stress-tests an evaluation by re-running it under
// declarative perturbations of the parameters.
package scenario

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/realty-forecast/internal/forecast"
)

// ErrInvalidPerturbation is wrapped by every perturbation error.
var ErrInvalidPerturbation = errors.New("invalid perturbation")

// Field names a perturbable parameter.
type Field string

const (
	Price             Field = "price"
	Rent              Field = "rent"
	Rate              Field = "rate" // both loan rates
	CommercialRate    Field = "commercialRate"
	ProvidentRate     Field = "providentRate"
	Vacancy           Field = "vacancy"
	HoldingCost       Field = "holdingCost"
	Maintenance       Field = "maintenance"
	Appreciation      Field = "appreciation"
	AlternativeReturn Field = "alternativeReturn"
	Inflation         Field = "inflation"
	Income            Field = "income"
	HoldingYears      Field = "holdingYears"
)

// Operation is how an adjustment combines with the current value.
type Operation string

const (
	Scale Operation = "scale" // multiply
	Add   Operation = "add"   // add; percentage points for rates
	Set   Operation = "set"   // replace
)

// Adjustment changes one field.
type Adjustment struct {
	Field Field     `json:"field" yaml:"field" mapstructure:"field"`
	Op    Operation `json:"op" yaml:"op" mapstructure:"op"`
	Value float64   `json:"value" yaml:"value" mapstructure:"value"`
}

// Perturbation is a named set of adjustments applied together.
type Perturbation struct {
	Name        string       `json:"name" yaml:"name" mapstructure:"name"`
	Description string       `json:"description,omitempty" yaml:"description" mapstructure:"description"`
	Adjustments []Adjustment `json:"adjustments" yaml:"adjustments" mapstructure:"adjustments"`
}

// Validate checks names, fields and operations. Values are checked by the
// evaluation of the perturbed parameters.
func (p Perturbation) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPerturbation)
	}
	if len(p.Adjustments) == 0 {
		return fmt.Errorf("%w: %s has no adjustments", ErrInvalidPerturbation, p.Name)
	}
	for _, adj := range p.Adjustments {
		if _, ok := fieldTargets[adj.Field]; !ok && adj.Field != HoldingYears {
			return fmt.Errorf("%w: %s: unknown field %q", ErrInvalidPerturbation, p.Name, adj.Field)
		}
		switch adj.Op {
		case Scale, Add, Set:
		default:
			return fmt.Errorf("%w: %s: unknown operation %q", ErrInvalidPerturbation, p.Name, adj.Op)
		}
	}
	return nil
}

// Apply returns a perturbed copy of base. base is never modified.
func (p Perturbation) Apply(base forecast.Parameters) (forecast.Parameters, error) {
	if err := p.Validate(); err != nil {
		return forecast.Parameters{}, err
	}
	params := base.Clone()
	for _, adj := range p.Adjustments {
		if adj.Field == HoldingYears {
			years := adj.apply(float64(params.HoldingYears))
			params.HoldingYears = int(math.Round(years))
			continue
		}
		for _, target := range fieldTargets[adj.Field](&params) {
			*target = adj.apply(*target)
		}
	}
	return params, nil
}

func (a Adjustment) apply(v float64) float64 {
	switch a.Op {
	case Scale:
		return v * a.Value
	case Add:
		return v + a.Value
	default:
		return a.Value
	}
}

var fieldTargets = map[Field]func(p *forecast.Parameters) []*float64{
	Price: func(p *forecast.Parameters) []*float64 { return []*float64{&p.Property.TotalPrice} },
	Rent:  func(p *forecast.Parameters) []*float64 { return []*float64{&p.Property.MonthlyRent} },
	Rate: func(p *forecast.Parameters) []*float64 {
		return []*float64{&p.Loan.CommercialRate, &p.Loan.ProvidentRate}
	},
	CommercialRate:    func(p *forecast.Parameters) []*float64 { return []*float64{&p.Loan.CommercialRate} },
	ProvidentRate:     func(p *forecast.Parameters) []*float64 { return []*float64{&p.Loan.ProvidentRate} },
	Vacancy:           func(p *forecast.Parameters) []*float64 { return []*float64{&p.Market.VacancyRate} },
	HoldingCost:       func(p *forecast.Parameters) []*float64 { return []*float64{&p.Market.HoldingCostRatio} },
	Maintenance:       func(p *forecast.Parameters) []*float64 { return []*float64{&p.Market.MaintenanceCost} },
	Appreciation:      func(p *forecast.Parameters) []*float64 { return []*float64{&p.Market.AppreciationRate} },
	AlternativeReturn: func(p *forecast.Parameters) []*float64 { return []*float64{&p.Market.AlternativeReturnRate} },
	Inflation:         func(p *forecast.Parameters) []*float64 { return []*float64{&p.Market.InflationRate} },
	Income:            func(p *forecast.Parameters) []*float64 { return []*float64{&p.Household.MonthlyIncome} },
}

// Builtins returns the standard stress tests for base. The early-sale
// scenario picks the latest of years 5, 3 and 1 that ends before the holding
// horizon and is omitted for a one-year horizon.
func Builtins(base forecast.Parameters) []Perturbation {
	scenarios := []Perturbation{
		single("price-10", "Purchase price 10% lower", Price, Scale, 0.9),
		single("price-20", "Purchase price 20% lower", Price, Scale, 0.8),
		single("price+20", "Purchase price 20% higher", Price, Scale, 1.2),
		single("rent-20", "Rent 20% lower", Rent, Scale, 0.8),
		single("rent-30", "Rent 30% lower", Rent, Scale, 0.7),
		single("rent+30", "Rent 30% higher", Rent, Scale, 1.3),
		single("rate+1", "Loan rates up one point", Rate, Add, 1),
		single("rate+2", "Loan rates up two points", Rate, Add, 2),
		single("vacancy-20", "Vacancy at 20%", Vacancy, Set, 20),
		single("holding-cost+50", "Holding costs 50% higher", HoldingCost, Scale, 1.5),
	}

	for _, year := range []int{5, 3, 1} {
		if year < base.HoldingYears {
			scenarios = append(scenarios, single(fmt.Sprintf("early-sale-year-%d", year),
				fmt.Sprintf("Sell at the end of year %d", year), HoldingYears, Set, float64(year)))
			break
		}
	}

	return append(scenarios,
		Perturbation{
			Name:        "crisis",
			Description: "No appreciation and alternative returns cut by 30%",
			Adjustments: []Adjustment{
				{Field: Appreciation, Op: Set, Value: 0},
				{Field: AlternativeReturn, Op: Scale, Value: 0.7},
			},
		},
		Perturbation{
			Name:        "prosperity",
			Description: "Appreciation and alternative returns 50% higher",
			Adjustments: []Adjustment{
				{Field: Appreciation, Op: Scale, Value: 1.5},
				{Field: AlternativeReturn, Op: Scale, Value: 1.5},
			},
		},
		single("income-20", "Household income 20% lower", Income, Scale, 0.8),
		Perturbation{
			Name:        "price-20-rate+1",
			Description: "Purchase price 20% lower with loan rates up one point",
			Adjustments: []Adjustment{
				{Field: Price, Op: Scale, Value: 0.8},
				{Field: Rate, Op: Add, Value: 1},
			},
		},
	)
}

func single(name, description string, field Field, op Operation, value float64) Perturbation {
	return Perturbation{
		Name:        name,
		Description: description,
		Adjustments: []Adjustment{{Field: field, Op: op, Value: value}},
	}
}
