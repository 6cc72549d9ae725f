package scenario

import (
	"context"
	"reflect"
	"testing"

	"github.com/iwvelando/realty-forecast/internal/forecast"
	"github.com/iwvelando/realty-forecast/internal/forecast/forecasttest"
	"github.com/iwvelando/realty-forecast/pkg/loans"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func names(perturbations []Perturbation) []string {
	out := make([]string, len(perturbations))
	for i, p := range perturbations {
		out[i] = p.Name
	}
	return out
}

func TestBuiltins(t *testing.T) {
	base := forecasttest.Baseline()
	builtins := Builtins(base)
	assert.Len(t, builtins, 15)
	assert.Contains(t, names(builtins), "early-sale-year-5")
	assert.Contains(t, names(builtins), "price-20-rate+1")
	for _, p := range builtins {
		assert.NoError(t, p.Validate(), p.Name)
	}

	base.HoldingYears = 4
	assert.Contains(t, names(Builtins(base)), "early-sale-year-3")

	base.HoldingYears = 1
	for _, name := range names(Builtins(base)) {
		assert.NotContains(t, name, "early-sale")
	}
}

func TestApply(t *testing.T) {
	base := forecasttest.Baseline()
	base.Loan.Type = loans.Combination
	base.Loan.ProvidentQuota = 1000000

	tests := []struct {
		name  string
		p     Perturbation
		check func(t *testing.T, p forecast.Parameters)
	}{
		{
			name: "Scale price",
			p:    single("p", "", Price, Scale, 0.8),
			check: func(t *testing.T, p forecast.Parameters) {
				assert.InDelta(t, 2400000, p.Property.TotalPrice, 1e-6)
			},
		},
		{
			name: "Add to both rates",
			p:    single("r", "", Rate, Add, 1),
			check: func(t *testing.T, p forecast.Parameters) {
				assert.InDelta(t, 5.1, p.Loan.CommercialRate, 1e-9)
				assert.InDelta(t, 4.1, p.Loan.ProvidentRate, 1e-9)
			},
		},
		{
			name: "Add to one rate",
			p:    single("r", "", ProvidentRate, Add, 0.5),
			check: func(t *testing.T, p forecast.Parameters) {
				assert.InDelta(t, 4.1, p.Loan.CommercialRate, 1e-9)
				assert.InDelta(t, 3.6, p.Loan.ProvidentRate, 1e-9)
			},
		},
		{
			name: "Set vacancy",
			p:    single("v", "", Vacancy, Set, 20),
			check: func(t *testing.T, p forecast.Parameters) {
				assert.Equal(t, 20.0, p.Market.VacancyRate)
			},
		},
		{
			name: "Set holding years",
			p:    single("h", "", HoldingYears, Set, 5),
			check: func(t *testing.T, p forecast.Parameters) {
				assert.Equal(t, 5, p.HoldingYears)
			},
		},
		{
			name: "Compound adjustments",
			p: Perturbation{Name: "c", Adjustments: []Adjustment{
				{Field: Appreciation, Op: Set, Value: 0},
				{Field: AlternativeReturn, Op: Scale, Value: 0.7},
			}},
			check: func(t *testing.T, p forecast.Parameters) {
				assert.Equal(t, 0.0, p.Market.AppreciationRate)
				assert.InDelta(t, 2.8, p.Market.AlternativeReturnRate, 1e-9)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := tt.p.Apply(base)
			require.NoError(t, err)
			tt.check(t, params)
		})
	}
}

func TestApplyRejectsUnknownFieldsAndOperations(t *testing.T) {
	base := forecasttest.Baseline()

	_, err := single("x", "", "downPayment", Scale, 2).Apply(base)
	assert.ErrorIs(t, err, ErrInvalidPerturbation)

	_, err = single("x", "", Price, "divide", 2).Apply(base)
	assert.ErrorIs(t, err, ErrInvalidPerturbation)

	_, err = Perturbation{Name: "empty"}.Apply(base)
	assert.ErrorIs(t, err, ErrInvalidPerturbation)
}

func TestScenariosDoNotMutateBase(t *testing.T) {
	base := forecasttest.WithPrepayment(36, 500000, loans.ReducePayment)
	before := base.Clone()

	builtins := Builtins(base)
	for _, p := range builtins {
		_, err := p.Apply(base)
		require.NoError(t, err)
	}
	_, _, err := NewEngine(nil).RunAll(context.Background(), base, builtins)
	require.NoError(t, err)

	assert.True(t, reflect.DeepEqual(before, base), "base parameters changed by scenario runs")
}

func TestRunPriceDropWithRateRise(t *testing.T) {
	base := forecasttest.Baseline()
	baseline, err := forecast.Evaluate(nil, base)
	require.NoError(t, err)
	require.Greater(t, baseline.Metrics.ComprehensiveReturn, 0.0)

	p := Perturbation{Name: "price-20-rate+1", Adjustments: []Adjustment{
		{Field: Price, Op: Scale, Value: 0.8},
		{Field: Rate, Op: Add, Value: 1},
	}}
	result, err := NewEngine(zap.NewNop()).Run(context.Background(), base, p)
	require.NoError(t, err)

	assert.Less(t, result.Metrics.ComprehensiveReturn, baseline.Metrics.ComprehensiveReturn)
	assert.Less(t, result.Delta.ComprehensiveReturn, 0.0)
	assert.InDelta(t, result.Metrics.ComprehensiveReturn-baseline.Metrics.ComprehensiveReturn,
		result.Delta.ComprehensiveReturn, 1e-9)
	assert.False(t, result.Negative)
}

func TestRunAll(t *testing.T) {
	base := forecasttest.Baseline()
	builtins := Builtins(base)
	_, results, err := NewEngine(nil).RunAll(context.Background(), base, builtins)
	require.NoError(t, err)
	require.Len(t, results, len(builtins))

	byName := make(map[string]Result, len(results))
	for i, r := range results {
		assert.Equal(t, builtins[i].Name, r.Name, "results out of order")
		byName[r.Name] = r
	}

	assert.True(t, byName["crisis"].Negative, "crisis should end with a loss")
	assert.Less(t, byName["crisis"].Delta.ComprehensiveReturn, 0.0)
	assert.Greater(t, byName["prosperity"].Delta.ComprehensiveReturn, 0.0)
	assert.Less(t, byName["rent-20"].Delta.ComprehensiveReturn, 0.0)
	assert.Less(t, byName["rent-30"].Delta.ComprehensiveReturn, byName["rent-20"].Delta.ComprehensiveReturn)
	assert.Greater(t, byName["rate+2"].Delta.RiskScore, byName["rate+1"].Delta.RiskScore)
	assert.Greater(t, byName["rate+1"].Delta.MonthlyPayment, 0.0)
	assert.Greater(t, byName["income-20"].Delta.DTI, 0.0)
	assert.Less(t, byName["vacancy-20"].Delta.ComprehensiveReturn, 0.0)
	assert.Less(t, byName["holding-cost+50"].Delta.ComprehensiveReturn, 0.0)
}

func TestRunAllReturnsBaseline(t *testing.T) {
	base := forecasttest.WithPrepayment(36, 500000, loans.ReduceTerm)
	want, err := forecast.Evaluate(nil, base)
	require.NoError(t, err)

	builtins := Builtins(base)
	baseline, results, err := NewEngine(nil).RunAll(context.Background(), base, builtins)
	require.NoError(t, err)
	require.NotNil(t, baseline)
	assert.Equal(t, want, baseline)

	for _, r := range results {
		assert.InDelta(t, r.Metrics.ComprehensiveReturn-baseline.Metrics.ComprehensiveReturn,
			r.Delta.ComprehensiveReturn, 1e-9, r.Name)
		assert.InDelta(t, r.Metrics.MonthlyPayment-baseline.Metrics.MonthlyPayment,
			r.Delta.MonthlyPayment, 1e-9, r.Name)
	}

	baseline, results, err = NewEngine(nil).RunAll(context.Background(), base, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, want, baseline)
}

func TestRunAllSequential(t *testing.T) {
	base := forecasttest.Baseline()
	base.Policy.ScenarioConcurrency = 1
	concurrent := forecasttest.Baseline()
	concurrent.Policy.ScenarioConcurrency = 8

	engine := NewEngine(nil)
	_, sequentialResults, err := engine.RunAll(context.Background(), base, Builtins(base))
	require.NoError(t, err)
	_, concurrentResults, err := engine.RunAll(context.Background(), concurrent, Builtins(concurrent))
	require.NoError(t, err)

	assert.Equal(t, sequentialResults, concurrentResults)
}

func TestRunAllErrors(t *testing.T) {
	base := forecasttest.Baseline()
	engine := NewEngine(nil)

	_, _, err := engine.RunAll(context.Background(), base, []Perturbation{single("bad", "", Vacancy, Set, 150)})
	assert.ErrorIs(t, err, forecast.ErrInvalidParameters)

	_, _, err = engine.RunAll(context.Background(), base, []Perturbation{single("bad", "", "color", Set, 1)})
	assert.ErrorIs(t, err, ErrInvalidPerturbation)

	invalid := base
	invalid.HoldingYears = 0
	_, _, err = engine.RunAll(context.Background(), invalid, Builtins(base))
	assert.ErrorIs(t, err, forecast.ErrInvalidParameters)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = engine.RunAll(ctx, base, Builtins(base))
	assert.ErrorIs(t, err, context.Canceled)
}
