package optimizer

import (
	"testing"

	"github.com/iwvelando/realty-forecast/internal/forecast"
	"github.com/iwvelando/realty-forecast/internal/forecast/forecasttest"
	"github.com/iwvelando/realty-forecast/pkg/loans"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMaxMonthlyPayment(t *testing.T) {
	params := forecasttest.Baseline()
	assert.InDelta(t, 7000, MaxMonthlyPayment(params), 1e-9)

	params.Policy.DTILimit = 50
	params.Household.ExistingMonthlyDebt = 0
	assert.InDelta(t, 15000, MaxMonthlyPayment(params), 1e-9)
}

func TestRunFindsAffordablePrice(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	params := forecasttest.Baseline()
	runner, err := NewRunner(logger, params)
	require.NoError(t, err)

	summary, err := runner.Run()
	require.NoError(t, err)

	basePayment, err := runner.PaymentAt(params.Property.TotalPrice)
	require.NoError(t, err)
	expected := params.Property.TotalPrice * 7000 / basePayment

	assert.Equal(t, "affordability", summary.Scope)
	assert.Equal(t, "totalPrice", summary.Field)
	assert.False(t, summary.WithinLimit, "a 10,147 payment exceeds the 7,000 limit")
	assert.True(t, summary.Converged)
	assert.Greater(t, summary.Iterations, 0)
	assert.InDelta(t, expected, summary.Value, 5)
	assert.LessOrEqual(t, summary.Measured, summary.Limit+0.01)
	assert.GreaterOrEqual(t, summary.Headroom, -0.01)
	assert.Equal(t, 3000000.0, summary.Original)

	// Just past the search interval the payment breaks the limit.
	over, err := runner.PaymentAt(summary.Value + 2)
	require.NoError(t, err)
	assert.Greater(t, over, summary.Limit)
}

func TestRunWithinLimitExpandsUpward(t *testing.T) {
	params := forecasttest.Baseline()
	params.Household.MonthlyIncome = 100000
	runner, err := NewRunner(nil, params)
	require.NoError(t, err)

	summary, err := runner.Run()
	require.NoError(t, err)

	assert.True(t, summary.WithinLimit)
	assert.True(t, summary.Converged)
	assert.Greater(t, summary.Value, params.Property.TotalPrice)
	assert.LessOrEqual(t, summary.Measured, summary.Limit+0.01)
}

func TestRunCombinationLoan(t *testing.T) {
	params := forecasttest.Baseline()
	params.Loan.Type = loans.Combination
	params.Loan.ProvidentQuota = 1200000
	runner, err := NewRunner(nil, params)
	require.NoError(t, err)

	summary, err := runner.Run()
	require.NoError(t, err)

	assert.True(t, summary.Converged)
	assert.InDelta(t, summary.Limit, summary.Measured, 5)
}

func TestRunEdgeCases(t *testing.T) {
	t.Run("Debt uses the allowance", func(t *testing.T) {
		params := forecasttest.Baseline()
		params.Household.ExistingMonthlyDebt = 9000
		runner, err := NewRunner(nil, params)
		require.NoError(t, err)

		summary, err := runner.Run()
		require.NoError(t, err)
		assert.Equal(t, 0.0, summary.Value)
		assert.False(t, summary.Converged)
		assert.NotEmpty(t, summary.Notes)
	})

	t.Run("Cash purchase", func(t *testing.T) {
		params := forecasttest.Baseline()
		params.Property.DownPaymentRatio = 100
		runner, err := NewRunner(nil, params)
		require.NoError(t, err)

		summary, err := runner.Run()
		require.NoError(t, err)
		assert.Equal(t, params.Property.TotalPrice, summary.Value)
		assert.True(t, summary.WithinLimit)
		assert.NotEmpty(t, summary.Notes)
	})

	t.Run("Invalid parameters", func(t *testing.T) {
		params := forecasttest.Baseline()
		params.Loan.TermMonths = 0
		_, err := NewRunner(nil, params)
		assert.ErrorIs(t, err, forecast.ErrInvalidParameters)
	})
}
