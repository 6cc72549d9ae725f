package finance

import (
	"github.com/iwvelando/realty-forecast/pkg/mathutil"
	"go.uber.org/zap"
)

// InvestmentState tracks the running value of an investment across simulation months.
type InvestmentState struct {
	CurrentValue float64
	Contributed  float64
}

// InvestmentChange captures the computed deltas for a single investment in a given month.
type InvestmentChange struct {
	Contribution float64
	Withdrawal   float64
	Growth       float64
	NetChange    float64
}

// InvestmentProcessor handles monthly investment computations.
type InvestmentProcessor struct {
	logger *zap.Logger
}

// NewInvestmentProcessor creates a processor for investment calculations.
func NewInvestmentProcessor(logger *zap.Logger) *InvestmentProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvestmentProcessor{logger: logger}
}

// NewInvestmentState creates a state seeded with a starting balance.
func (ip *InvestmentProcessor) NewInvestmentState(startingValue float64) *InvestmentState {
	return &InvestmentState{CurrentValue: startingValue, Contributed: startingValue}
}

// ProcessMonth applies one month to the investment: the contribution is added
// first and the balance then grows at annualReturnRate/12. A negative
// contribution is a withdrawal capped at the current balance.
func (ip *InvestmentProcessor) ProcessMonth(state *InvestmentState, contribution, annualReturnRate float64) InvestmentChange {
	previousValue := state.CurrentValue
	var change InvestmentChange

	if contribution > 0 {
		state.CurrentValue += contribution
		state.Contributed += contribution
		change.Contribution = contribution
	} else if contribution < 0 {
		withdrawal := -contribution
		if withdrawal > state.CurrentValue {
			ip.logger.Debug("capping withdrawal to investment balance",
				zap.String("op", "finance.ProcessMonth"),
				zap.Float64("requested", withdrawal),
				zap.Float64("balance", state.CurrentValue))
			withdrawal = state.CurrentValue
		}
		state.CurrentValue -= withdrawal
		change.Withdrawal = withdrawal
	}

	growth := state.CurrentValue * mathutil.MonthlyRate(annualReturnRate)
	if growth != 0 {
		state.CurrentValue += growth
	}
	change.Growth = growth
	change.NetChange = state.CurrentValue - previousValue
	return change
}
