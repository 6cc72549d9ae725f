package scenario

import (
	"context"
	"fmt"

	"github.com/iwvelando/realty-forecast/internal/forecast"
	"github.com/iwvelando/realty-forecast/pkg/scoring"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result is one row of the scenario table.
type Result struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Metrics     scoring.Metrics `json:"metrics"`
	Delta       Delta           `json:"delta"`
	// Negative marks a scenario that ends with a loss on the initial investment.
	Negative bool `json:"negative"`
}

// Delta is the difference of a scenario's metrics from the baseline.
type Delta struct {
	CashOnCashReturn    float64 `json:"cashOnCashReturn"`
	ComprehensiveReturn float64 `json:"comprehensiveReturn"`
	AnnualizedReturn    float64 `json:"annualizedReturn"`
	DTI                 float64 `json:"dti"`
	DSCR                float64 `json:"dscr"`
	RiskScore           float64 `json:"riskScore"`
	MonthlyPayment      float64 `json:"monthlyPayment"`
}

func delta(m, base scoring.Metrics) Delta {
	return Delta{
		CashOnCashReturn:    m.CashOnCashReturn - base.CashOnCashReturn,
		ComprehensiveReturn: m.ComprehensiveReturn - base.ComprehensiveReturn,
		AnnualizedReturn:    m.AnnualizedReturn - base.AnnualizedReturn,
		DTI:                 m.DTI - base.DTI,
		DSCR:                m.DSCR - base.DSCR,
		RiskScore:           m.RiskScore - base.RiskScore,
		MonthlyPayment:      m.MonthlyPayment - base.MonthlyPayment,
	}
}

// Engine runs perturbations against a base parameter set.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a scenario engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Run evaluates base and its perturbation and reports the difference.
func (e *Engine) Run(ctx context.Context, base forecast.Parameters, p Perturbation) (Result, error) {
	baseline, err := forecast.Evaluate(e.logger, base)
	if err != nil {
		return Result{}, fmt.Errorf("evaluating baseline: %w", err)
	}
	return e.run(ctx, base, baseline.Metrics, p)
}

// RunAll evaluates the baseline once and then every perturbation with at most
// base.Policy.ScenarioConcurrency evaluations in flight. It returns the baseline
// evaluation the deltas were taken against together with the results, which
// keep the order of perturbations. The first failure cancels the remaining runs.
func (e *Engine) RunAll(ctx context.Context, base forecast.Parameters, perturbations []Perturbation) (*forecast.Evaluation, []Result, error) {
	baseline, err := forecast.Evaluate(e.logger, base)
	if err != nil {
		return nil, nil, fmt.Errorf("evaluating baseline: %w", err)
	}

	results := make([]Result, len(perturbations))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, base.Policy.ScenarioConcurrency))
	for i, p := range perturbations {
		g.Go(func() error {
			result, err := e.run(ctx, base, baseline.Metrics, p)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	e.logger.Debug(fmt.Sprintf("ran %d scenarios", len(results)),
		zap.String("op", "scenario.RunAll"),
	)
	return baseline, results, nil
}

func (e *Engine) run(ctx context.Context, base forecast.Parameters, baseline scoring.Metrics, p Perturbation) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	params, err := p.Apply(base)
	if err != nil {
		return Result{}, err
	}
	evaluation, err := forecast.Evaluate(e.logger, params)
	if err != nil {
		return Result{}, fmt.Errorf("scenario %s: %w", p.Name, err)
	}

	m := evaluation.Metrics
	e.logger.Debug(fmt.Sprintf("scenario %s: comprehensive return %.2f%%", p.Name, m.ComprehensiveReturn),
		zap.String("op", "scenario.Run"),
	)
	return Result{
		Name:        p.Name,
		Description: p.Description,
		Metrics:     m,
		Delta:       delta(m, baseline),
		Negative:    m.TotalRevenue < 0,
	}, nil
}
