// Package report assembles the full analysis of one parameter set: the
// evaluation, the scenario table and the affordability search.
package report

import (
	"context"
	"fmt"

	"github.com/iwvelando/realty-forecast/internal/forecast"
	"github.com/iwvelando/realty-forecast/internal/optimizer"
	"github.com/iwvelando/realty-forecast/internal/scenario"
	"github.com/iwvelando/realty-forecast/pkg/optimization"
	"go.uber.org/zap"
)

// Report is the complete result object handed to presentation layers.
type Report struct {
	Parameters    forecast.Parameters  `json:"parameters"`
	Evaluation    *forecast.Evaluation `json:"evaluation"`
	Scenarios     []scenario.Result    `json:"scenarios"`
	Affordability optimization.Summary `json:"affordability"`
}

// Analyze evaluates params, runs the perturbations against it and searches for
// the largest affordable price. params is not modified.
func Analyze(ctx context.Context, logger *zap.Logger, params forecast.Parameters, perturbations []scenario.Perturbation) (*Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// The scenario engine evaluates the baseline once for its deltas; the
	// report reuses that evaluation.
	evaluation, results, err := scenario.NewEngine(logger).RunAll(ctx, params, perturbations)
	if err != nil {
		return nil, fmt.Errorf("running scenarios: %w", err)
	}

	runner, err := optimizer.NewRunner(logger, params)
	if err != nil {
		return nil, err
	}
	affordability, err := runner.Run()
	if err != nil {
		return nil, fmt.Errorf("affordability search: %w", err)
	}

	logger.Debug(fmt.Sprintf("analysis complete with %d scenarios", len(results)),
		zap.String("op", "report.Analyze"),
	)

	return &Report{
		Parameters:    params.Clone(),
		Evaluation:    evaluation,
		Scenarios:     results,
		Affordability: affordability,
	}, nil
}

// NegativeScenarios lists the scenarios that end with a loss.
func (r *Report) NegativeScenarios() []string {
	var names []string
	for _, s := range r.Scenarios {
		if s.Negative {
			names = append(names, s.Name)
		}
	}
	return names
}
