package scoring

import (
	"errors"
	"fmt"
)

// ErrInvalidPolicy is wrapped by every RiskPolicy validation failure.
var ErrInvalidPolicy = errors.New("invalid risk policy")

// Level is the categorical risk level.
type Level string

const (
	Low    Level = "low"
	Medium Level = "medium"
	High   Level = "high"
)

// RiskPolicy holds the tunable constants of the composite risk score.
//
// Each component is scaled to 0..100:
//
//	leverage = LTV                        (1.0 LTV -> 100)
//	debt     = DTI / DTICeiling           (DTI at the ceiling -> 100)
//	coverage = 1 - DSCR                   (rent covering the payment -> 0)
//
// The score is the weighted mean of the components plus MultiPropertyPenalty
// for investment purchases, clamped to 0..100. Scores below LowThreshold are
// low, scores above HighThreshold are high.
type RiskPolicy struct {
	LeverageWeight       float64 `json:"leverageWeight" yaml:"leverageWeight" mapstructure:"leverageWeight"`
	DebtWeight           float64 `json:"debtWeight" yaml:"debtWeight" mapstructure:"debtWeight"`
	CoverageWeight       float64 `json:"coverageWeight" yaml:"coverageWeight" mapstructure:"coverageWeight"`
	DTICeiling           float64 `json:"dtiCeiling" yaml:"dtiCeiling" mapstructure:"dtiCeiling"`
	MultiPropertyPenalty float64 `json:"multiPropertyPenalty" yaml:"multiPropertyPenalty" mapstructure:"multiPropertyPenalty"`
	LowThreshold         float64 `json:"lowThreshold" yaml:"lowThreshold" mapstructure:"lowThreshold"`
	HighThreshold        float64 `json:"highThreshold" yaml:"highThreshold" mapstructure:"highThreshold"`
}

// DefaultRiskPolicy returns the default weights and thresholds.
func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{
		LeverageWeight:       0.30,
		DebtWeight:           0.45,
		CoverageWeight:       0.25,
		DTICeiling:           0.8,
		MultiPropertyPenalty: 10,
		LowThreshold:         33,
		HighThreshold:        66,
	}
}

// Validate rejects policies that would break monotonicity or normalization.
func (p RiskPolicy) Validate() error {
	if p.LeverageWeight < 0 || p.DebtWeight < 0 || p.CoverageWeight < 0 {
		return fmt.Errorf("%w: weights must not be negative", ErrInvalidPolicy)
	}
	if p.LeverageWeight+p.DebtWeight+p.CoverageWeight <= 0 {
		return fmt.Errorf("%w: at least one weight must be positive", ErrInvalidPolicy)
	}
	if p.DTICeiling <= 0 {
		return fmt.Errorf("%w: DTI ceiling must be positive, got %.2f", ErrInvalidPolicy, p.DTICeiling)
	}
	if p.MultiPropertyPenalty < 0 {
		return fmt.Errorf("%w: multi-property penalty must not be negative", ErrInvalidPolicy)
	}
	if p.LowThreshold < 0 || p.HighThreshold > 100 || p.LowThreshold > p.HighThreshold {
		return fmt.Errorf("%w: thresholds must satisfy 0 <= low (%.1f) <= high (%.1f) <= 100",
			ErrInvalidPolicy, p.LowThreshold, p.HighThreshold)
	}
	return nil
}

// Level classifies a score.
func (p RiskPolicy) Level(score float64) Level {
	switch {
	case score < p.LowThreshold:
		return Low
	case score > p.HighThreshold:
		return High
	default:
		return Medium
	}
}
