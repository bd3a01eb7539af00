package agents

import "sort"

// Composite score weights. Safety dominates, then passenger welfare,
// network protection, cost. Weights sum to 1 so the composite stays in
// the same [0,100] range as the sub-scores.
const (
	weightSafety    = 0.40
	weightPassenger = 0.25
	weightNetwork   = 0.20
	weightCost      = 0.15
)

// clampScore bounds a sub-score to [0,100]
func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// compositeScore computes the fixed weighted composite of the four
// sub-scores. Monotone in each argument.
func compositeScore(safety, passenger, network, cost float64) float64 {
	return weightSafety*clampScore(safety) +
		weightPassenger*clampScore(passenger) +
		weightNetwork*clampScore(network) +
		weightCost*clampScore(cost)
}

// normalizeScores clamps every sub-score and recomputes the composite.
// The model's own composite figure, if any, is discarded: the composite
// is derived here, never free.
func normalizeScores(opt *SolutionOption) {
	opt.SafetyScore = clampScore(opt.SafetyScore)
	opt.PassengerScore = clampScore(opt.PassengerScore)
	opt.NetworkScore = clampScore(opt.NetworkScore)
	opt.CostScore = clampScore(opt.CostScore)
	opt.CompositeScore = compositeScore(opt.SafetyScore, opt.PassengerScore, opt.NetworkScore, opt.CostScore)
}

// filterCompliant removes every option that violates an active binding
// constraint. Active constraints come from safety-critical agents'
// final-round responses; matching is by constraint id.
func filterCompliant(options []SolutionOption, active map[string]BindingConstraint) []SolutionOption {
	if len(active) == 0 {
		return options
	}

	compliant := make([]SolutionOption, 0, len(options))
	for _, opt := range options {
		violates := false
		for _, id := range opt.ViolatedConstraintIDs {
			if _, ok := active[id]; ok {
				violates = true
				break
			}
		}
		if !violates {
			compliant = append(compliant, opt)
		}
	}
	return compliant
}

// rankOptions orders options into the deterministic total order:
// composite descending, safety descending, solution id ascending.
func rankOptions(options []SolutionOption) {
	sort.SliceStable(options, func(i, j int) bool {
		a, b := options[i], options[j]
		if a.CompositeScore != b.CompositeScore {
			return a.CompositeScore > b.CompositeScore
		}
		if a.SafetyScore != b.SafetyScore {
			return a.SafetyScore > b.SafetyScore
		}
		return a.SolutionID < b.SolutionID
	})
}
