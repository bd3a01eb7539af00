package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeScore_Monotone(t *testing.T) {
	base := compositeScore(50, 50, 50, 50)

	dims := []struct {
		name string
		calc func(v float64) float64
	}{
		{"safety", func(v float64) float64 { return compositeScore(v, 50, 50, 50) }},
		{"passenger", func(v float64) float64 { return compositeScore(50, v, 50, 50) }},
		{"network", func(v float64) float64 { return compositeScore(50, 50, v, 50) }},
		{"cost", func(v float64) float64 { return compositeScore(50, 50, 50, v) }},
	}

	for _, dim := range dims {
		t.Run(dim.name, func(t *testing.T) {
			prev := dim.calc(0)
			for v := 5.0; v <= 100; v += 5 {
				cur := dim.calc(v)
				assert.GreaterOrEqual(t, cur, prev,
					"raising %s from %.0f decreased composite", dim.name, v-5)
				prev = cur
			}
			assert.Greater(t, dim.calc(100), base)
		})
	}
}

func TestCompositeScore_StaysInRange(t *testing.T) {
	assert.Equal(t, 0.0, compositeScore(0, 0, 0, 0))
	assert.InDelta(t, 100.0, compositeScore(100, 100, 100, 100), 1e-9)
	// Out-of-range inputs are clamped, not propagated
	assert.InDelta(t, 100.0, compositeScore(500, 200, 150, 101), 1e-9)
	assert.Equal(t, 0.0, compositeScore(-10, -1, -50, -100))
}

func TestNormalizeScores_DiscardsModelComposite(t *testing.T) {
	opt := SolutionOption{
		SafetyScore:    90,
		PassengerScore: 60,
		NetworkScore:   70,
		CostScore:      40,
		CompositeScore: 12345, // model's figure, must be overwritten
	}
	normalizeScores(&opt)

	expected := 0.40*90 + 0.25*60 + 0.20*70 + 0.15*40
	assert.InDelta(t, expected, opt.CompositeScore, 1e-9)
}

func TestRankOptions_TotalOrder(t *testing.T) {
	options := []SolutionOption{
		{SolutionID: 3, CompositeScore: 70, SafetyScore: 80},
		{SolutionID: 1, CompositeScore: 70, SafetyScore: 95},
		{SolutionID: 2, CompositeScore: 85, SafetyScore: 60},
	}

	rankOptions(options)

	require.Equal(t, 2, options[0].SolutionID, "highest composite ranks first")
	require.Equal(t, 1, options[1].SolutionID, "safety breaks the composite tie")
	require.Equal(t, 3, options[2].SolutionID)
}

func TestRankOptions_SolutionIDBreaksFullTie(t *testing.T) {
	options := []SolutionOption{
		{SolutionID: 2, CompositeScore: 50, SafetyScore: 50},
		{SolutionID: 1, CompositeScore: 50, SafetyScore: 50},
	}

	rankOptions(options)
	assert.Equal(t, 1, options[0].SolutionID)
	assert.Equal(t, 2, options[1].SolutionID)
}

func TestFilterCompliant_RemovesViolators(t *testing.T) {
	active := map[string]BindingConstraint{
		"MX-HYD-01": {ID: "MX-HYD-01", Description: "aircraft grounded"},
	}

	options := []SolutionOption{
		{SolutionID: 1, Title: "Depart as planned", ViolatedConstraintIDs: []string{"MX-HYD-01"}},
		{SolutionID: 2, Title: "Swap aircraft"},
		{SolutionID: 3, Title: "Depart after quick fix", ViolatedConstraintIDs: []string{"MX-HYD-01", "OTHER"}},
	}

	compliant := filterCompliant(options, active)
	require.Len(t, compliant, 1)
	assert.Equal(t, 2, compliant[0].SolutionID)
}

func TestFilterCompliant_IgnoresInactiveConstraintIDs(t *testing.T) {
	options := []SolutionOption{
		{SolutionID: 1, ViolatedConstraintIDs: []string{"STALE-ID"}},
	}

	// The constraint the option violates is no longer asserted by any
	// safety agent; the option stands.
	compliant := filterCompliant(options, map[string]BindingConstraint{
		"REG-CURFEW-LHR": {ID: "REG-CURFEW-LHR"},
	})
	assert.Len(t, compliant, 1)
}

func TestActiveConstraints_SafetyAgentsOnly(t *testing.T) {
	c := collationOf(PhaseRevision,
		&AgentResponse{
			AgentName: AgentRegulatory,
			Status:    StatusSuccess,
			BindingConstraints: []BindingConstraint{
				{ID: "REG-CURFEW-LHR", Description: "no departure after 23:00"},
			},
		},
		&AgentResponse{
			AgentName: AgentFinance,
			Status:    StatusSuccess,
			// A non-safety agent asserting a constraint must be ignored
			BindingConstraints: []BindingConstraint{
				{ID: "FIN-BUDGET", Description: "too expensive"},
			},
		},
		&AgentResponse{
			AgentName: AgentMaintenance,
			Status:    StatusError,
			// Failed agents contribute nothing
			BindingConstraints: []BindingConstraint{
				{ID: "MX-STALE", Description: "stale"},
			},
		},
	)

	active := c.ActiveConstraints()
	require.Len(t, active, 1)
	assert.Contains(t, active, "REG-CURFEW-LHR")
}
