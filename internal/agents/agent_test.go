package agents

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skymarshal/internal/adapters/ai"
	"skymarshal/internal/tools"
	"skymarshal/pkg/errors"
)

func assessmentJSON(recommendation string, confidence float64) string {
	payload := map[string]interface{}{
		"recommendation": recommendation,
		"reasoning":      "based on retrieved data",
		"data_sources":   []string{"get_flight_status"},
		"confidence":     confidence,
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

func testToolRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()

	flightTool := tools.New(tools.Definition{
		Name:        "get_flight_status",
		Description: "flight state",
		Category:    tools.CategoryFlight,
		Parameters:  map[string]interface{}{"type": "object"},
	}, func(context.Context, json.RawMessage) (interface{}, error) {
		return map[string]string{"status": "delayed", "delay": "180m"}, nil
	})
	require.NoError(t, reg.Register(flightTool))

	crewTool := tools.New(tools.Definition{
		Name:        "get_crew_roster",
		Description: "crew state",
		Category:    tools.CategoryCrew,
		Parameters:  map[string]interface{}{"type": "object"},
	}, func(context.Context, json.RawMessage) (interface{}, error) {
		return []map[string]string{{"crew_id": "C1"}}, nil
	})
	require.NoError(t, reg.Register(crewTool))

	return reg
}

func newTestSpecialist(t *testing.T, name AgentName, provider ai.ChatProvider, categories ...string) *Specialist {
	t.Helper()
	cfg := AgentConfigs()[name]
	if len(categories) > 0 {
		cfg.ToolCategories = categories
	}
	scoped := testToolRegistry(t).Scoped(name.String(), cfg.ToolCategories)
	return NewSpecialist(cfg, provider, scoped, testSettings())
}

func TestSpecialist_SuccessfulAssessment(t *testing.T) {
	provider := &fakeProvider{responses: []*ai.ChatResponse{
		textResponse(assessmentJSON("swap the standby crew in", 0.9)),
	}}

	s := newTestSpecialist(t, AgentCrewCompliance, provider)
	resp := s.Invoke(context.Background(), &AgentTask{
		AgentName: AgentCrewCompliance,
		Phase:     PhaseInitial,
		Prompt:    "EY123 delayed 3 hours",
	})

	require.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, AgentCrewCompliance, resp.AgentName)
	assert.Equal(t, "swap the standby crew in", resp.Recommendation)
	assert.Equal(t, 0.9, resp.Confidence)
	assert.Empty(t, resp.Error)
	assert.Greater(t, resp.DurationSeconds, 0.0)
}

func TestSpecialist_ToolLoopFeedsResultsBack(t *testing.T) {
	provider := &fakeProvider{responses: []*ai.ChatResponse{
		toolCallResponse("call-1", "get_flight_status", `{"flight_number":"EY123"}`),
		textResponse(assessmentJSON("hold departure 45 minutes", 0.8)),
	}}

	s := newTestSpecialist(t, AgentCrewCompliance, provider)
	resp := s.Invoke(context.Background(), &AgentTask{
		AgentName: AgentCrewCompliance,
		Phase:     PhaseInitial,
		Prompt:    "EY123 delayed",
	})

	require.Equal(t, StatusSuccess, resp.Status)
	require.Equal(t, 2, provider.calls)

	// The second model turn carries the tool result message
	second := provider.requests[1]
	last := second.Messages[len(second.Messages)-1]
	assert.Equal(t, ai.RoleTool, last.Role)
	assert.Equal(t, "call-1", last.ToolCallID)
	assert.Contains(t, last.Content, "delayed")
}

func TestSpecialist_OutOfGrantToolRejected(t *testing.T) {
	// Regulatory's grant has no crew category; the call is rejected by
	// the tool layer and the error goes back to the model, which then
	// answers without the data.
	provider := &fakeProvider{responses: []*ai.ChatResponse{
		toolCallResponse("call-1", "get_crew_roster", `{}`),
		textResponse(assessmentJSON("no curfew conflict", 0.7)),
	}}

	s := newTestSpecialist(t, AgentRegulatory, provider, tools.CategoryFlight)
	resp := s.Invoke(context.Background(), &AgentTask{
		AgentName: AgentRegulatory,
		Phase:     PhaseInitial,
		Prompt:    "late departure",
	})

	require.Equal(t, StatusSuccess, resp.Status)

	second := provider.requests[1]
	last := second.Messages[len(second.Messages)-1]
	assert.Equal(t, ai.RoleTool, last.Role)
	assert.Contains(t, last.Content, errors.ErrToolAccessDenied.Error())
}

func TestSpecialist_MalformedOutputBecomesError(t *testing.T) {
	provider := &fakeProvider{responses: []*ai.ChatResponse{
		textResponse("the flight should probably just wait a bit"),
	}}

	s := newTestSpecialist(t, AgentFinance, provider)
	resp := s.Invoke(context.Background(), &AgentTask{AgentName: AgentFinance, Phase: PhaseInitial, Prompt: "p"})

	require.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "malformed_output", resp.ErrorType)
	assert.Empty(t, resp.Recommendation)
}

func TestSpecialist_ConfidenceOutOfRangeRejected(t *testing.T) {
	provider := &fakeProvider{responses: []*ai.ChatResponse{
		textResponse(assessmentJSON("do something", 1.7)),
	}}

	s := newTestSpecialist(t, AgentFinance, provider)
	resp := s.Invoke(context.Background(), &AgentTask{AgentName: AgentFinance, Phase: PhaseInitial, Prompt: "p"})

	require.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "malformed_output", resp.ErrorType)
}

func TestSpecialist_ProviderErrorContained(t *testing.T) {
	provider := &fakeProvider{errs: []error{errors.ErrProviderUnavailable, errors.ErrProviderUnavailable}}

	s := newTestSpecialist(t, AgentNetwork, provider)
	resp := s.Invoke(context.Background(), &AgentTask{AgentName: AgentNetwork, Phase: PhaseInitial, Prompt: "p"})

	require.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "provider_unavailable", resp.ErrorType)
	assert.NotEmpty(t, resp.Error)
}

func TestSpecialist_TransientErrorRetriedOnce(t *testing.T) {
	provider := &fakeProvider{
		errs:      []error{errors.ErrRateLimitExceeded},
		responses: []*ai.ChatResponse{nil, textResponse(assessmentJSON("retry worked", 0.8))},
	}

	s := newTestSpecialist(t, AgentNetwork, provider)
	resp := s.Invoke(context.Background(), &AgentTask{AgentName: AgentNetwork, Phase: PhaseInitial, Prompt: "p"})

	require.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, "retry worked", resp.Recommendation)
	assert.Equal(t, 2, provider.calls)
}

func TestSpecialist_NoRetryWhenBudgetNearlyGone(t *testing.T) {
	provider := &fakeProvider{errs: []error{errors.ErrRateLimitExceeded, errors.ErrRateLimitExceeded}}

	s := newTestSpecialist(t, AgentNetwork, provider)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp := s.Invoke(ctx, &AgentTask{AgentName: AgentNetwork, Phase: PhaseInitial, Prompt: "p"})

	require.Equal(t, StatusError, resp.Status)
	assert.Equal(t, 1, provider.calls, "no retry with under a third of the budget left")
}

func TestSpecialist_NonSafetyConstraintsDropped(t *testing.T) {
	withConstraint := `{
		"recommendation": "delay is cheapest",
		"reasoning": "cost bands",
		"confidence": 0.8,
		"binding_constraints": [{"id": "FIN-01", "description": "too expensive"}]
	}`
	provider := &fakeProvider{responses: []*ai.ChatResponse{textResponse(withConstraint)}}

	s := newTestSpecialist(t, AgentFinance, provider)
	resp := s.Invoke(context.Background(), &AgentTask{AgentName: AgentFinance, Phase: PhaseInitial, Prompt: "p"})

	require.Equal(t, StatusSuccess, resp.Status)
	assert.Empty(t, resp.BindingConstraints, "only safety-critical agents may assert hard blocks")
}

func TestSpecialist_SafetyConstraintsKept(t *testing.T) {
	withConstraint := `{
		"recommendation": "ground the aircraft",
		"reasoning": "non-deferrable defect",
		"confidence": 0.95,
		"binding_constraints": [{"id": "MX-HYD-01", "description": "hydraulic defect"}]
	}`
	provider := &fakeProvider{responses: []*ai.ChatResponse{textResponse(withConstraint)}}

	s := newTestSpecialist(t, AgentMaintenance, provider)
	resp := s.Invoke(context.Background(), &AgentTask{AgentName: AgentMaintenance, Phase: PhaseInitial, Prompt: "p"})

	require.Equal(t, StatusSuccess, resp.Status)
	require.Len(t, resp.BindingConstraints, 1)
	assert.Equal(t, "MX-HYD-01", resp.BindingConstraints[0].ID)
}

func TestSpecialist_RevisionInstructionCarriesPeers(t *testing.T) {
	provider := &fakeProvider{responses: []*ai.ChatResponse{
		textResponse(assessmentJSON("confirmed", 0.9)),
	}}

	s := newTestSpecialist(t, AgentCrewCompliance, provider)
	s.Invoke(context.Background(), &AgentTask{
		AgentName: AgentCrewCompliance,
		Phase:     PhaseRevision,
		Prompt:    "EY123 delayed",
		PeerContext: map[AgentName]*AgentResponse{
			AgentNetwork: successResponse(AgentNetwork, "swap aircraft"),
			AgentCargo:   {AgentName: AgentCargo, Status: StatusError, Error: "boom"},
		},
	})

	require.Len(t, provider.requests, 1)
	instruction := provider.requests[0].Messages[1].Content
	assert.Contains(t, instruction, "swap aircraft")
	assert.Contains(t, instruction, "No assessment available (error)")
	assert.Contains(t, instruction, "confirm")
	assert.NotContains(t, instruction, "[crew_compliance]")
}

func TestSpecialist_ToolTurnCapEnforced(t *testing.T) {
	// A model that never stops calling tools exhausts the cap and fails
	loop := toolCallResponse("call-x", "get_flight_status", `{}`)
	provider := &fakeProvider{responses: []*ai.ChatResponse{loop}}

	settings := testSettings()
	settings.MaxToolTurns = 3
	cfg := AgentConfigs()[AgentCrewCompliance]
	scoped := testToolRegistry(t).Scoped(cfg.Name.String(), cfg.ToolCategories)
	s := NewSpecialist(cfg, provider, scoped, settings)

	resp := s.Invoke(context.Background(), &AgentTask{AgentName: AgentCrewCompliance, Phase: PhaseInitial, Prompt: "p"})

	require.Equal(t, StatusError, resp.Status)
	assert.Equal(t, 3, provider.calls)
	assert.Contains(t, resp.Error, "no final assessment")
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, false},
		{"prose prefix", `Here you go: {"a":1} hope that helps`, `{"a":1}`, false},
		{"markdown fence", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"nested braces", `{"a":{"b":2}}`, `{"a":{"b":2}}`, false},
		{"brace in string", `{"a":"}"}`, `{"a":"}"}`, false},
		{"no object", "nothing here", "", true},
		{"unbalanced", `{"a":1`, "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractJSONObject(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrMalformedOutput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseAssessment_DropsConstraintsWithoutIDs(t *testing.T) {
	payload, err := parseAssessment(`{
		"recommendation": "r", "reasoning": "x", "confidence": 0.5,
		"binding_constraints": [
			{"id": "", "description": "untracked"},
			{"id": "REG-1", "description": "tracked"}
		]
	}`)
	require.NoError(t, err)
	require.Len(t, payload.BindingConstraints, 1)
	assert.Equal(t, "REG-1", payload.BindingConstraints[0].ID)
}
