package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initialTaskFor(prompt string) func(name AgentName) *AgentTask {
	return func(name AgentName) *AgentTask {
		return &AgentTask{
			AgentName: name,
			Phase:     PhaseInitial,
			Prompt:    prompt,
		}
	}
}

func TestRunPhase_EveryAgentOccupiesASlot(t *testing.T) {
	invokers := make([]Invoker, 0, len(AllAgents()))
	for _, name := range AllAgents() {
		invokers = append(invokers, succeedingInvoker(name))
	}

	scheduler := NewPhaseScheduler(5 * time.Second)
	collation := scheduler.RunPhase(context.Background(), PhaseInitial, invokers, initialTaskFor("EY123 delayed"))

	require.Equal(t, len(AllAgents()), collation.AgentCount())
	for _, name := range AllAgents() {
		resp, ok := collation.Responses[name]
		require.True(t, ok, "agent %s missing from collation", name)
		assert.Equal(t, name, resp.AgentName)
		assert.Equal(t, StatusSuccess, resp.Status)
	}
}

func TestRunPhase_TimeoutIsolatedToOneAgent(t *testing.T) {
	slow := &fakeInvoker{name: AgentMaintenance, delay: 500 * time.Millisecond}
	invokers := []Invoker{
		succeedingInvoker(AgentCrewCompliance),
		slow,
		succeedingInvoker(AgentNetwork),
	}

	scheduler := NewPhaseScheduler(100 * time.Millisecond)

	start := time.Now()
	collation := scheduler.RunPhase(context.Background(), PhaseInitial, invokers, initialTaskFor("hydraulic fault"))
	elapsed := time.Since(start)

	require.Equal(t, 3, collation.AgentCount())

	timedOut := collation.Responses[AgentMaintenance]
	assert.Equal(t, StatusTimeout, timedOut.Status)
	assert.Equal(t, "exceeded timeout", timedOut.Error)
	assert.InDelta(t, 0.1, timedOut.DurationSeconds, 0.15)

	assert.Equal(t, StatusSuccess, collation.Responses[AgentCrewCompliance].Status)
	assert.Equal(t, StatusSuccess, collation.Responses[AgentNetwork].Status)

	// The phase settles at the timeout, not at the slow agent's duration
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestRunPhase_ErrorContainedToFailingAgent(t *testing.T) {
	failing := &fakeInvoker{
		name: AgentCargo,
		fn: func(context.Context, *AgentTask) *AgentResponse {
			return &AgentResponse{
				AgentName: AgentCargo,
				Status:    StatusError,
				Error:     "model call: connection refused",
				ErrorType: "provider_unavailable",
			}
		},
	}

	invokers := make([]Invoker, 0, len(AllAgents()))
	for _, name := range AllAgents() {
		if name == AgentCargo {
			invokers = append(invokers, failing)
			continue
		}
		invokers = append(invokers, succeedingInvoker(name))
	}

	scheduler := NewPhaseScheduler(5 * time.Second)
	collation := scheduler.RunPhase(context.Background(), PhaseInitial, invokers, initialTaskFor("crew sick"))

	require.Equal(t, len(AllAgents()), collation.AgentCount())
	assert.Equal(t, StatusError, collation.Responses[AgentCargo].Status)

	successes := collation.Successful()
	assert.Len(t, successes, len(AllAgents())-1)
	assert.NotContains(t, successes, AgentCargo)
	assert.Equal(t, []AgentName{AgentCargo}, collation.Failed())
}

func TestRunPhase_NilResponseBecomesErrorSlot(t *testing.T) {
	broken := &fakeInvoker{
		name: AgentFinance,
		fn:   func(context.Context, *AgentTask) *AgentResponse { return nil },
	}

	scheduler := NewPhaseScheduler(time.Second)
	collation := scheduler.RunPhase(context.Background(), PhaseInitial, []Invoker{broken}, initialTaskFor("x"))

	require.Equal(t, 1, collation.AgentCount())
	assert.Equal(t, StatusError, collation.Responses[AgentFinance].Status)
}

func TestRunPhase_EmptyRoster(t *testing.T) {
	scheduler := NewPhaseScheduler(time.Second)
	collation := scheduler.RunPhase(context.Background(), PhaseInitial, nil, initialTaskFor("x"))

	assert.Equal(t, 0, collation.AgentCount())
	assert.Equal(t, PhaseInitial, collation.Phase)
}
