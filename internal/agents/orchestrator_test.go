package agents

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skymarshal/internal/adapters/ai"
	repoch "skymarshal/internal/repository/clickhouse"
)

type fakeSessionStore struct {
	mu      sync.Mutex
	touches []string
}

func (f *fakeSessionStore) Touch(_ context.Context, sessionID, requestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touches = append(f.touches, sessionID+"/"+requestID)
	return nil
}

type fakeArchiver struct {
	mu      sync.Mutex
	records []*repoch.DecisionRecord
}

func (f *fakeArchiver) StoreAsync(rec *repoch.DecisionRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
}

func fullRoster() *Registry {
	invokers := make([]Invoker, 0, len(AllAgents()))
	for _, name := range AllAgents() {
		invokers = append(invokers, succeedingInvoker(name))
	}
	return NewRegistryFromInvokers(invokers...)
}

func workingArbitrator() *Arbitrator {
	provider := &fakeProvider{responses: []*ai.ChatResponse{
		textResponse(arbitrationJSON(
			solutionJSON(1, "Swap aircraft", 90, 80, 85, 60),
			solutionJSON(2, "Absorb delay", 75, 60, 50, 90),
		)),
	}}
	return NewArbitrator(provider, testSettings())
}

func newTestOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	return NewOrchestrator(
		fullRoster(),
		NewPhaseScheduler(5*time.Second),
		workingArbitrator(),
		5*time.Second,
		opts...,
	)
}

func TestHandleDisruption_MissingPromptRejected(t *testing.T) {
	o := newTestOrchestrator()

	resp := o.HandleDisruption(context.Background(), &DisruptionRequest{})

	assert.Equal(t, StatusFailed, resp.Status)
	assert.Equal(t, "prompt is required", resp.Error)
	assert.Nil(t, resp.Assessment, "no audit trail before any phase runs")
	assert.NotEmpty(t, resp.RequestID)
}

func TestHandleDisruption_NilRequestRejected(t *testing.T) {
	o := newTestOrchestrator()
	resp := o.HandleDisruption(context.Background(), nil)
	assert.Equal(t, StatusFailed, resp.Status)
}

func TestHandleDisruption_CompleteEnvelope(t *testing.T) {
	o := newTestOrchestrator()

	resp := o.HandleDisruption(context.Background(), &DisruptionRequest{
		Prompt: "Flight EY123 delayed 3 hours, hydraulic fault",
	})

	require.Equal(t, StatusComplete, resp.Status)
	assert.NotEmpty(t, resp.RequestID)
	assert.NotEmpty(t, resp.SessionID, "session is minted when absent")
	assert.GreaterOrEqual(t, resp.ExecutionTimeMs, int64(0))
	assert.Empty(t, resp.Error)

	require.NotNil(t, resp.Timings)
	require.NotNil(t, resp.Assessment)

	trail := resp.Assessment.AuditTrail
	require.NotNil(t, trail)
	assert.Equal(t, PhaseInitial, trail.Phase1Initial.Phase)
	assert.Equal(t, PhaseRevision, trail.Phase2Revision.Phase)
	assert.Equal(t, len(AllAgents()), trail.Phase1Initial.AgentCount())
	assert.Equal(t, len(AllAgents()), trail.Phase2Revision.AgentCount())

	arb := trail.Phase3Arbitration
	require.NotNil(t, arb)
	require.NotEmpty(t, arb.SolutionOptions)
	assert.LessOrEqual(t, len(arb.SolutionOptions), 3)
	assert.Equal(t, arb.SolutionOptions[0].SolutionID, arb.RecommendedSolutionID)
}

func TestHandleDisruption_SessionThreadedUnchanged(t *testing.T) {
	o := newTestOrchestrator()

	resp := o.HandleDisruption(context.Background(), &DisruptionRequest{
		Prompt:    "crew sick at outstation",
		SessionID: "sess-existing",
	})

	assert.Equal(t, "sess-existing", resp.SessionID)
}

func TestHandleDisruption_SessionTouched(t *testing.T) {
	store := &fakeSessionStore{}
	o := newTestOrchestrator(WithSessionStore(store))

	resp := o.HandleDisruption(context.Background(), &DisruptionRequest{
		Prompt:    "p",
		SessionID: "sess-1",
	})

	require.Len(t, store.touches, 1)
	assert.Equal(t, "sess-1/"+resp.RequestID, store.touches[0])
}

func TestHandleDisruption_RevisionSeesPhase1Output(t *testing.T) {
	tracked := &fakeInvoker{name: AgentFinance}
	invokers := []Invoker{
		succeedingInvoker(AgentNetwork),
		tracked,
	}

	o := NewOrchestrator(
		NewRegistryFromInvokers(invokers...),
		NewPhaseScheduler(5*time.Second),
		workingArbitrator(),
		5*time.Second,
	)

	resp := o.HandleDisruption(context.Background(), &DisruptionRequest{Prompt: "p"})
	require.Equal(t, StatusComplete, resp.Status)

	require.Len(t, tracked.tasks, 2, "one task per phase")
	assert.Equal(t, PhaseInitial, tracked.tasks[0].Phase)
	assert.Empty(t, tracked.tasks[0].PeerContext)

	revision := tracked.tasks[1]
	assert.Equal(t, PhaseRevision, revision.Phase)
	require.Contains(t, revision.PeerContext, AgentNetwork)
	assert.NotContains(t, revision.PeerContext, AgentFinance)
}

func TestHandleDisruption_PartialFailureKeepsEnvelopeShape(t *testing.T) {
	invokers := make([]Invoker, 0, len(AllAgents()))
	for _, name := range AllAgents() {
		name := name
		if name == AgentMaintenance {
			invokers = append(invokers, &fakeInvoker{
				name: name,
				fn: func(context.Context, *AgentTask) *AgentResponse {
					return &AgentResponse{AgentName: name, Status: StatusError, Error: "boom"}
				},
			})
			continue
		}
		invokers = append(invokers, succeedingInvoker(name))
	}

	o := NewOrchestrator(
		NewRegistryFromInvokers(invokers...),
		NewPhaseScheduler(5*time.Second),
		workingArbitrator(),
		5*time.Second,
	)

	resp := o.HandleDisruption(context.Background(), &DisruptionRequest{Prompt: "p"})

	require.Equal(t, StatusComplete, resp.Status, "partial agent failure degrades content, not shape")
	trail := resp.Assessment.AuditTrail
	assert.Equal(t, len(AllAgents()), trail.Phase1Initial.AgentCount())
	assert.Equal(t, StatusError, trail.Phase1Initial.Responses[AgentMaintenance].Status)
}

func TestHandleDisruption_ArbitrationFailureIsRequestError(t *testing.T) {
	broken := NewArbitrator(&fakeProvider{responses: []*ai.ChatResponse{
		textResponse("not json at all"),
	}}, testSettings())

	o := NewOrchestrator(fullRoster(), NewPhaseScheduler(5*time.Second), broken, 5*time.Second)

	resp := o.HandleDisruption(context.Background(), &DisruptionRequest{Prompt: "p"})

	assert.Equal(t, StatusFailed, resp.Status)
	assert.Contains(t, resp.Error, "arbitration failed")
	assert.Nil(t, resp.Assessment)
}

func TestHandleDisruption_EscalationSurfacedInTrail(t *testing.T) {
	constrained := &fakeInvoker{
		name: AgentRegulatory,
		fn: func(_ context.Context, task *AgentTask) *AgentResponse {
			r := successResponse(AgentRegulatory, "departure forbidden")
			r.BindingConstraints = []BindingConstraint{
				{ID: "REG-CURFEW-LHR", Description: "hard curfew"},
			}
			return r
		},
	}

	arb := NewArbitrator(&fakeProvider{responses: []*ai.ChatResponse{
		textResponse(arbitrationJSON(
			solutionJSON(1, "Depart anyway", 80, 80, 80, 80, "REG-CURFEW-LHR"),
		)),
	}}, testSettings())

	o := NewOrchestrator(
		NewRegistryFromInvokers(constrained, succeedingInvoker(AgentNetwork)),
		NewPhaseScheduler(5*time.Second),
		arb,
		5*time.Second,
	)

	resp := o.HandleDisruption(context.Background(), &DisruptionRequest{Prompt: "p"})

	require.Equal(t, StatusComplete, resp.Status)
	arbResult := resp.Assessment.AuditTrail.Phase3Arbitration
	assert.Empty(t, arbResult.SolutionOptions)
	assert.True(t, arbResult.EscalationRequired)
	assert.NotEmpty(t, arbResult.EscalationReason)
}

func TestHandleDisruption_DecisionArchived(t *testing.T) {
	archiver := &fakeArchiver{}
	o := newTestOrchestrator(WithDecisionArchive(archiver))

	resp := o.HandleDisruption(context.Background(), &DisruptionRequest{Prompt: "EY123 delayed"})
	require.Equal(t, StatusComplete, resp.Status)

	require.Len(t, archiver.records, 1)
	rec := archiver.records[0]
	assert.Equal(t, resp.RequestID, rec.RequestID)
	assert.Equal(t, "EY123 delayed", rec.Prompt)
	assert.Equal(t, StatusComplete, rec.Status)
	assert.NotEmpty(t, rec.AuditTrailJSON)
	assert.Equal(t, uint8(2), rec.SolutionCount)
}
