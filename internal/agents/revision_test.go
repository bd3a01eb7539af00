package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRevisionTasks_ExcludesOwnResponse(t *testing.T) {
	initial := collationOf(PhaseInitial,
		successResponse(AgentCrewCompliance, "swap crew"),
		successResponse(AgentMaintenance, "defer under MEL"),
		successResponse(AgentNetwork, "aircraft swap"),
	)

	tasks := BuildRevisionTasks(initial, "EY123 delayed", "req-1", "sess-1")
	require.Len(t, tasks, 3)

	for _, task := range tasks {
		assert.Equal(t, PhaseRevision, task.Phase)
		assert.NotContains(t, task.PeerContext, task.AgentName,
			"agent %s saw its own response", task.AgentName)
		assert.Len(t, task.PeerContext, 2)
	}
}

func TestBuildRevisionTasks_FailedPeersStillPresent(t *testing.T) {
	initial := collationOf(PhaseInitial,
		successResponse(AgentCrewCompliance, "swap crew"),
		&AgentResponse{
			AgentName: AgentMaintenance,
			Status:    StatusTimeout,
			Error:     "exceeded timeout",
		},
	)

	tasks := BuildRevisionTasks(initial, "p", "r", "s")
	require.Len(t, tasks, 2)

	var crewTask *AgentTask
	for _, task := range tasks {
		if task.AgentName == AgentCrewCompliance {
			crewTask = task
		}
	}
	require.NotNil(t, crewTask)

	peer, ok := crewTask.PeerContext[AgentMaintenance]
	require.True(t, ok, "timed-out peer must still occupy a context slot")
	assert.Equal(t, StatusTimeout, peer.Status)
	assert.Empty(t, peer.Recommendation)
}

func TestBuildRevisionTasks_Deterministic(t *testing.T) {
	initial := collationOf(PhaseInitial,
		successResponse(AgentNetwork, "swap"),
		successResponse(AgentFinance, "delay only"),
		successResponse(AgentCargo, "offload"),
	)

	first := BuildRevisionTasks(initial, "p", "r", "s")
	second := BuildRevisionTasks(initial, "p", "r", "s")

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].AgentName, second[i].AgentName)
		assert.Equal(t, len(first[i].PeerContext), len(second[i].PeerContext))
	}
}

func TestBuildRevisionTasks_SupportsPartialRoster(t *testing.T) {
	initial := collationOf(PhaseInitial,
		successResponse(AgentRegulatory, "waiver possible"),
	)

	tasks := BuildRevisionTasks(initial, "p", "r", "s")
	require.Len(t, tasks, 1)
	assert.Equal(t, AgentRegulatory, tasks[0].AgentName)
	assert.Empty(t, tasks[0].PeerContext)
}

func TestRevisionTaskFor_LooksUpByName(t *testing.T) {
	initial := collationOf(PhaseInitial,
		successResponse(AgentNetwork, "swap"),
		successResponse(AgentFinance, "delay only"),
	)

	tasks := BuildRevisionTasks(initial, "p", "r", "s")
	build := RevisionTaskFor(tasks)

	task := build(AgentFinance)
	require.NotNil(t, task)
	assert.Equal(t, AgentFinance, task.AgentName)
	assert.Contains(t, task.PeerContext, AgentNetwork)
}
