package agents

// BuildRevisionTasks constructs the second round's tasks from the initial
// Collation. Each agent present in the initial phase gets a revision task
// whose peer context holds every other agent's response, failures and
// timeouts included, so agents can account for missing input instead of
// assuming consensus.
//
// Deterministic: the same Collation always yields the same tasks, in
// canonical agent order.
func BuildRevisionTasks(initial *Collation, prompt, requestID, sessionID string) []*AgentTask {
	names := initial.AgentNames()

	tasks := make([]*AgentTask, 0, len(names))
	for _, name := range names {
		peers := make(map[AgentName]*AgentResponse, len(names)-1)
		for peer, resp := range initial.Responses {
			if peer == name {
				continue
			}
			peers[peer] = resp
		}

		tasks = append(tasks, &AgentTask{
			AgentName:   name,
			Phase:       PhaseRevision,
			RequestID:   requestID,
			SessionID:   sessionID,
			Prompt:      prompt,
			PeerContext: peers,
		})
	}

	return tasks
}

// RevisionTaskFor returns a buildTask function over a prepared task list,
// for handing to the PhaseScheduler.
func RevisionTaskFor(tasks []*AgentTask) func(name AgentName) *AgentTask {
	byName := make(map[AgentName]*AgentTask, len(tasks))
	for _, t := range tasks {
		byName[t.AgentName] = t
	}
	return func(name AgentName) *AgentTask {
		return byName[name]
	}
}
