package agents

import (
	"context"
	"sync"
	"time"

	"skymarshal/pkg/logger"
)

// PhaseScheduler runs a set of invokers concurrently and collects a
// complete Collation. Every scheduled agent produces exactly one slot:
// success, error, or a synthesized timeout.
type PhaseScheduler struct {
	timeout time.Duration
	log     *logger.Logger
}

// NewPhaseScheduler creates a scheduler with a per-agent wall-clock budget
func NewPhaseScheduler(timeout time.Duration) *PhaseScheduler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PhaseScheduler{
		timeout: timeout,
		log:     logger.Get().With("component", "phase_scheduler"),
	}
}

// RunPhase launches every invoker concurrently, waits for all of them to
// settle, and returns the phase's Collation. buildTask constructs each
// agent's task; the scheduler owns the timeout and failure isolation.
func (ps *PhaseScheduler) RunPhase(
	ctx context.Context,
	phase Phase,
	invokers []Invoker,
	buildTask func(name AgentName) *AgentTask,
) *Collation {
	collation := NewCollation(phase)
	if len(invokers) == 0 {
		return collation
	}

	ps.log.Infow("Phase starting",
		"phase", phase,
		"agents", len(invokers),
		"timeout", ps.timeout,
	)

	results := make(chan *AgentResponse, len(invokers))
	var wg sync.WaitGroup

	for _, inv := range invokers {
		wg.Add(1)
		go func(inv Invoker) {
			defer wg.Done()
			results <- ps.runOne(ctx, inv, buildTask(inv.Name()))
		}(inv)
	}

	wg.Wait()
	close(results)

	for resp := range results {
		collation.Responses[resp.AgentName] = resp
	}

	ps.log.Infow("Phase settled",
		"phase", phase,
		"succeeded", len(collation.Successful()),
		"failed", len(collation.Failed()),
	)

	return collation
}

// runOne runs a single invocation under the per-agent budget. On expiry
// the in-flight invocation is abandoned (its goroutine drains into the
// buffered channel) and a timeout slot is synthesized so the phase
// never loses an agent.
func (ps *PhaseScheduler) runOne(ctx context.Context, inv Invoker, task *AgentTask) *AgentResponse {
	start := time.Now()

	agentCtx, cancel := context.WithTimeout(ctx, ps.timeout)
	defer cancel()

	done := make(chan *AgentResponse, 1)
	go func() {
		done <- inv.Invoke(agentCtx, task)
	}()

	select {
	case resp := <-done:
		if resp == nil {
			// Invoke must never return nil; treat it as an execution error.
			return &AgentResponse{
				AgentName:       inv.Name(),
				Status:          StatusError,
				Error:           "agent returned no response",
				ErrorType:       "execution_error",
				DurationSeconds: time.Since(start).Seconds(),
			}
		}
		return resp

	case <-agentCtx.Done():
		elapsed := time.Since(start)
		ps.log.Warnw("Agent abandoned",
			"agent", inv.Name(),
			"phase", task.Phase,
			"elapsed", elapsed,
		)
		return &AgentResponse{
			AgentName:       inv.Name(),
			Status:          StatusTimeout,
			Error:           "exceeded timeout",
			ErrorType:       "timeout",
			DurationSeconds: elapsed.Seconds(),
		}
	}
}
