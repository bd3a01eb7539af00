package agents

import (
	"context"
	"sync"
	"time"

	"skymarshal/internal/adapters/ai"
)

// fakeInvoker is a scriptable agent for scheduler and orchestrator tests
type fakeInvoker struct {
	name  AgentName
	delay time.Duration
	fn    func(ctx context.Context, task *AgentTask) *AgentResponse

	mu    sync.Mutex
	tasks []*AgentTask
}

func (f *fakeInvoker) Name() AgentName { return f.name }

func (f *fakeInvoker) Invoke(ctx context.Context, task *AgentTask) *AgentResponse {
	f.mu.Lock()
	f.tasks = append(f.tasks, task)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			// Keep blocking past the deadline to exercise abandonment
			time.Sleep(f.delay)
		}
	}

	if f.fn != nil {
		return f.fn(ctx, task)
	}
	return &AgentResponse{
		AgentName:      f.name,
		Status:         StatusSuccess,
		Recommendation: "hold and monitor",
		Reasoning:      "no data suggests otherwise",
		Confidence:     0.8,
	}
}

func succeedingInvoker(name AgentName) *fakeInvoker {
	return &fakeInvoker{name: name}
}

// fakeProvider returns scripted chat responses in order
type fakeProvider struct {
	mu        sync.Mutex
	responses []*ai.ChatResponse
	errs      []error
	calls     int
	requests  []ai.ChatRequest
}

func (p *fakeProvider) Name() string        { return "fake" }
func (p *fakeProvider) SupportsTools() bool { return true }

func (p *fakeProvider) GetModel(_ context.Context, model string) (ai.ModelInfo, error) {
	return ai.ModelInfo{Name: model}, nil
}

func (p *fakeProvider) Chat(_ context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.calls
	p.calls++
	p.requests = append(p.requests, req)

	if idx < len(p.errs) && p.errs[idx] != nil {
		return nil, p.errs[idx]
	}
	if idx < len(p.responses) && p.responses[idx] != nil {
		return p.responses[idx], nil
	}
	// Repeat the last scripted response for any extra calls
	if len(p.responses) > 0 {
		return p.responses[len(p.responses)-1], nil
	}
	return &ai.ChatResponse{}, nil
}

func textResponse(content string) *ai.ChatResponse {
	return &ai.ChatResponse{
		Choices: []ai.Choice{{
			Message:      ai.Message{Role: ai.RoleAssistant, Content: content},
			FinishReason: ai.FinishReasonStop,
		}},
	}
}

func toolCallResponse(id, name, args string) *ai.ChatResponse {
	return &ai.ChatResponse{
		Choices: []ai.Choice{{
			Message: ai.Message{
				Role: ai.RoleAssistant,
				ToolCalls: []ai.ToolCall{{
					ID:       id,
					Type:     "function",
					Function: ai.FunctionCall{Name: name, Arguments: args},
				}},
			},
			FinishReason: ai.FinishReasonToolCalls,
		}},
	}
}

func collationOf(phase Phase, responses ...*AgentResponse) *Collation {
	c := NewCollation(phase)
	for _, r := range responses {
		c.Responses[r.AgentName] = r
	}
	return c
}

func successResponse(name AgentName, recommendation string) *AgentResponse {
	return &AgentResponse{
		AgentName:      name,
		Status:         StatusSuccess,
		Recommendation: recommendation,
		Reasoning:      "grounded in roster data",
		Confidence:     0.85,
	}
}
