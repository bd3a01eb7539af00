package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"skymarshal/internal/adapters/ai"
	"skymarshal/internal/tools"
	"skymarshal/pkg/errors"
	"skymarshal/pkg/logger"
)

// Invoker runs agent tasks. The concrete implementation is a model-backed
// specialist; tests substitute their own.
type Invoker interface {
	Name() AgentName
	Invoke(ctx context.Context, task *AgentTask) *AgentResponse
}

// InvokerSettings bounds one agent invocation.
type InvokerSettings struct {
	Model        string
	MaxToolTurns int
	MaxRetries   int
	MaxTokens    int
	Temperature  float64
}

// Specialist is one domain agent: an immutable instruction, a model
// provider, and a scoped tool grant.
type Specialist struct {
	cfg      AgentConfig
	provider ai.ChatProvider
	tools    *tools.ScopedRegistry
	settings InvokerSettings
	log      *logger.Logger
}

// NewSpecialist creates a specialist agent
func NewSpecialist(cfg AgentConfig, provider ai.ChatProvider, scoped *tools.ScopedRegistry, settings InvokerSettings) *Specialist {
	if settings.MaxToolTurns <= 0 {
		settings.MaxToolTurns = 8
	}
	return &Specialist{
		cfg:      cfg,
		provider: provider,
		tools:    scoped,
		settings: settings,
		log:      logger.Get().With("agent", cfg.Name.String()),
	}
}

// Name returns the agent identifier
func (s *Specialist) Name() AgentName {
	return s.cfg.Name
}

// Invoke runs one task to completion. Every failure mode (provider
// errors, tool errors, malformed output, panics) is normalized into an
// AgentResponse; the scheduler never sees a raw error from this boundary.
func (s *Specialist) Invoke(ctx context.Context, task *AgentTask) (resp *AgentResponse) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("Agent panicked: %v", r)
			resp = s.failure(start, errors.ErrAgentExecution, fmt.Sprintf("agent panicked: %v", r))
		}
	}()

	payload, err := s.invokeWithRetry(ctx, task)
	if err != nil {
		return s.failure(start, err, err.Error())
	}

	return &AgentResponse{
		AgentName:          s.cfg.Name,
		Status:             StatusSuccess,
		Recommendation:     payload.Recommendation,
		Reasoning:          payload.Reasoning,
		DataSources:        payload.DataSources,
		Confidence:         payload.Confidence,
		BindingConstraints: s.filterConstraints(payload.BindingConstraints),
		DurationSeconds:    time.Since(start).Seconds(),
	}
}

// invokeWithRetry retries transient provider failures once, and only if
// at least a third of the task's time budget remains. Retries never
// extend the budget.
func (s *Specialist) invokeWithRetry(ctx context.Context, task *AgentTask) (*assessmentPayload, error) {
	payload, err := s.runConversation(ctx, task)
	if err == nil {
		return payload, nil
	}

	for attempt := 0; attempt < s.settings.MaxRetries; attempt++ {
		if !isTransient(err) || !enoughBudgetLeft(ctx) {
			break
		}
		s.log.Warnf("Retrying after transient failure: %v", err)
		payload, err = s.runConversation(ctx, task)
		if err == nil {
			return payload, nil
		}
	}

	return nil, err
}

func isTransient(err error) bool {
	return errors.Is(err, errors.ErrProviderUnavailable) || errors.Is(err, errors.ErrRateLimitExceeded)
}

// minRetryBudget is a third of the default agent budget. A retry with
// less remaining would almost certainly land as a timeout slot anyway.
const minRetryBudget = 10 * time.Second

// enoughBudgetLeft reports whether a retry has a realistic chance of
// finishing before the task deadline. No deadline means no restriction.
func enoughBudgetLeft(ctx context.Context) bool {
	deadline, ok := ctx.Deadline()
	if !ok {
		return true
	}
	return time.Until(deadline) > minRetryBudget
}

// runConversation drives the tool-calling loop: model turn, execute any
// requested tools, feed results back, repeat until the model emits its
// final assessment or the turn cap is hit.
func (s *Specialist) runConversation(ctx context.Context, task *AgentTask) (*assessmentPayload, error) {
	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: s.cfg.SystemPrompt},
		{Role: ai.RoleUser, Content: s.buildInstruction(task)},
	}

	defs := s.tools.Definitions()

	for turn := 0; turn < s.settings.MaxToolTurns; turn++ {
		resp, err := s.provider.Chat(ctx, ai.ChatRequest{
			Model:       s.settings.Model,
			Messages:    messages,
			Tools:       defs,
			Temperature: s.settings.Temperature,
			MaxTokens:   s.settings.MaxTokens,
		})
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return nil, errors.Wrap(errors.ErrAgentTimeout, "model call exceeded budget")
			}
			return nil, errors.Wrap(err, "model call")
		}
		if len(resp.Choices) == 0 {
			return nil, errors.Wrap(errors.ErrMalformedOutput, "empty choice list")
		}

		choice := resp.Choices[0]
		messages = append(messages, choice.Message)

		if len(choice.Message.ToolCalls) == 0 {
			return parseAssessment(choice.Message.Content)
		}

		for _, call := range choice.Message.ToolCalls {
			messages = append(messages, s.executeToolCall(ctx, call))
		}
	}

	return nil, errors.Wrapf(errors.ErrAgentExecution, "no final assessment after %d tool turns", s.settings.MaxToolTurns)
}

// executeToolCall runs one granted tool and packages the result as a tool
// message. Tool failures go back to the model as error text so it can
// adjust; they do not abort the conversation.
func (s *Specialist) executeToolCall(ctx context.Context, call ai.ToolCall) ai.Message {
	result, err := s.tools.Execute(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))

	var content string
	if err != nil {
		content = fmt.Sprintf(`{"error": %q}`, err.Error())
	} else {
		data, merr := json.Marshal(result)
		if merr != nil {
			content = fmt.Sprintf(`{"error": %q}`, merr.Error())
		} else {
			content = string(data)
		}
	}

	return ai.Message{
		Role:       ai.RoleTool,
		Content:    content,
		ToolCallID: call.ID,
		Name:       call.Function.Name,
	}
}

// buildInstruction renders the phase-appropriate user message. Initial
// tasks see only the disruption; revision tasks additionally see every
// peer's previous assessment and must state a posture.
func (s *Specialist) buildInstruction(task *AgentTask) string {
	var b strings.Builder

	b.WriteString("Disruption:\n")
	b.WriteString(task.Prompt)
	b.WriteString("\n")

	if task.Phase != PhaseRevision {
		return b.String()
	}

	b.WriteString("\nYour peer specialists assessed the same disruption. Their positions:\n")

	names := make([]AgentName, 0, len(task.PeerContext))
	for name := range task.PeerContext {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	for _, name := range names {
		peer := task.PeerContext[name]
		fmt.Fprintf(&b, "\n[%s]", name)
		if peer.Succeeded() {
			fmt.Fprintf(&b, " (confidence %.2f)\n", peer.Confidence)
			fmt.Fprintf(&b, "Recommendation: %s\n", peer.Recommendation)
			fmt.Fprintf(&b, "Reasoning: %s\n", peer.Reasoning)
			for _, bc := range peer.BindingConstraints {
				fmt.Fprintf(&b, "BINDING CONSTRAINT %s: %s\n", bc.ID, bc.Description)
			}
		} else {
			fmt.Fprintf(&b, "\nNo assessment available (%s).\n", peer.Status)
		}
	}

	b.WriteString(`
Review your initial assessment in light of your peers. Take one posture:
- confirm: your recommendation stands unchanged
- revise: replace your recommendation with a new one
- strengthen: same recommendation, higher confidence, citing peer agreement
Account for peers that produced no assessment; do not assume their consensus.
Then respond in the same JSON format as before.`)

	return b.String()
}

// filterConstraints drops binding constraints from non-safety agents.
// Only safety-critical specialists may assert hard blocks.
func (s *Specialist) filterConstraints(constraints []BindingConstraint) []BindingConstraint {
	if !s.cfg.SafetyCritical {
		if len(constraints) > 0 {
			s.log.Warnf("Dropping %d binding constraints from non-safety agent", len(constraints))
		}
		return nil
	}
	return constraints
}

// failure normalizes an error into a typed AgentResponse
func (s *Specialist) failure(start time.Time, err error, message string) *AgentResponse {
	return &AgentResponse{
		AgentName:       s.cfg.Name,
		Status:          StatusError,
		Error:           message,
		ErrorType:       classifyError(err),
		DurationSeconds: time.Since(start).Seconds(),
	}
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, errors.ErrAgentTimeout):
		return "timeout"
	case errors.Is(err, errors.ErrMalformedOutput):
		return "malformed_output"
	case errors.Is(err, errors.ErrToolAccessDenied):
		return "tool_access_denied"
	case errors.Is(err, errors.ErrRateLimitExceeded):
		return "rate_limited"
	case errors.Is(err, errors.ErrProviderUnavailable):
		return "provider_unavailable"
	default:
		return "execution_error"
	}
}
