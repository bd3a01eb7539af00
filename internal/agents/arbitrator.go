package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"skymarshal/internal/adapters/ai"
	"skymarshal/pkg/errors"
	"skymarshal/pkg/logger"
)

const arbitratorPrompt = `You are the duty operations director for an airline
operations control center. Seven domain specialists have assessed a disruption
in two rounds; the second round is each specialist's considered position. Your
job is to synthesize 1 to 3 concrete, mutually distinct recovery solutions.

Rules:
- Where specialists conflict irreconcilably, produce distinct solutions that
  each resolve the conflict one way. Never blend incompatible positions into
  one averaged option that satisfies neither.
- Score every solution on four dimensions, each 0-100: safety_score (from the
  safety specialists' input), passenger_score, network_score, cost_score.
- Binding constraints are hard blocks. For every solution, list in
  "violated_constraint_ids" the ids of any active binding constraints the
  solution cannot satisfy. Be honest: a solution that breaches a constraint
  must list it, even if the solution is otherwise attractive.
- If every plausible solution violates a binding constraint, still return your
  best candidates with their violations listed truthfully.

Respond with a single JSON object and nothing else:
{
  "solution_options": [
    {
      "solution_id": 1,
      "title": "...",
      "description": "...",
      "recommendations": ["...", "..."],
      "safety_score": 0-100,
      "passenger_score": 0-100,
      "network_score": 0-100,
      "cost_score": 0-100,
      "justification": "...",
      "reasoning": "...",
      "passenger_impact": "...",
      "financial_impact": "...",
      "network_impact": "...",
      "pros": ["..."],
      "cons": ["..."],
      "risks": ["..."],
      "violated_constraint_ids": []
    }
  ]
}`

// Arbitrator synthesizes both phases' collations into ranked recovery
// solutions. The model drafts candidates; compliance filtering, score
// derivation, and ranking are deterministic and happen here, not in the
// model.
type Arbitrator struct {
	provider ai.ChatProvider
	settings InvokerSettings
	log      *logger.Logger
}

// NewArbitrator creates an arbitrator backed by a model provider
func NewArbitrator(provider ai.ChatProvider, settings InvokerSettings) *Arbitrator {
	return &Arbitrator{
		provider: provider,
		settings: settings,
		log:      logger.Get().With("component", "arbitrator"),
	}
}

// arbitrationDraft is the model-facing output shape before normalization
type arbitrationDraft struct {
	SolutionOptions []SolutionOption `json:"solution_options"`
}

// Arbitrate produces the phase-3 result. Phase 2 is the decision input;
// phase 1 is summarized for lineage only. An infeasible outcome (no
// option survives the constraint filter) is a valid result with
// EscalationRequired set, not an error.
func (a *Arbitrator) Arbitrate(ctx context.Context, prompt string, phase1, phase2 *Collation) (*ArbitrationResult, error) {
	start := time.Now()

	resp, err := a.provider.Chat(ctx, ai.ChatRequest{
		Model: a.settings.Model,
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: arbitratorPrompt},
			{Role: ai.RoleUser, Content: a.buildInstruction(prompt, phase1, phase2)},
		},
		Temperature: a.settings.Temperature,
		MaxTokens:   a.settings.MaxTokens,
	})
	if err != nil {
		return nil, errors.Wrap(err, "arbitration model call")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.Wrap(errors.ErrMalformedOutput, "empty arbitration choice list")
	}

	draft, err := parseArbitrationDraft(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	result := a.finalize(draft.SolutionOptions, phase2)

	a.log.Infow("Arbitration settled",
		"options", len(result.SolutionOptions),
		"recommended", result.RecommendedSolutionID,
		"escalation", result.EscalationRequired,
		"duration", time.Since(start),
	)

	return result, nil
}

// finalize applies the deterministic tail of arbitration: score
// normalization, the binding-constraint filter against phase-2 safety
// responses, ranking, and the recommended pick.
func (a *Arbitrator) finalize(drafts []SolutionOption, phase2 *Collation) *ArbitrationResult {
	options := make([]SolutionOption, len(drafts))
	copy(options, drafts)

	for i := range options {
		if options[i].SolutionID == 0 {
			options[i].SolutionID = i + 1
		}
		normalizeScores(&options[i])
	}

	active := phase2.ActiveConstraints()
	compliant := filterCompliant(options, active)
	rankOptions(compliant)

	if len(compliant) == 0 {
		return &ArbitrationResult{
			Phase:              "arbitration",
			SolutionOptions:    []SolutionOption{},
			EscalationRequired: true,
			EscalationReason:   a.escalationReason(options, active),
		}
	}

	if len(compliant) > 3 {
		compliant = compliant[:3]
	}

	return &ArbitrationResult{
		Phase:                 "arbitration",
		SolutionOptions:       compliant,
		RecommendedSolutionID: compliant[0].SolutionID,
	}
}

func (a *Arbitrator) escalationReason(rejected []SolutionOption, active map[string]BindingConstraint) string {
	ids := make([]string, 0, len(active))
	for id := range active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return fmt.Sprintf(
		"no candidate solution satisfies the active binding constraints [%s]; %d candidates rejected, human decision required",
		strings.Join(ids, ", "), len(rejected),
	)
}

// buildInstruction renders both rounds for the synthesis model. Phase-2
// positions carry full detail; phase 1 is a one-line lineage summary per
// agent showing how positions moved.
func (a *Arbitrator) buildInstruction(prompt string, phase1, phase2 *Collation) string {
	var b strings.Builder

	b.WriteString("Disruption:\n")
	b.WriteString(prompt)
	b.WriteString("\n\nFinal specialist positions (decide from these):\n")

	for _, name := range phase2.AgentNames() {
		resp := phase2.Responses[name]
		fmt.Fprintf(&b, "\n[%s]", name)
		if !resp.Succeeded() {
			fmt.Fprintf(&b, "\nNo assessment (%s). Decide without this specialist's input.\n", resp.Status)
			continue
		}
		fmt.Fprintf(&b, " (confidence %.2f)\n", resp.Confidence)
		fmt.Fprintf(&b, "Recommendation: %s\n", resp.Recommendation)
		fmt.Fprintf(&b, "Reasoning: %s\n", resp.Reasoning)
		for _, bc := range resp.BindingConstraints {
			fmt.Fprintf(&b, "BINDING CONSTRAINT %s: %s\n", bc.ID, bc.Description)
		}
	}

	if active := phase2.ActiveConstraints(); len(active) > 0 {
		ids := make([]string, 0, len(active))
		for id := range active {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		fmt.Fprintf(&b, "\nActive binding constraint ids: %s\n", strings.Join(ids, ", "))
	}

	b.WriteString("\nInitial-round positions (lineage only, already superseded):\n")
	for _, name := range phase1.AgentNames() {
		resp := phase1.Responses[name]
		if resp.Succeeded() {
			fmt.Fprintf(&b, "[%s] %s\n", name, resp.Recommendation)
		} else {
			fmt.Fprintf(&b, "[%s] no assessment (%s)\n", name, resp.Status)
		}
	}

	return b.String()
}

// parseArbitrationDraft validates the synthesis output shape
func parseArbitrationDraft(text string) (*arbitrationDraft, error) {
	raw, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var draft arbitrationDraft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, errors.Wrap(errors.ErrMalformedOutput, err.Error())
	}
	if len(draft.SolutionOptions) == 0 {
		return nil, errors.Wrap(errors.ErrMalformedOutput, "arbitration produced no solution options")
	}
	for i := range draft.SolutionOptions {
		if strings.TrimSpace(draft.SolutionOptions[i].Title) == "" {
			return nil, errors.Wrapf(errors.ErrMalformedOutput, "solution %d missing title", i+1)
		}
	}

	return &draft, nil
}
