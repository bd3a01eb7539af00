package agents

import "sort"

// AgentName identifies a domain specialist. The set is closed; adding a
// specialist means adding a name, a config entry, and tool grants.
type AgentName string

const (
	AgentCrewCompliance  AgentName = "crew_compliance"
	AgentMaintenance     AgentName = "maintenance"
	AgentRegulatory      AgentName = "regulatory"
	AgentNetwork         AgentName = "network"
	AgentGuestExperience AgentName = "guest_experience"
	AgentCargo           AgentName = "cargo"
	AgentFinance         AgentName = "finance"
)

// AllAgents returns every specialist in canonical order
func AllAgents() []AgentName {
	return []AgentName{
		AgentCrewCompliance,
		AgentMaintenance,
		AgentRegulatory,
		AgentNetwork,
		AgentGuestExperience,
		AgentCargo,
		AgentFinance,
	}
}

// String returns the canonical lowercase key emitted to external callers
func (n AgentName) String() string {
	return string(n)
}

// IsValid checks if the agent name is a known specialist
func (n AgentName) IsValid() bool {
	switch n {
	case AgentCrewCompliance, AgentMaintenance, AgentRegulatory,
		AgentNetwork, AgentGuestExperience, AgentCargo, AgentFinance:
		return true
	default:
		return false
	}
}

// SafetyCritical reports whether the agent's binding constraints dominate
// arbitration. Only safety-critical agents may eliminate solutions.
func (n AgentName) SafetyCritical() bool {
	switch n {
	case AgentCrewCompliance, AgentMaintenance, AgentRegulatory:
		return true
	default:
		return false
	}
}

// Phase identifies one synchronized round of all-agent execution
type Phase string

const (
	PhaseInitial  Phase = "initial"
	PhaseRevision Phase = "revision"
)

// Status is the outcome of one agent invocation
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
)

// AgentTask is one agent's unit of work within a phase. Tasks are built
// fresh per phase and never persisted.
type AgentTask struct {
	AgentName AgentName
	Phase     Phase
	RequestID string
	SessionID string

	// Prompt is the original disruption description, identical for every
	// agent in every phase.
	Prompt string

	// PeerContext carries every other agent's previous-phase response.
	// Empty in the initial phase. Never contains the agent's own entry.
	PeerContext map[AgentName]*AgentResponse
}

// BindingConstraint is a hard safety-driven restriction. Constraints carry
// stable identifiers so arbitration can match violations against the
// active set deterministically.
type BindingConstraint struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Regulation  string `json:"regulation,omitempty"`
}

// AgentResponse is the result of one AgentTask. Exactly one of the
// success payload (recommendation, reasoning) or the error payload
// (error, error_type) is populated, consistent with Status.
type AgentResponse struct {
	AgentName AgentName `json:"agent_name"`
	Status    Status    `json:"status"`

	Recommendation string   `json:"recommendation,omitempty"`
	Reasoning      string   `json:"reasoning,omitempty"`
	DataSources    []string `json:"data_sources,omitempty"`
	Confidence     float64  `json:"confidence"`

	// BindingConstraints is populated only by safety-critical agents and
	// signals a hard block rather than a soft recommendation.
	BindingConstraints []BindingConstraint `json:"binding_constraints,omitempty"`

	DurationSeconds float64 `json:"duration_seconds"`

	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
}

// Succeeded reports whether the response carries a usable assessment
func (r *AgentResponse) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess
}

// Collation is the complete per-agent result set of one phase. Every
// scheduled agent occupies a slot; timeouts and errors included.
type Collation struct {
	Phase     Phase                        `json:"phase"`
	Responses map[AgentName]*AgentResponse `json:"responses"`
}

// NewCollation creates an empty collation for a phase
func NewCollation(phase Phase) *Collation {
	return &Collation{
		Phase:     phase,
		Responses: make(map[AgentName]*AgentResponse),
	}
}

// AgentCount returns the number of response slots
func (c *Collation) AgentCount() int {
	return len(c.Responses)
}

// Successful returns the agents that produced a usable assessment,
// sorted by name
func (c *Collation) Successful() []AgentName {
	return c.filter(func(r *AgentResponse) bool { return r.Status == StatusSuccess })
}

// Failed returns the agents that errored or timed out, sorted by name
func (c *Collation) Failed() []AgentName {
	return c.filter(func(r *AgentResponse) bool { return r.Status != StatusSuccess })
}

// AgentNames returns all slot keys sorted by name
func (c *Collation) AgentNames() []AgentName {
	return c.filter(func(*AgentResponse) bool { return true })
}

func (c *Collation) filter(keep func(*AgentResponse) bool) []AgentName {
	names := make([]AgentName, 0, len(c.Responses))
	for name, resp := range c.Responses {
		if keep(resp) {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// ActiveConstraints returns the binding constraints asserted by
// safety-critical agents in this collation, keyed by constraint ID.
// Constraints from non-safety agents are ignored.
func (c *Collation) ActiveConstraints() map[string]BindingConstraint {
	active := make(map[string]BindingConstraint)
	for name, resp := range c.Responses {
		if !name.SafetyCritical() || !resp.Succeeded() {
			continue
		}
		for _, bc := range resp.BindingConstraints {
			if bc.ID != "" {
				active[bc.ID] = bc
			}
		}
	}
	return active
}

// SolutionOption is one arbitrated recovery candidate. All five scores
// are in [0,100]; the composite is derived from the other four.
type SolutionOption struct {
	SolutionID  int    `json:"solution_id"`
	Title       string `json:"title"`
	Description string `json:"description"`

	Recommendations []string `json:"recommendations"`

	SafetyScore    float64 `json:"safety_score"`
	PassengerScore float64 `json:"passenger_score"`
	NetworkScore   float64 `json:"network_score"`
	CostScore      float64 `json:"cost_score"`
	CompositeScore float64 `json:"composite_score"`

	Justification   string `json:"justification"`
	Reasoning       string `json:"reasoning"`
	PassengerImpact string `json:"passenger_impact"`
	FinancialImpact string `json:"financial_impact"`
	NetworkImpact   string `json:"network_impact"`

	Pros  []string `json:"pros"`
	Cons  []string `json:"cons"`
	Risks []string `json:"risks"`

	// ViolatedConstraintIDs lists the binding constraints this option
	// cannot satisfy, as assessed during synthesis. Options violating an
	// active constraint never reach the caller.
	ViolatedConstraintIDs []string `json:"violated_constraint_ids,omitempty"`
}

// ArbitrationResult is the phase-3 outcome: ranked safety-compliant
// options and the recommended pick. When no option survives the
// binding-constraint filter, SolutionOptions is empty and
// EscalationRequired is set.
type ArbitrationResult struct {
	Phase                 string           `json:"phase"`
	SolutionOptions       []SolutionOption `json:"solution_options"`
	RecommendedSolutionID int              `json:"recommended_solution_id"`
	EscalationRequired    bool             `json:"escalation_required,omitempty"`
	EscalationReason      string           `json:"escalation_reason,omitempty"`
}

// AuditTrail is the full three-phase transparency record returned to
// the caller.
type AuditTrail struct {
	Phase1Initial     *Collation         `json:"phase1_initial"`
	Phase2Revision    *Collation         `json:"phase2_revision"`
	Phase3Arbitration *ArbitrationResult `json:"phase3_arbitration"`
}
