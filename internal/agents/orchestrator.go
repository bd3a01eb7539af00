package agents

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"skymarshal/internal/adapters/telegram"
	"skymarshal/internal/events"
	"skymarshal/internal/metrics"
	repoch "skymarshal/internal/repository/clickhouse"
	"skymarshal/pkg/logger"
)

// DisruptionRequest is the externally supplied unit of work
type DisruptionRequest struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"session_id,omitempty"`
}

// PhaseTimings breaks the request duration down per phase
type PhaseTimings struct {
	Phase1Ms int64 `json:"phase1_ms"`
	Phase2Ms int64 `json:"phase2_ms"`
	Phase3Ms int64 `json:"phase3_ms"`
}

// Assessment wraps the audit trail in the external response shape
type Assessment struct {
	AuditTrail *AuditTrail `json:"audit_trail"`
}

// Response is the single external contract. The envelope shape is
// invariant: partial agent failure degrades content, never shape.
type Response struct {
	Status          string        `json:"status"`
	RequestID       string        `json:"request_id"`
	SessionID       string        `json:"session_id,omitempty"`
	ExecutionTimeMs int64         `json:"execution_time_ms"`
	Timings         *PhaseTimings `json:"timings,omitempty"`
	Assessment      *Assessment   `json:"assessment,omitempty"`
	Error           string        `json:"error,omitempty"`
}

const (
	StatusComplete   = "complete"
	StatusFailed     = "error"
	StatusProcessing = "processing"
)

// SessionStore records request lineage against an opaque session handle
type SessionStore interface {
	Touch(ctx context.Context, sessionID, requestID string) error
}

// DecisionArchiver persists completed analyses for offline review
type DecisionArchiver interface {
	StoreAsync(rec *repoch.DecisionRecord)
}

// EscalationNotifier alerts the duty managers when arbitration is
// infeasible
type EscalationNotifier interface {
	NotifyEscalation(ctx context.Context, esc telegram.Escalation)
}

// Orchestrator sequences the three-phase pipeline and owns the external
// request/response contract. The state machine is linear: received →
// phase 1 → revision → phase 2 → arbitration → complete.
type Orchestrator struct {
	registry           *Registry
	scheduler          *PhaseScheduler
	arbitrator         *Arbitrator
	arbitrationTimeout time.Duration

	sessions SessionStore
	events   *events.Publisher
	archive  DecisionArchiver
	notifier EscalationNotifier

	log *logger.Logger
}

// OrchestratorOption configures optional collaborators
type OrchestratorOption func(*Orchestrator)

// WithSessionStore attaches session tracking
func WithSessionStore(s SessionStore) OrchestratorOption {
	return func(o *Orchestrator) { o.sessions = s }
}

// WithEventPublisher attaches the Kafka event sink
func WithEventPublisher(p *events.Publisher) OrchestratorOption {
	return func(o *Orchestrator) { o.events = p }
}

// WithDecisionArchive attaches the ClickHouse decision archive
func WithDecisionArchive(a DecisionArchiver) OrchestratorOption {
	return func(o *Orchestrator) { o.archive = a }
}

// WithEscalationNotifier attaches the ops alerting channel
func WithEscalationNotifier(n EscalationNotifier) OrchestratorOption {
	return func(o *Orchestrator) { o.notifier = n }
}

// NewOrchestrator creates the pipeline entrypoint
func NewOrchestrator(
	registry *Registry,
	scheduler *PhaseScheduler,
	arbitrator *Arbitrator,
	arbitrationTimeout time.Duration,
	opts ...OrchestratorOption,
) *Orchestrator {
	if arbitrationTimeout <= 0 {
		arbitrationTimeout = 45 * time.Second
	}

	o := &Orchestrator{
		registry:           registry,
		scheduler:          scheduler,
		arbitrator:         arbitrator,
		arbitrationTimeout: arbitrationTimeout,
		events:             events.NewPublisher(nil),
		log:                logger.Get().With("component", "orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HandleDisruption runs one request through the full pipeline. The
// caller always receives a well-formed Response; failures are reported
// in the envelope, never as raw errors.
func (o *Orchestrator) HandleDisruption(ctx context.Context, req *DisruptionRequest) *Response {
	start := time.Now()
	requestID := uuid.New().String()

	if req == nil || req.Prompt == "" {
		metrics.RecordRequest(StatusFailed)
		return &Response{
			Status:          StatusFailed,
			RequestID:       requestID,
			ExecutionTimeMs: time.Since(start).Milliseconds(),
			Error:           "prompt is required",
		}
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	log := o.log.With("request_id", requestID, "session_id", sessionID)
	log.Infow("Disruption received", "prompt_len", len(req.Prompt))

	if o.sessions != nil {
		if err := o.sessions.Touch(ctx, sessionID, requestID); err != nil {
			log.Warnf("Session touch failed: %v", err)
		}
	}

	o.events.DisruptionReceived(events.DisruptionReceived{
		RequestID: requestID,
		SessionID: sessionID,
		Prompt:    req.Prompt,
	})

	invokers := o.registry.Invokers()

	// Phase 1: independent initial assessment, no peer context
	phase1Start := time.Now()
	phase1 := o.scheduler.RunPhase(ctx, PhaseInitial, invokers, func(name AgentName) *AgentTask {
		return &AgentTask{
			AgentName: name,
			Phase:     PhaseInitial,
			RequestID: requestID,
			SessionID: sessionID,
			Prompt:    req.Prompt,
		}
	})
	phase1Ms := time.Since(phase1Start).Milliseconds()
	o.recordPhase(PhaseInitial, phase1, time.Since(phase1Start))

	// Phase 2: each agent revises with every peer's round-1 output
	phase2Start := time.Now()
	revisionTasks := BuildRevisionTasks(phase1, req.Prompt, requestID, sessionID)
	phase2 := o.scheduler.RunPhase(ctx, PhaseRevision, invokers, RevisionTaskFor(revisionTasks))
	phase2Ms := time.Since(phase2Start).Milliseconds()
	o.recordPhase(PhaseRevision, phase2, time.Since(phase2Start))

	// Phase 3: arbitration
	phase3Start := time.Now()
	arbCtx, cancel := context.WithTimeout(ctx, o.arbitrationTimeout)
	arbitration, err := o.arbitrator.Arbitrate(arbCtx, req.Prompt, phase1, phase2)
	cancel()
	phase3Ms := time.Since(phase3Start).Milliseconds()
	metrics.RecordPhase("arbitration", time.Since(phase3Start))

	if err != nil {
		log.Errorf("Arbitration failed: %v", err)
		metrics.RecordRequest(StatusFailed)
		return &Response{
			Status:          StatusFailed,
			RequestID:       requestID,
			SessionID:       sessionID,
			ExecutionTimeMs: time.Since(start).Milliseconds(),
			Error:           "arbitration failed: " + err.Error(),
		}
	}

	metrics.RecordArbitration(arbitration.EscalationRequired, len(arbitration.SolutionOptions))

	resp := &Response{
		Status:          StatusComplete,
		RequestID:       requestID,
		SessionID:       sessionID,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
		Timings: &PhaseTimings{
			Phase1Ms: phase1Ms,
			Phase2Ms: phase2Ms,
			Phase3Ms: phase3Ms,
		},
		Assessment: &Assessment{
			AuditTrail: &AuditTrail{
				Phase1Initial:     phase1,
				Phase2Revision:    phase2,
				Phase3Arbitration: arbitration,
			},
		},
	}

	if arbitration.EscalationRequired {
		o.escalate(requestID, sessionID, req.Prompt, arbitration.EscalationReason, time.Since(start))
	}

	o.archiveDecision(resp, req.Prompt)

	o.events.DisruptionAssessed(events.DisruptionAssessed{
		RequestID:             requestID,
		SessionID:             sessionID,
		Status:                resp.Status,
		SolutionCount:         len(arbitration.SolutionOptions),
		RecommendedSolutionID: arbitration.RecommendedSolutionID,
		EscalationRequired:    arbitration.EscalationRequired,
		ExecutionMs:           resp.ExecutionTimeMs,
	})
	metrics.RecordRequest(StatusComplete)

	log.Infow("Disruption assessed",
		"solutions", len(arbitration.SolutionOptions),
		"recommended", arbitration.RecommendedSolutionID,
		"escalation", arbitration.EscalationRequired,
		"execution_ms", resp.ExecutionTimeMs,
	)

	return resp
}

func (o *Orchestrator) recordPhase(phase Phase, collation *Collation, elapsed time.Duration) {
	metrics.RecordPhase(string(phase), elapsed)
	for name, r := range collation.Responses {
		metrics.RecordAgentInvocation(
			name.String(), string(phase), string(r.Status),
			time.Duration(r.DurationSeconds*float64(time.Second)),
		)
	}
}

// escalate raises the infeasible-arbitration alarm on every configured
// channel. Alerting runs detached; it never delays the response.
func (o *Orchestrator) escalate(requestID, sessionID, prompt, reason string, elapsed time.Duration) {
	o.events.EscalationRaised(events.EscalationRaised{
		RequestID:        requestID,
		SessionID:        sessionID,
		Prompt:           prompt,
		EscalationReason: reason,
	})

	if o.notifier != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			o.notifier.NotifyEscalation(ctx, telegram.Escalation{
				RequestID: requestID,
				Prompt:    prompt,
				Reason:    reason,
				Elapsed:   elapsed,
			})
		}()
	}
}

func (o *Orchestrator) archiveDecision(resp *Response, prompt string) {
	if o.archive == nil {
		return
	}

	trailJSON, err := json.Marshal(resp.Assessment.AuditTrail)
	if err != nil {
		o.log.Warnf("Audit trail marshal failed: %v", err)
		trailJSON = []byte("{}")
	}

	arb := resp.Assessment.AuditTrail.Phase3Arbitration
	o.archive.StoreAsync(&repoch.DecisionRecord{
		RequestID:             resp.RequestID,
		SessionID:             resp.SessionID,
		Prompt:                prompt,
		Status:                resp.Status,
		RecommendedSolutionID: int32(arb.RecommendedSolutionID),
		SolutionCount:         uint8(len(arb.SolutionOptions)),
		EscalationRequired:    arb.EscalationRequired,
		Phase1Ms:              uint32(resp.Timings.Phase1Ms),
		Phase2Ms:              uint32(resp.Timings.Phase2Ms),
		Phase3Ms:              uint32(resp.Timings.Phase3Ms),
		ExecutionMs:           uint32(resp.ExecutionTimeMs),
		AuditTrailJSON:        string(trailJSON),
	})
}
