package events

import (
	"time"

	"skymarshal/internal/adapters/kafka"
)

// Event payloads published to the pipeline topics. Consumers include the
// ops dashboard and the escalation workflow.

type DisruptionReceived struct {
	RequestID  string    `json:"request_id"`
	SessionID  string    `json:"session_id"`
	Prompt     string    `json:"prompt"`
	ReceivedAt time.Time `json:"received_at"`
}

type DisruptionAssessed struct {
	RequestID             string    `json:"request_id"`
	SessionID             string    `json:"session_id"`
	Status                string    `json:"status"`
	SolutionCount         int       `json:"solution_count"`
	RecommendedSolutionID int       `json:"recommended_solution_id"`
	EscalationRequired    bool      `json:"escalation_required"`
	ExecutionMs           int64     `json:"execution_time_ms"`
	AssessedAt            time.Time `json:"assessed_at"`
}

type EscalationRaised struct {
	RequestID        string    `json:"request_id"`
	SessionID        string    `json:"session_id"`
	Prompt           string    `json:"prompt"`
	EscalationReason string    `json:"escalation_reason"`
	RaisedAt         time.Time `json:"raised_at"`
}

// Publisher is the pipeline's event sink. A nil *kafka.Producer inside
// means events are disabled; every method is then a no-op.
type Publisher struct {
	producer *kafka.Producer
}

// NewPublisher wraps a Kafka producer; pass nil to disable events
func NewPublisher(producer *kafka.Producer) *Publisher {
	return &Publisher{producer: producer}
}

// DisruptionReceived announces an accepted request
func (p *Publisher) DisruptionReceived(e DisruptionReceived) {
	if p.producer == nil {
		return
	}
	e.ReceivedAt = time.Now().UTC()
	p.producer.PublishAsync(kafka.TopicDisruptionReceived, e.RequestID, e)
}

// DisruptionAssessed announces a completed analysis
func (p *Publisher) DisruptionAssessed(e DisruptionAssessed) {
	if p.producer == nil {
		return
	}
	e.AssessedAt = time.Now().UTC()
	p.producer.PublishAsync(kafka.TopicDisruptionAssessed, e.RequestID, e)
}

// EscalationRaised announces an infeasible arbitration needing a human
func (p *Publisher) EscalationRaised(e EscalationRaised) {
	if p.producer == nil {
		return
	}
	e.RaisedAt = time.Now().UTC()
	p.producer.PublishAsync(kafka.TopicEscalations, e.RequestID, e)
}
