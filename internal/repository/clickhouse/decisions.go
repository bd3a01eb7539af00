package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"skymarshal/pkg/errors"
	"skymarshal/pkg/logger"
)

// DecisionRecord is one completed disruption analysis archived for offline
// review. The full audit trail is stored as a JSON document.
type DecisionRecord struct {
	RequestID             string
	SessionID             string
	Prompt                string
	Status                string
	RecommendedSolutionID int32
	SolutionCount         uint8
	EscalationRequired    bool
	Phase1Ms              uint32
	Phase2Ms              uint32
	Phase3Ms              uint32
	ExecutionMs           uint32
	AuditTrailJSON        string
	CreatedAt             time.Time
}

// DecisionRepository archives decision reports to ClickHouse.
// Writes are asynchronous and best-effort; an archive failure never
// affects the request path.
type DecisionRepository struct {
	conn driver.Conn
	log  *logger.Logger
}

// NewDecisionRepository creates a new decision archive repository
func NewDecisionRepository(conn driver.Conn) *DecisionRepository {
	return &DecisionRepository{
		conn: conn,
		log:  logger.Get().With("component", "decision_archive"),
	}
}

// Store inserts one decision record using ClickHouse async insert
func (r *DecisionRepository) Store(ctx context.Context, rec *DecisionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO decision_reports (
			request_id, session_id, prompt, status,
			recommended_solution_id, solution_count, escalation_required,
			phase1_ms, phase2_ms, phase3_ms, execution_ms,
			audit_trail, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	err := r.conn.AsyncInsert(ctx, query, false,
		rec.RequestID, rec.SessionID, rec.Prompt, rec.Status,
		rec.RecommendedSolutionID, rec.SolutionCount, rec.EscalationRequired,
		rec.Phase1Ms, rec.Phase2Ms, rec.Phase3Ms, rec.ExecutionMs,
		rec.AuditTrailJSON, rec.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "async insert decision report")
	}

	return nil
}

// StoreAsync archives a record on a detached goroutine with its own timeout.
func (r *DecisionRepository) StoreAsync(rec *DecisionRecord) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := r.Store(ctx, rec); err != nil {
			r.log.Warnf("Failed to archive decision report %s: %v", rec.RequestID, err)
		}
	}()
}
