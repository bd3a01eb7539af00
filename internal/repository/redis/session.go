package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"skymarshal/pkg/errors"
)

// Session records the opaque conversation handle threaded through
// disruption requests. Session semantics (conversational memory) live with
// the model backend; we only persist the handle and its request lineage.
type Session struct {
	SessionID     string    `json:"session_id"`
	LastRequestID string    `json:"last_request_id"`
	RequestCount  int       `json:"request_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SessionRepository stores sessions in Redis with a TTL
type SessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(client *redis.Client, ttl time.Duration) *SessionRepository {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &SessionRepository{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves a session by ID
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := r.client.Get(ctx, r.key(sessionID)).Result()
	if err == redis.Nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "session %s", sessionID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get session %s", sessionID)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, errors.Wrapf(err, "unmarshal session %s", sessionID)
	}

	return &session, nil
}

// Touch records a request against a session, creating it if absent
func (r *SessionRepository) Touch(ctx context.Context, sessionID, requestID string) error {
	session, err := r.Get(ctx, sessionID)
	if errors.Is(err, errors.ErrNotFound) {
		session = &Session{
			SessionID: sessionID,
			CreatedAt: time.Now().UTC(),
		}
	} else if err != nil {
		return err
	}

	session.LastRequestID = requestID
	session.RequestCount++
	session.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(session)
	if err != nil {
		return errors.Wrapf(err, "marshal session %s", sessionID)
	}

	if err := r.client.Set(ctx, r.key(sessionID), data, r.ttl).Err(); err != nil {
		return errors.Wrapf(err, "save session %s", sessionID)
	}

	return nil
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return errors.Wrapf(err, "delete session %s", sessionID)
	}
	return nil
}

func (r *SessionRepository) key(sessionID string) string {
	return fmt.Sprintf("skymarshal:session:%s", sessionID)
}
