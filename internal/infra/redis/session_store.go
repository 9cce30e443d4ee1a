package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"learnhub-checkout/internal/domain"
	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/domain/ports/repository"
)

var _ repository.CheckoutSessionRepository = (*SessionStore)(nil)

// SessionStore keeps live checkout sessions so any replica can serve the
// gateway callback. Settled sessions remain readable for the retention ttl.
type SessionStore struct {
	client RedisClient
	ttl    time.Duration
}

func NewSessionStore(client RedisClient, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(id string) string { return "checkout:session:" + id }

// storedSession adds the fields the public JSON form leaves out.
type storedSession struct {
	*model.CheckoutSession
	LockToken     string `json:"lockToken,omitempty"`
	FailureReason string `json:"failureReason,omitempty"`
}

func (s *SessionStore) Save(ctx context.Context, session *model.CheckoutSession) error {
	data, err := json.Marshal(storedSession{
		CheckoutSession: session,
		LockToken:       session.LockToken,
		FailureReason:   session.FailureReason,
	})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), data, s.ttl); err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	return nil
}

func (s *SessionStore) FindByID(ctx context.Context, id string) (*model.CheckoutSession, error) {
	data, err := s.client.Get(ctx, sessionKey(id))
	if IsNil(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	stored := storedSession{CheckoutSession: &model.CheckoutSession{}}
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, err
	}
	stored.CheckoutSession.LockToken = stored.LockToken
	stored.CheckoutSession.FailureReason = stored.FailureReason
	return stored.CheckoutSession, nil
}
