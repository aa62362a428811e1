package redis

import (
	"context"
	"fmt"
	"time"

	"telegram-p2p-trading/internal/wizard"
)

var _ wizard.Store = (*SessionStore)(nil)

// SessionStore keeps wizard sessions in Redis so they survive restarts and
// can be shared by several bot replicas. Idle sessions expire after ttl.
type SessionStore struct {
	client RedisClient
	codec  wizard.StateCodec
	ttl    time.Duration
}

func NewSessionStore(client RedisClient, codec wizard.StateCodec, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionStore{client: client, codec: codec, ttl: ttl}
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("wizard_session:%d", userID)
}

func (s *SessionStore) Get(ctx context.Context, userID int64) (*wizard.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(userID))
	if IsNil(err) {
		return nil, wizard.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return wizard.DecodeSession([]byte(data), s.codec)
}

func (s *SessionStore) Put(ctx context.Context, sess *wizard.Session) error {
	data, err := wizard.EncodeSession(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(sess.UserID), data, s.ttl)
}

func (s *SessionStore) Remove(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, sessionKey(userID))
}
