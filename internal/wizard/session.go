package wizard

import (
	"encoding/json"
	"fmt"
	"time"
)

// Session is one user's position inside one wizard.
type Session struct {
	ID        string
	UserID    int64
	WizardID  string
	StepIndex int
	// State is owned by the wizard definition; the engine never inspects it.
	State     any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StateCodec rebuilds a typed state from its JSON form. Registry implements it.
type StateCodec interface {
	DecodeState(wizardID string, raw []byte) (any, error)
}

type envelope struct {
	ID        string          `json:"id"`
	UserID    int64           `json:"user_id"`
	WizardID  string          `json:"wizard_id"`
	StepIndex int             `json:"step_index"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// EncodeSession serializes a session for a Store.
func EncodeSession(s *Session) ([]byte, error) {
	state, err := json.Marshal(s.State)
	if err != nil {
		return nil, fmt.Errorf("encode state of %s: %w", s.WizardID, err)
	}
	return json.Marshal(envelope{
		ID:        s.ID,
		UserID:    s.UserID,
		WizardID:  s.WizardID,
		StepIndex: s.StepIndex,
		State:     state,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	})
}

// DecodeSession is the inverse of EncodeSession.
func DecodeSession(data []byte, codec StateCodec) (*Session, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	state, err := codec.DecodeState(env.WizardID, env.State)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:        env.ID,
		UserID:    env.UserID,
		WizardID:  env.WizardID,
		StepIndex: env.StepIndex,
		State:     state,
		CreatedAt: env.CreatedAt,
		UpdatedAt: env.UpdatedAt,
	}, nil
}
