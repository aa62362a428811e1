package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Turn carries the context of one step invocation.
type Turn struct {
	UserID    int64
	SessionID string
	// Text is the trimmed reply. Empty when a step is being entered.
	Text string
}

// Step is one prompt/validate pair.
type Step struct {
	Name string
	// Enter runs when the step becomes current. It may emit the prompt and
	// return an updated state; a nil state keeps the current one.
	Enter func(ctx context.Context, t Turn, state any) (any, error)
	// Handle validates a text reply. Required.
	Handle func(ctx context.Context, t Turn, state any) (Result, error)
}

// Definition is a named, ordered list of steps.
type Definition struct {
	ID    string
	Steps []Step
	// Exit produces the notice sent when the user cancels. Nil means a
	// plain "wizard_exit".
	Exit func(ctx context.Context, t Turn, state any) *Notice
	// NewState returns a pointer to a zero state value. Used to rebuild
	// state from persistent stores.
	NewState func() any
}

func (d Definition) validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidDefinition)
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("%w: %s has no steps", ErrInvalidDefinition, d.ID)
	}
	for i, s := range d.Steps {
		if s.Handle == nil {
			return fmt.Errorf("%w: %s step %d has no handler", ErrInvalidDefinition, d.ID, i)
		}
	}
	if d.NewState == nil {
		return fmt.Errorf("%w: %s has no state constructor", ErrInvalidDefinition, d.ID)
	}
	return nil
}

var _ StateCodec = (*Registry)(nil)

// Registry maps wizard ids to definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a definition, replacing one with the same id.
func (r *Registry) Register(d Definition) error {
	if err := d.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.defs[d.ID] = d
	r.mu.Unlock()
	return nil
}

func (r *Registry) Lookup(id string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[id]
	return d, ok
}

// IDs returns the registered wizard ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.defs))
	for id := range r.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) DecodeState(wizardID string, raw []byte) (any, error) {
	d, ok := r.Lookup(wizardID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWizard, wizardID)
	}
	state := d.NewState()
	if len(raw) == 0 || string(raw) == "null" {
		return state, nil
	}
	if err := json.Unmarshal(raw, state); err != nil {
		return nil, fmt.Errorf("decode state of %s: %w", wizardID, err)
	}
	return state, nil
}
