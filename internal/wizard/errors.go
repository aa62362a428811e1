package wizard

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSession is returned by Engine.Handle when the user has no open wizard.
	ErrNoSession = errors.New("wizard: no active session")
	// ErrNoActiveTrigger is returned by Engine.Enter without a triggering action.
	ErrNoActiveTrigger = errors.New("wizard: no active trigger")
	ErrUnknownWizard   = errors.New("wizard: unknown wizard")
	// ErrSessionNotFound is the Store's "absent" signal.
	ErrSessionNotFound   = errors.New("wizard: session not found")
	ErrInvalidDefinition = errors.New("wizard: invalid definition")
)

// RefusalError ends a session with a specific notice instead of the generic
// one. Steps return it when they can tell the user why they stopped.
type RefusalError struct {
	Notice *Notice
	Err    error
}

func (e *RefusalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("wizard: refused (%s)", e.Notice.Key)
	}
	return fmt.Sprintf("wizard: refused (%s): %v", e.Notice.Key, e.Err)
}

func (e *RefusalError) Unwrap() error { return e.Err }

// Refuse wraps err so the engine answers with key instead of a generic error.
func Refuse(err error, key string, args ...any) error {
	return &RefusalError{Notice: Say(key, args...), Err: err}
}
