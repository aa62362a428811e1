package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telegram-p2p-trading/internal/domain"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Notice keys the engine itself emits.
const (
	NoticeExit         = "wizard_exit"
	NoticeGenericError = "generic_error"
	NoticeNotFound     = "generic_not_found"
)

// Notifier delivers notices to a chat user. adapter.Sender satisfies it.
type Notifier interface {
	Send(ctx context.Context, telegramID int64, key string, args ...any) error
}

type TriggerSource string

const (
	TriggerCommand  TriggerSource = "command"
	TriggerCallback TriggerSource = "callback"
	// TriggerHandoff is used when one flow opens a wizard for another user,
	// e.g. the seller's fiat amount step asking the buyer for an invoice.
	TriggerHandoff TriggerSource = "handoff"
)

// Trigger identifies the user action that opened a wizard.
type Trigger struct {
	Source TriggerSource
	Ref    string
}

func (t Trigger) valid() bool {
	switch t.Source {
	case TriggerCommand, TriggerCallback, TriggerHandoff:
		return true
	}
	return false
}

// Outcome summarizes what Handle did with a message.
type Outcome string

const (
	OutcomeAdvanced   Outcome = "advanced"
	OutcomeRepeated   Outcome = "repeated"
	OutcomeTerminated Outcome = "terminated"
	OutcomeCancelled  Outcome = "cancelled"
	OutcomeDropped    Outcome = "dropped"
	OutcomeFailed     Outcome = "failed"
	OutcomeReplaced   Outcome = "replaced"
)

// Observer receives session lifecycle events. Used for metrics.
type Observer interface {
	SessionStarted(wizardID string)
	StepResult(wizardID, step string, kind Kind)
	SessionFinished(wizardID string, outcome Outcome)
}

type nopObserver struct{}

func (nopObserver) SessionStarted(string)           {}
func (nopObserver) StepResult(string, string, Kind) {}
func (nopObserver) SessionFinished(string, Outcome) {}

type Option func(*Engine)

func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.obs = o
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

var errPanic = errors.New("wizard: step panicked")

// Engine drives sessions through their definitions. It does not serialize
// calls for the same user; callers must deliver one user's messages in order.
type Engine struct {
	registry *Registry
	store    Store
	notifier Notifier
	log      *zerolog.Logger
	obs      Observer
	now      func() time.Time
}

func NewEngine(registry *Registry, store Store, notifier Notifier, logger *zerolog.Logger, opts ...Option) *Engine {
	l := logger.With().Str("component", "wizard").Logger()
	e := &Engine{
		registry: registry,
		store:    store,
		notifier: notifier,
		log:      &l,
		obs:      nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Registry() *Registry { return e.registry }

// Enter opens wizardID for userID at its first step and emits that step's
// prompt. Any session the user already had is discarded. A nil state starts
// from the definition's zero state.
func (e *Engine) Enter(ctx context.Context, trig Trigger, wizardID string, userID int64, state any) (*Session, error) {
	if !trig.valid() {
		return nil, ErrNoActiveTrigger
	}
	def, ok := e.registry.Lookup(wizardID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWizard, wizardID)
	}
	if state == nil {
		state = def.NewState()
	}

	prev, err := e.store.Get(ctx, userID)
	switch {
	case err == nil:
		if err := e.store.Remove(ctx, userID); err != nil {
			return nil, fmt.Errorf("remove previous session: %w", err)
		}
		e.log.Debug().Int64("tg_id", userID).Str("session_id", prev.ID).Str("wizard", prev.WizardID).
			Str("replaced_by", wizardID).Msg("session replaced")
		e.obs.SessionFinished(prev.WizardID, OutcomeReplaced)
	case errors.Is(err, ErrSessionNotFound):
	default:
		// An unreadable session is overwritten below.
		e.log.Warn().Err(err).Int64("tg_id", userID).Msg("failed to load previous session")
	}

	now := e.now()
	sess := &Session{
		ID:        ulid.Make().String(),
		UserID:    userID,
		WizardID:  def.ID,
		StepIndex: 0,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.obs.SessionStarted(def.ID)
	e.log.Debug().Int64("tg_id", userID).Str("session_id", sess.ID).Str("wizard", def.ID).
		Str("trigger", string(trig.Source)).Str("ref", trig.Ref).Msg("session started")

	if err := e.enterStep(ctx, def, sess); err != nil {
		e.fail(ctx, def, sess, err, false)
		return nil, err
	}
	if err := e.store.Put(ctx, sess); err != nil {
		err = fmt.Errorf("store session: %w", err)
		e.fail(ctx, def, sess, err, false)
		return nil, err
	}
	return sess, nil
}

// Handle feeds one inbound message to the user's session. Handler failures are
// logged, reported to the user and turned into OutcomeFailed with a nil error;
// a non-nil error means the session could not be loaded.
func (e *Engine) Handle(ctx context.Context, userID int64, msg Message) (Outcome, error) {
	sess, err := e.store.Get(ctx, userID)
	if errors.Is(err, ErrSessionNotFound) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	def, ok := e.registry.Lookup(sess.WizardID)
	if !ok || sess.StepIndex < 0 || sess.StepIndex >= len(def.Steps) {
		removed := e.remove(ctx, sess)
		e.log.Error().Int64("tg_id", userID).Str("session_id", sess.ID).Str("wizard", sess.WizardID).
			Int("step", sess.StepIndex).Msg("session points to an unknown wizard step; dropped")
		e.notify(ctx, userID, Say(NoticeGenericError))
		if removed {
			e.obs.SessionFinished(sess.WizardID, OutcomeFailed)
		}
		return OutcomeFailed, nil
	}

	in := ParseInput(msg)
	turn := Turn{UserID: userID, SessionID: sess.ID, Text: in.Text}
	switch in.Kind {
	case InputMalformed:
		removed := e.remove(ctx, sess)
		e.log.Debug().Int64("tg_id", userID).Str("session_id", sess.ID).Str("wizard", def.ID).
			Msg("non-text input, session dropped")
		if removed {
			e.obs.SessionFinished(def.ID, OutcomeDropped)
		}
		return OutcomeDropped, nil
	case InputCancel:
		notice := e.exitNotice(ctx, def, turn, sess.State)
		removed := e.remove(ctx, sess)
		e.notify(ctx, userID, notice)
		if removed {
			e.obs.SessionFinished(def.ID, OutcomeCancelled)
		}
		return OutcomeCancelled, nil
	}

	step := def.Steps[sess.StepIndex]
	var res Result
	err = safely(func() error {
		var herr error
		res, herr = step.Handle(ctx, turn, sess.State)
		return herr
	})
	if err == nil && !res.valid() {
		err = fmt.Errorf("%w: step %q returned no result", ErrInvalidDefinition, step.Name)
	}
	if err != nil {
		e.fail(ctx, def, sess, err, true)
		return OutcomeFailed, nil
	}
	e.obs.StepResult(def.ID, step.Name, res.Kind())

	switch res.Kind() {
	case KindRepeat:
		e.notify(ctx, userID, res.Notice())
		return OutcomeRepeated, nil
	case KindTerminate:
		removed := e.remove(ctx, sess)
		e.notify(ctx, userID, res.Notice())
		if removed {
			e.obs.SessionFinished(def.ID, OutcomeTerminated)
		}
		return OutcomeTerminated, nil
	}

	if res.State() != nil {
		sess.State = res.State()
	}
	next := sess.StepIndex + 1
	if next >= len(def.Steps) {
		removed := e.remove(ctx, sess)
		e.notify(ctx, userID, res.Notice())
		if removed {
			e.obs.SessionFinished(def.ID, OutcomeTerminated)
		}
		return OutcomeTerminated, nil
	}
	e.notify(ctx, userID, res.Notice())
	sess.StepIndex = next
	sess.UpdatedAt = e.now()
	if err := e.enterStep(ctx, def, sess); err != nil {
		e.fail(ctx, def, sess, err, true)
		return OutcomeFailed, nil
	}
	if err := e.store.Put(ctx, sess); err != nil {
		e.fail(ctx, def, sess, fmt.Errorf("store session: %w", err), true)
		return OutcomeFailed, nil
	}
	return OutcomeAdvanced, nil
}

// Abort removes the user's session without telling them.
func (e *Engine) Abort(ctx context.Context, userID int64) error {
	sess, err := e.store.Get(ctx, userID)
	if errors.Is(err, ErrSessionNotFound) {
		return ErrNoSession
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if err := e.store.Remove(ctx, userID); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	e.log.Info().Int64("tg_id", userID).Str("session_id", sess.ID).Str("wizard", sess.WizardID).Msg("session aborted")
	e.obs.SessionFinished(sess.WizardID, OutcomeCancelled)
	return nil
}

// Active reports whether the user is inside a wizard.
func (e *Engine) Active(ctx context.Context, userID int64) (bool, error) {
	_, err := e.store.Get(ctx, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrSessionNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Session returns the user's current session or ErrNoSession.
func (e *Engine) Session(ctx context.Context, userID int64) (*Session, error) {
	sess, err := e.store.Get(ctx, userID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, ErrNoSession
	}
	return sess, err
}

func (e *Engine) enterStep(ctx context.Context, def Definition, sess *Session) error {
	step := def.Steps[sess.StepIndex]
	if step.Enter == nil {
		return nil
	}
	turn := Turn{UserID: sess.UserID, SessionID: sess.ID}
	return safely(func() error {
		next, err := step.Enter(ctx, turn, sess.State)
		if err != nil {
			return err
		}
		if next != nil {
			sess.State = next
		}
		return nil
	})
}

func (e *Engine) exitNotice(ctx context.Context, def Definition, turn Turn, state any) (n *Notice) {
	if def.Exit == nil {
		return Say(NoticeExit)
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Str("wizard", def.ID).Msg("exit hook panicked")
			n = Say(NoticeExit)
		}
	}()
	if n = def.Exit(ctx, turn, state); n == nil {
		n = Say(NoticeExit)
	}
	return n
}

// fail tears sess down after err. stored tells whether sess had been written
// to the store before; an unstored session is always reported as finished.
func (e *Engine) fail(ctx context.Context, def Definition, sess *Session, err error, stored bool) {
	finished := e.remove(ctx, sess) || !stored
	stepName := ""
	if sess.StepIndex >= 0 && sess.StepIndex < len(def.Steps) {
		stepName = def.Steps[sess.StepIndex].Name
	}
	ev := e.log.Error()
	var refusal *RefusalError
	if errors.As(err, &refusal) {
		ev = e.log.Info()
	}
	ev.Err(err).
		Int64("tg_id", sess.UserID).
		Str("session_id", sess.ID).
		Str("wizard", def.ID).
		Int("step", sess.StepIndex).
		Str("step_name", stepName).
		Msg("wizard step failed")
	e.notify(ctx, sess.UserID, NoticeFor(err))
	if finished {
		e.obs.SessionFinished(def.ID, OutcomeFailed)
	}
}

// remove deletes sess unless a step already replaced it, e.g. by handing the
// same user over to another wizard. It reports whether sess was still the
// user's session; a replaced one was already reported as finished.
func (e *Engine) remove(ctx context.Context, sess *Session) bool {
	cur, err := e.store.Get(ctx, sess.UserID)
	if errors.Is(err, ErrSessionNotFound) {
		return false
	}
	if err == nil && cur.ID != sess.ID {
		return false
	}
	if err := e.store.Remove(ctx, sess.UserID); err != nil {
		e.log.Error().Err(err).Int64("tg_id", sess.UserID).Str("session_id", sess.ID).Msg("failed to remove session")
	}
	return true
}

func (e *Engine) notify(ctx context.Context, userID int64, n *Notice) {
	if n == nil || n.Key == "" || e.notifier == nil {
		return
	}
	if err := e.notifier.Send(ctx, userID, n.Key, n.Args...); err != nil {
		e.log.Warn().Err(err).Int64("tg_id", userID).Str("key", n.Key).Msg("failed to deliver notice")
	}
}

// NoticeFor maps a step failure to the notice shown to the user. Raw errors
// never reach the chat.
func NoticeFor(err error) *Notice {
	var refusal *RefusalError
	if errors.As(err, &refusal) && refusal.Notice != nil {
		return refusal.Notice
	}
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnauthorized) {
		return Say(NoticeNotFound)
	}
	return Say(NoticeGenericError)
}

func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()
	return fn()
}
