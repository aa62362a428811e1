package wizard

// Notice is a user-visible message: a locale template id and its parameters.
type Notice struct {
	Key  string
	Args []any
}

// Say builds a Notice.
func Say(key string, args ...any) *Notice {
	return &Notice{Key: key, Args: args}
}

type Kind int

const (
	KindAdvance Kind = iota + 1
	KindRepeat
	KindTerminate
)

func (k Kind) String() string {
	switch k {
	case KindAdvance:
		return "advance"
	case KindRepeat:
		return "repeat"
	case KindTerminate:
		return "terminate"
	}
	return "invalid"
}

// Result is what a step handler returns. The zero value is invalid and is
// treated by the engine as a handler failure.
type Result struct {
	kind   Kind
	state  any
	notice *Notice
}

// Advance moves to the next step and replaces the session state. A nil state
// keeps the current one.
func Advance(next any) Result { return Result{kind: KindAdvance, state: next} }

// Repeat stays on the current step, optionally warning the user.
func Repeat(n *Notice) Result { return Result{kind: KindRepeat, notice: n} }

// Terminate ends the session, optionally with a closing message.
func Terminate(n *Notice) Result { return Result{kind: KindTerminate, notice: n} }

// WithNotice attaches a notice emitted before the next step prompts. It is
// mostly useful on Advance; Repeat and Terminate take theirs directly.
func (r Result) WithNotice(n *Notice) Result {
	r.notice = n
	return r
}

func (r Result) Kind() Kind      { return r.kind }
func (r Result) State() any      { return r.state }
func (r Result) Notice() *Notice { return r.notice }
func (r Result) valid() bool     { return r.kind >= KindAdvance && r.kind <= KindTerminate }
