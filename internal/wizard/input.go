package wizard

import "strings"

// ExitToken is the reply that cancels any wizard. It is part of the
// user-visible protocol.
const ExitToken = "exit"

// Message is an inbound chat event. Text is empty for stickers, photos,
// callbacks and anything else that is not a text message.
type Message struct {
	ID   int
	Text string
}

type InputKind int

const (
	InputMalformed InputKind = iota
	InputCancel
	InputText
)

// Input is a classified Message.
type Input struct {
	Kind InputKind
	Text string
}

// ParseInput separates the cancellation token and uninterpretable events from
// ordinary replies. Text replies are trimmed.
func ParseInput(m Message) Input {
	text := strings.TrimSpace(m.Text)
	switch {
	case text == "":
		return Input{Kind: InputMalformed}
	case strings.EqualFold(text, ExitToken):
		return Input{Kind: InputCancel, Text: text}
	default:
		return Input{Kind: InputText, Text: text}
	}
}
