// Package agent holds the pure core of the conversation engine: the dialogue
// state machine and the system-prompt builder. Nothing here does I/O.
package agent

// State is a phase of the bounded feedback conversation. It controls which
// instruction block is sent to the generation service for the current turn.
type State string

const (
	StateGreeter          State = "GREETER"
	StateInterviewer      State = "INTERVIEWER"
	StateClarifier        State = "CLARIFIER"
	StateSensitiveHandler State = "SENSITIVE_HANDLER"
	StateCloser           State = "CLOSER"
	StateEnded            State = "ENDED"
)

// MaxSessionMessages is the hard ceiling on messages per session. The
// interviewer moves to the closer once the transcript reaches this many
// messages: five question-answer exchanges.
const MaxSessionMessages = 10

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateGreeter, StateInterviewer, StateClarifier,
		StateSensitiveHandler, StateCloser, StateEnded:
		return true
	}
	return false
}

// Next computes the state for the following turn. Sensitive content overrides
// everything else; ENDED is terminal and absorbing. Pure and total.
func Next(current State, messageCount int, isSensitive bool) State {
	if isSensitive {
		return StateSensitiveHandler
	}

	switch current {
	case StateGreeter:
		return StateInterviewer
	case StateInterviewer:
		if messageCount >= MaxSessionMessages {
			return StateCloser
		}
		return StateInterviewer
	case StateClarifier:
		return StateCloser
	case StateSensitiveHandler:
		return StateEnded
	case StateCloser:
		return StateEnded
	default:
		return StateEnded
	}
}
