// Package ipc is the unix-socket control surface: newline-delimited JSON,
// one request/response exchange per connection.
package ipc

// Control commands. The remote event channel delivers state names instead of
// verbs; AliasRecording and AliasProcessing map those onto start and stop so
// remote triggers behave exactly like local ones.
const (
	CommandStatus = "status"
	CommandToggle = "toggle"
	CommandStart  = "start"
	CommandStop   = "stop"
	CommandCancel = "cancel"

	AliasRecording  = "recording"
	AliasProcessing = "processing"
)

// Request is one control command sent to the socket owner.
type Request struct {
	Command string `json:"command"`
}

// Canonical resolves remote event aliases to their command equivalents.
// Unknown commands pass through for the handler to reject.
func (r Request) Canonical() Request {
	switch r.Command {
	case AliasRecording:
		return Request{Command: CommandStart}
	case AliasProcessing:
		return Request{Command: CommandStop}
	default:
		return r
	}
}

// Response reports the outcome of one command. SessionID identifies the active
// capture session when one is running.
type Response struct {
	OK        bool   `json:"ok"`
	State     string `json:"state,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}
