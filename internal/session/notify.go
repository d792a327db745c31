package session

import "dicto/internal/fsm"

// State change reasons surfaced to notifiers alongside the new state.
const (
	ReasonRecordingStarted = "recording_started"
	ReasonProcessing       = "processing"
	ReasonCommitted        = "committed"
	ReasonCancelled        = "cancelled"
	ReasonNoTranscript     = "no_transcript"
	ReasonMicFailed        = "mic_failed"
	ReasonSTTFailed        = "stt_failed"
	ReasonCommitFailed     = "commit_failed"
	ReasonErrorReset       = "error_reset"
)

// Notifier observes controller state changes (websocket event feed, tests).
type Notifier interface {
	StateChanged(state fsm.State, reason string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(state fsm.State, reason string)

func (f NotifierFunc) StateChanged(state fsm.State, reason string) {
	f(state, reason)
}

// noopNotifier preserves session flow when no notifier is wired.
type noopNotifier struct{}

func (noopNotifier) StateChanged(fsm.State, string) {}
