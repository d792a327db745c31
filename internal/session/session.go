// Package session coordinates dictation lifecycle state, actions, and commit flow.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"dicto/internal/fsm"
	"dicto/internal/ipc"
)

type action int

const (
	actionStop action = iota + 1
	actionCancel
)

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	ID            string
	State         fsm.State
	Transcript    string
	RawTranscript string
	Cancelled     bool
	Err           error
	AudioDevice   string
	BytesCaptured int64
	STTLatency    time.Duration
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Controller orchestrates session state transitions and side effects.
//
// Mutual exclusion is the state guard: only idle accepts a start request, so
// at most one capture and one processing chain are in flight, and sessions
// are fully serialized.
type Controller struct {
	logger     *slog.Logger
	transcribe Transcriber
	commit     Committer
	notify     Notifier

	mu        sync.RWMutex
	state     fsm.State
	sessionID string

	starts   chan struct{}
	actions  chan action
	onResult func(Result)
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(
	logger *slog.Logger,
	transcriber Transcriber,
	committer Committer,
	notifier Notifier,
) *Controller {
	if transcriber == nil {
		transcriber = PlaceholderTranscriber{}
	}
	if committer == nil {
		committer = CommitFunc(func(context.Context, string) error { return nil })
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}

	return &Controller{
		logger:     logger,
		transcribe: transcriber,
		commit:     committer,
		notify:     notifier,
		state:      fsm.StateIdle,
		starts:     make(chan struct{}, 1),
		actions:    make(chan action, 1),
	}
}

// SetResultHandler registers a callback invoked with every finished Result.
func (c *Controller) SetResultHandler(handler func(Result)) {
	c.onResult = handler
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// snapshot returns the current state and active session id together.
func (c *Controller) snapshot() (fsm.State, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state, c.sessionID
}

func (c *Controller) setSessionID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
}

// transition applies one FSM event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// RunLoop serves start requests until context cancellation, running sessions
// strictly one at a time.
func (c *Controller) RunLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.starts:
			result := c.Run(ctx)
			if c.onResult != nil {
				c.onResult(result)
			}
		}
	}
}

// Run executes one session lifecycle from start to stop/cancel/failure completion.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{ID: uuid.NewString(), StartedAt: time.Now()}

	finish := func() Result {
		result.State = c.State()
		result.FinishedAt = time.Now()
		c.setSessionID("")
		return result
	}

	if err := c.transition(fsm.EventStart); err != nil {
		result.Err = err
		return finish()
	}
	c.setSessionID(result.ID)

	if err := c.transcribe.Start(ctx); err != nil {
		c.failAndReset(ReasonMicFailed)
		result.Err = err
		return finish()
	}
	c.notify.StateChanged(fsm.StateRecording, ReasonRecordingStarted)

	select {
	case <-ctx.Done():
		_ = c.transcribe.Cancel(context.Background())
		c.failAndReset(ReasonCancelled)
		result.Err = ctx.Err()
		return finish()
	case a := <-c.actions:
		switch a {
		case actionCancel:
			_ = c.transcribe.Cancel(context.Background())
			_ = c.transition(fsm.EventCancel)
			c.notify.StateChanged(fsm.StateIdle, ReasonCancelled)
			result.Cancelled = true
			return finish()
		case actionStop:
			if err := c.transition(fsm.EventStop); err != nil {
				c.failAndReset(ReasonSTTFailed)
				result.Err = err
				return finish()
			}
			c.notify.StateChanged(fsm.StateProcessing, ReasonProcessing)

			stopResult, err := c.transcribe.StopAndTranscribe(ctx)
			result.AudioDevice = stopResult.AudioDevice
			result.BytesCaptured = stopResult.BytesCaptured
			result.STTLatency = stopResult.STTLatency
			result.RawTranscript = stopResult.RawTranscript
			if err != nil {
				c.failAndReset(ReasonSTTFailed)
				result.Err = err
				return finish()
			}

			if strings.TrimSpace(stopResult.Transcript) == "" {
				c.failAndReset(ReasonNoTranscript)
				result.Err = ErrEmptyTranscript
				result.Transcript = stopResult.Transcript
				return finish()
			}

			if err := c.commit.Commit(ctx, stopResult.Transcript); err != nil {
				c.failAndReset(ReasonCommitFailed)
				result.Err = err
				result.Transcript = stopResult.Transcript
				return finish()
			}

			if err := c.transition(fsm.EventCommitted); err != nil {
				result.Err = err
				result.Transcript = stopResult.Transcript
				return finish()
			}
			c.notify.StateChanged(fsm.StateIdle, ReasonCommitted)

			result.Transcript = stopResult.Transcript
			return finish()
		default:
			c.failAndReset(ReasonErrorReset)
			result.Err = fmt.Errorf("unknown action %d", a)
			return finish()
		}
	}
}

// Handle serves control commands from the IPC socket and the HTTP surface.
// Requests are canonicalized first, so the remote event channel aliases act
// as start and stop triggers on every surface.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Canonical().Command {
	case ipc.CommandStatus:
		state, sessionID := c.snapshot()
		return ipc.Response{OK: true, State: string(state), SessionID: sessionID, Message: "status"}
	case ipc.CommandToggle:
		return c.requestToggle()
	case ipc.CommandStart:
		return c.RequestStart()
	case ipc.CommandStop:
		return c.RequestStop()
	case ipc.CommandCancel:
		return c.RequestCancel()
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// RequestStart enqueues a session start. Outside idle it is a deliberate
// no-op: no stream is acquired and no state changes.
func (c *Controller) RequestStart() ipc.Response {
	state, sessionID := c.snapshot()
	if state != fsm.StateIdle {
		return ipc.Response{OK: true, State: string(state), SessionID: sessionID, Message: "start ignored; session active"}
	}

	select {
	case c.starts <- struct{}{}:
		return ipc.Response{OK: true, State: string(state), Message: "start requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "start already requested"}
	}
}

// RequestStop enqueues a stop action when state permits it.
func (c *Controller) RequestStop() ipc.Response {
	state, sessionID := c.snapshot()
	if state == fsm.StateProcessing {
		return ipc.Response{OK: false, State: string(state), SessionID: sessionID, Error: "already processing"}
	}
	if state != fsm.StateRecording {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot stop from state %s", state)}
	}

	select {
	case c.actions <- actionStop:
		return ipc.Response{OK: true, State: string(state), SessionID: sessionID, Message: "stop requested"}
	default:
		return ipc.Response{OK: true, State: string(state), SessionID: sessionID, Message: "stop already requested"}
	}
}

// RequestCancel enqueues a cancel action when state permits it.
func (c *Controller) RequestCancel() ipc.Response {
	state, sessionID := c.snapshot()
	if state == fsm.StateProcessing {
		return ipc.Response{OK: false, State: string(state), SessionID: sessionID, Error: "cannot cancel while processing"}
	}
	if state != fsm.StateRecording {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot cancel from state %s", state)}
	}

	select {
	case c.actions <- actionCancel:
		return ipc.Response{OK: true, State: string(state), SessionID: sessionID, Message: "cancel requested"}
	default:
		return ipc.Response{OK: true, State: string(state), SessionID: sessionID, Message: "cancel already requested"}
	}
}

// requestToggle starts when idle and stops when recording.
func (c *Controller) requestToggle() ipc.Response {
	switch c.State() {
	case fsm.StateRecording:
		return c.RequestStop()
	case fsm.StateProcessing:
		return ipc.Response{OK: false, State: string(fsm.StateProcessing), Error: "already processing"}
	default:
		return c.RequestStart()
	}
}

// failAndReset transitions to error, notifies, and resets back to idle.
// The error state has no user-facing recovery action, so recovery is automatic.
func (c *Controller) failAndReset(reason string) {
	_ = c.transition(fsm.EventFail)
	c.notify.StateChanged(fsm.StateError, reason)
	_ = c.transition(fsm.EventReset)
	c.notify.StateChanged(fsm.StateIdle, ReasonErrorReset)
}
