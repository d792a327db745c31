package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dicto/internal/fsm"
	"dicto/internal/ipc"
)

type fakeTranscriber struct {
	mu       sync.Mutex
	startErr error
	stopRes  StopResult
	stopErr  error
	started  int
	stops    int
	cancels  int
}

func (f *fakeTranscriber) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	return f.startErr
}

func (f *fakeTranscriber) StopAndTranscribe(context.Context) (StopResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return f.stopRes, f.stopErr
}

func (f *fakeTranscriber) Cancel(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	return nil
}

func (f *fakeTranscriber) counts() (started, stops, cancels int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started, f.stops, f.cancels
}

type fakeCommitter struct {
	mu      sync.Mutex
	err     error
	commits []string
}

func (f *fakeCommitter) Commit(_ context.Context, transcript string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, transcript)
	return f.err
}

func (f *fakeCommitter) committed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commits...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) StateChanged(state fsm.State, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, string(state)+":"+reason)
}

func (n *recordingNotifier) seen() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func waitForState(t *testing.T, c *Controller, want fsm.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.State() == want
	}, 2*time.Second, 5*time.Millisecond)
}

func runInBackground(c *Controller) <-chan Result {
	results := make(chan Result, 1)
	go func() {
		results <- c.Run(context.Background())
	}()
	return results
}

func TestRunFullCycleCommits(t *testing.T) {
	transcriber := &fakeTranscriber{stopRes: StopResult{
		Transcript:    "hello world",
		RawTranscript: "hello world",
		AudioDevice:   "mic (default)",
		BytesCaptured: 1280,
	}}
	committer := &fakeCommitter{}
	notifier := &recordingNotifier{}
	c := NewController(nil, transcriber, committer, notifier)

	results := runInBackground(c)
	waitForState(t, c, fsm.StateRecording)

	resp := c.RequestStop()
	require.True(t, resp.OK)

	result := <-results
	require.NoError(t, result.Err)
	require.Equal(t, "hello world", result.Transcript)
	require.Equal(t, "mic (default)", result.AudioDevice)
	require.Equal(t, int64(1280), result.BytesCaptured)
	require.Equal(t, fsm.StateIdle, result.State)
	require.NotEmpty(t, result.ID)

	require.Equal(t, []string{"hello world"}, committer.committed())
	require.Equal(t, []string{
		"recording:recording_started",
		"processing:processing",
		"idle:committed",
	}, notifier.seen())
}

func TestStartWhileActiveIsNoOp(t *testing.T) {
	transcriber := &fakeTranscriber{stopRes: StopResult{Transcript: "x"}}
	c := NewController(nil, transcriber, &fakeCommitter{}, nil)

	results := runInBackground(c)
	waitForState(t, c, fsm.StateRecording)

	resp := c.RequestStart()
	require.True(t, resp.OK)
	require.Equal(t, "start ignored; session active", resp.Message)
	require.Equal(t, fsm.StateRecording, c.State())

	// The remote-trigger alias follows the same guard.
	aliasResp := c.Handle(context.Background(), ipc.Request{Command: "recording"})
	require.True(t, aliasResp.OK)
	require.Equal(t, "start ignored; session active", aliasResp.Message)

	started, _, _ := transcriber.counts()
	require.Equal(t, 1, started)

	require.True(t, c.RequestStop().OK)
	<-results
}

func TestCancelDiscardsSession(t *testing.T) {
	transcriber := &fakeTranscriber{stopRes: StopResult{Transcript: "x"}}
	committer := &fakeCommitter{}
	c := NewController(nil, transcriber, committer, nil)

	results := runInBackground(c)
	waitForState(t, c, fsm.StateRecording)

	require.True(t, c.RequestCancel().OK)

	result := <-results
	require.True(t, result.Cancelled)
	require.NoError(t, result.Err)
	require.Equal(t, fsm.StateIdle, result.State)
	require.Empty(t, committer.committed())

	_, stops, cancels := transcriber.counts()
	require.Zero(t, stops)
	require.Equal(t, 1, cancels)
}

func TestMicFailureResetsToIdle(t *testing.T) {
	transcriber := &fakeTranscriber{startErr: errors.New("pulse unavailable")}
	notifier := &recordingNotifier{}
	c := NewController(nil, transcriber, &fakeCommitter{}, notifier)

	result := c.Run(context.Background())
	require.Error(t, result.Err)
	require.Equal(t, fsm.StateIdle, result.State)
	require.Equal(t, []string{
		"error:mic_failed",
		"idle:error_reset",
	}, notifier.seen())
}

func TestSTTFailureResetsToIdle(t *testing.T) {
	transcriber := &fakeTranscriber{stopErr: errors.New("stt HTTP 500")}
	notifier := &recordingNotifier{}
	c := NewController(nil, transcriber, &fakeCommitter{}, notifier)

	results := runInBackground(c)
	waitForState(t, c, fsm.StateRecording)
	require.True(t, c.RequestStop().OK)

	result := <-results
	require.Error(t, result.Err)
	require.Equal(t, fsm.StateIdle, result.State)
	require.Contains(t, notifier.seen(), "error:stt_failed")
}

func TestEmptyTranscriptResetsToIdle(t *testing.T) {
	transcriber := &fakeTranscriber{stopRes: StopResult{Transcript: "   "}}
	committer := &fakeCommitter{}
	notifier := &recordingNotifier{}
	c := NewController(nil, transcriber, committer, notifier)

	results := runInBackground(c)
	waitForState(t, c, fsm.StateRecording)
	require.True(t, c.RequestStop().OK)

	result := <-results
	require.ErrorIs(t, result.Err, ErrEmptyTranscript)
	require.Equal(t, fsm.StateIdle, result.State)
	require.Empty(t, committer.committed())
	require.Contains(t, notifier.seen(), "error:no_transcript")
}

func TestCommitFailureResetsToIdle(t *testing.T) {
	transcriber := &fakeTranscriber{stopRes: StopResult{Transcript: "hello"}}
	committer := &fakeCommitter{err: errors.New("wl-copy missing")}
	notifier := &recordingNotifier{}
	c := NewController(nil, transcriber, committer, notifier)

	results := runInBackground(c)
	waitForState(t, c, fsm.StateRecording)
	require.True(t, c.RequestStop().OK)

	result := <-results
	require.Error(t, result.Err)
	require.Equal(t, "hello", result.Transcript)
	require.Equal(t, fsm.StateIdle, result.State)
	require.Contains(t, notifier.seen(), "error:commit_failed")
}

func TestStopAndCancelRejectedWhenIdle(t *testing.T) {
	c := NewController(nil, &fakeTranscriber{}, &fakeCommitter{}, nil)

	stop := c.RequestStop()
	require.False(t, stop.OK)
	require.Contains(t, stop.Error, "cannot stop")

	cancel := c.RequestCancel()
	require.False(t, cancel.OK)
	require.Contains(t, cancel.Error, "cannot cancel")
}

func TestHandleStatusAndUnknownCommand(t *testing.T) {
	c := NewController(nil, &fakeTranscriber{}, &fakeCommitter{}, nil)

	status := c.Handle(context.Background(), ipc.Request{Command: "status"})
	require.True(t, status.OK)
	require.Equal(t, "idle", status.State)

	unknown := c.Handle(context.Background(), ipc.Request{Command: "bogus"})
	require.False(t, unknown.OK)
	require.Contains(t, unknown.Error, "unknown command")
}

func TestStatusReportsActiveSessionID(t *testing.T) {
	transcriber := &fakeTranscriber{stopRes: StopResult{Transcript: "hi"}}
	c := NewController(nil, transcriber, &fakeCommitter{}, nil)

	idle := c.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	require.True(t, idle.OK)
	require.Empty(t, idle.SessionID)

	results := runInBackground(c)
	waitForState(t, c, fsm.StateRecording)

	recording := c.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	require.True(t, recording.OK)
	require.NotEmpty(t, recording.SessionID)

	require.True(t, c.RequestStop().OK)
	result := <-results
	require.Equal(t, result.ID, recording.SessionID)

	after := c.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	require.Empty(t, after.SessionID)
}

func TestHandleProcessingAliasMapsToStop(t *testing.T) {
	transcriber := &fakeTranscriber{stopRes: StopResult{Transcript: "hi"}}
	c := NewController(nil, transcriber, &fakeCommitter{}, nil)

	results := runInBackground(c)
	waitForState(t, c, fsm.StateRecording)

	resp := c.Handle(context.Background(), ipc.Request{Command: "processing"})
	require.True(t, resp.OK)

	result := <-results
	require.NoError(t, result.Err)
	require.Equal(t, "hi", result.Transcript)
}

func TestRunLoopServesStartsSerially(t *testing.T) {
	transcriber := &fakeTranscriber{stopRes: StopResult{Transcript: "loop"}}
	c := NewController(nil, transcriber, &fakeCommitter{}, nil)

	results := make(chan Result, 2)
	c.SetResultHandler(func(r Result) { results <- r })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.RunLoop(ctx)

	require.True(t, c.RequestStart().OK)
	waitForState(t, c, fsm.StateRecording)
	require.True(t, c.RequestStop().OK)

	first := <-results
	require.NoError(t, first.Err)
	require.Equal(t, "loop", first.Transcript)
	require.Equal(t, fsm.StateIdle, c.State())

	require.True(t, c.RequestStart().OK)
	waitForState(t, c, fsm.StateRecording)
	require.True(t, c.RequestStop().OK)

	second := <-results
	require.NoError(t, second.Err)
	require.NotEqual(t, first.ID, second.ID)
}

func TestRunContextCancellation(t *testing.T) {
	transcriber := &fakeTranscriber{}
	c := NewController(nil, transcriber, &fakeCommitter{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan Result, 1)
	go func() { results <- c.Run(ctx) }()

	waitForState(t, c, fsm.StateRecording)
	cancel()

	result := <-results
	require.ErrorIs(t, result.Err, context.Canceled)
	require.Equal(t, fsm.StateIdle, result.State)

	_, _, cancels := transcriber.counts()
	require.Equal(t, 1, cancels)
}
