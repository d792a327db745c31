// Package pipeline owns one end-to-end capture -> transcription -> formatting
// chain per session.
package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"dicto/internal/audio"
	"dicto/internal/config"
	"dicto/internal/mask"
	"dicto/internal/session"
)

// SpeechToText is the one-shot transcription backend call.
type SpeechToText interface {
	TranscribeOnce(ctx context.Context, settings config.Settings, audioB64 string) (string, error)
}

// Formatter is the transcript formatting backend call.
type Formatter interface {
	Format(ctx context.Context, settings config.Settings, text string) (string, error)
}

// SettingsSource yields the settings snapshot the backend calls read.
type SettingsSource interface {
	Get() config.Settings
}

// CaptureSession is one live audio input stream owned by the pipeline for the
// duration of a session.
type CaptureSession interface {
	Chunks() <-chan []byte
	BytesCaptured() int64
	Stop() error
}

// CaptureOpener resolves a device and opens a capture stream.
type CaptureOpener interface {
	SelectDevice(ctx context.Context, input, fallback string) (audio.Selection, error)
	StartCapture(ctx context.Context, device audio.Device) (CaptureSession, error)
}

// pulseOpener is the runtime CaptureOpener backed by the Pulse client.
type pulseOpener struct{}

func (pulseOpener) SelectDevice(ctx context.Context, input, fallback string) (audio.Selection, error) {
	return audio.SelectDevice(ctx, input, fallback)
}

func (pulseOpener) StartCapture(ctx context.Context, device audio.Device) (CaptureSession, error) {
	return audio.StartCapture(ctx, device)
}

// Transcriber implements session.Transcriber over Pulse capture and the
// Groq/Gemini backend calls.
type Transcriber struct {
	settings SettingsSource
	stt      SpeechToText
	format   Formatter
	logger   *slog.Logger
	opener   CaptureOpener

	audioInput    string
	audioFallback string

	mu          sync.Mutex
	started     bool
	selection   audio.Selection
	capture     CaptureSession
	collectDone chan struct{}
	chunks      [][]byte
}

// NewTranscriber constructs a pipeline transcriber.
func NewTranscriber(settings SettingsSource, stt SpeechToText, format Formatter, logger *slog.Logger) *Transcriber {
	return &Transcriber{
		settings:      settings,
		stt:           stt,
		format:        format,
		logger:        logger,
		opener:        pulseOpener{},
		audioInput:    "default",
		audioFallback: "default",
	}
}

// Start resolves device selection, starts capture, and begins accumulating
// audio chunks in arrival order.
func (t *Transcriber) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return fmt.Errorf("transcriber already started")
	}

	selection, err := t.opener.SelectDevice(ctx, t.audioInput, t.audioFallback)
	if err != nil {
		return err
	}
	t.selection = selection
	if selection.Warning != "" {
		t.logWarn(selection.Warning)
	}

	capture, err := t.opener.StartCapture(ctx, selection.Device)
	if err != nil {
		return err
	}
	t.capture = capture

	t.chunks = nil
	t.collectDone = make(chan struct{})
	go t.collectLoop(capture, t.collectDone)

	t.started = true
	return nil
}

// collectLoop accumulates capture chunks until the chunk channel closes.
func (t *Transcriber) collectLoop(capture CaptureSession, done chan struct{}) {
	defer close(done)
	for chunk := range capture.Chunks() {
		if len(chunk) == 0 {
			continue
		}
		t.mu.Lock()
		t.chunks = append(t.chunks, chunk)
		t.mu.Unlock()
	}
}

// StopAndTranscribe releases the capture hardware, assembles the payload, and
// runs the backend chain: transcription, masking, then formatting when
// enabled. The chunk sequence is discarded once the payload is assembled.
func (t *Transcriber) StopAndTranscribe(ctx context.Context) (session.StopResult, error) {
	t.mu.Lock()
	started := t.started
	capture := t.capture
	collectDone := t.collectDone
	selection := t.selection
	t.mu.Unlock()

	if !started || capture == nil {
		return session.StopResult{}, session.ErrPipelineUnavailable
	}

	// Tracks are released here, before any backend call goes out.
	_ = capture.Stop()
	<-collectDone

	t.mu.Lock()
	chunks := t.chunks
	t.chunks = nil
	t.started = false
	t.capture = nil
	t.collectDone = nil
	t.mu.Unlock()

	result := session.StopResult{
		AudioDevice:   describeDevice(selection.Device),
		BytesCaptured: capture.BytesCaptured(),
	}

	payload := assemblePCM(chunks)
	wav := encodePCM16WAV(payload, audio.SampleRate, audio.Channels)
	audioB64 := base64.StdEncoding.EncodeToString(wav)

	settings := t.settings.Get()

	sttStart := time.Now()
	transcript, err := t.stt.TranscribeOnce(ctx, settings, audioB64)
	result.STTLatency = time.Since(sttStart)
	if err != nil {
		return result, fmt.Errorf("transcribe audio: %w", err)
	}
	result.RawTranscript = transcript

	masked, err := mask.Apply(settings, transcript)
	if err != nil {
		return result, fmt.Errorf("mask transcript: %w", err)
	}
	transcript = masked

	if settings.EnableGemini {
		formatted, err := t.format.Format(ctx, settings, transcript)
		if err != nil {
			return result, fmt.Errorf("format transcript: %w", err)
		}
		transcript = formatted
	}

	result.Transcript = transcript
	return result, nil
}

// Cancel stops capture immediately and discards accumulated audio.
func (t *Transcriber) Cancel(_ context.Context) error {
	t.mu.Lock()
	capture := t.capture
	collectDone := t.collectDone
	t.mu.Unlock()

	if capture != nil {
		_ = capture.Stop()
	}
	if collectDone != nil {
		<-collectDone
	}

	t.mu.Lock()
	t.chunks = nil
	t.started = false
	t.capture = nil
	t.collectDone = nil
	t.mu.Unlock()
	return nil
}

// assemblePCM concatenates the ordered chunk sequence into one payload.
func assemblePCM(chunks [][]byte) []byte {
	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}
	payload := make([]byte, 0, total)
	for _, chunk := range chunks {
		payload = append(payload, chunk...)
	}
	return payload
}

// describeDevice formats device metadata for logs/session results.
func describeDevice(device audio.Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}

// logWarn emits warning-level logs when logger is configured.
func (t *Transcriber) logWarn(message string) {
	if t.logger == nil {
		return
	}
	t.logger.Warn(message)
}
