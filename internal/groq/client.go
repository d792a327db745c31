// Package groq implements the one-shot whisper transcription call against the
// Groq OpenAI-compatible audio endpoint.
package groq

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"dicto/internal/config"
)

// DisabledNotice is returned as the transcript when no API key is configured,
// so the commit path still produces visible output in demo setups.
const DisabledNotice = "(demo: STT disabled; set GROQ_API_KEY)"

// Config controls endpoint and model selection.
type Config struct {
	APIBaseURL string
	Model      string
	Timeout    time.Duration
}

// KeyLookup resolves the API key at call time (env var, then vault).
type KeyLookup func() string

// Client is a one-shot transcription client.
type Client struct {
	cfg        Config
	httpClient *http.Client
	lookupKey  KeyLookup
}

// NewClient applies endpoint/model/timeout defaults matching the upstream
// service contract.
func NewClient(cfg Config, lookupKey KeyLookup) *Client {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-large-v3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if lookupKey == nil {
		lookupKey = func() string { return "" }
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		lookupKey:  lookupKey,
	}
}

// TranscribeOnce sends one base64 WAV payload and returns the transcript.
// offlineMode short-circuits to empty text; a missing key returns the demo
// notice instead of failing.
func (c *Client) TranscribeOnce(ctx context.Context, settings config.Settings, audioB64 string) (string, error) {
	if settings.OfflineMode {
		return "", nil
	}

	apiKey := strings.TrimSpace(c.lookupKey())
	if apiKey == "" {
		return DisabledNotice, nil
	}

	audioBytes, err := base64.StdEncoding.DecodeString(audioB64)
	if err != nil {
		return "", fmt.Errorf("decode audio payload: %w", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="audio.wav"`)
	header.Set("Content-Type", "audio/wav")
	part, err := form.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("build multipart form: %w", err)
	}
	if _, err := part.Write(audioBytes); err != nil {
		return "", fmt.Errorf("write audio part: %w", err)
	}
	if err := form.WriteField("model", c.cfg.Model); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("finish multipart form: %w", err)
	}

	url := strings.TrimRight(c.cfg.APIBaseURL, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("stt HTTP %d", resp.StatusCode)
	}

	var data struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	return data.Text, nil
}
