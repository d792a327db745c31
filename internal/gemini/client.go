// Package gemini implements the transcript formatting call against the Gemini
// generateContent endpoint.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dicto/internal/config"
)

// Config controls endpoint and model selection.
type Config struct {
	APIBaseURL string
	Model      string
	Timeout    time.Duration
}

// KeyLookup resolves the API key at call time (env var, then vault).
type KeyLookup func() string

// Client formats transcript text through Gemini.
type Client struct {
	cfg        Config
	httpClient *http.Client
	lookupKey  KeyLookup
}

// NewClient applies endpoint/model/timeout defaults.
func NewClient(cfg Config, lookupKey KeyLookup) *Client {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash-latest"
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

type contentPart struct {
	Text string `json:"text"`
}

type content struct {
	Role  string        `json:"role"`
	Parts []contentPart `json:"parts"`
}

type generateRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"system_instruction,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Format rewrites text under the settings-derived system instruction. When
// formatting is disabled, the system is offline, or no key is available, the
// input is returned unchanged.
func (c *Client) Format(ctx context.Context, s config.Settings, text string) (string, error) {
	if !s.EnableGemini || s.OfflineMode {
		return text, nil
	}

	apiKey := strings.TrimSpace(c.lookupKey())
	if apiKey == "" {
		return text, nil
	}

	reqBody := generateRequest{
		Contents: []content{{Role: "user", Parts: []contentPart{{Text: text}}}},
		SystemInstruction: &content{
			Role:  "system",
			Parts: []contentPart{{Text: BuildInstructions(s)}},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encode format request: %w", err)
	}

	url := fmt.Sprintf(
		"%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.cfg.APIBaseURL, "/"), c.cfg.Model, apiKey,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build format request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("format request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("gemini HTTP %d", resp.StatusCode)
	}

	var data generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decode format response: %w", err)
	}

	if len(data.Candidates) == 0 {
		return "", nil
	}
	candidate := data.Candidates[len(data.Candidates)-1]
	if candidate.Content == nil {
		return "", nil
	}
	for _, part := range candidate.Content.Parts {
		if part.Text != nil {
			return *part.Text, nil
		}
	}
	return "", nil
}
