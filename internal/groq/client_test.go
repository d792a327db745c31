package groq

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"dicto/internal/config"
)

func testSettings() config.Settings {
	s := config.Default()
	s.OfflineMode = false
	return s
}

func TestTranscribeOnceOfflineModeShortCircuits(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := NewClient(Config{APIBaseURL: server.URL}, func() string { return "gsk_test" })

	s := testSettings()
	s.OfflineMode = true
	text, err := client.TranscribeOnce(context.Background(), s, "")
	require.NoError(t, err)
	require.Empty(t, text)
	require.Zero(t, calls.Load())
}

func TestTranscribeOnceNoKeyReturnsDemoNotice(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := NewClient(Config{APIBaseURL: server.URL}, func() string { return "" })

	text, err := client.TranscribeOnce(context.Background(), testSettings(), "")
	require.NoError(t, err)
	require.Equal(t, DisabledNotice, text)
	require.Zero(t, calls.Load())
}

func TestTranscribeOnceSendsMultipartAndDecodesText(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	audioB64 := base64.StdEncoding.EncodeToString(pcm)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "whisper-large-v3", r.FormValue("model"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "audio.wav", header.Filename)

		got := make([]byte, len(pcm))
		_, err = file.Read(got)
		require.NoError(t, err)
		require.Equal(t, pcm, got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "こんにちは世界"}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIBaseURL: server.URL}, func() string { return "gsk_test" })

	text, err := client.TranscribeOnce(context.Background(), testSettings(), audioB64)
	require.NoError(t, err)
	require.Equal(t, "こんにちは世界", text)
}

func TestTranscribeOnceServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(Config{APIBaseURL: server.URL}, func() string { return "gsk_test" })

	_, err := client.TranscribeOnce(context.Background(), testSettings(), "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "stt HTTP 429")
}

func TestTranscribeOnceInvalidBase64(t *testing.T) {
	client := NewClient(Config{}, func() string { return "gsk_test" })

	_, err := client.TranscribeOnce(context.Background(), testSettings(), "not base64!!!")
	require.Error(t, err)
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(Config{}, nil)
	require.Equal(t, "https://api.groq.com/openai/v1", client.cfg.APIBaseURL)
	require.Equal(t, "whisper-large-v3", client.cfg.Model)
	require.NotNil(t, client.lookupKey)
	require.Empty(t, client.lookupKey())
}
