package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func geminiServer(t *testing.T, handler func(w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, ":streamGenerateContent"), r.URL.Path)
		handler(w)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestGemini(t *testing.T, baseURL string, logger zerolog.Logger) *GeminiProvider {
	t.Helper()
	provider, err := NewGeminiProvider(context.Background(), GeminiConfig{
		APIKey:  "test",
		BaseURL: baseURL,
		Logger:  logger,
	})
	require.NoError(t, err)
	return provider
}

func TestGeminiStreamSplitsThoughtsFromText(t *testing.T) {
	server := geminiServer(t, func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"candidates":[{"content":{"role":"model","parts":[{"text":"weigh the options","thought":true}]}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"candidates":[{"content":{"role":"model","parts":[{"text":"Answer"}]}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"candidates":[{"content":{"role":"model","parts":[{"text":" is B"}]},"finishReason":"STOP"}]}`+"\n\n")
	})

	provider := newTestGemini(t, server.URL, zerolog.Nop())
	stream, err := provider.Stream(context.Background(), Request{
		System:   "be brief",
		Messages: []Message{{Role: RoleUser, Content: "A or B?"}},
	})
	require.NoError(t, err)

	text, reasoning, err := Collect(stream)
	require.NoError(t, err)
	require.Equal(t, "Answer is B", text)
	require.Equal(t, "weigh the options", reasoning)
}

func TestGeminiStreamReportsFirstResponseFailureFromStream(t *testing.T) {
	server := geminiServer(t, func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)
	})

	provider := newTestGemini(t, server.URL, zerolog.Nop())
	stream, err := provider.Stream(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.Error(t, err)
	require.Nil(t, stream)
	require.Contains(t, err.Error(), "API key not valid")
}

func TestGeminiStreamMidStreamFailureIsReturned(t *testing.T) {
	server := geminiServer(t, func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"candidates":[{"content":{"role":"model","parts":[{"text":"Hel"}]}}]}`+"\n\n")
		fmt.Fprint(w, `{"error":{"code":500,"message":"backend overloaded","status":"INTERNAL"}}`+"\n\n")
	})

	var logs bytes.Buffer
	provider := newTestGemini(t, server.URL, zerolog.New(&logs))
	stream, err := provider.Stream(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.NoError(t, err)

	text, _, err := Collect(stream)
	require.Error(t, err)
	require.NotErrorIs(t, err, io.EOF)
	require.Contains(t, err.Error(), "backend overloaded")
	require.Equal(t, "Hel", text)
	require.Contains(t, logs.String(), `"component":"gemini_provider"`)
	require.Contains(t, logs.String(), "stream aborted")
}

func TestGeminiStreamWithoutFinishReasonIsAnError(t *testing.T) {
	server := geminiServer(t, func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"candidates":[{"content":{"role":"model","parts":[{"text":"half"}]}}]}`+"\n\n")
	})

	provider := newTestGemini(t, server.URL, zerolog.Nop())
	stream, err := provider.Stream(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.NoError(t, err)

	text, _, err := Collect(stream)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Equal(t, "half", text)
}
