// Package ai streams completions from hosted language model providers behind one interface.
package ai

import (
	"context"
	"errors"
	"io"
	"strings"
)

var (
	// ErrUnknownProvider is returned when a request names a provider this build does not know.
	ErrUnknownProvider = errors.New("unknown ai provider")
	// ErrProviderNotConfigured is returned for a known provider that has no credentials.
	ErrProviderNotConfigured = errors.New("ai provider not configured")
)

// Provider names accepted as discriminators.
const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// KnownProviders lists every provider discriminator in a stable order.
var KnownProviders = []string{ProviderOpenAI, ProviderGemini, ProviderAnthropic}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn sent to a provider.
type Message struct {
	Role    string
	Content string
}

// Request describes a completion. System is sent out of band where the provider supports it.
type Request struct {
	Model     string
	System    string
	Messages  []Message
	MaxTokens int
	// JSON asks the provider for a single JSON document when it supports a response format switch.
	JSON bool
}

// ChunkKind distinguishes visible answer text from model reasoning.
type ChunkKind string

const (
	ChunkText      ChunkKind = "text"
	ChunkReasoning ChunkKind = "reasoning"
)

// Chunk is one incremental piece of a streamed completion.
type Chunk struct {
	Kind ChunkKind
	Text string
}

// Stream yields chunks until Recv returns io.EOF.
type Stream interface {
	Recv() (Chunk, error)
	Close() error
}

// Provider opens completion streams. Stream must return an error for failures detectable before
// the first chunk so callers can still answer with a regular response.
type Provider interface {
	Name() string
	DefaultModel() string
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Collect drains s and returns the concatenated text and reasoning.
func Collect(s Stream) (string, string, error) {
	defer s.Close()

	var text, reasoning strings.Builder
	for {
		chunk, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return text.String(), reasoning.String(), nil
		}
		if err != nil {
			return text.String(), reasoning.String(), err
		}
		switch chunk.Kind {
		case ChunkReasoning:
			reasoning.WriteString(chunk.Text)
		default:
			text.WriteString(chunk.Text)
		}
	}
}
