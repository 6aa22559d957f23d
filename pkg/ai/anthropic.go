package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const anthropicVersion = "2023-06-01"

// AnthropicConfig defines configuration options for the Anthropic provider.
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// AnthropicProvider streams completions from the Anthropic Messages API.
type AnthropicProvider struct {
	cfg    AnthropicConfig
	client *http.Client
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewAnthropicProvider constructs a provider.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}

	client := cfg.HTTPClient
	if client == nil {
		// No overall timeout: streams are bounded by the caller's context.
		client = &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 30 * time.Second,
		}}
	}

	return &AnthropicProvider{
		cfg:    cfg,
		client: client,
		tracer: otel.Tracer("github.com/noah-isme/qna-go-api/pkg/ai/anthropic"),
		logger: cfg.Logger.With().Str("component", "anthropic_provider").Logger(),
	}, nil
}

func (p *AnthropicProvider) Name() string { return ProviderAnthropic }

func (p *AnthropicProvider) DefaultModel() string { return p.cfg.Model }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Stream    bool               `json:"stream"`
}

type anthropicEvent struct {
	Type  string `json:"type"`
	Delta *struct {
		Type     string `json:"type"`
		Text     string `json:"text,omitempty"`
		Thinking string `json:"thinking,omitempty"`
	} `json:"delta,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Stream posts a streamed Messages request and returns once the response headers arrive.
func (p *AnthropicProvider) Stream(parent context.Context, req Request) (Stream, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}

	ctx, span := p.tracer.Start(parent, "anthropic.stream", trace.WithAttributes(
		attribute.String("model", model),
		attribute.Int("messages", len(req.Messages)),
	))
	fail := func(err error) (Stream, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		p.logger.Debug().Err(err).Str("model", model).Msg("opening stream failed")
		return nil, err
	}

	body := anthropicRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    req.System,
		Stream:    true,
	}
	if req.JSON {
		body.System = strings.TrimSpace(body.System + "\nRespond with a single JSON document and nothing else.")
	}
	for _, m := range req.Messages {
		role := RoleUser
		if m.Role == RoleAssistant {
			role = RoleAssistant
		}
		body.Messages = append(body.Messages, anthropicMessage{Role: role, Content: m.Content})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fail(backoff.Permanent(fmt.Errorf("failed to marshal request: %w", err)))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return fail(backoff.Permanent(fmt.Errorf("failed to create request: %w", err)))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("x-api-key", p.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fail(fmt.Errorf("anthropic request failed: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		err := fmt.Errorf("anthropic request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		if permanentStatus(resp.StatusCode) {
			return fail(backoff.Permanent(err))
		}
		return fail(err)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &anthropicStream{
		body:    resp.Body,
		scanner: scanner,
		span:    span,
		logger:  p.logger.With().Str("model", model).Logger(),
	}, nil
}

type anthropicStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	span    trace.Span
	logger  zerolog.Logger
	done    bool
}

func (s *anthropicStream) Recv() (Chunk, error) {
	if s.done {
		return Chunk{}, io.EOF
	}

	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}

		var evt anthropicEvent
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			continue
		}

		switch {
		case evt.Error != nil:
			err := fmt.Errorf("anthropic stream error: %s", evt.Error.Message)
			s.span.RecordError(err)
			s.span.SetStatus(codes.Error, err.Error())
			s.logger.Warn().Err(err).Str("error_type", evt.Error.Type).Msg("stream aborted")
			return Chunk{}, err
		case evt.Type == "message_stop":
			s.done = true
			return Chunk{}, io.EOF
		case evt.Type == "content_block_delta" && evt.Delta != nil:
			switch evt.Delta.Type {
			case "thinking_delta":
				if evt.Delta.Thinking != "" {
					return Chunk{Kind: ChunkReasoning, Text: evt.Delta.Thinking}, nil
				}
			default:
				if evt.Delta.Text != "" {
					return Chunk{Kind: ChunkText, Text: evt.Delta.Text}, nil
				}
			}
		}
	}

	if err := s.scanner.Err(); err != nil {
		s.span.RecordError(err)
		s.logger.Warn().Err(err).Msg("stream aborted")
		return Chunk{}, err
	}
	// The connection ended without message_stop.
	s.logger.Warn().Msg("stream ended without message_stop")
	return Chunk{}, io.ErrUnexpectedEOF
}

func (s *anthropicStream) Close() error {
	s.span.End()
	return s.body.Close()
}
