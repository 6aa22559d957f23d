package ai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OpenAIConfig defines configuration options for the OpenAI provider.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Logger    zerolog.Logger
}

// OpenAIProvider streams chat completions from OpenAI or any compatible endpoint.
type OpenAIProvider struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIProvider builds a provider using the provided configuration.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/qna-go-api/pkg/ai/openai"),
		logger: cfg.Logger.With().Str("component", "openai_provider").Logger(),
	}, nil
}

func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

func (p *OpenAIProvider) DefaultModel() string { return p.cfg.Model }

// Stream opens a streamed chat completion.
func (p *OpenAIProvider) Stream(parent context.Context, req Request) (Stream, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}

	ctx, span := p.tracer.Start(parent, "openai.stream", trace.WithAttributes(
		attribute.String("model", model),
		attribute.Int("messages", len(req.Messages)),
	))

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	request := openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  messages,
		Stream:    true,
	}
	if req.JSON {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, request)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		p.logger.Debug().Err(err).Str("model", model).Msg("opening stream failed")

		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && permanentStatus(apiErr.HTTPStatusCode) {
			return nil, backoff.Permanent(fmt.Errorf("openai stream: %w", err))
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) && permanentStatus(reqErr.HTTPStatusCode) {
			return nil, backoff.Permanent(fmt.Errorf("openai stream: %w", err))
		}
		return nil, fmt.Errorf("openai stream: %w", err)
	}

	return &openAIStream{stream: stream, span: span, logger: p.logger.With().Str("model", model).Logger()}, nil
}

type openAIStream struct {
	stream   *openai.ChatCompletionStream
	span     trace.Span
	logger   zerolog.Logger
	pending  []Chunk
	finished bool
}

// Recv returns io.ErrUnexpectedEOF when the body ends before any choice reported a finish reason.
func (s *openAIStream) Recv() (Chunk, error) {
	for len(s.pending) == 0 {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) && !s.finished {
			err = io.ErrUnexpectedEOF
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.span.RecordError(err)
				s.span.SetStatus(codes.Error, err.Error())
				s.logger.Warn().Err(err).Msg("stream aborted")
			}
			return Chunk{}, err
		}
		for _, choice := range resp.Choices {
			if choice.FinishReason != "" {
				s.finished = true
			}
			if choice.Delta.ReasoningContent != "" {
				s.pending = append(s.pending, Chunk{Kind: ChunkReasoning, Text: choice.Delta.ReasoningContent})
			}
			if choice.Delta.Content != "" {
				s.pending = append(s.pending, Chunk{Kind: ChunkText, Text: choice.Delta.Content})
			}
		}
	}

	chunk := s.pending[0]
	s.pending = s.pending[1:]
	return chunk, nil
}

func (s *openAIStream) Close() error {
	s.span.End()
	return s.stream.Close()
}
