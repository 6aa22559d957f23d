package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

// GeminiConfig defines configuration options for the Gemini provider.
type GeminiConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	MaxTokens       int
	// IncludeThoughts requests thought summaries; only thinking models accept it.
	IncludeThoughts bool
	Logger          zerolog.Logger
}

// GeminiProvider streams completions from the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	cfg    GeminiConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewGeminiProvider creates a Gemini client.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/qna-go-api/pkg/ai/gemini"),
		logger: cfg.Logger.With().Str("component", "gemini_provider").Logger(),
	}, nil
}

func (p *GeminiProvider) Name() string { return ProviderGemini }

func (p *GeminiProvider) DefaultModel() string { return p.cfg.Model }

// Stream starts a streamed generation. The first response is pulled eagerly so that request
// failures surface here instead of on the first Recv.
func (p *GeminiProvider) Stream(parent context.Context, req Request) (Stream, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	ctx, span := p.tracer.Start(parent, "gemini.stream", trace.WithAttributes(
		attribute.String("model", model),
		attribute.Int("messages", len(req.Messages)),
	))

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	config := &genai.GenerateContentConfig{}
	if p.cfg.IncludeThoughts {
		config.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if maxTokens := req.MaxTokens; maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	} else if p.cfg.MaxTokens > 0 {
		config.MaxOutputTokens = int32(p.cfg.MaxTokens)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	next, stop := iter.Pull2(p.client.Models.GenerateContentStream(ctx, model, contents, config))
	stream := &geminiStream{next: next, stop: stop, span: span, logger: p.logger.With().Str("model", model).Logger()}

	first, err, ok := next()
	if !ok {
		stream.drained = true
		return stream, nil
	}
	if err != nil {
		stop()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		p.logger.Debug().Err(err).Str("model", model).Msg("opening stream failed")
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && permanentStatus(apiErr.Code) {
			return nil, backoff.Permanent(fmt.Errorf("gemini stream: %w", err))
		}
		return nil, fmt.Errorf("gemini stream: %w", err)
	}
	stream.enqueue(first)

	return stream, nil
}

type geminiStream struct {
	next     func() (*genai.GenerateContentResponse, error, bool)
	stop     func()
	span     trace.Span
	logger   zerolog.Logger
	pending  []Chunk
	drained  bool
	finished bool
}

func (s *geminiStream) enqueue(resp *genai.GenerateContentResponse) {
	if resp == nil {
		return
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil {
			continue
		}
		if candidate.FinishReason != "" {
			s.finished = true
		}
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			kind := ChunkText
			if part.Thought {
				kind = ChunkReasoning
			}
			s.pending = append(s.pending, Chunk{Kind: kind, Text: part.Text})
		}
	}
}

// Recv returns io.ErrUnexpectedEOF when the response ends before a candidate reported a finish
// reason.
func (s *geminiStream) Recv() (Chunk, error) {
	for len(s.pending) == 0 {
		if s.drained {
			if !s.finished {
				s.logger.Warn().Msg("stream ended without a finish reason")
				return Chunk{}, io.ErrUnexpectedEOF
			}
			return Chunk{}, io.EOF
		}
		resp, err, ok := s.next()
		if !ok {
			s.drained = true
			continue
		}
		if err != nil {
			s.span.RecordError(err)
			s.span.SetStatus(codes.Error, err.Error())
			s.logger.Warn().Err(err).Msg("stream aborted")
			return Chunk{}, err
		}
		s.enqueue(resp)
	}

	chunk := s.pending[0]
	s.pending = s.pending[1:]
	return chunk, nil
}

func (s *geminiStream) Close() error {
	s.stop()
	s.span.End()
	return nil
}
