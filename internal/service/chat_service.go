package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/qna-go-api/internal/apperror"
	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/models"
	"github.com/noah-isme/qna-go-api/internal/repository"
	"github.com/noah-isme/qna-go-api/pkg/ai"
)

// Stream event types.
const (
	ChatEventText      = "text"
	ChatEventReasoning = "reasoning"
	ChatEventDone      = "done"
	ChatEventError     = "error"
)

const (
	chatTabNotFound = "Chat tab not found"
	chatTabNotYours = "You can only access your own chat tabs"

	chatSystemPrompt = "You are a patient study assistant for a question and answer community. " +
		"Explain step by step, keep answers focused on the learner's question and say so when you are unsure."
)

// ChatService manages chat tabs and streamed conversations with AI providers.
type ChatService interface {
	CreateTab(ctx context.Context, callerID string, payload dto.ChatTabCreateRequest) (dto.ChatTabResponse, error)
	ListTabs(ctx context.Context, callerID string) ([]dto.ChatTabResponse, error)
	RenameTab(ctx context.Context, id, callerID string, payload dto.ChatTabRenameRequest) (dto.ChatTabResponse, error)
	DeleteTab(ctx context.Context, id, callerID string) error
	ListMessages(ctx context.Context, tabID, callerID string) ([]dto.ChatResponse, error)
	OpenStream(ctx context.Context, callerID string, payload dto.ChatStreamRequest) (*ChatStream, error)
}

type chatService struct {
	repo   repository.ChatRepository
	ai     StreamOpener
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewChatService constructs a chat service.
func NewChatService(repo repository.ChatRepository, opener StreamOpener, logger zerolog.Logger) ChatService {
	return &chatService{
		repo:   repo,
		ai:     opener,
		logger: logger.With().Str("component", "chat_service").Logger(),
		tracer: otel.Tracer("github.com/noah-isme/qna-go-api/internal/service/chat"),
	}
}

func (s *chatService) CreateTab(ctx context.Context, callerID string, payload dto.ChatTabCreateRequest) (dto.ChatTabResponse, error) {
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		return dto.ChatTabResponse{}, apperror.Validation("Validation failed", "name is required")
	}

	tab := models.ChatTab{Name: name, ChatterID: callerID}
	if err := s.repo.CreateTab(ctx, &tab); err != nil {
		return dto.ChatTabResponse{}, err
	}
	return dto.NewChatTabResponse(tab), nil
}

func (s *chatService) ListTabs(ctx context.Context, callerID string) ([]dto.ChatTabResponse, error) {
	tabs, err := s.repo.ListTabs(ctx, callerID, repository.MaxListSize)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ChatTabResponse, 0, len(tabs))
	for _, tab := range tabs {
		out = append(out, dto.NewChatTabResponse(tab))
	}
	return out, nil
}

func (s *chatService) RenameTab(ctx context.Context, id, callerID string, payload dto.ChatTabRenameRequest) (dto.ChatTabResponse, error) {
	if payload.Chatter != "" && payload.Chatter != callerID {
		return dto.ChatTabResponse{}, apperror.Forbidden(chatTabNotYours)
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		return dto.ChatTabResponse{}, apperror.Validation("Validation failed", "name is required")
	}

	tab, err := s.ownedTab(ctx, id, callerID)
	if err != nil {
		return dto.ChatTabResponse{}, err
	}
	if err := s.repo.RenameTab(ctx, &tab, name); err != nil {
		return dto.ChatTabResponse{}, err
	}
	return dto.NewChatTabResponse(tab), nil
}

func (s *chatService) DeleteTab(ctx context.Context, id, callerID string) error {
	if _, err := s.ownedTab(ctx, id, callerID); err != nil {
		return err
	}
	if err := s.repo.DeleteTab(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound(chatTabNotFound)
		}
		return err
	}
	s.logger.Info().Str("tab_id", id).Msg("chat tab deleted")
	return nil
}

func (s *chatService) ListMessages(ctx context.Context, tabID, callerID string) ([]dto.ChatResponse, error) {
	if _, err := s.ownedTab(ctx, tabID, callerID); err != nil {
		return nil, err
	}
	messages, err := s.repo.ListMessages(ctx, tabID, 0)
	if err != nil {
		return nil, err
	}
	return dto.NewChatResponseSlice(messages), nil
}

// OpenStream validates the conversation, opens the provider stream and stores the user turn when
// the request targets a tab. Errors returned here happen before any byte is streamed.
func (s *chatService) OpenStream(ctx context.Context, callerID string, payload dto.ChatStreamRequest) (*ChatStream, error) {
	last := payload.Messages[len(payload.Messages)-1]
	if last.Role != ai.RoleUser {
		return nil, apperror.Validation("Validation failed", "the last message must come from the user")
	}

	if payload.Tab != "" {
		if _, err := s.ownedTab(ctx, payload.Tab, callerID); err != nil {
			return nil, err
		}
	}

	spanCtx, span := s.tracer.Start(ctx, "chat.open_stream", trace.WithAttributes(
		attribute.String("chat.provider", payload.Provider),
		attribute.String("chat.tab_id", payload.Tab),
		attribute.Int("chat.messages", len(payload.Messages)),
	))
	defer span.End()

	messages := make([]ai.Message, 0, len(payload.Messages))
	for _, m := range payload.Messages {
		messages = append(messages, ai.Message{Role: m.Role, Content: m.Content})
	}

	stream, provider, err := openStream(spanCtx, s.ai, payload.Provider, ai.Request{
		Model:    payload.Model,
		System:   chatSystemPrompt,
		Messages: messages,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	session := &ChatStream{
		stream:   stream,
		repo:     s.repo,
		logger:   s.logger,
		tabID:    payload.Tab,
		provider: provider.Name(),
		model:    modelName(payload.Model, provider),
	}

	if payload.Tab != "" {
		if _, err := session.persist(spanCtx, last); err != nil {
			_ = stream.Close()
			return nil, err
		}
	}

	return session, nil
}

func (s *chatService) ownedTab(ctx context.Context, id, callerID string) (models.ChatTab, error) {
	tab, err := s.repo.FindTab(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ChatTab{}, apperror.NotFound(chatTabNotFound)
		}
		return models.ChatTab{}, err
	}
	if tab.ChatterID != callerID {
		return models.ChatTab{}, apperror.Forbidden(chatTabNotYours)
	}
	return tab, nil
}

// ChatStream relays one provider stream to the caller.
type ChatStream struct {
	stream   ai.Stream
	repo     repository.ChatRepository
	logger   zerolog.Logger
	tabID    string
	provider string
	model    string
}

// Provider returns the provider discriminator serving the stream.
func (c *ChatStream) Provider() string { return c.provider }

// Model returns the model serving the stream.
func (c *ChatStream) Model() string { return c.model }

// Run forwards every chunk through emit and finishes with a done or error event. The assistant
// turn is stored only when the provider completed the stream. A failing emit means the client is
// gone; Run stops without storing anything and returns that error.
func (c *ChatStream) Run(ctx context.Context, emit func(dto.ChatStreamEvent) error) error {
	defer c.stream.Close()

	var text, reasoning strings.Builder
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk, err := c.stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.logger.Warn().Err(err).Str("provider", c.provider).Msg("ai stream aborted")
			if emitErr := emit(dto.ChatStreamEvent{Type: ChatEventError, Message: "AI provider stream failed"}); emitErr != nil {
				return emitErr
			}
			return err
		}
		if chunk.Text == "" {
			continue
		}

		event := dto.ChatStreamEvent{Type: ChatEventText, Text: chunk.Text}
		if chunk.Kind == ai.ChunkReasoning {
			event.Type = ChatEventReasoning
			reasoning.WriteString(chunk.Text)
		} else {
			text.WriteString(chunk.Text)
		}
		if err := emit(event); err != nil {
			return err
		}
	}

	done := dto.ChatStreamEvent{Type: ChatEventDone}
	if c.tabID != "" {
		chatID, err := c.persist(ctx, dto.ChatMessage{
			Role:      ai.RoleAssistant,
			Content:   text.String(),
			Reasoning: reasoning.String(),
		})
		if err != nil {
			c.logger.Error().Err(err).Str("tab_id", c.tabID).Msg("storing assistant reply failed")
			return emit(dto.ChatStreamEvent{Type: ChatEventError, Message: "Failed to store the reply"})
		}
		done.ChatID = chatID
	}
	return emit(done)
}

func (c *ChatStream) persist(ctx context.Context, message dto.ChatMessage) (string, error) {
	raw, err := json.Marshal(message)
	if err != nil {
		return "", err
	}
	chat := models.Chat{
		TabID:    c.tabID,
		Role:     message.Role,
		Message:  raw,
		Provider: c.provider,
		Model:    c.model,
	}
	if err := c.repo.SaveMessage(ctx, &chat); err != nil {
		return "", err
	}
	return chat.ID, nil
}
