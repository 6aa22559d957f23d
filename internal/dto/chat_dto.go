package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/qna-go-api/internal/models"
)

// ChatTabCreateRequest opens a named conversation.
type ChatTabCreateRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
}

// ChatTabRenameRequest renames a conversation. Chatter, when sent, must match the caller.
type ChatTabRenameRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=120"`
	Chatter string `json:"chatter" validate:"omitempty,max=64"`
}

// ChatTabResponse describes a conversation tab.
type ChatTabResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Chatter   string    `json:"chatter"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewChatTabResponse converts a model into a DTO.
func NewChatTabResponse(model models.ChatTab) ChatTabResponse {
	return ChatTabResponse{
		ID:        model.ID,
		Name:      model.Name,
		Chatter:   model.ChatterID,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// ChatMessage is the provider agnostic message structure stored with every chat.
type ChatMessage struct {
	Role      string `json:"role" validate:"required,oneof=user assistant"`
	Content   string `json:"content" validate:"required,min=1,max=32000"`
	Reasoning string `json:"reasoning,omitempty"`
}

// ChatStreamRequest asks a provider for a streamed completion. When Tab is set, the last user
// message and the completed assistant reply are stored in that tab.
type ChatStreamRequest struct {
	Tab      string        `json:"tab" validate:"omitempty"`
	Provider string        `json:"provider" validate:"omitempty,oneof=openai gemini anthropic"`
	Model    string        `json:"model" validate:"omitempty,max=128"`
	Messages []ChatMessage `json:"messages" validate:"required,min=1,max=100,dive"`
}

// ChatResponse describes a stored chat message.
type ChatResponse struct {
	ID        string      `json:"id"`
	Tab       string      `json:"tab"`
	Role      string      `json:"role"`
	Message   ChatMessage `json:"message"`
	Provider  string      `json:"provider"`
	Model     string      `json:"model"`
	CreatedAt time.Time   `json:"createdAt"`
}

// NewChatResponse converts a model into a DTO. An undecodable message is returned empty.
func NewChatResponse(model models.Chat) ChatResponse {
	var message ChatMessage
	if len(model.Message) > 0 {
		_ = json.Unmarshal(model.Message, &message)
	}
	if message.Role == "" {
		message.Role = model.Role
	}
	return ChatResponse{
		ID:        model.ID,
		Tab:       model.TabID,
		Role:      model.Role,
		Message:   message,
		Provider:  model.Provider,
		Model:     model.Model,
		CreatedAt: model.CreatedAt,
	}
}

// NewChatResponseSlice converts a slice of models into DTOs.
func NewChatResponseSlice(items []models.Chat) []ChatResponse {
	out := make([]ChatResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewChatResponse(item))
	}
	return out
}

// ChatStreamEvent is one server-sent event of a chat stream.
type ChatStreamEvent struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	ChatID  string `json:"chatId,omitempty"`
	Message string `json:"message,omitempty"`
}
