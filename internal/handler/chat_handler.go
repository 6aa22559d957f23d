package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/pipeline"
	"github.com/noah-isme/qna-go-api/internal/service"
	"github.com/noah-isme/qna-go-api/internal/utils"
)

// ChatHandler exposes chat tabs and the streamed chat endpoint.
type ChatHandler struct {
	service  service.ChatService
	pipeline *pipeline.Pipeline
}

// NewChatHandler constructs a chat handler.
func NewChatHandler(service service.ChatService, p *pipeline.Pipeline) *ChatHandler {
	return &ChatHandler{service: service, pipeline: p}
}

// Register binds the chat tab routes.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Get("/chat-tabs", h.pipeline.Wrap(h.listTabs))
	router.Post("/chat-tabs", h.pipeline.Wrap(h.createTab))
	router.Put("/chat-tabs/:id", h.pipeline.Wrap(h.renameTab))
	router.Delete("/chat-tabs/:id", h.pipeline.Wrap(h.deleteTab))
	router.Get("/chat-tabs/:id/chats", h.pipeline.Wrap(h.listMessages))
}

// RegisterStream binds the streamed chat route. It is registered separately so the router can put
// the AI rate limiter in front of it.
func (h *ChatHandler) RegisterStream(router fiber.Router, middlewares ...fiber.Handler) {
	router.Post("/chat/stream", chain(middlewares, h.pipeline.WrapStream(h.stream))...)
}

func (h *ChatHandler) listTabs(r *pipeline.Request) (utils.Envelope, error) {
	caller, err := r.Caller()
	if err != nil {
		return utils.Envelope{}, err
	}

	tabs, err := h.service.ListTabs(r.Ctx, caller)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.OK("Chat tabs fetched", tabs), nil
}

func (h *ChatHandler) createTab(r *pipeline.Request) (utils.Envelope, error) {
	var req dto.ChatTabCreateRequest
	if err := r.Bind(&req); err != nil {
		return utils.Envelope{}, err
	}
	caller, err := r.Caller()
	if err != nil {
		return utils.Envelope{}, err
	}

	tab, err := h.service.CreateTab(r.Ctx, caller, req)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.Created("Chat tab created", tab), nil
}

func (h *ChatHandler) renameTab(r *pipeline.Request) (utils.Envelope, error) {
	var req dto.ChatTabRenameRequest
	if err := r.Bind(&req); err != nil {
		return utils.Envelope{}, err
	}
	caller, err := r.Caller()
	if err != nil {
		return utils.Envelope{}, err
	}
	id, err := r.IDParam("id", "chat tab")
	if err != nil {
		return utils.Envelope{}, err
	}

	tab, err := h.service.RenameTab(r.Ctx, id, caller, req)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.OK("Chat tab renamed", tab), nil
}

func (h *ChatHandler) deleteTab(r *pipeline.Request) (utils.Envelope, error) {
	caller, err := r.Caller()
	if err != nil {
		return utils.Envelope{}, err
	}
	id, err := r.IDParam("id", "chat tab")
	if err != nil {
		return utils.Envelope{}, err
	}

	if err := h.service.DeleteTab(r.Ctx, id, caller); err != nil {
		return utils.Envelope{}, err
	}
	return utils.OK("Chat tab deleted", fiber.Map{"id": id}), nil
}

func (h *ChatHandler) listMessages(r *pipeline.Request) (utils.Envelope, error) {
	caller, err := r.Caller()
	if err != nil {
		return utils.Envelope{}, err
	}
	id, err := r.IDParam("id", "chat tab")
	if err != nil {
		return utils.Envelope{}, err
	}

	chats, err := h.service.ListMessages(r.Ctx, id, caller)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.OK("Chats fetched", chats), nil
}

func (h *ChatHandler) stream(r *pipeline.Request) (pipeline.StreamWriter, error) {
	var req dto.ChatStreamRequest
	if err := r.Bind(&req); err != nil {
		return nil, err
	}
	caller, err := r.Caller()
	if err != nil {
		return nil, err
	}
	if req.Tab != "" {
		if err := pipeline.CheckID(req.Tab, "chat tab"); err != nil {
			return nil, err
		}
	}

	session, err := h.service.OpenStream(r.Ctx, caller, req)
	if err != nil {
		return nil, err
	}

	logger := r.Logger.With().Str("provider", session.Provider()).Str("model", session.Model()).Logger()
	return func(ctx context.Context, w *bufio.Writer) {
		err := session.Run(ctx, func(event dto.ChatStreamEvent) error {
			return writeEvent(w, event)
		})
		if err != nil {
			logger.Warn().Err(err).Msg("chat stream ended early")
			return
		}
		logger.Debug().Msg("chat stream completed")
	}, nil
}

// writeEvent writes one server-sent event and flushes it to the client. A flush error means the
// client disconnected.
func writeEvent(w *bufio.Writer, event dto.ChatStreamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}
