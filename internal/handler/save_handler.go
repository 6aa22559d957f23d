package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/pipeline"
	"github.com/noah-isme/qna-go-api/internal/service"
	"github.com/noah-isme/qna-go-api/internal/utils"
)

// SaveHandler exposes bookmark endpoints.
type SaveHandler struct {
	service  service.SaveService
	pipeline *pipeline.Pipeline
}

// NewSaveHandler constructs a save handler.
func NewSaveHandler(service service.SaveService, p *pipeline.Pipeline) *SaveHandler {
	return &SaveHandler{service: service, pipeline: p}
}

// Register binds the save routes.
func (h *SaveHandler) Register(router fiber.Router) {
	router.Post("/saves", h.pipeline.Wrap(h.toggle))
	router.Get("/saves", h.pipeline.Wrap(h.list))
}

func (h *SaveHandler) toggle(r *pipeline.Request) (utils.Envelope, error) {
	var req dto.SaveToggleRequest
	if err := r.Bind(&req); err != nil {
		return utils.Envelope{}, err
	}
	caller, err := r.Caller()
	if err != nil {
		return utils.Envelope{}, err
	}
	if err := pipeline.CheckID(req.Question, "question"); err != nil {
		return utils.Envelope{}, err
	}

	resp, err := h.service.Toggle(r.Ctx, caller, req)
	if err != nil {
		return utils.Envelope{}, err
	}
	message := "Question unsaved"
	if resp.Saved {
		message = "Question saved"
	}
	return utils.OK(message, resp), nil
}

func (h *SaveHandler) list(r *pipeline.Request) (utils.Envelope, error) {
	caller, err := r.Caller()
	if err != nil {
		return utils.Envelope{}, err
	}

	questions, err := h.service.List(r.Ctx, caller)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.OK("Saved questions fetched", questions), nil
}
