package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/pipeline"
	"github.com/noah-isme/qna-go-api/internal/service"
	"github.com/noah-isme/qna-go-api/internal/utils"
)

// AnswerHandler exposes answer endpoints.
type AnswerHandler struct {
	service  service.AnswerService
	pipeline *pipeline.Pipeline
}

// NewAnswerHandler constructs an answer handler.
func NewAnswerHandler(service service.AnswerService, p *pipeline.Pipeline) *AnswerHandler {
	return &AnswerHandler{service: service, pipeline: p}
}

// Register binds the answer routes.
func (h *AnswerHandler) Register(router fiber.Router) {
	router.Post("/answers", h.pipeline.Wrap(h.create))
	router.Put("/answers/:id", h.pipeline.Wrap(h.update))
	router.Get("/answers/:id/comments", h.pipeline.Wrap(h.listComments))
}

func (h *AnswerHandler) create(r *pipeline.Request) (utils.Envelope, error) {
	var req dto.AnswerCreateRequest
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

	answer, err := h.service.Create(r.Ctx, caller, req)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.Created("Answer created", answer), nil
}

func (h *AnswerHandler) update(r *pipeline.Request) (utils.Envelope, error) {
	var req dto.AnswerUpdateRequest
	if err := r.Bind(&req); err != nil {
		return utils.Envelope{}, err
	}
	caller, err := r.Caller()
	if err != nil {
		return utils.Envelope{}, err
	}
	id, err := r.IDParam("id", "answer")
	if err != nil {
		return utils.Envelope{}, err
	}
	if err := pipeline.CheckID(req.Question, "question"); err != nil {
		return utils.Envelope{}, err
	}

	answer, err := h.service.Update(r.Ctx, id, caller, req)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.OK("Answer updated", answer), nil
}

func (h *AnswerHandler) listComments(r *pipeline.Request) (utils.Envelope, error) {
	id, err := r.IDParam("id", "answer")
	if err != nil {
		return utils.Envelope{}, err
	}

	comments, err := h.service.ListComments(r.Ctx, id, r.CallerID)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.OK("Comments fetched", comments), nil
}
