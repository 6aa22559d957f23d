package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/pipeline"
	"github.com/noah-isme/qna-go-api/internal/service"
	"github.com/noah-isme/qna-go-api/internal/utils"
)

// QuestionHandler exposes question endpoints.
type QuestionHandler struct {
	service  service.QuestionService
	pipeline *pipeline.Pipeline
}

// NewQuestionHandler constructs a question handler.
func NewQuestionHandler(service service.QuestionService, p *pipeline.Pipeline) *QuestionHandler {
	return &QuestionHandler{service: service, pipeline: p}
}

// Register binds the question routes.
func (h *QuestionHandler) Register(router fiber.Router) {
	router.Get("/questions", h.pipeline.Wrap(h.list))
	router.Post("/questions", h.pipeline.Wrap(h.create))
	router.Get("/questions/:id", h.pipeline.Wrap(h.get))
	router.Put("/questions/:id", h.pipeline.Wrap(h.update))
	router.Get("/questions/:id/answers", h.pipeline.Wrap(h.listAnswers))
	router.Get("/questions/:id/comments", h.pipeline.Wrap(h.listComments))
}

func (h *QuestionHandler) create(r *pipeline.Request) (utils.Envelope, error) {
	var req dto.QuestionCreateRequest
	if err := r.Bind(&req); err != nil {
		return utils.Envelope{}, err
	}
	caller, err := r.Caller()
	if err != nil {
		return utils.Envelope{}, err
	}

	question, err := h.service.Create(r.Ctx, caller, req)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.Created("Question created", question), nil
}

func (h *QuestionHandler) list(r *pipeline.Request) (utils.Envelope, error) {
	questions, err := h.service.List(r.Ctx, r.CallerID)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.OK("Questions fetched", questions), nil
}

func (h *QuestionHandler) get(r *pipeline.Request) (utils.Envelope, error) {
	id, err := r.IDParam("id", "question")
	if err != nil {
		return utils.Envelope{}, err
	}

	question, err := h.service.Get(r.Ctx, id, r.CallerID)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.OK("Question fetched", question), nil
}

func (h *QuestionHandler) update(r *pipeline.Request) (utils.Envelope, error) {
	var req dto.QuestionUpdateRequest
	if err := r.Bind(&req); err != nil {
		return utils.Envelope{}, err
	}
	caller, err := r.Caller()
	if err != nil {
		return utils.Envelope{}, err
	}
	id, err := r.IDParam("id", "question")
	if err != nil {
		return utils.Envelope{}, err
	}

	question, err := h.service.Update(r.Ctx, id, caller, req)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.OK("Question updated", question), nil
}

func (h *QuestionHandler) listAnswers(r *pipeline.Request) (utils.Envelope, error) {
	id, err := r.IDParam("id", "question")
	if err != nil {
		return utils.Envelope{}, err
	}

	answers, err := h.service.ListAnswers(r.Ctx, id, r.CallerID)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.OK("Answers fetched", answers), nil
}

func (h *QuestionHandler) listComments(r *pipeline.Request) (utils.Envelope, error) {
	id, err := r.IDParam("id", "question")
	if err != nil {
		return utils.Envelope{}, err
	}

	comments, err := h.service.ListComments(r.Ctx, id, r.CallerID)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.OK("Comments fetched", comments), nil
}
