package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/pipeline"
	"github.com/noah-isme/qna-go-api/internal/service"
	"github.com/noah-isme/qna-go-api/internal/utils"
)

// TestHandler exposes AI generated tests.
type TestHandler struct {
	service  service.TestService
	pipeline *pipeline.Pipeline
}

// NewTestHandler constructs a test handler.
func NewTestHandler(service service.TestService, p *pipeline.Pipeline) *TestHandler {
	return &TestHandler{service: service, pipeline: p}
}

// Register binds the test routes. aiLimit guards the endpoints that call an AI provider.
func (h *TestHandler) Register(router fiber.Router, aiLimit ...fiber.Handler) {
	router.Post("/tests/generate", chain(aiLimit, h.pipeline.WrapAI(h.generate))...)
	router.Post("/tests", h.pipeline.Wrap(h.create))
	router.Get("/tests", h.pipeline.Wrap(h.list))
	router.Get("/tests/:id", h.pipeline.Wrap(h.get))
	router.Post("/tests/:id/review", chain(aiLimit, h.pipeline.WrapAI(h.review))...)
}

func (h *TestHandler) generate(r *pipeline.Request) (utils.Envelope, error) {
	var req dto.TestGenerateRequest
	if err := r.Bind(&req); err != nil {
		return utils.Envelope{}, err
	}
	caller, err := r.Caller()
	if err != nil {
		return utils.Envelope{}, err
	}

	generated, err := h.service.Generate(r.Ctx, caller, req)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.OK("Test generated", generated), nil
}

func (h *TestHandler) create(r *pipeline.Request) (utils.Envelope, error) {
	var req dto.TestCreateRequest
	if err := r.Bind(&req); err != nil {
		return utils.Envelope{}, err
	}
	caller, err := r.Caller()
	if err != nil {
		return utils.Envelope{}, err
	}

	test, err := h.service.Create(r.Ctx, caller, req)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.Created("Test created", test), nil
}

func (h *TestHandler) list(r *pipeline.Request) (utils.Envelope, error) {
	caller, err := r.Caller()
	if err != nil {
		return utils.Envelope{}, err
	}

	tests, err := h.service.List(r.Ctx, caller)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.OK("Tests fetched", tests), nil
}

func (h *TestHandler) get(r *pipeline.Request) (utils.Envelope, error) {
	caller, err := r.Caller()
	if err != nil {
		return utils.Envelope{}, err
	}
	id, err := r.IDParam("id", "test")
	if err != nil {
		return utils.Envelope{}, err
	}

	test, err := h.service.Get(r.Ctx, id, caller)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.OK("Test fetched", test), nil
}

func (h *TestHandler) review(r *pipeline.Request) (utils.Envelope, error) {
	var req dto.TestReviewRequest
	if err := r.Bind(&req); err != nil {
		return utils.Envelope{}, err
	}
	caller, err := r.Caller()
	if err != nil {
		return utils.Envelope{}, err
	}
	id, err := r.IDParam("id", "test")
	if err != nil {
		return utils.Envelope{}, err
	}

	test, err := h.service.Review(r.Ctx, id, caller, req)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.OK("Test reviewed", test), nil
}
