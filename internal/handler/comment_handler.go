package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/pipeline"
	"github.com/noah-isme/qna-go-api/internal/service"
	"github.com/noah-isme/qna-go-api/internal/utils"
)

// CommentHandler exposes comment endpoints.
type CommentHandler struct {
	service  service.CommentService
	pipeline *pipeline.Pipeline
}

// NewCommentHandler constructs a comment handler.
func NewCommentHandler(service service.CommentService, p *pipeline.Pipeline) *CommentHandler {
	return &CommentHandler{service: service, pipeline: p}
}

// Register binds the comment routes.
func (h *CommentHandler) Register(router fiber.Router) {
	router.Post("/comments", h.pipeline.Wrap(h.create))
}

func (h *CommentHandler) create(r *pipeline.Request) (utils.Envelope, error) {
	var req dto.CommentCreateRequest
	if err := r.Bind(&req); err != nil {
		return utils.Envelope{}, err
	}
	caller, err := r.Caller()
	if err != nil {
		return utils.Envelope{}, err
	}
	if req.Answer != "" {
		if err := pipeline.CheckID(req.Answer, "answer"); err != nil {
			return utils.Envelope{}, err
		}
	}
	if req.Question != "" {
		if err := pipeline.CheckID(req.Question, "question"); err != nil {
			return utils.Envelope{}, err
		}
	}

	comment, err := h.service.Create(r.Ctx, caller, req)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.Created("Comment created", comment), nil
}
