package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/qna-go-api/internal/apperror"
	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/models"
	"github.com/noah-isme/qna-go-api/internal/pipeline"
	"github.com/noah-isme/qna-go-api/internal/service"
	"github.com/noah-isme/qna-go-api/internal/utils"
)

// LikeHandler exposes voting endpoints.
type LikeHandler struct {
	service  service.LikeService
	pipeline *pipeline.Pipeline
}

// NewLikeHandler constructs a like handler.
func NewLikeHandler(service service.LikeService, p *pipeline.Pipeline) *LikeHandler {
	return &LikeHandler{service: service, pipeline: p}
}

// Register binds the like routes.
func (h *LikeHandler) Register(router fiber.Router) {
	router.Post("/likes", h.pipeline.Wrap(h.vote))
	router.Get("/likes/:targetType/:id", h.pipeline.Wrap(h.tally))
}

func (h *LikeHandler) vote(r *pipeline.Request) (utils.Envelope, error) {
	var req dto.LikeRequest
	if err := r.Bind(&req); err != nil {
		return utils.Envelope{}, err
	}
	caller, err := r.Caller()
	if err != nil {
		return utils.Envelope{}, err
	}
	if err := pipeline.CheckID(req.Target, req.TargetType); err != nil {
		return utils.Envelope{}, err
	}

	resp, err := h.service.Vote(r.Ctx, caller, req)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.OK("Vote recorded", resp), nil
}

func (h *LikeHandler) tally(r *pipeline.Request) (utils.Envelope, error) {
	targetType := strings.ToLower(strings.TrimSpace(r.Fiber.Params("targetType")))
	if targetType != models.LikeTargetAnswer && targetType != models.LikeTargetComment {
		return utils.Envelope{}, apperror.Validation("Invalid target type", "targetType must be one of [answer, comment]")
	}
	id, err := r.IDParam("id", targetType)
	if err != nil {
		return utils.Envelope{}, err
	}

	resp, err := h.service.Tally(r.Ctx, targetType, id, r.CallerID)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.OK("Votes fetched", resp), nil
}
