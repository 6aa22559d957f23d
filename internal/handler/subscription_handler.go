package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/pipeline"
	"github.com/noah-isme/qna-go-api/internal/service"
	"github.com/noah-isme/qna-go-api/internal/utils"
)

// SubscriptionHandler exposes the newsletter endpoint.
type SubscriptionHandler struct {
	service  service.SubscriptionService
	pipeline *pipeline.Pipeline
}

// NewSubscriptionHandler constructs a subscription handler.
func NewSubscriptionHandler(service service.SubscriptionService, p *pipeline.Pipeline) *SubscriptionHandler {
	return &SubscriptionHandler{service: service, pipeline: p}
}

// Register binds the subscription routes.
func (h *SubscriptionHandler) Register(router fiber.Router) {
	router.Post("/subscriptions", h.pipeline.Wrap(h.subscribe))
}

func (h *SubscriptionHandler) subscribe(r *pipeline.Request) (utils.Envelope, error) {
	var req dto.SubscriptionRequest
	if err := r.Bind(&req); err != nil {
		return utils.Envelope{}, err
	}

	sub, err := h.service.Subscribe(r.Ctx, req)
	if err != nil {
		return utils.Envelope{}, err
	}
	return utils.Created("Subscribed", sub), nil
}
