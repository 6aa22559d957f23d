package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/qna-go-api/internal/config"
	"github.com/noah-isme/qna-go-api/internal/utils"
)

const healthPingTimeout = 2 * time.Second

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Database    string    `json:"database"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
}

// HealthCheck reports service information and whether the store answers. An unreachable store
// turns the response into a 503 so load balancers stop routing to the instance.
func HealthCheck(cfg config.Config, store Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Database:    "unconfigured",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}
		if store == nil {
			return utils.Send(c, utils.OK("service healthy", payload))
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), healthPingTimeout)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			payload.Status = "degraded"
			payload.Database = "down"
			return utils.Send(c, utils.NewEnvelope(fiber.StatusServiceUnavailable, "service degraded", payload, err.Error()))
		}

		payload.Database = "up"
		return utils.Send(c, utils.OK("service healthy", payload))
	}
}
