package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type correlationIDKey struct{}

var correlationKey = correlationIDKey{}

// CorrelationID ensures every request carries a correlation identifier and binds a request logger
// tagged with it to the user context.
func CorrelationID(base zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		incoming := strings.TrimSpace(c.Get("X-Correlation-ID"))
		if incoming == "" {
			incoming = strings.TrimSpace(c.Get("X-Request-ID"))
		}
		if incoming == "" {
			incoming = uuid.NewString()
		}

		c.Locals("correlation_id", incoming)
		c.Set("X-Correlation-ID", incoming)

		requestLogger := base.With().Str("correlation_id", incoming).Logger()
		ctx := context.WithValue(c.UserContext(), correlationKey, incoming)
		c.SetUserContext(requestLogger.WithContext(ctx))

		return c.Next()
	}
}

// CorrelationIDFromContext extracts the correlation identifier from context, if present.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationKey).(string); ok {
		return id
	}
	return ""
}

// GetCorrelationID returns the correlation identifier bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals("correlation_id").(string); ok {
		return id
	}
	return CorrelationIDFromContext(c.UserContext())
}

// ContextWithCorrelation copies the correlation identifier and request logger of src onto dst.
// Used when work outlives the request context, such as a response body stream.
func ContextWithCorrelation(dst, src context.Context) context.Context {
	if dst == nil {
		dst = context.Background()
	}
	if id := CorrelationIDFromContext(src); id != "" {
		dst = context.WithValue(dst, correlationKey, id)
	}
	if logger := zerolog.Ctx(src); logger != nil && logger.GetLevel() != zerolog.Disabled {
		dst = logger.WithContext(dst)
	}
	return dst
}
