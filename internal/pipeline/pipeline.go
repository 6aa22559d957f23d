// Package pipeline wraps resource handlers with the request protocol shared by every endpoint:
// caller resolution, deadline, binding and validation, and the single failure-to-envelope path.
package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/qna-go-api/internal/apperror"
	"github.com/noah-isme/qna-go-api/internal/middleware"
	"github.com/noah-isme/qna-go-api/internal/models"
	"github.com/noah-isme/qna-go-api/internal/utils"
)

const (
	defaultStreamLimit = 5 * time.Minute
	defaultAITimeout   = 2 * time.Minute
)

// Request is what a wrapped handler sees.
type Request struct {
	Ctx      context.Context
	Fiber    *fiber.Ctx
	CallerID string
	Logger   zerolog.Logger

	validate *validator.Validate
}

// HandlerFunc produces the envelope for a successful request or an error to be classified.
type HandlerFunc func(r *Request) (utils.Envelope, error)

// StreamWriter writes a response body after the handler has returned. ctx is cancelled when the
// client disconnects or the stream limit elapses.
type StreamWriter func(ctx context.Context, w *bufio.Writer)

// StreamHandlerFunc prepares a stream. Returning an error answers with a regular envelope.
type StreamHandlerFunc func(r *Request) (StreamWriter, error)

// Pipeline carries the collaborators shared by every wrapped handler.
type Pipeline struct {
	validate    *validator.Validate
	timeout     time.Duration
	aiTimeout   time.Duration
	streamLimit time.Duration
	logger      zerolog.Logger
}

// New builds a pipeline. A non-positive timeout disables the request deadline.
func New(validate *validator.Validate, timeout time.Duration, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		validate:    validate,
		timeout:     timeout,
		aiTimeout:   defaultAITimeout,
		streamLimit: defaultStreamLimit,
		logger:      logger.With().Str("component", "pipeline").Logger(),
	}
}

// WithStreamLimit overrides how long a streamed response may run.
func (p *Pipeline) WithStreamLimit(limit time.Duration) *Pipeline {
	if limit > 0 {
		p.streamLimit = limit
	}
	return p
}

// WithAITimeout overrides the deadline of handlers that wait for a complete AI completion.
func (p *Pipeline) WithAITimeout(timeout time.Duration) *Pipeline {
	if timeout > 0 {
		p.aiTimeout = timeout
	}
	return p
}

// Wrap adapts fn to a Fiber handler bounded by the request timeout.
func (p *Pipeline) Wrap(fn HandlerFunc) fiber.Handler {
	return p.wrap(p.timeout, fn)
}

// WrapAI is Wrap for handlers that collect a whole AI completion before answering.
func (p *Pipeline) WrapAI(fn HandlerFunc) fiber.Handler {
	timeout := p.aiTimeout
	if timeout < p.timeout {
		timeout = p.timeout
	}
	return p.wrap(timeout, fn)
}

func (p *Pipeline) wrap(timeout time.Duration, fn HandlerFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		req := p.newRequest(ctx, c)
		envelope, err := p.invoke(req, fn)
		if err == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = apperror.Timeout()
		}
		if err != nil {
			return p.fail(c, req, err)
		}

		return utils.Send(c, envelope)
	}
}

// WrapStream adapts fn to a Fiber handler that answers with a server-sent event stream. The
// stream context is detached from the request handler so it survives until the body is written.
func (p *Pipeline) WrapStream(fn StreamHandlerFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		base := middleware.ContextWithCorrelation(context.Background(), c.UserContext())
		ctx, cancel := context.WithTimeout(base, p.streamLimit)

		req := p.newRequest(ctx, c)
		writer, err := p.invokeStream(req, fn)
		if err != nil {
			cancel()
			return p.fail(c, req, err)
		}

		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")
		c.Set("X-Accel-Buffering", "no")
		c.Status(fiber.StatusOK)

		logger := req.Logger
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer cancel()
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("stream writer panicked")
				}
			}()
			writer(ctx, w)
		})
		return nil
	}
}

// Bind decodes the request body into out and validates it.
func (r *Request) Bind(out interface{}) error {
	if err := r.Fiber.BodyParser(out); err != nil {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return apperror.Validation("Invalid request body", fiberErr.Message)
		}
		return err
	}
	if r.validate == nil {
		return nil
	}
	return r.validate.Struct(out)
}

// IDParam reads a path parameter and checks it is a well-formed ID before anything touches the store.
func (r *Request) IDParam(name, entity string) (string, error) {
	id := strings.TrimSpace(r.Fiber.Params(name))
	if !models.ValidID(id) {
		return "", apperror.InvalidID(entity)
	}
	return id, nil
}

// CheckID validates a reference ID carried in a request body.
func CheckID(id, entity string) error {
	if !models.ValidID(strings.TrimSpace(id)) {
		return apperror.InvalidID(entity)
	}
	return nil
}

// Caller returns the authenticated caller or a 401 failure for anonymous requests. Handlers call it
// after binding so malformed input is reported first.
func (r *Request) Caller() (string, error) {
	if r.CallerID == "" {
		return "", apperror.Unauthenticated("")
	}
	return r.CallerID, nil
}

func (p *Pipeline) newRequest(ctx context.Context, c *fiber.Ctx) *Request {
	caller := middleware.CallerID(c)
	logger := p.logger
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger != nil && ctxLogger.GetLevel() != zerolog.Disabled {
		logger = *ctxLogger
	}
	logger = logger.With().Str("route", routeOf(c)).Str("caller_id", caller).Logger()

	return &Request{
		Ctx:      ctx,
		Fiber:    c,
		CallerID: caller,
		Logger:   logger,
		validate: p.validate,
	}
}

func (p *Pipeline) invoke(req *Request, fn HandlerFunc) (envelope utils.Envelope, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			req.Logger.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("handler panicked")
			err = apperror.Internal(fmt.Errorf("panic: %v", rec))
		}
	}()
	return fn(req)
}

func (p *Pipeline) invokeStream(req *Request, fn StreamHandlerFunc) (writer StreamWriter, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			req.Logger.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("stream handler panicked")
			err = apperror.Internal(fmt.Errorf("panic: %v", rec))
		}
	}()
	return fn(req)
}

func (p *Pipeline) fail(c *fiber.Ctx, req *Request, err error) error {
	status, message, errs := apperror.Classify(err)

	event := req.Logger.Debug()
	if status >= fiber.StatusInternalServerError {
		event = req.Logger.Error()
	}
	event.Err(err).Int("status", status).Msg(message)

	return utils.Fail(c, status, message, errs)
}

// ErrorHandler handles failures raised outside wrapped handlers, such as unknown routes.
func ErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	logger = logger.With().Str("component", "error_handler").Logger()
	return func(c *fiber.Ctx, err error) error {
		status, message, errs := apperror.Classify(err)
		if status >= fiber.StatusInternalServerError {
			logger.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		}
		return utils.Fail(c, status, message, errs)
	}
}

func routeOf(c *fiber.Ctx) string {
	if route := c.Route(); route != nil && route.Path != "" {
		return route.Path
	}
	return c.Path()
}
