package pipeline_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qna-go-api/internal/apperror"
	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/models"
	"github.com/noah-isme/qna-go-api/internal/pipeline"
	"github.com/noah-isme/qna-go-api/internal/utils"
)

func newApp(p *pipeline.Pipeline, caller string) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: pipeline.ErrorHandler(zerolog.Nop())})
	app.Use(func(c *fiber.Ctx) error {
		if caller != "" {
			c.Locals("caller_id", caller)
		}
		return c.Next()
	})
	return app
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestWrapSendsHandlerEnvelope(t *testing.T) {
	p := pipeline.New(dto.NewValidator(), time.Second, zerolog.Nop())
	app := newApp(p, "user_1")
	app.Post("/things", p.Wrap(func(r *pipeline.Request) (utils.Envelope, error) {
		return utils.Created("Thing created", fiber.Map{"caller": r.CallerID}), nil
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/things", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decode(t, resp)
	require.Equal(t, float64(201), body["statusCode"])
	require.Equal(t, true, body["success"])
	require.Equal(t, "Thing created", body["message"])
	require.Equal(t, []interface{}{}, body["errors"])
	require.Equal(t, "user_1", body["data"].(map[string]interface{})["caller"])
}

func TestWrapClassifiesFailures(t *testing.T) {
	p := pipeline.New(dto.NewValidator(), time.Second, zerolog.Nop())
	app := newApp(p, "")
	app.Get("/forbidden", p.Wrap(func(r *pipeline.Request) (utils.Envelope, error) {
		return utils.Envelope{}, fmt.Errorf("wrapped: %w", apperror.Forbidden("Not yours"))
	}))
	app.Get("/boom", p.Wrap(func(r *pipeline.Request) (utils.Envelope, error) {
		return utils.Envelope{}, errors.New("disk on fire")
	}))
	app.Get("/panic", p.Wrap(func(r *pipeline.Request) (utils.Envelope, error) {
		panic("nil map")
	}))
	app.Get("/private", p.Wrap(func(r *pipeline.Request) (utils.Envelope, error) {
		if _, err := r.Caller(); err != nil {
			return utils.Envelope{}, err
		}
		return utils.OK("", nil), nil
	}))

	cases := []struct {
		path    string
		status  int
		message string
	}{
		{"/forbidden", fiber.StatusForbidden, "Not yours"},
		{"/boom", fiber.StatusInternalServerError, "Internal Server Error"},
		{"/panic", fiber.StatusInternalServerError, "Internal Server Error"},
		{"/private", fiber.StatusUnauthorized, "Unauthorized"},
		{"/missing", fiber.StatusNotFound, "Cannot GET /missing"},
	}

	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, tc.path, nil))
		require.NoError(t, err)
		require.Equal(t, tc.status, resp.StatusCode, tc.path)

		body := decode(t, resp)
		require.Equal(t, float64(tc.status), body["statusCode"])
		require.Equal(t, false, body["success"])
		require.Equal(t, tc.message, body["message"])
		require.NotNil(t, body["errors"])
	}
}

func TestWrapTimesOut(t *testing.T) {
	p := pipeline.New(dto.NewValidator(), 20*time.Millisecond, zerolog.Nop())
	app := newApp(p, "")
	app.Get("/slow", p.Wrap(func(r *pipeline.Request) (utils.Envelope, error) {
		select {
		case <-r.Ctx.Done():
			return utils.Envelope{}, r.Ctx.Err()
		case <-time.After(time.Second):
			return utils.OK("", nil), nil
		}
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/slow", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusGatewayTimeout, resp.StatusCode)
	require.Equal(t, "Request timed out", decode(t, resp)["message"])
}

func TestWrapAIOutlivesRequestTimeout(t *testing.T) {
	p := pipeline.New(dto.NewValidator(), 20*time.Millisecond, zerolog.Nop()).WithAITimeout(2 * time.Second)
	app := newApp(p, "")
	slow := func(r *pipeline.Request) (utils.Envelope, error) {
		select {
		case <-r.Ctx.Done():
			return utils.Envelope{}, r.Ctx.Err()
		case <-time.After(100 * time.Millisecond):
			return utils.OK("completed", nil), nil
		}
	}
	app.Get("/plain", p.Wrap(slow))
	app.Get("/ai", p.WrapAI(slow))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/plain", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusGatewayTimeout, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/ai", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "completed", decode(t, resp)["message"])
}

func TestBindReportsEachFieldViolation(t *testing.T) {
	p := pipeline.New(dto.NewValidator(), time.Second, zerolog.Nop())
	app := newApp(p, "user_1")
	app.Post("/questions", p.Wrap(func(r *pipeline.Request) (utils.Envelope, error) {
		var req dto.QuestionCreateRequest
		if err := r.Bind(&req); err != nil {
			return utils.Envelope{}, err
		}
		return utils.Created("", req), nil
	}))

	req := httptest.NewRequest(http.MethodPost, "/questions", strings.NewReader(`{"title":"Hi","subject":"mathematics"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decode(t, resp)
	require.Equal(t, "Validation failed", body["message"])
	require.ElementsMatch(t, []interface{}{
		"title must be at least 3 characters",
		"description is required",
	}, body["errors"])

	req = httptest.NewRequest(http.MethodPost, "/questions", strings.NewReader(`{"title":`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestIDParamRejectsMalformedIDsBeforeHandlerWork(t *testing.T) {
	p := pipeline.New(dto.NewValidator(), time.Second, zerolog.Nop())
	app := newApp(p, "")
	lookups := 0
	app.Get("/questions/:id", p.Wrap(func(r *pipeline.Request) (utils.Envelope, error) {
		id, err := r.IDParam("id", "question")
		if err != nil {
			return utils.Envelope{}, err
		}
		lookups++
		return utils.OK("", id), nil
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/questions/not-an-id", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Invalid question ID", decode(t, resp)["message"])
	require.Zero(t, lookups)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/questions/"+models.NewID(), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 1, lookups)
}

func TestWrapStreamWritesEventsAfterSuccessfulOpen(t *testing.T) {
	p := pipeline.New(dto.NewValidator(), time.Second, zerolog.Nop())
	app := newApp(p, "user_1")
	app.Post("/stream", p.WrapStream(func(r *pipeline.Request) (pipeline.StreamWriter, error) {
		return func(ctx context.Context, w *bufio.Writer) {
			fmt.Fprint(w, "data: {\"type\":\"text\",\"text\":\"hi\"}\n\n")
			fmt.Fprint(w, "data: {\"type\":\"done\"}\n\n")
			_ = w.Flush()
		}, nil
	}))
	app.Post("/stream-fail", p.WrapStream(func(r *pipeline.Request) (pipeline.StreamWriter, error) {
		return nil, apperror.Validation("Invalid tab")
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/stream", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"type":"done"`)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/stream-fail", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Invalid tab", decode(t, resp)["message"])
}
