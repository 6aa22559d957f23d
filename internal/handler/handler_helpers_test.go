package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/pipeline"
	"github.com/noah-isme/qna-go-api/internal/utils"
)

type registrar interface {
	Register(router fiber.Router)
}

// newTestApp mounts handlers under /api/v1. A non-empty caller is injected as the authenticated user.
func newTestApp(caller string, build func(p *pipeline.Pipeline) registrar) *fiber.App {
	logger := zerolog.New(io.Discard)
	app := fiber.New(fiber.Config{ErrorHandler: pipeline.ErrorHandler(logger)})
	p := pipeline.New(dto.NewValidator(), 5*time.Second, logger)

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		if caller != "" {
			c.Locals("caller_id", caller)
		}
		return c.Next()
	})
	build(p).Register(api)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, utils.Envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch v := body.(type) {
		case string:
			reader = bytes.NewBufferString(v)
		default:
			raw, err := json.Marshal(v)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var envelope utils.Envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &envelope), string(raw))
	require.Equal(t, resp.StatusCode, envelope.StatusCode)
	return resp, envelope
}

func decodeData(t *testing.T, envelope utils.Envelope, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

type registrarFunc func(router fiber.Router)

func (f registrarFunc) Register(router fiber.Router) { f(router) }
