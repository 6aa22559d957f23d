package utils_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qna-go-api/internal/utils"
)

func TestSendDerivesSuccessFromStatus(t *testing.T) {
	statuses := []int{200, 201, 204, 299, 300, 400, 401, 403, 404, 500, 504}
	for _, status := range statuses {
		envelope := utils.NewEnvelope(status, "msg", nil)

		raw, err := json.Marshal(envelope)
		require.NoError(t, err)

		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &payload))

		require.Equal(t, status >= 200 && status < 300, payload["success"], "status %d", status)
		require.Equal(t, float64(status), payload["statusCode"])
		require.NotNil(t, payload["errors"])
		require.IsType(t, []interface{}{}, payload["errors"])
	}
}

func TestZeroEnvelopeStillSerializesErrorsArray(t *testing.T) {
	raw, err := json.Marshal(utils.Envelope{StatusCode: fiber.StatusNotFound, Message: "missing"})
	require.NoError(t, err)
	require.JSONEq(t, `{"statusCode":404,"success":false,"message":"missing","data":null,"errors":[]}`, string(raw))
}

func TestOKIncludesDefaults(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return utils.Send(c, utils.OK("", map[string]string{"hello": "world"}))
	})

	resp := performRequest(t, app, http.MethodGet, "/")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		StatusCode int               `json:"statusCode"`
		Success    bool              `json:"success"`
		Message    string            `json:"message"`
		Data       map[string]string `json:"data"`
		Errors     []string          `json:"errors"`
	}
	decode(t, resp, &payload)

	require.True(t, payload.Success)
	require.Equal(t, fiber.StatusOK, payload.StatusCode)
	require.Equal(t, "success", payload.Message)
	require.Equal(t, "world", payload.Data["hello"])
	require.NotNil(t, payload.Errors)
	require.Empty(t, payload.Errors)
}

func TestFailIncludesErrors(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", []string{"title is required"})
	})

	resp := performRequest(t, app, http.MethodGet, "/")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var payload struct {
		Success bool                   `json:"success"`
		Message string                 `json:"message"`
		Errors  []string               `json:"errors"`
		Data    map[string]interface{} `json:"data"`
	}
	decode(t, resp, &payload)

	require.False(t, payload.Success)
	require.Equal(t, "invalid payload", payload.Message)
	require.Equal(t, []string{"title is required"}, payload.Errors)
	require.Nil(t, payload.Data)
}

func performRequest(t *testing.T, app *fiber.App, method, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
