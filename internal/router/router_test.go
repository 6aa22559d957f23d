package router_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qna-go-api/internal/config"
	"github.com/noah-isme/qna-go-api/internal/pipeline"
	"github.com/noah-isme/qna-go-api/internal/router"
)

func newApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: pipeline.ErrorHandler(zerolog.Nop())})
	router.Register(app, config.Config{AppName: "QnA API", AppEnv: "test"}, router.Dependencies{})
	return app
}

func TestHealthRouteCarriesApplicationHeader(t *testing.T) {
	resp, err := newApp().Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "QnA API", resp.Header.Get("X-Application"))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, true, body["success"])
	require.Equal(t, "service healthy", body["message"])
}

func TestUnknownRouteAnswersWithEnvelope(t *testing.T) {
	resp, err := newApp().Test(httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, false, body["success"])
	require.Equal(t, float64(http.StatusNotFound), body["statusCode"])
	require.Equal(t, []interface{}{}, body["errors"])
}

func TestMetricsRouteIsPublic(t *testing.T) {
	resp, err := newApp().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(raw), "go_goroutines")
}
