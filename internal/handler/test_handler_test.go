package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qna-go-api/internal/apperror"
	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/handler"
	"github.com/noah-isme/qna-go-api/internal/models"
	"github.com/noah-isme/qna-go-api/internal/pipeline"
)

type mockTestService struct {
	calls int
	err   error
}

func (m *mockTestService) Generate(_ context.Context, callerID string, payload dto.TestGenerateRequest) (dto.TestGenerateResponse, error) {
	m.calls++
	if m.err != nil {
		return dto.TestGenerateResponse{}, m.err
	}
	return dto.TestGenerateResponse{Subject: payload.Subject, Questions: []dto.TestQuestion{{Question: "1?", Options: []string{"a", "b"}, Answer: "a"}}, AIModel: "gpt-test"}, nil
}

func (m *mockTestService) Create(_ context.Context, callerID string, payload dto.TestCreateRequest) (dto.TestResponse, error) {
	m.calls++
	return dto.TestResponse{ID: models.NewID(), Subject: payload.Subject, Questions: payload.Questions, Answers: payload.Answers, Creator: callerID}, m.err
}

func (m *mockTestService) List(_ context.Context, callerID string) ([]dto.TestResponse, error) {
	m.calls++
	return []dto.TestResponse{}, m.err
}

func (m *mockTestService) Get(_ context.Context, id, callerID string) (dto.TestResponse, error) {
	m.calls++
	if m.err != nil {
		return dto.TestResponse{}, m.err
	}
	return dto.TestResponse{ID: id, Creator: callerID}, nil
}

func (m *mockTestService) Review(_ context.Context, id, callerID string, payload dto.TestReviewRequest) (dto.TestResponse, error) {
	m.calls++
	if m.err != nil {
		return dto.TestResponse{}, m.err
	}
	return dto.TestResponse{ID: id, Review: "all correct"}, nil
}

func testApp(caller string, svc *mockTestService, limiter ...fiber.Handler) *fiber.App {
	return newTestApp(caller, func(p *pipeline.Pipeline) registrar {
		h := handler.NewTestHandler(svc, p)
		return registrarFunc(func(router fiber.Router) { h.Register(router, limiter...) })
	})
}

func TestTestHandlerGenerateAndCreate(t *testing.T) {
	svc := &mockTestService{}
	app := testApp("alice", svc)

	resp, envelope := doJSON(t, app, http.MethodPost, "/api/v1/tests/generate", dto.TestGenerateRequest{Subject: "physics", Topic: "optics"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var generated dto.TestGenerateResponse
	decodeData(t, envelope, &generated)
	require.Len(t, generated.Questions, 1)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/tests/generate", dto.TestGenerateRequest{Subject: "physics", Topic: "optics", Count: 99})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, envelope = doJSON(t, app, http.MethodPost, "/api/v1/tests", dto.TestCreateRequest{
		Subject:   "physics",
		Questions: json.RawMessage(`[{"question":"1?"}]`),
		Answers:   []string{"a"},
		AIModel:   "gpt-test",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "Test created", envelope.Message)
}

func TestTestHandlerOwnershipAndIDs(t *testing.T) {
	svc := &mockTestService{}

	resp, _ := doJSON(t, testApp("", svc), http.MethodGet, "/api/v1/tests", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	app := testApp("alice", svc)
	resp, envelope := doJSON(t, app, http.MethodGet, "/api/v1/tests/oops", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Invalid test ID", envelope.Message)
	require.Zero(t, svc.calls)

	svc.err = apperror.Forbidden("You can only access your own tests")
	resp, envelope = doJSON(t, app, http.MethodPost, "/api/v1/tests/"+models.NewID()+"/review", map[string]string{})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "You can only access your own tests", envelope.Message)
}

func TestTestHandlerAppliesLimiterToAIRoutesOnly(t *testing.T) {
	svc := &mockTestService{}
	blocked := func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests")
	}
	app := testApp("alice", svc, blocked)

	resp, envelope := doJSON(t, app, http.MethodPost, "/api/v1/tests/generate", dto.TestGenerateRequest{Subject: "physics", Topic: "optics"})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "Too many requests", envelope.Message)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/tests", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
