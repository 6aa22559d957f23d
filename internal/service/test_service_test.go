package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/models"
)

const generatedTest = "```json\n" + `{"questions":[
 {"question":"2 + 2?","options":["3","4"],"answer":"4","explanation":"basic sum"},
 {"question":"Broken","options":["only one"],"answer":"only one"},
 {"question":"Capital of France?","options":["Paris","Rome"],"answer":"Madrid"},
 {"question":"3 * 3?","options":["6","9"],"answer":"9"}
]}` + "\n```"

func TestTestServiceGenerateKeepsValidQuestions(t *testing.T) {
	r := setupRepos(t)
	opener := &fakeOpener{stream: textStream(generatedTest[:40], generatedTest[40:])}
	svc := NewTestService(r.tests, opener, dto.NewValidator(), zerolog.Nop())

	generated, err := svc.Generate(context.Background(), "alice", dto.TestGenerateRequest{
		Subject:  "mathematics",
		Topic:    "arithmetic",
		Provider: "anthropic",
	})
	require.NoError(t, err)
	require.Len(t, generated.Questions, 2)
	require.Equal(t, "2 + 2?", generated.Questions[0].Question)
	require.Equal(t, "anthropic-default", generated.AIModel)
	require.True(t, opener.requests[0].JSON)
	require.Contains(t, opener.requests[0].Messages[0].Content, "Write 5 medium")
}

func TestTestServiceGenerateRejectsUnusableOutput(t *testing.T) {
	r := setupRepos(t)
	svc := NewTestService(r.tests, &fakeOpener{stream: textStream("I cannot help with that")}, dto.NewValidator(), zerolog.Nop())

	_, err := svc.Generate(context.Background(), "alice", dto.TestGenerateRequest{Subject: "history", Topic: "rome"})
	requireStatus(t, err, http.StatusBadGateway)
}

func TestTestServiceParsesBareArrays(t *testing.T) {
	svc := &testService{validator: dto.NewValidator()}

	questions, err := svc.parseQuestions(`Here you go: [{"question":"1?","options":["a","b"],"answer":"b"}]`)
	require.NoError(t, err)
	require.Len(t, questions, 1)

	_, err = svc.parseQuestions(`[]`)
	require.ErrorIs(t, err, ErrUnusableTest)
}

func TestTestServiceCreateGetAndReview(t *testing.T) {
	r := setupRepos(t)
	opener := &fakeOpener{stream: textStream("  2 of 2 correct. ")}
	svc := NewTestService(r.tests, opener, dto.NewValidator(), zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", dto.TestCreateRequest{Subject: "mathematics", Questions: json.RawMessage(`{"a":1}`), AIModel: "m"})
	requireStatus(t, err, http.StatusBadRequest)

	created, err := svc.Create(ctx, "alice", dto.TestCreateRequest{
		Subject:   "mathematics",
		Questions: json.RawMessage(`[{"question":"2 + 2?","options":["3","4"],"answer":"4"}]`),
		Answers:   []string{"4"},
		AIModel:   "gpt-4o-mini",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"4"}, created.Answers)

	_, err = svc.Get(ctx, created.ID, "bob")
	requireStatus(t, err, http.StatusForbidden)
	_, err = svc.Get(ctx, models.NewID(), "alice")
	requireStatus(t, err, http.StatusNotFound)

	reviewed, err := svc.Review(ctx, created.ID, "alice", dto.TestReviewRequest{Model: "claude-custom"})
	require.NoError(t, err)
	require.Equal(t, "2 of 2 correct.", reviewed.Review)
	require.Equal(t, "claude-custom", reviewed.AIModel)
	require.Contains(t, opener.requests[0].Messages[0].Content, `["4"]`)

	stored, err := svc.Get(ctx, created.ID, "alice")
	require.NoError(t, err)
	require.Equal(t, "2 of 2 correct.", stored.Review)

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
}
