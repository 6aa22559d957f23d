package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/models"
)

func TestCommentServiceCreateOnAnswerAndQuestion(t *testing.T) {
	r := setupRepos(t)
	events := &recordingPublisher{}
	svc := NewCommentService(r.comments, r.answers, r.questions, r.enricher(knownUsers("carol")), events, zerolog.Nop())
	ctx := context.Background()

	question := models.Question{Title: "Q?", Subject: "other", AskerID: "alice"}
	require.NoError(t, r.questions.Create(ctx, &question))
	answer := models.Answer{Content: "a", QuestionID: question.ID, AnswererID: "bob"}
	require.NoError(t, r.answers.Create(ctx, &answer))

	onAnswer, err := svc.Create(ctx, "carol", dto.CommentCreateRequest{Content: "agreed", Answer: answer.ID})
	require.NoError(t, err)
	require.NotNil(t, onAnswer.Answer)
	require.Nil(t, onAnswer.Question)
	require.Equal(t, "Carol", onAnswer.User.FirstName)

	onQuestion, err := svc.Create(ctx, "carol", dto.CommentCreateRequest{Content: "clarify?", Question: question.ID})
	require.NoError(t, err)
	require.NotNil(t, onQuestion.Question)
	require.Equal(t, question.ID, *onQuestion.Question)

	require.Len(t, events.events[SubjectCommentCreated], 2)

	_, err = svc.Create(ctx, "carol", dto.CommentCreateRequest{Content: "x", Answer: models.NewID()})
	requireStatus(t, err, http.StatusNotFound)
	_, err = svc.Create(ctx, "carol", dto.CommentCreateRequest{Content: "x", Question: models.NewID()})
	requireStatus(t, err, http.StatusNotFound)
}
