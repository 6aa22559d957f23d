package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/models"
)

func TestSaveServiceToggleAndListInSaveOrder(t *testing.T) {
	r := setupRepos(t)
	svc := NewSaveService(r.saves, r.questions, r.enricher(knownUsers("alice")), zerolog.Nop())
	ctx := context.Background()

	first := models.Question{Title: "First?", Subject: "other", AskerID: "alice"}
	second := models.Question{Title: "Second?", Subject: "other", AskerID: "alice"}
	require.NoError(t, r.questions.Create(ctx, &first))
	require.NoError(t, r.questions.Create(ctx, &second))

	resp, err := svc.Toggle(ctx, "bob", dto.SaveToggleRequest{Question: second.ID})
	require.NoError(t, err)
	require.True(t, resp.Saved)
	resp, err = svc.Toggle(ctx, "bob", dto.SaveToggleRequest{Question: first.ID})
	require.NoError(t, err)
	require.True(t, resp.Saved)
	require.NoError(t, r.db.Model(&models.Save{}).Where("question_id = ?", second.ID).
		Update("created_at", time.Now().Add(-time.Hour)).Error)

	saved, err := svc.List(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, saved, 2)
	require.Equal(t, first.ID, saved[0].ID)
	require.Equal(t, second.ID, saved[1].ID)
	require.True(t, *saved[0].Saved)

	resp, err = svc.Toggle(ctx, "bob", dto.SaveToggleRequest{Question: first.ID})
	require.NoError(t, err)
	require.False(t, resp.Saved)

	saved, err = svc.List(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, saved, 1)

	_, err = svc.Toggle(ctx, "bob", dto.SaveToggleRequest{Question: models.NewID()})
	requireStatus(t, err, http.StatusNotFound)

	empty, err := svc.List(ctx, "nobody")
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}
