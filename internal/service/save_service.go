package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/qna-go-api/internal/apperror"
	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/models"
	"github.com/noah-isme/qna-go-api/internal/repository"
)

// SaveService toggles and lists bookmarked questions.
type SaveService interface {
	Toggle(ctx context.Context, callerID string, payload dto.SaveToggleRequest) (dto.SaveToggleResponse, error)
	List(ctx context.Context, callerID string) ([]dto.QuestionResponse, error)
}

type saveService struct {
	saves     repository.SaveRepository
	questions repository.QuestionRepository
	enricher  *Enricher
	logger    zerolog.Logger
}

// NewSaveService constructs a save service.
func NewSaveService(saves repository.SaveRepository, questions repository.QuestionRepository, enricher *Enricher, logger zerolog.Logger) SaveService {
	return &saveService{
		saves:     saves,
		questions: questions,
		enricher:  enricher,
		logger:    logger.With().Str("component", "save_service").Logger(),
	}
}

func (s *saveService) Toggle(ctx context.Context, callerID string, payload dto.SaveToggleRequest) (dto.SaveToggleResponse, error) {
	ok, err := s.questions.Exists(ctx, payload.Question)
	if err != nil {
		return dto.SaveToggleResponse{}, err
	}
	if !ok {
		return dto.SaveToggleResponse{}, apperror.NotFound(questionNotFound)
	}

	saved, err := s.saves.Toggle(ctx, payload.Question, callerID)
	if err != nil {
		return dto.SaveToggleResponse{}, err
	}
	return dto.SaveToggleResponse{Question: payload.Question, Saved: saved}, nil
}

// List returns the caller's bookmarks, most recently saved first. Bookmarks whose question no
// longer exists are skipped.
func (s *saveService) List(ctx context.Context, callerID string) ([]dto.QuestionResponse, error) {
	saves, err := s.saves.ListBySaver(ctx, callerID, repository.MaxListSize)
	if err != nil {
		return nil, err
	}
	if len(saves) == 0 {
		return []dto.QuestionResponse{}, nil
	}

	ids := make([]string, 0, len(saves))
	for _, save := range saves {
		ids = append(ids, save.QuestionID)
	}
	questions, err := s.questions.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	ordered := make([]models.Question, 0, len(questions))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}

	out := s.enricher.Questions(ctx, ordered)
	for i := range out {
		saved := true
		out[i].Saved = &saved
	}
	return out, nil
}
