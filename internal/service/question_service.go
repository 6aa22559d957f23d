package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/qna-go-api/internal/apperror"
	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/models"
	"github.com/noah-isme/qna-go-api/internal/repository"
)

const questionNotFound = "Question not found"

// QuestionService exposes question use-cases.
type QuestionService interface {
	Create(ctx context.Context, callerID string, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error)
	List(ctx context.Context, callerID string) ([]dto.QuestionResponse, error)
	Get(ctx context.Context, id, callerID string) (dto.QuestionResponse, error)
	Update(ctx context.Context, id, callerID string, payload dto.QuestionUpdateRequest) (dto.QuestionResponse, error)
	ListAnswers(ctx context.Context, id, callerID string) ([]dto.AnswerResponse, error)
	ListComments(ctx context.Context, id, callerID string) ([]dto.CommentResponse, error)
}

type questionService struct {
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	comments  repository.CommentRepository
	saves     repository.SaveRepository
	enricher  *Enricher
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewQuestionService constructs a question service.
func NewQuestionService(
	questions repository.QuestionRepository,
	answers repository.AnswerRepository,
	comments repository.CommentRepository,
	saves repository.SaveRepository,
	enricher *Enricher,
	logger zerolog.Logger,
) QuestionService {
	return &questionService{
		questions: questions,
		answers:   answers,
		comments:  comments,
		saves:     saves,
		enricher:  enricher,
		logger:    logger.With().Str("component", "question_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/qna-go-api/internal/service/question"),
	}
}

func (s *questionService) Create(ctx context.Context, callerID string, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "question.create", trace.WithAttributes(
		attribute.String("question.asker_id", callerID),
		attribute.String("question.subject", payload.Subject),
	))
	defer span.End()

	title := dto.NormalizeTitle(payload.Title)
	if title == "" {
		return dto.QuestionResponse{}, apperror.Validation("Validation failed", "title is required")
	}

	question := models.Question{
		Title:       title,
		Description: strings.TrimSpace(payload.Description),
		Subject:     payload.Subject,
		Tags:        dto.NormalizeTags(payload.Tags),
		AskerID:     callerID,
	}
	if err := s.questions.Create(spanCtx, &question); err != nil {
		span.RecordError(err)
		return dto.QuestionResponse{}, err
	}

	s.logger.Info().Str("question_id", question.ID).Str("asker_id", callerID).Msg("question created")

	return s.enricher.Questions(spanCtx, []models.Question{question})[0], nil
}

func (s *questionService) List(ctx context.Context, callerID string) ([]dto.QuestionResponse, error) {
	questions, err := s.questions.List(ctx, repository.MaxListSize)
	if err != nil {
		return nil, err
	}
	return s.enricher.Questions(ctx, questions), nil
}

func (s *questionService) Get(ctx context.Context, id, callerID string) (dto.QuestionResponse, error) {
	question, err := s.find(ctx, id)
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	response := s.enricher.Questions(ctx, []models.Question{question})[0]
	if callerID != "" {
		saved, err := s.saves.IsSaved(ctx, id, callerID)
		if err != nil {
			s.logger.Warn().Err(err).Str("question_id", id).Msg("saved flag lookup failed")
		} else {
			response.Saved = &saved
		}
	}
	return response, nil
}

func (s *questionService) Update(ctx context.Context, id, callerID string, payload dto.QuestionUpdateRequest) (dto.QuestionResponse, error) {
	if payload.Asker != "" && payload.Asker != callerID {
		return dto.QuestionResponse{}, apperror.Forbidden("You can only edit your own questions")
	}

	spanCtx, span := s.tracer.Start(ctx, "question.update", trace.WithAttributes(
		attribute.String("question.id", id),
		attribute.String("question.asker_id", callerID),
	))
	defer span.End()

	question, err := s.find(spanCtx, id)
	if err != nil {
		return dto.QuestionResponse{}, err
	}
	if question.AskerID != callerID {
		return dto.QuestionResponse{}, apperror.Forbidden("You can only edit your own questions")
	}

	if payload.Title != nil {
		title := dto.NormalizeTitle(*payload.Title)
		if title == "" {
			return dto.QuestionResponse{}, apperror.Validation("Validation failed", "title is required")
		}
		question.Title = title
	}
	if payload.Description != nil {
		question.Description = strings.TrimSpace(*payload.Description)
	}
	if payload.Subject != nil {
		question.Subject = *payload.Subject
	}
	if payload.Tags != nil {
		question.Tags = dto.NormalizeTags(payload.Tags)
	}
	// Titles stored before normalisation existed are fixed on any edit.
	question.Title = dto.NormalizeTitle(question.Title)

	if err := s.questions.Update(spanCtx, &question); err != nil {
		span.RecordError(err)
		return dto.QuestionResponse{}, err
	}

	return s.enricher.Questions(spanCtx, []models.Question{question})[0], nil
}

func (s *questionService) ListAnswers(ctx context.Context, id, callerID string) ([]dto.AnswerResponse, error) {
	if err := s.ensureExists(ctx, id); err != nil {
		return nil, err
	}
	answers, err := s.answers.ListByQuestion(ctx, id, repository.MaxListSize)
	if err != nil {
		return nil, err
	}
	return s.enricher.Answers(ctx, answers, callerID), nil
}

func (s *questionService) ListComments(ctx context.Context, id, callerID string) ([]dto.CommentResponse, error) {
	if err := s.ensureExists(ctx, id); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByQuestion(ctx, id, repository.MaxListSize)
	if err != nil {
		return nil, err
	}
	return s.enricher.Comments(ctx, comments, callerID), nil
}

func (s *questionService) find(ctx context.Context, id string) (models.Question, error) {
	question, err := s.questions.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Question{}, apperror.NotFound(questionNotFound)
	}
	return question, err
}

func (s *questionService) ensureExists(ctx context.Context, id string) error {
	ok, err := s.questions.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NotFound(questionNotFound)
	}
	return nil
}
