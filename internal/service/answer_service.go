package service

import (
	"context"
	"errors"
	"strings"

	"github.com/microcosm-cc/bluemonday"
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

const (
	answerNotFound   = "Answer not found"
	answerNotYours   = "You can only edit your own answers"
	emptyContentNote = "content is required"
)

// AnswerService exposes answer use-cases.
type AnswerService interface {
	Create(ctx context.Context, callerID string, payload dto.AnswerCreateRequest) (dto.AnswerResponse, error)
	Update(ctx context.Context, id, callerID string, payload dto.AnswerUpdateRequest) (dto.AnswerResponse, error)
	ListComments(ctx context.Context, id, callerID string) ([]dto.CommentResponse, error)
}

type answerService struct {
	answers   repository.AnswerRepository
	questions repository.QuestionRepository
	comments  repository.CommentRepository
	enricher  *Enricher
	events    EventPublisher
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewAnswerService constructs an answer service.
func NewAnswerService(
	answers repository.AnswerRepository,
	questions repository.QuestionRepository,
	comments repository.CommentRepository,
	enricher *Enricher,
	events EventPublisher,
	logger zerolog.Logger,
) AnswerService {
	if events == nil {
		events = noopPublisher{}
	}
	return &answerService{
		answers:   answers,
		questions: questions,
		comments:  comments,
		enricher:  enricher,
		events:    events,
		sanitizer: newContentPolicy(),
		logger:    logger.With().Str("component", "answer_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/qna-go-api/internal/service/answer"),
	}
}

func (s *answerService) Create(ctx context.Context, callerID string, payload dto.AnswerCreateRequest) (dto.AnswerResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "answer.create", trace.WithAttributes(
		attribute.String("answer.question_id", payload.Question),
		attribute.String("answer.answerer_id", callerID),
	))
	defer span.End()

	content := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if content == "" {
		return dto.AnswerResponse{}, apperror.Validation("Validation failed", emptyContentNote)
	}

	question, err := s.questions.FindByID(spanCtx, payload.Question)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerResponse{}, apperror.NotFound(questionNotFound)
		}
		return dto.AnswerResponse{}, err
	}

	answer := models.Answer{
		Content:    content,
		QuestionID: question.ID,
		AnswererID: callerID,
	}
	if err := s.answers.Create(spanCtx, &answer); err != nil {
		span.RecordError(err)
		return dto.AnswerResponse{}, err
	}

	s.logger.Info().Str("answer_id", answer.ID).Str("question_id", question.ID).Msg("answer created")
	s.events.Publish(spanCtx, SubjectAnswerCreated, AnswerCreatedEvent{
		AnswerID:   answer.ID,
		QuestionID: question.ID,
		AskerID:    question.AskerID,
		AnswererID: callerID,
		CreatedAt:  answer.CreatedAt,
	})

	return s.enricher.Answers(spanCtx, []models.Answer{answer}, callerID)[0], nil
}

// Update checks the claimed answerer before touching the store, then the stored answerer and
// question against the claims.
func (s *answerService) Update(ctx context.Context, id, callerID string, payload dto.AnswerUpdateRequest) (dto.AnswerResponse, error) {
	if payload.Answerer != callerID {
		return dto.AnswerResponse{}, apperror.Forbidden(answerNotYours)
	}

	spanCtx, span := s.tracer.Start(ctx, "answer.update", trace.WithAttributes(
		attribute.String("answer.id", id),
		attribute.String("answer.answerer_id", callerID),
	))
	defer span.End()

	content := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if content == "" {
		return dto.AnswerResponse{}, apperror.Validation("Validation failed", emptyContentNote)
	}

	stored, err := s.answers.FindByID(spanCtx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerResponse{}, apperror.NotFound(answerNotFound)
		}
		return dto.AnswerResponse{}, err
	}
	if stored.AnswererID != callerID {
		return dto.AnswerResponse{}, apperror.Forbidden(answerNotYours)
	}
	if stored.QuestionID != payload.Question {
		return dto.AnswerResponse{}, apperror.Forbidden("Answer does not belong to this question")
	}

	updated, err := s.answers.UpdateContent(spanCtx, id, content)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerResponse{}, apperror.NotFound(answerNotFound)
		}
		span.RecordError(err)
		return dto.AnswerResponse{}, err
	}

	return s.enricher.Answers(spanCtx, []models.Answer{updated}, callerID)[0], nil
}

func (s *answerService) ListComments(ctx context.Context, id, callerID string) ([]dto.CommentResponse, error) {
	ok, err := s.answers.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.NotFound(answerNotFound)
	}

	comments, err := s.comments.ListByAnswer(ctx, id, repository.MaxListSize)
	if err != nil {
		return nil, err
	}
	return s.enricher.Comments(ctx, comments, callerID), nil
}

// newContentPolicy returns the sanitiser applied to user supplied rich text.
func newContentPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("br")
	return policy
}
