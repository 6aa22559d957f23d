package service

import (
	"context"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/qna-go-api/internal/apperror"
	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/models"
	"github.com/noah-isme/qna-go-api/internal/repository"
)

// CommentService exposes comment use-cases.
type CommentService interface {
	Create(ctx context.Context, callerID string, payload dto.CommentCreateRequest) (dto.CommentResponse, error)
}

type commentService struct {
	comments  repository.CommentRepository
	answers   repository.AnswerRepository
	questions repository.QuestionRepository
	enricher  *Enricher
	events    EventPublisher
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewCommentService constructs a comment service.
func NewCommentService(
	comments repository.CommentRepository,
	answers repository.AnswerRepository,
	questions repository.QuestionRepository,
	enricher *Enricher,
	events EventPublisher,
	logger zerolog.Logger,
) CommentService {
	if events == nil {
		events = noopPublisher{}
	}
	return &commentService{
		comments:  comments,
		answers:   answers,
		questions: questions,
		enricher:  enricher,
		events:    events,
		sanitizer: newContentPolicy(),
		logger:    logger.With().Str("component", "comment_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/qna-go-api/internal/service/comment"),
	}
}

func (s *commentService) Create(ctx context.Context, callerID string, payload dto.CommentCreateRequest) (dto.CommentResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "comment.create", trace.WithAttributes(
		attribute.String("comment.commenter_id", callerID),
	))
	defer span.End()

	content := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if content == "" {
		return dto.CommentResponse{}, apperror.Validation("Validation failed", emptyContentNote)
	}

	comment := models.Comment{Content: content, CommenterID: callerID}
	switch {
	case payload.Answer != "":
		ok, err := s.answers.Exists(spanCtx, payload.Answer)
		if err != nil {
			return dto.CommentResponse{}, err
		}
		if !ok {
			return dto.CommentResponse{}, apperror.NotFound(answerNotFound)
		}
		answerID := payload.Answer
		comment.AnswerID = &answerID
	case payload.Question != "":
		ok, err := s.questions.Exists(spanCtx, payload.Question)
		if err != nil {
			return dto.CommentResponse{}, err
		}
		if !ok {
			return dto.CommentResponse{}, apperror.NotFound(questionNotFound)
		}
		questionID := payload.Question
		comment.QuestionID = &questionID
	default:
		return dto.CommentResponse{}, apperror.Validation("Validation failed", "answer or question is required")
	}

	if err := s.comments.Create(spanCtx, &comment); err != nil {
		span.RecordError(err)
		return dto.CommentResponse{}, err
	}

	s.logger.Info().Str("comment_id", comment.ID).Str("commenter_id", callerID).Msg("comment created")
	s.events.Publish(spanCtx, SubjectCommentCreated, CommentCreatedEvent{
		CommentID:   comment.ID,
		AnswerID:    comment.AnswerID,
		QuestionID:  comment.QuestionID,
		CommenterID: callerID,
		CreatedAt:   comment.CreatedAt,
	})

	return s.enricher.Comments(spanCtx, []models.Comment{comment}, callerID)[0], nil
}
