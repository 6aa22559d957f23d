package service

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/qna-go-api/internal/apperror"
	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/models"
	"github.com/noah-isme/qna-go-api/internal/repository"
)

// LikeService exposes voting on answers and comments.
type LikeService interface {
	Vote(ctx context.Context, callerID string, payload dto.LikeRequest) (dto.LikeResponse, error)
	Tally(ctx context.Context, targetType, targetID, callerID string) (dto.LikeResponse, error)
}

type likeService struct {
	likes    repository.LikeRepository
	answers  repository.AnswerRepository
	comments repository.CommentRepository
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewLikeService constructs a like service.
func NewLikeService(likes repository.LikeRepository, answers repository.AnswerRepository, comments repository.CommentRepository, logger zerolog.Logger) LikeService {
	return &likeService{
		likes:    likes,
		answers:  answers,
		comments: comments,
		logger:   logger.With().Str("component", "like_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/qna-go-api/internal/service/like"),
	}
}

func (s *likeService) Vote(ctx context.Context, callerID string, payload dto.LikeRequest) (dto.LikeResponse, error) {
	if payload.IsLiked == nil {
		return dto.LikeResponse{}, apperror.Validation("Validation failed", "isLiked is required")
	}

	spanCtx, span := s.tracer.Start(ctx, "like.vote", trace.WithAttributes(
		attribute.String("like.target_type", payload.TargetType),
		attribute.String("like.target_id", payload.Target),
	))
	defer span.End()

	if err := s.ensureTarget(spanCtx, payload.TargetType, payload.Target); err != nil {
		return dto.LikeResponse{}, err
	}

	held, err := s.likes.Vote(spanCtx, payload.TargetType, payload.Target, callerID, *payload.IsLiked)
	if err != nil {
		span.RecordError(err)
		return dto.LikeResponse{}, err
	}
	s.logger.Debug().
		Str("target_type", payload.TargetType).
		Str("target_id", payload.Target).
		Bool("held", held).
		Msg("vote applied")

	return s.tally(spanCtx, payload.TargetType, payload.Target, callerID)
}

func (s *likeService) Tally(ctx context.Context, targetType, targetID, callerID string) (dto.LikeResponse, error) {
	if err := s.ensureTarget(ctx, targetType, targetID); err != nil {
		return dto.LikeResponse{}, err
	}
	return s.tally(ctx, targetType, targetID, callerID)
}

func (s *likeService) tally(ctx context.Context, targetType, targetID, callerID string) (dto.LikeResponse, error) {
	tallies, err := s.likes.Tally(ctx, targetType, []string{targetID}, callerID)
	if err != nil {
		return dto.LikeResponse{}, err
	}
	return dto.LikeResponse{
		TargetType: targetType,
		Target:     targetID,
		Votes:      toVoteTally(tallies[targetID]),
	}, nil
}

func (s *likeService) ensureTarget(ctx context.Context, targetType, targetID string) error {
	var (
		ok  bool
		err error
	)
	switch targetType {
	case models.LikeTargetAnswer:
		ok, err = s.answers.Exists(ctx, targetID)
		if err == nil && !ok {
			return apperror.NotFound(answerNotFound)
		}
	case models.LikeTargetComment:
		ok, err = s.comments.Exists(ctx, targetID)
		if err == nil && !ok {
			return apperror.NotFound("Comment not found")
		}
	default:
		return apperror.Validation("Invalid target type", "targetType must be one of [answer, comment]")
	}
	return err
}
