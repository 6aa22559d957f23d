package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/identity"
	"github.com/noah-isme/qna-go-api/internal/models"
	"github.com/noah-isme/qna-go-api/internal/observability"
	"github.com/noah-isme/qna-go-api/internal/repository"
)

const enrichmentConcurrency = 8

// Enricher joins identity, votes and nested comments onto stored records. A failure for one record
// degrades that record only; output order always matches input order.
type Enricher struct {
	resolver identity.Resolver
	likes    repository.LikeRepository
	comments repository.CommentRepository
	logger   zerolog.Logger
}

// NewEnricher constructs an enricher.
func NewEnricher(resolver identity.Resolver, likes repository.LikeRepository, comments repository.CommentRepository, logger zerolog.Logger) *Enricher {
	return &Enricher{
		resolver: resolver,
		likes:    likes,
		comments: comments,
		logger:   logger.With().Str("component", "enricher").Logger(),
	}
}

// Users resolves every distinct user ID concurrently. Unknown or unresolvable users map to the
// anonymous placeholder.
func (e *Enricher) Users(ctx context.Context, ids []string) map[string]dto.UserResponse {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	resolved := make([]dto.UserResponse, len(unique))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(enrichmentConcurrency)
	for i, id := range unique {
		group.Go(func() error {
			resolved[i] = e.user(groupCtx, id)
			return nil
		})
	}
	_ = group.Wait()

	out := make(map[string]dto.UserResponse, len(unique))
	for i, id := range unique {
		out[id] = resolved[i]
	}
	return out
}

func (e *Enricher) user(ctx context.Context, id string) dto.UserResponse {
	if e.resolver == nil || id == "" {
		return anonymousUser()
	}

	user, err := e.resolver.Resolve(ctx, id)
	if err != nil {
		if !errors.Is(err, identity.ErrUserNotFound) {
			e.logger.Warn().Err(err).Str("user_id", id).Msg("identity lookup failed")
			observability.EnrichmentFallbacks().WithLabelValues("identity").Inc()
		}
		return anonymousUser()
	}

	return dto.UserResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		ImageURL:  user.ImageURL,
	}
}

func anonymousUser() dto.UserResponse {
	anon := identity.Anonymous()
	return dto.UserResponse{FirstName: anon.FirstName, LastName: anon.LastName, ImageURL: anon.ImageURL}
}

// Questions attaches askers.
func (e *Enricher) Questions(ctx context.Context, questions []models.Question) []dto.QuestionResponse {
	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.AskerID)
	}
	users := e.Users(ctx, ids)

	out := make([]dto.QuestionResponse, 0, len(questions))
	for _, q := range questions {
		resp := dto.NewQuestionResponse(q)
		resp.User = users[q.AskerID]
		out = append(out, resp)
	}
	return out
}

// Comments attaches commenters and vote tallies.
func (e *Enricher) Comments(ctx context.Context, comments []models.Comment, callerID string) []dto.CommentResponse {
	ids := make([]string, 0, len(comments))
	userIDs := make([]string, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
		userIDs = append(userIDs, c.CommenterID)
	}

	var (
		users   map[string]dto.UserResponse
		tallies map[string]repository.VoteTally
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		users = e.Users(groupCtx, userIDs)
		return nil
	})
	group.Go(func() error {
		tallies = e.tallies(groupCtx, models.LikeTargetComment, ids, callerID)
		return nil
	})
	_ = group.Wait()

	out := make([]dto.CommentResponse, 0, len(comments))
	for _, c := range comments {
		resp := dto.NewCommentResponse(c)
		resp.User = users[c.CommenterID]
		resp.Votes = toVoteTally(tallies[c.ID])
		out = append(out, resp)
	}
	return out
}

// Answers attaches answerers, vote tallies and each answer's comments.
func (e *Enricher) Answers(ctx context.Context, answers []models.Answer, callerID string) []dto.AnswerResponse {
	ids := make([]string, 0, len(answers))
	userIDs := make([]string, 0, len(answers))
	for _, a := range answers {
		ids = append(ids, a.ID)
		userIDs = append(userIDs, a.AnswererID)
	}

	var (
		users   map[string]dto.UserResponse
		tallies map[string]repository.VoteTally
	)
	nested := make([][]dto.CommentResponse, len(answers))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(enrichmentConcurrency)
	group.Go(func() error {
		users = e.Users(groupCtx, userIDs)
		return nil
	})
	group.Go(func() error {
		tallies = e.tallies(groupCtx, models.LikeTargetAnswer, ids, callerID)
		return nil
	})
	for i, a := range answers {
		group.Go(func() error {
			nested[i] = e.answerComments(groupCtx, a.ID, callerID)
			return nil
		})
	}
	_ = group.Wait()

	out := make([]dto.AnswerResponse, 0, len(answers))
	for i, a := range answers {
		resp := dto.NewAnswerResponse(a)
		resp.User = users[a.AnswererID]
		resp.Votes = toVoteTally(tallies[a.ID])
		resp.Comments = nested[i]
		out = append(out, resp)
	}
	return out
}

func (e *Enricher) answerComments(ctx context.Context, answerID, callerID string) []dto.CommentResponse {
	if e.comments == nil {
		return []dto.CommentResponse{}
	}
	comments, err := e.comments.ListByAnswer(ctx, answerID, 0)
	if err != nil {
		e.logger.Warn().Err(err).Str("answer_id", answerID).Msg("loading answer comments failed")
		observability.EnrichmentFallbacks().WithLabelValues("comments").Inc()
		return []dto.CommentResponse{}
	}
	return e.Comments(ctx, comments, callerID)
}

func (e *Enricher) tallies(ctx context.Context, targetType string, ids []string, callerID string) map[string]repository.VoteTally {
	if e.likes == nil || len(ids) == 0 {
		return map[string]repository.VoteTally{}
	}
	tallies, err := e.likes.Tally(ctx, targetType, ids, callerID)
	if err != nil {
		e.logger.Warn().Err(err).Str("target_type", targetType).Msg("loading vote tallies failed")
		observability.EnrichmentFallbacks().WithLabelValues("votes").Inc()
		return map[string]repository.VoteTally{}
	}
	return tallies
}

func toVoteTally(t repository.VoteTally) dto.VoteTally {
	out := dto.VoteTally{Likes: t.Likes, Dislikes: t.Dislikes}
	if t.Mine != nil {
		out.LikedByMe = *t.Mine
		out.DislikedByMe = !*t.Mine
	}
	return out
}
