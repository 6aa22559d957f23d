package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/qna-go-api/internal/apperror"
	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/models"
	"github.com/noah-isme/qna-go-api/internal/repository"
	"github.com/noah-isme/qna-go-api/pkg/ai"
)

const (
	testNotFound         = "Test not found"
	defaultTestQuestions = 5
	defaultDifficulty    = "medium"

	testGeneratorPrompt = "You write multiple choice tests for students. Reply with a single JSON object of the form " +
		`{"questions":[{"question":"...","options":["..."],"answer":"...","explanation":"..."}]}` +
		". The answer must be copied verbatim from the options. Do not add any text outside the JSON."
	testReviewerPrompt = "You review a student's answers to a multiple choice test. For every question say whether " +
		"the answer is correct, explain the mistakes briefly and finish with the overall score."
)

// ErrUnusableTest reports generated output that contained no valid question.
var ErrUnusableTest = errors.New("generated test contains no valid question")

// TestService generates, stores and reviews AI written tests.
type TestService interface {
	Generate(ctx context.Context, callerID string, payload dto.TestGenerateRequest) (dto.TestGenerateResponse, error)
	Create(ctx context.Context, callerID string, payload dto.TestCreateRequest) (dto.TestResponse, error)
	List(ctx context.Context, callerID string) ([]dto.TestResponse, error)
	Get(ctx context.Context, id, callerID string) (dto.TestResponse, error)
	Review(ctx context.Context, id, callerID string, payload dto.TestReviewRequest) (dto.TestResponse, error)
}

type testService struct {
	repo      repository.TestRepository
	ai        StreamOpener
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewTestService constructs a test service.
func NewTestService(repo repository.TestRepository, opener StreamOpener, validate *validator.Validate, logger zerolog.Logger) TestService {
	return &testService{
		repo:      repo,
		ai:        opener,
		validator: validate,
		logger:    logger.With().Str("component", "test_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/qna-go-api/internal/service/test"),
	}
}

func (s *testService) Generate(ctx context.Context, callerID string, payload dto.TestGenerateRequest) (dto.TestGenerateResponse, error) {
	count := payload.Count
	if count <= 0 {
		count = defaultTestQuestions
	}
	difficulty := payload.Difficulty
	if difficulty == "" {
		difficulty = defaultDifficulty
	}

	spanCtx, span := s.tracer.Start(ctx, "test.generate", trace.WithAttributes(
		attribute.String("test.subject", payload.Subject),
		attribute.String("test.provider", payload.Provider),
		attribute.Int("test.count", count),
	))
	defer span.End()

	prompt := fmt.Sprintf("Write %d %s multiple choice questions about %q in the subject %s.",
		count, difficulty, strings.TrimSpace(payload.Topic), payload.Subject)

	text, provider, err := s.complete(spanCtx, payload.Provider, ai.Request{
		Model:    payload.Model,
		System:   testGeneratorPrompt,
		Messages: []ai.Message{{Role: ai.RoleUser, Content: prompt}},
		JSON:     true,
	})
	if err != nil {
		span.RecordError(err)
		return dto.TestGenerateResponse{}, err
	}

	questions, err := s.parseQuestions(text)
	if err != nil {
		s.logger.Warn().Err(err).Str("provider", provider.Name()).Msg("generated test rejected")
		return dto.TestGenerateResponse{}, apperror.Upstream("AI provider returned an unusable test", err)
	}
	if len(questions) > count {
		questions = questions[:count]
	}

	s.logger.Info().Str("caller_id", callerID).Int("questions", len(questions)).Msg("test generated")
	return dto.TestGenerateResponse{
		Subject:   payload.Subject,
		Questions: questions,
		AIModel:   modelName(payload.Model, provider),
	}, nil
}

func (s *testService) Create(ctx context.Context, callerID string, payload dto.TestCreateRequest) (dto.TestResponse, error) {
	var questions []json.RawMessage
	if err := json.Unmarshal(payload.Questions, &questions); err != nil {
		return dto.TestResponse{}, apperror.Validation("Validation failed", "questions must be a JSON array")
	}
	if len(questions) == 0 {
		return dto.TestResponse{}, apperror.Validation("Validation failed", "questions must not be empty")
	}

	answers := payload.Answers
	if answers == nil {
		answers = []string{}
	}

	test := models.Test{
		Questions: datatypes.JSON(payload.Questions),
		Answers:   datatypes.JSONSlice[string](answers),
		AIModel:   payload.AIModel,
		CreatorID: callerID,
		Subject:   payload.Subject,
	}
	if err := s.repo.Create(ctx, &test); err != nil {
		return dto.TestResponse{}, err
	}
	return dto.NewTestResponse(test), nil
}

func (s *testService) List(ctx context.Context, callerID string) ([]dto.TestResponse, error) {
	tests, err := s.repo.ListByCreator(ctx, callerID, repository.MaxListSize)
	if err != nil {
		return nil, err
	}
	return dto.NewTestResponseSlice(tests), nil
}

func (s *testService) Get(ctx context.Context, id, callerID string) (dto.TestResponse, error) {
	test, err := s.owned(ctx, id, callerID)
	if err != nil {
		return dto.TestResponse{}, err
	}
	return dto.NewTestResponse(test), nil
}

func (s *testService) Review(ctx context.Context, id, callerID string, payload dto.TestReviewRequest) (dto.TestResponse, error) {
	test, err := s.owned(ctx, id, callerID)
	if err != nil {
		return dto.TestResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "test.review", trace.WithAttributes(
		attribute.String("test.id", id),
		attribute.String("test.provider", payload.Provider),
	))
	defer span.End()

	answers, err := json.Marshal([]string(test.Answers))
	if err != nil {
		return dto.TestResponse{}, err
	}
	prompt := fmt.Sprintf("Test questions:\n%s\n\nStudent answers in question order:\n%s", string(test.Questions), string(answers))

	review, provider, err := s.complete(spanCtx, payload.Provider, ai.Request{
		Model:    payload.Model,
		System:   testReviewerPrompt,
		Messages: []ai.Message{{Role: ai.RoleUser, Content: prompt}},
	})
	if err != nil {
		span.RecordError(err)
		return dto.TestResponse{}, err
	}
	review = strings.TrimSpace(review)
	if review == "" {
		return dto.TestResponse{}, apperror.Upstream("AI provider returned an empty review", nil)
	}

	if err := s.repo.UpdateReview(spanCtx, &test, review, modelName(payload.Model, provider)); err != nil {
		return dto.TestResponse{}, err
	}
	return dto.NewTestResponse(test), nil
}

func (s *testService) complete(ctx context.Context, providerName string, req ai.Request) (string, ai.Provider, error) {
	stream, provider, err := openStream(ctx, s.ai, providerName, req)
	if err != nil {
		return "", nil, err
	}
	text, _, err := ai.Collect(stream)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", nil, apperror.Timeout()
		}
		return "", nil, apperror.Upstream("AI provider failed", err)
	}
	return text, provider, nil
}

func (s *testService) owned(ctx context.Context, id, callerID string) (models.Test, error) {
	test, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Test{}, apperror.NotFound(testNotFound)
		}
		return models.Test{}, err
	}
	if test.CreatorID != callerID {
		return models.Test{}, apperror.Forbidden("You can only access your own tests")
	}
	return test, nil
}

// parseQuestions accepts either {"questions":[...]} or a bare array, optionally wrapped in a
// markdown code fence, and keeps only questions that validate.
func (s *testService) parseQuestions(text string) ([]dto.TestQuestion, error) {
	raw := extractJSON(text)
	if raw == "" {
		return nil, ErrUnusableTest
	}

	var candidates []dto.TestQuestion
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
			return nil, fmt.Errorf("decode generated test: %w", err)
		}
	} else {
		var wrapper struct {
			Questions []dto.TestQuestion `json:"questions"`
		}
		if err := json.Unmarshal([]byte(raw), &wrapper); err != nil {
			return nil, fmt.Errorf("decode generated test: %w", err)
		}
		candidates = wrapper.Questions
	}

	out := make([]dto.TestQuestion, 0, len(candidates))
	for _, q := range candidates {
		q.Question = strings.TrimSpace(q.Question)
		q.Answer = strings.TrimSpace(q.Answer)
		if s.validator != nil {
			if err := s.validator.Struct(q); err != nil {
				continue
			}
		}
		if !containsOption(q.Options, q.Answer) {
			continue
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, ErrUnusableTest
	}
	return out, nil
}

func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return ""
	}
	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(text, closer)
	if end < start {
		return ""
	}
	return text[start : end+1]
}

func containsOption(options []string, answer string) bool {
	for _, option := range options {
		if strings.TrimSpace(option) == answer {
			return true
		}
	}
	return false
}
