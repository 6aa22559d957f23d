package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/qna-go-api/internal/database"
	"github.com/noah-isme/qna-go-api/internal/identity"
	"github.com/noah-isme/qna-go-api/internal/models"
	"github.com/noah-isme/qna-go-api/internal/repository"
	"github.com/noah-isme/qna-go-api/pkg/ai"
)

type repos struct {
	db        *gorm.DB
	questions repository.QuestionRepository
	answers   *countingAnswerRepo
	comments  repository.CommentRepository
	likes     repository.LikeRepository
	saves     repository.SaveRepository
	subs      repository.SubscriptionRepository
	chats     repository.ChatRepository
	tests     repository.TestRepository
}

func setupRepos(t *testing.T) repos {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	store := database.FromDB(db)

	return repos{
		db:        db,
		questions: repository.NewQuestionRepository(store),
		answers:   &countingAnswerRepo{AnswerRepository: repository.NewAnswerRepository(store)},
		comments:  repository.NewCommentRepository(store),
		likes:     repository.NewLikeRepository(store),
		saves:     repository.NewSaveRepository(store),
		subs:      repository.NewSubscriptionRepository(store),
		chats:     repository.NewChatRepository(store),
		tests:     repository.NewTestRepository(store),
	}
}

func (r repos) enricher(resolver identity.Resolver) *Enricher {
	return NewEnricher(resolver, r.likes, r.comments, zerolog.Nop())
}

type countingAnswerRepo struct {
	repository.AnswerRepository
	finds atomic.Int32
}

func (c *countingAnswerRepo) FindByID(ctx context.Context, id string) (models.Answer, error) {
	c.finds.Add(1)
	return c.AnswerRepository.FindByID(ctx, id)
}

type fakeResolver struct {
	users map[string]identity.User
	fail  map[string]error
	calls atomic.Int32
}

func (f *fakeResolver) Resolve(_ context.Context, id string) (identity.User, error) {
	f.calls.Add(1)
	if err, ok := f.fail[id]; ok {
		return identity.User{}, err
	}
	user, ok := f.users[id]
	if !ok {
		return identity.User{}, identity.ErrUserNotFound
	}
	return user, nil
}

func knownUsers(ids ...string) *fakeResolver {
	users := make(map[string]identity.User, len(ids))
	for _, id := range ids {
		users[id] = identity.User{ID: id, FirstName: strings.ToUpper(id[:1]) + id[1:], LastName: "Doe"}
	}
	return &fakeResolver{users: users}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]interface{}
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = map[string][]interface{}{}
	}
	p.events[subject] = append(p.events[subject], payload)
}

type scriptedStream struct {
	chunks []ai.Chunk
	err    error
	closed bool
}

func (s *scriptedStream) Recv() (ai.Chunk, error) {
	if len(s.chunks) == 0 {
		if s.err != nil {
			return ai.Chunk{}, s.err
		}
		return ai.Chunk{}, io.EOF
	}
	chunk := s.chunks[0]
	s.chunks = s.chunks[1:]
	return chunk, nil
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

type namedProvider string

func (n namedProvider) Name() string         { return string(n) }
func (n namedProvider) DefaultModel() string { return string(n) + "-default" }
func (n namedProvider) Stream(context.Context, ai.Request) (ai.Stream, error) {
	return nil, fmt.Errorf("not used")
}

type fakeOpener struct {
	stream   *scriptedStream
	err      error
	requests []ai.Request
	names    []string
}

func (f *fakeOpener) Open(_ context.Context, name string, req ai.Request) (ai.Stream, ai.Provider, error) {
	f.names = append(f.names, name)
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, nil, f.err
	}
	if name == "" {
		name = ai.ProviderOpenAI
	}
	return f.stream, namedProvider(name), nil
}

func textStream(parts ...string) *scriptedStream {
	chunks := make([]ai.Chunk, 0, len(parts))
	for _, p := range parts {
		chunks = append(chunks, ai.Chunk{Kind: ai.ChunkText, Text: p})
	}
	return &scriptedStream{chunks: chunks}
}
