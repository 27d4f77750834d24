package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"trade-intel-be/internal/dto"
	"trade-intel-be/internal/entity"
	"trade-intel-be/internal/pkg/logger"
	"trade-intel-be/internal/repository/memory"
	"trade-intel-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventPublisher struct {
	published []events.Event
	err       error
}

func (f *fakeEventPublisher) Publish(_ context.Context, ev events.Event) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, ev)
	return nil
}

func newChatService(t *testing.T, tokens *fakeTokenIssuer, publisher IEventPublisher) (IChatService, *memory.JobRegistry, *fakeUowFactory) {
	t.Helper()
	registry := memory.NewJobRegistry(time.Hour)
	factory := newFakeUowFactory()
	svc := NewChatService(factory, registry, tokens, publisher, logger.NewNopLogger())
	return svc, registry, factory
}

func TestStartChat_RegistersJobAndIssuesToken(t *testing.T) {
	tokens := &fakeTokenIssuer{token: "tok-abc"}
	svc, registry, _ := newChatService(t, tokens, nil)

	userId := uuid.New()
	resp, err := svc.StartChat(context.Background(), &userId, &dto.StartChatRequest{
		Message: "classify fresh apples",
	})
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", resp.StreamToken)
	assert.False(t, resp.ExpiresAt.IsZero())

	job, ok := registry.Get(resp.JobId)
	require.True(t, ok)
	assert.Equal(t, entity.JobStatusPending, job.Status)
	assert.Equal(t, "classify fresh apples", job.Query)
	assert.True(t, job.IsAuthenticated())
	assert.Equal(t, resp.ExpiresAt, job.TokenExpiry)
	require.Len(t, tokens.issued, 1)
	assert.Equal(t, resp.JobId, tokens.issued[0])
}

func TestStartChat_AnonymousJob(t *testing.T) {
	tokens := &fakeTokenIssuer{token: "tok-anon"}
	svc, registry, _ := newChatService(t, tokens, nil)

	resp, err := svc.StartChat(context.Background(), nil, &dto.StartChatRequest{Message: "hi"})
	require.NoError(t, err)

	job, ok := registry.Get(resp.JobId)
	require.True(t, ok)
	assert.False(t, job.IsAuthenticated())
	assert.Nil(t, job.SessionId)
}

func TestStartChat_TokenIssueFailureDoesNotRegisterJob(t *testing.T) {
	tokens := &fakeTokenIssuer{issueErr: errors.New("redis down")}
	svc, registry, _ := newChatService(t, tokens, nil)

	resp, err := svc.StartChat(context.Background(), nil, &dto.StartChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.Nil(t, resp)
	_, ok := registry.Get(uuid.Nil)
	assert.False(t, ok)
}

func TestStartChat_PublisherFailureIsNotFatal(t *testing.T) {
	tokens := &fakeTokenIssuer{token: "tok"}
	svc, registry, _ := newChatService(t, tokens, &fakeEventPublisher{err: errors.New("nats down")})

	resp, err := svc.StartChat(context.Background(), nil, &dto.StartChatRequest{Message: "hi"})
	require.NoError(t, err)
	_, ok := registry.Get(resp.JobId)
	assert.True(t, ok)
}

func TestStartChat_PublishesJobCreatedEvent(t *testing.T) {
	tokens := &fakeTokenIssuer{token: "tok"}
	publisher := &fakeEventPublisher{}
	svc, _, _ := newChatService(t, tokens, publisher)

	userId := uuid.New()
	_, err := svc.StartChat(context.Background(), &userId, &dto.StartChatRequest{Message: "hi"})
	require.NoError(t, err)
	require.Len(t, publisher.published, 1)
	assert.Equal(t, events.TypeChatJobCreated, publisher.published[0].EventType())
}

func TestGetAllSessions_OwnedOnlyNewestFirst(t *testing.T) {
	tokens := &fakeTokenIssuer{token: "tok"}
	svc, _, factory := newChatService(t, tokens, nil)

	userId := uuid.New()
	otherId := uuid.New()
	old := time.Now().Add(-time.Hour)
	factory.uow.sessions.sessions = []*entity.ChatSession{
		{Id: uuid.New(), UserId: userId, Title: "older", CreatedAt: old},
		{Id: uuid.New(), UserId: userId, Title: "newer", CreatedAt: time.Now()},
		{Id: uuid.New(), UserId: otherId, Title: "foreign", CreatedAt: time.Now()},
	}

	sessions, err := svc.GetAllSessions(context.Background(), userId)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "newer", sessions[0].Title)
	assert.Equal(t, "older", sessions[1].Title)
}

func TestGetChatHistory_RejectsForeignSession(t *testing.T) {
	tokens := &fakeTokenIssuer{token: "tok"}
	svc, _, factory := newChatService(t, tokens, nil)

	owner := uuid.New()
	sessionId := uuid.New()
	factory.uow.sessions.sessions = []*entity.ChatSession{
		{Id: sessionId, UserId: owner, Title: "theirs"},
	}

	_, err := svc.GetChatHistory(context.Background(), uuid.New(), sessionId)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found or access denied")
}

func TestGetChatHistory_ChronologicalOrder(t *testing.T) {
	tokens := &fakeTokenIssuer{token: "tok"}
	svc, _, factory := newChatService(t, tokens, nil)

	userId := uuid.New()
	sessionId := uuid.New()
	factory.uow.sessions.sessions = []*entity.ChatSession{
		{Id: sessionId, UserId: userId},
	}
	factory.uow.messages.messages = []*entity.ChatMessage{
		{Id: uuid.New(), ChatSessionId: sessionId, Role: entity.ChatMessageRoleAssistant, Content: "second", CreatedAt: time.Now()},
		{Id: uuid.New(), ChatSessionId: sessionId, Role: entity.ChatMessageRoleUser, Content: "first", CreatedAt: time.Now().Add(-time.Minute)},
	}

	history, err := svc.GetChatHistory(context.Background(), userId, sessionId)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "second", history[1].Content)
}

func TestDeleteSession_RemovesMessagesThenSession(t *testing.T) {
	tokens := &fakeTokenIssuer{token: "tok"}
	svc, _, factory := newChatService(t, tokens, nil)

	userId := uuid.New()
	sessionId := uuid.New()
	factory.uow.sessions.sessions = []*entity.ChatSession{
		{Id: sessionId, UserId: userId},
	}

	err := svc.DeleteSession(context.Background(), userId, &dto.DeleteSessionRequest{SessionId: sessionId})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{sessionId}, factory.uow.messages.deletedBySession)
	assert.Equal(t, []uuid.UUID{sessionId}, factory.uow.sessions.deleted)
	assert.Equal(t, 1, factory.uow.committed)
}

func TestDeleteSession_ForeignSessionLeavesStorageUntouched(t *testing.T) {
	tokens := &fakeTokenIssuer{token: "tok"}
	svc, _, factory := newChatService(t, tokens, nil)

	factory.uow.sessions.sessions = []*entity.ChatSession{
		{Id: uuid.New(), UserId: uuid.New()},
	}

	err := svc.DeleteSession(context.Background(), uuid.New(), &dto.DeleteSessionRequest{SessionId: factory.uow.sessions.sessions[0].Id})
	require.Error(t, err)
	assert.Zero(t, factory.uow.begun)
	assert.Empty(t, factory.uow.sessions.deleted)
}
