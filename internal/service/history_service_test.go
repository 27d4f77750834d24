package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"trade-intel-be/internal/entity"
	"trade-intel-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authedJob(query string, sessionId *uuid.UUID) (*entity.ChatJob, uuid.UUID) {
	userId := uuid.New()
	job := entity.NewChatJob(query, sessionId, &userId)
	return job, userId
}

func TestRecord_AnonymousJobLeavesNoTrace(t *testing.T) {
	factory := newFakeUowFactory()
	svc := NewHistoryService(factory, logger.NewNopLogger())

	job := entity.NewChatJob("what is hs code 0808", nil, nil)
	job.Complete("answer", entity.JobMetadata{})

	require.NoError(t, svc.Record(context.Background(), job))
	assert.Zero(t, factory.calls, "anonymous record must never touch storage")
}

func TestRecord_CreatesSessionLazily(t *testing.T) {
	factory := newFakeUowFactory()
	svc := NewHistoryService(factory, logger.NewNopLogger())

	job, userId := authedJob("classify fresh apples", nil)
	job.Complete("Fresh apples fall under 0808.10.", entity.JobMetadata{
		Citations: []entity.Citation{{Code: "0808.10", Name: "Apples, fresh"}},
	})

	require.NoError(t, svc.Record(context.Background(), job))

	sessions := factory.uow.sessions
	require.Len(t, sessions.created, 1)
	sess := sessions.created[0]
	assert.Equal(t, userId, sess.UserId)
	assert.Equal(t, "classify fresh apples", sess.Title)
	assert.Equal(t, 2, sess.MessageCount)

	msgs := factory.uow.messages.created
	require.Len(t, msgs, 2)
	assert.Equal(t, entity.ChatMessageRoleUser, msgs[0].Role)
	assert.Equal(t, "classify fresh apples", msgs[0].Content)
	assert.Equal(t, entity.ChatMessageRoleAssistant, msgs[1].Role)
	assert.Equal(t, job.Answer, msgs[1].Content)
	assert.Contains(t, string(msgs[1].Analysis), "0808.10")

	assert.Equal(t, 1, factory.uow.committed)
	require.NotNil(t, job.SessionId)
	assert.Equal(t, sess.Id, *job.SessionId)
}

func TestRecord_ReusesExistingSession(t *testing.T) {
	factory := newFakeUowFactory()
	svc := NewHistoryService(factory, logger.NewNopLogger())

	job, userId := authedJob("follow-up question", nil)
	existing := &entity.ChatSession{Id: uuid.New(), UserId: userId, Title: "earlier", MessageCount: 4}
	factory.uow.sessions.sessions = []*entity.ChatSession{existing}
	job.SessionId = &existing.Id
	job.Complete("more detail", entity.JobMetadata{})

	require.NoError(t, svc.Record(context.Background(), job))
	assert.Empty(t, factory.uow.sessions.created)
	assert.Equal(t, 6, existing.MessageCount)
	require.Len(t, factory.uow.sessions.updated, 1)
}

func TestRecord_ForeignSessionStartsFreshOne(t *testing.T) {
	factory := newFakeUowFactory()
	svc := NewHistoryService(factory, logger.NewNopLogger())

	foreign := &entity.ChatSession{Id: uuid.New(), UserId: uuid.New()}
	factory.uow.sessions.sessions = []*entity.ChatSession{foreign}

	job, _ := authedJob("question", &foreign.Id)
	job.Complete("answer", entity.JobMetadata{})

	require.NoError(t, svc.Record(context.Background(), job))
	require.Len(t, factory.uow.sessions.created, 1)
	assert.NotEqual(t, foreign.Id, factory.uow.sessions.created[0].Id)
	assert.Zero(t, foreign.MessageCount, "foreign session untouched")
}

func TestRecord_LongQueryTruncatedInTitle(t *testing.T) {
	factory := newFakeUowFactory()
	svc := NewHistoryService(factory, logger.NewNopLogger())

	long := strings.Repeat("a", 200)
	job, _ := authedJob(long, nil)
	job.Complete("answer", entity.JobMetadata{})

	require.NoError(t, svc.Record(context.Background(), job))
	title := factory.uow.sessions.created[0].Title
	assert.LessOrEqual(t, len([]rune(title)), 60)
	assert.True(t, strings.HasSuffix(title, "..."))
}

func TestContext_AnonymousIsEmpty(t *testing.T) {
	factory := newFakeUowFactory()
	svc := NewHistoryService(factory, logger.NewNopLogger())

	job := entity.NewChatJob("hi", nil, nil)
	history, err := svc.Context(context.Background(), job)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Zero(t, factory.calls)
}

func TestContext_FreshConversationIsEmpty(t *testing.T) {
	factory := newFakeUowFactory()
	svc := NewHistoryService(factory, logger.NewNopLogger())

	job, _ := authedJob("hi", nil)
	history, err := svc.Context(context.Background(), job)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestContext_ForeignSessionTreatedAsFresh(t *testing.T) {
	factory := newFakeUowFactory()
	svc := NewHistoryService(factory, logger.NewNopLogger())

	foreign := &entity.ChatSession{Id: uuid.New(), UserId: uuid.New()}
	factory.uow.sessions.sessions = []*entity.ChatSession{foreign}

	job, _ := authedJob("hi", &foreign.Id)
	history, err := svc.Context(context.Background(), job)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestContext_ReturnsChronologicalWindow(t *testing.T) {
	factory := newFakeUowFactory()
	svc := NewHistoryService(factory, logger.NewNopLogger())

	job, userId := authedJob("follow-up", nil)
	sess := &entity.ChatSession{Id: uuid.New(), UserId: userId}
	factory.uow.sessions.sessions = []*entity.ChatSession{sess}
	job.SessionId = &sess.Id

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 30; i++ {
		role := entity.ChatMessageRoleUser
		if i%2 == 1 {
			role = entity.ChatMessageRoleAssistant
		}
		factory.uow.messages.messages = append(factory.uow.messages.messages, &entity.ChatMessage{
			Id:            uuid.New(),
			ChatSessionId: sess.Id,
			Role:          role,
			Content:       strings.Repeat("m", i+1),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		})
	}

	history, err := svc.Context(context.Background(), job)
	require.NoError(t, err)
	require.Len(t, history, 20, "window keeps the most recent messages only")

	// Oldest first, and the window holds the newest 20 of the 30.
	assert.Equal(t, strings.Repeat("m", 11), history[0].Content)
	assert.Equal(t, strings.Repeat("m", 30), history[19].Content)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[19].Role)
}
