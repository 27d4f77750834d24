package service

import (
	"context"
	"sort"
	"time"

	"trade-intel-be/internal/entity"
	"trade-intel-be/internal/repository/contract"
	"trade-intel-be/internal/repository/specification"
	"trade-intel-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// In-memory repository fakes. They interpret only the specifications the
// services under test actually use.

type fakeSessionRepo struct {
	sessions  []*entity.ChatSession
	createErr error
	created   []*entity.ChatSession
	updated   []*entity.ChatSession
	deleted   []uuid.UUID
}

func (r *fakeSessionRepo) match(sess *entity.ChatSession, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if sess.Id != s.ID {
				return false
			}
		case specification.UserOwnedBy:
			if sess.UserId != s.UserID {
				return false
			}
		}
	}
	return true
}

func (r *fakeSessionRepo) Create(_ context.Context, sess *entity.ChatSession) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, sess)
	r.sessions = append(r.sessions, sess)
	return nil
}

func (r *fakeSessionRepo) Update(_ context.Context, sess *entity.ChatSession) error {
	r.updated = append(r.updated, sess)
	return nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeSessionRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	for _, sess := range r.sessions {
		if r.match(sess, specs) {
			return sess, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	var out []*entity.ChatSession
	for _, sess := range r.sessions {
		if r.match(sess, specs) {
			out = append(out, sess)
		}
	}
	for _, spec := range specs {
		if s, ok := spec.(specification.OrderBy); ok && s.Field == "created_at" && s.Desc {
			sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) Count(_ context.Context, _ ...specification.Specification) (int64, error) {
	return int64(len(r.sessions)), nil
}

type fakeMessageRepo struct {
	messages         []*entity.ChatMessage
	created          []*entity.ChatMessage
	deletedBySession []uuid.UUID
	lastLimit        int
}

func (r *fakeMessageRepo) Create(_ context.Context, msg *entity.ChatMessage) error {
	r.created = append(r.created, msg)
	r.messages = append(r.messages, msg)
	return nil
}

func (r *fakeMessageRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	r.lastLimit = 0
	var out []*entity.ChatMessage
	for _, msg := range r.messages {
		keep := true
		for _, spec := range specs {
			if s, ok := spec.(specification.ByChatSessionID); ok && msg.ChatSessionId != s.ChatSessionID {
				keep = false
			}
		}
		if keep {
			out = append(out, msg)
		}
	}
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.OrderBy:
			if s.Field == "created_at" {
				desc := s.Desc
				sort.Slice(out, func(i, j int) bool {
					if desc {
						return out[i].CreatedAt.After(out[j].CreatedAt)
					}
					return out[i].CreatedAt.Before(out[j].CreatedAt)
				})
			}
		case specification.Limit:
			r.lastLimit = s.Count
		}
	}
	if r.lastLimit > 0 && len(out) > r.lastLimit {
		out = out[:r.lastLimit]
	}
	return out, nil
}

func (r *fakeMessageRepo) DeleteByChatSessionId(_ context.Context, sessionId uuid.UUID) error {
	r.deletedBySession = append(r.deletedBySession, sessionId)
	return nil
}

func (r *fakeMessageRepo) Count(_ context.Context, _ ...specification.Specification) (int64, error) {
	return int64(len(r.messages)), nil
}

type fakeUow struct {
	sessions *fakeSessionRepo
	messages *fakeMessageRepo

	begun      int
	committed  int
	rolledBack int
	beginErr   error
}

func (u *fakeUow) Begin(_ context.Context) error {
	if u.beginErr != nil {
		return u.beginErr
	}
	u.begun++
	return nil
}

func (u *fakeUow) Commit() error {
	u.committed++
	return nil
}

func (u *fakeUow) Rollback() error {
	u.rolledBack++
	return nil
}

func (u *fakeUow) ChatSessionRepository() contract.ChatSessionRepository { return u.sessions }
func (u *fakeUow) ChatMessageRepository() contract.ChatMessageRepository { return u.messages }
func (u *fakeUow) HsCodeRepository() contract.HsCodeRepository           { return nil }
func (u *fakeUow) HsCodeEmbeddingRepository() contract.HsCodeEmbeddingRepository {
	return nil
}

type fakeUowFactory struct {
	uow   *fakeUow
	calls int
}

func (f *fakeUowFactory) NewUnitOfWork(_ context.Context) unitofwork.UnitOfWork {
	f.calls++
	return f.uow
}

func newFakeUowFactory() *fakeUowFactory {
	return &fakeUowFactory{uow: &fakeUow{
		sessions: &fakeSessionRepo{},
		messages: &fakeMessageRepo{},
	}}
}

type fakeTokenIssuer struct {
	token    string
	issueErr error
	issued   []uuid.UUID
}

func (f *fakeTokenIssuer) Issue(_ context.Context, jobId uuid.UUID) (string, time.Time, error) {
	if f.issueErr != nil {
		return "", time.Time{}, f.issueErr
	}
	f.issued = append(f.issued, jobId)
	return f.token, time.Now().Add(10 * time.Minute), nil
}
