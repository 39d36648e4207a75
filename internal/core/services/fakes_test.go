package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"ripple/internal/core/domain"
)

// memStore is an in-memory implementation of the repository interfaces.
// One mutex covers everything, which stands in for the row lock the real
// store takes on the sequence row.
type memStore struct {
	mu           sync.Mutex
	convs        map[uuid.UUID]*domain.Conversation
	direct       map[string]uuid.UUID
	parts        map[uuid.UUID]map[string]struct{}
	seqs         map[uuid.UUID]int64
	msgs         map[uuid.UUID][]domain.Message
	appendCalls  int
	beforeAppend func()
}

func newMemStore() *memStore {
	return &memStore{
		convs:  make(map[uuid.UUID]*domain.Conversation),
		direct: make(map[string]uuid.UUID),
		parts:  make(map[uuid.UUID]map[string]struct{}),
		seqs:   make(map[uuid.UUID]int64),
		msgs:   make(map[uuid.UUID][]domain.Message),
	}
}

func (s *memStore) GetConversationByID(_ context.Context, convID uuid.UUID) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[convID]
	if !ok {
		return nil, domain.ErrInvalidConversation
	}
	cp := *conv
	return &cp, nil
}

func (s *memStore) FindDirect(_ context.Context, directKey string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.direct[directKey]
	if !ok {
		return nil, domain.ErrInvalidConversation
	}
	cp := *s.convs[id]
	return &cp, nil
}

func (s *memStore) CreateConversation(_ context.Context, conv *domain.Conversation, directKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Same contract as the real store: a direct-key conflict adopts the
	// existing row instead of failing.
	if directKey != "" {
		if id, ok := s.direct[directKey]; ok {
			*conv = *s.convs[id]
			return nil
		}
	}
	cp := *conv
	s.convs[conv.ID] = &cp
	s.seqs[conv.ID] = 0
	s.parts[conv.ID] = make(map[string]struct{})
	if directKey != "" {
		s.direct[directKey] = conv.ID
	}
	return nil
}

func (s *memStore) AddParticipant(_ context.Context, convID uuid.UUID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.parts[convID] == nil {
		s.parts[convID] = make(map[string]struct{})
	}
	s.parts[convID][userID] = struct{}{}
	return nil
}

func (s *memStore) RemoveParticipant(_ context.Context, convID uuid.UUID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.parts[convID], userID)
	return nil
}

func (s *memStore) ListParticipants(_ context.Context, convID uuid.UUID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id := range s.parts[convID] {
		out = append(out, id)
	}
	return out, nil
}

func (s *memStore) IsParticipant(_ context.Context, convID uuid.UUID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.parts[convID][userID]
	return ok, nil
}

func (s *memStore) AppendWithSeq(_ context.Context, msg *domain.Message) (int64, error) {
	if hook := s.beforeAppend; hook != nil {
		hook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendCalls++
	if _, ok := s.convs[msg.ConversationID]; !ok {
		return 0, domain.ErrInvalidConversation
	}
	s.seqs[msg.ConversationID]++
	seq := s.seqs[msg.ConversationID]
	stored := *msg
	stored.Seq = seq
	s.msgs[msg.ConversationID] = append(s.msgs[msg.ConversationID], stored)
	return seq, nil
}

func (s *memStore) ListAfter(_ context.Context, convID uuid.UUID, afterSeq int64) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[convID]; !ok {
		return nil, domain.ErrInvalidConversation
	}
	var out []domain.Message
	for _, m := range s.msgs[convID] {
		if m.Seq > afterSeq {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) LastSeq(_ context.Context, convID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[convID]; !ok {
		return 0, domain.ErrInvalidConversation
	}
	return s.seqs[convID], nil
}

// nopTx satisfies contracts.TxManager without a database; the memStore's
// mutex provides the serialization the tests care about.
type nopTx struct{}

func (nopTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeIdentity struct {
	users map[string]*domain.User
}

func (f *fakeIdentity) ResolveUser(_ context.Context, userID string) (*domain.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}
