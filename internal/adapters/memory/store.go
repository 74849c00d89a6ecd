// Package memory holds in-process implementations of the storage ports, used in dev mode
// and in tests.
package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"hotel_finder/internal/domain"
)

// StateStore keeps one conversation per user.
type StateStore struct {
	mu    sync.RWMutex
	convs map[int64][]byte
}

var _ domain.StateStore = (*StateStore)(nil)

func NewStateStore() *StateStore { return &StateStore{convs: make(map[int64][]byte)} }

func (s *StateStore) Load(_ context.Context, userID int64) (domain.Conversation, error) {
	s.mu.RLock()
	b, ok := s.convs[userID]
	s.mu.RUnlock()
	if !ok {
		return domain.NewConversation(userID), nil
	}
	var c domain.Conversation
	return c, json.Unmarshal(b, &c)
}

// Save stores a serialized copy so callers never share maps with the store.
func (s *StateStore) Save(_ context.Context, c domain.Conversation) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.convs[c.UserID] = b
	s.mu.Unlock()
	return nil
}

// HistoryStore is an append-only history log that also tracks users.
type HistoryStore struct {
	mu     sync.RWMutex
	users  map[int64]domain.User
	byUser map[int64][]string // entry ids in insertion order
	byID   map[string][]byte
	owner  map[string]int64
}

var (
	_ domain.HistoryRepository = (*HistoryStore)(nil)
	_ domain.UserRepository    = (*HistoryStore)(nil)
)

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		users:  make(map[int64]domain.User),
		byUser: make(map[int64][]string),
		byID:   make(map[string][]byte),
		owner:  make(map[string]int64),
	}
}

func (s *HistoryStore) EnsureUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		s.users[id] = domain.User{ID: id, CreatedAt: time.Now().UTC()}
	}
	return nil
}

func (s *HistoryStore) Record(_ context.Context, e domain.HistoryEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byID[e.ID]; dup {
		return domain.ErrConflict
	}
	s.byID[e.ID] = b
	s.owner[e.ID] = e.UserID
	s.byUser[e.UserID] = append(s.byUser[e.UserID], e.ID)
	return nil
}

func (s *HistoryStore) List(_ context.Context, userID int64, limit int) ([]domain.HistorySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byUser[userID]
	out := make([]domain.HistorySummary, 0, min(limit, len(ids)))
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		var e domain.HistoryEntry
		if err := json.Unmarshal(s.byID[ids[i]], &e); err != nil {
			return nil, err
		}
		out = append(out, e.Summary())
	}
	return out, nil
}

func (s *HistoryStore) Fetch(_ context.Context, userID int64, entryID string) (domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.byID[entryID]
	if !ok || s.owner[entryID] != userID {
		return domain.HistoryEntry{}, domain.ErrNotFound
	}
	var e domain.HistoryEntry
	return e, json.Unmarshal(b, &e)
}
