package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"hotel_finder/internal/domain"
)

const stateKeyPrefix = "conv:"

// StateStore keeps each user's conversation under conv:<userID>. Abandoned conversations
// expire after ttl; a missing key reads as a fresh main-menu conversation.
type StateStore struct {
	c   *redis.Client
	ttl time.Duration
}

var _ domain.StateStore = (*StateStore)(nil)

func NewStateStore(c *redis.Client, ttl time.Duration) *StateStore {
	return &StateStore{c: c, ttl: ttl}
}

func stateKey(userID int64) string { return stateKeyPrefix + strconv.FormatInt(userID, 10) }

func (s *StateStore) Load(ctx context.Context, userID int64) (domain.Conversation, error) {
	b, err := s.c.Get(ctx, stateKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewConversation(userID), nil
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("redis get state: %w", err)
	}
	var c domain.Conversation
	if err := json.Unmarshal(b, &c); err != nil {
		return domain.Conversation{}, fmt.Errorf("decode state: %w", err)
	}
	return c, nil
}

func (s *StateStore) Save(ctx context.Context, c domain.Conversation) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.c.Set(ctx, stateKey(c.UserID), b, s.ttl).Err()
}
