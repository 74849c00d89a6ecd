package domain

import "context"

type HotelProvider interface {
	SearchProperties(ctx context.Context, q SearchQuery) ([]RawHotelRecord, error)
	FetchDetail(ctx context.Context, hotelID string) (RawDetail, error)
	SearchLocations(ctx context.Context, text string) ([]Location, error)
}

type HistoryRepository interface {
	// Append only; entries are never updated.
	Record(ctx context.Context, e HistoryEntry) error
	List(ctx context.Context, userID int64, limit int) ([]HistorySummary, error)
	// Fetch returns ErrNotFound when the id is unknown or owned by another user.
	Fetch(ctx context.Context, userID int64, entryID string) (HistoryEntry, error)
}

type UserRepository interface {
	EnsureUser(ctx context.Context, id int64) error
}

// StateStore holds exactly one Conversation per user.
type StateStore interface {
	Load(ctx context.Context, userID int64) (Conversation, error)
	Save(ctx context.Context, c Conversation) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
