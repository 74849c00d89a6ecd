package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hotel_finder/internal/domain"
)

type HistoryService struct {
	repo  domain.HistoryRepository
	limit int
	now   func() time.Time
}

func NewHistoryService(r domain.HistoryRepository, listLimit int) *HistoryService {
	if listLimit <= 0 {
		listLimit = 10
	}
	return &HistoryService{repo: r, limit: listLimit, now: time.Now}
}

// Record appends a new entry and returns it with its id. Query and results are copied so
// later changes to the caller's values never reach the stored entry.
func (s *HistoryService) Record(ctx context.Context, userID int64, q domain.SearchQuery, results []domain.HotelInfo) (domain.HistoryEntry, error) {
	e := domain.HistoryEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Timestamp: s.now().UTC().Truncate(time.Microsecond),
		Query:     copyQuery(q),
		Results:   deepCopyHotels(results),
	}
	if err := s.repo.Record(ctx, e); err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("record history: %w", err)
	}
	return e, nil
}

// List returns the user's most recent searches first.
func (s *HistoryService) List(ctx context.Context, userID int64) ([]domain.HistorySummary, error) {
	return s.repo.List(ctx, userID, s.limit)
}

func (s *HistoryService) Fetch(ctx context.Context, userID int64, entryID string) (domain.HistoryEntry, error) {
	if _, err := uuid.Parse(entryID); err != nil {
		return domain.HistoryEntry{}, domain.ErrNotFound
	}
	return s.repo.Fetch(ctx, userID, entryID)
}

func copyQuery(q domain.SearchQuery) domain.SearchQuery {
	if q.MaxDistance != nil {
		d := *q.MaxDistance
		q.MaxDistance = &d
	}
	return q
}

func deepCopyHotels(in []domain.HotelInfo) []domain.HotelInfo {
	out := make([]domain.HotelInfo, len(in))
	copy(out, in)
	for i := range out {
		out[i].Images = append([]string{}, in[i].Images...)
	}
	return out
}
