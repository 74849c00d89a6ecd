package app

import (
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"hotel_finder/internal/adapters/observability"
	"hotel_finder/internal/domain"
)

// Rank extracts provider records and orders them by the query strategy.
// Records arrive sorted by price ascending; that order is trusted and never re-sorted by price.
// Malformed records are logged and skipped.
func Rank(records []domain.RawHotelRecord, q domain.SearchQuery) ([]domain.HotelInfo, error) {
	if q.ResultCount <= 0 {
		return []domain.HotelInfo{}, nil
	}
	valid := make([]domain.HotelInfo, 0, len(records))
	for i, r := range records {
		h, err := extractHotel(r)
		if err != nil {
			observability.ObserveSkippedRecord()
			log.Warn().Err(err).Int("index", i).Msg("skipping provider record")
			continue
		}
		valid = append(valid, h)
	}

	switch q.Strategy {
	case domain.StrategyCheapest:
		return truncate(valid, q.ResultCount), nil

	case domain.StrategyMostExpensive:
		slices.Reverse(valid)
		return truncate(valid, q.ResultCount), nil

	case domain.StrategyBestDeal:
		if q.MaxDistance == nil {
			return nil, &domain.ValidationError{Field: domain.ScratchMaxDistance, Reason: "required for best deal"}
		}
		limit := *q.MaxDistance
		near := valid[:0]
		for _, h := range valid {
			if h.DistanceKm <= limit {
				near = append(near, h)
			}
		}
		slices.SortStableFunc(near, func(a, b domain.HotelInfo) int {
			switch {
			case a.DistanceKm < b.DistanceKm:
				return -1
			case a.DistanceKm > b.DistanceKm:
				return 1
			}
			return 0
		})
		return truncate(near, q.ResultCount), nil
	}
	return nil, &domain.ValidationError{Field: domain.ScratchStrategy, Reason: fmt.Sprintf("unknown strategy %q", q.Strategy)}
}

func truncate(hs []domain.HotelInfo, n int) []domain.HotelInfo {
	if n < len(hs) {
		hs = hs[:n]
	}
	return slices.Clip(hs)
}
