package app

import (
	"strconv"
	"time"

	"hotel_finder/internal/domain"
)

const dateLayout = "2006-01-02"

// BuildQuery turns collected scratch parameters into a SearchQuery.
// The state machine validates every field on entry, so errors here mean a broken flow.
func BuildQuery(s map[string]string) (domain.SearchQuery, error) {
	var q domain.SearchQuery
	var err error

	q.Strategy = domain.Strategy(s[domain.ScratchStrategy])
	if !q.Strategy.Valid() {
		return q, missing(domain.ScratchStrategy)
	}
	if q.RegionID = s[domain.ScratchRegionID]; q.RegionID == "" {
		return q, missing(domain.ScratchRegionID)
	}
	q.City = s[domain.ScratchCity]
	if q.CheckIn, err = time.Parse(dateLayout, s[domain.ScratchCheckIn]); err != nil {
		return q, missing(domain.ScratchCheckIn)
	}
	if q.CheckOut, err = time.Parse(dateLayout, s[domain.ScratchCheckOut]); err != nil {
		return q, missing(domain.ScratchCheckOut)
	}
	if !q.CheckIn.Before(q.CheckOut) {
		return q, &domain.ValidationError{Field: domain.ScratchCheckOut, Reason: "must be after check-in"}
	}
	if q.MinPrice, err = strconv.Atoi(s[domain.ScratchMinPrice]); err != nil {
		return q, missing(domain.ScratchMinPrice)
	}
	if q.MaxPrice, err = strconv.Atoi(s[domain.ScratchMaxPrice]); err != nil {
		return q, missing(domain.ScratchMaxPrice)
	}
	if q.MinPrice < 0 || q.MinPrice > q.MaxPrice {
		return q, &domain.ValidationError{Field: domain.ScratchMaxPrice, Reason: "price range is inverted"}
	}
	if q.Strategy == domain.StrategyBestDeal {
		d, err := strconv.ParseFloat(s[domain.ScratchMaxDistance], 64)
		if err != nil || !finite(d) || d <= 0 {
			return q, missing(domain.ScratchMaxDistance)
		}
		q.MaxDistance = &d
	}
	if q.ResultCount, err = strconv.Atoi(s[domain.ScratchResultCount]); err != nil || q.ResultCount < 1 {
		return q, missing(domain.ScratchResultCount)
	}
	q.WantImages = s[domain.ScratchWantImages] == "yes"
	if q.WantImages {
		if q.ImageCount, err = strconv.Atoi(s[domain.ScratchImageCount]); err != nil || q.ImageCount < 1 {
			return q, missing(domain.ScratchImageCount)
		}
	}
	return q, nil
}

func missing(field string) error {
	return &domain.ValidationError{Field: field, Reason: "missing or malformed"}
}
