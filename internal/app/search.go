package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"hotel_finder/internal/domain"
)

// SearchService runs the provider pipeline: list, rank, then optional image sampling.
type SearchService struct {
	provider domain.HotelProvider
	cache    domain.Cache
	cacheTTL time.Duration
	sampler  *Sampler
	workers  int
}

func NewSearchService(p domain.HotelProvider, c domain.Cache, ttl time.Duration, sampler *Sampler, workers int) *SearchService {
	if sampler == nil {
		sampler = NewSampler(nil)
	}
	if workers <= 0 {
		workers = 4
	}
	return &SearchService{provider: p, cache: c, cacheTTL: ttl, sampler: sampler, workers: workers}
}

// Locations resolves city text, serving repeated queries from cache.
func (s *SearchService) Locations(ctx context.Context, text string) ([]domain.Location, error) {
	key := "locations:" + strings.ToLower(strings.TrimSpace(text))
	var locs []domain.Location
	if s.cache != nil {
		ok, err := s.cache.Get(ctx, key, &locs)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("key", key).Msg("location cache read failed; treating as miss")
			locs = nil
		case ok:
			return locs, nil
		}
	}
	locs, err := s.provider.SearchLocations(ctx, text)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && len(locs) > 0 {
		if err := s.cache.Set(ctx, key, locs, int(s.cacheTTL.Seconds())); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("location cache set failed")
		}
	}
	return locs, nil
}

// Search queries the provider once and ranks the result.
// Detail failures only cost the affected hotel its images.
func (s *SearchService) Search(ctx context.Context, q domain.SearchQuery) ([]domain.HotelInfo, error) {
	recs, err := s.provider.SearchProperties(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search properties: %w", err)
	}
	hs, err := Rank(recs, q)
	if err != nil {
		return nil, err
	}
	if q.WantImages && q.ImageCount > 0 && len(hs) > 0 {
		s.attachImages(ctx, hs, q.ImageCount)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return hs, nil
}

func (s *SearchService) attachImages(ctx context.Context, hs []domain.HotelInfo, count int) {
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range hs {
		h := &hs[i]
		g.Go(func() error {
			d, err := s.provider.FetchDetail(ctx, h.ID)
			if err != nil {
				log.Warn().Err(err).Str("hotel_id", h.ID).Msg("detail fetch failed; showing hotel without images")
				return nil
			}
			applyDetail(h, d)
			h.Images = s.sampler.Sample(galleryURLs(d), count)
			return nil
		})
	}
	_ = g.Wait()
}
