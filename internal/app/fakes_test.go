package app_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hotel_finder/internal/adapters/memory"
	"hotel_finder/internal/app"
	"hotel_finder/internal/domain"
)

// ---- fakes ----

type fakeProvider struct {
	mu        sync.Mutex
	records   []domain.RawHotelRecord
	details   map[string]domain.RawDetail
	locations []domain.Location

	searchErr error
	detailErr map[string]error
	locErr    error

	// when set, SearchLocations signals entered and waits for release or ctx
	entered chan struct{}
	release chan struct{}

	searchCalls int
	locCalls    int
}

func (f *fakeProvider) SearchProperties(ctx context.Context, q domain.SearchQuery) ([]domain.RawHotelRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.records, nil
}

func (f *fakeProvider) FetchDetail(ctx context.Context, id string) (domain.RawDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.detailErr[id]; err != nil {
		return nil, err
	}
	d, ok := f.details[id]
	if !ok {
		return nil, domain.ErrProviderEmptyResult
	}
	return d, nil
}

func (f *fakeProvider) SearchLocations(ctx context.Context, text string) ([]domain.Location, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locCalls++
	if f.locErr != nil {
		return nil, f.locErr
	}
	return f.locations, nil
}

func (f *fakeProvider) calls() (search, loc int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls, f.locCalls
}

// ---- builders ----

func rec(id string, price int, dist float64) domain.RawHotelRecord {
	return domain.RawHotelRecord{
		"id":   id,
		"name": "Hotel " + id,
		"price": map[string]any{"lead": map[string]any{
			"formatted": fmt.Sprintf("$%d", price),
		}},
		"destinationInfo": map[string]any{"distanceFromDestination": map[string]any{
			"value": dist,
		}},
		"reviews": map[string]any{"score": 8.2},
	}
}

func detail(address string, urls ...string) domain.RawDetail {
	imgs := make([]any, 0, len(urls))
	for _, u := range urls {
		imgs = append(imgs, map[string]any{"image": map[string]any{"url": u}})
	}
	return domain.RawDetail{"data": map[string]any{"propertyInfo": map[string]any{
		"propertyGallery": map[string]any{"images": imgs},
		"summary": map[string]any{
			"location": map[string]any{"address": map[string]any{"addressLine": address}},
			"overview": map[string]any{"propertyRating": map[string]any{"rating": 4.0}},
		},
	}}}
}

func ids(hs []domain.HotelInfo) []string {
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		out = append(out, h.ID)
	}
	return out
}

func parisProvider() *fakeProvider {
	return &fakeProvider{
		records: []domain.RawHotelRecord{
			rec("1", 30, 1.2), rec("2", 50, 5.0), rec("3", 80, 0.4), rec("4", 120, 2.5),
		},
		details: map[string]domain.RawDetail{
			"1": detail("1 Rue A", "a1", "a2", "a3"),
			"2": detail("2 Rue B", "b1"),
			"3": detail("3 Rue C", "c1", "c2"),
			"4": detail("4 Rue D"),
		},
		locations: []domain.Location{{RegionID: "2734", Name: "Paris, France"}},
	}
}

var fixedNow = time.Date(2030, 4, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	provider *fakeProvider
	history  *memory.HistoryStore
	states   *memory.StateStore
	machine  *app.Machine
}

func newHarness(t *testing.T, p *fakeProvider) *harness {
	t.Helper()
	hist := memory.NewHistoryStore()
	search := app.NewSearchService(p, memory.NewCache(time.Minute), time.Minute, nil, 2)
	m := app.NewMachine(search, app.NewHistoryService(hist, 10), app.MachineConfig{
		MaxResults: 10,
		MaxImages:  10,
		Now:        func() time.Time { return fixedNow },
	})
	require.NotNil(t, m)
	return &harness{provider: p, history: hist, states: memory.NewStateStore(), machine: m}
}

func text(uid int64, s string) app.Event {
	return app.Event{Kind: app.EventText, UserID: uid, Text: s}
}

func callback(uid int64, data string) app.Event {
	return app.Event{Kind: app.EventCallback, UserID: uid, Data: data}
}
