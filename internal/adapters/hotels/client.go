// internal/adapters/hotels/client.go
package hotels

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"hotel_finder/internal/adapters/observability"
	"hotel_finder/internal/domain"
)

const service = "hotels"

type Options struct {
	Base     string
	Host     string
	Key      string
	Locale   string
	Timeout  time.Duration
	RPS      int
	PageSize int
}

// Client talks to the hotel inventory. Every call is a single round trip: there are no retries.
type Client struct {
	base     string
	host     string
	key      string
	locale   string
	pageSize int
	hc       *http.Client
	rl       *rate.Limiter
}

var _ domain.HotelProvider = (*Client)(nil)

func New(o Options) (*Client, error) {
	if o.Key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if o.Timeout <= 0 {
		o.Timeout = 20 * time.Second
	}
	if o.RPS <= 0 {
		o.RPS = 5
	}
	if o.PageSize <= 0 {
		o.PageSize = 200
	}
	if o.Locale == "" {
		o.Locale = "en_US"
	}
	return &Client{
		base:     strings.TrimRight(o.Base, "/"),
		host:     o.Host,
		key:      o.Key,
		locale:   o.Locale,
		pageSize: o.PageSize,
		hc:       &http.Client{Timeout: o.Timeout},
		rl:       rate.NewLimiter(rate.Limit(o.RPS), o.RPS),
	}, nil
}

// ---- Public API ----

type dayMonthYear struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

func dmy(t time.Time) dayMonthYear {
	return dayMonthYear{Day: t.Day(), Month: int(t.Month()), Year: t.Year()}
}

type listRequest struct {
	Currency      string         `json:"currency"`
	EAPID         int            `json:"eapid"`
	Locale        string         `json:"locale"`
	SiteID        int            `json:"siteId"`
	Destination   map[string]any `json:"destination"`
	CheckInDate   dayMonthYear   `json:"checkInDate"`
	CheckOutDate  dayMonthYear   `json:"checkOutDate"`
	Rooms         []room         `json:"rooms"`
	StartingIndex int            `json:"resultsStartingIndex"`
	ResultsSize   int            `json:"resultsSize"`
	Sort          string         `json:"sort"`
	Filters       map[string]any `json:"filters"`
}

type room struct {
	Adults   int   `json:"adults"`
	Children []any `json:"children"`
}

// SearchProperties lists properties for a region sorted by price ascending.
func (c *Client) SearchProperties(ctx context.Context, q domain.SearchQuery) ([]domain.RawHotelRecord, error) {
	payload := listRequest{
		Currency:     "USD",
		EAPID:        1,
		Locale:       c.locale,
		SiteID:       300000001,
		Destination:  map[string]any{"regionId": q.RegionID},
		CheckInDate:  dmy(q.CheckIn),
		CheckOutDate: dmy(q.CheckOut),
		Rooms:        []room{{Adults: 1, Children: []any{}}},
		ResultsSize:  c.pageSize,
		Sort:         "PRICE_LOW_TO_HIGH",
		Filters: map[string]any{
			"price": map[string]int{"min": q.MinPrice, "max": q.MaxPrice},
		},
	}
	var out struct {
		Data *struct {
			PropertySearch *struct {
				Properties []domain.RawHotelRecord `json:"properties"`
			} `json:"propertySearch"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "properties_list", c.base+"/properties/v2/list", payload, &out); err != nil {
		return nil, err
	}
	if out.Data == nil || out.Data.PropertySearch == nil || out.Data.PropertySearch.Properties == nil {
		return nil, domain.ErrProviderEmptyResult
	}
	return out.Data.PropertySearch.Properties, nil
}

// FetchDetail returns the raw property detail payload (gallery, address, rating).
func (c *Client) FetchDetail(ctx context.Context, hotelID string) (domain.RawDetail, error) {
	payload := map[string]any{
		"currency":   "USD",
		"eapid":      1,
		"locale":     c.locale,
		"siteId":     300000001,
		"propertyId": hotelID,
	}
	var out domain.RawDetail
	if err := c.do(ctx, http.MethodPost, "properties_detail", c.base+"/properties/v2/detail", payload, &out); err != nil {
		return nil, err
	}
	if _, ok := out["data"].(map[string]any); !ok {
		return nil, domain.ErrProviderEmptyResult
	}
	return out, nil
}

// SearchLocations resolves free text to city regions.
func (c *Client) SearchLocations(ctx context.Context, text string) ([]domain.Location, error) {
	v := url.Values{}
	v.Set("q", text)
	v.Set("locale", c.locale)
	var out struct {
		SR []struct {
			Type        string `json:"type"`
			GaiaID      string `json:"gaiaId"`
			RegionNames struct {
				FullName  string `json:"fullName"`
				ShortName string `json:"shortName"`
			} `json:"regionNames"`
		} `json:"sr"`
	}
	if err := c.do(ctx, http.MethodGet, "locations_search", c.base+"/locations/v3/search?"+v.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if out.SR == nil {
		return nil, domain.ErrProviderEmptyResult
	}
	locs := make([]domain.Location, 0, len(out.SR))
	for _, r := range out.SR {
		if r.Type != "CITY" || r.GaiaID == "" {
			continue
		}
		name := r.RegionNames.FullName
		if name == "" {
			name = r.RegionNames.ShortName
		}
		locs = append(locs, domain.Location{RegionID: r.GaiaID, Name: name})
	}
	return locs, nil
}

// ---- Internals ----

// do performs exactly one request with client-side rate limiting and decodes JSON into out.
func (c *Client) do(ctx context.Context, method, endpoint, u string, body, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", domain.ErrProviderTimeout, err)
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("X-RapidAPI-Key", c.key)
	req.Header.Set("X-RapidAPI-Host", c.host)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(service, endpoint, 0, time.Since(start))
		return transportErr(ctx, err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal(service, endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &domain.ProviderBadResponseError{StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return domain.ErrProviderTimeout
		}
		return fmt.Errorf("%w: decode: %v", domain.ErrProviderEmptyResult, err)
	}
	return nil
}

func transportErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return domain.ErrProviderTimeout
	}
	return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
}
