package hotels_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"hotel_finder/internal/adapters/hotels"
	"hotel_finder/internal/domain"
)

func newClient(t *testing.T, base string, timeout time.Duration) *hotels.Client {
	t.Helper()
	cl, err := hotels.New(hotels.Options{Base: base, Host: "hotels.test", Key: "test-key", Timeout: timeout, RPS: 100})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	return cl
}

func testQuery() domain.SearchQuery {
	return domain.SearchQuery{
		RegionID: "2734",
		CheckIn:  time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2030, 5, 4, 0, 0, 0, 0, time.UTC),
		MinPrice: 10, MaxPrice: 300,
		ResultCount: 5,
		Strategy:    domain.StrategyCheapest,
	}
}

func TestClient_SearchProperties_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/properties/v2/list" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-RapidAPI-Key") != "test-key" || r.Header.Get("X-RapidAPI-Host") != "hotels.test" {
			t.Errorf("missing provider headers: %v", r.Header)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		in := body["checkInDate"].(map[string]any)
		if in["day"] != 1.0 || in["month"] != 5.0 || in["year"] != 2030.0 {
			t.Errorf("unexpected check-in payload: %+v", in)
		}
		rooms := body["rooms"].([]any)
		if len(rooms) != 1 || rooms[0].(map[string]any)["adults"] != 1.0 {
			t.Errorf("expected a single adult room, got %+v", rooms)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"propertySearch": map[string]any{"properties": []any{
				map[string]any{"id": "1", "name": "A"},
				map[string]any{"id": "2", "name": "B"},
			}}},
		})
	}))
	defer ts.Close()

	got, err := newClient(t, ts.URL, time.Second).SearchProperties(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 2 || got[1]["name"] != "B" {
		t.Fatalf("unexpected records: %+v", got)
	}
}

func TestClient_BadStatus_NoRetry(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := newClient(t, ts.URL, time.Second).SearchProperties(context.Background(), testQuery())
	var bad *domain.ProviderBadResponseError
	if !errors.As(err, &bad) || bad.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected bad response 502, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected exactly one attempt, got %d", n)
	}
}

func TestClient_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	_, err := newClient(t, ts.URL, 50*time.Millisecond).FetchDetail(context.Background(), "42")
	if !errors.Is(err, domain.ErrProviderTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestClient_MissingResultField(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"propertySearch":null}}`))
	}))
	defer ts.Close()

	_, err := newClient(t, ts.URL, time.Second).SearchProperties(context.Background(), testQuery())
	if !errors.Is(err, domain.ErrProviderEmptyResult) {
		t.Fatalf("expected empty result, got %v", err)
	}
}

func TestClient_SearchLocations_CitiesOnly(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "rome" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"sr":[
			{"type":"CITY","gaiaId":"3023","regionNames":{"fullName":"Rome, Lazio, Italy"}},
			{"type":"HOTEL","hotelId":"99","regionNames":{"fullName":"Hotel Roma"}},
			{"type":"CITY","gaiaId":"","regionNames":{"fullName":"No id"}}
		]}`))
	}))
	defer ts.Close()

	got, err := newClient(t, ts.URL, time.Second).SearchLocations(context.Background(), "rome")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0].RegionID != "3023" || got[0].Name != "Rome, Lazio, Italy" {
		t.Fatalf("unexpected locations: %+v", got)
	}
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := hotels.New(hotels.Options{Base: "http://x"}); err == nil {
		t.Fatalf("expected error without API key")
	}
}
