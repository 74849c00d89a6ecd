//go:build integration

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"hotel_finder/internal/adapters/hotels"
	server "hotel_finder/internal/adapters/http_server"
	redisad "hotel_finder/internal/adapters/redis"
	"hotel_finder/internal/app"
	"hotel_finder/internal/domain"
	mysqlrepo "hotel_finder/internal/storage/mysql"
)

const botToken = "e2e-token"

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env:        []string{"MYSQL_ROOT_PASSWORD=root", "MYSQL_DATABASE=hotels"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/hotels?parseTime=true&charset=utf8mb4&loc=UTC",
		resource.GetPort("3306/tcp"))
	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = mysqlrepo.Open(dsn)
		return e
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := mysqlrepo.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// ---------- canned hotels provider ----------
func fakeHotelsAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/locations/v3/search", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"sr": []any{
			map[string]any{"type": "CITY", "gaiaId": "2734", "regionNames": map[string]any{"fullName": "Paris, France"}},
			map[string]any{"type": "HOTEL", "hotelId": "99"},
		}})
	})
	mux.HandleFunc("/properties/v2/list", func(w http.ResponseWriter, r *http.Request) {
		props := make([]any, 0, 3)
		for i, price := range []int{40, 90, 150} {
			props = append(props, map[string]any{
				"id":              fmt.Sprint(i + 1),
				"name":            fmt.Sprintf("Hotel %d", i+1),
				"price":           map[string]any{"lead": map[string]any{"formatted": fmt.Sprintf("$%d", price)}},
				"destinationInfo": map[string]any{"distanceFromDestination": map[string]any{"value": 1.5}},
				"reviews":         map[string]any{"score": 8.0},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"propertySearch": map[string]any{"properties": props}}})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, base string, ev app.Event) app.Reply {
	t.Helper()
	b, _ := json.Marshal(ev)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/events", bytes.NewReader(b))
	req.Header.Set("X-Bot-Token", botToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post event: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("event %+v: status %d", ev, resp.StatusCode)
	}
	var r app.Reply
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	return r
}

// ---------- the test ----------
func TestHTTP_EndToEnd_LowPrice(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	mr := miniredis.RunT(t)
	rc := redisad.NewClient(mr.Addr(), "", 0)

	client, err := hotels.New(hotels.Options{Base: fakeHotelsAPI(t).URL, Host: "hotels.test", Key: "k", Timeout: 5 * time.Second, RPS: 50})
	if err != nil {
		t.Fatalf("hotels client: %v", err)
	}
	search := app.NewSearchService(client, redisad.NewCache(rc), time.Minute, nil, 2)
	hist := app.NewHistoryService(repo, 10)
	machine := app.NewMachine(search, hist, app.MachineConfig{MaxResults: 5, MaxImages: 5})
	d := app.NewDispatcher(machine, redisad.NewStateStore(rc, time.Hour), repo, 15*time.Second)

	srv := server.New(20 * time.Second)
	srv.MountHandlers(&server.Handlers{Events: d, History: hist}, botToken)
	api := httptest.NewServer(srv.Mux())
	t.Cleanup(api.Close)

	const user int64 = 1001
	in := time.Now().UTC().AddDate(0, 1, 0)
	steps := []app.Event{
		{Kind: app.EventText, UserID: user, Text: "/lowprice"},
		{Kind: app.EventText, UserID: user, Text: "Paris"},
		{Kind: app.EventCallback, UserID: user, Data: "city_2734"},
		{Kind: app.EventText, UserID: user, Text: in.Format("2006-01-02")},
		{Kind: app.EventText, UserID: user, Text: in.AddDate(0, 0, 3).Format("2006-01-02")},
		{Kind: app.EventText, UserID: user, Text: "10 500"},
		{Kind: app.EventText, UserID: user, Text: "2"},
	}
	for _, ev := range steps {
		if r := post(t, api.URL, ev); r.Effect != app.EffectPrompt {
			t.Fatalf("event %+v: expected prompt, got %+v", ev, r)
		}
	}
	final := post(t, api.URL, app.Event{Kind: app.EventCallback, UserID: user, Data: "photos_no"})
	if final.Effect != app.EffectComplete || len(final.Buttons) != 2 || final.Buttons[0].Data != "hotel1" {
		t.Fatalf("unexpected final reply: %+v", final)
	}

	req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/v1/users/%d/history", api.URL, user), nil)
	req.Header.Set("X-Bot-Token", botToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	defer resp.Body.Close()
	var list struct {
		Items []domain.HistorySummary `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].City != "Paris, France" || list.Items[0].ResultCount != 2 {
		t.Fatalf("unexpected history: %+v", list.Items)
	}

	e, err := repo.Fetch(context.Background(), user, list.Items[0].ID)
	if err != nil || e.Query.Strategy != domain.StrategyCheapest {
		t.Fatalf("fetch stored entry: %+v, %v", e, err)
	}
}
