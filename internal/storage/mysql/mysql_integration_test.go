//go:build integration

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"hotel_finder/internal/domain"
	mysqlrepo "hotel_finder/internal/storage/mysql"
)

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	// Start isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=hotels",
		},
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

func entry(userID int64, city string, ts time.Time, n int) domain.HistoryEntry {
	dist := 3.5
	results := make([]domain.HotelInfo, n)
	for i := range results {
		results[i] = domain.HotelInfo{
			ID: fmt.Sprint(i), Name: fmt.Sprintf("Hotel %d", i), Price: "$10",
			Address: domain.Unknown, StarRating: domain.Unknown, Images: []string{"u"},
		}
	}
	return domain.HistoryEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Timestamp: ts,
		Query: domain.SearchQuery{
			RegionID: "1", City: city, Strategy: domain.StrategyBestDeal, MaxDistance: &dist,
			CheckIn: ts, CheckOut: ts.Add(48 * time.Hour), ResultCount: n,
		},
		Results: results,
	}
}

func TestRepo_MySQL_History(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 1} {
		if err := repo.EnsureUser(ctx, id); err != nil {
			t.Fatalf("EnsureUser(%d): %v", id, err)
		}
	}

	ts := time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC)
	rome := entry(1, "Rome", ts, 2)
	oslo := entry(1, "Oslo", ts, 1) // same timestamp: insertion order decides
	for _, e := range []domain.HistoryEntry{rome, oslo, entry(2, "Lima", ts, 3)} {
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := repo.Record(ctx, rome); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on duplicate id, got %v", err)
	}

	list, err := repo.List(ctx, 1, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].City != "Oslo" || list[1].City != "Rome" {
		t.Fatalf("unexpected list: %+v", list)
	}
	if list[1].ResultCount != 2 || list[1].Strategy != domain.StrategyBestDeal {
		t.Fatalf("unexpected summary: %+v", list[1])
	}

	got, err := repo.Fetch(ctx, 1, rome.ID)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !got.Timestamp.Equal(ts) || got.Query.MaxDistance == nil || *got.Query.MaxDistance != 3.5 || len(got.Results) != 2 {
		t.Fatalf("unexpected entry: %+v", got)
	}

	if _, err := repo.Fetch(ctx, 2, rome.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for another user, got %v", err)
	}
}
