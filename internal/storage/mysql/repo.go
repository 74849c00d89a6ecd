package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"

	"hotel_finder/internal/domain"
)

const errDuplicateEntry = 1062

// Repo persists users and their search history. Entries are append-only.
type Repo struct{ db *sql.DB }

var (
	_ domain.HistoryRepository = (*Repo)(nil)
	_ domain.UserRepository    = (*Repo)(nil)
)

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) EnsureUser(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, ensureUserSQL, id)
	return err
}

func (r *Repo) Record(ctx context.Context, e domain.HistoryEntry) error {
	q, err := json.Marshal(e.Query)
	if err != nil {
		return fmt.Errorf("marshal query: %w", err)
	}
	res, err := json.Marshal(e.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	_, err = r.db.ExecContext(ctx, insertHistorySQL,
		e.ID,
		e.UserID,
		e.Timestamp.UTC(),
		e.Query.City,
		string(e.Query.Strategy),
		string(q),
		string(res),
	)
	var me *gomysql.MySQLError
	if errors.As(err, &me) && me.Number == errDuplicateEntry {
		return domain.ErrConflict
	}
	return err
}

func (r *Repo) List(ctx context.Context, userID int64, limit int) ([]domain.HistorySummary, error) {
	rows, err := r.db.QueryContext(ctx, listHistorySQL, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.HistorySummary, 0, limit)
	for rows.Next() {
		var s domain.HistorySummary
		var strategy string
		var count sql.NullInt64
		if err := rows.Scan(&s.ID, &s.Timestamp, &s.City, &strategy, &count); err != nil {
			return nil, err
		}
		s.Strategy = domain.Strategy(strategy)
		s.ResultCount = int(count.Int64)
		s.Timestamp = s.Timestamp.UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) Fetch(ctx context.Context, userID int64, entryID string) (domain.HistoryEntry, error) {
	var e domain.HistoryEntry
	var q, res []byte
	err := r.db.QueryRowContext(ctx, getHistorySQL, entryID, userID).Scan(&e.ID, &e.UserID, &e.Timestamp, &q, &res)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.HistoryEntry{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.HistoryEntry{}, err
	}
	if err := json.Unmarshal(q, &e.Query); err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("decode query: %w", err)
	}
	if err := json.Unmarshal(res, &e.Results); err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("decode results: %w", err)
	}
	e.Timestamp = e.Timestamp.UTC()
	return e, nil
}
