package domain

import "time"

type User struct {
	ID        int64
	CreatedAt time.Time
}

// HistoryEntry is one completed search. Results are frozen when the entry is recorded.
type HistoryEntry struct {
	ID        string      `json:"id"`
	UserID    int64       `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Query     SearchQuery `json:"query"`
	Results   []HotelInfo `json:"results"`
}

type HistorySummary struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	City        string    `json:"city"`
	Strategy    Strategy  `json:"strategy"`
	ResultCount int       `json:"result_count"`
}

func (e HistoryEntry) Summary() HistorySummary {
	return HistorySummary{
		ID:          e.ID,
		Timestamp:   e.Timestamp,
		City:        e.Query.City,
		Strategy:    e.Query.Strategy,
		ResultCount: len(e.Results),
	}
}
