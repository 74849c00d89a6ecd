package domain

import "time"

type Strategy string

const (
	StrategyCheapest      Strategy = "CHEAPEST"
	StrategyMostExpensive Strategy = "MOST_EXPENSIVE"
	StrategyBestDeal      Strategy = "BEST_DEAL"
)

func (s Strategy) Valid() bool {
	switch s {
	case StrategyCheapest, StrategyMostExpensive, StrategyBestDeal:
		return true
	}
	return false
}

// SearchQuery is built once per completed conversation and never modified afterwards.
type SearchQuery struct {
	RegionID    string    `json:"region_id"`
	City        string    `json:"city"`
	CheckIn     time.Time `json:"check_in"`
	CheckOut    time.Time `json:"check_out"`
	MinPrice    int       `json:"min_price"`
	MaxPrice    int       `json:"max_price"`
	MaxDistance *float64  `json:"max_distance,omitempty"` // bestdeal only
	ResultCount int       `json:"result_count"`
	Strategy    Strategy  `json:"strategy"`
	WantImages  bool      `json:"want_images"`
	ImageCount  int       `json:"image_count"`
}
