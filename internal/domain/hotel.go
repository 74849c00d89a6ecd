package domain

// Unknown is shown for optional hotel fields the provider did not return.
const Unknown = "unknown"

// RawHotelRecord is one element of data.propertySearch.properties as decoded from the provider.
type RawHotelRecord map[string]any

// RawDetail is the full property detail payload.
type RawDetail map[string]any

type Location struct {
	RegionID string `json:"region_id"`
	Name     string `json:"name"`
}

type HotelInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DistanceKm  float64  `json:"distance_km"`
	Price       string   `json:"price"`
	ReviewScore float64  `json:"review_score"`
	Address     string   `json:"address"`
	StarRating  string   `json:"star_rating"`
	Images      []string `json:"images"`
}
