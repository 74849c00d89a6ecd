package domain

import "time"

type State string

const (
	StateMainMenu           State = "main_menu"
	StateAwaitingCity       State = "awaiting_city"
	StateAwaitingCheckIn    State = "awaiting_check_in"
	StateAwaitingCheckOut   State = "awaiting_check_out"
	StateAwaitingPriceRange State = "awaiting_price_range"
	StateAwaitingDistance   State = "awaiting_distance"
	StateAwaitingCount      State = "awaiting_result_count"
	StateAwaitingImageYesNo State = "awaiting_image_choice"
	StateAwaitingImageCount State = "awaiting_image_count"
	StateShowingResults     State = "showing_results"
	StateShowingHistory     State = "showing_history"
)

// Terminal states accept a new command and hold no scratch parameters.
func (s State) Terminal() bool {
	switch s {
	case StateMainMenu, StateShowingResults, StateShowingHistory, "":
		return true
	}
	return false
}

// Scratch keys.
const (
	ScratchStrategy    = "strategy"
	ScratchRegionID    = "region_id"
	ScratchCity        = "city"
	ScratchCheckIn     = "check_in"
	ScratchCheckOut    = "check_out"
	ScratchMinPrice    = "min_price"
	ScratchMaxPrice    = "max_price"
	ScratchMaxDistance = "max_distance"
	ScratchResultCount = "result_count"
	ScratchWantImages  = "want_images"
	ScratchImageCount  = "image_count"
)

// Conversation is the single active state of one user.
type Conversation struct {
	UserID    int64             `json:"user_id"`
	State     State             `json:"state"`
	Scratch   map[string]string `json:"scratch,omitempty"`
	Results   []HotelInfo       `json:"results,omitempty"` // hotels on screen in showing_* states
	UpdatedAt time.Time         `json:"updated_at"`
}

func NewConversation(userID int64) Conversation {
	return Conversation{UserID: userID, State: StateMainMenu}
}

// Reset returns to the main menu and drops everything collected so far.
func (c *Conversation) Reset() {
	c.State = StateMainMenu
	c.Scratch = nil
	c.Results = nil
}

func (c *Conversation) Set(key, value string) {
	if c.Scratch == nil {
		c.Scratch = make(map[string]string, 12)
	}
	c.Scratch[key] = value
}
