package app

import (
	"fmt"
	"strconv"
	"strings"

	"hotel_finder/internal/domain"
)

type EventKind string

const (
	EventText     EventKind = "text"
	EventCallback EventKind = "callback"
)

// Event is one inbound chat update delivered by the transport.
type Event struct {
	Kind     EventKind `json:"type"`
	UserID   int64     `json:"user_id"`
	UserName string    `json:"user_name,omitempty"`
	Text     string    `json:"text,omitempty"`
	Data     string    `json:"data,omitempty"`
}

type Effect string

const (
	EffectNone     Effect = "none"
	EffectPrompt   Effect = "prompt"
	EffectCancel   Effect = "cancel"
	EffectComplete Effect = "complete"
)

type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// Reply is rendered by the transport: text, an optional one-column keyboard and photos.
type Reply struct {
	Text    string   `json:"text"`
	Buttons []Button `json:"buttons,omitempty"`
	Images  []string `json:"images,omitempty"`
	Effect  Effect   `json:"effect"`
	Ignored bool     `json:"-"`
}

var ignored = Reply{Effect: EffectNone, Ignored: true}

func prompt(text string, buttons ...Button) Reply {
	return Reply{Text: text, Buttons: buttons, Effect: EffectPrompt}
}

// Callback data prefixes.
const (
	prefixMenu        = "menu_"
	prefixCity        = "city_"
	prefixPhotos      = "photos_"
	prefixHistoryItem = "history_item"
	prefixHotel       = "hotel"
)

func mainMenuButtons() []Button {
	return []Button{
		{Text: "Cheapest hotels", Data: prefixMenu + "lowprice"},
		{Text: "Most expensive hotels", Data: prefixMenu + "highprice"},
		{Text: "Best deal", Data: prefixMenu + "bestdeal"},
		{Text: "History", Data: prefixMenu + "history"},
	}
}

func renderResults(title string, hs []domain.HotelInfo) Reply {
	var b strings.Builder
	b.WriteString(title)
	buttons := make([]Button, 0, len(hs))
	for i, h := range hs {
		fmt.Fprintf(&b, "\n\n%d. %s\nPrice: %s\nDistance from centre: %.1f km\nRating: %.1f",
			i+1, h.Name, h.Price, h.DistanceKm, h.ReviewScore)
		if len(h.Images) > 0 {
			fmt.Fprintf(&b, "\nPhotos: %d", len(h.Images))
		}
		buttons = append(buttons, Button{Text: h.Name, Data: prefixHotel + h.ID})
	}
	return Reply{Text: b.String(), Buttons: buttons, Effect: EffectComplete}
}

func renderHotel(h domain.HotelInfo) Reply {
	text := fmt.Sprintf("%s\nAddress: %s\nStars: %s\nPrice: %s\nDistance from centre: %.1f km\nRating: %.1f",
		h.Name, h.Address, h.StarRating, h.Price, h.DistanceKm, h.ReviewScore)
	return Reply{Text: text, Images: h.Images, Effect: EffectNone}
}

func historyButtons(list []domain.HistorySummary) []Button {
	out := make([]Button, 0, len(list))
	for _, s := range list {
		label := fmt.Sprintf("%s · %s · %s (%s)",
			s.Timestamp.Format("2006-01-02 15:04"), s.City, strategyLabel(s.Strategy), strconv.Itoa(s.ResultCount))
		out = append(out, Button{Text: label, Data: prefixHistoryItem + s.ID})
	}
	return out
}

func strategyLabel(s domain.Strategy) string {
	switch s {
	case domain.StrategyCheapest:
		return "cheapest"
	case domain.StrategyMostExpensive:
		return "most expensive"
	case domain.StrategyBestDeal:
		return "best deal"
	}
	return string(s)
}
