package app

import (
	"context"
	"slices"
	"strings"

	"hotel_finder/internal/domain"
)

type handlerFunc func(ctx context.Context, c *domain.Conversation, ev Event) Reply

type matcher func(ev Event, c domain.Conversation) bool

// route binds an event kind and predicate to a handler. Routes are tried in table order.
type route struct {
	name   string
	kind   EventKind
	match  matcher
	handle handlerFunc
}

// buildRoutes is the complete routing table, built once in NewMachine.
func (m *Machine) buildRoutes() []route {
	return []route{
		// top-level commands, valid in every state
		{"command", EventText, knownCommand(m.commands), m.runCommand},
		{"unknown_command", EventText, anyCommand, m.unknownCommand},
		{"menu", EventCallback, hasPrefix(prefixMenu), m.menu},
		{"history_item", EventCallback, hasPrefix(prefixHistoryItem), m.historyItem},

		// in-flow callbacks
		{"city_choice", EventCallback, all(hasPrefix(prefixCity), inState(domain.StateAwaitingCity)), m.chooseCity},
		{"photos_choice", EventCallback, all(hasPrefix(prefixPhotos), inState(domain.StateAwaitingImageYesNo)), m.choosePhotos},
		{"hotel", EventCallback, all(hasPrefix(prefixHotel), inState(domain.StateShowingResults, domain.StateShowingHistory)), m.hotelCard},

		// in-flow text, one per prompt
		{"city", EventText, inState(domain.StateAwaitingCity), m.cityText},
		{"check_in", EventText, inState(domain.StateAwaitingCheckIn), m.checkIn},
		{"check_out", EventText, inState(domain.StateAwaitingCheckOut), m.checkOut},
		{"price_range", EventText, inState(domain.StateAwaitingPriceRange), m.priceRange},
		{"distance", EventText, inState(domain.StateAwaitingDistance), m.distance},
		{"result_count", EventText, inState(domain.StateAwaitingCount), m.resultCount},
		{"photos_text", EventText, inState(domain.StateAwaitingImageYesNo), m.photosText},
		{"image_count", EventText, inState(domain.StateAwaitingImageCount), m.imageCount},

		{"fallback", EventText, always, m.mainMenuHint},
	}
}

// parseCommand returns the lower-cased command name of "/name@bot args".
func parseCommand(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	name := strings.Fields(text)[0][1:]
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name), name != ""
}

// IsTopLevel reports whether ev starts a new flow and so cancels the user's in-flight one.
func IsTopLevel(ev Event) bool {
	switch ev.Kind {
	case EventText:
		_, ok := parseCommand(ev.Text)
		return ok
	case EventCallback:
		return strings.HasPrefix(ev.Data, prefixMenu) || strings.HasPrefix(ev.Data, prefixHistoryItem)
	}
	return false
}

func knownCommand(cmds map[string]handlerFunc) matcher {
	return func(ev Event, _ domain.Conversation) bool {
		name, ok := parseCommand(ev.Text)
		if !ok {
			return false
		}
		_, known := cmds[name]
		return known
	}
}

func anyCommand(ev Event, _ domain.Conversation) bool {
	_, ok := parseCommand(ev.Text)
	return ok
}

func hasPrefix(p string) matcher {
	return func(ev Event, _ domain.Conversation) bool { return strings.HasPrefix(ev.Data, p) }
}

func inState(states ...domain.State) matcher {
	return func(_ Event, c domain.Conversation) bool { return slices.Contains(states, c.State) }
}

func all(ms ...matcher) matcher {
	return func(ev Event, c domain.Conversation) bool {
		for _, m := range ms {
			if !m(ev, c) {
				return false
			}
		}
		return true
	}
}

func always(Event, domain.Conversation) bool { return true }
