package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_finder/internal/domain"
	"hotel_finder/internal/shared"
)

const maxCityButtons = 10

// scratch keys for city candidates offered as buttons
const cityOptionKey = "city_option:"

type MachineConfig struct {
	MaxResults int
	MaxImages  int
	Commands   []shared.Command
	Now        func() time.Time
}

// Machine is the conversation state machine. It is stateless itself: every call gets the
// user's current Conversation and returns the next one.
type Machine struct {
	search   *SearchService
	history  *HistoryService
	cfg      MachineConfig
	commands map[string]handlerFunc
	routes   []route
}

func NewMachine(search *SearchService, history *HistoryService, cfg MachineConfig) *Machine {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.MaxImages <= 0 {
		cfg.MaxImages = 10
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if len(cfg.Commands) == 0 {
		cfg.Commands = shared.DefaultCommands
	}
	m := &Machine{search: search, history: history, cfg: cfg}
	m.commands = map[string]handlerFunc{
		"start":     m.start,
		"help":      m.help,
		"cancel":    m.cancel,
		"lowprice":  m.begin(domain.StrategyCheapest),
		"highprice": m.begin(domain.StrategyMostExpensive),
		"hiprice":   m.begin(domain.StrategyMostExpensive),
		"bestdeal":  m.begin(domain.StrategyBestDeal),
		"history":   m.showHistory,
	}
	m.routes = m.buildRoutes()
	return m
}

// Handle applies one event to the conversation. Unroutable events come back with Ignored set
// and the conversation untouched.
func (m *Machine) Handle(ctx context.Context, c domain.Conversation, ev Event) (domain.Conversation, Reply) {
	for _, r := range m.routes {
		if r.kind != ev.Kind || !r.match(ev, c) {
			continue
		}
		next := c
		next.Scratch = cloneScratch(c.Scratch)
		reply := r.handle(ctx, &next, ev)
		if reply.Ignored {
			return c, reply
		}
		next.UpdatedAt = m.cfg.Now().UTC()
		log.Debug().Int64("user_id", ev.UserID).Str("route", r.name).
			Str("from", string(c.State)).Str("to", string(next.State)).
			Str("effect", string(reply.Effect)).Msg("transition")
		return next, reply
	}
	return c, ignored
}

func cloneScratch(s map[string]string) map[string]string {
	if s == nil {
		return nil
	}
	out := make(map[string]string, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

/********** commands **********/

func (m *Machine) runCommand(ctx context.Context, c *domain.Conversation, ev Event) Reply {
	name, _ := parseCommand(ev.Text)
	return m.commands[name](ctx, c, ev)
}

func (m *Machine) menu(ctx context.Context, c *domain.Conversation, ev Event) Reply {
	h, ok := m.commands[strings.TrimPrefix(ev.Data, prefixMenu)]
	if !ok {
		return ignored
	}
	return h(ctx, c, ev)
}

// restart drops any in-progress flow and reports whether one was cancelled.
func restart(c *domain.Conversation) bool {
	wasMidFlow := !c.State.Terminal()
	c.Reset()
	return wasMidFlow
}

func (m *Machine) start(_ context.Context, c *domain.Conversation, ev Event) Reply {
	restart(c)
	greeting := "Hello!"
	if ev.UserName != "" {
		greeting = fmt.Sprintf("Hello, %s!", ev.UserName)
	}
	return prompt(greeting+"\nHow can I help you?", mainMenuButtons()...)
}

func (m *Machine) help(_ context.Context, c *domain.Conversation, _ Event) Reply {
	restart(c)
	var b strings.Builder
	b.WriteString("Available commands:")
	for _, cmd := range m.cfg.Commands {
		fmt.Fprintf(&b, "\n/%s - %s", cmd.Name, cmd.Help)
	}
	return prompt(b.String(), mainMenuButtons()...)
}

func (m *Machine) cancel(_ context.Context, c *domain.Conversation, _ Event) Reply {
	if !restart(c) {
		return prompt("Nothing to cancel.", mainMenuButtons()...)
	}
	return Reply{Text: "Search cancelled.", Buttons: mainMenuButtons(), Effect: EffectCancel}
}

func (m *Machine) unknownCommand(_ context.Context, _ *domain.Conversation, _ Event) Reply {
	return Reply{Text: "Unknown command. Send /help to see what I can do.", Effect: EffectNone}
}

func (m *Machine) mainMenuHint(_ context.Context, _ *domain.Conversation, _ Event) Reply {
	return Reply{Text: "Choose what to search for:", Buttons: mainMenuButtons(), Effect: EffectNone}
}

func (m *Machine) begin(s domain.Strategy) handlerFunc {
	return func(_ context.Context, c *domain.Conversation, _ Event) Reply {
		restart(c)
		c.State = domain.StateAwaitingCity
		c.Set(domain.ScratchStrategy, string(s))
		return prompt("Which city are we searching in?")
	}
}

/********** parameter collection **********/

func (m *Machine) cityText(ctx context.Context, c *domain.Conversation, ev Event) Reply {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return prompt("Please type a city name.")
	}
	locs, err := m.search.Locations(ctx, text)
	if err != nil {
		return m.fail(c, "city lookup", err)
	}
	if len(locs) == 0 {
		return prompt(fmt.Sprintf("I could not find %q. Please try another city.", text))
	}
	if len(locs) > maxCityButtons {
		locs = locs[:maxCityButtons]
	}
	for k := range c.Scratch {
		if strings.HasPrefix(k, cityOptionKey) {
			delete(c.Scratch, k)
		}
	}
	buttons := make([]Button, 0, len(locs))
	for _, l := range locs {
		c.Set(cityOptionKey+l.RegionID, l.Name)
		buttons = append(buttons, Button{Text: l.Name, Data: prefixCity + l.RegionID})
	}
	return prompt("Choose the city:", buttons...)
}

func (m *Machine) chooseCity(_ context.Context, c *domain.Conversation, ev Event) Reply {
	id := strings.TrimPrefix(ev.Data, prefixCity)
	name, ok := c.Scratch[cityOptionKey+id]
	if !ok {
		return ignored // button from an older lookup
	}
	for k := range c.Scratch {
		if strings.HasPrefix(k, cityOptionKey) {
			delete(c.Scratch, k)
		}
	}
	c.Set(domain.ScratchRegionID, id)
	c.Set(domain.ScratchCity, name)
	c.State = domain.StateAwaitingCheckIn
	return prompt(fmt.Sprintf("%s it is. Check-in date? (YYYY-MM-DD)", name))
}

var dateLayouts = []string{dateLayout, "02.01.2006", "02/01/2006"}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (m *Machine) today() time.Time {
	y, mo, d := m.cfg.Now().UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

func (m *Machine) checkIn(_ context.Context, c *domain.Conversation, ev Event) Reply {
	t, ok := parseDate(ev.Text)
	if !ok {
		return prompt("I did not understand the date. Please use YYYY-MM-DD.")
	}
	if t.Before(m.today()) {
		return prompt("Check-in cannot be in the past. Please enter another date.")
	}
	c.Set(domain.ScratchCheckIn, t.Format(dateLayout))
	c.State = domain.StateAwaitingCheckOut
	return prompt("Check-out date? (YYYY-MM-DD)")
}

func (m *Machine) checkOut(_ context.Context, c *domain.Conversation, ev Event) Reply {
	t, ok := parseDate(ev.Text)
	if !ok {
		return prompt("I did not understand the date. Please use YYYY-MM-DD.")
	}
	in, err := time.Parse(dateLayout, c.Scratch[domain.ScratchCheckIn])
	if err != nil {
		return m.fail(c, "check-out", &domain.ValidationError{Field: domain.ScratchCheckIn, Reason: "lost"})
	}
	if !in.Before(t) {
		return prompt("Check-out must be after check-in. Please enter another date.")
	}
	c.Set(domain.ScratchCheckOut, t.Format(dateLayout))
	c.State = domain.StateAwaitingPriceRange
	return prompt("Price range per night in USD? For example: 50 200")
}

// "50 200", "50-200", "50, 200". A leading minus stays with its number so "-5 10" reads as min=-5.
var priceRangeRe = regexp.MustCompile(`^(-?\d+)\s*[\s,;-]\s*(-?\d+)$`)

func parsePriceRange(s string) (int, int, bool) {
	parts := priceRangeRe.FindStringSubmatch(strings.TrimSpace(s))
	if parts == nil {
		return 0, 0, false
	}
	lo, err1 := strconv.Atoi(parts[1])
	hi, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

func (m *Machine) priceRange(_ context.Context, c *domain.Conversation, ev Event) Reply {
	lo, hi, ok := parsePriceRange(ev.Text)
	if !ok {
		return prompt("Please send two whole numbers: minimum and maximum price.")
	}
	if lo < 0 || lo > hi {
		return prompt("The minimum must be zero or more and not above the maximum. Try again.")
	}
	c.Set(domain.ScratchMinPrice, strconv.Itoa(lo))
	c.Set(domain.ScratchMaxPrice, strconv.Itoa(hi))
	if domain.Strategy(c.Scratch[domain.ScratchStrategy]) == domain.StrategyBestDeal {
		c.State = domain.StateAwaitingDistance
		return prompt("Maximum distance from the city centre, in km?")
	}
	c.State = domain.StateAwaitingCount
	return prompt(fmt.Sprintf("How many hotels should I show? (up to %d)", m.cfg.MaxResults))
}

func (m *Machine) distance(_ context.Context, c *domain.Conversation, ev Event) Reply {
	d, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(ev.Text), ",", "."), 64)
	if err != nil || !finite(d) || d <= 0 {
		return prompt("Please send a positive number of kilometres.")
	}
	c.Set(domain.ScratchMaxDistance, strconv.FormatFloat(d, 'f', -1, 64))
	c.State = domain.StateAwaitingCount
	return prompt(fmt.Sprintf("How many hotels should I show? (up to %d)", m.cfg.MaxResults))
}

// parseCount accepts a positive integer and clamps it to limit.
func parseCount(s string, limit int) (n int, clamped bool, ok bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, false, false
	}
	if n > limit {
		return limit, true, true
	}
	return n, false, true
}

func (m *Machine) resultCount(_ context.Context, c *domain.Conversation, ev Event) Reply {
	n, clamped, ok := parseCount(ev.Text, m.cfg.MaxResults)
	if !ok {
		return prompt("Please send a whole number of at least 1.")
	}
	c.Set(domain.ScratchResultCount, strconv.Itoa(n))
	c.State = domain.StateAwaitingImageYesNo
	text := "Show photos of the hotels?"
	if clamped {
		text = fmt.Sprintf("I will show at most %d hotels. ", n) + text
	}
	return prompt(text,
		Button{Text: "Yes", Data: prefixPhotos + "yes"},
		Button{Text: "No", Data: prefixPhotos + "no"},
	)
}

func (m *Machine) choosePhotos(ctx context.Context, c *domain.Conversation, ev Event) Reply {
	return m.photos(ctx, c, strings.TrimPrefix(ev.Data, prefixPhotos))
}

func (m *Machine) photosText(ctx context.Context, c *domain.Conversation, ev Event) Reply {
	return m.photos(ctx, c, strings.ToLower(strings.TrimSpace(ev.Text)))
}

func (m *Machine) photos(ctx context.Context, c *domain.Conversation, answer string) Reply {
	switch answer {
	case "yes", "y":
		c.Set(domain.ScratchWantImages, "yes")
		c.State = domain.StateAwaitingImageCount
		return prompt(fmt.Sprintf("How many photos per hotel? (up to %d)", m.cfg.MaxImages))
	case "no", "n":
		c.Set(domain.ScratchWantImages, "no")
		return m.complete(ctx, c, "")
	}
	return prompt("Please answer yes or no.",
		Button{Text: "Yes", Data: prefixPhotos + "yes"},
		Button{Text: "No", Data: prefixPhotos + "no"},
	)
}

func (m *Machine) imageCount(ctx context.Context, c *domain.Conversation, ev Event) Reply {
	n, clamped, ok := parseCount(ev.Text, m.cfg.MaxImages)
	if !ok {
		return prompt("Please send a whole number of at least 1.")
	}
	c.Set(domain.ScratchImageCount, strconv.Itoa(n))
	note := ""
	if clamped {
		note = fmt.Sprintf("I will show at most %d photos per hotel.\n", n)
	}
	return m.complete(ctx, c, note)
}

/********** completion **********/

// complete builds the query and runs the search. Whatever happens the scratch is discarded.
func (m *Machine) complete(ctx context.Context, c *domain.Conversation, note string) Reply {
	q, err := BuildQuery(c.Scratch)
	if err != nil {
		return m.fail(c, "build query", err)
	}
	hs, err := m.search.Search(ctx, q)
	if err != nil {
		return m.fail(c, "search", err)
	}
	c.Reset()
	if len(hs) == 0 {
		return Reply{Text: note + "Nothing matched your search. Try other dates, prices or distance.", Buttons: mainMenuButtons(), Effect: EffectComplete}
	}
	if _, err := m.history.Record(ctx, c.UserID, q, hs); err != nil {
		log.Error().Err(err).Int64("user_id", c.UserID).Msg("history record failed")
	}
	c.State = domain.StateShowingResults
	c.Results = hs
	return renderResults(note+fmt.Sprintf("Here is what I found in %s:", q.City), hs)
}

// fail reports a downstream error and resets the conversation to the main menu.
func (m *Machine) fail(c *domain.Conversation, step string, err error) Reply {
	lvl := log.Error()
	if domain.IsProviderError(err) || errors.Is(err, context.Canceled) {
		lvl = log.Warn()
	}
	lvl.Err(err).Int64("user_id", c.UserID).Str("step", step).Str("state", string(c.State)).Msg("conversation aborted")
	c.Reset()
	return Reply{Text: failureText(err), Buttons: mainMenuButtons(), Effect: EffectCancel}
}

func failureText(err error) string {
	var bad *domain.ProviderBadResponseError
	switch {
	case errors.Is(err, context.Canceled):
		return "Search cancelled."
	case errors.Is(err, domain.ErrProviderTimeout), errors.Is(err, context.DeadlineExceeded):
		return "The hotel service did not answer in time. Please try again later."
	case errors.As(err, &bad):
		return fmt.Sprintf("The hotel service rejected the request (code %d). Please try again later.", bad.StatusCode)
	case errors.Is(err, domain.ErrProviderEmptyResult):
		return "The hotel service returned no data for this search."
	case errors.Is(err, domain.ErrProviderUnavailable):
		return "The hotel service is unavailable right now. Please try again later."
	}
	return "Something went wrong. Please start a new search."
}

/********** history & results **********/

func (m *Machine) showHistory(ctx context.Context, c *domain.Conversation, _ Event) Reply {
	restart(c)
	list, err := m.history.List(ctx, c.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", c.UserID).Msg("history list failed")
		return Reply{Text: "History is unavailable right now.", Buttons: mainMenuButtons(), Effect: EffectNone}
	}
	if len(list) == 0 {
		return prompt("You have no searches yet.", mainMenuButtons()...)
	}
	c.State = domain.StateShowingHistory
	return prompt("Your recent searches:", historyButtons(list)...)
}

func (m *Machine) historyItem(ctx context.Context, c *domain.Conversation, ev Event) Reply {
	e, err := m.history.Fetch(ctx, c.UserID, strings.TrimPrefix(ev.Data, prefixHistoryItem))
	if errors.Is(err, domain.ErrNotFound) {
		return Reply{Text: "That search is not available.", Effect: EffectNone}
	}
	if err != nil {
		log.Error().Err(err).Int64("user_id", c.UserID).Msg("history fetch failed")
		return Reply{Text: "History is unavailable right now.", Effect: EffectNone}
	}
	restart(c)
	c.State = domain.StateShowingHistory
	c.Results = e.Results
	r := renderResults(fmt.Sprintf("Found earlier in %s (%s):", e.Query.City, strategyLabel(e.Query.Strategy)), e.Results)
	r.Effect = EffectNone
	return r
}

func (m *Machine) hotelCard(_ context.Context, c *domain.Conversation, ev Event) Reply {
	id := strings.TrimPrefix(ev.Data, prefixHotel)
	for _, h := range c.Results {
		if h.ID == id {
			return renderHotel(h)
		}
	}
	return ignored
}
