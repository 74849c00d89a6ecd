package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"hotel_finder/internal/app"
	"hotel_finder/internal/domain"
)

const maxEventBytes = 64 << 10

// EventDispatcher applies one chat event and returns the reply to render.
type EventDispatcher interface {
	Dispatch(ctx context.Context, ev app.Event) (app.Reply, error)
}

// HistoryReader is the read side of the search history.
type HistoryReader interface {
	List(ctx context.Context, userID int64) ([]domain.HistorySummary, error)
	Fetch(ctx context.Context, userID int64, entryID string) (domain.HistoryEntry, error)
}

type Handlers struct {
	Events  EventDispatcher
	History HistoryReader
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// MountHandlers registers the public routes. Everything under /v1 requires the bot token.
func (s *Server) MountHandlers(h *Handlers, botToken string) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/v1", func(r chi.Router) {
		r.Use(BotToken(botToken))
		r.Post("/events", h.postEvent)
		r.Get("/users/{userID}/history", h.listHistory)
		r.Get("/users/{userID}/history/{entryID}", h.getHistoryEntry)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any, withETag bool) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not encode response")
		return
	}
	if withETag {
		// If client already has this version, short-circuit.
		if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
			w.Header().Set("ETag", etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func (h *Handlers) postEvent(w http.ResponseWriter, r *http.Request) {
	var ev app.Event
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err := dec.Decode(&ev); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid event", "body must be a JSON event")
		return
	}
	if ev.Kind != app.EventText && ev.Kind != app.EventCallback {
		writeProblem(w, http.StatusBadRequest, "Invalid event", `type must be "text" or "callback"`)
		return
	}

	reply, err := h.Events.Dispatch(r.Context(), ev)
	if err != nil {
		var ve *domain.ValidationError
		switch {
		case errors.As(err, &ve):
			writeProblem(w, http.StatusBadRequest, "Invalid event", ve.Error())
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			writeProblem(w, http.StatusGatewayTimeout, "Timeout", "event is still being processed")
		default:
			log.Error().Err(err).Int64("user_id", ev.UserID).Msg("dispatch failed")
			writeProblem(w, http.StatusInternalServerError, "Internal Error", "event could not be processed")
		}
		return
	}
	if reply.Ignored {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, r, reply, false)
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id == 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid user ID", "userID must be a non-zero integer")
		return 0, false
	}
	return id, true
}

func (h *Handlers) listHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	list, err := h.History.List(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("history list failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "history unavailable")
		return
	}
	writeJSON(w, r, struct {
		Items []domain.HistorySummary `json:"items"`
	}{list}, true)
}

func (h *Handlers) getHistoryEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	e, err := h.History.Fetch(r.Context(), userID, chi.URLParam(r, "entryID"))
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "history entry not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("history fetch failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "history unavailable")
		return
	}
	writeJSON(w, r, e, true)
}
