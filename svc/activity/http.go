package activity

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/pillar/pkg/jwt"
	"github.com/dmitrymomot/pillar/pkg/logger"
)

type recordRequest struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// Routes serves GET / and POST / for the current tenant's activity.
func Routes(l *Log, log *slog.Logger) chi.Router {
	if log == nil {
		log = logger.Discard()
	}
	r := chi.NewRouter()

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		entries, err := l.List(r.Context(), limit)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": entries})
	})

	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		var in recordRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
			return
		}
		e, err := l.Record(r.Context(), actor(r), in.Action, in.Payload)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"data": e})
	})

	return r
}

func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, ErrEmptyAction):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	case errors.Is(err, ErrNoTenant):
		writeJSON(w, http.StatusForbidden, map[string]any{"error": http.StatusText(http.StatusForbidden)})
	default:
		log.ErrorContext(r.Context(), "activity request failed", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func actor(r *http.Request) *uuid.UUID {
	claims, ok := jwt.ClaimsFromContext(r.Context())
	if !ok {
		return nil
	}
	id, err := uuid.Parse(claims.Subject())
	if err != nil {
		return nil
	}
	return &id
}
