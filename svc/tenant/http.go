package tenant

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
	"github.com/dmitrymomot/pillar/pkg/provision"
	"github.com/dmitrymomot/pillar/pkg/tenant"
)

const maxBodyBytes = 1 << 20

// envelope is the body of every admin API response.
type envelope struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Handler exposes Service over HTTP.
type Handler struct {
	svc Service
	log *slog.Logger
}

// NewHandler creates the admin API handler.
func NewHandler(svc Service, log *slog.Logger) *Handler {
	if svc == nil {
		panic("tenant: service is required")
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{svc: svc, log: log}
}

// Routes mounts the admin API. Mount it under a prefix with chi's Mount.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/tenants", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/slug-availability", h.slugAvailability)
		r.Get("/by-slug/{slug}", h.getBySlug)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Put("/", h.update)
			r.Delete("/", h.delete)
			r.Post("/provision", h.provision)
			r.Put("/status", h.setStatus)
			r.Get("/members", h.listMembers)
			r.Put("/members/{userID}", h.assignMember)
			r.Delete("/members/{userID}", h.revokeMember)
		})
	})
	r.Get("/users/{userID}/tenants", h.userTenants)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: list})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	in, ok := readJSON[CreateInput](w, r)
	if !ok {
		return
	}
	t, err := h.svc.Create(r.Context(), in)
	if err != nil {
		if t != nil {
			h.writeErrorWithData(w, r, err, t)
			return
		}
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Data: t})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}
	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: t})
}

func (h *Handler) getBySlug(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: t})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}
	in, ok := readJSON[UpdateInput](w, r)
	if !ok {
		return
	}
	t, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: t})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) provision(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}
	t, err := h.svc.Provision(r.Context(), id)
	if err != nil {
		if t != nil {
			h.writeErrorWithData(w, r, err, t)
			return
		}
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: t})
}

type statusRequest struct {
	Status tenant.Status `json:"status"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}
	in, ok := readJSON[statusRequest](w, r)
	if !ok {
		return
	}
	t, err := h.svc.SetStatus(r.Context(), id, in.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: t})
}

type slugAvailability struct {
	Slug      string `json:"slug"`
	Available bool   `json:"available"`
}

func (h *Handler) slugAvailability(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("slug")
	ok, err := h.svc.IsSlugAvailable(r.Context(), raw)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: slugAvailability{Slug: tenant.NormalizeSlug(raw), Available: ok}})
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}
	members, err := h.svc.ListMemberships(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: members})
}

func (h *Handler) assignMember(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.AssignMembership(r.Context(), id, userID, actor(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revokeMember(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.RevokeMembership(r.Context(), id, userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) userTenants(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListUserTenants(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: list})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	h.writeErrorWithData(w, r, err, nil)
}

func (h *Handler) writeErrorWithData(w http.ResponseWriter, r *http.Request, err error, data any) {
	status, msg := classify(err)
	if status == http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "admin request failed",
			slog.String("path", r.URL.Path), logger.Error(err))
	}
	writeJSON(w, status, envelope{Data: data, Error: msg})
}

var provisionSteps = []error{
	provision.ErrMissingConnectionTemplate,
	provision.ErrPrepareConnection,
	provision.ErrCreateDatabase,
	provision.ErrMigrate,
	provision.ErrSeed,
	provision.ErrActivate,
}

// classify maps service errors to a status code and a client-safe message.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrTenantNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, ErrSlugTaken),
		errors.Is(err, ErrDatabaseNameTaken),
		errors.Is(err, ErrSlugImmutable),
		errors.Is(err, tenant.ErrInvalidStatusTransition):
		return http.StatusConflict, err.Error()
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, tenant.ErrInvalidSlug):
		return http.StatusBadRequest, err.Error()
	}
	for _, step := range provisionSteps {
		if errors.Is(err, step) {
			return http.StatusInternalServerError, step.Error()
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, envelope{Error: "request body too large"})
		} else {
			writeJSON(w, http.StatusBadRequest, envelope{Error: "invalid request body"})
		}
		return v, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func tenantID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, envelope{Error: "invalid tenant id"})
		return 0, false
	}
	return id, true
}

func userIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Error: "invalid user id"})
		return uuid.Nil, false
	}
	return id, true
}

// actor returns the authenticated caller, if the token subject is a user id.
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
