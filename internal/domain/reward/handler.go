package reward

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pointhub/pointhub-api/internal/middleware"
	"github.com/pointhub/pointhub-api/internal/pkg/errorhandler"
	"github.com/pointhub/pointhub-api/internal/pkg/response"
	"github.com/pointhub/pointhub-api/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /rewards
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	rw, err := h.service.Create(r.Context(), middleware.GetAccountID(r.Context()), &req)
	if err != nil {
		h.writeError(w, r, "reward.create", err)
		return
	}
	response.Created(w, RewardResponseFromEntity(rw))
}

// GetByID handles GET /rewards/{id}
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid reward ID")
		return
	}

	rw, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "reward.get", err)
		return
	}
	if !rw.Active && rw.BusinessID != middleware.GetAccountID(r.Context()) {
		response.NotFound(w, "Reward not found")
		return
	}
	response.OK(w, RewardResponseFromEntity(rw))
}

// ListByBusiness handles GET /businesses/{id}/rewards
func (h *Handler) ListByBusiness(w http.ResponseWriter, r *http.Request) {
	businessID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid business ID")
		return
	}

	limit, offset := 20, 0
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}

	rewards, err := h.service.ListByBusiness(r.Context(), businessID, middleware.GetAccountID(r.Context()), limit, offset)
	if err != nil {
		errorhandler.Internal(r.Context(), w, "reward.list", err)
		return
	}

	items := make([]*RewardResponse, len(rewards))
	for i, rw := range rewards {
		items[i] = RewardResponseFromEntity(rw)
	}
	response.WithMeta(w, items, len(items), limit, offset)
}

// SetActive handles PATCH /rewards/{id}/active
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid reward ID")
		return
	}

	var req SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	rw, err := h.service.SetActive(r.Context(), middleware.GetAccountID(r.Context()), id, *req.Active)
	if err != nil {
		h.writeError(w, r, "reward.set_active", err)
		return
	}
	response.OK(w, RewardResponseFromEntity(rw))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrRewardNotFound):
		response.NotFound(w, "Reward not found")
	case errors.Is(err, ErrNotRewardOwner):
		response.Forbidden(w, "Only the issuing business can manage this reward")
	case errors.Is(err, ErrInvalidAvailability), errors.Is(err, ErrInvalidValidity), errors.Is(err, ErrInvalidTimeWindow):
		response.BadRequest(w, err.Error())
	default:
		errorhandler.Internal(r.Context(), w, op, err)
	}
}

// Routes mounts under /rewards
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/{id}", h.GetByID)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireBusiness())
		r.Post("/", h.Create)
		r.Patch("/{id}/active", h.SetActive)
	})

	return r
}
