package progression

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

// Progress handles GET /business/progress
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.service.GetProgress(r.Context(), middleware.GetAccountID(r.Context()))
	if err != nil {
		h.writeError(w, r, "progression.get", err)
		return
	}
	response.OK(w, progress)
}

// XPHistory handles GET /business/progress/xp
func (h *Handler) XPHistory(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	events, err := h.service.ListXPEvents(r.Context(), middleware.GetAccountID(r.Context()), limit, offset)
	if err != nil {
		errorhandler.Internal(r.Context(), w, "progression.xp_history", err)
		return
	}
	response.WithMeta(w, events, len(events), limit, offset)
}

// RequestUpgrade handles POST /business/upgrade-request
func (h *Handler) RequestUpgrade(w http.ResponseWriter, r *http.Request) {
	progress, err := h.service.RequestUpgrade(r.Context(), middleware.GetAccountID(r.Context()))
	if err != nil {
		h.writeError(w, r, "progression.request_upgrade", err)
		return
	}
	response.OK(w, progress)
}

// AwardXP handles POST /admin/businesses/{id}/xp
func (h *Handler) AwardXP(w http.ResponseWriter, r *http.Request) {
	businessID, ok := businessIDParam(w, r)
	if !ok {
		return
	}

	var req AwardXPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	progress, err := h.service.AwardXP(r.Context(), businessID, req.Amount, req.Reason)
	if err != nil {
		h.writeError(w, r, "progression.award_xp", err)
		return
	}
	response.OK(w, progress)
}

// PendingUpgrades handles GET /admin/upgrades
func (h *Handler) PendingUpgrades(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	items, err := h.service.ListPendingUpgrades(r.Context(), limit, offset)
	if err != nil {
		errorhandler.Internal(r.Context(), w, "progression.pending", err)
		return
	}
	response.WithMeta(w, items, len(items), limit, offset)
}

// ApproveUpgrade handles POST /admin/businesses/{id}/upgrade/approve
func (h *Handler) ApproveUpgrade(w http.ResponseWriter, r *http.Request) {
	businessID, ok := businessIDParam(w, r)
	if !ok {
		return
	}

	progress, err := h.service.ApproveUpgrade(r.Context(), businessID, middleware.GetAccountID(r.Context()))
	if err != nil {
		h.writeError(w, r, "progression.approve", err)
		return
	}
	response.OK(w, progress)
}

// RejectUpgrade handles POST /admin/businesses/{id}/upgrade/reject
func (h *Handler) RejectUpgrade(w http.ResponseWriter, r *http.Request) {
	businessID, ok := businessIDParam(w, r)
	if !ok {
		return
	}

	var req RejectUpgradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	progress, err := h.service.RejectUpgrade(r.Context(), businessID, middleware.GetAccountID(r.Context()), req.Reason)
	if err != nil {
		h.writeError(w, r, "progression.reject", err)
		return
	}
	response.OK(w, progress)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		response.BadRequest(w, "amount must be a positive number of XP")
	case errors.Is(err, ErrMissingReason):
		errorhandler.Validation(r.Context(), w, map[string]string{"reason": "required"})
	case errors.Is(err, ErrBusinessNotFound):
		response.NotFound(w, "Business not found")
	case errors.Is(err, ErrNotBusiness):
		response.Forbidden(w, "Only business accounts have a level")
	case errors.Is(err, ErrNotEligible):
		errorhandler.Precondition(r.Context(), w, "NOT_ELIGIBLE", "Reach sub-level 9 to request an upgrade", err)
	case errors.Is(err, ErrNoPendingRequest):
		errorhandler.Precondition(r.Context(), w, "NO_PENDING_REQUEST", "No upgrade request is pending", err)
	default:
		errorhandler.Internal(r.Context(), w, op, err)
	}
}

func businessIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid business ID")
		return uuid.Nil, false
	}
	return id, true
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}

// Routes serves the business's own progression
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(middleware.RequireBusiness())
	r.Get("/progress", h.Progress)
	r.Get("/progress/xp", h.XPHistory)
	r.Post("/upgrade-request", h.RequestUpgrade)
	return r
}

// AdminRoutes serves XP grants and upgrade decisions, mounted under /admin/businesses
func (h *Handler) AdminRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(middleware.RequireAdmin())
	r.Post("/{id}/xp", h.AwardXP)
	r.Post("/{id}/upgrade/approve", h.ApproveUpgrade)
	r.Post("/{id}/upgrade/reject", h.RejectUpgrade)
	return r
}
